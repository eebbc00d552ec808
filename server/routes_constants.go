package server

const (
	RouteUpload   = "/"
	RouteTemplate = "/template"
	RouteRun      = "/run"
	RouteConnect  = "/connect"
	RouteCallback = "/callback"
	RouteHealth   = "/healthz"
	RouteMetrics  = "/metrics"
)
