package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// UPLOAD PAGE
	s.RegisterRouteHandler("GET "+RouteUpload, ChainMiddleware(s.UploadPageHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteTemplate, ChainMiddleware(s.TemplateDownloadHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRun, ChainMiddleware(s.RunHandler(), s.HTMLMiddleware()...))

	// XERO CONNECTION
	s.RegisterRouteHandler("GET "+RouteConnect, ChainMiddleware(s.ConnectHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.HTMLMiddleware()...))

	// OPERATIONS
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
