package server

import (
	"net/http"

	apperrors "github.com/expo-laith/xero-ap-automation/internal/errors"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// UIPageData is the template model for the upload page
type UIPageData struct {
	AppName   string
	Connected bool
	TenantID  string
	Message   string
	Error     string
}

func (s *Server) pageData() UIPageData {
	data := UIPageData{AppName: s.config.GetAppName()}

	record, err := s.store.Load()
	switch {
	case err == nil:
		data.Connected = record.Authorized()
		data.TenantID = record.TenantID
	case apperrors.Is(err, apperrors.ErrMissingSecretsFile):
		data.Error = "Secrets file not found. Deploy the credentials file before connecting."
	case apperrors.Is(err, apperrors.ErrMalformedSecrets):
		data.Error = "Secrets file is malformed. Re-upload a credentials file with client_id, client_secret and redirect_uri."
	default:
		data.Error = "Failed to read credentials: " + err.Error()
	}
	return data
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data UIPageData) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := s.pageTmpl.Execute(w, data); err != nil {
		logRouteError("GET", RouteUpload, err.Error())
	}
}

// UploadPageHandler renders the AP run upload page with connection status
func (s *Server) UploadPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, http.StatusOK, s.pageData())
	}
}
