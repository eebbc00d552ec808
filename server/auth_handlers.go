package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/expo-laith/xero-ap-automation/server/authstate"
)

// ConnectHandler starts the authorization-code flow: it parks a fresh state
// value and redirects the browser to the provider's authorization URL.
func (s *Server) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.NewString()

		authURL, err := s.auth.AuthorizeURL(state)
		if err != nil {
			data := s.pageData()
			data.Error = userMessage(err)
			s.renderPage(w, http.StatusBadRequest, data)
			return
		}

		if err := s.authState.Upsert(state, &authstate.PendingAuth{CreatedAt: time.Now()}); err != nil {
			http.Error(w, "Failed to track authorization state", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler completes the authorization-code flow.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		// Check for authorization errors
		if errorParam != "" {
			data := s.pageData()
			data.Error = fmt.Sprintf("Authorization failed: %s - %s", errorParam, errorDesc)
			s.renderPage(w, http.StatusBadRequest, data)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		if _, err := s.authState.Get(state); err != nil {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		// Clean up state after use
		if err := s.authState.Delete(state); err != nil {
			http.Error(w, "Invalid state parameter", http.StatusInternalServerError)
			return
		}

		record, err := s.auth.CompleteAuthorization(r.Context(), code)
		if err != nil {
			data := s.pageData()
			data.Error = userMessage(err)
			s.renderPage(w, http.StatusBadGateway, data)
			return
		}

		data := s.pageData()
		data.Connected = true
		data.TenantID = record.TenantID
		data.Message = "Xero connection complete. You can run an AP file now."
		s.renderPage(w, http.StatusOK, data)
	}
}
