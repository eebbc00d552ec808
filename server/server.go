package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/expo-laith/xero-ap-automation/aprun"
	"github.com/expo-laith/xero-ap-automation/internal/config"
	"github.com/expo-laith/xero-ap-automation/secrets"
	"github.com/expo-laith/xero-ap-automation/server/authstate"
	"github.com/expo-laith/xero-ap-automation/xero"
	"github.com/expo-laith/xero-ap-automation/xeroauth"
)

type Server struct {
	env       string // Environment (e.g., "development", "production")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	store     secrets.Store
	auth      *xeroauth.Manager
	authState authstate.Repo
	pageTmpl  *template.Template

	// newInvoiceSource builds the accounting API client for one run. Tests
	// substitute a fake.
	newInvoiceSource func(tenantID string) aprun.InvoiceSource
}

func New(cfg config.Config, store secrets.Store, auth *xeroauth.Manager, authStateRepo authstate.Repo) (*Server, error) {
	pageTmpl, err := ParseTemplate("index.html")
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse upload page template: %w", err)
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    cfg,
		store:     store,
		auth:      auth,
		authState: authStateRepo,
		pageTmpl:  pageTmpl,
	}
	s.env = cfg.GetEnv()
	s.newInvoiceSource = func(tenantID string) aprun.InvoiceSource {
		return xero.NewClient(cfg.GetAccountingBaseURL(), tenantID, auth, nil)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// SetInvoiceSource replaces the accounting client factory. Used by tests.
func (s *Server) SetInvoiceSource(factory func(tenantID string) aprun.InvoiceSource) {
	s.newInvoiceSource = factory
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}
