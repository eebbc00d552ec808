package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/expo-laith/xero-ap-automation/aprun"
	apperrors "github.com/expo-laith/xero-ap-automation/internal/errors"
)

// maxUploadSize bounds the AP run workbook; the real ones are a few KB.
const maxUploadSize = 16 << 20

// TemplateDownloadHandler serves a freshly generated AP run template workbook
func (s *Server) TemplateDownloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeXLSX)
		w.Header().Set("Content-Disposition", `attachment; filename="AP_run_template.xlsx"`)
		if err := aprun.WriteTemplate(w); err != nil {
			logRouteError("GET", RouteTemplate, err.Error())
		}
	}
}

// RunHandler accepts the uploaded workbook, runs the AP pipeline against the
// connected organisation, and streams the categorised attachments back as a
// ZIP archive. Failures re-render the upload page with a message telling the
// user what to fix.
func (s *Server) RunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

		file, header, err := r.FormFile("file")
		if err != nil {
			s.renderRunError(w, http.StatusBadRequest, "Please choose an AP run file to upload.")
			return
		}
		defer file.Close()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
			s.renderRunError(w, http.StatusBadRequest, "Please upload a .xlsx file.")
			return
		}

		rows, err := aprun.ReadWorkbook(file)
		if err != nil {
			s.renderRunError(w, http.StatusBadRequest, userMessage(err))
			return
		}
		if len(rows) == 0 {
			s.renderRunError(w, http.StatusBadRequest, userMessage(apperrors.ErrEmptyRun))
			return
		}

		tenantID, err := s.auth.TenantID()
		if err != nil {
			s.renderRunError(w, http.StatusBadRequest, userMessage(err))
			return
		}

		runID := uuid.NewString()
		outRoot, err := os.MkdirTemp(s.config.GetOutputRoot(), "xero_ap_run_"+runID[:8]+"_")
		if err != nil {
			s.renderRunError(w, http.StatusInternalServerError, "Failed to create a working folder: "+err.Error())
			return
		}
		defer os.RemoveAll(outRoot)

		log.Info().Str("run_id", runID).Str("file", header.Filename).Int("rows", len(rows)).Msg("starting AP run")

		processor := aprun.NewProcessor(s.newInvoiceSource(tenantID))
		summary, err := processor.Run(r.Context(), rows, outRoot)
		if err != nil {
			status := http.StatusInternalServerError
			if apperrors.Is(err, apperrors.ErrRefreshFailed) || apperrors.Is(err, apperrors.ErrMissingSecretsFile) ||
				apperrors.Is(err, apperrors.ErrMalformedSecrets) {
				status = http.StatusBadRequest
			}
			s.renderRunError(w, status, userMessage(err))
			return
		}

		archiveName := fmt.Sprintf("%s_ap_output.zip", filepath.Base(summary.OutputFolder))
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archiveName))
		w.Header().Set("X-Ap-Run-New-Files", fmt.Sprintf("%d", summary.NewFiles))
		w.Header().Set("X-Ap-Run-Missing", fmt.Sprintf("%d", summary.MissingInvoices))

		if err := aprun.WriteArchive(w, summary.OutputFolder); err != nil {
			// Headers are gone; all that is left is logging it.
			logRouteError("POST", RouteRun, err.Error())
		}
	}
}

func (s *Server) renderRunError(w http.ResponseWriter, status int, message string) {
	data := s.pageData()
	data.Error = message
	s.renderPage(w, status, data)
}

// userMessage maps the error taxonomy onto the instructions shown on the
// upload page.
func userMessage(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrMissingSecretsFile):
		return "Secrets file not found. Deploy the credentials file, then connect to Xero again."
	case apperrors.Is(err, apperrors.ErrMalformedSecrets):
		return "Secrets file is malformed. Re-upload a credentials file with client_id, client_secret and redirect_uri."
	case apperrors.Is(err, apperrors.ErrRefreshFailed):
		return "Xero rejected the stored refresh token. Re-authorize via Connect to Xero and try again."
	case apperrors.Is(err, apperrors.ErrNoTenant):
		return "No Xero organisation is connected. Use Connect to Xero first."
	case apperrors.Is(err, apperrors.ErrInvalidWorkbook):
		return "Workbook headers are wrong: need 'category', plus 'supplier'/'contact' and 'reference'/'invoice reference'."
	case apperrors.Is(err, apperrors.ErrEmptyRun):
		return "The workbook has no rows with both a reference and a category."
	default:
		return "Error: " + err.Error()
	}
}
