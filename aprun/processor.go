package aprun

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/expo-laith/xero-ap-automation/xero"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Pipeline metrics
var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aprun_runs_total",
		Help: "Number of AP runs processed",
	})
	filesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aprun_files_downloaded_total",
		Help: "Number of attachment files downloaded across all runs",
	})
	invoicesMissing = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aprun_invoices_missing_total",
		Help: "Number of workbook rows whose invoice could not be found",
	})
)

// InvoiceSource is the accounting API surface the pipeline needs. The xero
// client satisfies it; tests use a fake.
type InvoiceSource interface {
	FindByInvoiceNumber(ctx context.Context, supplier, reference string) (*xero.Invoice, error)
	Attachments(ctx context.Context, invoiceID string) ([]xero.Attachment, error)
	DownloadAttachment(ctx context.Context, invoiceID, fileName string) ([]byte, error)
}

// Summary reports what one run produced.
type Summary struct {
	NewFiles        int
	MissingInvoices int
	OutputFolder    string
}

// Processor files invoice attachments from an AP run workbook into dated,
// categorised output folders.
type Processor struct {
	source InvoiceSource
}

func NewProcessor(source InvoiceSource) *Processor {
	return &Processor{source: source}
}

// Run looks up every row's invoice, downloads its attachments, and files
// them under outRoot/<date>/<category>/. An invoice is processed at most
// once per run and an attachment downloaded at most once per run; sequence
// numbers advance per category only when files are actually saved.
func (p *Processor) Run(ctx context.Context, rows []Row, outRoot string) (*Summary, error) {
	outputFolder := filepath.Join(outRoot, NowTimeFunc().Format("2006-01-02"))
	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return nil, fmt.Errorf("[Processor Run] create output folder: %w", err)
	}

	categoryDirs := make(map[string]string, len(CanonicalCategories))
	for _, c := range CanonicalCategories {
		dir := filepath.Join(outputFolder, CategoryFolderName(c))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("[Processor Run] create category folder: %w", err)
		}
		categoryDirs[c] = dir
	}

	summary := &Summary{OutputFolder: outputFolder}
	sequences := make(map[string]int)
	processedInvoices := make(map[string]bool)
	downloaded := make(map[string]bool)

	for i, row := range rows {
		category := NormalizeCategory(row.Category)
		destDir, ok := categoryDirs[category]
		if !ok {
			// Unexpected categories still get their own flat folder.
			destDir = filepath.Join(outputFolder, CategoryFolderName(category))
			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return nil, fmt.Errorf("[Processor Run] create category folder: %w", err)
			}
			categoryDirs[category] = destDir
		}

		log.Info().Int("row", i+1).Str("supplier", row.Supplier).
			Str("reference", row.Reference).Str("category", category).Msg("invoice lookup")

		invoice, err := p.source.FindByInvoiceNumber(ctx, row.Supplier, row.Reference)
		if err != nil {
			return nil, fmt.Errorf("[Processor Run] lookup %q: %w", row.Reference, err)
		}
		if invoice == nil {
			log.Warn().Str("reference", row.Reference).Msg("invoice not found")
			summary.MissingInvoices++
			invoicesMissing.Inc()
			continue
		}
		if processedInvoices[invoice.InvoiceID] {
			log.Info().Str("invoice_id", invoice.InvoiceID).Msg("skipping invoice already processed")
			continue
		}

		contact := invoice.Contact.Name
		if contact == "" {
			contact = row.Supplier
		}
		invoiceNumber := invoice.InvoiceNumber
		if invoiceNumber == "" {
			invoiceNumber = invoice.InvoiceID
		}

		attachments, err := p.source.Attachments(ctx, invoice.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("[Processor Run] attachments of %q: %w", invoiceNumber, err)
		}
		if len(attachments) == 0 {
			log.Info().Str("invoice_number", invoiceNumber).Msg("no attachments")
			processedInvoices[invoice.InvoiceID] = true
			continue
		}

		sequences[category]++
		seq := sequences[category]

		for _, att := range attachments {
			key := invoice.InvoiceID + "/" + att.FileName
			if att.AttachmentID != "" {
				key = invoice.InvoiceID + "/" + att.AttachmentID
			}
			if downloaded[key] {
				log.Info().Str("file", att.FileName).Msg("skipping attachment already downloaded")
				continue
			}

			content, err := p.source.DownloadAttachment(ctx, invoice.InvoiceID, att.FileName)
			if err != nil {
				return nil, fmt.Errorf("[Processor Run] download %q: %w", att.FileName, err)
			}

			outPath := uniquePath(destDir, attachmentFileName(seq, contact, invoiceNumber, att.FileName))
			if err := os.WriteFile(outPath, content, 0o644); err != nil {
				return nil, fmt.Errorf("[Processor Run] write %q: %w", outPath, err)
			}

			downloaded[key] = true
			summary.NewFiles++
			filesDownloaded.Inc()
			log.Info().Str("file", filepath.Base(outPath)).Msg("saved attachment")
		}

		processedInvoices[invoice.InvoiceID] = true
	}

	runsTotal.Inc()
	log.Info().Int("new_files", summary.NewFiles).Int("missing", summary.MissingInvoices).
		Str("output", outputFolder).Msg("AP run complete")
	return summary, nil
}
