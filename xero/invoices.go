package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Contact is the supplier an ACCPAY invoice belongs to.
type Contact struct {
	Name string `json:"Name"`
}

// Invoice is the subset of the accounting API's invoice document the AP run
// needs.
type Invoice struct {
	InvoiceID     string  `json:"InvoiceID"`
	InvoiceNumber string  `json:"InvoiceNumber"`
	Contact       Contact `json:"Contact"`
}

type invoicesResponse struct {
	Invoices []Invoice `json:"Invoices"`
}

// fallbackPageLimit bounds the local-comparison scan when no exact
// InvoiceNumber match exists.
const fallbackPageLimit = 10

// Invoices queries invoices matching the given where clause, newest first.
func (c *Client) Invoices(ctx context.Context, where string, page int) ([]Invoice, error) {
	params := url.Values{}
	params.Set("where", where)
	params.Set("order", "Date DESC")
	params.Set("page", fmt.Sprintf("%d", page))

	resp, err := c.get(ctx, "/Invoices", params, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body invoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("[Client Invoices] decode: %w", err)
	}
	return body.Invoices, nil
}

// FindByInvoiceNumber locates an ACCPAY invoice by its invoice number, where
// the AP run's PO-like references live. Reference variants (verbatim, spaces
// stripped, slashes stripped) are tried exactly, scoped to the supplier first
// and unscoped second. When nothing matches exactly, recent invoices are
// paged and compared locally on normalised numbers.
func (c *Client) FindByInvoiceNumber(ctx context.Context, supplier, reference string) (*Invoice, error) {
	reference = strings.TrimSpace(reference)

	var variants []string
	if reference != "" {
		variants = dedupe([]string{
			reference,
			strings.ReplaceAll(reference, " ", ""),
			strings.ReplaceAll(reference, "/", ""),
		})
	}

	for _, scopedToSupplier := range []bool{true, false} {
		if scopedToSupplier && supplier == "" {
			continue
		}
		for _, v := range variants {
			where := fmt.Sprintf(`Type=="ACCPAY" && InvoiceNumber==%q`, v)
			if scopedToSupplier {
				where += fmt.Sprintf(` && Contact.Name==%q`, supplier)
			}
			hits, err := c.Invoices(ctx, where, 1)
			if err != nil {
				return nil, err
			}
			if len(hits) > 0 {
				return &hits[0], nil
			}
		}
	}

	return c.scanRecentInvoices(ctx, supplier, reference)
}

// scanRecentInvoices pages through recent ACCPAY invoices and compares
// normalised invoice numbers locally. With a supplier the window is a year;
// without one it is kept short to bound the scan.
func (c *Client) scanRecentInvoices(ctx context.Context, supplier, reference string) (*Invoice, error) {
	days := 120
	if supplier != "" {
		days = 365
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	where := fmt.Sprintf(`Date>=DateTime(%d,%d,%d,0,0,0) && Type=="ACCPAY"`,
		since.Year(), since.Month(), since.Day())
	if supplier != "" {
		where += fmt.Sprintf(` && Contact.Name==%q`, supplier)
	}

	want := normalizeInvoiceNumber(reference)
	for page := 1; page <= fallbackPageLimit; page++ {
		hits, err := c.Invoices(ctx, where, page)
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			break
		}
		for i := range hits {
			if normalizeInvoiceNumber(hits[i].InvoiceNumber) == want {
				return &hits[i], nil
			}
		}
	}

	log.Debug().Str("supplier", supplier).Str("reference", reference).Msg("invoice not found")
	return nil, nil
}

func normalizeInvoiceNumber(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "/", "")
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
