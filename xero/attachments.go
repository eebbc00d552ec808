package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
)

// Attachment describes one file attached to an invoice.
type Attachment struct {
	AttachmentID string `json:"AttachmentID"`
	FileName     string `json:"FileName"`
	MimeType     string `json:"MimeType"`
}

type attachmentsResponse struct {
	Attachments []Attachment `json:"Attachments"`
}

// Attachments lists the files attached to an invoice.
func (c *Client) Attachments(ctx context.Context, invoiceID string) ([]Attachment, error) {
	resp, err := c.get(ctx, "/Invoices/"+url.PathEscape(invoiceID)+"/Attachments", nil, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body attachmentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("[Client Attachments] decode: %w", err)
	}
	return body.Attachments, nil
}

// DownloadAttachment fetches one attachment's content by file name.
func (c *Client) DownloadAttachment(ctx context.Context, invoiceID, fileName string) ([]byte, error) {
	path := "/Invoices/" + url.PathEscape(invoiceID) + "/Attachments/" + url.PathEscape(fileName)
	resp, err := c.get(ctx, path, nil, "*/*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[Client DownloadAttachment] read %s: %w", fileName, err)
	}
	return data, nil
}
