package enrich

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ExtractReceiptPDF extracts purchase candidates from a PDF receipt or
// order confirmation. The text is pulled out locally; only the text leaves
// the machine.
func (c *Client) ExtractReceiptPDF(ctx context.Context, data []byte) ([]Candidate, error) {
	text, err := pdfText(data)
	if err != nil {
		return nil, err
	}
	return c.ExtractReceiptText(ctx, text)
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}
