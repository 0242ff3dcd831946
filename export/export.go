/*
Package export renders a single invoice snapshot to a portable document.

PURPOSE:
  Produces the fixed single-page artifact an operator downloads for a
  client: title, client name, amount as currency, date, status. The
  exporter is a read-only consumer of one invoice value; it never
  consults external state and never mutates the invoice.

LAYOUT:
  One A4 page, fixed coordinates:
    16pt  "Invoice"
    12pt  Client: <client>
    12pt  Amount: $<amount, exactly two decimals>
    12pt  Date:   <date as given>
    12pt  Status: <status as given>

ARTIFACT:
  Named invoice-<id>.pdf. Rendering failure reports billing.ErrExport.

SEE ALSO:
  - billing/types.go: The Invoice value consumed here
*/
package export

import (
	"fmt"
	"time"

	"github.com/landflow/billing-engine/billing"
)

// Document is the named byte artifact delivered to the caller.
type Document struct {
	Name  string
	Bytes []byte
}

// Renderer turns one invoice into document bytes. The PDF implementation
// lives in pdf.go; tests substitute their own.
type Renderer interface {
	Render(inv billing.Invoice) ([]byte, error)
}

// Exporter names and delivers the rendered artifact.
type Exporter struct {
	renderer Renderer
}

func NewExporter(r Renderer) *Exporter {
	return &Exporter{renderer: r}
}

// NewPDFExporter returns an Exporter backed by the fixed-layout PDF
// renderer.
func NewPDFExporter() *Exporter {
	return NewExporter(PDFRenderer{creationDate: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)})
}

// Export renders inv and returns the named artifact. On failure the
// error wraps billing.ErrExport and no partial document is returned.
func (e *Exporter) Export(inv billing.Invoice) (Document, error) {
	data, err := e.renderer.Render(inv)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", billing.ErrExport, err)
	}
	return Document{
		Name:  fmt.Sprintf("invoice-%d.pdf", inv.ID),
		Bytes: data,
	}, nil
}
