// pdf.go - Fixed-layout PDF renderer.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/landflow/billing-engine/billing"
)

// PDFRenderer renders the single-page invoice layout. A fixed creation
// date keeps the output a pure function of the invoice value.
type PDFRenderer struct {
	creationDate time.Time
}

func (r PDFRenderer) Render(inv billing.Invoice) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(r.creationDate)
	doc.SetModificationDate(r.creationDate)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.Text(20, 20, "Invoice")

	doc.SetFont("Helvetica", "", 12)
	doc.Text(20, 40, fmt.Sprintf("Client: %s", inv.Client))
	doc.Text(20, 50, fmt.Sprintf("Amount: $%s", inv.Amount.StringFixed(2)))
	doc.Text(20, 60, fmt.Sprintf("Date: %s", inv.Date))
	doc.Text(20, 70, fmt.Sprintf("Status: %s", inv.Status))

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
