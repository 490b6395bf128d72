package receipts

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	qrcode "github.com/skip2/go-qrcode"
)

// PDFRenderer draws single-page booking receipts
type PDFRenderer struct {
	baseURL  string
	currency string
}

var _ providers.ReceiptRenderer = (*PDFRenderer)(nil)

// NewPDFRenderer creates a renderer. baseURL prefixes the booking link
// encoded in the receipt's QR code.
func NewPDFRenderer(baseURL, currency string) *PDFRenderer {
	return &PDFRenderer{baseURL: baseURL, currency: currency}
}

// ContentType is the MIME type of rendered receipts
func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// Render writes the receipt for a paid or completed booking
func (r *PDFRenderer) Render(w io.Writer, view entities.BookingView) error {
	b := view.Booking
	if b == nil {
		return fmt.Errorf("receipt requires a booking")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 12, "KRAFTA SERVICE RECEIPT")
	pdf.Ln(16)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 70, "F")

	pdf.SetXY(20, yStart+6)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "BOOKING")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		"Reference: " + b.ID,
		"Status: " + string(b.Status),
		"Customer: " + view.CustomerName,
		"Technician: " + view.TechnicianName,
		"Service: " + truncate(b.Description, 60),
		"Address: " + truncate(b.Address, 60),
		"Requested: " + b.RequestedAt.Format(time.RFC1123),
	}
	if b.CompletedAt != nil {
		lines = append(lines, "Completed: "+b.CompletedAt.Format(time.RFC1123))
	}
	for _, line := range lines {
		pdf.SetX(20)
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	qr, err := qrcode.Encode(r.baseURL+"/api/bookings/"+b.ID, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to encode receipt QR: %w", err)
	}
	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 145, yStart+5, 45, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetXY(15, yStart+80)
	pdf.SetFont("Helvetica", "B", 14)
	amount := 0.0
	if b.PriceQuoted != nil {
		amount = *b.PriceQuoted
	}
	pdf.Cell(0, 10, fmt.Sprintf("Total paid: %.2f %s", amount, r.currency))
	pdf.Ln(10)

	if b.PaymentReference != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, "Payment reference: "+b.PaymentReference)
	}

	pdf.SetY(280)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, "Generated "+time.Now().UTC().Format(time.RFC1123), "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "..."
}
