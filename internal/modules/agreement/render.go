package agreement

import (
	"bytes"
	"fmt"
	"time"

	"pgstay/internal/domain"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// RenderInput is everything that ends up on paper.
type RenderInput struct {
	Snapshot       domain.AgreementSnapshot
	Final          bool
	OwnerSignedAt  *time.Time
	TenantSignedAt *time.Time
	IssuedAt       time.Time
	LookupURL      string
}

type Renderer interface {
	Render(in RenderInput) ([]byte, error)
}

type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

func (PDFRenderer) Render(in RenderInput) ([]byte, error) {
	s := in.Snapshot

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(in.IssuedAt)
	pdf.SetModificationDate(in.IssuedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Rental Agreement "+s.AgreementNumber, true)
	pdf.SetAuthor("pgstay", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	title := "RENTAL AGREEMENT"
	if !in.Final {
		title += " (DRAFT)"
	}
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Agreement No: %s    Verification Code: %s", s.AgreementNumber, s.VerificationCode), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section := func(name string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, name, "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.Ln(1)
	}
	row := func(label, value string) {
		pdf.CellFormat(55, 6, label, "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 6, tr(value), "", "L", false)
	}

	section("Parties")
	row("Owner", s.OwnerName)
	if s.OwnerPhone != "" {
		row("Owner phone", s.OwnerPhone)
	}
	row("Tenant", s.TenantName)
	if s.TenantPhone != "" {
		row("Tenant phone", s.TenantPhone)
	}
	pdf.Ln(2)

	section("Premises")
	row("Property", s.PropertyName)
	row("Address", joinNonEmpty(s.PropertyAddress, s.PropertyCity))
	row("Room type", s.RoomType)
	if s.UnitRef != "" {
		row("Room no", s.UnitRef)
	}
	pdf.Ln(2)

	section("Terms")
	row("Monthly rent", money(s.Currency, s.RentAmount))
	row("Security deposit", money(s.Currency, s.DepositAmount))
	row("Maintenance", money(s.Currency, s.MaintenanceAmount))
	row("Move-in date", s.MoveInDate.Format("02 Jan 2006"))
	row("Duration", fmt.Sprintf("%d months", s.DurationMonths))
	row("Valid until", s.ExpiresAt.Format("02 Jan 2006"))
	pdf.Ln(2)

	pdf.MultiCell(0, 5, tr("The tenant agrees to pay the monthly rent and maintenance on time, keep the "+
		"premises in good condition and give notice before vacating. The security deposit is "+
		"refundable at the end of the tenancy after adjusting any dues."), "", "J", false)
	pdf.Ln(3)

	section("Signatures")
	row("Owner", signatureLine(in.OwnerSignedAt))
	row("Tenant", signatureLine(in.TenantSignedAt))
	pdf.Ln(4)

	if in.LookupURL != "" {
		png, err := qrcode.Encode(in.LookupURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("qr code: %w", err)
		}
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(png))
		y := pdf.GetY()
		pdf.ImageOptions("verify-qr", 15, y, 30, 30, false, opts, 0, "")
		pdf.SetXY(50, y+8)
		pdf.MultiCell(0, 5, "Scan to verify this agreement or visit:\n"+in.LookupURL, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render agreement pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func signatureLine(at *time.Time) string {
	if at == nil {
		return "pending"
	}
	return "e-signed on " + at.UTC().Format("02 Jan 2006 15:04 MST")
}

func money(currency string, v float64) string {
	return fmt.Sprintf("%s %.2f", currency, v)
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += p
	}
	return out
}
