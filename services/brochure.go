package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
)

const (
	defaultPrimaryColor = "#0F766E"
	brochureGalleryMax  = 3
)

var (
	hexColorRegexp   = regexp.MustCompile(`^#?([0-9a-fA-F]{6})$`)
	mdLinkRegexp     = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
	mdCodeRegexp     = regexp.MustCompile("`([^`]+)`")
	mdHeadingRegexp  = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	mdListItemRegexp = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
)

// BrochureRenderer turns a saved property into a one-document PDF brochure.
type BrochureRenderer struct {
	format *Formatter
}

func NewBrochureRenderer(format *Formatter) *BrochureRenderer {
	return &BrochureRenderer{format: format}
}

// Render returns the PDF bytes for p branded with b.
func (r *BrochureRenderer) Render(p *models.Property, b models.BrandingProfile) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(p.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	red, green, blue := parseHexColor(orDefault(b.PrimaryColor, defaultPrimaryColor))
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()

	// Header band.
	pdf.SetFillColor(red, green, blue)
	pdf.Rect(0, 0, pageW, 34, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(left, 8)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 9, tr(orDefault(b.HeaderTitle, "Ficha de propiedad")), "", 1, "L", false, 0, "")
	if b.HeaderSubtitle != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, tr(b.HeaderSubtitle), "", 1, "L", false, 0, "")
	}
	pdf.SetY(42)

	// Title, price, address.
	pdf.SetTextColor(15, 23, 42)
	pdf.SetFont("Helvetica", "B", 17)
	pdf.MultiCell(0, 8, tr(p.Title), "", "L", false)
	pdf.SetTextColor(red, green, blue)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, tr(r.format.Price(p.Price, p.Currency)), "", "L", false)
	pdf.SetTextColor(31, 41, 55)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(orDefault(p.Address, "Dirección no disponible")), "", "L", false)
	pdf.Ln(4)

	// Feature grid, two columns.
	section(pdf, tr, "Características")
	colW := (pageW - left - right) / 2
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetFillColor(241, 245, 249)
	for i, f := range r.format.Features(p.Bedrooms, p.Bathrooms, p.Parking, p.BuiltArea, p.LandArea) {
		ln := 0
		if i%2 == 1 {
			ln = 1
		}
		pdf.CellFormat(colW-2, 8, tr(f.Label+": "+f.Value), "", ln, "L", true, 0, "")
		if ln == 0 {
			pdf.CellFormat(2, 8, "", "", 0, "L", false, 0, "")
		} else {
			pdf.Ln(2)
		}
	}
	pdf.Ln(10)

	if len(p.Extras) > 0 {
		section(pdf, tr, "Extras / amenities")
		pdf.SetFont("Helvetica", "", 10)
		for _, e := range p.Extras {
			pdf.MultiCell(0, 5, tr("• "+e), "", "L", false)
		}
		pdf.Ln(3)
	}

	section(pdf, tr, "Descripción")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(orDefault(plainText(p.Description), "Sin descripción")), "", "L", false)
	pdf.Ln(3)

	section(pdf, tr, "Galería (vista previa)")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(107, 114, 128)
	for i, img := range p.Images {
		if i == brochureGalleryMax {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("+ %d imágenes adicionales", len(p.Images)-brochureGalleryMax)), "", "L", false)
			break
		}
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Imagen %d: %s", i+1, img.URL)), "", "L", false)
	}
	if len(p.Images) == 0 {
		pdf.MultiCell(0, 5, tr("Sin imágenes"), "", "L", false)
	}
	pdf.Ln(6)

	// Agent footer.
	pdf.SetTextColor(15, 23, 42)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.MultiCell(0, 5, tr(strings.Trim(b.AgentName+" - "+b.AgentRole, " -")), "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(71, 85, 105)
	for _, line := range agentLines(b) {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("brochure: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetTextColor(15, 23, 42)
	pdf.SetFont("Helvetica", "BU", 12)
	pdf.CellFormat(0, 7, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(31, 41, 55)
}

func agentLines(b models.BrandingProfile) []string {
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	add("Teléfono", b.AgentPhone)
	add("WhatsApp", b.AgentWhatsapp)
	add("Email", b.AgentEmail)
	add("Web", b.AgentWebsite)
	return lines
}

// parseHexColor reads "#RRGGBB"; anything else gives the default colour.
func parseHexColor(s string) (int, int, int) {
	m := hexColorRegexp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		m = hexColorRegexp.FindStringSubmatch(defaultPrimaryColor)
	}
	v, _ := strconv.ParseUint(m[1], 16, 32)
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}

// plainText strips the Markdown a description may carry.
func plainText(md string) string {
	md = strings.ReplaceAll(md, "**", "")
	md = strings.ReplaceAll(md, "__", "")
	md = mdLinkRegexp.ReplaceAllString(md, "$1")
	md = mdCodeRegexp.ReplaceAllString(md, "$1")
	md = mdHeadingRegexp.ReplaceAllString(md, "")
	md = mdListItemRegexp.ReplaceAllString(md, "• ")
	return strings.TrimSpace(md)
}
