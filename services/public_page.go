package services

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Messages shown on the expired page.
const (
	ExpiredTitle    = "Enlace expirado"
	ExpiredMessage  = "Este enlace ha expirado. Contacta con tu agente para solicitar un nuevo link."
	NotFoundTitle   = "Enlace no encontrado"
	NotFoundMessage = "El enlace que buscas no existe."
)

// PublicPageRenderer renders the shareable HTML page of a property.
type PublicPageRenderer struct {
	format  *Formatter
	page    *template.Template
	expired *template.Template
}

func NewPublicPageRenderer(format *Formatter) (*PublicPageRenderer, error) {
	page, err := template.ParseFS(templateFS, "templates/public.html")
	if err != nil {
		return nil, fmt.Errorf("public page: parse template: %w", err)
	}
	expired, err := template.ParseFS(templateFS, "templates/expired.html")
	if err != nil {
		return nil, fmt.Errorf("public page: parse expired template: %w", err)
	}
	return &PublicPageRenderer{format: format, page: page, expired: expired}, nil
}

type publicPageData struct {
	Property    *models.Property
	Branding    models.BrandingProfile
	Primary     template.CSS
	HeaderTitle string
	Price       string
	Address     string
	Description string
	Features    []Feature
	Footer      []string
}

// Render writes the page for p branded with b.
func (r *PublicPageRenderer) Render(w io.Writer, p *models.Property, b models.BrandingProfile) error {
	red, green, blue := parseHexColor(orDefault(b.PrimaryColor, defaultPrimaryColor))

	var footer []string
	if who := strings.Trim(b.AgentName+" · "+b.AgentRole, " ·"); who != "" {
		footer = append(footer, who)
	}
	footer = append(footer, agentLines(b)...)

	data := publicPageData{
		Property:    p,
		Branding:    b,
		Primary:     template.CSS(fmt.Sprintf("#%02x%02x%02x", red, green, blue)),
		HeaderTitle: orDefault(b.HeaderTitle, "Ficha de propiedad"),
		Price:       r.format.Price(p.Price, p.Currency),
		Address:     orDefault(p.Address, "Dirección no disponible"),
		Description: orDefault(plainText(p.Description), "Sin descripción"),
		Features:    r.format.Features(p.Bedrooms, p.Bathrooms, p.Parking, p.BuiltArea, p.LandArea),
		Footer:      footer,
	}
	if err := r.page.Execute(w, data); err != nil {
		return fmt.Errorf("public page: render: %w", err)
	}
	return nil
}

// RenderExpired writes the page shown for unknown or expired links.
func (r *PublicPageRenderer) RenderExpired(w io.Writer, title, message string) error {
	data := struct{ Title, Message string }{title, message}
	if err := r.expired.Execute(w, data); err != nil {
		return fmt.Errorf("public page: render expired: %w", err)
	}
	return nil
}
