package storage

import (
	"time"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
)

// DemoUserID owns everything created without authentication.
const DemoUserID = "demo-user"

// defaultBrandingProfile is the profile every new store starts with.
func defaultBrandingProfile(id string, now time.Time) models.BrandingProfile {
	return models.BrandingProfile{
		ID:             id,
		UserID:         DemoUserID,
		Name:           "Perfil principal",
		HeaderTitle:    "Mi Inmobiliaria",
		HeaderSubtitle: "Tu próximo hogar, hoy",
		PrimaryColor:   "#0F766E",
		LogoURL:        "https://dummyimage.com/140x60/0f766e/ffffff&text=Logo",
		AgentName:      "Agente Demo",
		AgentRole:      "Broker Owner",
		AgentPhone:     "+34 600 000 000",
		AgentWhatsapp:  "https://wa.me/34600000000",
		AgentEmail:     "demo@example.com",
		AgentWebsite:   "https://mi-inmobiliaria.example",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
