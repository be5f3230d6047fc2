package services

import (
	"reflect"
	"testing"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		absent bool
	}{
		{raw: "1.234,56 USD", want: 1234.56},
		{raw: "$ 120.000 USD", want: 120000},
		{raw: "1,234.56", want: 1.23456},
		{raw: "12.345,67 ARS", want: 12345.67},
		{raw: "€ 350.000", want: 350000},
		{raw: "99,5", want: 99.5},
		{raw: "2,50", want: 2.5},
		{raw: "ARS 1.500.000", want: 1500000},
		{raw: "150", want: 150},
		{raw: "1.234", want: 1234},
		{raw: "", absent: true},
		{raw: "Consultar", absent: true},
		{raw: "N/D", absent: true},
		{raw: "1,000,000", absent: true},
	}

	for _, tt := range tests {
		got := ParsePrice(tt.raw)
		if tt.absent {
			if got != nil {
				t.Errorf("ParsePrice(%q) = %v; want absent", tt.raw, *got)
			}
			continue
		}
		if got == nil {
			t.Errorf("ParsePrice(%q) = absent; want %.2f", tt.raw, tt.want)
			continue
		}
		if *got != tt.want {
			t.Errorf("ParsePrice(%q) = %.2f; want %.2f", tt.raw, *got, tt.want)
		}
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"1.234,56 USD", "USD"},
		{"$ 120.000 USD", "USD"},
		{"USD EUR 100", "USD"},
		{"ARS 1.500.000", "ARS"},
		{"UF 3.200", "UF"},
		{"$ 120.000", ""},
		{"R$ 500", ""},
		{"", ""},
	}

	for _, tt := range tests {
		got := ParseCurrency(tt.raw)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("ParseCurrency(%q) = %q; want absent", tt.raw, *got)
		case tt.want != "" && got == nil:
			t.Errorf("ParseCurrency(%q) = absent; want %q", tt.raw, tt.want)
		case tt.want != "" && *got != tt.want:
			t.Errorf("ParseCurrency(%q) = %q; want %q", tt.raw, *got, tt.want)
		}
	}
}

func TestPriceWithoutCurrencyStillParses(t *testing.T) {
	raw := "$ 85.000"
	if ParseCurrency(raw) != nil {
		t.Error("currency should be absent")
	}
	if p := ParsePrice(raw); p == nil || *p != 85000 {
		t.Errorf("price should still parse, got %v", p)
	}
}

func TestCurrencyWithoutPriceStillParses(t *testing.T) {
	raw := "USD - consultar"
	if ParsePrice(raw) != nil {
		t.Error("price should be absent")
	}
	if c := ParseCurrency(raw); c == nil || *c != "USD" {
		t.Errorf("currency should still parse, got %v", c)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		absent bool
	}{
		{raw: "3", want: 3},
		{raw: "3 dormitorios", want: 3},
		{raw: " 2 baños ", want: 2},
		{raw: "0", want: 0},
		{raw: "N/D", absent: true},
		{raw: "", absent: true},
		{raw: "sin cochera", absent: true},
		{raw: "99999999999999999999999", absent: true},
	}

	for _, tt := range tests {
		got := ParseCount(tt.raw)
		if tt.absent {
			if got != nil {
				t.Errorf("ParseCount(%q) = %d; want absent", tt.raw, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("ParseCount(%q) = %v; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		absent bool
	}{
		{raw: "120", want: 120},
		{raw: "120,5", want: 120.5},
		{raw: "1.200", want: 1200},
		{raw: "1.250,75", want: 1250.75},
		{raw: "N/D", absent: true},
		{raw: "", absent: true},
	}

	for _, tt := range tests {
		got := ParseArea(tt.raw)
		if tt.absent {
			if got != nil {
				t.Errorf("ParseArea(%q) = %v; want absent", tt.raw, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("ParseArea(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNormaliseText(t *testing.T) {
	if got := NormaliseText("  Casa \n\t Centro  "); got != "Casa Centro" {
		t.Errorf("NormaliseText: got %q", got)
	}
}

func TestNormalizeDraft(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	d := &models.Draft{
		Title:     "  Casa   Centro ",
		Price:     "$ 120.000 USD",
		Address:   " Av. Siempre Viva 742 ",
		Bedrooms:  "3",
		Bathrooms: "",
		Parking:   "N/D",
		BuiltArea: "140,5",
		Extras:    []string{"Pileta", "  ", "Parrilla"},
		Images:    []string{"a.jpg", "b.jpg", "a.jpg"},
	}

	p := n.Normalize(d)

	if p.Title != "Casa Centro" {
		t.Errorf("Title: got %q", p.Title)
	}
	if p.Price == nil || *p.Price != 120000 {
		t.Errorf("Price: got %v", p.Price)
	}
	if p.Currency == nil || *p.Currency != "USD" {
		t.Errorf("Currency: got %v", p.Currency)
	}
	if p.Bedrooms == nil || *p.Bedrooms != 3 {
		t.Errorf("Bedrooms: got %v", p.Bedrooms)
	}
	if p.Bathrooms != nil || p.Parking != nil {
		t.Errorf("Bathrooms/Parking should be absent, got %v / %v", p.Bathrooms, p.Parking)
	}
	if p.BuiltArea == nil || *p.BuiltArea != 140.5 {
		t.Errorf("BuiltArea: got %v", p.BuiltArea)
	}
	if p.LandArea != nil {
		t.Errorf("LandArea should be absent, got %v", *p.LandArea)
	}
	if !reflect.DeepEqual(p.Extras, []string{"Pileta", "Parrilla"}) {
		t.Errorf("Extras: got %v", p.Extras)
	}
	if !reflect.DeepEqual(p.Images, []string{"a.jpg", "b.jpg", "a.jpg"}) {
		t.Errorf("Images must keep order and duplicates, got %v", p.Images)
	}
}

func TestNormalizeEmptyDraft(t *testing.T) {
	p := NewNormalizer(newTestLogger()).Normalize(&models.Draft{})

	if p.Title != "Título no encontrado" {
		t.Errorf("Title: got %q, want the Spanish placeholder", p.Title)
	}
	if p.Extras == nil || p.Images == nil {
		t.Error("Extras and Images must be empty slices, not nil")
	}
	if p.Price != nil || p.Currency != nil || p.Bedrooms != nil {
		t.Error("optional fields must be absent for an empty draft")
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	d := &models.Draft{Title: "Depto", Price: "1.234,56 USD", Bedrooms: "2", Images: []string{"x", "y"}}

	first := n.Normalize(d)
	for i := 0; i < 5; i++ {
		if again := n.Normalize(d); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}
