package services

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// missingValue is shown for absent optional fields.
const missingValue = "-"

// Formatter renders payload values for people, using locale grouping.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter creates a Formatter for the given BCP 47 tag. Unknown tags
// fall back to Spanish, the language of the supported portals.
func NewFormatter(tag string) *Formatter {
	lang, err := language.Parse(tag)
	if err != nil || tag == "" {
		lang = language.Spanish
	}
	return &Formatter{printer: message.NewPrinter(lang)}
}

// Price renders "120.000 USD"; a missing currency is omitted.
func (f *Formatter) Price(price *float64, currency *string) string {
	if price == nil {
		return missingValue
	}
	s := f.printer.Sprint(number.Decimal(*price, number.MaxFractionDigits(2)))
	if currency != nil && *currency != "" {
		s += " " + *currency
	}
	return s
}

// Area renders a surface in square meters.
func (f *Formatter) Area(v *float64) string {
	if v == nil {
		return missingValue
	}
	return f.printer.Sprint(number.Decimal(*v, number.MaxFractionDigits(2))) + " m²"
}

// Count renders an optional counter.
func (f *Formatter) Count(v *int) string {
	if v == nil {
		return missingValue
	}
	return strconv.Itoa(*v)
}

// Feature is one labelled fact shown on brochures and public pages.
type Feature struct {
	Label string
	Value string
}

// Features lists the key facts of a property in display order.
func (f *Formatter) Features(bedrooms, bathrooms, parking *int, built, land *float64) []Feature {
	return []Feature{
		{"Dormitorios", f.Count(bedrooms)},
		{"Baños", f.Count(bathrooms)},
		{"Cocheras", f.Count(parking)},
		{"Sup. cubierta", f.Area(built)},
		{"Sup. terreno", f.Area(land)},
	}
}

// orDefault returns fallback when s is blank.
func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
