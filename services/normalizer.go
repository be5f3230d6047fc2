package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

var (
	// priceCharsRegexp matches everything that cannot be part of a number.
	priceCharsRegexp = regexp.MustCompile(`[^0-9.,]`)
	// currencyRegexp captures an ISO-like currency code; the first run wins.
	currencyRegexp = regexp.MustCompile(`[A-Z]{2,3}`)
	// nonDigitRegexp strips everything but ASCII digits from counters.
	nonDigitRegexp = regexp.MustCompile(`[^0-9]`)
)

// ParsePrice turns a locale-formatted price fragment into a number.
//
// Only digits, '.' and ',' are kept. A trailing ",dd" preceded by another
// separator marks a decimal comma ("1.234,56" is 1234.56). Everything else
// reads '.' as grouping and ',' as decimal, which is how the supported
// portals format prices ("120.000" is 120000, "99,5" is 99.5). That rule
// misreads other locales: "1,234.56" becomes 1.23456, "99.99" becomes 9999
// and "1,000,000" is rejected. Nil means the fragment had no usable number.
func ParsePrice(raw string) *float64 {
	return parseDecimal(priceCharsRegexp.ReplaceAllString(raw, ""))
}

// ParseCurrency returns the first run of 2-3 uppercase ASCII letters in raw.
// It is independent of ParsePrice: either may be nil without the other.
func ParseCurrency(raw string) *string {
	match := currencyRegexp.FindString(raw)
	if match == "" {
		return nil
	}
	return &match
}

// ParseCount keeps the digits of raw and parses them as an integer.
// "3 dorm." is 3; "N/D" and "" are nil, never zero.
func ParseCount(raw string) *int {
	digits := nonDigitRegexp.ReplaceAllString(raw, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// ParseArea parses a surface in square meters. The unit suffix is removed
// by the selector stage; decimals follow the same rules as ParsePrice.
func ParseArea(raw string) *float64 {
	return parseDecimal(priceCharsRegexp.ReplaceAllString(raw, ""))
}

func parseDecimal(cleaned string) *float64 {
	if !strings.ContainsAny(cleaned, "0123456789") {
		return nil
	}

	var canonical string
	if i := strings.LastIndexAny(cleaned, ".,"); i >= 0 && hasDecimalCommaTail(cleaned, i) {
		grouping := strings.NewReplacer(".", "", ",", "").Replace(cleaned[:i])
		canonical = grouping + "." + cleaned[i+1:]
	} else {
		canonical = strings.ReplaceAll(strings.ReplaceAll(cleaned, ".", ""), ",", ".")
	}

	v, err := strconv.ParseFloat(canonical, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}

// hasDecimalCommaTail reports whether the separator at i is a comma
// followed by exactly two digits and preceded by another separator.
func hasDecimalCommaTail(s string, i int) bool {
	if s[i] != ',' {
		return false
	}
	tail := s[i+1:]
	if len(tail) != 2 || !isDigit(tail[0]) || !isDigit(tail[1]) {
		return false
	}
	return strings.ContainsAny(s[:i], ".,")
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

// Normalizer turns draft records into typed payloads.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize coerces every draft field. It never fails: a value that cannot
// be parsed is left nil and logged at debug level.
func (n *Normalizer) Normalize(d *models.Draft) *models.ExtractedPayload {
	title := NormaliseText(d.Title)
	if title == "" {
		title = models.TitlePlaceholder
	}

	p := &models.ExtractedPayload{
		Title:       title,
		Description: strings.TrimSpace(d.Description),
		Price:       ParsePrice(d.Price),
		Currency:    ParseCurrency(d.Price),
		Address:     NormaliseText(d.Address),
		Bedrooms:    ParseCount(d.Bedrooms),
		Bathrooms:   ParseCount(d.Bathrooms),
		Parking:     ParseCount(d.Parking),
		BuiltArea:   ParseArea(d.BuiltArea),
		LandArea:    ParseArea(d.LandArea),
		Extras:      make([]string, 0, len(d.Extras)),
		Images:      make([]string, 0, len(d.Images)),
	}

	for _, e := range d.Extras {
		if e = NormaliseText(e); e != "" {
			p.Extras = append(p.Extras, e)
		}
	}
	p.Images = append(p.Images, d.Images...)

	n.logDropped("price", d.Price, p.Price == nil)
	n.logDropped("bedrooms", d.Bedrooms, p.Bedrooms == nil)
	n.logDropped("bathrooms", d.Bathrooms, p.Bathrooms == nil)
	n.logDropped("parking", d.Parking, p.Parking == nil)
	n.logDropped("built_area", d.BuiltArea, p.BuiltArea == nil)
	n.logDropped("land_area", d.LandArea, p.LandArea == nil)

	return p
}

func (n *Normalizer) logDropped(field, raw string, absent bool) {
	if absent && strings.TrimSpace(raw) != "" {
		n.logger.Debug("field left absent", "field", field, "raw", raw)
	}
}
