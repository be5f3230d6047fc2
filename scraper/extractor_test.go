package scraper

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const listingYAML = `
host: portal.test
version: "1"
fields:
  title:
    selector: h1.listing-title
    first: true
  price:
    selector: .price-tag
  description:
    selector: .description
    mode: markdown
  address:
    selector: .address
  bedrooms:
    selector: .stat-bed
    first: true
  bathrooms:
    selector: .stat-bath
    first: true
  built_area:
    selector: .stat-built
    first: true
    strip: "(?i)m²|m2"
  land_area:
    selector: meta[name=land]
    mode: attr
    attr: content
  extras:
    selector: .amenities li
  images:
    selector: .gallery img
`

const listingHTML = `<!DOCTYPE html>
<html><body>
  <h1 class="listing-title">  Casa Centro </h1>
  <h1 class="listing-title">Otro</h1>
  <meta name="land" content="300">
  <div class="price-tag">$ 120.000 USD</div>
  <div class="description"><p>Hermosa <strong>casa</strong></p></div>
  <p class="address">Av. Siempre Viva 742</p>
  <span class="stat-bed">3</span><span class="stat-bed">9</span>
  <span class="stat-built">140 m²</span>
  <ul class="amenities"><li>Pileta</li><li>  </li><li>Parrilla</li></ul>
  <div class="gallery">
    <img src="https://img.test/1.jpg">
    <img src="https://img.test/2.jpg">
    <img alt="no source">
    <img src="https://img.test/1.jpg">
  </div>
</body></html>`

func mustSelectorMap(t *testing.T, src string) *SelectorMap {
	t.Helper()
	sm, err := ParseSelectorMap([]byte(src))
	if err != nil {
		t.Fatalf("ParseSelectorMap: %v", err)
	}
	return sm
}

func TestExtractFields(t *testing.T) {
	sm := mustSelectorMap(t, listingYAML)

	d, err := ExtractFields(listingHTML, sm)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}

	checks := []struct {
		field, got, want string
	}{
		{"title", d.Title, "Casa Centro"},
		{"price", d.Price, "$ 120.000 USD"},
		{"address", d.Address, "Av. Siempre Viva 742"},
		{"bedrooms", d.Bedrooms, "3"},
		{"bathrooms", d.Bathrooms, ""},
		{"parking", d.Parking, ""},
		{"built_area", d.BuiltArea, "140"},
		{"land_area", d.LandArea, "300"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %q, want %q", c.field, c.got, c.want)
		}
	}

	if !strings.Contains(d.Description, "**casa**") {
		t.Errorf("description should be markdown, got %q", d.Description)
	}
	if !reflect.DeepEqual(d.Extras, []string{"Pileta", "Parrilla"}) {
		t.Errorf("extras: got %v", d.Extras)
	}
	wantImages := []string{"https://img.test/1.jpg", "https://img.test/2.jpg", "https://img.test/1.jpg"}
	if !reflect.DeepEqual(d.Images, wantImages) {
		t.Errorf("images: got %v, want %v", d.Images, wantImages)
	}
}

func TestExtractFieldsNoMatches(t *testing.T) {
	sm := mustSelectorMap(t, listingYAML)

	d, err := ExtractFields("<html><body><p>nothing here</p></body></html>", sm)
	if err != nil {
		t.Fatalf("missing fields must not fail: %v", err)
	}
	if d.Title != "" || d.Price != "" || d.Bedrooms != "" {
		t.Errorf("expected empty scalars, got %+v", d)
	}
	if d.Extras == nil || len(d.Extras) != 0 || d.Images == nil || len(d.Images) != 0 {
		t.Errorf("expected empty non-nil lists, got extras=%v images=%v", d.Extras, d.Images)
	}
}

func TestExtractFieldsTextConcatenatesWithoutFirst(t *testing.T) {
	sm := mustSelectorMap(t, `
host: x.test
version: "1"
fields:
  address:
    selector: .addr
`)
	d, err := ExtractFields(`<div><span class="addr">Calle 1</span><span class="addr">, Centro</span></div>`, sm)
	if err != nil {
		t.Fatal(err)
	}
	if d.Address != "Calle 1, Centro" {
		t.Errorf("address: got %q", d.Address)
	}
}

func TestExtractFieldsMalformed(t *testing.T) {
	sm := mustSelectorMap(t, listingYAML)

	inputs := map[string]string{
		"empty":        "",
		"whitespace":   "   \n\t ",
		"plain text":   "Service Unavailable",
		"json":         `{"error":"blocked"}`,
		"invalid utf8": "<html>\xff\xfe</html>",
	}
	for name, markup := range inputs {
		_, err := ExtractFields(markup, sm)
		var malformed *MalformedMarkupError
		if !errors.As(err, &malformed) {
			t.Errorf("%s: expected MalformedMarkupError, got %v", name, err)
		}
	}
}

func TestExtractFieldsDeterministic(t *testing.T) {
	sm := mustSelectorMap(t, listingYAML)

	first, err := ExtractFields(listingHTML, sm)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := ExtractFields(listingHTML, sm)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}
