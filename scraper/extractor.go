package scraper

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
)

// tagRegexp matches the start of any element, comment or doctype.
var tagRegexp = regexp.MustCompile(`<[a-zA-Z!]`)

// ExtractFields applies sm to markup and returns the raw draft. A selector
// that matches nothing leaves its field empty; only markup that is not a
// document at all yields a *MalformedMarkupError.
func ExtractFields(markup string, sm *SelectorMap) (*models.Draft, error) {
	doc, err := parseDocument(markup)
	if err != nil {
		return nil, err
	}

	d := &models.Draft{
		Title:       scalar(doc, sm, FieldTitle),
		Price:       scalar(doc, sm, FieldPrice),
		Description: scalar(doc, sm, FieldDescription),
		Address:     scalar(doc, sm, FieldAddress),
		Bedrooms:    scalar(doc, sm, FieldBedrooms),
		Bathrooms:   scalar(doc, sm, FieldBathrooms),
		Parking:     scalar(doc, sm, FieldParking),
		BuiltArea:   scalar(doc, sm, FieldBuiltArea),
		LandArea:    scalar(doc, sm, FieldLandArea),
		Extras:      list(doc, sm, FieldExtras),
		Images:      list(doc, sm, FieldImages),
	}
	return d, nil
}

func parseDocument(markup string) (*goquery.Document, error) {
	switch {
	case strings.TrimSpace(markup) == "":
		return nil, &MalformedMarkupError{Reason: "empty document"}
	case !utf8.ValidString(markup):
		return nil, &MalformedMarkupError{Reason: "not valid UTF-8"}
	case !tagRegexp.MatchString(markup):
		return nil, &MalformedMarkupError{Reason: "no markup tags found"}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &MalformedMarkupError{Reason: "parsing HTML", Err: err}
	}
	return doc, nil
}

func scalar(doc *goquery.Document, sm *SelectorMap, field string) string {
	rule, ok := sm.Fields[field]
	if !ok {
		return ""
	}
	sel := doc.Find(rule.Selector)
	if sel.Length() == 0 {
		return ""
	}
	if rule.First {
		sel = sel.First()
	}

	var v string
	switch rule.Mode {
	case ModeAttr:
		// Attributes are read from the first element carrying one.
		sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if a, ok := s.Attr(rule.Attr); ok && strings.TrimSpace(a) != "" {
				v = a
				return false
			}
			return true
		})
	case ModeMarkdown:
		v = markdownOf(sel)
	default:
		v = sel.Text()
	}
	return strings.TrimSpace(rule.strip(v))
}

func list(doc *goquery.Document, sm *SelectorMap, field string) []string {
	out := []string{}
	rule, ok := sm.Fields[field]
	if !ok {
		return out
	}

	doc.Find(rule.Selector).Each(func(_ int, s *goquery.Selection) {
		var v string
		if rule.Mode == ModeAttrList {
			v, _ = s.Attr(rule.Attr)
		} else {
			v = s.Text()
		}
		if v = strings.TrimSpace(rule.strip(v)); v != "" {
			out = append(out, v)
		}
	})
	return out
}

// markdownOf converts the inner HTML of every matched element to Markdown,
// falling back to plain text when conversion fails.
func markdownOf(sel *goquery.Selection) string {
	var parts []string
	var convErr error
	sel.Each(func(_ int, s *goquery.Selection) {
		html, err := s.Html()
		if err != nil {
			convErr = errors.Join(convErr, err)
			return
		}
		md, err := htmltomarkdown.ConvertString(html)
		if err != nil {
			convErr = errors.Join(convErr, err)
			return
		}
		if md = strings.TrimSpace(md); md != "" {
			parts = append(parts, md)
		}
	})
	if convErr != nil {
		return sel.Text()
	}
	return strings.Join(parts, "\n\n")
}
