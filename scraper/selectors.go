package scraper

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed portals/*.yaml
var embeddedPortals embed.FS

// RenderMode selects how a portal's pages are fetched.
type RenderMode string

const (
	RenderBrowser RenderMode = "browser"
	RenderStatic  RenderMode = "static"
)

// FieldMode selects what a rule reads from the matched elements.
type FieldMode string

const (
	ModeText     FieldMode = "text"
	ModeAttr     FieldMode = "attr"
	ModeTextList FieldMode = "text_list"
	ModeAttrList FieldMode = "attr_list"
	ModeMarkdown FieldMode = "markdown"
)

func (m FieldMode) isList() bool { return m == ModeTextList || m == ModeAttrList }

// Logical field names a selector map may define.
const (
	FieldTitle       = "title"
	FieldPrice       = "price"
	FieldDescription = "description"
	FieldAddress     = "address"
	FieldBedrooms    = "bedrooms"
	FieldBathrooms   = "bathrooms"
	FieldParking     = "parking"
	FieldBuiltArea   = "built_area"
	FieldLandArea    = "land_area"
	FieldExtras      = "extras"
	FieldImages      = "images"
)

var listFields = map[string]bool{FieldExtras: true, FieldImages: true}

var knownFields = map[string]bool{
	FieldTitle: true, FieldPrice: true, FieldDescription: true, FieldAddress: true,
	FieldBedrooms: true, FieldBathrooms: true, FieldParking: true,
	FieldBuiltArea: true, FieldLandArea: true, FieldExtras: true, FieldImages: true,
}

// FieldRule says where one logical field lives in the page.
type FieldRule struct {
	Selector string    `yaml:"selector"`
	Mode     FieldMode `yaml:"mode"`
	Attr     string    `yaml:"attr,omitempty"`
	// First restricts a scalar rule to the first matching element.
	First bool `yaml:"first,omitempty"`
	// Strip is a regexp removed from every extracted value, e.g. a unit.
	Strip string `yaml:"strip,omitempty"`

	stripRe *regexp.Regexp
}

// SelectorMap is the versioned extraction configuration of one portal.
type SelectorMap struct {
	Host    string               `yaml:"host"`
	Version string               `yaml:"version"`
	Render  RenderMode           `yaml:"render"`
	Fields  map[string]FieldRule `yaml:"fields"`

	// Source is the file the map was loaded from.
	Source string `yaml:"-"`
}

// ParseSelectorMap decodes and validates one YAML selector map.
// Unknown keys are rejected so typos surface at startup.
func ParseSelectorMap(data []byte) (*SelectorMap, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sm SelectorMap
	if err := dec.Decode(&sm); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := sm.validate(); err != nil {
		return nil, err
	}
	return &sm, nil
}

func (sm *SelectorMap) validate() error {
	var errs []error

	sm.Host = strings.TrimSpace(sm.Host)
	if sm.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if strings.TrimSpace(sm.Version) == "" {
		errs = append(errs, errors.New("version is required"))
	}
	switch sm.Render {
	case "":
		sm.Render = RenderBrowser
	case RenderBrowser, RenderStatic:
	default:
		errs = append(errs, fmt.Errorf("render must be %q or %q, got %q", RenderBrowser, RenderStatic, sm.Render))
	}
	if len(sm.Fields) == 0 {
		errs = append(errs, errors.New("at least one field is required"))
	}

	for name, rule := range sm.Fields {
		if !knownFields[name] {
			errs = append(errs, fmt.Errorf("field %q: unknown field", name))
			continue
		}
		if err := rule.normalize(name); err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", name, err))
			continue
		}
		sm.Fields[name] = rule
	}

	if len(errs) > 0 {
		return fmt.Errorf("selector map %q: %w", sm.Host, errors.Join(errs...))
	}
	return nil
}

// normalize fills defaults for field and checks the rule is consistent.
func (r *FieldRule) normalize(field string) error {
	if strings.TrimSpace(r.Selector) == "" {
		return errors.New("selector is required")
	}

	if r.Mode == "" {
		switch field {
		case FieldImages:
			r.Mode = ModeAttrList
			if r.Attr == "" {
				r.Attr = "src"
			}
		case FieldExtras:
			r.Mode = ModeTextList
		default:
			r.Mode = ModeText
		}
	}

	switch r.Mode {
	case ModeText, ModeMarkdown, ModeTextList:
		if r.Attr != "" {
			return fmt.Errorf("attr is only valid with %q or %q", ModeAttr, ModeAttrList)
		}
	case ModeAttr, ModeAttrList:
		if r.Attr == "" {
			return fmt.Errorf("mode %q needs attr", r.Mode)
		}
	default:
		return fmt.Errorf("unknown mode %q", r.Mode)
	}

	if listFields[field] != r.Mode.isList() {
		if listFields[field] {
			return fmt.Errorf("list field needs %q or %q", ModeTextList, ModeAttrList)
		}
		return fmt.Errorf("scalar field cannot use %q", r.Mode)
	}

	if r.Strip != "" {
		re, err := regexp.Compile(r.Strip)
		if err != nil {
			return fmt.Errorf("strip: %w", err)
		}
		r.stripRe = re
	}
	return nil
}

// strip applies the rule's Strip pattern to v.
func (r FieldRule) strip(v string) string {
	if r.stripRe == nil {
		return v
	}
	return r.stripRe.ReplaceAllString(v, "")
}

// LoadSelectorMaps returns the built-in portal maps plus any *.yaml/*.yml
// files in dir. A map from dir replaces a built-in one for the same host.
// The result is sorted by host.
func LoadSelectorMaps(dir string) ([]*SelectorMap, error) {
	byHost := make(map[string]*SelectorMap)

	builtin, err := loadFS(embeddedPortals, "portals")
	if err != nil {
		return nil, err
	}
	for _, sm := range builtin {
		byHost[sm.Host] = sm
	}

	if dir != "" {
		extra, err := loadFS(os.DirFS(dir), ".")
		if err != nil {
			return nil, fmt.Errorf("selectors dir %s: %w", dir, err)
		}
		for _, sm := range extra {
			sm.Source = filepath.Join(dir, sm.Source)
			byHost[sm.Host] = sm
		}
	}

	maps := make([]*SelectorMap, 0, len(byHost))
	for _, sm := range byHost {
		maps = append(maps, sm)
	}
	sort.Slice(maps, func(i, j int) bool { return maps[i].Host < maps[j].Host })
	return maps, nil
}

func loadFS(fsys fs.FS, root string) ([]*SelectorMap, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read selector maps: %w", err)
	}

	seen := make(map[string]string)
	var maps []*SelectorMap
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		data, err := fs.ReadFile(fsys, fsPath(root, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		sm, err := ParseSelectorMap(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, dup := seen[sm.Host]; dup {
			return nil, fmt.Errorf("%s: host %q already defined in %s", name, sm.Host, prev)
		}
		seen[sm.Host] = name
		sm.Source = name
		maps = append(maps, sm)
	}
	return maps, nil
}

func fsPath(root, name string) string {
	if root == "." {
		return name
	}
	return root + "/" + name
}
