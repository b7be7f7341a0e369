package enrollment

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogData []byte

// CourseEntry maps an enrollment course code to its display name.
type CourseEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// LocationEntry maps a campus code to its facility address.
type LocationEntry struct {
	Code    string `yaml:"code"`
	Address string `yaml:"address"`
}

// Catalog holds the ordered course and location tables. Courses are matched
// by case-insensitive substring in list order, so entry order is part of the
// catalog's contract; locations are matched exactly.
type Catalog struct {
	Courses   []CourseEntry   `yaml:"courses"`
	Locations []LocationEntry `yaml:"locations"`
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
	defaultCatalogErr  error
)

// DefaultCatalog parses the embedded catalog. The result is shared across
// callers and must not be mutated.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseCatalog(catalogData)
	})
	return defaultCatalog, defaultCatalogErr
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate rejects empty tables and duplicate codes.
func (c *Catalog) Validate() error {
	if len(c.Courses) == 0 {
		return fmt.Errorf("catalog has no courses")
	}
	seen := make(map[string]struct{}, len(c.Courses))
	for _, entry := range c.Courses {
		code := strings.ToLower(strings.TrimSpace(entry.Code))
		if code == "" || strings.TrimSpace(entry.Name) == "" {
			return fmt.Errorf("course entry %q has empty code or name", entry.Code)
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("duplicate course code %q", entry.Code)
		}
		seen[code] = struct{}{}
	}
	locations := make(map[string]struct{}, len(c.Locations))
	for _, entry := range c.Locations {
		code := strings.ToLower(strings.TrimSpace(entry.Code))
		if code == "" || strings.TrimSpace(entry.Address) == "" {
			return fmt.Errorf("location entry %q has empty code or address", entry.Code)
		}
		if _, dup := locations[code]; dup {
			return fmt.Errorf("duplicate location code %q", entry.Code)
		}
		locations[code] = struct{}{}
	}
	return nil
}

// CourseName resolves a raw course code to a display name. Matching is
// case-insensitive substring in list order; the first entry whose code
// appears in the raw value wins.
func (c *Catalog) CourseName(rawCode string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(rawCode))
	if needle == "" {
		return "", false
	}
	for _, entry := range c.Courses {
		if strings.Contains(needle, strings.ToLower(entry.Code)) {
			return entry.Name, true
		}
	}
	return "", false
}

// LocationAddress resolves a raw location code to a facility address by
// exact (case-insensitive, trimmed) match.
func (c *Catalog) LocationAddress(rawCode string) (string, bool) {
	needle := strings.TrimSpace(rawCode)
	if needle == "" {
		return "", false
	}
	for _, entry := range c.Locations {
		if strings.EqualFold(entry.Code, needle) {
			return entry.Address, true
		}
	}
	return "", false
}
