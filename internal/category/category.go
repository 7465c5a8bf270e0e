// Package category maps the category labels clients send to the numeric codes
// stored on posts and series.
package category

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Newsletter is the code a post must carry to be dispatched as a newsletter.
// Posts saved without a label also get this code.
const Newsletter = 0

//go:embed categories.yaml
var catalogYAML []byte

type entry struct {
	Code  int    `yaml:"code"`
	Label string `yaml:"label"`
}

type Catalog struct {
	byLabel map[string]int
	byCode  map[int]string
}

var defaultCatalog = mustParse(catalogYAML)

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a catalog document. Codes and labels must both be unique.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Categories []entry `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("category: parse catalog: %w", err)
	}
	c := &Catalog{byLabel: map[string]int{}, byCode: map[int]string{}}
	for _, e := range doc.Categories {
		label := strings.ToLower(strings.TrimSpace(e.Label))
		if label == "" {
			return nil, fmt.Errorf("category: code %d has no label", e.Code)
		}
		if _, ok := c.byLabel[label]; ok {
			return nil, fmt.Errorf("category: duplicate label %q", label)
		}
		if _, ok := c.byCode[e.Code]; ok {
			return nil, fmt.Errorf("category: duplicate code %d", e.Code)
		}
		c.byLabel[label] = e.Code
		c.byCode[e.Code] = label
	}
	if _, ok := c.byCode[Newsletter]; !ok {
		return nil, fmt.Errorf("category: newsletter code %d missing", Newsletter)
	}
	return c, nil
}

func (c *Catalog) Code(label string) (int, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return Newsletter, true
	}
	code, ok := c.byLabel[label]
	return code, ok
}

func (c *Catalog) Label(code int) string {
	return c.byCode[code]
}

// Code looks label up in the built-in catalog.
func Code(label string) (int, bool) { return defaultCatalog.Code(label) }

// Label returns the built-in label for code, or "" when unknown.
func Label(code int) string { return defaultCatalog.Label(code) }
