/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Category is one of the four character buckets an edition is split into.
type Category string

const (
	Townsfolk Category = "townsfolk"
	Outsiders Category = "outsiders"
	Minions   Category = "minions"
	Demons    Category = "demons"
)

// Categories lists every category in table order.
var Categories = []Category{Townsfolk, Outsiders, Minions, Demons}

func (c Category) valid() bool {
	return slices.Contains(Categories, c)
}

// Character is an immutable template from the catalog.
// A night rank of 0 means the character does not act on that night.
type Character struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Ability     string   `json:"ability" yaml:"ability"`
	FirstNight  int      `json:"first_night" yaml:"first_night"`
	OtherNights int      `json:"other_nights" yaml:"other_nights"`
	Category    Category `json:"-" yaml:"-"`
}

// Distribution maps a category to the number of characters drawn from it.
type Distribution map[Category]int

// Total returns the number of characters the distribution asks for.
func (d Distribution) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// Edition is a character roster plus the table of how many characters of
// each category a game of a given size uses.
type Edition struct {
	ID         string                   `json:"-" yaml:"-"`
	Name       string                   `json:"name" yaml:"name"`
	Characters map[Category][]Character `json:"characters" yaml:"characters"`
	Setup      map[int]Distribution     `json:"setup" yaml:"setup"`
}

// EditionSummary is the listing form of an edition.
type EditionSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Catalog holds every known edition. It is never mutated after loading,
// so it is safe for concurrent use without locking.
type Catalog struct {
	editions map[string]*Edition
}

//go:embed editions.json
var defaultEditions []byte

// DefaultCatalog parses the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultEditions, ".json")
}

// LoadCatalog reads a catalog from path. The format is chosen by extension:
// .yaml and .yml are parsed as YAML, everything else as JSON.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	return ParseCatalog(data, filepath.Ext(path))
}

// ParseCatalog decodes and validates catalog data.
func ParseCatalog(data []byte, ext string) (*Catalog, error) {
	raw := make(map[string]*Edition)

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	}

	if len(raw) == 0 {
		return nil, errors.New("catalog contains no editions")
	}

	for id, e := range raw {
		if e == nil {
			return nil, fmt.Errorf("edition %q: empty definition", id)
		}
		e.ID = id
		if err := e.validate(); err != nil {
			return nil, err
		}
	}

	return &Catalog{editions: raw}, nil
}

func (e *Edition) validate() error {
	if e.ID == "" {
		return errors.New("edition with empty id")
	}
	if e.Name == "" {
		return fmt.Errorf("edition %q: missing name", e.ID)
	}

	seen := make(map[string]bool)
	for cat, chars := range e.Characters {
		if !cat.valid() {
			return fmt.Errorf("edition %q: unknown category %q", e.ID, cat)
		}
		for i := range chars {
			c := &chars[i]
			if c.ID == "" || c.Name == "" {
				return fmt.Errorf("edition %q: %s character %d is missing an id or name", e.ID, cat, i)
			}
			if seen[c.ID] {
				return fmt.Errorf("edition %q: duplicate character id %q", e.ID, c.ID)
			}
			if c.FirstNight < 0 || c.OtherNights < 0 {
				return fmt.Errorf("edition %q: character %q has a negative night rank", e.ID, c.ID)
			}
			seen[c.ID] = true
			c.Category = cat
		}
	}

	for count, dist := range e.Setup {
		if count < 1 {
			return fmt.Errorf("edition %q: invalid participant count %d in setup", e.ID, count)
		}
		for cat, n := range dist {
			if !cat.valid() {
				return fmt.Errorf("edition %q: setup %d uses unknown category %q", e.ID, count, cat)
			}
			if n < 0 {
				return fmt.Errorf("edition %q: setup %d asks for %d %s", e.ID, count, n, cat)
			}
		}
	}

	return nil
}

// Editions returns every edition's id and name, sorted by id.
func (c *Catalog) Editions() []EditionSummary {
	out := make([]EditionSummary, 0, len(c.editions))
	for id, e := range c.editions {
		out = append(out, EditionSummary{ID: id, Name: e.Name})
	}

	slices.SortFunc(out, func(a, b EditionSummary) int {
		return strings.Compare(a.ID, b.ID)
	})

	return out
}

// Edition looks up an edition by id.
func (c *Catalog) Edition(id string) (*Edition, error) {
	e, ok := c.editions[id]
	if !ok {
		return nil, newError(KindNotFound, "edition %s not found", id)
	}
	return e, nil
}

// Characters returns a copy of an edition's characters grouped by category,
// each tagged with its category.
func (c *Catalog) Characters(editionID string) (map[Category][]Character, error) {
	e, err := c.Edition(editionID)
	if err != nil {
		return nil, err
	}

	out := make(map[Category][]Character, len(e.Characters))
	for cat, chars := range e.Characters {
		out[cat] = slices.Clone(chars)
	}

	return out, nil
}
