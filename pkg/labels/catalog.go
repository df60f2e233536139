// Package labels matches a genre against a catalog of record labels and the
// genres each label accepts.
package labels

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// MatchScore is the score every accepted genre earns
const MatchScore = 80

var titleCaser = cases.Title(language.English)

// Entry is one label and the genres it accepts
type Entry struct {
	Name   string   `yaml:"name" json:"name"`
	Genres []string `yaml:"genres" json:"genres"`
}

// Match is a label that accepts the queried genre
type Match struct {
	Label string `json:"label" yaml:"label" msgpack:"label"`
	Score int    `json:"match" yaml:"match" msgpack:"match"`
}

// Catalog is an immutable list of labels in declaration order. It is safe
// for concurrent use.
type Catalog struct {
	entries []Entry
}

type catalogFile struct {
	Labels []Entry `yaml:"labels"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the built-in catalog, created on first use
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := NewCatalog([]Entry{
			{Name: "Defected", Genres: []string{"House", "Melodic House"}},
			{Name: "Toolroom Records", Genres: []string{"Tech House", "House"}},
			{Name: "Hot Creations", Genres: []string{"House", "Deep House"}},
		})
		if err != nil {
			panic(fmt.Sprintf("labels: invalid built-in catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// NewCatalog copies entries into a catalog. Names must be unique and non-empty.
func NewCatalog(entries []Entry) (*Catalog, error) {
	seen := make(map[string]struct{}, len(entries))
	copied := make([]Entry, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", name)
		}
		seen[name] = struct{}{}

		genres := make([]string, 0, len(e.Genres))
		for _, g := range e.Genres {
			if g = strings.TrimSpace(g); g != "" {
				genres = append(genres, g)
			}
		}
		copied = append(copied, Entry{Name: name, Genres: genres})
	}
	return &Catalog{entries: copied}, nil
}

// LoadCatalog reads a YAML catalog of the form
//
//	labels:
//	  - name: Defected
//	    genres: [House, Melodic House]
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(file.Labels) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no labels", path)
	}

	return NewCatalog(file.Labels)
}

// Match returns every label whose genres contain genre, scored MatchScore,
// sorted by score descending with ties kept in catalog order. Labels that do
// not accept the genre are left out.
func (c *Catalog) Match(genre string) []Match {
	genre = strings.TrimSpace(genre)
	matches := []Match{}
	if genre == "" {
		return matches
	}

	for _, e := range c.entries {
		if slices.Contains(e.Genres, genre) {
			matches = append(matches, Match{Label: e.Name, Score: MatchScore})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Entries returns a copy of the catalog entries
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = Entry{Name: e.Name, Genres: slices.Clone(e.Genres)}
	}
	return out
}

// Len returns the number of labels
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Normalize title-cases a free-form genre ("deep house" -> "Deep House") so
// user input lines up with catalog spelling
func Normalize(genre string) string {
	return titleCaser.String(strings.Join(strings.Fields(genre), " "))
}
