// Package taxonomy owns the canonical skill graph: synonyms, parent/child
// relations and the related-skill neighborhood used by feature scoring.
package taxonomy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"unicode"
)

//go:embed skills.json
var embedded []byte

// Category buckets canonical skills.
type Category string

const (
	CategoryTechnical   Category = "technical"
	CategorySoft        Category = "soft"
	CategoryLanguage    Category = "language"
	CategoryMethodology Category = "methodology"
	CategoryDomain      Category = "domain"
)

// Categories lists all skill categories.
var Categories = []Category{CategoryTechnical, CategorySoft, CategoryLanguage, CategoryMethodology, CategoryDomain}

// node is one canonical skill entry in the source document.
type node struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Synonyms []string `json:"synonyms,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Related  []string `json:"related,omitempty"`
}

type document struct {
	Skills []node `json:"skills"`
}

// snapshot is the immutable, lookup-optimized form swapped atomically on
// reload.
type snapshot struct {
	canonical map[string]string   // normalized term (incl. synonyms) -> canonical name
	category  map[string]Category // canonical -> category
	parent    map[string]string   // canonical -> parent canonical
	related   map[string][]string // canonical -> related canonicals
}

// Taxonomy provides read-only skill lookups. Safe for concurrent use; Reload
// swaps the underlying snapshot atomically.
type Taxonomy struct {
	snap atomic.Pointer[snapshot]
}

// Load builds the taxonomy from the embedded document.
func Load() (*Taxonomy, error) {
	t := &Taxonomy{}
	if err := t.reload(embedded); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-parses a taxonomy document and swaps it in. A malformed document
// leaves the current snapshot untouched.
func (t *Taxonomy) Reload(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("op=taxonomy.Reload: %w", err)
	}
	return t.reload(data)
}

func (t *Taxonomy) reload(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("op=taxonomy.reload: %w", err)
	}
	s := &snapshot{
		canonical: make(map[string]string, len(doc.Skills)*3),
		category:  make(map[string]Category, len(doc.Skills)),
		parent:    make(map[string]string, len(doc.Skills)),
		related:   make(map[string][]string, len(doc.Skills)),
	}
	for _, n := range doc.Skills {
		canon := normalize(n.Name)
		s.canonical[canon] = canon
		s.category[canon] = n.Category
		if n.Parent != "" {
			s.parent[canon] = normalize(n.Parent)
		}
		for _, syn := range n.Synonyms {
			s.canonical[normalize(syn)] = canon
		}
		rel := make([]string, 0, len(n.Related))
		for _, r := range n.Related {
			rel = append(rel, normalize(r))
		}
		s.related[canon] = rel
	}
	t.snap.Store(s)
	return nil
}

// normalize lowercases and strips punctuation, keeping +/# so c++ and c#
// survive.
func normalize(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#':
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Canonical resolves a skill term to its canonical name. Unknown terms are
// returned normalized but otherwise unchanged.
func (t *Taxonomy) Canonical(name string) string {
	s := t.snap.Load()
	norm := normalize(name)
	if canon, ok := s.canonical[norm]; ok {
		return canon
	}
	return norm
}

// Known reports whether the term resolves to a taxonomy entry.
func (t *Taxonomy) Known(name string) bool {
	s := t.snap.Load()
	_, ok := s.canonical[normalize(name)]
	return ok
}

// Related returns the direct related-to neighbors of a skill.
func (t *Taxonomy) Related(name string) []string {
	s := t.snap.Load()
	return s.related[t.Canonical(name)]
}

// Category returns the category of a skill; unknown terms fall into the
// domain bucket.
func (t *Taxonomy) Category(name string) Category {
	s := t.snap.Load()
	if cat, ok := s.category[t.Canonical(name)]; ok {
		return cat
	}
	return CategoryDomain
}

// Distance scores how close two skill terms are:
// 1.0 canonical equality, 0.9 synonym, 0.7 shared parent, 0.5 shared related
// neighbor, 0 otherwise.
func (t *Taxonomy) Distance(a, b string) float64 {
	s := t.snap.Load()
	na, nb := normalize(a), normalize(b)
	ca, cb := na, nb
	if c, ok := s.canonical[na]; ok {
		ca = c
	}
	if c, ok := s.canonical[nb]; ok {
		cb = c
	}
	if ca == cb {
		if na == nb {
			return 1.0
		}
		// same canonical via different surface forms means synonymy
		return 0.9
	}
	if pa, ok := s.parent[ca]; ok {
		if pb, ok2 := s.parent[cb]; ok2 && pa == pb {
			return 0.7
		}
	}
	if sharesRelated(s.related[ca], s.related[cb]) || relatedTo(s.related[ca], cb) || relatedTo(s.related[cb], ca) {
		return 0.5
	}
	return 0.0
}

func relatedTo(rel []string, target string) bool {
	for _, r := range rel {
		if r == target {
			return true
		}
	}
	return false
}

func sharesRelated(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, r := range a {
		set[r] = struct{}{}
	}
	for _, r := range b {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
