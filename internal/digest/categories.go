package digest

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"playlist-digest/internal/llm"
)

// Sentinels recorded for items whose classification or summary failed.
const (
	Uncategorized = "Uncategorized"
	FailedSummary = "Failed to generate summary."
)

// DefaultCategories is the canonical allow-list used to group the report.
var DefaultCategories = []string{
	"Keynote", "Security", "GitOps", "AI & ML", "Sustainability",
	"Scaling", "Scheduling", "Performance Engineering", "Observability",
	"Analytics", "Databases", "Operations", "HPC", "Developer Experience",
	"Compute", "Storage", "Networking", "Serverless", "Architecture",
}

// Normalize folds case and trims surrounding whitespace.
func Normalize(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// CategoryState tracks canonical categories, the optional filter and the
// categories already chosen during a run. It is safe for concurrent use.
type CategoryState struct {
	canonical []string
	byNorm    map[string]string

	mu     sync.RWMutex
	filter map[string]bool
	chosen map[string]bool
}

// NewCategoryState builds a state over canonical. A nil or empty slice uses
// DefaultCategories.
func NewCategoryState(canonical []string) *CategoryState {
	if len(canonical) == 0 {
		canonical = DefaultCategories
	}
	s := &CategoryState{
		byNorm: make(map[string]string, len(canonical)),
		chosen: make(map[string]bool),
	}
	for _, c := range canonical {
		if _, dup := s.byNorm[Normalize(c)]; dup {
			continue
		}
		s.byNorm[Normalize(c)] = c
		s.canonical = append(s.canonical, c)
	}
	sort.Strings(s.canonical)
	return s
}

// Canonical returns the canonical categories in sorted order.
func (s *CategoryState) Canonical() []string {
	return append([]string(nil), s.canonical...)
}

// Canonicalize returns the canonical spelling of raw, if there is one.
func (s *CategoryState) Canonicalize(raw string) (string, bool) {
	c, ok := s.byNorm[Normalize(raw)]
	return c, ok
}

// SetFilter restricts the run to the comma-separated categories in csv.
// An empty csv clears the filter. Every entry must name a canonical
// category; otherwise a ConfigurationError lists each bad entry with a
// suggestion and the filter is left unchanged.
func (s *CategoryState) SetFilter(csv string) error {
	if strings.TrimSpace(csv) == "" {
		s.mu.Lock()
		s.filter = nil
		s.mu.Unlock()
		return nil
	}

	filter := make(map[string]bool)
	var invalid []string
	seen := make(map[string]bool)
	for _, entry := range strings.Split(csv, ",") {
		norm := Normalize(entry)
		if norm == "" {
			continue
		}
		filter[norm] = true
		if _, ok := s.byNorm[norm]; !ok && !seen[norm] {
			seen[norm] = true
			invalid = append(invalid, strings.TrimSpace(entry))
		}
	}

	if len(invalid) > 0 {
		suggestions := make([]string, 0, len(invalid))
		for _, bad := range invalid {
			suggestions = append(suggestions, fmt.Sprintf("'%s' (did you mean '%s'?)", bad, s.ClosestMatch(bad)))
		}
		return llm.ConfigurationError("set category filter", fmt.Sprintf(
			"invalid categories found: %s\nvalid categories are: %s",
			strings.Join(suggestions, ", "),
			strings.Join(s.canonical, ", "),
		))
	}

	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	return nil
}

// Filter returns the normalized filter entries, or nil when unset.
func (s *CategoryState) Filter() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filter == nil {
		return nil
	}
	out := make([]string, 0, len(s.filter))
	for f := range s.filter {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Filtered reports whether a filter is active.
func (s *CategoryState) Filtered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter != nil
}

// MatchesFilter reports whether category passes the filter. Everything
// matches when no filter is set.
func (s *CategoryState) MatchesFilter(category string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filter == nil {
		return true
	}
	return s.filter[Normalize(category)]
}

// Remember adds a canonical category to the previously chosen set.
func (s *CategoryState) Remember(category string) {
	s.mu.Lock()
	s.chosen[category] = true
	s.mu.Unlock()
}

// Chosen returns the previously chosen categories in sorted order.
func (s *CategoryState) Chosen() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.chosen))
	for c := range s.chosen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ClosestMatch suggests a canonical category for raw: an exact normalized
// match, then substring containment in either direction, then the category
// with the smallest edit distance.
func (s *CategoryState) ClosestMatch(raw string) string {
	norm := Normalize(raw)
	if c, ok := s.byNorm[norm]; ok {
		return c
	}
	for _, c := range s.canonical {
		cn := Normalize(c)
		if strings.Contains(cn, norm) || strings.Contains(norm, cn) {
			return c
		}
	}

	best, bestDist := s.canonical[0], -1
	for _, c := range s.canonical {
		d := levenshtein.ComputeDistance(norm, Normalize(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
