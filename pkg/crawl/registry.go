package crawl

import (
	"fmt"
	"sort"

	"github.com/gobwas/glob"
)

// Registry holds the known crawlers and answers glob-based selections.
type Registry struct {
	crawlers map[string]Crawler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{crawlers: make(map[string]Crawler)}
}

// Register adds a crawler. Registering a duplicate name is a programming
// error and fails loudly.
func (r *Registry) Register(c Crawler) error {
	name := c.Name()
	if name == "" {
		return fmt.Errorf("crawler has no name")
	}
	if _, exists := r.crawlers[name]; exists {
		return fmt.Errorf("crawler %q already registered", name)
	}
	r.crawlers[name] = c
	return nil
}

// Names returns all registered crawler names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.crawlers))
	for name := range r.crawlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the crawlers whose name matches any include pattern (all
// when includes is empty) and no exclude pattern, sorted by name.
func (r *Registry) Select(includes, excludes []string) ([]Crawler, error) {
	includeGlobs, err := compileGlobs(includes)
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	excludeGlobs, err := compileGlobs(excludes)
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}

	var selected []Crawler
	for _, name := range r.Names() {
		if len(includeGlobs) > 0 && !matchesAny(includeGlobs, name) {
			continue
		}
		if matchesAny(excludeGlobs, name) {
			continue
		}
		selected = append(selected, r.crawlers[name])
	}
	return selected, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
