package golang

import "sort"

// ImportSet collects the standard library packages a generated file uses.
type ImportSet struct {
	paths map[string]bool
}

// Add records an import path.
func (s *ImportSet) Add(path string) {
	if s.paths == nil {
		s.paths = make(map[string]bool)
	}
	s.paths[path] = true
}

// Merge adds every path in other.
func (s *ImportSet) Merge(other *ImportSet) {
	for p := range other.paths {
		s.Add(p)
	}
}

// Sorted returns the import paths in lexical order.
func (s *ImportSet) Sorted() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct imports.
func (s *ImportSet) Len() int { return len(s.paths) }
