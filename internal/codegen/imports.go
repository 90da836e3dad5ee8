package codegen

import "strings"

// SplitImports expands union entries ("A | B") into their alternatives and
// collapses duplicates, keeping first-occurrence order.
func SplitImports(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range raw {
		if strings.Contains(name, UnionSeparator) {
			for _, part := range strings.Split(name, UnionSeparator) {
				add(part)
			}
			continue
		}
		add(name)
	}
	return out
}

// BuildImports returns the import descriptors a model file needs. The model's
// own name is never imported.
func (r *Resolver) BuildImports(m *Model) []Import {
	names := SplitImports(m.Imports)
	out := make([]Import, 0, len(names))
	for _, name := range names {
		if name == m.Name {
			continue
		}
		out = append(out, Import{
			Classname: name,
			Filename:  r.ModelFilename(r.RemovePrefixSuffix(name)),
		})
	}
	return out
}

// importSet is an ordered set of raw import names.
type importSet struct {
	names []string
	index map[string]struct{}
}

func newImportSet(names []string) *importSet {
	s := &importSet{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.add(n)
	}
	return s
}

func (s *importSet) add(name string) {
	if name == "" {
		return
	}
	if _, ok := s.index[name]; ok {
		return
	}
	s.index[name] = struct{}{}
	s.names = append(s.names, name)
}

func (s *importSet) remove(name string) {
	if _, ok := s.index[name]; !ok {
		return
	}
	delete(s.index, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			return
		}
	}
}

func (s *importSet) slice() []string {
	return append([]string(nil), s.names...)
}
