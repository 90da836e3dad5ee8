package codegen

import "log/slog"

// rewriteUnions turns discriminated inheritance into self-contained variants.
// Parents import every child, children stop importing their parent and pick up
// whatever their flattened properties reference, minus themselves.
func (p *Processor) rewriteUnions(models []*Model) {
	if !p.opts.TaggedUnions {
		return
	}
	index := make(map[string]*Model, len(models))
	for _, m := range models {
		index[m.Name] = m
	}

	for _, m := range models {
		if m.Discriminator == nil || len(m.Children) == 0 {
			continue
		}
		imports := newImportSet(SplitImports(m.Imports))
		for _, name := range m.Children {
			imports.add(name)
			child, ok := index[name]
			if !ok {
				p.logger.Debug("discriminator child not in model graph",
					slog.String("parent", m.Name), slog.String("child", name))
				continue
			}
			if !PropagateDiscriminator(m, child) && child.DiscriminatorOverride == nil {
				p.logger.Warn("no discriminator value for tagged union variant",
					slog.String("parent", m.Name),
					slog.String("child", child.Name),
					slog.String("property", m.Discriminator.PropertyName))
			}
		}
		m.Imports = imports.slice()
	}

	for _, m := range models {
		if m.Parent == "" {
			continue
		}
		imports := newImportSet(SplitImports(m.Imports))
		imports.remove(m.Parent)
		// A flattened property may still reference the parent (or the model
		// itself), so re-derive imports from AllVars before dropping self.
		for _, prop := range m.AllVars {
			for _, name := range prop.Type.ModelNames() {
				imports.add(name)
			}
		}
		imports.remove(m.Name)
		m.Imports = imports.slice()
	}
}

// PropagateDiscriminator stamps the child's discriminator property with the
// tag literal its parent maps it to. Children with an explicit override are
// left alone. It reports whether a value was stamped.
func PropagateDiscriminator(parent, child *Model) bool {
	if parent == nil || child == nil || parent.Discriminator == nil {
		return false
	}
	if child.DiscriminatorOverride != nil {
		return false
	}
	tag := ""
	found := false
	for _, mm := range parent.Discriminator.MappedModels {
		if mm.ModelName == child.Name {
			tag, found = mm.MappingName, true
			break
		}
	}
	if !found {
		return false
	}
	stamped := false
	for _, prop := range child.AllVars {
		if prop.BaseName == parent.Discriminator.PropertyName {
			prop.DiscriminatorValue = tag
			stamped = true
		}
	}
	for _, prop := range child.Vars {
		if prop.BaseName == parent.Discriminator.PropertyName {
			prop.DiscriminatorValue = tag
		}
	}
	return stamped
}
