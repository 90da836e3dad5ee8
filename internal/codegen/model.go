package codegen

import "strings"

// Codegen model graph. Built once by the schema collaborator (internal/spec),
// rewritten by the Processor and consumed by the renderer.

// UnionSeparator joins union alternatives in raw import names ("A | B").
const UnionSeparator = " | "

type Graph struct {
	Models     []*Model
	Operations []*OperationGroup
}

type Model struct {
	Name          string // logical class name
	SchemaName    string // key under components.schemas
	Description   string
	Vars          []*Property // own properties
	AllVars       []*Property // inherited + own, flattened
	Parent        string      // logical name of the parent model, empty when none
	Children      []string    // only set on discriminator-bearing parents
	Discriminator *Discriminator
	// DiscriminatorOverride carries an explicit x-discriminator-value. When set,
	// the tag literal is never derived from the parent's mapping.
	DiscriminatorOverride *string
	Imports               []string // raw import names, may contain union strings
	IsEnum                bool
	Enum                  []string
}

type Property struct {
	Name        string
	BaseName    string // name as it appears in the document
	Type        TypeRef
	Required    bool
	Nullable    bool
	ReadOnly    bool
	Description string
	Enum        []string
	EnumName    string
	// DiscriminatorValue is the tag literal for this variant, stamped during
	// post-processing.
	DiscriminatorValue string
}

type Discriminator struct {
	PropertyName string
	MappedModels []MappedModel
}

type MappedModel struct {
	MappingName string // tag literal
	ModelName   string
}

// TypeRef describes a property, parameter or response type.
// Exactly one of Primitive, Model, Union or Items is meaningful.
type TypeRef struct {
	Primitive string
	Model     string
	Union     []TypeRef
	Items     *TypeRef
	Container string // "", "array" or "map"
}

func PrimitiveType(name string) TypeRef { return TypeRef{Primitive: name} }
func ModelType(name string) TypeRef     { return TypeRef{Model: name} }
func UnionType(alts ...TypeRef) TypeRef { return TypeRef{Union: alts} }
func ArrayOf(items TypeRef) TypeRef     { return TypeRef{Container: "array", Items: &items} }
func MapOf(items TypeRef) TypeRef       { return TypeRef{Container: "map", Items: &items} }

// IsZero reports whether no type was declared.
func (t TypeRef) IsZero() bool {
	return t.Primitive == "" && t.Model == "" && len(t.Union) == 0 && t.Items == nil
}

// ModelNames returns the referenced model names in first-occurrence order.
func (t TypeRef) ModelNames() []string {
	var out []string
	seen := map[string]struct{}{}
	var walk func(TypeRef)
	walk = func(r TypeRef) {
		switch {
		case r.Model != "":
			if _, ok := seen[r.Model]; !ok {
				seen[r.Model] = struct{}{}
				out = append(out, r.Model)
			}
		case len(r.Union) > 0:
			for _, alt := range r.Union {
				walk(alt)
			}
		case r.Items != nil:
			walk(*r.Items)
		}
	}
	walk(t)
	return out
}

// ImportName is the raw import form recorded by the schema collaborator:
// the model name, or the alternatives joined by UnionSeparator. Empty when the
// type references no model.
func (t TypeRef) ImportName() string {
	switch {
	case t.Model != "":
		return t.Model
	case len(t.Union) > 0:
		names := t.ModelNames()
		return strings.Join(names, UnionSeparator)
	case t.Items != nil:
		return t.Items.ImportName()
	}
	return ""
}

// TS renders the type as a TypeScript type expression.
func (t TypeRef) TS() string {
	switch {
	case t.Model != "":
		return t.Model
	case len(t.Union) > 0:
		parts := make([]string, 0, len(t.Union))
		for _, alt := range t.Union {
			parts = append(parts, alt.TS())
		}
		return strings.Join(parts, UnionSeparator)
	case t.Container == "array" && t.Items != nil:
		return "Array<" + t.Items.TS() + ">"
	case t.Container == "map" && t.Items != nil:
		return "{ [key: string]: " + t.Items.TS() + "; }"
	case t.Primitive != "":
		return t.Primitive
	}
	return "any"
}

type Parameter struct {
	Name        string // TS identifier
	BaseName    string
	In          string // path|query|header|cookie|body|formData
	Required    bool
	Description string
	Type        TypeRef
}

type Consumes struct {
	IsJSON    bool
	MediaType string
}

type Operation struct {
	Nickname      string
	OperationID   string
	Method        string // upper-case HTTP method
	Path          string
	Summary       string
	Description   string
	PathParams    []Parameter
	QueryParams   []Parameter
	HeaderParams  []Parameter
	FormParams    []Parameter
	BodyParam     *Parameter
	HasBodyParam  bool
	HasFormParams bool
	Consumes      []Consumes
	HasConsumes   bool
	Imports       []string
	ReturnType    TypeRef
}

// HasBodyOrFormParams reports whether the operation sends a request body.
func (o *Operation) HasBodyOrFormParams() bool { return o.HasBodyParam || o.HasFormParams }

// AllParams returns path, query, header, body and form parameters in the order
// they appear in a generated method signature.
func (o *Operation) AllParams() []Parameter {
	out := make([]Parameter, 0, len(o.PathParams)+len(o.QueryParams)+len(o.HeaderParams)+len(o.FormParams)+1)
	out = append(out, o.PathParams...)
	out = append(out, o.QueryParams...)
	out = append(out, o.HeaderParams...)
	if o.BodyParam != nil {
		out = append(out, *o.BodyParam)
	}
	out = append(out, o.FormParams...)
	return out
}

// OperationGroup is the operations collection rendered into one API file.
type OperationGroup struct {
	Tag        string
	ClassName  string
	Filename   string
	Operations []*Operation
	Imports    []OperationImport
}

// OperationImport is an import descriptor at the operations-collection level.
type OperationImport struct {
	Classname string
	Import    string // module path resolved by Resolver.ModelImport
	Filename  string
}

// Import pairs a referenced model with the file it is rendered into.
type Import struct {
	Classname string
	Filename  string
}

// ModelFile is the renderer's view of one post-processed model.
type ModelFile struct {
	Model        *Model
	TaggedUnions bool
	Imports      []Import
}

// Result is the output of a full pass.
type Result struct {
	Options    Options
	Models     []*ModelFile
	Operations []*OperationGroup
}

func (m *Model) clone() *Model {
	c := *m
	c.Vars = cloneProperties(m.Vars)
	c.AllVars = cloneProperties(m.AllVars)
	c.Children = append([]string(nil), m.Children...)
	c.Imports = append([]string(nil), m.Imports...)
	c.Enum = append([]string(nil), m.Enum...)
	if m.Discriminator != nil {
		d := *m.Discriminator
		d.MappedModels = append([]MappedModel(nil), m.Discriminator.MappedModels...)
		c.Discriminator = &d
	}
	if m.DiscriminatorOverride != nil {
		v := *m.DiscriminatorOverride
		c.DiscriminatorOverride = &v
	}
	return &c
}

func cloneProperties(props []*Property) []*Property {
	if props == nil {
		return nil
	}
	out := make([]*Property, 0, len(props))
	for _, p := range props {
		c := *p
		c.Enum = append([]string(nil), p.Enum...)
		out = append(out, &c)
	}
	return out
}

func (g *OperationGroup) clone() *OperationGroup {
	c := *g
	c.Imports = append([]OperationImport(nil), g.Imports...)
	c.Operations = make([]*Operation, 0, len(g.Operations))
	for _, op := range g.Operations {
		o := *op
		o.PathParams = append([]Parameter(nil), op.PathParams...)
		o.QueryParams = append([]Parameter(nil), op.QueryParams...)
		o.HeaderParams = append([]Parameter(nil), op.HeaderParams...)
		o.FormParams = append([]Parameter(nil), op.FormParams...)
		if op.BodyParam != nil {
			b := *op.BodyParam
			o.BodyParam = &b
		}
		o.Consumes = append([]Consumes(nil), op.Consumes...)
		o.Imports = append([]string(nil), op.Imports...)
		c.Operations = append(c.Operations, &o)
	}
	return &c
}
