package spec

import (
    "encoding/json"
    "fmt"
    "log/slog"
    "sort"
    "strings"

    "github.com/getkin/kin-openapi/openapi3"
    "github.com/iancoleman/strcase"

    "github.com/mark3labs/swagger2k6/internal/codegen"
)

const (
    schemaRefPrefix       = "#/components/schemas/"
    discriminatorValueExt = "x-discriminator-value"
)

type graphBuilder struct {
    doc      *openapi3.T
    resolver *codegen.Resolver
    cfg      *buildConfig

    schemas  map[string]*openapi3.SchemaRef // components.schemas by name
    models   map[string]*codegen.Model      // by schema name; nil for inlined aliases
    parentOf map[string]string              // child schema -> parent schema
    visiting map[*openapi3.Schema]bool
}

func newGraphBuilder(doc *openapi3.T, resolver *codegen.Resolver, cfg *buildConfig) *graphBuilder {
    b := &graphBuilder{
        doc:      doc,
        resolver: resolver,
        cfg:      cfg,
        schemas:  map[string]*openapi3.SchemaRef{},
        models:   map[string]*codegen.Model{},
        parentOf: map[string]string{},
        visiting: map[*openapi3.Schema]bool{},
    }
    if doc.Components != nil {
        for name, ref := range doc.Components.Schemas {
            b.schemas[name] = ref
        }
    }
    return b
}

func (b *graphBuilder) buildModels() []*codegen.Model {
    names := make([]string, 0, len(b.schemas))
    for name := range b.schemas {
        names = append(names, name)
    }
    sort.Strings(names)

    for _, name := range names {
        b.model(name)
    }
    flattened := map[string]bool{}
    for _, name := range names {
        b.flattenModel(name, flattened)
    }

    for _, name := range names {
        child := b.models[name]
        parent := b.models[b.parentOf[name]]
        if child == nil || parent == nil || parent.Discriminator == nil {
            continue
        }
        parent.Children = append(parent.Children, child.Name)
    }
    for _, name := range names {
        m := b.models[name]
        if m == nil || m.Discriminator == nil {
            continue
        }
        m.Discriminator.MappedModels = b.mappedModels(name, b.schemas[name].Value.Discriminator)
    }

    out := make([]*codegen.Model, 0, len(names))
    for _, name := range names {
        if m := b.models[name]; m != nil {
            out = append(out, m)
        }
    }
    return out
}

// isModelSchema reports whether a component schema gets its own model file.
// Other component schemas are inlined where referenced.
func isModelSchema(s *openapi3.Schema) bool {
    return len(s.Enum) > 0 || s.Type == "object" || len(s.Properties) > 0 || len(s.AllOf) > 0
}

// model builds the model for a component schema once. The entry is recorded
// before descending so recursive references terminate.
func (b *graphBuilder) model(name string) *codegen.Model {
    if m, ok := b.models[name]; ok {
        return m
    }
    ref := b.schemas[name]
    if ref == nil || ref.Value == nil || !isModelSchema(ref.Value) {
        b.models[name] = nil
        return nil
    }
    s := ref.Value
    m := &codegen.Model{
        Name:        b.resolver.ModelName(name),
        SchemaName:  name,
        Description: strings.TrimSpace(s.Description),
    }
    b.models[name] = m

    if len(s.Enum) > 0 {
        m.IsEnum = true
        m.Enum = enumValues(s.Enum)
        return m
    }

    var (
        imports []string
        own     []*codegen.Property
    )
    addImport := func(raw string) {
        if raw != "" && !contains(imports, raw) {
            imports = append(imports, raw)
        }
    }

    for _, part := range s.AllOf {
        if part == nil {
            continue
        }
        if pname := refName(part.Ref); pname != "" && m.Parent == "" && pname != name {
            if parent := b.model(pname); parent != nil && !parent.IsEnum {
                m.Parent = parent.Name
                b.parentOf[name] = pname
                addImport(parent.Name)
                continue
            }
        }
        if part.Value != nil {
            own = append(own, b.properties(part.Value)...)
        }
    }
    own = append(own, b.properties(s)...)

    for _, p := range own {
        addImport(p.Type.ImportName())
    }
    m.Vars = own
    m.Imports = imports

    if s.Discriminator != nil && strings.TrimSpace(s.Discriminator.PropertyName) != "" {
        m.Discriminator = &codegen.Discriminator{PropertyName: s.Discriminator.PropertyName}
    }
    if v, ok := extensionString(s.Extensions, discriminatorValueExt); ok {
        m.DiscriminatorOverride = &v
    }
    return m
}

// flattenModel fills AllVars once every model exists. A parent may still be
// under construction when one of its own properties builds a child.
func (b *graphBuilder) flattenModel(name string, done map[string]bool) []*codegen.Property {
    m := b.models[name]
    if m == nil || m.IsEnum {
        return nil
    }
    if done[name] {
        return m.AllVars
    }
    done[name] = true
    var inherited []*codegen.Property
    if parent, ok := b.parentOf[name]; ok {
        inherited = b.flattenModel(parent, done)
    }
    m.AllVars = flatten(inherited, m.Vars)
    return m.AllVars
}

// flatten returns copies of the inherited properties followed by the own
// ones; an own property replaces an inherited one with the same name.
func flatten(inherited, own []*codegen.Property) []*codegen.Property {
    out := make([]*codegen.Property, 0, len(inherited)+len(own))
    index := make(map[string]int, len(inherited))
    for _, p := range inherited {
        c := *p
        index[p.BaseName] = len(out)
        out = append(out, &c)
    }
    for _, p := range own {
        if i, ok := index[p.BaseName]; ok {
            out[i] = p
            continue
        }
        out = append(out, p)
    }
    return out
}

func (b *graphBuilder) properties(s *openapi3.Schema) []*codegen.Property {
    names := sortedProperties(s)
    out := make([]*codegen.Property, 0, len(names))
    for _, base := range names {
        ref := s.Properties[base]
        p := &codegen.Property{
            Name:     base,
            BaseName: base,
            Required: contains(s.Required, base),
            Type:     b.typeOf(ref),
        }
        if ref != nil && ref.Ref == "" && ref.Value != nil {
            v := ref.Value
            p.Description = strings.TrimSpace(v.Description)
            p.Nullable = v.Nullable
            p.ReadOnly = v.ReadOnly
            if len(v.Enum) > 0 {
                p.Enum = enumValues(v.Enum)
                p.EnumName = strcase.ToCamel(base) + "Enum"
            }
        }
        out = append(out, p)
    }
    return out
}

// mappedModels resolves the discriminator mapping of a parent. Without an
// explicit mapping every child is tagged with its schema name.
func (b *graphBuilder) mappedModels(parent string, d *openapi3.Discriminator) []codegen.MappedModel {
    var out []codegen.MappedModel
    if d != nil && len(d.Mapping) > 0 {
        keys := make([]string, 0, len(d.Mapping))
        for k := range d.Mapping {
            keys = append(keys, k)
        }
        sort.Strings(keys)
        for _, k := range keys {
            target := d.Mapping[k]
            schema := refName(target)
            if schema == "" {
                schema = target
            }
            m := b.models[schema]
            if m == nil {
                b.cfg.logger.Warn("discriminator mapping points to unknown schema",
                    slog.String("schema", parent), slog.String("mapping", k), slog.String("target", target))
                continue
            }
            out = append(out, codegen.MappedModel{MappingName: k, ModelName: m.Name})
        }
        return out
    }

    children := make([]string, 0)
    for child, p := range b.parentOf {
        if p == parent {
            children = append(children, child)
        }
    }
    sort.Strings(children)
    for _, child := range children {
        if m := b.models[child]; m != nil {
            out = append(out, codegen.MappedModel{MappingName: child, ModelName: m.Name})
        }
    }
    return out
}

func (b *graphBuilder) typeOf(ref *openapi3.SchemaRef) codegen.TypeRef {
    if ref == nil {
        return codegen.PrimitiveType("any")
    }
    if name := refName(ref.Ref); name != "" {
        if m := b.model(name); m != nil {
            return codegen.ModelType(m.Name)
        }
        if target := b.schemas[name]; target != nil && target.Value != nil {
            return b.inlineType(target.Value)
        }
        b.cfg.logger.Warn("unresolved schema reference", slog.String("ref", ref.Ref))
        return codegen.PrimitiveType("any")
    }
    if ref.Value == nil {
        return codegen.PrimitiveType("any")
    }
    return b.inlineType(ref.Value)
}

func (b *graphBuilder) inlineType(s *openapi3.Schema) codegen.TypeRef {
    if b.visiting[s] {
        return codegen.PrimitiveType("any")
    }
    b.visiting[s] = true
    defer delete(b.visiting, s)

    alts := make([]*openapi3.SchemaRef, 0, len(s.OneOf)+len(s.AnyOf))
    alts = append(alts, s.OneOf...)
    alts = append(alts, s.AnyOf...)
    switch {
    case len(alts) == 1:
        return b.typeOf(alts[0])
    case len(alts) > 1:
        types := make([]codegen.TypeRef, 0, len(alts))
        for _, alt := range alts {
            types = append(types, b.typeOf(alt))
        }
        return codegen.UnionType(types...)
    case len(s.AllOf) == 1:
        return b.typeOf(s.AllOf[0])
    }

    switch s.Type {
    case "string":
        return codegen.PrimitiveType("string")
    case "integer", "number":
        return codegen.PrimitiveType("number")
    case "boolean":
        return codegen.PrimitiveType("boolean")
    case "array":
        return codegen.ArrayOf(b.typeOf(s.Items))
    case "object":
        return codegen.MapOf(codegen.PrimitiveType("any"))
    }
    return codegen.PrimitiveType("any")
}

// refName returns the schema name behind a components.schemas reference,
// including references into other documents.
func refName(ref string) string {
    if ref == "" {
        return ""
    }
    i := strings.Index(ref, schemaRefPrefix)
    if i < 0 {
        return ""
    }
    return ref[i+len(schemaRefPrefix):]
}

func sortedProperties(s *openapi3.Schema) []string {
    names := make([]string, 0, len(s.Properties))
    for name := range s.Properties {
        names = append(names, name)
    }
    sort.Strings(names)
    return names
}

func schemaDescription(ref *openapi3.SchemaRef) string {
    if ref == nil || ref.Value == nil {
        return ""
    }
    return strings.TrimSpace(ref.Value.Description)
}

func enumValues(values []interface{}) []string {
    out := make([]string, 0, len(values))
    for _, v := range values {
        if v == nil {
            continue
        }
        out = append(out, fmt.Sprint(v))
    }
    return out
}

// extensionString reads a string-valued vendor extension. Depending on how
// the document was decoded the value is either a string or raw JSON.
func extensionString(ext map[string]interface{}, key string) (string, bool) {
    raw, ok := ext[key]
    if !ok || raw == nil {
        return "", false
    }
    switch v := raw.(type) {
    case string:
        return v, true
    case json.RawMessage:
        return decodeJSONString(v)
    case []byte:
        return decodeJSONString(v)
    default:
        return fmt.Sprint(v), true
    }
}

func decodeJSONString(data []byte) (string, bool) {
    var s string
    if err := json.Unmarshal(data, &s); err != nil {
        return "", false
    }
    return s, true
}

func contains(list []string, want string) bool {
    for _, s := range list {
        if s == want {
            return true
        }
    }
    return false
}
