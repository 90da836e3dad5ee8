package k6emitter

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/mark3labs/swagger2k6/internal/codegen"
)

// jslibURLModule provides URLSearchParams, which the k6 runtime lacks.
const jslibURLModule = "https://jslib.k6.io/url/1.0.0/index.js"

type modelKind int

const (
	kindInterface modelKind = iota
	kindEnum
	kindUnion
)

type memberView struct {
	Key      string
	Type     string
	Optional bool
	ReadOnly bool
	Doc      []string
}

type enumMemberView struct {
	Key   string
	Value string
}

type enumView struct {
	Name    string
	Members []enumMemberView
}

type modelView struct {
	Name         string
	Doc          []string
	Imports      []codegen.Import
	Kind         modelKind
	Extends      string
	Members      []memberView
	EnumMembers  []enumMemberView
	Alternatives string
	// InlineEnums go into a namespace named after the model, or to the top
	// level with prefixed names when string enums are enabled.
	InlineEnums []enumView
	StringEnums bool
}

type paramView struct {
	Name     string
	BaseName string
}

type argView struct {
	Name     string
	Type     string
	Optional bool
	Doc      string
}

type operationView struct {
	Name        string
	Method      string
	Path        string
	Doc         []string
	Args        []argView
	Query       []paramView
	Headers     []paramView
	Form        []paramView
	Body        string
	BodyIsJSON  bool
	ContentType string
	FormMode    string // "", "jslib" or "object"
	HasReturn   bool
	ReturnType  string
}

type apiView struct {
	ClassName  string
	UseJslib   bool
	JslibURL   string
	Imports    []codegen.OperationImport
	Operations []operationView
}

type readmeView struct {
	K6Version    string
	TaggedUnions bool
	ModelPackage string
	APIPackage   string
	APIs         []apiFileView
}

type apiFileView struct {
	ClassName string
	File      string
}

type modelIndexView struct {
	Files []string
}

// renderer turns a post-processed result into file contents keyed by
// slash-separated relative path.
type renderer struct {
	res      *codegen.Result
	opts     codegen.Options
	resolver *codegen.Resolver
	models   map[string]*codegen.Model
}

func newRenderer(res *codegen.Result) *renderer {
	r := &renderer{
		res:      res,
		opts:     res.Options,
		resolver: codegen.NewResolver(res.Options),
		models:   make(map[string]*codegen.Model, len(res.Models)),
	}
	for _, mf := range res.Models {
		r.models[mf.Model.Name] = mf.Model
	}
	return r
}

func (r *renderer) render() (map[string][]byte, error) {
	files := map[string][]byte{}
	var modelFiles []string
	for _, mf := range r.res.Models {
		file, ok := r.modelFile(mf.Model)
		if !ok {
			continue
		}
		out, err := execute("model", r.modelView(mf))
		if err != nil {
			return nil, fmt.Errorf("render model %s: %w", mf.Model.Name, err)
		}
		files[path.Join(r.opts.ModelPackage, file+".ts")] = out
		modelFiles = append(modelFiles, file)
	}
	if len(modelFiles) > 0 {
		sort.Strings(modelFiles)
		out, err := execute("modelIndex", modelIndexView{Files: modelFiles})
		if err != nil {
			return nil, fmt.Errorf("render model index: %w", err)
		}
		files[path.Join(r.opts.ModelPackage, "index.ts")] = out
	}

	readme := readmeView{
		K6Version:    r.opts.K6Version,
		TaggedUnions: r.opts.TaggedUnions,
		ModelPackage: r.opts.ModelPackage,
		APIPackage:   r.opts.APIPackage,
	}
	for _, g := range r.res.Operations {
		out, err := execute("api", r.apiView(g))
		if err != nil {
			return nil, fmt.Errorf("render api %s: %w", g.ClassName, err)
		}
		rel := path.Join(r.opts.APIPackage, g.Filename+".ts")
		files[rel] = out
		readme.APIs = append(readme.APIs, apiFileView{ClassName: g.ClassName, File: rel})
	}

	out, err := execute("readme", readme)
	if err != nil {
		return nil, fmt.Errorf("render README: %w", err)
	}
	files["README.md"] = out

	if files[".editorconfig"], err = execute("editorconfig", nil); err != nil {
		return nil, fmt.Errorf("render .editorconfig: %w", err)
	}
	return files, nil
}

// modelFile returns the file a model is rendered into, relative to the model
// package and without extension. Mapped models are provided externally.
func (r *renderer) modelFile(m *codegen.Model) (string, bool) {
	stripped := r.resolver.RemovePrefixSuffix(m.Name)
	if _, mapped := r.opts.ImportMapping[stripped]; mapped {
		return "", false
	}
	if _, mapped := r.opts.ImportMapping[m.Name]; mapped {
		return "", false
	}
	return strings.TrimPrefix(r.resolver.ModelFilename(stripped), "./"), true
}

func (r *renderer) modelView(mf *codegen.ModelFile) modelView {
	m := mf.Model
	v := modelView{
		Name:        m.Name,
		Doc:         docLines(m.Description),
		Imports:     mf.Imports,
		StringEnums: r.opts.StringEnums,
	}
	if m.IsEnum {
		v.Kind = kindEnum
		v.EnumMembers = enumMembers(m.Enum)
		return v
	}

	if mf.TaggedUnions && m.Discriminator != nil && len(m.Children) > 0 {
		v.Kind = kindUnion
		v.Alternatives = strings.Join(m.Children, codegen.UnionSeparator)
		v.InlineEnums = r.inlineEnums(m, m.Vars)
		return v
	}

	// Tagged variants are flattened and carry their own copies of inherited
	// inline enums.
	props := m.Vars
	if mf.TaggedUnions && m.Parent != "" {
		props = m.AllVars
	} else {
		v.Extends = m.Parent
	}
	discriminator := r.discriminatorProperty(m)
	for _, p := range props {
		v.Members = append(v.Members, memberView{
			Key:      propertyKey(p.Name),
			Type:     r.propertyType(m, p, discriminator),
			Optional: !p.Required,
			ReadOnly: p.ReadOnly,
			Doc:      docLines(p.Description),
		})
	}
	v.InlineEnums = r.inlineEnums(m, props)
	return v
}

// discriminatorProperty returns the tag property a model inherits from its
// closest discriminated ancestor.
func (r *renderer) discriminatorProperty(m *codegen.Model) string {
	seen := map[string]bool{}
	for cur := r.models[m.Parent]; cur != nil && !seen[cur.Name]; cur = r.models[cur.Parent] {
		seen[cur.Name] = true
		if cur.Discriminator != nil {
			return cur.Discriminator.PropertyName
		}
	}
	return ""
}

func (r *renderer) propertyType(m *codegen.Model, p *codegen.Property, discriminator string) string {
	switch {
	case p.DiscriminatorValue != "":
		return quote(p.DiscriminatorValue)
	case discriminator != "" && p.BaseName == discriminator && m.DiscriminatorOverride != nil:
		return quote(*m.DiscriminatorOverride)
	}
	var t string
	if len(p.Enum) > 0 && p.EnumName != "" {
		t = m.Name + r.opts.EnumSeparator() + p.EnumName
		if p.Type.Container == "array" {
			t = "Array<" + t + ">"
		}
	} else {
		t = p.Type.TS()
	}
	if p.Nullable {
		t += " | null"
	}
	return t
}

func (r *renderer) inlineEnums(m *codegen.Model, props []*codegen.Property) []enumView {
	var out []enumView
	for _, p := range props {
		if len(p.Enum) == 0 || p.EnumName == "" {
			continue
		}
		name := p.EnumName
		if r.opts.StringEnums {
			name = m.Name + r.opts.EnumSeparator() + p.EnumName
		}
		out = append(out, enumView{Name: name, Members: enumMembers(p.Enum)})
	}
	return out
}

func enumMembers(values []string) []enumMemberView {
	out := make([]enumMemberView, 0, len(values))
	seen := map[string]int{}
	for _, v := range values {
		name := enumMemberName(v)
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s%d", name, n)
		} else {
			seen[name] = 1
		}
		out = append(out, enumMemberView{Key: propertyKey(name), Value: quote(v)})
	}
	return out
}

func (r *renderer) apiView(g *codegen.OperationGroup) apiView {
	v := apiView{
		ClassName: g.ClassName,
		UseJslib:  r.opts.UseJslib,
		JslibURL:  jslibURLModule,
		Imports:   g.Imports,
	}
	for _, op := range g.Operations {
		v.Operations = append(v.Operations, r.operationView(op))
	}
	return v
}

func (r *renderer) operationView(op *codegen.Operation) operationView {
	v := operationView{
		Name:   op.Nickname,
		Method: op.Method,
		Path:   op.Path,
	}
	v.Doc = append(v.Doc, docLines(op.Summary)...)
	if op.Description != "" && op.Description != op.Summary {
		v.Doc = append(v.Doc, docLines(op.Description)...)
	}

	params := op.AllParams()
	sort.SliceStable(params, func(i, j int) bool { return params[i].Required && !params[j].Required })
	for _, p := range params {
		v.Args = append(v.Args, argView{
			Name:     p.Name,
			Type:     p.Type.TS(),
			Optional: !p.Required,
			Doc:      strings.Join(docLines(p.Description), " "),
		})
	}
	for _, p := range op.QueryParams {
		v.Query = append(v.Query, paramView{Name: p.Name, BaseName: p.BaseName})
	}
	for _, p := range op.HeaderParams {
		v.Headers = append(v.Headers, paramView{Name: p.Name, BaseName: p.BaseName})
	}

	if op.HasConsumes && len(op.Consumes) > 0 {
		v.ContentType = op.Consumes[0].MediaType
	}
	switch {
	case op.HasFormParams:
		for _, p := range op.FormParams {
			v.Form = append(v.Form, paramView{Name: p.Name, BaseName: p.BaseName})
		}
		v.FormMode = "object"
		if r.opts.UseJslib && !strings.HasPrefix(v.ContentType, "multipart/") {
			v.FormMode = "jslib"
		}
		if strings.HasPrefix(v.ContentType, "multipart/") {
			// k6 sets the multipart boundary itself.
			v.ContentType = ""
		}
	case op.HasBodyParam && op.BodyParam != nil:
		v.Body = op.BodyParam.Name
		v.BodyIsJSON = len(op.Consumes) == 0 || op.Consumes[0].IsJSON
	}

	if !op.ReturnType.IsZero() {
		v.HasReturn = true
		v.ReturnType = op.ReturnType.TS()
	}
	return v
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
