package spec

import (
    "context"
    "fmt"
    "log/slog"
    "regexp"
    "sort"
    "strings"

    "github.com/getkin/kin-openapi/openapi3"

    "github.com/mark3labs/swagger2k6/internal/codegen"
)

type HttpMethod string

const (
    GET     HttpMethod = "get"
    POST    HttpMethod = "post"
    PUT     HttpMethod = "put"
    DELETE  HttpMethod = "delete"
    PATCH   HttpMethod = "patch"
    HEAD    HttpMethod = "head"
    OPTIONS HttpMethod = "options"
    TRACE   HttpMethod = "trace"
)

// defaultTag collects operations that carry no tag.
const defaultTag = "default"

// BuildOption configures how the codegen graph is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
    includeTags map[string]struct{}
    excludeTags map[string]struct{}
    methods     map[HttpMethod]struct{}
    pathRes     []*regexp.Regexp
    logger      *slog.Logger
    err         error
}

func addTags(set *map[string]struct{}, tags []string) {
    for _, t := range tags {
        t = strings.TrimSpace(t)
        if t == "" {
            continue
        }
        if *set == nil {
            *set = make(map[string]struct{}, len(tags))
        }
        (*set)[t] = struct{}{}
    }
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
    return func(c *buildConfig) { addTags(&c.includeTags, tags) }
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
    return func(c *buildConfig) { addTags(&c.excludeTags, tags) }
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
    return func(c *buildConfig) {
        for _, m := range methods {
            if c.methods == nil {
                c.methods = make(map[HttpMethod]struct{}, len(methods))
            }
            c.methods[HttpMethod(strings.ToLower(string(m)))] = struct{}{}
        }
    }
}

// WithPathPatterns keeps only operations whose path matches at least one of
// the provided regular expressions. An invalid pattern fails BuildGraph.
func WithPathPatterns(patterns []string) BuildOption {
    return func(c *buildConfig) {
        for _, p := range patterns {
            p = strings.TrimSpace(p)
            if p == "" {
                continue
            }
            re, err := regexp.Compile(p)
            if err != nil {
                if c.err == nil {
                    c.err = fmt.Errorf("invalid path pattern %q: %w", p, err)
                }
                continue
            }
            c.pathRes = append(c.pathRes, re)
        }
    }
}

// WithGraphLogger routes warnings about dangling references and mappings.
func WithGraphLogger(logger *slog.Logger) BuildOption {
    return func(c *buildConfig) { c.logger = logger }
}

// BuildGraph converts an OpenAPI v3 document into the model graph consumed by
// the post-processing pass. Names, file names and import paths are resolved
// with resolver; a nil resolver uses the default options.
func BuildGraph(ctx context.Context, doc *openapi3.T, resolver *codegen.Resolver, opts ...BuildOption) (*codegen.Graph, error) {
    if doc == nil {
        return nil, &SpecError{Code: InputError, Message: "spec: nil document"}
    }
    if resolver == nil {
        resolver = codegen.NewResolver(codegen.DefaultOptions())
    }
    cfg := &buildConfig{}
    for _, opt := range opts {
        opt(cfg)
    }
    if cfg.err != nil {
        return nil, &SpecError{Code: InputError, Message: cfg.err.Error(), Cause: cfg.err}
    }
    if cfg.logger == nil {
        cfg.logger = slog.Default()
    }

    b := newGraphBuilder(doc, resolver, cfg)
    models := b.buildModels()
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    groups := b.buildOperations()
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    return &codegen.Graph{Models: models, Operations: groups}, nil
}

func (b *graphBuilder) buildOperations() []*codegen.OperationGroup {
    if b.doc.Paths == nil {
        return nil
    }
    groups := make(map[string]*codegen.OperationGroup)

    pathKeys := make([]string, 0, len(b.doc.Paths))
    for p := range b.doc.Paths {
        pathKeys = append(pathKeys, p)
    }
    sort.Strings(pathKeys)

    for _, p := range pathKeys {
        item := b.doc.Paths[p]
        if item == nil {
            continue
        }
        ops := []struct {
            m HttpMethod
            o *openapi3.Operation
        }{
            {GET, item.Get},
            {POST, item.Post},
            {PUT, item.Put},
            {DELETE, item.Delete},
            {PATCH, item.Patch},
            {HEAD, item.Head},
            {OPTIONS, item.Options},
            {TRACE, item.Trace},
        }
        for _, pair := range ops {
            if pair.o == nil || !b.allowOperation(pair.m, p) {
                continue
            }
            tags := cleanTags(pair.o.Tags)
            if !allowByTags(tags, b.cfg) {
                continue
            }
            tag := defaultTag
            if len(tags) > 0 {
                tag = tags[0]
            }
            g, ok := groups[tag]
            if !ok {
                g = &codegen.OperationGroup{
                    Tag:       tag,
                    ClassName: b.resolver.APIClassName(tag),
                    Filename:  b.resolver.APIFilename(tag),
                }
                groups[tag] = g
            }
            g.Operations = append(g.Operations, b.operation(p, pair.m, item, pair.o))
        }
    }

    tags := make([]string, 0, len(groups))
    for t := range groups {
        tags = append(tags, t)
    }
    sort.Strings(tags)
    out := make([]*codegen.OperationGroup, 0, len(tags))
    for _, t := range tags {
        g := groups[t]
        uniqueNicknames(g.Operations)
        g.Imports = b.groupImports(g.Operations)
        out = append(out, g)
    }
    return out
}

func (b *graphBuilder) allowOperation(m HttpMethod, path string) bool {
    if len(b.cfg.methods) > 0 {
        if _, ok := b.cfg.methods[m]; !ok {
            return false
        }
    }
    if len(b.cfg.pathRes) == 0 {
        return true
    }
    for _, re := range b.cfg.pathRes {
        if re.MatchString(path) {
            return true
        }
    }
    return false
}

func cleanTags(in []string) []string {
    tags := make([]string, 0, len(in))
    for _, t := range in {
        if t = strings.TrimSpace(t); t != "" {
            tags = append(tags, t)
        }
    }
    return tags
}

func allowByTags(tags []string, cfg *buildConfig) bool {
    if len(cfg.includeTags) > 0 {
        ok := false
        for _, t := range tags {
            if _, yes := cfg.includeTags[t]; yes {
                ok = true
                break
            }
        }
        if !ok {
            return false
        }
    }
    for _, t := range tags {
        if _, blocked := cfg.excludeTags[t]; blocked {
            return false
        }
    }
    return true
}

func (b *graphBuilder) operation(path string, method HttpMethod, item *openapi3.PathItem, op *openapi3.Operation) *codegen.Operation {
    o := &codegen.Operation{
        OperationID: strings.TrimSpace(op.OperationID),
        Method:      strings.ToUpper(string(method)),
        Summary:     strings.TrimSpace(op.Summary),
        Description: strings.TrimSpace(op.Description),
    }
    id := o.OperationID
    if id == "" {
        id = string(method) + "_" + path
    }
    o.Nickname = b.resolver.OperationName(id)

    for _, p := range mergeParameters(item.Parameters, op.Parameters) {
        param := codegen.Parameter{
            Name:        b.resolver.ParamName(p.Name),
            BaseName:    p.Name,
            In:          p.In,
            Required:    p.Required || p.In == openapi3.ParameterInPath,
            Description: strings.TrimSpace(p.Description),
            Type:        b.typeOf(p.Schema),
        }
        switch p.In {
        case openapi3.ParameterInPath:
            // Placeholders must name the generated identifier.
            path = strings.ReplaceAll(path, "{"+p.Name+"}", "{"+param.Name+"}")
            o.PathParams = append(o.PathParams, param)
        case openapi3.ParameterInQuery:
            o.QueryParams = append(o.QueryParams, param)
        case openapi3.ParameterInHeader:
            o.HeaderParams = append(o.HeaderParams, param)
        default:
            b.cfg.logger.Debug("skipping parameter", slog.String("operation", o.Nickname),
                slog.String("name", p.Name), slog.String("in", p.In))
        }
    }
    o.Path = path

    if op.RequestBody != nil && op.RequestBody.Value != nil {
        b.requestBody(o, op.RequestBody.Value)
    }
    o.ReturnType = b.returnType(op.Responses)
    o.Imports = operationImports(o)
    return o
}

// mergeParameters keeps path-level parameters first; operation-level ones
// override by location and name in place.
func mergeParameters(pathLevel, opLevel openapi3.Parameters) []*openapi3.Parameter {
    var out []*openapi3.Parameter
    index := make(map[string]int)
    for _, refs := range []openapi3.Parameters{pathLevel, opLevel} {
        for _, ref := range refs {
            if ref == nil || ref.Value == nil || strings.TrimSpace(ref.Value.Name) == "" {
                continue
            }
            key := ref.Value.In + ":" + ref.Value.Name
            if i, ok := index[key]; ok {
                out[i] = ref.Value
                continue
            }
            index[key] = len(out)
            out = append(out, ref.Value)
        }
    }
    return out
}

const (
    requestBodyNameExt   = "x-codegen-request-body-name"
    originalParamExt     = "x-originalParamName"
    multipartFormData    = "multipart/form-data"
    defaultBodyParamName = "body"
)

func (b *graphBuilder) requestBody(o *codegen.Operation, rb *openapi3.RequestBody) {
    mediaTypes := make([]string, 0, len(rb.Content))
    for mt := range rb.Content {
        mediaTypes = append(mediaTypes, mt)
    }
    sort.Strings(mediaTypes)
    for _, mt := range mediaTypes {
        o.Consumes = append(o.Consumes, codegen.Consumes{IsJSON: isJSONMediaType(mt), MediaType: mt})
    }
    o.HasConsumes = len(o.Consumes) > 0

    for _, mt := range mediaTypes {
        if !isFormMediaType(mt) {
            continue
        }
        media := rb.Content[mt]
        if media == nil || media.Schema == nil || media.Schema.Value == nil {
            continue
        }
        s := media.Schema.Value
        for _, name := range sortedProperties(s) {
            o.FormParams = append(o.FormParams, codegen.Parameter{
                Name:        b.resolver.ParamName(name),
                BaseName:    name,
                In:          "formData",
                Required:    contains(s.Required, name),
                Description: schemaDescription(s.Properties[name]),
                Type:        b.typeOf(s.Properties[name]),
            })
        }
        o.HasFormParams = len(o.FormParams) > 0
        return
    }

    media := pickMedia(rb.Content, mediaTypes)
    if media == nil {
        return
    }
    base := defaultBodyParamName
    for _, key := range []string{requestBodyNameExt, originalParamExt} {
        if v, ok := extensionString(rb.Extensions, key); ok && strings.TrimSpace(v) != "" {
            base = v
            break
        }
    }
    o.BodyParam = &codegen.Parameter{
        Name:        b.resolver.ParamName(base),
        BaseName:    base,
        In:          "body",
        Required:    rb.Required,
        Description: strings.TrimSpace(rb.Description),
        Type:        b.typeOf(media.Schema),
    }
    o.HasBodyParam = true
}

// returnType reads the first 2xx response, in status order, that has content.
func (b *graphBuilder) returnType(responses openapi3.Responses) codegen.TypeRef {
    codes := make([]string, 0, len(responses))
    for code := range responses {
        codes = append(codes, code)
    }
    sort.Strings(codes)
    for _, code := range codes {
        ref := responses[code]
        if !strings.HasPrefix(code, "2") || ref == nil || ref.Value == nil || len(ref.Value.Content) == 0 {
            continue
        }
        mediaTypes := make([]string, 0, len(ref.Value.Content))
        for mt := range ref.Value.Content {
            mediaTypes = append(mediaTypes, mt)
        }
        sort.Strings(mediaTypes)
        if media := pickMedia(ref.Value.Content, mediaTypes); media != nil && media.Schema != nil {
            return b.typeOf(media.Schema)
        }
    }
    return codegen.TypeRef{}
}

// pickMedia prefers a JSON media type, else the first in order.
func pickMedia(content openapi3.Content, ordered []string) *openapi3.MediaType {
    for _, mt := range ordered {
        if isJSONMediaType(mt) && content[mt] != nil {
            return content[mt]
        }
    }
    for _, mt := range ordered {
        if content[mt] != nil {
            return content[mt]
        }
    }
    return nil
}

func isJSONMediaType(mt string) bool {
    return strings.Contains(strings.ToLower(mt), "json")
}

func isFormMediaType(mt string) bool {
    mt = strings.ToLower(strings.TrimSpace(mt))
    return strings.HasPrefix(mt, codegen.MediaTypeForm) || strings.HasPrefix(mt, multipartFormData)
}

func operationImports(o *codegen.Operation) []string {
    var out []string
    seen := make(map[string]struct{})
    add := func(t codegen.TypeRef) {
        for _, name := range t.ModelNames() {
            if _, ok := seen[name]; ok {
                continue
            }
            seen[name] = struct{}{}
            out = append(out, name)
        }
    }
    for _, p := range o.AllParams() {
        add(p.Type)
    }
    add(o.ReturnType)
    return out
}

func (b *graphBuilder) groupImports(ops []*codegen.Operation) []codegen.OperationImport {
    set := make(map[string]struct{})
    for _, op := range ops {
        for _, name := range op.Imports {
            set[name] = struct{}{}
        }
    }
    names := make([]string, 0, len(set))
    for n := range set {
        names = append(names, n)
    }
    sort.Strings(names)
    out := make([]codegen.OperationImport, 0, len(names))
    for _, n := range names {
        out = append(out, codegen.OperationImport{Classname: n, Import: b.resolver.ModelImport(n)})
    }
    return out
}

// uniqueNicknames suffixes repeated method names within one group.
func uniqueNicknames(ops []*codegen.Operation) {
    seen := make(map[string]int, len(ops))
    for _, op := range ops {
        n := seen[op.Nickname]
        seen[op.Nickname] = n + 1
        if n > 0 {
            op.Nickname = fmt.Sprintf("%s%d", op.Nickname, n)
        }
    }
}
