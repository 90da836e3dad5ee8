package spec

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "net/url"
    "os"
    "path/filepath"
    "regexp"
    "strings"
    "time"

    openapi2 "github.com/getkin/kin-openapi/openapi2"
    "github.com/getkin/kin-openapi/openapi2conv"
    "github.com/getkin/kin-openapi/openapi3"
    "gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
    InputError      ErrorCode = "InputError"
    NetworkError    ErrorCode = "NetworkError"
    ParseError      ErrorCode = "ParseError"
    ValidationError ErrorCode = "ValidationError"
    ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
    Code        ErrorCode
    Message     string
    Location    string // file path or URL
    JSONPointer string // e.g. "#/paths/~1pets/get"
    Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
    // HTTPTimeout bounds each HTTP request.
    HTTPTimeout time.Duration
    // MaxRetries for transient HTTP failures (>=500, 429, or network errors).
    MaxRetries int
    // BackoffBase is the base delay for exponential backoff.
    BackoffBase time.Duration
    // AllowFileRefs permits file-based external refs for remote documents.
    // Local documents may always reference sibling files.
    AllowFileRefs bool
    Logger        *slog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
    return Settings{
        HTTPTimeout: 10 * time.Second,
        MaxRetries:  3,
        BackoffBase: 200 * time.Millisecond,
    }
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option    { return func(s *Settings) { s.AllowFileRefs = allow } }
func WithLogger(l *slog.Logger) Option       { return func(s *Settings) { s.Logger = l } }

// source is the raw input document and where it came from.
type source struct {
    raw      []byte
    location string
    uri      *url.URL // nil for local files
}

// Load reads, validates, and returns an OpenAPI v3 document. Swagger 2.0
// input is converted to v3 via kin-openapi openapi2conv.
//
// input may be a filesystem path or an http/https URL. file:// URLs are
// rejected.
func Load(ctx context.Context, input string, opts ...Option) (*openapi3.T, error) {
    if strings.TrimSpace(input) == "" {
        return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
    }
    settings := DefaultSettings()
    for _, opt := range opts {
        opt(&settings)
    }
    if settings.Logger == nil {
        settings.Logger = slog.Default()
    }

    src, err := readSource(ctx, input, settings)
    if err != nil {
        return nil, err
    }
    version, err := detectSpecVersion(src.raw)
    if err != nil {
        return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: src.location, Cause: err}
    }

    var doc *openapi3.T
    switch version {
    case 3:
        doc, err = src.loadV3(ctx, settings)
    case 2:
        doc, err = src.convertV2(ctx, settings)
    }
    if err != nil {
        return nil, err
    }

    if verr := doc.Validate(ctx); verr != nil {
        if !canProceedDespiteValidation(verr) {
            return nil, mapValidateOrParseErr(verr, src.location)
        }
        settings.Logger.Warn("document has validation errors, continuing",
            slog.String("location", src.location), slog.Any("error", verr))
    }
    return doc, nil
}

func readSource(ctx context.Context, input string, settings Settings) (*source, error) {
    u, uerr := url.Parse(input)
    if uerr == nil && strings.EqualFold(u.Scheme, "file") {
        return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked", Location: input}
    }
    if uerr == nil && u.Scheme != "" && u.Host != "" {
        scheme := strings.ToLower(u.Scheme)
        if scheme != "http" && scheme != "https" {
            return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
        }
        raw, err := fetchWithRetry(ctx, input, settings)
        if err != nil {
            return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
        }
        return &source{raw: raw, location: input, uri: u}, nil
    }

    abs, err := filepath.Abs(input)
    if err != nil {
        return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
    }
    raw, err := os.ReadFile(abs)
    if err != nil {
        return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
    }
    return &source{raw: raw, location: abs}, nil
}

func (s *source) loadV3(ctx context.Context, settings Settings) (*openapi3.T, error) {
    loader := newLoader(ctx, settings, s.uri == nil)
    var (
        doc *openapi3.T
        err error
    )
    if s.uri == nil {
        doc, err = loader.LoadFromFile(s.location)
    } else {
        doc, err = loader.LoadFromDataWithPath(s.raw, s.uri)
    }
    if err != nil {
        return nil, mapValidateOrParseErr(err, s.location)
    }
    return doc, nil
}

func (s *source) convertV2(ctx context.Context, settings Settings) (*openapi3.T, error) {
    raw := s.raw
    if fixed, changed, _ := preprocessV2ForCompatibility(raw); changed {
        settings.Logger.Debug("rewrote incompatible swagger 2.0 operations", slog.String("location", s.location))
        raw = fixed
    }
    doc, err := convertV2ToV3(raw)
    if err != nil {
        return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: s.location, Cause: err}
    }
    loader := newLoader(ctx, settings, s.uri == nil)
    if err := loader.ResolveRefsIn(doc, s.uri); err != nil {
        settings.Logger.Warn("failed to resolve refs after conversion",
            slog.String("location", s.location), slog.Any("error", err))
    }
    return doc, nil
}

func newLoader(ctx context.Context, settings Settings, rootIsFile bool) *openapi3.Loader {
    loader := openapi3.NewLoader()
    loader.Context = ctx
    loader.IsExternalRefsAllowed = true
    allowFile := settings.AllowFileRefs || rootIsFile
    loader.ReadFromURIFunc = func(_ *openapi3.Loader, uri *url.URL) ([]byte, error) {
        switch strings.ToLower(uri.Scheme) {
        case "", "file":
            if !allowFile {
                return nil, fmt.Errorf("blocked file ref: %s", uri.String())
            }
            path := uri.Path
            if path == "" {
                path = uri.Opaque
            }
            return os.ReadFile(path)
        case "http", "https":
            return fetchWithRetry(ctx, uri.String(), settings)
        default:
            return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
        }
    }
    return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
    var root struct {
        OpenAPI string `yaml:"openapi"`
        Swagger string `yaml:"swagger"`
    }
    if err := yaml.Unmarshal(data, &root); err != nil {
        return 0, fmt.Errorf("parse spec: %w", err)
    }
    switch {
    case strings.HasPrefix(strings.TrimSpace(root.OpenAPI), "3."):
        return 3, nil
    case strings.HasPrefix(strings.TrimSpace(root.Swagger), "2."):
        return 2, nil
    }
    return 0, errors.New("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
    var v2 openapi2.T
    if err := yaml.Unmarshal(data, &v2); err != nil {
        return nil, err
    }
    return openapi2conv.ToV3(&v2)
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
    client := &http.Client{Timeout: settings.HTTPTimeout}
    backoff := settings.BackoffBase
    if backoff <= 0 {
        backoff = 200 * time.Millisecond
    }
    attempts := settings.MaxRetries
    if attempts <= 0 {
        attempts = 1
    }
    var lastErr error
    for i := 0; i < attempts; i++ {
        body, retry, err := fetchOnce(ctx, client, rawURL)
        if err == nil {
            return body, nil
        }
        if !retry {
            return nil, err
        }
        lastErr = err
        if i == attempts-1 {
            break
        }
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        case <-time.After(backoff):
        }
        backoff *= 2
    }
    if lastErr == nil {
        lastErr = errors.New("fetch failed")
    }
    return nil, lastErr
}

// fetchOnce performs one GET and reports whether a failure is transient.
func fetchOnce(ctx context.Context, client *http.Client, rawURL string) ([]byte, bool, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
    if err != nil {
        return nil, false, err
    }
    resp, err := client.Do(req)
    if err != nil {
        return nil, true, err
    }
    defer resp.Body.Close()
    switch {
    case resp.StatusCode < 300:
        body, err := io.ReadAll(resp.Body)
        return body, false, err
    case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
        return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
    default:
        body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
        return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
    }
}

func mapValidateOrParseErr(err error, location string) error {
    code := ValidationError
    msg := strings.ToLower(err.Error())
    if strings.Contains(msg, "parse") || strings.Contains(msg, "invalid character") {
        code = ParseError
    }
    return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: extractJSONPointer(err), Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
    if err == nil {
        return ""
    }
    var me openapi3.MultiError
    if errors.As(err, &me) && len(me) > 0 {
        return extractJSONPointer(me[0])
    }
    var se *openapi3.SchemaError
    if errors.As(err, &se) {
        if parts := se.JSONPointer(); len(parts) > 0 {
            return "#/" + strings.Join(parts, "/")
        }
        if se.SchemaField != "" {
            return se.SchemaField
        }
    }
    return jsonPtrRe.FindString(err.Error())
}

// canProceedDespiteValidation reports validation errors a best-effort build
// can survive, such as unresolved $ref entries.
func canProceedDespiteValidation(err error) bool {
    if err == nil {
        return true
    }
    return strings.Contains(strings.ToLower(err.Error()), "unresolved ref")
}
