package codegen

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
)

const (
	importPrefix            = "./"
	modelImportParentPrefix = "../"
	defaultAPIFilename      = "default"
)

// Resolver maps logical names to class names, file names and import paths.
// It holds no state beyond the options it was built with.
type Resolver struct {
	opts Options
}

func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

func (r *Resolver) Options() Options { return r.opts }

// ModelName turns a schema name into the class name used in generated code,
// applying the configured name prefix/suffix and class suffix.
func (r *Resolver) ModelName(raw string) string {
	name := sanitizeName(raw)
	if r.opts.ModelNamePrefix != "" {
		name = r.opts.ModelNamePrefix + "_" + name
	}
	if r.opts.ModelNameSuffix != "" {
		name = name + "_" + r.opts.ModelNameSuffix
	}
	name = camelize(name)
	if name == "" {
		name = "Object"
	}
	if first, _ := utf8.DecodeRuneInString(name); unicode.IsDigit(first) {
		name = "Model" + name
	}
	return name + r.opts.ModelSuffix
}

// RemovePrefixSuffix strips the class suffix, then the capitalized name prefix,
// then the capitalized name suffix. Matching is case-sensitive and an affix is
// only removed when something remains.
func (r *Resolver) RemovePrefixSuffix(name string) string {
	result := trimSuffix(name, r.opts.ModelSuffix)
	if prefix := capitalize(r.opts.ModelNamePrefix); prefix != "" && len(result) > len(prefix) && strings.HasPrefix(result, prefix) {
		result = result[len(prefix):]
	}
	return trimSuffix(result, capitalize(r.opts.ModelNameSuffix))
}

func trimSuffix(name, suffix string) string {
	if suffix != "" && len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
		return name[:len(name)-len(suffix)]
	}
	return name
}

// ConvertFileName applies the configured file naming convention.
func (r *Resolver) ConvertFileName(name string) string {
	name = r.RemovePrefixSuffix(name)
	if r.opts.FileNaming == FileNamingKebabCase {
		return strcase.ToKebab(strcase.ToSnake(sanitizeName(name)))
	}
	return lowerFirstWord(camelize(sanitizeName(name)))
}

// ModelFilename returns the module-relative file a model is rendered into,
// e.g. "./petCategory". An ImportMapping entry is returned verbatim.
func (r *Resolver) ModelFilename(name string) string {
	if target, ok := r.opts.ImportMapping[name]; ok {
		return target
	}
	return importPrefix + r.ConvertFileName(r.ModelName(name)) + r.opts.ModelFileSuffix
}

// ModelImport returns the import path of a model as seen from an API file.
func (r *Resolver) ModelImport(name string) string {
	if target, ok := r.opts.ImportMapping[name]; ok {
		return target
	}
	stripped := r.RemovePrefixSuffix(name)
	if target, ok := r.opts.ImportMapping[stripped]; ok {
		return target
	}
	file := r.ModelFilename(stripped)
	return modelImportParentPrefix + r.opts.ModelPackage + "/" + strings.TrimPrefix(file, importPrefix)
}

// APIFilename names the file of an operations collection.
func (r *Resolver) APIFilename(name string) string {
	if strings.TrimSpace(name) == "" {
		return defaultAPIFilename
	}
	return r.ConvertFileName(name)
}

// APIClassName names the class generated for an operations collection.
func (r *Resolver) APIClassName(tag string) string {
	name := camelize(sanitizeName(tag))
	if name == "" {
		name = "Default"
	}
	return name + "Service"
}

// OperationName turns an operationId into a method name.
func (r *Resolver) OperationName(id string) string {
	return escapeReservedWord(lowerFirstWord(camelize(sanitizeName(id))))
}

// ParamName turns a parameter name into a TS identifier.
func (r *Resolver) ParamName(base string) string {
	name := lowerFirstWord(camelize(sanitizeName(base)))
	if name == "" {
		return "param"
	}
	if first, _ := utf8.DecodeRuneInString(name); unicode.IsDigit(first) {
		name = "_" + name
	}
	return escapeReservedWord(name)
}

// sanitizeName replaces everything but letters and digits with underscores.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// camelize capitalizes each underscore-separated word and joins them. Letters
// after the first of a word keep their case, so "APIResponse" stays intact.
func camelize(name string) string {
	var b strings.Builder
	for _, word := range strings.Split(name, "_") {
		b.WriteString(capitalize(word))
	}
	return b.String()
}

// lowerFirstWord lowercases the leading word of a PascalCase name. A run of
// capitals counts as one word: "HTTPStatus" becomes "httpStatus".
func lowerFirstWord(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		n--
	}
	if n == 0 {
		n = 1
	}
	for i := 0; i < n && i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + s[size:]
}

// TypeScript reserved words that cannot be used as bare identifiers.
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "implements": true,
	"import": true, "in": true, "instanceof": true, "interface": true, "let": true,
	"new": true, "null": true, "package": true, "private": true, "protected": true,
	"public": true, "return": true, "static": true, "super": true, "switch": true,
	"this": true, "throw": true, "true": true, "try": true, "type": true,
	"typeof": true, "var": true, "void": true, "while": true, "with": true,
	"yield": true,
}

func escapeReservedWord(name string) string {
	if reservedWords[name] {
		return "_" + name
	}
	return name
}
