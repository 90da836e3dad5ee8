package k6emitter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
)

// isIdentifier reports whether name can be used unquoted as a property key.
// Reserved words are fine in key position.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	if first, _ := utf8.DecodeRuneInString(name); unicode.IsDigit(first) {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}
	return true
}

// propertyKey renders an object or enum member key, quoting it when needed.
func propertyKey(name string) string {
	if isIdentifier(name) {
		return name
	}
	return quote(name)
}

// quote renders s as a single-quoted TypeScript string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}

// enumMemberName derives a PascalCase member name from an enum value.
func enumMemberName(value string) string {
	name := strcase.ToCamel(value)
	if name == "" {
		return "Empty"
	}
	return name
}

// docLines splits a description into comment lines that cannot close the
// surrounding block comment.
func docLines(s string) []string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "*/", "*\\/"))
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return lines
}
