// Package template resolves delivery path templates with named placeholder
// fields, for example:
//
//	{ProjectCode}_{Sequence}_{Shot}_{Version}/{Shot}_{Version}.%04d.exr
//
// Delivery templates resolve the fields ProjectCode, Sequence, Shot, and
// Version. Placeholders are written in braces and substituted from per-shot
// metadata; the printf-style frame token is left untouched for the frames
// package to resolve per frame.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var fieldRe = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// Template is a parsed path pattern with named placeholder fields.
type Template struct {
	raw    string
	fields []string
}

// Parse validates the pattern and returns a Template. Empty patterns and
// unterminated braces are rejected.
func Parse(pattern string) (Template, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return Template{}, fmt.Errorf("template pattern must not be empty")
	}
	if strings.Count(pattern, "{") != strings.Count(pattern, "}") {
		return Template{}, fmt.Errorf("template %q has unbalanced braces", pattern)
	}
	stripped := fieldRe.ReplaceAllString(pattern, "")
	if strings.ContainsAny(stripped, "{}") {
		return Template{}, fmt.Errorf("template %q has a malformed placeholder", pattern)
	}

	matches := fieldRe.FindAllStringSubmatch(pattern, -1)
	seen := make(map[string]struct{}, len(matches))
	fields := make([]string, 0, len(matches))
	for _, match := range matches {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
	}
	return Template{raw: pattern, fields: fields}, nil
}

// Fields returns the placeholder names in first-appearance order.
func (t Template) Fields() []string {
	cp := make([]string, len(t.fields))
	copy(cp, t.fields)
	return cp
}

// String returns the raw pattern.
func (t Template) String() string {
	return t.raw
}

// Apply substitutes every placeholder from the field map. A placeholder with
// no matching value is an error so a half-resolved path can never be written
// to disk.
func (t Template) Apply(fields map[string]string) (string, error) {
	if t.raw == "" {
		return "", fmt.Errorf("template is empty")
	}
	var missing []string
	resolved := fieldRe.ReplaceAllStringFunc(t.raw, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := fields[name]
		if !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, name)
			return token
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template %q missing fields: %s", t.raw, strings.Join(missing, ", "))
	}
	return resolved, nil
}

// FormatVersion renders a version number using the studio naming convention.
func FormatVersion(version int) string {
	return fmt.Sprintf("v%03d", version)
}
