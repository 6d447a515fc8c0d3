// Package jsonpath resolves a pragmatic subset of JSONPath (dotted
// fields and numeric array indices, the forms step configs actually
// write) against a JSON document, translating to gjson's dotted path
// syntax and delegating matching to it.
package jsonpath

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Extract resolves path against the given JSON document and returns the
// matched value as a string ("null" for a JSON null).
func Extract(json, path string) (string, error) {
	if json == "" {
		return "", fmt.Errorf("jsonpath: empty document")
	}
	if path == "" {
		return "", fmt.Errorf("jsonpath: empty path expression")
	}

	result := gjson.Get(json, toGjsonPath(path))
	if !result.Exists() {
		return "", fmt.Errorf("jsonpath: no match for %q", path)
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// ExtractMultiple resolves a named batch of path expressions against the
// same document. Successful extractions are returned even when others
// in the batch fail; failures are joined into a single error.
func ExtractMultiple(json string, paths map[string]string) (map[string]string, error) {
	if json == "" {
		return nil, fmt.Errorf("jsonpath: empty document")
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("jsonpath: no path expressions given")
	}

	out := make(map[string]string, len(paths))
	var failures []string
	for name, path := range paths {
		v, err := Extract(json, path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		out[name] = v
	}
	if len(failures) > 0 {
		return out, fmt.Errorf("jsonpath: %s", strings.Join(failures, "; "))
	}
	return out, nil
}

// toGjsonPath rewrites a JSONPath expression ($.a.b[0], $['a']) into
// gjson's dotted syntax (a.b.0). Filters, slices, and recursive descent
// are out of scope: nothing a step config uses exercises them.
func toGjsonPath(path string) string {
	if path == "$" || path == "" {
		return "@this"
	}

	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	path = strings.NewReplacer(`['`, "", `']`, "", `["`, "", `"]`, "").Replace(path)

	var b strings.Builder
	for _, r := range path {
		if r == '[' || r == ']' {
			b.WriteByte('.')
			continue
		}
		b.WriteRune(r)
	}

	collapsed := strings.ReplaceAll(b.String(), "..", ".")
	return strings.Trim(collapsed, ".")
}
