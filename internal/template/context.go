package template

import "strings"

// Context is the minimal view of a VU's state the Template Engine needs
// to resolve {{...}} placeholders (spec.md §4.1). internal/vu.Context
// projects itself into this shape at render time; the two are kept
// separate so the engine has no dependency on VU lifecycle machinery.
type Context struct {
	Variables    map[string]interface{}
	Extracted    map[string]interface{}
	VUID         int
	Iteration    int
	ScenarioName string
	// CSVRow/GlobalRow back the {{csv:...}} placeholder's bound-row
	// shortcut when no explicit column is given.
	CSVRow    map[string]string
	GlobalRow map[string]string
}

// lookup resolves a dotted path ("user.name") across variables, then
// extracted_data, then a small context root (vu_id, iteration).
func (c *Context) lookup(path string) (interface{}, bool) {
	if v, ok := dottedLookup(c.Variables, path); ok {
		return v, true
	}
	if v, ok := dottedLookup(c.Extracted, path); ok {
		return v, true
	}

	switch path {
	case "__VU", "vu_id":
		return c.VUID, true
	case "__ITER", "iteration":
		return c.Iteration, true
	}
	return nil, false
}

func dottedLookup(root map[string]interface{}, path string) (interface{}, bool) {
	if root == nil {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var cur interface{} = root
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// mergedMap builds the plain string-keyed map the spec's §4.1 rule 3
// passes to Handlebars rendering: variables ∪ extracted_data ∪ inline kv
// ∪ {vu_id, iteration, timestamp}.
func (c *Context) mergedMap(extra map[string]string, timestampUnixNano int64) map[string]interface{} {
	merged := make(map[string]interface{}, len(c.Variables)+len(c.Extracted)+len(extra)+3)
	for k, v := range c.Variables {
		merged[k] = v
	}
	for k, v := range c.Extracted {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	merged["vu_id"] = c.VUID
	merged["iteration"] = c.Iteration
	merged["timestamp"] = timestampUnixNano
	return merged
}
