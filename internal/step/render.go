package step

import (
	"github.com/vustorm/vustorm/internal/errs"
	"github.com/vustorm/vustorm/internal/template"
)

// renderPayload deep-walks a step's payload tree, applying the Template
// Engine to every string field (spec.md §4.4 step 3). Maps, slices, and
// scalars are all walked; other types pass through unchanged.
func renderPayload(engine *template.Engine, payload map[string]interface{}, tctx *template.Context) (map[string]interface{}, error) {
	if payload == nil {
		return nil, nil
	}
	rendered, err := renderValue(engine, payload, tctx)
	if err != nil {
		return nil, err
	}
	out, _ := rendered.(map[string]interface{})
	return out, nil
}

func renderValue(engine *template.Engine, v interface{}, tctx *template.Context) (interface{}, error) {
	switch t := v.(type) {
	case string:
		rendered, err := engine.Render(t, tctx)
		if err != nil {
			return nil, errs.Wrap(errs.KindTemplate, "render payload string", err)
		}
		return rendered, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			rv, err := renderValue(engine, val, tctx)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			rv, err := renderValue(engine, val, tctx)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}
