// Package template resolves the engine's {{...}} placeholder grammar
// (spec.md §4.1) against a per-VU Context: environment lookups, CSV
// cell/row binding, Handlebars-style file templates, synthetic faker
// data, built-in helpers, and dotted variable lookups.
//
// Grounded on internal/performance/v2/vu.go's resolveVariables (a manual
// strings.ReplaceAll pass), generalized into the seven-rule grammar and
// extended with github.com/mailgun/raymond/v2 (Handlebars) for rule 3
// and github.com/tidwall/gjson for the JSON-normalization step.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mailgun/raymond/v2"
	"github.com/tidwall/gjson"

	"github.com/vustorm/vustorm/internal/data"
	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/errs"
)

// Engine resolves templates against Contexts. It is process-scoped and
// owned by the Runner (spec.md §9 "Singletons"), injected into every VU.
type Engine struct {
	registry *data.Registry
	faker    *Faker
	log      *diag.Logger

	fileCache   map[string]string
	fileCacheMu sync.RWMutex
}

// New creates an Engine. registry supplies {{csv:...}} providers; faker
// supplies {{faker...}} data; log receives warnings for unknown
// placeholders (never fatal, per spec.md §4.1).
func New(registry *data.Registry, faker *Faker, log *diag.Logger) *Engine {
	if log == nil {
		log = diag.Default()
	}
	return &Engine{registry: registry, faker: faker, log: log, fileCache: make(map[string]string)}
}

var (
	envPattern      = regexp.MustCompile(`\{\{env\.([A-Za-z_][A-Za-z0-9_]*)\}\}`)
	csvPattern      = regexp.MustCompile(`\{\{csv:([^}|]+)(?:\|([^}]*))?\}\}`)
	tplFilePattern  = regexp.MustCompile(`\{\{template:([^}|]+)(?:\|([^}]*))?\}\}`)
	fakerPattern    = regexp.MustCompile(`\{\{faker\.([A-Za-z0-9_.]+)\}\}`)
	helperCallPat   = regexp.MustCompile(`\{\{(\w+)\(([^)]*)\)\}\}`)
	varPattern      = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_.]*)\}\}`)
)

// Render resolves every placeholder in tpl against ctx, in the order
// specified by spec.md §4.1 so earlier rules can feed later ones.
// Unknown placeholders (other than malformed helper calls) are left
// literal and logged, never failed.
func (e *Engine) Render(tpl string, ctx *Context) (string, error) {
	out := tpl
	out = e.resolveEnv(out)
	out = e.resolveCSV(out, ctx)
	out = e.resolveTemplateFiles(out, ctx)

	var terr error
	out, terr = e.resolveFaker(out, ctx)
	if terr != nil {
		return out, terr
	}
	out, terr = e.resolveHelpers(out)
	if terr != nil {
		return out, terr
	}
	out = e.resolveVars(out, ctx)
	return out, nil
}

func (e *Engine) resolveEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		groups := envPattern.FindStringSubmatch(m)
		return os.Getenv(groups[1])
	})
}

func (e *Engine) resolveCSV(s string, ctx *Context) string {
	return csvPattern.ReplaceAllStringFunc(s, func(m string) string {
		groups := csvPattern.FindStringSubmatch(m)
		file := strings.TrimSpace(groups[1])
		opts := parseKV(groups[2])

		mode := data.Mode(opts["mode"])
		column := opts["column"]

		providerOpts := data.Options{Delimiter: opts["delimiter"]}
		if v, ok := opts["randomize"]; ok && v == "true" {
			mode = data.ModeRandom
		}

		provider, err := e.registry.Get(file, providerOpts)
		if err != nil {
			e.log.Warn("template: csv placeholder failed for %q: %v", file, err)
			return m
		}

		row, ok, err := provider.RowFor(mode, ctx.VUID)
		if err != nil || !ok {
			e.log.Warn("template: csv placeholder exhausted for %q", file)
			return m
		}

		if column == "" {
			return formatRow(row)
		}
		return row[column]
	})
}

func formatRow(row map[string]string) string {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Sprintf("%v", row)
	}
	return string(b)
}

func (e *Engine) resolveTemplateFiles(s string, ctx *Context) string {
	return tplFilePattern.ReplaceAllStringFunc(s, func(m string) string {
		groups := tplFilePattern.FindStringSubmatch(m)
		file := strings.TrimSpace(groups[1])
		kv := parseKV(groups[2])

		body, err := e.readFile(file)
		if err != nil {
			e.log.Warn("template: file placeholder failed for %q: %v", file, err)
			return m
		}

		merged := ctx.mergedMap(kv, time.Now().UnixNano())
		rendered, err := raymond.Render(body, merged)
		if err != nil {
			e.log.Warn("template: handlebars render failed for %q: %v", file, err)
			return m
		}

		if gjson.Valid(rendered) {
			var v interface{}
			if json.Unmarshal([]byte(rendered), &v) == nil {
				if compact, err := json.Marshal(v); err == nil {
					return string(compact)
				}
			}
		}
		return rendered
	})
}

func (e *Engine) readFile(path string) (string, error) {
	e.fileCacheMu.RLock()
	if body, ok := e.fileCache[path]; ok {
		e.fileCacheMu.RUnlock()
		return body, nil
	}
	e.fileCacheMu.RUnlock()

	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	body := string(b)

	e.fileCacheMu.Lock()
	e.fileCache[path] = body
	e.fileCacheMu.Unlock()
	return body, nil
}

func (e *Engine) resolveFaker(s string, ctx *Context) (string, error) {
	var firstErr error
	out := fakerPattern.ReplaceAllStringFunc(s, func(m string) string {
		groups := fakerPattern.FindStringSubmatch(m)
		value, err := e.faker.Resolve(groups[1], ctx.VUID, ctx.Iteration)
		if err != nil {
			if firstErr == nil {
				firstErr = errs.Template("faker path %q: %v", groups[1], err)
			}
			e.log.Warn("template: %v", err)
			return m
		}
		return value
	})
	return out, nil // unknown faker paths are non-fatal per spec.md §4.1
}

var helperNames = map[string]bool{
	"randomInt": true, "randomFloat": true, "randomChoice": true,
	"uuid": true, "isoDate": true, "timestamp": true,
}

func (e *Engine) resolveHelpers(s string) (string, error) {
	var firstErr error
	out := helperCallPat.ReplaceAllStringFunc(s, func(m string) string {
		groups := helperCallPat.FindStringSubmatch(m)
		name := groups[1]
		if !helperNames[name] {
			return m // not a recognized helper call; leave for var/path resolution or literal
		}
		args := splitArgs(groups[2])
		value, err := callHelper(name, args)
		if err != nil {
			if firstErr == nil {
				firstErr = errs.Template("helper %s(%s): %v", name, groups[2], err)
			}
			e.log.Warn("template: malformed helper %s(%s): %v", name, groups[2], err)
			return m
		}
		return value
	})
	return out, firstErr
}

func (e *Engine) resolveVars(s string, ctx *Context) string {
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		groups := varPattern.FindStringSubmatch(m)
		path := groups[1]
		if v, ok := ctx.lookup(path); ok {
			return fmt.Sprintf("%v", v)
		}
		e.log.Warn("template: unknown placeholder %q left literal", m)
		return m
	})
}

func parseKV(raw string) map[string]string {
	result := make(map[string]string)
	if raw == "" {
		return result
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		result[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return result
}

func splitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntArg(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
