// Package data implements the shared tabular Data Provider (spec.md
// §4.2): CSV rows handed out to VUs under next/unique/random cursor
// semantics, safe under concurrent callers.
//
// Grounded on internal/performance/v2/scheduler.go's atomic-counter /
// RWMutex-protected-map idioms, generalized from VU bookkeeping to row
// bookkeeping. No CSV library exists anywhere in the retrieved example
// pack, so parsing uses the standard library's encoding/csv (see
// DESIGN.md for the precedent: grafana-k6's own CSV output is stdlib-
// based too).
package data

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vustorm/vustorm/internal/errs"
)

// Row is one parsed CSV record, keyed by (possibly remapped) column
// name.
type Row map[string]string

// Mode identifies a cursor strategy (spec.md §4.2).
type Mode string

const (
	ModeNext   Mode = "next"
	ModeUnique Mode = "unique"
	ModeRandom Mode = "random"
)

// Options configures how a Provider loads and remaps a file.
type Options struct {
	// Delimiter forces a delimiter; empty triggers auto-detection among
	// ',', ';', '\t'.
	Delimiter string
	// Columns remaps source column name -> exported variable name.
	Columns map[string]string
	// CycleOnExhaustion controls NextRow/UniqueRow wraparound behavior.
	// Defaults to true for NextRow; for UniqueRow see spec.md §9 (wrap
	// when true, matching the source's default).
	CycleOnExhaustion bool
}

// Provider is a singleton per canonical file path: Load once, then hand
// out rows to many concurrent VUs.
type Provider struct {
	path    string
	opts    Options
	columns []string
	rows    []Row

	loadOnce sync.Once
	loadErr  error

	nextIndex atomic.Int64

	// uniqueIndex is a single shared slot counter: every VU draws from
	// it, so the rows handed out across all VUs partition the table
	// instead of each VU restarting its own count at 0.
	uniqueIndex atomic.Int64
}

// NewProvider constructs an unloaded Provider for path. Call Load before
// using Next/Unique/Random.
func NewProvider(path string, opts Options) *Provider {
	return &Provider{
		path: path,
		opts: opts,
	}
}

// Load reads and parses the CSV file. Idempotent: subsequent calls are
// no-ops that return the first call's error, if any.
func (p *Provider) Load() error {
	p.loadOnce.Do(func() {
		p.loadErr = p.load()
	})
	return p.loadErr
}

func (p *Provider) load() error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("open data file %q: %w", p.path, err)
	}
	defer f.Close()

	delim := p.opts.Delimiter
	if delim == "" {
		detected, derr := detectDelimiter(p.path)
		if derr != nil {
			return derr
		}
		delim = detected
	}
	if len(delim) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", delim)
	}

	r := csv.NewReader(f)
	r.Comma = rune(delim[0])
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("parse csv %q: %w", p.path, err)
	}
	if len(records) == 0 {
		p.columns = nil
		p.rows = nil
		return nil
	}

	header := records[0]
	exported := make([]string, len(header))
	for i, col := range header {
		name := col
		if p.opts.Columns != nil {
			if remapped, ok := p.opts.Columns[col]; ok {
				name = remapped
			}
		}
		exported[i] = name
	}
	p.columns = exported

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(exported))
		for i, col := range exported {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	p.rows = rows
	return nil
}

func detectDelimiter(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 4096)
	n, _ := f.Read(buf)
	firstLine := string(buf[:n])
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}

	best := ","
	bestCount := -1
	for _, candidate := range []string{",", ";", "\t"} {
		count := strings.Count(firstLine, candidate)
		if count > bestCount {
			bestCount = count
			best = candidate
		}
	}
	return best, nil
}

// Len returns the number of data rows (excluding header).
func (p *Provider) Len() int { return len(p.rows) }

// NextRow returns rows[next_index++ mod len] when CycleOnExhaustion is
// true (the NextRow default per spec.md §4.2); otherwise it returns
// ok=false once the cursor runs past the last row. next_index is atomic
// across all callers.
func (p *Provider) NextRow(vuID int) (Row, bool, error) {
	if len(p.rows) == 0 {
		return nil, false, errs.DataExhausted(p.path)
	}
	idx := p.nextIndex.Add(1) - 1
	if idx >= int64(len(p.rows)) {
		if !p.opts.CycleOnExhaustion {
			return nil, false, nil
		}
		idx = idx % int64(len(p.rows))
	}
	return p.rows[idx], true, nil
}

// UniqueRow assigns a globally monotonically increasing slot drawn from
// one shared counter: two distinct VUs never observe the same row
// within one Unique cursor's lifetime until the pool is exhausted
// (spec.md §4.2, §8 property 4) — the table is partitioned across all
// callers, not re-handed-out per VU.
//
// When the provider runs dry: if CycleOnExhaustion is true the cursor
// wraps (spec.md §9's resolution of the ambiguous case), otherwise
// ok=false.
func (p *Provider) UniqueRow(vuID int) (Row, bool, error) {
	if len(p.rows) == 0 {
		return nil, false, errs.DataExhausted(p.path)
	}

	slot := p.uniqueIndex.Add(1) - 1

	if slot >= int64(len(p.rows)) {
		if !p.opts.CycleOnExhaustion {
			return nil, false, nil
		}
		slot = slot % int64(len(p.rows))
	}
	return p.rows[slot], true, nil
}

// RandomRow picks uniformly at random. Never exhausts.
func (p *Provider) RandomRow(vuID int) (Row, error) {
	if len(p.rows) == 0 {
		return nil, errs.DataExhausted(p.path)
	}
	idx := rand.Intn(len(p.rows))
	return p.rows[idx], nil
}

// RowFor is a convenience dispatcher over the three cursor modes, used
// by the Template Engine's {{csv:...}} placeholder and by VU data
// binding alike.
func (p *Provider) RowFor(mode Mode, vuID int) (Row, bool, error) {
	switch mode {
	case ModeUnique:
		return p.UniqueRow(vuID)
	case ModeRandom:
		row, err := p.RandomRow(vuID)
		return row, err == nil, err
	case ModeNext, "":
		return p.NextRow(vuID)
	default:
		return nil, false, fmt.Errorf("unknown data provider mode %q", mode)
	}
}
