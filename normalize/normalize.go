// Package normalize rewrites vendor spreadsheet headers onto the canonical
// CDR vocabulary. Known header spellings win outright; columns left over are
// classified from a handful of their values.
package normalize

import (
	"github.com/jalad-shrimali/cdr-insight/cdr"
)

// SampleSize is how many non-empty values per column the pattern tier sees.
const SampleSize = 10

// Mapping is original header → canonical field, for mapped columns only.
type Mapping map[string]string

// Normalizer applies an exact tier and then a pattern tier. A canonical field
// is claimed by the first column that reaches it.
type Normalizer struct {
	Exact   []Rule
	Pattern []Rule
}

// Default is the normalizer with the built-in rule tables.
func Default() *Normalizer {
	return &Normalizer{Exact: ExactRules(), Pattern: PatternRules()}
}

// Normalize is Default().Normalize(t).
func Normalize(t cdr.Table) cdr.Table { return Default().Normalize(t) }

func Infer(t cdr.Table) Mapping { return Default().Infer(t) }

// Infer decides the mapping for every column of t.
func (n *Normalizer) Infer(t cdr.Table) Mapping {
	cols := columns(t)
	m := Mapping{}
	claimed := map[string]bool{}

	apply := func(rules []Rule) {
		for _, c := range cols {
			if _, done := m[c.Header]; done {
				continue
			}
			for _, r := range rules {
				if claimed[r.Canonical] || !r.Match(c) {
					continue
				}
				m[c.Header] = r.Canonical
				claimed[r.Canonical] = true
				break
			}
		}
	}
	apply(n.Exact)
	apply(n.Pattern)
	return m
}

// Normalize returns a copy of t with mapped keys renamed. Unmapped keys pass
// through; if one collides with a canonical field the canonical value wins.
func (n *Normalizer) Normalize(t cdr.Table) cdr.Table {
	m := n.Infer(t)

	header := make([]string, len(t.Header))
	for i, h := range t.Header {
		if canon, ok := m[h]; ok {
			header[i] = canon
		} else {
			header[i] = h
		}
	}

	rows := make([]cdr.RawRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		out := make(cdr.RawRow, len(r))
		for k, v := range r {
			if _, ok := m[k]; !ok {
				out[k] = v
			}
		}
		for k, v := range r {
			if canon, ok := m[k]; ok {
				out[canon] = v
			}
		}
		rows = append(rows, out)
	}
	return cdr.Table{Header: header, Rows: rows}
}

func columns(t cdr.Table) []Column {
	cols := make([]Column, 0, len(t.Header))
	for _, h := range t.Header {
		c := Column{Header: h, Norm: cdr.Norm(h)}
		for _, r := range t.Rows {
			if len(c.Samples) == SampleSize {
				break
			}
			if v := cdr.Clean(r[h]); v != "" {
				c.Samples = append(c.Samples, v)
			}
		}
		cols = append(cols, c)
	}
	return cols
}
