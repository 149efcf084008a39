package datalog

import (
	"strings"

	"github.com/aarondl/opt/null"
)

// Value is one cell of a datalog. Unparsable or blank cells are null and
// never take part in aggregates, while a parsed 0 does.
type Value = null.Val[float64]

func Num(v float64) Value {
	return null.From(v)
}

// Row maps column name to the cell value. Every row of a table carries all headers.
type Row map[string]Value

// Get returns the numeric value of col and whether it is present.
func (r Row) Get(col string) (float64, bool) {
	v, ok := r[col]
	if !ok {
		return 0, false
	}
	return v.Get()
}

type Table struct {
	Headers []string
	Rows    []Row
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) Has(col string) bool {
	for _, h := range t.Headers {
		if h == col {
			return true
		}
	}
	return false
}

// Resolve looks up the header for a well known column.
// An exact match wins, otherwise the first header starting with the
// column name (case-insensitive) is used, e.g. "Engine RPM" -> "Engine RPM (SAE)".
func (t *Table) Resolve(col Column) (string, bool) {
	name := string(col)
	if t.Has(name) {
		return name, true
	}
	lower := strings.ToLower(name)
	for _, h := range t.Headers {
		if strings.HasPrefix(strings.ToLower(h), lower) {
			return h, true
		}
	}
	return "", false
}

// ResolveFirst returns the first of the candidates present in the table.
func (t *Table) ResolveFirst(cols ...Column) (string, bool) {
	for _, c := range cols {
		if h, ok := t.Resolve(c); ok {
			return h, true
		}
	}
	return "", false
}

// Values returns the cells of header in row order.
func (t *Table) Values(header string) []Value {
	ret := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		ret[i] = r[header]
	}
	return ret
}

// Series resolves col and returns its cells. ok is false if the column is unknown.
func (t *Table) Series(col Column) (values []Value, ok bool) {
	h, ok := t.Resolve(col)
	if !ok {
		return nil, false
	}
	return t.Values(h), true
}

// HeadersWithPrefix returns all headers starting with prefix, in header order.
func (t *Table) HeadersWithPrefix(prefix string) []string {
	ret := []string{}
	for _, h := range t.Headers {
		if strings.HasPrefix(h, prefix) {
			ret = append(ret, h)
		}
	}
	return ret
}
