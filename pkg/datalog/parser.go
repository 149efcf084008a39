package datalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrParse          = errors.New("parse error")
	ErrMissingColumns = errors.New("required columns missing")
)

// Layout selects how the header row is located.
type Layout int

const (
	// Dynamic searches the first line starting with "offset".
	Dynamic Layout = iota
	// FixedOffset expects the header at a fixed line index (stored runs).
	FixedOffset
)

const (
	DynamicSkipRows   = 3
	FixedHeaderLine   = 15
	FixedFirstDataRow = 19
)

func (l Layout) String() string {
	switch l {
	case Dynamic:
		return "dynamic"
	case FixedOffset:
		return "fixed"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

type parseConfig struct {
	quoted bool
	skip   int
}

type ParseOption func(*parseConfig)

// WithQuotedFields enables RFC4180 style quoting ("a,b" and doubled quotes).
func WithQuotedFields() ParseOption {
	return func(c *parseConfig) {
		c.quoted = true
	}
}

// WithSkipRows overrides the number of lines between the header and the
// first data line for the Dynamic layout.
func WithSkipRows(n int) ParseOption {
	return func(c *parseConfig) {
		c.skip = n
	}
}

func ParseReader(r io.Reader, layout Layout, opts ...ParseOption) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return Parse(string(data), layout, opts...)
}

//nolint:cyclop // by design
func Parse(content string, layout Layout, opts ...ParseOption) (*Table, error) {
	cfg := &parseConfig{skip: DynamicSkipRows}
	for _, opt := range opts {
		opt(cfg)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", ErrParse)
	}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	headerIdx, dataIdx := -1, -1
	switch layout {
	case Dynamic:
		for i, line := range lines {
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "offset") {
				headerIdx = i
				break
			}
		}
		dataIdx = headerIdx + cfg.skip
	case FixedOffset:
		if len(lines) > FixedHeaderLine {
			headerIdx = FixedHeaderLine
		}
		dataIdx = FixedFirstDataRow
	default:
		return nil, fmt.Errorf("%w: unknown layout %v", ErrParse, layout)
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: no header row found (%s layout)", ErrParse, layout)
	}

	split := splitPlain
	if cfg.quoted {
		split = splitQuoted
	}
	headers, err := split(lines[headerIdx])
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrParse, err)
	}
	seen := make(map[string]struct{}, len(headers))
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
		if _, ok := seen[headers[i]]; ok {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrParse, headers[i])
		}
		seen[headers[i]] = struct{}{}
	}
	if len(headers) < 2 {
		return nil, fmt.Errorf("%w: header row has no columns", ErrParse)
	}

	t := &Table{Headers: headers, Rows: []Row{}}
	for i := dataIdx; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || !strings.Contains(line, ",") {
			continue
		}
		fields, err := split(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrParse, i+1, err)
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			if j < len(fields) {
				row[h] = ParseValue(fields[j])
			} else {
				row[h] = Value{}
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrParse)
	}
	return t, nil
}

// ParseValue converts a cell. Blank, unparsable and non-finite cells are null.
func ParseValue(field string) Value {
	f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Num(f)
}

// RequireColumns fails with ErrMissingColumns unless all cols resolve.
func (t *Table) RequireColumns(cols ...Column) error {
	missing := []string{}
	for _, c := range cols {
		if _, ok := t.Resolve(c); !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %w: %s", ErrParse, ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func splitPlain(line string) ([]string, error) {
	return strings.Split(line, ","), nil
}

func splitQuoted(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.Read()
}
