package datalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Write emits t in the given layout so that Parse(out, layout) yields the same values.
// units is written below the header and may be nil.
func Write(w io.Writer, t *Table, layout Layout, units []string) error {
	if layout == FixedOffset {
		for i := range FixedHeaderLine {
			if _, err := fmt.Fprintf(w, "Log Info %d\n", i); err != nil {
				return err
			}
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if units == nil {
		units = make([]string, len(t.Headers))
	}
	if err := cw.Write(units); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	blank := DynamicSkipRows - 2
	if layout == FixedOffset {
		blank = FixedFirstDataRow - FixedHeaderLine - 2
	}
	if _, err := io.WriteString(w, strings.Repeat("\n", blank)); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			if v, ok := row.Get(h); ok {
				rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
