package metrics

import (
	"strconv"
	"strings"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
)

// MisfireEvents reconstructs the number of events from a cumulative counter.
// Only positive deltas below limit count, larger jumps are logger glitches and
// resets (negative deltas) are ignored. Absent cells are skipped, the delta is
// taken against the last present value.
func MisfireEvents(values []datalog.Value, limit float64) int {
	total := 0.0
	var last float64
	hasLast := false
	for _, v := range values {
		cur, ok := v.Get()
		if !ok {
			continue
		}
		if hasLast {
			if d := cur - last; d > 0 && d < limit {
				total += d
			}
		}
		last, hasLast = cur, true
	}
	return int(total)
}

// Cylinder extracts the cylinder number from a misfire header like
// "Misfire Current Cylinder #3" or "Misfire Current Cylinder #3 (counts)".
func Cylinder(header string) (int, bool) {
	rest, ok := strings.CutPrefix(header, datalog.MisfireColumnBase)
	if !ok {
		return 0, false
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
