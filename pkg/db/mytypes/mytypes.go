package mytypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

// jsonb column types of the runs table
type (
	IntervalSlice []model.IntervalResult
	MetricsDoc    model.MetricsReport
)

func (h *IntervalSlice) Scan(value any) error {
	data, err := asBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &h)
}

func (h IntervalSlice) Value() (driver.Value, error) {
	if h == nil {
		h = IntervalSlice{}
	}
	return json.Marshal(h)
}

func (h *MetricsDoc) Scan(value any) error {
	data, err := asBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &h)
}

func (h MetricsDoc) Value() (driver.Value, error) {
	return json.Marshal(h)
}

func asBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("value is not []byte")
	}
}
