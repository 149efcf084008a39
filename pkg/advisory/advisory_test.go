//nolint:funlen // ok for tests
package advisory

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/testsupport/basedata"
)

func sampleObservations() *Observations {
	tbl := basedata.NewBuilder("Offset", "Engine RPM").
		Add(0, 1000).
		Add(0.1, nil).
		Table()
	checklist := model.Checklist{{Topic: "knock", Severity: model.SeverityPass, Text: "No knock detected"}}
	return BuildObservations(tbl, &model.MetricsReport{Rows: 2}, checklist, 1, 10)
}

func TestDecimate(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		stride int
		limit  int
		want   []int
	}{
		{"stride", 1000, 400, 100, []int{0, 400, 800}},
		{"capped", 100_000, 400, 3, []int{0, 400, 800}},
		{"empty", 0, 400, 100, []int{}},
		{"invalid stride", 3, 0, 100, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decimate(tt.n, tt.stride, tt.limit))
		})
	}
}

func TestBuildObservations(t *testing.T) {
	tbl := basedata.FullPullTable()
	obs := BuildObservations(tbl, &model.MetricsReport{}, model.Checklist{}, 40, 100)
	assert.Len(t, obs.Samples, 3)
	assert.Equal(t, basedata.FullHeaders, obs.Columns)

	data, err := json.Marshal(sampleObservations())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Engine RPM":null`)
	assert.Contains(t, string(data), `"checklist":"✅ No knock detected"`)
}

func TestAdvise(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  Add fuel.  "}}]}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "", WithAPIKey("secret"), WithModel("tuner-1"))
	require.NoError(t, err)
	text, err := c.Advise(context.Background(), sampleObservations())
	require.NoError(t, err)
	assert.Equal(t, "Add fuel.", text)
	assert.Equal(t, "tuner-1", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "No knock detected")
}

func TestAdviseCustomTextPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"output":{"text":"Looks healthy."}}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "$.output.text")
	require.NoError(t, err)
	text, err := c.Advise(context.Background(), sampleObservations())
	require.NoError(t, err)
	assert.Equal(t, "Looks healthy.", text)
}

func TestAdviseUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}},
		{"no json", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>")
		}},
		{"no text", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"choices":[]}`)
		}},
		{"blank text", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"choices":[{"message":{"content":"   "}}]}`)
		}},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c, err := NewClient(srv.URL, "", WithTimeout(50*time.Millisecond))
			require.NoError(t, err)
			_, err = c.Advise(context.Background(), sampleObservations())
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestAdviseNotConfigured(t *testing.T) {
	c, err := NewClient("", "")
	require.NoError(t, err)
	_, err = c.Advise(context.Background(), sampleObservations())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, strings.Contains(err.Error(), "no endpoint"))
}

func TestNewClientInvalidPath(t *testing.T) {
	_, err := NewClient("http://localhost", "$.choices[0")
	assert.Error(t, err)
}

func TestNewClientTimeout(t *testing.T) {
	c, err := NewClient("http://localhost", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)

	c, err = NewClient("http://localhost", "", WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.httpClient.Timeout)

	tests := []struct {
		name string
		opts func(hc *http.Client) []Option
	}{
		{
			name: "timeout first",
			opts: func(hc *http.Client) []Option {
				return []Option{WithTimeout(time.Second), WithHTTPClient(hc)}
			},
		},
		{
			name: "client first",
			opts: func(hc *http.Client) []Option {
				return []Option{WithHTTPClient(hc), WithTimeout(time.Second)}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &http.Client{Timeout: time.Minute}
			c, err := NewClient("http://localhost", "", tt.opts(hc)...)
			require.NoError(t, err)
			assert.Equal(t, time.Second, c.httpClient.Timeout)
			assert.Equal(t, time.Minute, hc.Timeout, "passed client must not be changed")
		})
	}

	hc := &http.Client{Timeout: time.Minute}
	c, err = NewClient("http://localhost", "", WithHTTPClient(hc))
	require.NoError(t, err)
	assert.Same(t, hc, c.httpClient)
}
