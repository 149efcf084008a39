package server

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/service"
)

// uploads in memory up to this size, larger parts are spooled by net/http
const multipartMemory = 4 << 20

// readUploads returns the files named by fields. A single file may also be
// sent as the plain request body. The returned cleanup closes the files and
// removes multipart temp files and must be called on every path.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request, fields ...string) (
	uploads []service.Upload, cleanup func(), err error,
) {
	cleanup = func() {}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if len(fields) != 1 {
			return nil, cleanup, fmt.Errorf("%w: multipart/form-data with fields %v required",
				errBadRequest, fields)
		}
		return []service.Upload{{Name: fields[0], Content: r.Body}}, cleanup, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, cleanup, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	files := []multipart.File{}
	cleanup = func() {
		for _, f := range files {
			f.Close()
		}
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.log.Warn("could not remove multipart files")
		}
	}
	for _, field := range fields {
		f, hdr, err := r.FormFile(field)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("%w: file %q: %w", errBadRequest, field, err)
		}
		files = append(files, f)
		uploads = append(uploads, service.Upload{Name: hdr.Filename, Content: f})
	}
	return uploads, cleanup, nil
}

// weightParam reads the vehicle weight in lbs. Missing or non positive
// values select the relative curve.
func weightParam(v string) (null.Val[float64], error) {
	if v == "" {
		return null.Val[float64]{}, nil
	}
	w, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return null.Val[float64]{}, fmt.Errorf("%w: weight: %w", errBadRequest, err)
	}
	if w <= 0 {
		return null.Val[float64]{}, nil
	}
	return null.From(w), nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, key)
	}
	return n, nil
}

func boolParam(q url.Values, key string, def bool) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", errBadRequest, key, err)
	}
	return b, nil
}

// thresholdsParam applies threshold overrides from the query on top of
// base. Returns nil if the query has none.
//
//nolint:whitespace // can't make both editor and linter happy
func thresholdsParam(q url.Values, base config.Thresholds) (
	*config.Thresholds, error,
) {
	th := base
	floats := map[string]*float64{
		"wot":              &th.WOT,
		"knockSensorVolts": &th.KnockSensorVolts,
		"oilPressureFloor": &th.OilPressureFloor,
		"coolantCeiling":   &th.CoolantCeiling,
		"fuelTrimVariance": &th.FuelTrimVariance,
		"rpmBinWidth":      &th.RPMBinWidth,
		"stopSpeed":        &th.StopSpeed,
	}
	ints := map[string]*int{
		"smoothingWindow": &th.SmoothingWindow,
		"sampleStride":    &th.SampleStride,
	}
	found := false
	for key, target := range floats {
		if v := q.Get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", errBadRequest, key, err)
			}
			*target = f
			found = true
		}
	}
	for key, target := range ints {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", errBadRequest, key, err)
			}
			*target = n
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return &th, nil
}
