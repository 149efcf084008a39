package service

import (
	"errors"
	"io"
	"os"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

// withUpload spools r into a temp file and hands it to fn.
// The file is removed on every path once fn returns.
func (s *Service) withUpload(r io.Reader, fn func(f *os.File) error) error {
	f, err := os.CreateTemp(s.tempDir, "upload-*.csv")
	if err != nil {
		return err
	}
	defer func() {
		f.Close()
		if err := os.Remove(f.Name()); err != nil {
			s.log.Warn("could not remove upload", log.String("file", f.Name()), log.ErrorField(err))
		}
	}()
	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return fn(f)
}

func parseOptions(quoted bool) []datalog.ParseOption {
	if quoted {
		return []datalog.ParseOption{datalog.WithQuotedFields()}
	}
	return nil
}

// parseUpload parses the uploaded content. Parse failures are reported
// with stage parse.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) parseUpload(r io.Reader, layout datalog.Layout, quoted bool) (
	t *datalog.Table, raw []byte, err error,
) {
	err = s.withUpload(r, func(f *os.File) error {
		var err error
		if raw, err = io.ReadAll(f); err != nil {
			return err
		}
		t, err = datalog.Parse(string(raw), layout, parseOptions(quoted)...)
		return err
	})
	if err != nil {
		if errors.Is(err, datalog.ErrParse) {
			return nil, nil, model.NewStageError(model.StageParse, err)
		}
		return nil, nil, err
	}
	return t, raw, nil
}
