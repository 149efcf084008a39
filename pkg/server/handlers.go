package server

import (
	"fmt"
	"net/http"

	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/leaderboard"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing/dyno"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/service"
)

const defaultRunsLimit = 20

// handleAnalyze serves checklist, metrics and advisory of one log.
// Query: quoted, advisory (default true), dyno, weight and threshold overrides.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	th, err := thresholdsParam(q, s.svc.Thresholds())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req := &service.AnalyzeRequest{Layout: datalog.Dynamic, Thresholds: th}
	if req.Quoted, err = boolParam(q, "quoted", false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Advisory, err = boolParam(q, "advisory", true); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Dyno, err = boolParam(q, "dyno", false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.WeightLbs, err = weightParam(q.Get("weight")); err != nil {
		s.writeError(w, r, err)
		return
	}
	uploads, cleanup, err := s.readUploads(w, r, "file")
	defer cleanup()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Content = uploads[0].Content

	res, err := s.svc.Analyze(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDyno serves the dyno curve as json or, with format=png, as chart.
func (s *Server) handleDyno(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format != "" && format != "json" && format != "png" {
		s.writeError(w, r, fmt.Errorf("%w: unknown format %q", errBadRequest, format))
		return
	}
	th, err := thresholdsParam(q, s.svc.Thresholds())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req := &service.DynoRequest{Thresholds: th}
	if req.WeightLbs, err = weightParam(q.Get("weight")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Quoted, err = boolParam(q, "quoted", false); err != nil {
		s.writeError(w, r, err)
		return
	}
	uploads, cleanup, err := s.readUploads(w, r, "file")
	defer cleanup()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Content = uploads[0].Content

	res, err := s.svc.Dyno(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if format != "png" {
		writeJSON(w, http.StatusOK, res)
		return
	}
	if res.Curve == nil {
		// nothing to draw
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: res.Error,
			Stage: model.StageSweep,
		})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := dyno.RenderPNG(w, res.Curve); err != nil {
		log.GetFromContext(r.Context()).Error("could not render chart", log.ErrorField(err))
	}
}

// handleOverlay compares the files a and b.
func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	th, err := thresholdsParam(r.URL.Query(), s.svc.Thresholds())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	uploads, cleanup, err := s.readUploads(w, r, "a", "b")
	defer cleanup()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Overlay(r.Context(), uploads[0], uploads[1], th)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSaveRun stores a fixed layout export. Form values: name, vehicle, weight.
func (s *Server) handleSaveRun(w http.ResponseWriter, r *http.Request) {
	uploads, cleanup, err := s.readUploads(w, r, "file")
	defer cleanup()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req := &service.SaveRequest{
		Name:    r.FormValue("name"),
		Vehicle: r.FormValue("vehicle"),
		Content: uploads[0].Content,
	}
	if req.Name == "" {
		req.Name = uploads[0].Name
	}
	if req.WeightLbs, err = weightParam(r.FormValue("weight")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Thresholds, err = thresholdsParam(r.URL.Query(), s.svc.Thresholds()); err != nil {
		s.writeError(w, r, err)
		return
	}

	run, err := s.svc.SaveRun(r.Context(), req)
	if err != nil {
		if run != nil {
			// analysis succeeded, only storing failed
			log.GetFromContext(r.Context()).Error("run not stored", log.ErrorField(err))
			writeJSON(w, statusOf(err), errorBody{
				Error: err.Error(),
				Stage: model.StageOf(err),
				Run:   run,
			})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit", defaultRunsLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	runs, err := s.svc.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func runID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid run id: %w", errBadRequest, err)
	}
	return id, nil
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.svc.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteRun(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit", leaderboard.DefaultLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.svc.Leaderboard(r.Context(), r.PathValue("band"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
