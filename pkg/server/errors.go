package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/leaderboard"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/repository"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/service"
)

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string      `json:"error"`
	Stage model.Stage `json:"stage,omitempty"`
	// the analysed run if only storing it failed
	Run *model.Run `json:"run,omitempty"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, datalog.ErrMissingColumns):
		return http.StatusUnprocessableEntity
	case model.StageOf(err) == model.StageParse, errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRunNotFound), errors.Is(err, leaderboard.ErrUnknownBand):
		return http.StatusNotFound
	case model.StageOf(err) == model.StageSave,
		errors.Is(err, repository.ErrStorage),
		errors.Is(err, service.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	l := log.GetFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error("request failed", log.Int("status", status), log.ErrorField(err))
	} else {
		l.Debug("request rejected", log.Int("status", status), log.ErrorField(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Stage: model.StageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Default().Named("http").Warn("could not write response", log.ErrorField(err))
	}
}
