package model

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step an error belongs to.
type Stage string

const (
	StageParse    Stage = "parse"
	StageMetric   Stage = "metric"
	StageSweep    Stage = "sweep"
	StageAdvisory Stage = "advisory"
	StageSave     Stage = "save"
)

type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage of err or "" if err is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
