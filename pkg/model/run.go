package model

import (
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
)

// Run is a stored datalog together with its analysis summary.
type Run struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Vehicle   string            `json:"vehicle"`
	WeightLbs null.Val[float64] `json:"weightLbs"`
	Intervals []IntervalResult  `json:"intervals"`
	Metrics   *MetricsReport    `json:"metrics"`
	ObjectKey string            `json:"objectKey"`
	CreatedAt time.Time         `json:"createdAt"`
}

// AnalysisResult is the response of an ad-hoc analysis.
type AnalysisResult struct {
	Checklist         Checklist      `json:"checklist"`
	ChecklistText     string         `json:"checklistText"`
	Metrics           *MetricsReport `json:"metrics"`
	Advisory          string         `json:"advisory"`
	AdvisoryAvailable bool           `json:"advisoryAvailable"`
	Dyno              *DynoResult    `json:"dyno,omitempty"`
}

// LeaderboardEntry is one ranked interval time.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	RunID    string  `json:"runId"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
}
