package model

import "github.com/aarondl/opt/null"

type CurveKind string

const (
	// CurveAbsolute carries horsepower and lb-ft, vehicle weight was known.
	CurveAbsolute CurveKind = "absolute"
	// CurveRelative is unitless, scaled to a peak of 100 before smoothing.
	CurveRelative CurveKind = "relative"
)

type CurvePoint struct {
	RPM    float64           `json:"rpm"`
	Power  float64           `json:"power"`
	Torque null.Val[float64] `json:"torque"` // null at 0 rpm
}

type CurvePeak struct {
	RPM   float64 `json:"rpm"`
	Value float64 `json:"value"`
}

// Sweep describes the acceleration run the curve was derived from.
type Sweep struct {
	StartRow int     `json:"startRow"`
	EndRow   int     `json:"endRow"`
	Samples  int     `json:"samples"`
	StartRPM float64 `json:"startRpm"`
	EndRPM   float64 `json:"endRpm"`
}

// DynoCurve is either an *AbsoluteCurve or a *RelativeCurve.
type DynoCurve interface {
	Kind() CurveKind
	CurvePoints() []CurvePoint
	dynoCurve()
}

type AbsoluteCurve struct {
	WeightLbs  float64      `json:"weightLbs"`
	Points     []CurvePoint `json:"points"` // power in hp, torque in lb-ft
	PeakHP     CurvePeak    `json:"peakHp"`
	PeakTorque CurvePeak    `json:"peakTorque"`
	Sweep      Sweep        `json:"sweep"`
}

type RelativeCurve struct {
	Points          []CurvePoint `json:"points"` // power and torque as score
	PeakScore       CurvePeak    `json:"peakScore"`
	PeakTorqueScore CurvePeak    `json:"peakTorqueScore"`
	Sweep           Sweep        `json:"sweep"`
}

func (c *AbsoluteCurve) Kind() CurveKind           { return CurveAbsolute }
func (c *AbsoluteCurve) CurvePoints() []CurvePoint { return c.Points }
func (c *AbsoluteCurve) dynoCurve()                {}

func (c *RelativeCurve) Kind() CurveKind           { return CurveRelative }
func (c *RelativeCurve) CurvePoints() []CurvePoint { return c.Points }
func (c *RelativeCurve) dynoCurve()                {}

// DynoResult is the boundary shape of a dyno request. Synthesis failures are
// reported in Error instead of failing the request.
type DynoResult struct {
	Kind  CurveKind `json:"kind,omitempty"`
	Curve DynoCurve `json:"curve,omitempty"`
	Error string    `json:"error,omitempty"`
}

func NewDynoResult(c DynoCurve, err error) *DynoResult {
	if err != nil {
		return &DynoResult{Error: err.Error()}
	}
	return &DynoResult{Kind: c.Kind(), Curve: c}
}
