package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds collects the tuning knobs of the analysis.
// The defaults are tuned for one instrument family and the comparison
// semantics (strict vs non-strict) are fixed in the consuming code.
type Thresholds struct {
	WOT                float64 `yaml:"wot" json:"wot"`                               // percent, pedal and throttle
	KnockSensorVolts   float64 `yaml:"knockSensorVolts" json:"knockSensorVolts"`     // V
	OilPressureFloor   float64 `yaml:"oilPressureFloor" json:"oilPressureFloor"`     // psi
	OilPressureMinRPM  float64 `yaml:"oilPressureMinRpm" json:"oilPressureMinRpm"`   // rpm
	CoolantCeiling     float64 `yaml:"coolantCeiling" json:"coolantCeiling"`         // °F
	FuelTrimVariance   float64 `yaml:"fuelTrimVariance" json:"fuelTrimVariance"`     // percentage points
	MisfireGlitchLimit float64 `yaml:"misfireGlitchLimit" json:"misfireGlitchLimit"` // counter delta
	BaroDefaultKPa     float64 `yaml:"baroDefaultKpa" json:"baroDefaultKpa"`
	SampleStride       int     `yaml:"sampleStride" json:"sampleStride"` // decimation for advisory samples
	MaxSamples         int     `yaml:"maxSamples" json:"maxSamples"`
	RPMBinWidth        float64 `yaml:"rpmBinWidth" json:"rpmBinWidth"`
	SmoothingWindow    int     `yaml:"smoothingWindow" json:"smoothingWindow"`
	MinSweepSamples    int     `yaml:"minSweepSamples" json:"minSweepSamples"`
	StopSpeed          float64 `yaml:"stopSpeed" json:"stopSpeed"` // mph, arms 0-60 runs
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		WOT:                86,
		KnockSensorVolts:   3.0,
		OilPressureFloor:   20,
		OilPressureMinRPM:  500,
		CoolantCeiling:     230,
		FuelTrimVariance:   10,
		MisfireGlitchLimit: 1000,
		BaroDefaultKPa:     101.325,
		SampleStride:       400,
		MaxSamples:         100,
		RPMBinWidth:        50,
		SmoothingWindow:    5,
		MinSweepSamples:    10,
		StopSpeed:          1.5,
	}
}

// LoadThresholds reads a yaml profile. Keys missing in the file keep their defaults.
func LoadThresholds(path string) (Thresholds, error) {
	th := DefaultThresholds()
	data, err := os.ReadFile(path)
	if err != nil {
		return th, err
	}
	if err := yaml.Unmarshal(data, &th); err != nil {
		return th, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	if err := th.Validate(); err != nil {
		return th, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return th, nil
}

func (t Thresholds) Validate() error {
	switch {
	case t.RPMBinWidth <= 0:
		return fmt.Errorf("rpmBinWidth must be positive")
	case t.SmoothingWindow < 1:
		return fmt.Errorf("smoothingWindow must be at least 1")
	case t.SampleStride < 1:
		return fmt.Errorf("sampleStride must be at least 1")
	case t.MaxSamples < 1:
		return fmt.Errorf("maxSamples must be at least 1")
	case t.MinSweepSamples < 3:
		return fmt.Errorf("minSweepSamples must be at least 3")
	}
	return nil
}
