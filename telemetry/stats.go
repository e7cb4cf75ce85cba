package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a tick window.
type WindowStats struct {
	WindowStartTick int `csv:"-"`
	WindowEndTick   int `csv:"window_end"`

	// Population at window end
	Cells         int `csv:"cells"`
	Proliferative int `csv:"proliferative"`
	Apoptotic     int `csv:"apoptotic"`
	Quiescent     int `csv:"quiescent"`
	Stem          int `csv:"stem"`

	// Events during window
	Divisions        int     `csv:"divisions"`
	StemDaughters    int     `csv:"stem_daughters"`
	DiffDaughters    int     `csv:"diff_daughters"`
	Swaps            int     `csv:"swaps"`
	Removals         int     `csv:"removals"`
	Differentiations int     `csv:"differentiations"`
	LifespanMean     float64 `csv:"lifespan_mean"` // ticks, cells removed this window

	// Volume distribution (sampled at window end)
	VolumeMean float64 `csv:"volume_mean"`
	VolumeP10  float64 `csv:"volume_p10"`
	VolumeP50  float64 `csv:"volume_p50"`
	VolumeP90  float64 `csv:"volume_p90"`

	ContactMean float64 `csv:"contact_mean"`
}

// Percentile returns the p-th empirical quantile of a sorted slice.
// Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(min(max(p, 0), 1), stat.Empirical, sorted, nil)
}

// ComputeVolumeStats calculates mean and percentiles of values.
func ComputeVolumeStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartTick),
		slog.Int("window_end", s.WindowEndTick),
		slog.Int("cells", s.Cells),
		slog.Int("proliferative", s.Proliferative),
		slog.Int("apoptotic", s.Apoptotic),
		slog.Int("quiescent", s.Quiescent),
		slog.Int("stem", s.Stem),
		slog.Int("divisions", s.Divisions),
		slog.Int("stem_daughters", s.StemDaughters),
		slog.Int("diff_daughters", s.DiffDaughters),
		slog.Int("swaps", s.Swaps),
		slog.Int("removals", s.Removals),
		slog.Int("differentiations", s.Differentiations),
		slog.Float64("lifespan_mean", s.LifespanMean),
		slog.Float64("volume_mean", s.VolumeMean),
		slog.Float64("volume_p10", s.VolumeP10),
		slog.Float64("volume_p50", s.VolumeP50),
		slog.Float64("volume_p90", s.VolumeP90),
		slog.Float64("contact_mean", s.ContactMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
