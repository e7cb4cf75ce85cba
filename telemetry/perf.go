package telemetry

import (
	"log/slog"
	"time"
)

// Sections of a simulation tick.
const (
	SectionModules   = "modules"
	SectionRelax     = "relax"
	SectionTelemetry = "telemetry"
)

var sections = []string{SectionModules, SectionRelax, SectionTelemetry}

// PerfCollector tracks tick timing over a rolling window.
type PerfCollector struct {
	windowSize  int
	ticks       []time.Duration
	sections    []map[string]time.Duration
	writeIndex  int
	sampleCount int

	current      map[string]time.Duration
	tickStart    time.Time
	sectionStart time.Time
	lastSection  string
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 100
	}
	return &PerfCollector{
		windowSize: windowSize,
		ticks:      make([]time.Duration, windowSize),
		sections:   make([]map[string]time.Duration, windowSize),
		current:    make(map[string]time.Duration),
	}
}

// StartTick begins timing a tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = make(map[string]time.Duration)
	p.lastSection = ""
}

// StartSection ends the running section, if any, and starts timing name.
func (p *PerfCollector) StartSection(name string) {
	now := time.Now()
	if p.lastSection != "" {
		p.current[p.lastSection] += now.Sub(p.sectionStart)
	}
	p.sectionStart = now
	p.lastSection = name
}

// EndTick records the tick.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastSection != "" {
		p.current[p.lastSection] += now.Sub(p.sectionStart)
	}
	p.ticks[p.writeIndex] = now.Sub(p.tickStart)
	p.sections[p.writeIndex] = p.current
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	p.sampleCount = min(p.sampleCount+1, p.windowSize)
}

// PerfStats holds aggregated timing.
type PerfStats struct {
	AvgTick        time.Duration
	MaxTick        time.Duration
	TicksPerSecond float64
	SectionPct     map[string]float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{SectionPct: make(map[string]float64)}
	if p.sampleCount == 0 {
		return s
	}
	var total time.Duration
	sum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		total += p.ticks[i]
		s.MaxTick = max(s.MaxTick, p.ticks[i])
		for name, d := range p.sections[i] {
			sum[name] += d
		}
	}
	s.AvgTick = total / time.Duration(p.sampleCount)
	if total > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
		for name, d := range sum {
			s.SectionPct[name] = float64(d) / float64(total) * 100
		}
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	for _, name := range sections {
		if pct, ok := s.SectionPct[name]; ok {
			attrs = append(attrs, slog.Float64(name+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}
