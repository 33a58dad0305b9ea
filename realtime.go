package fuelopt

import (
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/gonum/stat"
)

// Status is the state of the real-time optimization engine.
type Status uint8

const (
	// StatusIdle means no optimization has run yet.
	StatusIdle Status = iota
	// StatusRunning means an optimization cycle is in flight.
	StatusRunning
	// StatusConverged means the last cycle succeeded with no violations.
	StatusConverged
	// StatusFailed means the last cycle returned an error.
	StatusFailed
	// StatusConstrained means the last cycle succeeded under active
	// violations.
	StatusConstrained
	// StatusEmergency means the last cycle ran under a high severity
	// violation.
	StatusEmergency
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusConverged:
		return "converged"
	case StatusFailed:
		return "failed"
	case StatusConstrained:
		return "constrained"
	case StatusEmergency:
		return "emergency"
	}
	panic("cannot stringify unknown optimization status")
}

// Violation identifies a real-time constraint violation.
type Violation uint8

const (
	FuelLow Violation = iota + 1
	PowerLow
	OrbitalDecay
	CollisionRisk
	ThermalLimit
	CommunicationLoss
)

// violationKinds is the number of distinct violation types, used to
// normalize the constraint term of the performance score.
const violationKinds = 6

func (v Violation) String() string {
	switch v {
	case FuelLow:
		return "fuel_low"
	case PowerLow:
		return "power_low"
	case OrbitalDecay:
		return "orbital_decay"
	case CollisionRisk:
		return "collision_risk"
	case ThermalLimit:
		return "thermal_limit"
	case CommunicationLoss:
		return "communication_loss"
	}
	panic("cannot stringify unknown constraint violation")
}

// Severity grades an optimization event.
type Severity uint8

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	panic("cannot stringify unknown severity")
}

// Severity returns the grade of a violation. Running out of fuel or a
// conjunction risk directly threatens the vehicle, the rest degrades it.
func (v Violation) Severity() Severity {
	if v == FuelLow || v == CollisionRisk {
		return SeverityHigh
	}
	return SeverityMedium
}

// RealTimeConstraints bounds the monitored quantities and paces the loops.
type RealTimeConstraints struct {
	MinFuelMass             float64 // kg
	MinPowerLevel           float64 // fraction of max power
	MaxOrbitalDecayRate     float64 // km/day
	MaxCollisionProbability float64
	MaxTemperature          float64 // K
	MinCommunicationQuality float64 // fraction

	OptimizationInterval    time.Duration
	ConstraintCheckInterval time.Duration
	AlertThreshold          float64 // fraction of a limit that triggers an alert
}

// DefaultRealTimeConstraints returns the reference operating limits.
func DefaultRealTimeConstraints() RealTimeConstraints {
	return RealTimeConstraints{
		MinFuelMass:             10.0,
		MinPowerLevel:           0.2,
		MaxOrbitalDecayRate:     0.1,
		MaxCollisionProbability: 1e-6,
		MaxTemperature:          323.15,
		MinCommunicationQuality: 0.8,
		OptimizationInterval:    60 * time.Second,
		ConstraintCheckInterval: 10 * time.Second,
		AlertThreshold:          0.8,
	}
}

// Metrics is a snapshot of the vehicle health and optimizer state.
type Metrics struct {
	FuelMass             float64 // kg
	PowerLevel           float64 // fraction
	Altitude             float64 // km
	CollisionRisk        float64
	Temperature          float64 // K
	CommunicationQuality float64 // fraction
	Status               Status
	LastOptimization     time.Time
	Violations           []Violation
	PerformanceScore     float64
	Timestamp            time.Time
}

// Event is emitted when a constraint is violated or an optimization cycle
// completes abnormally.
type Event struct {
	Type        string
	Severity    Severity
	Description string
	Timestamp   time.Time
	Violation   Violation
	Value       float64
}

// OptimizationRecord is one entry of the optimization history.
type OptimizationRecord struct {
	Timestamp     time.Time
	Result        OptimizationResult
	ExecutionTime time.Duration
	Violations    int
}

// PerformanceStatistics aggregates the session's optimization runs.
type PerformanceStatistics struct {
	TotalOptimizations      int
	AverageOptimizationTime time.Duration
	SuccessRate             float64
	ViolationRate           float64
	CurrentScore            float64
}

// Telemetry feeds the session with vehicle health data. Sample receives the
// previous snapshot and returns the next one; implementations range from the
// built-in random-walk simulator to a live downlink.
type Telemetry interface {
	Sample(previous Metrics) Metrics
}

// SimulatedTelemetry is a seeded random walk over the monitored quantities:
// slow orbital decay and fuel depletion, power and thermal jitter, and an
// exponentially distributed conjunction risk.
type SimulatedTelemetry struct {
	rng *rand.Rand
}

// NewSimulatedTelemetry returns a simulator. A zero seed draws one from the
// clock.
func NewSimulatedTelemetry(seed int64) *SimulatedTelemetry {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedTelemetry{rng: rand.New(rand.NewSource(seed))}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sample advances the random walk by one monitoring tick.
func (t *SimulatedTelemetry) Sample(prev Metrics) Metrics {
	next := prev
	decayRate := 0.05 + t.rng.NormFloat64()*0.02 // km/day
	next.Altitude -= decayRate / 86400.0
	fuelRate := 0.001 + t.rng.NormFloat64()*0.0005 // kg/day
	next.FuelMass -= fuelRate / 86400.0
	next.PowerLevel = clamp(prev.PowerLevel+t.rng.NormFloat64()*0.02, 0, 1)
	next.Temperature = clamp(prev.Temperature+t.rng.NormFloat64()*2.0, 200, 350)
	next.CollisionRisk = t.rng.ExpFloat64() * 1e-7
	next.Timestamp = time.Now().UTC()
	return next
}

// Session is a live optimization session for one vehicle. It runs two
// goroutines, a monitoring loop sampling telemetry and checking constraints,
// and an optimization loop re-planning the mission. All exported methods are
// safe for concurrent use.
type Session struct {
	Requirements MissionRequirements
	Constraints  RealTimeConstraints

	optimizer *FuelOptimizer
	telemetry Telemetry
	system    *PropulsionSystem
	logger    log.Logger

	mu               sync.Mutex
	metrics          Metrics
	initialized      bool
	running          bool
	paused           bool
	callbacks        []func(Event)
	history          []OptimizationRecord
	violationHistory []Event
	optTimes         []float64 // seconds
	convergence      []float64 // 1 success, 0 failure

	stop chan struct{}
	wg   sync.WaitGroup
}

// maxHistory bounds the in-memory histories; older entries are discarded.
const maxHistory = 1000

// NewSession returns an idle session. Nil constraints, telemetry, or logger
// select the defaults (reference limits, simulated telemetry, logfmt to
// stdout).
func NewSession(req MissionRequirements, cons *RealTimeConstraints, telemetry Telemetry, logger log.Logger) *Session {
	constraints := DefaultRealTimeConstraints()
	if cons != nil {
		constraints = *cons
	}
	if telemetry == nil {
		telemetry = NewSimulatedTelemetry(0)
	}
	if logger == nil {
		logger = log.NewLogfmtLogger(os.Stdout)
	}
	logger = log.With(logger, "subsys", "realtime")
	return &Session{
		Requirements: req,
		Constraints:  constraints,
		optimizer:    NewFuelOptimizer(logger),
		telemetry:    telemetry,
		logger:       logger,
	}
}

// Start launches the monitoring and optimization loops from the given
// initial orbit. Starting a running session is an error.
func (s *Session) Start(initial *Orbit, sys *PropulsionSystem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("real-time optimization already running")
	}
	s.running = true
	s.paused = false
	s.system = sys
	s.stop = make(chan struct{})

	state := initial.StateAt(time.Now().UTC())
	s.metrics = Metrics{
		FuelMass:             s.Requirements.MaxFuelMass,
		PowerLevel:           1.0,
		Altitude:             norm(state.R) - s.optimizer.Body.Radius,
		Temperature:          293.15,
		CommunicationQuality: 1.0,
		Status:               StatusIdle,
		LastOptimization:     time.Now().UTC(),
		Timestamp:            time.Now().UTC(),
	}
	s.initialized = true

	s.wg.Add(2)
	go s.monitorLoop()
	go s.optimizeLoop()
	s.logger.Log("level", "info", "msg", "real-time optimization started", "altitude", fmt.Sprintf("%.1f", s.metrics.Altitude))
	return nil
}

// Stop halts both loops and waits for them, bounded by a five second join.
// Stopping an idle session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.paused = false
	close(s.stop)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Log("level", "info", "msg", "real-time optimization stopped")
	case <-time.After(5 * time.Second):
		s.logger.Log("level", "warn", "msg", "loops did not stop within the join timeout")
	}
	s.mu.Lock()
	s.metrics.Status = StatusIdle
	s.mu.Unlock()
}

// Pause soft-gates both loops: the goroutines keep ticking but neither
// samples telemetry nor optimizes until Resume.
func (s *Session) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.logger.Log("level", "info", "msg", "optimization paused")
}

// Resume lifts a Pause.
func (s *Session) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.logger.Log("level", "info", "msg", "optimization resumed")
}

// OnAlert registers a callback invoked for every event. Callbacks run on the
// monitoring goroutine; a panicking callback is isolated and logged, never
// fatal to the session.
func (s *Session) OnAlert(cb func(Event)) {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, cb)
	s.mu.Unlock()
}

// Status returns a copy of the current metrics.
func (s *Session) Status() (Metrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return Metrics{}, false
	}
	m := s.metrics
	m.Violations = append([]Violation(nil), s.metrics.Violations...)
	return m, true
}

func (s *Session) monitorLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.Constraints.ConstraintCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			paused := s.paused
			s.mu.Unlock()
			if paused {
				continue
			}
			s.sampleTelemetry()
			for _, event := range s.checkConstraints() {
				s.handleEvent(event)
			}
		}
	}
}

// optimizeLoop polls at the constraint check cadence so that a violation
// triggers re-optimization on the next check rather than waiting out the
// full optimization interval.
func (s *Session) optimizeLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.Constraints.ConstraintCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			run := !s.paused && s.shouldOptimizeLocked()
			s.mu.Unlock()
			if run {
				s.runOptimization()
			}
		}
	}
}

func (s *Session) sampleTelemetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = s.telemetry.Sample(s.metrics)
}

// checkConstraints evaluates every limit against the current metrics,
// updates the violation list, and returns one event per violation.
func (s *Session) checkConstraints() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var violations []Violation
	values := map[Violation]float64{}
	record := func(v Violation, value float64) {
		violations = append(violations, v)
		values[v] = value
	}
	if s.metrics.FuelMass < s.Constraints.MinFuelMass {
		record(FuelLow, s.metrics.FuelMass)
	}
	if s.metrics.PowerLevel < s.Constraints.MinPowerLevel {
		record(PowerLow, s.metrics.PowerLevel)
	}
	if s.metrics.Altitude < 100.0 {
		record(OrbitalDecay, s.metrics.Altitude)
	}
	if s.metrics.CollisionRisk > s.Constraints.MaxCollisionProbability {
		record(CollisionRisk, s.metrics.CollisionRisk)
	}
	if s.metrics.Temperature > s.Constraints.MaxTemperature {
		record(ThermalLimit, s.metrics.Temperature)
	}
	if s.metrics.CommunicationQuality < s.Constraints.MinCommunicationQuality {
		record(CommunicationLoss, s.metrics.CommunicationQuality)
	}
	s.metrics.Violations = violations

	events := make([]Event, 0, len(violations))
	for _, v := range violations {
		events = append(events, Event{
			Type:        "constraint_violation",
			Severity:    v.Severity(),
			Description: fmt.Sprintf("constraint violation: %s", v),
			Timestamp:   time.Now().UTC(),
			Violation:   v,
			Value:       values[v],
		})
	}
	return events
}

func (s *Session) handleEvent(event Event) {
	s.logger.Log("level", "warn", "msg", "event", "type", event.Type, "severity", event.Severity.String(), "desc", event.Description)

	s.mu.Lock()
	s.violationHistory = append(s.violationHistory, event)
	if len(s.violationHistory) > maxHistory {
		s.violationHistory = s.violationHistory[len(s.violationHistory)-maxHistory:]
	}
	callbacks := make([]func(Event), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.Unlock()

	for _, cb := range callbacks {
		s.invokeCallback(cb, event)
	}
}

func (s *Session) invokeCallback(cb func(Event), event Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Log("level", "error", "msg", "alert callback panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()
	cb(event)
}

// shouldOptimizeLocked reports whether an optimization cycle is due: always
// under active violations, otherwise once per optimization interval.
// Callers hold s.mu.
func (s *Session) shouldOptimizeLocked() bool {
	if !s.initialized {
		return false
	}
	if len(s.metrics.Violations) > 0 {
		return true
	}
	return time.Since(s.metrics.LastOptimization) >= s.Constraints.OptimizationInterval
}

// runOptimization executes one cycle: rebuild the mission from the current
// vehicle state, run the session's configured priority (fuel is forced
// while violations are active), and grade the outcome. Failures mark the
// session failed but never kill the loops.
func (s *Session) runOptimization() {
	start := time.Now()

	s.mu.Lock()
	metrics := s.metrics
	s.metrics.Status = StatusRunning
	s.mu.Unlock()

	currentOrbit := NewOrbitFromOE(s.optimizer.Body.Radius+metrics.Altitude, 0, 45, 0, 0, 0, s.optimizer.Body)
	priority := s.Requirements.Priority
	if len(metrics.Violations) > 0 {
		priority = PriorityFuel
	}
	req := MissionRequirements{
		InitialAltitude: metrics.Altitude,
		TargetAltitude:  s.Requirements.TargetAltitude,
		MaxMissionTime:  s.Requirements.MaxMissionTime,
		MaxFuelMass:     metrics.FuelMass,
		MaxTotalMass:    s.Requirements.MaxTotalMass,
		MaxPower:        s.Requirements.MaxPower,
		Priority:        priority,
	}

	result, err := s.optimizer.OptimizeMission(req, currentOrbit)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.optTimes = append(s.optTimes, elapsed.Seconds())
	if err != nil {
		s.metrics.Status = StatusFailed
		s.convergence = append(s.convergence, 0)
		s.logger.Log("level", "error", "msg", "optimization failed", "err", err.Error())
		return
	}

	if s.system != nil && result.System.Name != s.system.Name {
		s.logger.Log("level", "warn", "msg", "selected system differs from the mounted one", "mounted", s.system.Name, "selected", result.System.Name)
	}
	s.metrics.Status = s.statusForViolations(metrics.Violations)
	s.metrics.LastOptimization = time.Now().UTC()
	s.metrics.PerformanceScore = s.performanceScore(result, len(metrics.Violations))
	s.convergence = append(s.convergence, 1)
	s.history = append(s.history, OptimizationRecord{
		Timestamp:     time.Now().UTC(),
		Result:        result,
		ExecutionTime: elapsed,
		Violations:    len(metrics.Violations),
	})
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	s.logger.Log("level", "info", "msg", "optimization completed", "elapsed", elapsed.String(), "status", s.metrics.Status.String())
}

// statusForViolations grades a successful cycle: clean runs converge, runs
// under a high severity violation are emergencies, the rest are constrained.
func (s *Session) statusForViolations(violations []Violation) Status {
	if len(violations) == 0 {
		return StatusConverged
	}
	for _, v := range violations {
		if v.Severity() >= SeverityHigh {
			return StatusEmergency
		}
	}
	return StatusConstrained
}

// performanceScore grades a cycle: half fuel margin, a third time margin,
// and a fifth constraint satisfaction.
func (s *Session) performanceScore(result OptimizationResult, violations int) float64 {
	fuelScore := 0.0
	if s.Requirements.MaxFuelMass > 0 {
		fuelScore = 1.0 - result.Consumption.FuelMass/s.Requirements.MaxFuelMass
	}
	timeScore := 0.0
	if s.Requirements.MaxMissionTime > 0 {
		timeScore = 1.0 - result.Trajectory.TotalTime.Seconds()/s.Requirements.MaxMissionTime.Seconds()
	}
	constraintScore := 1.0 - float64(violations)/violationKinds
	return 0.5*fuelScore + 0.3*timeScore + 0.2*constraintScore
}

// OptimizationHistory returns up to limit of the most recent optimization
// records, newest last.
func (s *Session) OptimizationHistory(limit int) []OptimizationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]OptimizationRecord, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}

// ViolationHistory returns up to limit of the most recent violation events,
// newest last.
func (s *Session) ViolationHistory(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.violationHistory) {
		limit = len(s.violationHistory)
	}
	out := make([]Event, limit)
	copy(out, s.violationHistory[len(s.violationHistory)-limit:])
	return out
}

// PerformanceStatistics aggregates the session so far. Zero value when no
// optimization has run.
func (s *Session) PerformanceStatistics() PerformanceStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.optTimes) == 0 {
		return PerformanceStatistics{}
	}
	return PerformanceStatistics{
		TotalOptimizations:      len(s.optTimes),
		AverageOptimizationTime: time.Duration(stat.Mean(s.optTimes, nil) * float64(time.Second)),
		SuccessRate:             stat.Mean(s.convergence, nil),
		ViolationRate:           float64(len(s.violationHistory)) / float64(len(s.optTimes)),
		CurrentScore:            s.metrics.PerformanceScore,
	}
}
