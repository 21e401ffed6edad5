package degrade

import (
	"sort"
	"sync"
	"time"

	"github.com/terrasense/mowkit/logger"
)

// EventType classifies degradation events.
type EventType string

const (
	EventStrategyActivated   EventType = "strategy_activated"
	EventStrategyDeactivated EventType = "strategy_deactivated"
	EventNormalRestored      EventType = "normal_operation_restored"
)

// Event describes one degradation change.
type Event struct {
	Type          EventType `json:"type"`
	Strategy      string    `json:"strategy,omitempty"`
	Level         Level     `json:"level"`
	FailedSensors []string  `json:"failed_sensors,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Callback observes degradation events. Callbacks run outside the
// controller lock; panics are recovered and logged.
type Callback func(Event)

// State is a serializable snapshot of the degradation status.
type State struct {
	Level            Level     `json:"level"`
	ActiveStrategies []string  `json:"active_strategies,omitempty"`
	FailedSensors    []string  `json:"failed_sensors,omitempty"`
	FallbackSensors  []string  `json:"fallback_sensors,omitempty"`
	Confidence       float64   `json:"confidence"`
	Since            time.Time `json:"since,omitzero"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Controller is the shared degradation registry. All mutation is serialized
// behind one mutex; sensor failures and recoveries may be reported from any
// goroutine.
type Controller struct {
	mu          sync.Mutex
	strategies  []Strategy
	failed      map[string]bool
	active      map[string]Strategy
	activatedAt map[string]time.Time
	expired     map[string]bool
	since       time.Time
	callbacks   []Callback
	log         *logger.Logger
}

// NewController creates a controller with the given strategy catalog.
func NewController(strategies ...Strategy) *Controller {
	return &Controller{
		strategies:  strategies,
		failed:      make(map[string]bool),
		active:      make(map[string]Strategy),
		activatedAt: make(map[string]time.Time),
		expired:     make(map[string]bool),
		log:         logger.Get("degrade"),
	}
}

// AddStrategy registers an additional strategy.
func (c *Controller) AddStrategy(s Strategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies = append(c.strategies, s)
}

// OnEvent registers an event callback.
func (c *Controller) OnEvent(cb Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// HandleSensorFailure adds the sensor to the failed set and activates the
// best matching strategy, deactivating active strategies whose trigger sets
// overlap the chosen one.
func (c *Controller) HandleSensorFailure(sensor string, err error) {
	c.mu.Lock()
	if c.failed[sensor] {
		c.mu.Unlock()
		return
	}
	c.failed[sensor] = true
	c.expired = make(map[string]bool)

	fields := logger.Fields(logger.FieldSensor, sensor)
	if err != nil {
		fields[logger.FieldError] = err.Error()
	}
	c.log.Warn("sensor failure reported", fields)

	events := c.reevaluateLocked()
	c.mu.Unlock()

	c.emit(events)
}

// HandleSensorRecovery removes the sensor from the failed set. An empty
// failed set deactivates everything and restores normal operation;
// otherwise the best strategy is re-selected and swapped in if it changed.
func (c *Controller) HandleSensorRecovery(sensor string) {
	c.mu.Lock()
	if !c.failed[sensor] {
		c.mu.Unlock()
		return
	}
	delete(c.failed, sensor)
	c.expired = make(map[string]bool)
	c.log.Info("sensor recovery reported", logger.Fields(logger.FieldSensor, sensor))

	events := c.reevaluateLocked()
	c.mu.Unlock()

	c.emit(events)
}

// Expire deactivates strategies that exceeded their MaxDuration and
// re-evaluates. An expired strategy is not re-selected until the failed
// set changes. Call it periodically when strategies declare durations.
func (c *Controller) Expire() {
	now := time.Now()

	c.mu.Lock()
	expired := false
	for name, s := range c.active {
		if s.MaxDuration > 0 && now.Sub(c.activatedAt[name]) >= s.MaxDuration {
			c.log.Warn("strategy exceeded max duration", logger.Fields(logger.FieldStrategy, name))
			expired = true
		}
	}
	var events []Event
	if expired {
		events = c.reevaluateLocked()
	}
	c.mu.Unlock()

	c.emit(events)
}

// IsFunctionEnabled reports whether a mower function may run. Under normal
// operation everything is allowed. Under degradation an explicit disable
// wins over an explicit enable, and anything unlisted is disabled.
func (c *Controller) IsFunctionEnabled(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.failed) == 0 {
		return true
	}

	enabled := false
	for _, s := range c.active {
		for _, fn := range s.DisabledFunctions {
			if fn == name {
				return false
			}
		}
		for _, fn := range s.EnabledFunctions {
			if fn == name {
				enabled = true
			}
		}
	}
	return enabled
}

// Level returns the current degradation level.
func (c *Controller) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.levelLocked()
}

// Status returns a snapshot of the degradation state.
func (c *Controller) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Level:      c.levelLocked(),
		Confidence: c.confidenceLocked(),
		Since:      c.since,
		UpdatedAt:  time.Now(),
	}
	st.FailedSensors = sortedKeys(c.failed)

	fallbacks := make(map[string]bool)
	for name, s := range c.active {
		st.ActiveStrategies = append(st.ActiveStrategies, name)
		for _, sensor := range s.FallbackSensors {
			fallbacks[sensor] = true
		}
	}
	sort.Strings(st.ActiveStrategies)
	st.FallbackSensors = sortedKeys(fallbacks)
	return st
}

// reevaluateLocked recomputes the active strategy set against the current
// failed set and returns the events to emit after unlocking.
func (c *Controller) reevaluateLocked() []Event {
	var events []Event
	now := time.Now()

	if len(c.failed) == 0 {
		for name := range c.active {
			events = append(events, Event{
				Type: EventStrategyDeactivated, Strategy: name,
				Level: LevelNormal, Timestamp: now,
			})
		}
		c.active = make(map[string]Strategy)
		c.activatedAt = make(map[string]time.Time)
		c.since = time.Time{}
		if len(events) > 0 {
			events = append(events, Event{Type: EventNormalRestored, Level: LevelNormal, Timestamp: now})
			c.log.Info("normal operation restored")
		}
		return events
	}

	// Drop active strategies whose trigger sensors all recovered, and any
	// expired ones.
	for name, s := range c.active {
		stale := !s.intersects(c.failed)
		if s.MaxDuration > 0 && now.Sub(c.activatedAt[name]) >= s.MaxDuration {
			stale = true
			// Barred from re-selection until the failed set changes, or
			// expiry would only re-arm the timer.
			c.expired[name] = true
		}
		if stale {
			delete(c.active, name)
			delete(c.activatedAt, name)
			events = append(events, Event{
				Type: EventStrategyDeactivated, Strategy: name,
				Level: c.levelLocked(), FailedSensors: sortedKeys(c.failed), Timestamp: now,
			})
		}
	}

	best, ok := c.selectBestLocked()
	if !ok {
		if c.since.IsZero() {
			c.since = now
		}
		return events
	}
	if _, already := c.active[best.Name]; already {
		return events
	}

	// Deactivate conflicting strategies before activating the new one.
	for name, s := range c.active {
		if s.overlaps(best) {
			delete(c.active, name)
			delete(c.activatedAt, name)
			events = append(events, Event{
				Type: EventStrategyDeactivated, Strategy: name,
				Level: c.levelLocked(), FailedSensors: sortedKeys(c.failed), Timestamp: now,
			})
		}
	}

	c.active[best.Name] = best
	c.activatedAt[best.Name] = now
	if c.since.IsZero() {
		c.since = now
	}
	events = append(events, Event{
		Type: EventStrategyActivated, Strategy: best.Name,
		Level: c.levelLocked(), FailedSensors: sortedKeys(c.failed), Timestamp: now,
	})
	c.log.Warn("fallback strategy activated", logger.Fields(
		logger.FieldStrategy, best.Name,
		logger.FieldLevel, c.levelLocked().String(),
	))
	return events
}

// selectBestLocked picks the single best applicable strategy, ranked by
// level descending, exact trigger-set match first, then confidence
// threshold descending.
func (c *Controller) selectBestLocked() (Strategy, bool) {
	var candidates []Strategy
	for _, s := range c.strategies {
		if s.intersects(c.failed) && !c.expired[s.Name] {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return Strategy{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		aExact, bExact := a.exactMatch(c.failed), b.exactMatch(c.failed)
		if aExact != bExact {
			return aExact
		}
		return a.ConfidenceThreshold > b.ConfidenceThreshold
	})
	return candidates[0], true
}

// levelLocked derives the current level: Normal iff no sensors are failed,
// the maximum active strategy level otherwise, and Minor when sensors are
// failed but no strategy applies.
func (c *Controller) levelLocked() Level {
	if len(c.failed) == 0 {
		return LevelNormal
	}
	level := LevelMinor
	for _, s := range c.active {
		if s.Level > level {
			level = s.Level
		}
	}
	return level
}

// confidenceLocked reports the advisory confidence: 1.0 under normal
// operation, else the lowest active confidence threshold.
func (c *Controller) confidenceLocked() float64 {
	if len(c.failed) == 0 {
		return 1.0
	}
	confidence := 1.0
	found := false
	for _, s := range c.active {
		if !found || s.ConfidenceThreshold < confidence {
			confidence = s.ConfidenceThreshold
			found = true
		}
	}
	if !found {
		return 0.5
	}
	return confidence
}

func (c *Controller) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	callbacks := append([]Callback(nil), c.callbacks...)
	c.mu.Unlock()

	for _, ev := range events {
		for _, cb := range callbacks {
			c.invoke(cb, ev)
		}
	}
}

func (c *Controller) invoke(cb Callback, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("degradation callback panicked", logger.Fields("panic", r))
		}
	}()
	cb(ev)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
