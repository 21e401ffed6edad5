package breaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestManager_GetIsIdempotent(t *testing.T) {
	m := NewManager(DefaultConfig(""))

	b1 := m.Get("gps")
	b2 := m.Get("gps")

	if b1 != b2 {
		t.Error("expected the same breaker instance for the same name")
	}
}

func TestManager_GetWithConfigIgnoredForExisting(t *testing.T) {
	m := NewManager(DefaultConfig(""))

	b1 := m.GetWithConfig("imu", Config{FailureThreshold: 2, Timeout: time.Second})
	b2 := m.GetWithConfig("imu", Config{FailureThreshold: 99, Timeout: time.Hour})

	if b1 != b2 {
		t.Error("expected existing breaker to win")
	}
}

func TestManager_GetConcurrentSameInstance(t *testing.T) {
	m := NewManager(DefaultConfig(""))

	var mu sync.Mutex
	seen := make(map[*Breaker]bool)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := m.Get("tof")
			mu.Lock()
			seen[b] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 1 {
		t.Errorf("expected a single shared instance, got %d", len(seen))
	}
}

func TestManager_SetDefaults(t *testing.T) {
	m := NewManager(DefaultConfig(""))
	m.SetDefaults(Config{FailureThreshold: 1, Timeout: time.Hour})

	b := m.Get("camera")
	_ = b.Do(func() error { return errors.New("boom") })

	if b.State() != StateOpen {
		t.Errorf("expected overridden threshold of 1 to open the breaker, got %s", b.State())
	}
}

func TestManager_ResetAll(t *testing.T) {
	m := NewManager(Config{FailureThreshold: 1, Timeout: time.Hour})

	for _, name := range []string{"gps", "imu"} {
		b := m.Get(name)
		_ = b.Do(func() error { return errors.New("boom") })
		if b.State() != StateOpen {
			t.Fatalf("breaker %s should be open", name)
		}
	}

	m.ResetAll()

	for _, name := range []string{"gps", "imu"} {
		if m.Get(name).State() != StateClosed {
			t.Errorf("breaker %s should be closed after ResetAll", name)
		}
	}
}

func TestManager_Snapshot(t *testing.T) {
	m := NewManager(Config{FailureThreshold: 1, Timeout: time.Hour})
	_ = m.Get("imu").Do(func() error { return errors.New("boom") })
	m.Get("gps")

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(snap))
	}
	// Sorted by name.
	if snap[0].Name != "gps" || snap[1].Name != "imu" {
		t.Errorf("expected sorted names [gps imu], got [%s %s]", snap[0].Name, snap[1].Name)
	}
	if snap[1].State != "open" {
		t.Errorf("expected imu open, got %s", snap[1].State)
	}
	if snap[1].RemainingTimeout <= 0 {
		t.Error("expected positive remaining timeout for open breaker")
	}
}

func TestManager_GetForClassPresets(t *testing.T) {
	m := NewManager(DefaultConfig(""))

	motor := m.GetForClass(ClassMotor, "left-drive")

	// Motor presets tolerate only two failures.
	_ = motor.Do(func() error { return errors.New("stall") })
	if motor.State() != StateClosed {
		t.Fatalf("expected closed after 1 failure, got %s", motor.State())
	}
	_ = motor.Do(func() error { return errors.New("stall") })
	if motor.State() != StateOpen {
		t.Errorf("expected open after 2 failures, got %s", motor.State())
	}
}
