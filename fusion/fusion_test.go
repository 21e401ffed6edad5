package fusion

import (
	"math"
	"testing"
	"time"
)

func TestPoseFuser_GPSPrimaryWithFix(t *testing.T) {
	f := NewPoseFuser()
	now := time.Now()

	pose, err := f.Fuse(
		&GPSReading{Latitude: 51.5, Longitude: -0.12, Heading: 90, FixQuality: 4, Timestamp: now},
		&IMUReading{Heading: 45, Timestamp: now},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pose.Source != "gps" {
		t.Errorf("expected gps source, got %s", pose.Source)
	}
	if pose.Heading != 90 {
		t.Errorf("expected gps heading to win, got %f", pose.Heading)
	}
	if pose.Confidence != 1.0 {
		t.Errorf("expected full confidence on rtk fix, got %f", pose.Confidence)
	}
}

func TestPoseFuser_NoFixFallsBackToIMU(t *testing.T) {
	f := NewPoseFuser()
	now := time.Now()

	// Seed a fix, then lose it.
	_, err := f.Fuse(&GPSReading{
		Latitude: 51.5, Longitude: -0.12, Heading: 0,
		SpeedMPS: 1.0, FixQuality: 1, Timestamp: now,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	later := now.Add(10 * time.Second)
	pose, err := f.Fuse(
		&GPSReading{FixQuality: 0, Timestamp: later},
		&IMUReading{Heading: 0, Timestamp: later},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pose.Source != "imu+dead-reckoning" {
		t.Errorf("expected dead reckoning, got %s", pose.Source)
	}
	if pose.Heading != 0 {
		t.Errorf("expected imu heading, got %f", pose.Heading)
	}
	// 10 m due north is roughly 9e-5 degrees of latitude.
	wantLat := 51.5 + 10.0/metersPerDegree
	if math.Abs(pose.Latitude-wantLat) > 1e-9 {
		t.Errorf("expected dead-reckoned latitude %f, got %f", wantLat, pose.Latitude)
	}
	if pose.Confidence >= 1.0 || pose.Confidence <= 0 {
		t.Errorf("expected reduced confidence in (0,1), got %f", pose.Confidence)
	}
}

func TestPoseFuser_IMUWithoutPriorFix(t *testing.T) {
	f := NewPoseFuser()

	pose, err := f.Fuse(nil, &IMUReading{Heading: 180, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pose.Latitude != 0 || pose.Longitude != 0 {
		t.Error("expected zero position without a prior fix")
	}
	if pose.Confidence > 0.3 {
		t.Errorf("expected low confidence, got %f", pose.Confidence)
	}
}

func TestPoseFuser_NoSources(t *testing.T) {
	f := NewPoseFuser()
	if _, err := f.Fuse(nil, nil); err != ErrNoSource {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}

func TestPoseFuser_LastFix(t *testing.T) {
	f := NewPoseFuser()
	if _, ok := f.LastFix(); ok {
		t.Error("expected no fix on a fresh fuser")
	}
	f.Fuse(&GPSReading{Latitude: 1, FixQuality: 1, Timestamp: time.Now()}, nil)
	fix, ok := f.LastFix()
	if !ok || fix.Latitude != 1 {
		t.Errorf("expected stored fix, got ok=%v fix=%+v", ok, fix)
	}
}

func TestFuseObstacles_BothSourcesMerge(t *testing.T) {
	camera := []Obstacle{
		{Bearing: 10, Distance: 2.0},
		{Bearing: 90, Distance: 5.0},
	}
	tof := []Obstacle{
		{Bearing: 12, Distance: 1.8}, // same object as camera[0]
		{Bearing: -45, Distance: 0.9},
	}

	set, err := FuseObstacles(camera, tof)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Confidence != 0.95 {
		t.Errorf("expected high confidence, got %f", set.Confidence)
	}
	if len(set.Obstacles) != 3 {
		t.Fatalf("expected 3 merged obstacles, got %d: %+v", len(set.Obstacles), set.Obstacles)
	}

	var corroborated *Obstacle
	for i := range set.Obstacles {
		if set.Obstacles[i].Source == "camera+tof" {
			corroborated = &set.Obstacles[i]
		}
	}
	if corroborated == nil {
		t.Fatal("expected one corroborated obstacle")
	}
	if corroborated.Distance != 1.8 {
		t.Errorf("expected tighter range to win, got %f", corroborated.Distance)
	}
}

func TestFuseObstacles_SingleSource(t *testing.T) {
	set, err := FuseObstacles([]Obstacle{{Bearing: 0, Distance: 1}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Confidence >= 0.95 {
		t.Errorf("expected reduced confidence for single source, got %f", set.Confidence)
	}
	if len(set.Sources) != 1 || set.Sources[0] != "camera" {
		t.Errorf("expected camera-only sources, got %v", set.Sources)
	}

	set, err = FuseObstacles(nil, []Obstacle{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set.Obstacles) != 0 {
		t.Error("empty tof report is a valid nothing-detected result")
	}
}

func TestFuseObstacles_NoSources(t *testing.T) {
	if _, err := FuseObstacles(nil, nil); err != ErrNoSource {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}
