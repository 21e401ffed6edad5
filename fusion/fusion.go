package fusion

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/terrasense/mowkit/logger"
)

// ErrNoSource is returned when every input to a fuser is absent.
var ErrNoSource = errors.New("fusion: no sensor source available")

// metersPerDegree approximates one degree of latitude at mower scale.
const metersPerDegree = 111320.0

// GPSReading is a single GNSS sample. FixQuality zero means no fix.
type GPSReading struct {
	Latitude   float64
	Longitude  float64
	Heading    float64 // degrees clockwise from north
	SpeedMPS   float64
	FixQuality int
	Timestamp  time.Time
}

// IMUReading carries the inertial heading estimate.
type IMUReading struct {
	Heading   float64 // degrees clockwise from north
	Timestamp time.Time
}

// Pose is a fused position and heading estimate.
type Pose struct {
	Latitude   float64
	Longitude  float64
	Heading    float64
	Source     string // "gps" or "imu+dead-reckoning"
	Confidence float64
	Timestamp  time.Time
}

// PoseFuser fuses GPS and IMU samples. It remembers the last good fix so
// it can dead-reckon through GPS outages.
type PoseFuser struct {
	mu      sync.Mutex
	lastFix *GPSReading
	log     *logger.Logger
}

func NewPoseFuser() *PoseFuser {
	return &PoseFuser{log: logger.Get("fusion")}
}

// Fuse combines the available samples into a single pose. A GPS sample
// with a fix wins outright; without one the IMU heading is used and the
// position is dead-reckoned from the last fix at reduced confidence.
// Either input may be nil.
func (f *PoseFuser) Fuse(gps *GPSReading, imu *IMUReading) (Pose, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gps != nil && gps.FixQuality > 0 {
		fix := *gps
		f.lastFix = &fix
		return Pose{
			Latitude:   gps.Latitude,
			Longitude:  gps.Longitude,
			Heading:    gps.Heading,
			Source:     "gps",
			Confidence: gpsConfidence(gps.FixQuality),
			Timestamp:  gps.Timestamp,
		}, nil
	}

	if imu == nil {
		return Pose{}, ErrNoSource
	}

	pose := Pose{
		Heading:    imu.Heading,
		Source:     "imu+dead-reckoning",
		Confidence: 0.5,
		Timestamp:  imu.Timestamp,
	}
	if f.lastFix != nil {
		elapsed := imu.Timestamp.Sub(f.lastFix.Timestamp)
		pose.Latitude, pose.Longitude = deadReckon(f.lastFix, imu.Heading, elapsed)
		pose.Confidence = clamp(0.5 - elapsed.Minutes()*0.05)
	} else {
		// No fix to reckon from; heading only.
		pose.Confidence = 0.2
		f.log.Warn("dead reckoning without a prior fix", logger.Fields(
			logger.FieldSensor, "imu",
		))
	}
	return pose, nil
}

// LastFix returns the most recent GPS sample with a fix, if any.
func (f *PoseFuser) LastFix() (GPSReading, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastFix == nil {
		return GPSReading{}, false
	}
	return *f.lastFix, true
}

func gpsConfidence(quality int) float64 {
	// Quality 1 is a plain fix, 2 DGPS, 4/5 RTK.
	switch {
	case quality >= 4:
		return 1.0
	case quality == 2:
		return 0.9
	default:
		return 0.8
	}
}

// deadReckon projects the last fix forward along the IMU heading at the
// fix's last known speed.
func deadReckon(fix *GPSReading, heading float64, elapsed time.Duration) (lat, lon float64) {
	distance := fix.SpeedMPS * elapsed.Seconds()
	rad := heading * math.Pi / 180
	lat = fix.Latitude + distance*math.Cos(rad)/metersPerDegree
	lon = fix.Longitude + distance*math.Sin(rad)/(metersPerDegree*math.Cos(fix.Latitude*math.Pi/180))
	return lat, lon
}

// Obstacle is a detection relative to the mower: bearing in degrees
// clockwise from the current heading, distance in meters.
type Obstacle struct {
	Bearing  float64
	Distance float64
	Source   string
}

// ObstacleSet is a fused detection list.
type ObstacleSet struct {
	Obstacles  []Obstacle
	Sources    []string
	Confidence float64
	Timestamp  time.Time
}

// detections within these tolerances are treated as the same object.
const (
	mergeBearingDeg = 10.0
	mergeDistanceM  = 0.5
)

// FuseObstacles merges camera and time-of-flight detections. A nil slice
// means the source is unavailable; an empty non-nil slice is a valid
// "nothing detected" report. Both sources present yields a merged list at
// high confidence; a single source passes through at reduced confidence.
func FuseObstacles(camera, tof []Obstacle) (ObstacleSet, error) {
	now := time.Now()
	switch {
	case camera == nil && tof == nil:
		return ObstacleSet{}, ErrNoSource
	case camera == nil:
		return ObstacleSet{
			Obstacles:  tagged(tof, "tof"),
			Sources:    []string{"tof"},
			Confidence: 0.6,
			Timestamp:  now,
		}, nil
	case tof == nil:
		return ObstacleSet{
			Obstacles:  tagged(camera, "camera"),
			Sources:    []string{"camera"},
			Confidence: 0.7,
			Timestamp:  now,
		}, nil
	}

	merged := tagged(camera, "camera")
	for _, t := range tof {
		matched := false
		for i, m := range merged {
			if math.Abs(m.Bearing-t.Bearing) <= mergeBearingDeg &&
				math.Abs(m.Distance-t.Distance) <= mergeDistanceM {
				// Keep the tighter range reading, mark as corroborated.
				if t.Distance < m.Distance {
					merged[i].Distance = t.Distance
				}
				merged[i].Source = "camera+tof"
				matched = true
				break
			}
		}
		if !matched {
			t.Source = "tof"
			merged = append(merged, t)
		}
	}
	return ObstacleSet{
		Obstacles:  merged,
		Sources:    []string{"camera", "tof"},
		Confidence: 0.95,
		Timestamp:  now,
	}, nil
}

func tagged(obstacles []Obstacle, source string) []Obstacle {
	out := make([]Obstacle, len(obstacles))
	for i, o := range obstacles {
		o.Source = source
		out[i] = o
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
