// Package geo resolves the device position for a clock submission and checks
// it against the branch geofences.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("location unavailable")
	ErrLocationTimeout     = errors.New("location request timed out")
)

// Error codes a client reports when it could not obtain a fix.
const (
	CodePermissionDenied    = "permission_denied"
	CodePositionUnavailable = "position_unavailable"
	CodeTimeout             = "timeout"
)

type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Locator is the positioning capability.
type Locator interface {
	Locate(ctx context.Context) (Position, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Position, error)

func (f LocatorFunc) Locate(ctx context.Context) (Position, error) {
	return f(ctx)
}

// Reported is a Locator for a position the client already sent with the
// request. code, when set, is the client's error code.
func Reported(lat, lng *float64, accuracy float64, code string) Locator {
	return LocatorFunc(func(ctx context.Context) (Position, error) {
		if code != "" {
			return Position{}, ClassifyCode(code)
		}
		if lat == nil || lng == nil {
			return Position{}, ErrPositionUnavailable
		}
		if math.Abs(*lat) > 90 || math.Abs(*lng) > 180 {
			return Position{}, fmt.Errorf("%w: coordinates out of range", ErrPositionUnavailable)
		}
		return Position{Latitude: *lat, Longitude: *lng, Accuracy: accuracy}, nil
	})
}

// ClassifyCode maps a client error code to one of the package errors.
func ClassifyCode(code string) error {
	switch code {
	case CodePermissionDenied:
		return ErrPermissionDenied
	case CodeTimeout:
		return ErrLocationTimeout
	default:
		return ErrPositionUnavailable
	}
}

// Locate asks l for a position, giving up after timeout.
func Locate(ctx context.Context, l Locator, timeout time.Duration) (Position, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		pos Position
		err error
	}
	done := make(chan result, 1)
	go func() {
		pos, err := l.Locate(ctx)
		done <- result{pos, err}
	}()

	select {
	case r := <-done:
		if errors.Is(r.err, context.DeadlineExceeded) {
			return Position{}, ErrLocationTimeout
		}
		return r.pos, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Position{}, ErrLocationTimeout
		}
		return Position{}, ctx.Err()
	}
}

// HaversineDistance returns the distance between two coordinates in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000

	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)

	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Match is the closest geofence to a position.
type Match struct {
	Fence    schedule.Geofence
	Distance float64
	Inside   bool
}

// Nearest finds the closest fence. ok is false when fences is empty.
func Nearest(pos Position, fences []schedule.Geofence) (Match, bool) {
	if len(fences) == 0 {
		return Match{}, false
	}

	best := Match{Distance: math.Inf(1)}
	for _, f := range fences {
		d := HaversineDistance(pos.Latitude, pos.Longitude, f.Latitude, f.Longitude)
		if d < best.Distance {
			best = Match{Fence: f, Distance: d, Inside: d <= float64(f.RadiusMeters)}
		}
	}
	return best, true
}
