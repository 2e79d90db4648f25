package geo

import (
	"context"
	"math"
	"time"

	apperr "github.com/relaydrop/relaydrop-backend/pkg/errors"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Location is a geocoded address.
type Location struct {
	Address string
	Point   Coordinate
}

// TripEstimate carries the distance and travel time between two points.
type TripEstimate struct {
	DistanceKm float64
	ETAMinutes int
}

// Geocoder resolves a free-text address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Location, error)
}

// RouteEstimator computes distance and travel time between two coordinates.
type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination Coordinate) (*TripEstimate, error)
}

// Resolver composes geocoding and route estimation behind one timeout. A
// failure from either collaborator aborts the caller's flow; orders are never
// persisted with missing coordinates.
type Resolver struct {
	geocoder  Geocoder
	estimator RouteEstimator
	timeout   time.Duration
}

func NewResolver(geocoder Geocoder, estimator RouteEstimator, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		geocoder:  geocoder,
		estimator: estimator,
		timeout:   timeout,
	}
}

// ResolveTrip geocodes the dropoff address and estimates the trip from the
// store's pickup point.
func (r *Resolver) ResolveTrip(ctx context.Context, pickup Coordinate, dropoffAddress string) (*Location, *TripEstimate, error) {
	if r == nil || r.geocoder == nil || r.estimator == nil {
		return nil, nil, apperr.New(apperr.CodeDependency, "geo resolver not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	dropoff, err := r.geocoder.Geocode(ctx, dropoffAddress)
	if err != nil {
		return nil, nil, err
	}

	trip, err := r.estimator.Estimate(ctx, pickup, dropoff.Point)
	if err != nil {
		return nil, nil, err
	}

	return dropoff, trip, nil
}

const earthRadiusKm = 6371.0

// HaversineEstimator is the provider-free fallback: great-circle distance at a
// configured average speed.
type HaversineEstimator struct {
	AverageSpeedKmh float64
}

func (h HaversineEstimator) Estimate(_ context.Context, origin, destination Coordinate) (*TripEstimate, error) {
	distance := haversineKm(origin, destination)

	speed := h.AverageSpeedKmh
	if speed <= 0 {
		speed = 30
	}

	minutes := int(math.Ceil(distance / speed * 60))
	if minutes < 1 {
		minutes = 1
	}

	return &TripEstimate{
		DistanceKm: distance,
		ETAMinutes: minutes,
	}, nil
}

func haversineKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
