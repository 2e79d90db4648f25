package geo

import (
	"context"

	"github.com/relaydrop/relaydrop-backend/pkg/maps"
)

// MapsGeocoder adapts the Google Maps client to the Geocoder interface.
type MapsGeocoder struct {
	Client *maps.Client
}

func (g MapsGeocoder) Geocode(ctx context.Context, address string) (*Location, error) {
	result, err := g.Client.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	return &Location{
		Address: result.FormattedAddress,
		Point: Coordinate{
			Lat: result.Location.Latitude,
			Lng: result.Location.Longitude,
		},
	}, nil
}

// MapsRouteEstimator adapts the Routes API to the RouteEstimator interface.
type MapsRouteEstimator struct {
	Client *maps.Client
}

func (e MapsRouteEstimator) Estimate(ctx context.Context, origin, destination Coordinate) (*TripEstimate, error) {
	route, err := e.Client.ComputeRoute(ctx,
		maps.LatLng{Latitude: origin.Lat, Longitude: origin.Lng},
		maps.LatLng{Latitude: destination.Lat, Longitude: destination.Lng},
	)
	if err != nil {
		return nil, err
	}
	return &TripEstimate{
		DistanceKm: route.DistanceKm,
		ETAMinutes: route.DurationMinutes,
	}, nil
}
