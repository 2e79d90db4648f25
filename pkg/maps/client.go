package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/relaydrop/relaydrop-backend/pkg/errors"
)

const (
	defaultGeocodeBaseURL       = "https://maps.googleapis.com/maps/api"
	defaultRoutesBaseURL        = "https://routes.googleapis.com"
	routeFieldMask              = "routes.distanceMeters,routes.duration"
	requestBodyReadLimit  int64 = 1024
)

var (
	errAPIKeyRequired = errors.New("google maps api key is required")
)

// Client wraps the Google Geocoding and Routes APIs used to resolve delivery
// endpoints and travel estimates.
type Client struct {
	httpClient     *http.Client
	geocodeBaseURL string
	routesBaseURL  string
	apiKey         string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithGeocodeBaseURL overrides the Geocoding base URL.
func WithGeocodeBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.geocodeBaseURL = trimmed
		}
	}
}

// WithRoutesBaseURL overrides the Routes base URL.
func WithRoutesBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.routesBaseURL = trimmed
		}
	}
}

// NewClient builds the Google Maps client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:         trimmedKey,
		geocodeBaseURL: defaultGeocodeBaseURL,
		routesBaseURL:  defaultRoutesBaseURL,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return client, nil
}

// LatLng is the latitude/longitude pair returned by Google.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

// GeocodeResult is the normalized payload returned by the Geocoding API.
type GeocodeResult struct {
	FormattedAddress string
	Location         LatLng
}

// RouteEstimate carries road distance and travel time between two points.
type RouteEstimate struct {
	DistanceKm      float64
	DurationMinutes int
}

// Geocode resolves a free-form address to coordinates. Zero results map to a
// validation error so callers can surface the bad address to the client.
func (c *Client) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	query := url.Values{}
	query.Set("address", trimmed)
	query.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/geocode/json?%s", strings.TrimRight(c.geocodeBaseURL, "/"), query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build geocode request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "geocode request failed")
	}

	var apiResp struct {
		Status  string `json:"status"`
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode geocode response")
	}

	switch apiResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address could not be resolved")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("geocode status %s", apiResp.Status))
	}
	if len(apiResp.Results) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address could not be resolved")
	}

	first := apiResp.Results[0]
	return &GeocodeResult{
		FormattedAddress: first.FormattedAddress,
		Location: LatLng{
			Latitude:  first.Geometry.Location.Lat,
			Longitude: first.Geometry.Location.Lng,
		},
	}, nil
}

// ComputeRoute fetches driving distance and duration between two coordinates.
func (c *Client) ComputeRoute(ctx context.Context, origin, destination LatLng) (*RouteEstimate, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"origin":      waypoint(origin),
		"destination": waypoint(destination),
		"travelMode":  "DRIVE",
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal route request")
	}

	endpoint := fmt.Sprintf("%s/directions/v2:computeRoutes", strings.TrimRight(c.routesBaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build route request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", routeFieldMask)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute route request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "route request failed")
	}

	var apiResp struct {
		Routes []struct {
			DistanceMeters int    `json:"distanceMeters"`
			Duration       string `json:"duration"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode route response")
	}
	if len(apiResp.Routes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "no route between endpoints")
	}

	route := apiResp.Routes[0]
	duration, err := time.ParseDuration(route.Duration)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse route duration")
	}

	minutes := int(duration.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	return &RouteEstimate{
		DistanceKm:      float64(route.DistanceMeters) / 1000.0,
		DurationMinutes: minutes,
	}, nil
}

func waypoint(point LatLng) map[string]any {
	return map[string]any{
		"location": map[string]any{
			"latLng": map[string]any{
				"latitude":  point.Latitude,
				"longitude": point.Longitude,
			},
		},
	}
}
