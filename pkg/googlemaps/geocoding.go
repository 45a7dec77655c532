// Package googlemaps resolves free-text places to IANA timezones with the Google Maps
// Geocoding and Time Zone APIs.
package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// ErrNoAPIKey is returned when the client has no API key configured.
var ErrNoAPIKey = errors.New("google maps API key not configured")

// Location represents a geographic location with coordinates.
type Location struct {
	Address   string
	Latitude  float64
	Longitude float64
}

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client handles Google Maps API operations.
type Client struct {
	httpClient HTTPClient
	logger     *slog.Logger
	now        func() time.Time
	apiKey     string
	baseURL    string
	attempts   uint
}

// NewClient creates a new Google Maps API client.
func NewClient(apiKey string, httpClient HTTPClient, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
		baseURL:    defaultBaseURL,
		attempts:   3,
	}
}

// Suggest geocodes query and returns the IANA timezone at that location.
func (c *Client) Suggest(ctx context.Context, query string) (string, error) {
	loc, err := c.GeocodeLocation(ctx, query)
	if err != nil {
		return "", err
	}
	tz, err := c.TimezoneForCoordinates(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return "", err
	}
	c.logger.Debug("maps suggestion", "query", query, "address", loc.Address, "timezone", tz)
	return tz, nil
}

// GeocodeLocation converts a location string to coordinates using Google Geocoding API.
func (c *Client) GeocodeLocation(ctx context.Context, location string) (*Location, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("address", location)
	params.Set("key", c.apiKey)

	var result struct {
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
				LocationType string `json:"location_type"`
			} `json:"geometry"`
			Types            []string `json:"types"`
			FormattedAddress string   `json:"formatted_address"`
		} `json:"results"`
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/geocode/json", params, &result); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", location, err)
	}

	if result.Status != "OK" || len(result.Results) == 0 {
		c.logger.Debug("geocoding failed", "location", location, "status", result.Status, "results_count", len(result.Results))
		return nil, fmt.Errorf("geocoding failed for %s: %s", location, result.Status)
	}

	first := result.Results[0]
	// A country-wide approximate result says nothing about which of its zones is meant.
	if strings.EqualFold(first.Geometry.LocationType, "approximate") &&
		slices.Contains(first.Types, "country") &&
		!slices.ContainsFunc(first.Types, func(t string) bool {
			return t == "locality" || t == "administrative_area_level_1" || t == "administrative_area_level_2"
		}) {
		c.logger.Debug("rejecting imprecise geocoding result", "location", location, "address", first.FormattedAddress)
		return nil, fmt.Errorf("location too imprecise for reliable timezone detection: %s", location)
	}

	return &Location{
		Address:   first.FormattedAddress,
		Latitude:  first.Geometry.Location.Lat,
		Longitude: first.Geometry.Location.Lng,
	}, nil
}

// TimezoneForCoordinates gets the timezone for given coordinates using Google Timezone API.
func (c *Client) TimezoneForCoordinates(ctx context.Context, lat, lng float64) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("timestamp", fmt.Sprint(c.now().Unix()))
	params.Set("key", c.apiKey)

	var result struct {
		TimeZoneID   string `json:"timeZoneId"`
		TimeZoneName string `json:"timeZoneName"`
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	if err := c.getJSON(ctx, "/timezone/json", params, &result); err != nil {
		return "", fmt.Errorf("timezone lookup: %w", err)
	}

	if result.Status != "OK" {
		if result.ErrorMessage != "" {
			return "", fmt.Errorf("timezone API failed: %s", result.ErrorMessage)
		}
		return "", fmt.Errorf("timezone API failed with status: %s", result.Status)
	}
	return result.TimeZoneID, nil
}

// getJSON fetches path with params and decodes the body into v. Transport errors and
// 5xx responses are retried; other failures are not.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	apiURL := c.baseURL + path + "?" + params.Encode()

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					c.logger.Debug("failed to close response body", "error", err)
				}
			}()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("server error: %s", resp.Status)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("unexpected status: %s", resp.Status))
			}
			body = data
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying maps request", "path", path, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
