package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/storm-radar/internal/domain"
	"github.com/couchcryptid/storm-radar/internal/observability"
)

// DefaultBaseURL is the public NWS API.
const DefaultBaseURL = "https://api.weather.gov"

// Client implements domain.StationLocator using the NWS API.
type Client struct {
	userAgent  string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an NWS API client. The API rejects requests without a
// User-Agent identifying the caller.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Point returns the radar station, nearest city and time zone for a
// coordinate.
func (c *Client) Point(ctx context.Context, lat, lon float64) (domain.PointInfo, error) {
	// the API redirects requests with more than four decimals
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)

	var resp pointResponse
	if err := c.getJSON(ctx, u, "point", &resp); err != nil {
		return domain.PointInfo{}, err
	}

	p := resp.Properties
	return domain.PointInfo{
		RadarStation: p.RadarStation,
		City:         p.RelativeLocation.Properties.City,
		State:        p.RelativeLocation.Properties.State,
		TimeZone:     p.TimeZone,
	}, nil
}

// Station returns the operating mode and data latency of a radar station.
func (c *Client) Station(ctx context.Context, id string) (domain.StationInfo, error) {
	u := fmt.Sprintf("%s/radar/stations/%s", c.baseURL, strings.ToUpper(id))

	var resp stationResponse
	if err := c.getJSON(ctx, u, "station", &resp); err != nil {
		return domain.StationInfo{}, err
	}

	p := resp.Properties
	info := domain.StationInfo{
		ID:   p.ID,
		Name: p.Name,
	}
	if p.RDA != nil {
		info.Mode = p.RDA.Properties.VolumeCoveragePattern
	}
	if p.Latency != nil && p.Latency.LevelTwoLastReceivedTime != "" {
		t, err := time.Parse(time.RFC3339, p.Latency.LevelTwoLastReceivedTime)
		if err != nil {
			return domain.StationInfo{}, fmt.Errorf("%w: parse station latency: %w", domain.ErrSourceUnavailable, err)
		}
		info.LastReceived = t.UTC()
	}
	return info, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL, source string, out any) error {
	start := time.Now()
	err := c.doRequest(ctx, fullURL, source, out)
	c.metrics.SourceDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
		c.logger.Debug("nws request failed", "source", source, "url", fullURL, "error", err)
	}
	c.metrics.SourceRequests.WithLabelValues(source, outcome).Inc()
	return err
}

func (c *Client) doRequest(ctx context.Context, fullURL, source string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: nws %s request: %w", domain.ErrSourceUnavailable, source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: nws API error: status %d: %s", domain.ErrSourceUnavailable, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode nws %s: %w", domain.ErrSourceUnavailable, source, err)
	}
	return nil
}

// NWS API response types.

type pointResponse struct {
	Properties struct {
		RadarStation     string `json:"radarStation"`
		TimeZone         string `json:"timeZone"`
		RelativeLocation struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type stationResponse struct {
	Properties struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		RDA  *struct {
			Properties struct {
				VolumeCoveragePattern string `json:"volumeCoveragePattern"`
			} `json:"properties"`
		} `json:"rda"`
		Latency *struct {
			LevelTwoLastReceivedTime string `json:"levelTwoLastReceivedTime"`
		} `json:"latency"`
	} `json:"properties"`
}
