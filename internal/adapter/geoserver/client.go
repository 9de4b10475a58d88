// Package geoserver reads radar rasters and NWS alert polygons from the NOAA
// NCEP GeoServer.
//
// Radar layers are served per station over WMS 1.3.0: GetCapabilities lists
// the available times and the layer's bounding box, GetMap renders one
// transparent PNG per time. Hazards and warnings are served as WFS 2.0.0
// GeoJSON from the "wwa" workspace, filtered with CQL on the latest
// IDP_FileDate, a bounding box and optionally the product type.
package geoserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/storm-radar/internal/domain"
	"github.com/couchcryptid/storm-radar/internal/observability"
)

// DefaultBaseURL is the public NCEP GeoServer.
const DefaultBaseURL = "https://opengeo.ncep.noaa.gov/geoserver"

// Client implements domain.TimeSource, domain.RasterSource and
// domain.AlertSource against one GeoServer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a GeoServer client.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		metrics:   metrics,
		logger:    logger,
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/") + "?" + query.Encode()
}

// fetch GETs fullURL and returns the body. Every failure wraps
// domain.ErrSourceUnavailable. Request count and latency are recorded under
// source.
func (c *Client) fetch(ctx context.Context, fullURL, source string) ([]byte, http.Header, error) {
	start := time.Now()
	body, header, err := c.doRequest(ctx, fullURL)
	c.metrics.SourceDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
		c.logger.Debug("geoserver request failed", "source", source, "url", fullURL, "error", err)
	}
	c.metrics.SourceRequests.WithLabelValues(source, outcome).Inc()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: geoserver %s: %w", domain.ErrSourceUnavailable, source, err)
	}
	return body, header, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header, nil
}
