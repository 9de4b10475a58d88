package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Where the radar is pointed. Station and TimeZone are fallbacks used when
	// the NWS point lookup fails.
	Lat      float64
	Lon      float64
	Station  string
	TimeZone string
	Layer    string

	Zoom          int
	Frames        int // 0 picks the count from the station's scan mode
	RadarOpacity  uint8
	HazardOpacity uint8
	CanvasWidth   int
	CanvasHeight  int
	AlertKinds    []string

	NWSAPIURL        string
	UserAgent        string
	GeoServerURL     string
	BasemapURL       string
	BasemapLabelsURL string
	HTTPTimeout      time.Duration
	PointCacheSize   int

	OverlayPath string
	FontPath    string
	OutputDir   string

	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaFrameTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	lat, err := requiredFloat("RADAR_LAT", -90, 90)
	if err != nil {
		return nil, err
	}
	lon, err := requiredFloat("RADAR_LON", -180, 180)
	if err != nil {
		return nil, err
	}

	zoom, err := intInRange("RADAR_ZOOM", 7, 0, 18)
	if err != nil {
		return nil, err
	}
	frames, err := intInRange("RADAR_FRAMES", 0, 0, 50)
	if err != nil {
		return nil, err
	}
	radarOpacity, err := intInRange("RADAR_OPACITY", 155, 0, 255)
	if err != nil {
		return nil, err
	}
	hazardOpacity, err := intInRange("HAZARD_OPACITY", 200, 0, 255)
	if err != nil {
		return nil, err
	}
	width, err := intInRange("CANVAS_WIDTH", 320, 64, 4096)
	if err != nil {
		return nil, err
	}
	cacheSize, err := intInRange("POINT_CACHE_SIZE", 64, 1, 100000)
	if err != nil {
		return nil, err
	}

	httpTimeout, err := positiveDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	brokers := sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"))
	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		Lat:      lat,
		Lon:      lon,
		Station:  strings.ToLower(sharedcfg.EnvOrDefault("RADAR_STATION", "kdix")),
		TimeZone: sharedcfg.EnvOrDefault("RADAR_TIMEZONE", "America/New_York"),
		Layer:    sharedcfg.EnvOrDefault("RADAR_LAYER", "bohp"),

		Zoom:          zoom,
		Frames:        frames,
		RadarOpacity:  uint8(radarOpacity),
		HazardOpacity: uint8(hazardOpacity),
		CanvasWidth:   width,
		CanvasHeight:  width * 3 / 4,
		AlertKinds:    sharedcfg.ParseBrokers(os.Getenv("ALERT_KINDS")),

		NWSAPIURL:        sharedcfg.EnvOrDefault("NWS_API_URL", "https://api.weather.gov"),
		UserAgent:        sharedcfg.EnvOrDefault("NWS_USER_AGENT", "(storm-radar, storm-radar@example.com)"),
		GeoServerURL:     sharedcfg.EnvOrDefault("GEOSERVER_URL", "https://opengeo.ncep.noaa.gov/geoserver"),
		BasemapURL:       sharedcfg.EnvOrDefault("BASEMAP_URL", "https://basemaps.cartocdn.com/light_nolabels/{z}/{x}/{y}.png"),
		BasemapLabelsURL: sharedcfg.EnvOrDefault("BASEMAP_LABELS_URL", "https://basemaps.cartocdn.com/light_only_labels/{z}/{x}/{y}.png"),
		HTTPTimeout:      httpTimeout,
		PointCacheSize:   cacheSize,

		OverlayPath: os.Getenv("OVERLAY_PATH"),
		FontPath:    os.Getenv("FONT_PATH"),
		OutputDir:   os.Getenv("OUTPUT_DIR"),

		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    brokers,
		KafkaFrameTopic: sharedcfg.EnvOrDefault("KAFKA_FRAME_TOPIC", "radar-frames"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if strings.TrimSpace(cfg.Layer) == "" {
		return nil, errors.New("RADAR_LAYER is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid RADAR_TIMEZONE: %w", err)
	}

	return cfg, nil
}

func requiredFloat(key string, lo, hi float64) (float64, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("invalid %s: must be a number in [%g, %g]", key, lo, hi)
	}
	return v, nil
}

func intInRange(key string, fallback, lo, hi int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi)
	}
	return v, nil
}

func positiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
