package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// StationStatus is the coarse health of a radar site derived from how long
// ago it last delivered level-II data.
type StationStatus string

const (
	StationUp      StationStatus = "Up"
	StationWarning StationStatus = "Warning"
	StationDown    StationStatus = "Down"
)

const (
	upLatency      = 10 * time.Minute
	warningLatency = time.Hour

	cleanAirFrames      = 5
	precipitationFrames = 10
)

// cleanAirModes are the volume coverage patterns of a slow clear-air scan.
var cleanAirModes = map[string]bool{
	"R30": true,
	"R31": true,
	"R32": true,
	"R35": true,
	"---": true,
}

// StationHealth classifies a station by data latency:
//   - under 10 minutes: Up
//   - 10 to 60 minutes: Warning
//   - anything older (including a day or more): Down
//
// The latency is returned in minutes rounded to one decimal.
func StationHealth(lastReceived, now time.Time) (StationStatus, float64) {
	latency := now.Sub(lastReceived)
	if latency < 0 {
		latency = 0
	}
	minutes := math.Round(latency.Minutes()*10) / 10

	switch {
	case latency >= 24*time.Hour:
		return StationDown, minutes
	case latency < upLatency:
		return StationUp, minutes
	case latency < warningLatency:
		return StationWarning, minutes
	default:
		return StationDown, minutes
	}
}

// FrameCountForMode returns how many animation frames to build. A positive
// override wins; otherwise clear-air modes get 5 frames and precipitation
// modes 10.
func FrameCountForMode(mode string, override int) int {
	if override > 0 {
		return override
	}
	if cleanAirModes[strings.ToUpper(strings.TrimSpace(mode))] || strings.TrimSpace(mode) == "" {
		return cleanAirFrames
	}
	return precipitationFrames
}

// StationDownMessage is the status text shown when the radar cannot be used,
// e.g. "(15:04) kdix down\n Last received: 12.5 mins ago".
func StationDownMessage(localNow time.Time, station string, status StationStatus, latencyMinutes float64) string {
	return fmt.Sprintf("(%s) %s %s\n Last received: %.1f mins ago",
		localNow.Format("15:04"), station, strings.ToLower(string(status)), latencyMinutes)
}
