package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// capabilityTimeLayout is the WMS time dimension format, e.g.
// "2024-04-26T15:02:11.000Z".
const capabilityTimeLayout = "2006-01-02T15:04:05.000Z"

// ParseTimeList splits a comma-joined WMS time dimension into UTC times.
func ParseTimeList(csv string) ([]time.Time, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}

	parts := strings.Split(csv, ",")
	times := make([]time.Time, 0, len(parts))
	for _, part := range parts {
		t, err := parseCapabilityTime(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse time list: %w", err)
		}
		times = append(times, t)
	}
	return times, nil
}

func parseCapabilityTime(s string) (time.Time, error) {
	if t, err := time.Parse(capabilityTimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// SelectFrameTimes returns the min(n, len(all)) most recent times, oldest
// first, which is animation order.
func SelectFrameTimes(all []time.Time, n int) []time.Time {
	if n <= 0 || len(all) == 0 {
		return []time.Time{}
	}

	sorted := slices.Clone(all)
	slices.SortStableFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[len(sorted)-n:]
}

// PlaceholderFrameTimes is the soft-failure result used when the time list is
// unavailable: n zero times, each of which the frame builder skips.
func PlaceholderFrameTimes(n int) []time.Time {
	if n < 0 {
		n = 0
	}
	return make([]time.Time, n)
}

// Localize converts t into the named IANA zone. It never reads or changes the
// process-wide local zone.
func Localize(t time.Time, zoneID string) (time.Time, error) {
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return time.Time{}, fmt.Errorf("load zone %q: %w", zoneID, err)
	}
	return t.In(loc), nil
}

// MinutesSince returns whole minutes elapsed from t to now, floored. Zero or
// negative deltas clamp to 0.
func MinutesSince(t, now time.Time) int {
	d := now.Sub(t)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// TimeLabel formats the frame caption, e.g. "15:04 EDT (07 mins ago)".
func TimeLabel(local, now time.Time) string {
	return fmt.Sprintf("%s (%02d mins ago)", local.Format("15:04 MST"), MinutesSince(local, now))
}
