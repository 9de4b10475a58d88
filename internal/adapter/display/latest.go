// Package display holds the sinks animations are shown on: an in-memory
// holder for the HTTP server and a file sink writing an animated GIF.
package display

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-radar/internal/frames"
)

// Latest keeps the most recent animation in memory.
type Latest struct {
	clock clockwork.Clock
	mu    sync.RWMutex
	anim  frames.Animation
	at    time.Time
}

// NewLatest creates an empty holder stamping shows with clock.
func NewLatest(clock clockwork.Clock) *Latest {
	return &Latest{clock: clock}
}

func (l *Latest) Name() string { return "latest" }

// Show replaces the held animation. Empty animations are ignored so the last
// good picture stays visible.
func (l *Latest) Show(_ context.Context, anim frames.Animation) error {
	if len(anim.Frames) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.anim = anim
	l.at = l.clock.Now()
	return nil
}

// Animation returns the held animation and when it was shown.
func (l *Latest) Animation() (frames.Animation, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.anim, l.at
}

// LatestPNG encodes the newest frame. ok is false before the first Show.
func (l *Latest) LatestPNG() (data []byte, frameTime time.Time, ok bool, err error) {
	anim, _ := l.Animation()
	frame, ok := anim.Latest()
	if !ok {
		return nil, time.Time{}, false, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame.Image); err != nil {
		return nil, time.Time{}, true, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), frame.UTC, true, nil
}
