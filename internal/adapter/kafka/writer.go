package kafka

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-radar/internal/frames"
	"github.com/couchcryptid/storm-radar/internal/render"
)

// Message header keys.
const (
	HeaderFrameTime = "frame_time"
	HeaderLocalTime = "local_time"
	HeaderKind      = "kind"
	HeaderIndex     = "frame_index"
	HeaderCount     = "frame_count"
)

// Writer publishes animation frames to a Kafka topic as PNG images.
// It implements the display sink interface of the cycle runner.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the frame topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchBytes:   16 << 20,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Show publishes every frame of the animation in a single WriteMessages call.
// Frames share the station key so they land on one partition in order.
func (w *Writer) Show(ctx context.Context, anim frames.Animation) error {
	if len(anim.Frames) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(anim.Frames))
	for i := range anim.Frames {
		msg, err := serializeToMessage(anim, i)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish frames: %w", err)
	}
	w.logger.Debug("frames published", "topic", w.writer.Topic, "station", anim.Station, "frames", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage encodes frame i of anim into a Kafka message.
func serializeToMessage(anim frames.Animation, i int) (kafkago.Message, error) {
	frame := anim.Frames[i]
	data, err := encodePNG(frame)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(anim.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderFrameTime, Value: []byte(frame.UTC.Format(time.RFC3339))},
			{Key: HeaderLocalTime, Value: []byte(frame.Local.Format(time.RFC3339))},
			{Key: HeaderKind, Value: []byte(anim.Kind)},
			{Key: HeaderIndex, Value: []byte(strconv.Itoa(i))},
			{Key: HeaderCount, Value: []byte(strconv.Itoa(len(anim.Frames)))},
		},
	}, nil
}

func encodePNG(frame render.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame.Image); err != nil {
		return nil, fmt.Errorf("encode frame %s: %w", frame.UTC.Format(time.RFC3339), err)
	}
	return buf.Bytes(), nil
}
