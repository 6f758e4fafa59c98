package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type scriptedReader struct {
	queue     []kafka.Message
	committed []int64
}

func (r *scriptedReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w, topic: "order.placed", eventType: "order.placed.v1"}

	err := p.Publish(context.Background(), "order-1", map[string]any{"order_id": "order-1", "total": 100})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "order-1", string(msg.Key))
	assert.Equal(t, "order.placed.v1", headerValue(&msg, HeaderEventType))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "order-1", body["order_id"])

	w.err = errors.New("broker down")
	err = p.Publish(context.Background(), "order-2", map[string]any{})
	assert.ErrorContains(t, err, "broker down")
}

func TestHeaderCarrier(t *testing.T) {
	msg := kafka.Message{}
	c := headerCarrier{msg: &msg}

	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	c.Set("baggage", "k=v")

	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "b", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, c.Keys())
}

func TestConsumer_Consume(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("commits handled and permanently failed messages", func(t *testing.T) {
		r := &scriptedReader{queue: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("bad")},
			{Offset: 3, Value: []byte("ok")},
		}}
		c := &Consumer{reader: r, topic: "order.placed", groupID: "g", logger: logger}

		var seen []string
		err := c.Consume(context.Background(), func(_ context.Context, payload []byte) error {
			seen = append(seen, string(payload))
			if string(payload) == "bad" {
				return fmt.Errorf("decode: %w", ErrPermanent)
			}
			return nil
		})

		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, []string{"ok", "bad", "ok"}, seen)
		assert.Equal(t, []int64{1, 2, 3}, r.committed)
	})

	t.Run("stops without committing on retryable failure", func(t *testing.T) {
		r := &scriptedReader{queue: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("flaky")},
			{Offset: 3, Value: []byte("ok")},
		}}
		c := &Consumer{reader: r, topic: "order.placed", groupID: "g", logger: logger}

		retryable := errors.New("email service unavailable")
		err := c.Consume(context.Background(), func(_ context.Context, payload []byte) error {
			if string(payload) == "flaky" {
				return retryable
			}
			return nil
		})

		assert.ErrorIs(t, err, retryable)
		assert.Equal(t, []int64{1}, r.committed)
	})
}
