package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestProducer_Publish(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	writer := &recordingWriter{}
	p := NewProducerWithWriter(writer, "fern.events", logger)

	err := p.Publish(context.Background(), "evt-1", "decision.saved", map[string]string{"event_id": "evt-1"})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "evt-1", string(msg.Key))
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, "decision.saved", string(msg.Headers[0].Value))

	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "evt-1", body["event_id"])
}

func TestProducer_PublishError(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	p := NewProducerWithWriter(&recordingWriter{err: errors.New("broker down")}, "fern.events", logger)

	err := p.Publish(context.Background(), "evt-1", "decision.saved", struct{}{})
	assert.EqualError(t, err, "broker down")
}

func TestPing_NoBrokers(t *testing.T) {
	assert.EqualError(t, Ping(context.Background(), nil), "no kafka brokers configured")
}

func TestPing_Unreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Ping(ctx, []string{"127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kafka broker reachable")
}
