package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/metar-reader/internal/metar"
	"github.com/yegors/metar-reader/internal/weather"
	"github.com/yegors/metar-reader/pkg/logger"
)

type recordingWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testLookup(t *testing.T) *weather.Lookup {
	t.Helper()
	raw := "KJFK 161251Z 28008KT 10SM CLR 22/13 A3012"
	report, err := metar.Decode(raw)
	require.NoError(t, err)
	return &weather.Lookup{
		AirportCode: "KJFK",
		RawMETAR:    raw,
		Decoded:     report,
		FetchedAt:   time.Date(2026, 3, 16, 12, 51, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	lookup := testLookup(t)

	msg, err := serializeToMessage(lookup)
	require.NoError(t, err)

	assert.Equal(t, []byte("KJFK"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "airport_code", msg.Headers[0].Key)
	assert.Equal(t, []byte("KJFK"), msg.Headers[0].Value)
	assert.Equal(t, "fetched_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-03-16T12:51:00Z"), msg.Headers[1].Value)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "KJFK", body["airport_code"])
	assert.Equal(t, lookup.RawMETAR, body["raw_metar"])
	assert.Contains(t, body, "decoded_data")
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &recordingWriter{}
	publisher := &KafkaPublisher{writer: writer, topic: "metar-reports", logger: logger.NewNop()}

	require.NoError(t, publisher.Publish(context.Background(), testLookup(t)))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("KJFK"), writer.messages[0].Key)

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("leader not available")}
	publisher := &KafkaPublisher{writer: writer, topic: "metar-reports", logger: logger.NewNop()}

	err := publisher.Publish(context.Background(), testLookup(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metar-reports")
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(Config{Topic: "metar-reports"}, logger.NewNop())
	assert.Error(t, err)

	_, err = NewKafkaPublisher(Config{Brokers: []string{"localhost:9092"}}, logger.NewNop())
	assert.Error(t, err)

	publisher, err := NewKafkaPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "metar-reports"}, logger.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, publisher)
}

func TestNopPublisher(t *testing.T) {
	var publisher Publisher = NopPublisher{}
	assert.NoError(t, publisher.Publish(context.Background(), testLookup(t)))
	assert.NoError(t, publisher.Close())
}

func TestNewKafkaPublisher_FlushesWithoutWaitingForBatch(t *testing.T) {
	publisher, err := NewKafkaPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "metar-reports"}, logger.NewNop())
	require.NoError(t, err)

	writer, ok := publisher.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, 10*time.Millisecond, writer.BatchTimeout)
	assert.Equal(t, 10*time.Second, writer.WriteTimeout)
	assert.Equal(t, kafkago.RequireAll, writer.RequiredAcks)
}
