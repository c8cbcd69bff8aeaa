package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	queue  []*EventDocument
	sent   []string
	failed map[string]time.Time
}

func (s *fakeStore) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	if len(s.queue) == 0 {
		return nil, nil
	}
	doc := s.queue[0]
	s.queue = s.queue[1:]
	return doc, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id string) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	if s.failed == nil {
		s.failed = map[string]time.Time{}
	}
	s.failed[id] = next
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	out  []published
	fail bool
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

type countingObserver struct{ ok, failed int }

func (o *countingObserver) ObserveOutbox(err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	store := &fakeStore{queue: []*EventDocument{{
		ID:         "evt-1",
		Name:       "escrow.released",
		Aggregate:  "BK-1",
		Payload:    []byte(`{"booking_id":"BK-1"}`),
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Headers:    map[string]string{"source": "shortlet"},
	}}}
	producer := &fakeProducer{}
	metrics := &countingObserver{}
	w := &Worker{Store: store, Producer: producer, TopicPrefix: "prod.", Metrics: metrics}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, producer.out, 1)
	msg := producer.out[0]
	assert.Equal(t, "prod.escrow.events.v1", msg.topic)
	assert.Equal(t, "BK-1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "shortlet", msg.headers["source"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "evt-1", evt["id"])
	assert.Equal(t, "escrow.released.v1", evt["type"])
	assert.Equal(t, map[string]any{"booking_id": "BK-1"}, evt["data"])
	assert.Equal(t, []string{"evt-1"}, store.sent)
	assert.Equal(t, 1, metrics.ok)
}

func TestDrainSchedulesRetryWithBackoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{queue: []*EventDocument{
		{ID: "evt-1", Name: "booking.confirmed", Payload: []byte(`{}`), Attempts: 1},
	}}
	w := &Worker{
		Store:    store,
		Producer: &fakeProducer{fail: true},
		Backoff:  []time.Duration{time.Second, time.Minute},
		Clock:    func() time.Time { return now },
		Metrics:  &countingObserver{},
	}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Empty(t, store.sent)
	require.Equal(t, now.Add(time.Minute), store.failed["evt-1"])
}

func TestDrainMarksUndecodablePayloadFailed(t *testing.T) {
	store := &fakeStore{queue: []*EventDocument{{ID: "evt-1", Name: "payment.succeeded", Payload: []byte(`not json`)}}}
	producer := &fakeProducer{}
	w := &Worker{Store: store, Producer: producer}

	_, err := w.Drain(context.Background())
	require.NoError(t, err)
	require.Empty(t, producer.out)
	require.Contains(t, store.failed, "evt-1")
}

func TestDrainStopsAtBatchSize(t *testing.T) {
	store := &fakeStore{}
	for _, id := range []string{"a", "b", "c"} {
		store.queue = append(store.queue, &EventDocument{ID: id, Name: "wallet.credited", Payload: []byte(`{}`)})
	}
	w := &Worker{Store: store, Producer: &fakeProducer{}, BatchSize: 2}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, store.queue, 1)
}

func TestRunRequiresDependencies(t *testing.T) {
	w := &Worker{}
	require.ErrorIs(t, w.Run(context.Background()), ErrWorkerNotConfigured)
}
