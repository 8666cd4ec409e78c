package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeCommitter struct{ offsets []int64 }

func (f *fakeCommitter) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.offsets = append(f.offsets, m.Offset)
	}
	return nil
}

type scriptedHandler struct {
	calls int
	errs  []error
}

func (h *scriptedHandler) Topic() string { return "requests" }

func (h *scriptedHandler) Handle(context.Context, []byte) error {
	h.calls++
	if len(h.errs) == 0 {
		return nil
	}
	err := h.errs[0]
	h.errs = h.errs[1:]
	return err
}

func testConsumer(h MessageHandler, dlq *fakeWriter) *Consumer {
	c := newConsumer(&ConsumerConfig{
		RetryMax:   2,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
		DLQTopic:   "requests_dlq",
		BufferSize: 1,
	}, nil, prometheus.NewRegistry())
	if dlq != nil {
		c.dlq = dlq
	}
	c.RegisterHandler(h)
	return c
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, prometheus.NewRegistry())

	require.NoError(t, p.Publish(context.Background(), "results", []byte("run-1"), map[string]int{"origins": 6}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "raw"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "results", w.msgs[0].Topic)
	assert.Equal(t, []byte("run-1"), w.msgs[0].Key)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, 6, decoded["origins"])
	assert.Equal(t, []byte("raw"), w.msgs[1].Value)
	assert.Nil(t, w.msgs[1].Key)

	w.err = errors.New("broker down")
	assert.ErrorContains(t, p.Publish(context.Background(), "results", nil, "x"), "broker down")
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	h := &scriptedHandler{errs: []error{errors.New("transient")}}
	dlq := &fakeWriter{}
	c := testConsumer(h, dlq)
	commit := &fakeCommitter{}

	c.process(kafka.Message{Topic: "requests", Offset: 7}, commit)

	assert.Equal(t, 2, h.calls)
	assert.Empty(t, dlq.msgs)
	assert.Equal(t, []int64{7}, commit.offsets)
}

func TestConsumerDeadLettersAfterRetries(t *testing.T) {
	fail := errors.New("still failing")
	h := &scriptedHandler{errs: []error{fail, fail, fail, fail}}
	dlq := &fakeWriter{}
	c := testConsumer(h, dlq)
	commit := &fakeCommitter{}

	c.process(kafka.Message{Topic: "requests", Offset: 3, Value: []byte(`{}`)}, commit)

	assert.Equal(t, 3, h.calls, "first attempt plus RetryMax retries")
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "requests_dlq", dlq.msgs[0].Topic)
	assert.Equal(t, []byte(`{}`), dlq.msgs[0].Value)
	assert.Equal(t, []int64{3}, commit.offsets)
}

func TestConsumerPermanentErrorSkipsRetries(t *testing.T) {
	h := &scriptedHandler{errs: []error{Permanent(errors.New("bad payload"))}}
	dlq := &fakeWriter{}
	c := testConsumer(h, dlq)
	commit := &fakeCommitter{}

	c.process(kafka.Message{Topic: "requests", Offset: 1}, commit)

	assert.Equal(t, 1, h.calls)
	assert.Len(t, dlq.msgs, 1)
	assert.Equal(t, []int64{1}, commit.offsets)
}

func TestConsumerKeepsOffsetWhenDLQFails(t *testing.T) {
	h := &scriptedHandler{errs: []error{Permanent(errors.New("bad payload"))}}
	dlq := &fakeWriter{err: errors.New("dlq down")}
	c := testConsumer(h, dlq)
	commit := &fakeCommitter{}

	c.process(kafka.Message{Topic: "requests", Offset: 1}, commit)

	assert.Empty(t, commit.offsets)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}
