// SPDX-License-Identifier: MIT

package statusfeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/reportstream/internal/bus"
	"github.com/ManuGH/reportstream/internal/domain/report/actor"
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/domain/report/store"
	"github.com/ManuGH/reportstream/internal/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSink struct {
	mu      sync.Mutex
	updates []model.StatusUpdate
	sources []string
	err     error
	got     chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{got: make(chan struct{}, 16)}
}

func (r *recordingSink) RequestStatusUpdate(_ context.Context, u model.StatusUpdate, source string) error {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.sources = append(r.sources, source)
	err := r.err
	r.mu.Unlock()
	r.got <- struct{}{}
	return err
}

func (r *recordingSink) snapshot() ([]model.StatusUpdate, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.StatusUpdate(nil), r.updates...), append([]string(nil), r.sources...)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func runAsync(ctx context.Context, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	return done
}

// waitSubscribed publishes nothing until the consumer holds a subscription.
func waitSubscribed(t *testing.T, b *bus.MemoryBus, topic string) {
	t.Helper()
	require.Eventually(t, func() bool { return b.Subscribers(topic) > 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestConsumer_SkipsMalformedMessages(t *testing.T) {
	b := bus.NewMemoryBus(8)
	defer b.Close()
	sink := newRecordingSink()
	c := NewConsumer(b, "", sink).WithLogger(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, c.Run)
	waitSubscribed(t, b, DefaultTopic)

	require.NoError(t, b.Publish(ctx, DefaultTopic, bus.Message{Value: []byte("garbage")}))
	require.NoError(t, b.Publish(ctx, DefaultTopic, bus.Message{Value: []byte(`{"id":"` + uuid.NewString() + `","status":"nope"}`)}))

	u := model.StatusUpdate{ID: uuid.New(), Status: model.StatusQueued}
	msg, err := Encode(DefaultTopic, u)
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, DefaultTopic, msg))
	waitFor(t, sink.got)

	cancel()
	require.NoError(t, <-done)

	updates, sources := sink.snapshot()
	assert.Equal(t, []model.StatusUpdate{u}, updates)
	assert.Equal(t, []string{actor.SourceBus}, sources)
}

func TestConsumer_TracesEachMessage(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	b := bus.NewMemoryBus(8)
	defer b.Close()
	sink := newRecordingSink()
	c := NewConsumer(b, "", sink).WithLogger(zerolog.Nop()).WithTracer(tp.Tracer("test"))

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, c.Run)
	waitSubscribed(t, b, DefaultTopic)

	require.NoError(t, b.Publish(ctx, DefaultTopic, bus.Message{Value: []byte("garbage")}))
	u := model.StatusUpdate{ID: uuid.New(), Status: model.StatusCompleted}
	msg, err := Encode(DefaultTopic, u)
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, DefaultTopic, msg))
	waitFor(t, sink.got)

	cancel()
	require.NoError(t, <-done)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	attrsOf := func(s sdktrace.ReadOnlySpan) map[string]string {
		out := map[string]string{}
		for _, kv := range s.Attributes() {
			out[string(kv.Key)] = kv.Value.Emit()
		}
		return out
	}

	bad := attrsOf(spans[0])
	assert.Equal(t, DefaultTopic, bad["messaging.destination"])
	assert.Equal(t, "0", bad["messaging.offset"])
	assert.Equal(t, "decode", bad["error.type"])
	assert.Equal(t, "Error", spans[0].Status().Code.String())

	good := attrsOf(spans[1])
	assert.Equal(t, "1", good["messaging.offset"])
	assert.Equal(t, u.ID.String(), good["report.id"])
	assert.Equal(t, "completed", good["report.status"])
	assert.NotContains(t, good, "error.type")
}

func TestConsumer_WaitsOutInboxBackpressure(t *testing.T) {
	st := store.NewMemoryStore()
	cfg := actor.DefaultConfig()
	cfg.QueueSize = 1
	cfg.SubmitTimeout = 20 * time.Millisecond
	a := actor.New(st, cfg, actor.WithLogger(zerolog.Nop()))

	ctx := context.Background()
	r := model.NewReport(uuid.New())
	require.NoError(t, st.InsertReport(ctx, r))
	// the loop is not running yet, so this fills the inbox
	require.NoError(t, a.WarmCache(ctx, []model.Report{model.NewReport(uuid.New())}))

	b := bus.NewMemoryBus(8)
	defer b.Close()
	c := NewConsumer(b, "", a).WithLogger(zerolog.Nop())
	consumeCtx, stopConsumer := context.WithCancel(ctx)
	done := runAsync(consumeCtx, c.Run)
	waitSubscribed(t, b, DefaultTopic)

	msg, err := Encode(DefaultTopic, model.StatusUpdate{ID: r.ReportID, Status: model.StatusQueued})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, DefaultTopic, msg))

	// well past SubmitTimeout the update must still be pending, not dropped
	time.Sleep(5 * cfg.SubmitTimeout)
	got, _, err := st.GetStatus(ctx, r.ReportID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got)

	runCtx, stopActor := context.WithCancel(ctx)
	actorDone := make(chan error, 1)
	go func() { actorDone <- a.Run(runCtx) }()

	require.Eventually(t, func() bool {
		got, ok, err := st.GetStatus(ctx, r.ReportID)
		return err == nil && ok && got == model.StatusQueued
	}, 2*time.Second, 5*time.Millisecond)

	stopConsumer()
	require.NoError(t, <-done)
	stopActor()
	require.NoError(t, <-actorDone)
}

func TestConsumer_ContinuesAfterSubmitError(t *testing.T) {
	b := bus.NewMemoryBus(8)
	defer b.Close()
	sink := newRecordingSink()
	sink.err = actor.ErrSubmitFailed
	c := NewConsumer(b, "", sink).WithLogger(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, c.Run)
	waitSubscribed(t, b, DefaultTopic)

	for range 2 {
		msg, err := Encode(DefaultTopic, model.StatusUpdate{ID: uuid.New(), Status: model.StatusFailed})
		require.NoError(t, err)
		require.NoError(t, b.Publish(ctx, DefaultTopic, msg))
		waitFor(t, sink.got)
	}

	cancel()
	require.NoError(t, <-done)
	updates, _ := sink.snapshot()
	assert.Len(t, updates, 2)
}

type failingBus struct {
	bus.Bus
	subErr error
	sub    *haltingSub
}

func (f *failingBus) Subscribe(context.Context, string) (bus.Subscriber, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.sub, nil
}

type haltingSub struct {
	ch  chan bus.Message
	err error
}

func (h *haltingSub) C() <-chan bus.Message { return h.ch }
func (h *haltingSub) Err() error            { return h.err }
func (h *haltingSub) Close() error          { return nil }

func TestConsumer_HaltsWhenBrokersUnreachable(t *testing.T) {
	t.Run("at subscribe", func(t *testing.T) {
		c := NewConsumer(&failingBus{subErr: bus.ErrBrokersUnreachable}, "", newRecordingSink()).WithLogger(zerolog.Nop())
		err := c.Run(context.Background())
		assert.ErrorIs(t, err, bus.ErrBrokersUnreachable)
	})

	t.Run("mid stream", func(t *testing.T) {
		sub := &haltingSub{ch: make(chan bus.Message), err: bus.ErrBrokersUnreachable}
		close(sub.ch)
		c := NewConsumer(&failingBus{sub: sub}, "", newRecordingSink()).WithLogger(zerolog.Nop())
		err := c.Run(context.Background())
		assert.ErrorIs(t, err, bus.ErrBrokersUnreachable)
	})

	t.Run("plain close", func(t *testing.T) {
		sub := &haltingSub{ch: make(chan bus.Message)}
		close(sub.ch)
		c := NewConsumer(&failingBus{sub: sub}, "", newRecordingSink()).WithLogger(zerolog.Nop())
		assert.NoError(t, c.Run(context.Background()))
	})
}

func TestProducer_EnqueueBounds(t *testing.T) {
	p := NewProducer(bus.NewMemoryBus(1), "", 2).WithLogger(zerolog.Nop())
	drops := metrics.BusDroppedTotal.WithLabelValues(DefaultTopic, "outbox_full")
	before := testutil.ToFloat64(drops)

	u := model.StatusUpdate{ID: uuid.New(), Status: model.StatusQueued}
	require.NoError(t, p.Enqueue(u))
	require.NoError(t, p.Enqueue(u))
	err := p.Enqueue(u)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPublishFailure)
	assert.Equal(t, 2, p.Pending())
	assert.Equal(t, before+1, testutil.ToFloat64(drops))
}

func TestProducer_PublishesKeyedMessages(t *testing.T) {
	b := bus.NewMemoryBus(8)
	defer b.Close()
	sub, err := b.Subscribe(context.Background(), DefaultTopic)
	require.NoError(t, err)

	p := NewProducer(b, "", 4).WithLogger(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, p.Run)

	u := model.StatusUpdate{ID: uuid.New(), Status: model.StatusCanceled}
	require.NoError(t, p.Enqueue(u))

	select {
	case m := <-sub.C():
		assert.Equal(t, u.ID[:], m.Key)
		got, err := Decode(m)
		require.NoError(t, err)
		assert.Equal(t, u, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}

	cancel()
	require.NoError(t, <-done)
	assert.ErrorIs(t, p.Enqueue(u), ErrPublishFailure)
}

func TestProducer_DropsOnPublishFailure(t *testing.T) {
	b := bus.NewMemoryBus(1)
	require.NoError(t, b.Close())

	p := NewProducer(b, "", 4).WithLogger(zerolog.Nop())
	require.NoError(t, p.Enqueue(model.StatusUpdate{ID: uuid.New(), Status: model.StatusQueued}))

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, p.Run)
	require.Eventually(t, func() bool { return p.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestProducer_DrainsOnShutdown(t *testing.T) {
	b := bus.NewMemoryBus(8)
	defer b.Close()
	sub, err := b.Subscribe(context.Background(), DefaultTopic)
	require.NoError(t, err)

	p := NewProducer(b, "", 4).WithLogger(zerolog.Nop())
	for range 3 {
		require.NoError(t, p.Enqueue(model.StatusUpdate{ID: uuid.New(), Status: model.StatusQueued}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))
	assert.Len(t, sub.C(), 3)
}

func TestFeed_EndToEnd(t *testing.T) {
	st := store.NewMemoryStore()
	cfg := actor.DefaultConfig()
	cfg.SubmitTimeout = time.Second
	a := actor.New(st, cfg, actor.WithLogger(zerolog.Nop()))
	b := bus.NewMemoryBus(8)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	actorDone := runAsync(ctx, a.Run)
	consumerDone := runAsync(ctx, NewConsumer(b, "", a).WithLogger(zerolog.Nop()).Run)
	p := NewProducer(b, "", 4).WithLogger(zerolog.Nop())
	producerDone := runAsync(ctx, p.Run)
	waitSubscribed(t, b, DefaultTopic)

	owner := uuid.New()
	sess, err := a.Connect(ctx, owner)
	require.NoError(t, err)
	report, err := a.CreateReport(ctx, owner)
	require.NoError(t, err)

	require.NoError(t, p.Enqueue(model.StatusUpdate{ID: report.ReportID, Status: model.StatusQueued}))

	select {
	case d := <-sess.Deliveries():
		assert.Equal(t, actor.StatusChanged{ReportID: report.ReportID, Status: model.StatusQueued}, d)
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
	}

	sess.Close()
	cancel()
	for _, ch := range []<-chan error{producerDone, consumerDone, actorDone} {
		err := <-ch
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected run error: %v", err)
		}
	}
	<-a.Stopped()

	status, found, err := st.GetStatus(context.Background(), report.ReportID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.StatusQueued, status)
}
