package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name string
	err  error

	mu     sync.Mutex
	events []dto.NotificationEvent
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Notify(_ context.Context, event dto.NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

type blockingSink struct{}

func (blockingSink) Name() string { return "blocking" }

func (blockingSink) Notify(ctx context.Context, _ dto.NotificationEvent) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeSender struct {
	chatID  int64
	message string
	calls   int
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, message string, _ ...interface{}) error {
	f.calls++
	f.chatID = chatID
	f.message = message
	return nil
}

type fakePublisher struct {
	subject string
	data    []byte
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return nil
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func sampleEvent() dto.NotificationEvent {
	return dto.NotificationEvent{
		Type:        dto.EventAlertTriggered,
		AlertID:     "a-1",
		Owner:       "alice",
		AssetID:     "bitcoin",
		Symbol:      "BTC",
		Condition:   "above",
		TargetPrice: 100,
		Price:       101.5,
		Currency:    "eur",
		Message:     "breakout",
		OccurredAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	okSink := &recordingSink{name: "ok"}
	failSink := &recordingSink{name: "fail", err: errors.New("down")}

	d := NewDispatcher(logger.NewNop(), nil, time.Second, okSink, failSink)
	d.Dispatch(context.Background(), sampleEvent())
	d.Wait()

	assert.Len(t, okSink.events, 1)
	assert.Len(t, failSink.events, 1)
	assert.Equal(t, "a-1", okSink.events[0].AlertID)
}

func TestDispatcher_DetachedFromCallerCancel(t *testing.T) {
	okSink := &recordingSink{name: "ok"}
	d := NewDispatcher(logger.NewNop(), nil, time.Second, okSink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, sampleEvent())
	d.Wait()

	assert.Len(t, okSink.events, 1)
}

func TestDispatcher_TimeoutBoundsSlowSink(t *testing.T) {
	okSink := &recordingSink{name: "ok"}
	d := NewDispatcher(logger.NewNop(), nil, 20*time.Millisecond, blockingSink{}, okSink)

	start := time.Now()
	d.Dispatch(context.Background(), sampleEvent())
	d.Wait()

	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, okSink.events, 1)
}

func TestTelegramNotifier_Routing(t *testing.T) {
	tests := []struct {
		name       string
		owner      string
		ownerChats map[string]int64
		defaultID  int64
		wantChat   int64
		wantCalls  int
	}{
		{name: "owner chat wins", owner: "alice", ownerChats: map[string]int64{"alice": 42}, defaultID: 7, wantChat: 42, wantCalls: 1},
		{name: "falls back to default", owner: "bob", ownerChats: map[string]int64{"alice": 42}, defaultID: 7, wantChat: 7, wantCalls: 1},
		{name: "no chat configured", owner: "bob", wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			n := NewTelegramNotifier(sender, tt.defaultID, tt.ownerChats)
			ev := sampleEvent()
			ev.Owner = tt.owner

			require.NoError(t, n.Notify(context.Background(), ev))
			assert.Equal(t, tt.wantCalls, sender.calls)
			if tt.wantCalls > 0 {
				assert.Equal(t, tt.wantChat, sender.chatID)
				assert.Contains(t, sender.message, "BTC")
				assert.Contains(t, sender.message, "100.00 EUR")
			}
		})
	}
}

func TestNATSNotifier_PublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub, "alerts.triggered")

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	assert.Equal(t, "alerts.triggered", pub.subject)

	var got dto.NotificationEvent
	require.NoError(t, json.Unmarshal(pub.data, &got))
	assert.Equal(t, "a-1", got.AlertID)
	assert.Equal(t, 101.5, got.Price)
}

func TestKafkaNotifier_KeysByAsset(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w)

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("bitcoin"), w.msgs[0].Key)
}
