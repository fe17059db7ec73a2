package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEventStore struct {
	mock.Mock
}

func (m *mockEventStore) AppendEvent(ctx context.Context, e Event) error {
	return m.Called(ctx, e).Error(0)
}

type panicSink struct{}

func (panicSink) Log(context.Context, Event, string) { panic("boom") }

func TestJournal_StampsAndPersists(t *testing.T) {
	store := &mockEventStore{}
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	store.On("AppendEvent", mock.Anything, mock.MatchedBy(func(e Event) bool {
		return e.Type == TypeRetest && e.Source == "monitor" && e.CreatedAt.Equal(fixed) && e.Get("n") == 1
	})).Return(nil).Once()

	j := NewJournal(store, zap.NewNop())
	j.now = func() time.Time { return fixed }
	j.Log(context.Background(), New(TypeRetest, map[string]any{"n": 1}), "monitor")

	store.AssertExpectations(t)
}

func TestJournal_StoreFailureIsSwallowed(t *testing.T) {
	store := &mockEventStore{}
	store.On("AppendEvent", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	j := NewJournal(store, zap.NewNop())
	assert.NotPanics(t, func() {
		j.Log(context.Background(), New(TypeNag, nil), "")
	})
	store.AssertNumberOfCalls(t, "AppendEvent", 1)
}

func TestStamp_Defaults(t *testing.T) {
	e := stamp(Event{Type: "x"}, "", time.Now)
	assert.Equal(t, "axiom", e.Source)
	assert.NotNil(t, e.Fields)
	assert.False(t, e.CreatedAt.IsZero())

	e = stamp(Event{Type: "x", Source: "explicit"}, "fallback", time.Now)
	assert.Equal(t, "explicit", e.Source)
}

func TestEvent_JSONFlattensFields(t *testing.T) {
	e := Event{
		Type:      TypeMetrics,
		Source:    "dash",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Fields:    map[string]any{"total": 3},
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, TypeMetrics, flat["type"])
	assert.Equal(t, float64(3), flat["total"])

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e.Type, back.Type)
	assert.Equal(t, e.Source, back.Source)
	assert.True(t, e.CreatedAt.Equal(back.CreatedAt))
	assert.Equal(t, float64(3), back.Get("total"))
	assert.NotContains(t, back.Fields, "type")
}

func TestRecorder_LimitAndFilter(t *testing.T) {
	r := NewRecorder(2)
	ctx := context.Background()
	r.Log(ctx, New("a", nil), "")
	r.Log(ctx, New("b", nil), "")
	r.Log(ctx, New("a", nil), "")

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Type)
	assert.Len(t, r.OfType("a"), 1)
}

func TestTeeAndSafe(t *testing.T) {
	r := NewRecorder(0)
	sink := Safe(Tee{panicSink{}, r}, zap.NewNop())

	assert.NotPanics(t, func() {
		sink.Log(context.Background(), New("x", nil), "src")
	})
	// The panic in the first sink aborts the tee before the recorder.
	assert.Empty(t, r.Events())

	sink = Tee{Safe(panicSink{}, zap.NewNop()), r}
	sink.Log(context.Background(), New("x", nil), "src")
	assert.Len(t, r.Events(), 1)

	_, isNop := Safe(nil, zap.NewNop()).(Nop)
	assert.True(t, isNop)
}
