package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewCloudEvent(t *testing.T) {
	id := uuid.New()
	event, err := NewCloudEvent("service-route-compare", ComparisonFailed, ComparisonFailedEvent{
		ComparisonID: id,
		ErrorCode:    "ADDRESS_NOT_FOUND",
		Cause:        "address not found",
	})
	require.NoError(t, err)

	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, ComparisonFailed, event.Type)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Time.IsZero())

	var data ComparisonFailedEvent
	require.NoError(t, event.ParseData(&data))
	assert.Equal(t, id, data.ComparisonID)
	assert.Equal(t, "address not found", data.Cause)
}

func TestNewCloudEvent_UnmarshalableData(t *testing.T) {
	_, err := NewCloudEvent("src", ComparisonCompleted, make(chan int))
	assert.Error(t, err)
}

func newTestConsumer(handler HandlerFunc) *ComparisonEventConsumer {
	return &ComparisonEventConsumer{handler: handler, logger: zap.NewNop()}
}

func TestHandleMessage_Dispatch(t *testing.T) {
	var seen []string
	c := newTestConsumer(func(_ context.Context, e CloudEvent) error {
		seen = append(seen, e.Type)
		return nil
	})

	for _, typ := range []string{ComparisonCompleted, "booking.created", ComparisonFailed} {
		event, err := NewCloudEvent("src", typ, map[string]string{})
		require.NoError(t, err)
		value, err := json.Marshal(event)
		require.NoError(t, err)
		require.NoError(t, c.handleMessage(context.Background(), kafkago.Message{Value: value}))
	}

	assert.Equal(t, []string{ComparisonCompleted, ComparisonFailed}, seen)
}

func TestHandleMessage_MalformedIsSkipped(t *testing.T) {
	called := false
	c := newTestConsumer(func(context.Context, CloudEvent) error {
		called = true
		return nil
	})

	err := c.handleMessage(context.Background(), kafkago.Message{Value: []byte("{not json")})
	assert.NoError(t, err)
	assert.False(t, called)
}
