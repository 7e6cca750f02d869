package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"casino/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMessage struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []recordedMessage
	err      error
	sent     chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{sent: make(chan struct{}, 10)}
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	p.messages = append(p.messages, recordedMessage{subject: subject, data: data})
	p.mu.Unlock()
	p.sent <- struct{}{}
	return nil
}

func TestNATSForwarder_Forward(t *testing.T) {
	publisher := newFakePublisher()
	forwarder := NewNATSForwarder(publisher)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	forwarder.now = func() time.Time { return fixed }

	event := GamePlayedEvent{
		UserID:  "42",
		Game:    models.GameLimbo,
		Wager:   decimal.RequireFromString("12.50"),
		NetGain: decimal.RequireFromString("-12.50"),
	}
	require.NoError(t, forwarder.Forward(event))

	require.Len(t, publisher.messages, 1)
	msg := publisher.messages[0]
	assert.Equal(t, "casino.events.game_played", msg.subject)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.data, &envelope))
	assert.NotEmpty(t, envelope.ID)
	assert.Equal(t, EventTypeGamePlayed, envelope.Type)
	assert.True(t, fixed.Equal(envelope.Timestamp))

	var payload GamePlayedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, "42", payload.UserID)
	assert.Equal(t, models.GameLimbo, payload.Game)
	assert.True(t, payload.NetGain.Equal(event.NetGain))
}

func TestNATSForwarder_PublishError(t *testing.T) {
	publisher := newFakePublisher()
	publisher.err = errors.New("nats: connection closed")
	forwarder := NewNATSForwarder(publisher)

	err := forwarder.Forward(BalanceChangeEvent{UserID: "1"})
	assert.ErrorContains(t, err, "casino.events.balance_change")
}

func TestNATSForwarder_Attach(t *testing.T) {
	bus := NewBus()
	publisher := newFakePublisher()
	NewNATSForwarder(publisher).Attach(bus)

	bus.Emit(context.Background(), DailyClaimedEvent{UserID: "7", Reward: decimal.NewFromInt(1010), Streak: 1})

	select {
	case <-publisher.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not forwarded")
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Equal(t, Subject(EventTypeDailyClaimed), publisher.messages[0].subject)
}
