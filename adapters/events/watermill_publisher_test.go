package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, NewLogrusAdapter(logrus.New()))
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, SessionTopic)
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishLogin(ctx, "user-1", "0xSA"))
	require.NoError(t, pub.PublishLogout(ctx, "user-1"))

	expected := []SessionEvent{
		{Type: EventLogin, Identifier: "user-1", Address: "0xSA"},
		{Type: EventLogout, Identifier: "user-1"},
	}
	for _, want := range expected {
		select {
		case msg := <-messages:
			var got SessionEvent
			require.NoError(t, json.Unmarshal(msg.Payload, &got))
			msg.Ack()

			assert.Equal(t, want.Type, got.Type)
			assert.Equal(t, want.Identifier, got.Identifier)
			assert.Equal(t, want.Address, got.Address)
			assert.False(t, got.At.IsZero())
		case <-ctx.Done():
			t.Fatal("event not delivered")
		}
	}
}
