package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/framefinder/internal/model"
)

func TestStatusBrokerKeepsLatest(t *testing.T) {
	b := NewStatusBroker()
	sub := b.Subscribe("v1")
	other := b.Subscribe("v2")
	defer other.Close()

	b.Publish(NewStatusEvent("v1", model.VideoStatusProcessing))
	b.Publish(NewStatusEvent("v1", model.VideoStatusCompleted))

	ev := <-sub.C
	require.Equal(t, model.VideoStatusCompleted, ev.Status)
	require.True(t, ev.Processed)
	select {
	case <-sub.C:
		t.Fatal("only the latest event should be buffered")
	default:
	}
	select {
	case <-other.C:
		t.Fatal("event leaked to another video")
	default:
	}

	require.Equal(t, 1, b.subscriberCount("v1"))
	sub.Close()
	sub.Close()
	require.Equal(t, 0, b.subscriberCount("v1"))
	b.Publish(NewStatusEvent("v1", model.VideoStatusFailed))
}
