package service

import (
	"sync"

	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/pkg/timeutil"
)

type StatusEvent struct {
	VideoID   string            `json:"video_id"`
	Status    model.VideoStatus `json:"status"`
	Processed bool              `json:"processed"`
	Timestamp int64             `json:"timestamp"`
}

func NewStatusEvent(videoID string, status model.VideoStatus) StatusEvent {
	return StatusEvent{
		VideoID:   videoID,
		Status:    status,
		Processed: status == model.VideoStatusCompleted,
		Timestamp: timeutil.NowUnix(),
	}
}

// StatusBroker fans video status changes out to stream subscribers. Each
// subscriber holds only the latest event; slow readers skip intermediate
// states but never miss the final one.
type StatusBroker struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewStatusBroker() *StatusBroker {
	return &StatusBroker{subs: make(map[string]map[*Subscription]struct{})}
}

type Subscription struct {
	C       <-chan StatusEvent
	ch      chan StatusEvent
	videoID string
	broker  *StatusBroker
	once    sync.Once
}

func (b *StatusBroker) Subscribe(videoID string) *Subscription {
	ch := make(chan StatusEvent, 1)
	sub := &Subscription{C: ch, ch: ch, videoID: videoID, broker: b}
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[videoID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[videoID] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.broker
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[s.videoID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(b.subs, s.videoID)
			}
		}
	})
}

func (b *StatusBroker) Publish(ev StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[ev.VideoID] {
		select {
		case sub.ch <- ev:
			continue
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func (b *StatusBroker) subscriberCount(videoID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[videoID])
}
