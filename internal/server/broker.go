package server

import (
	"encoding/json"
	"sync"

	"github.com/playperu/sprintstory/internal/announce"
	"github.com/playperu/sprintstory/internal/story"
)

const announcementsTopic = "announcements"

func teamTopic(teamID string) string { return "team:" + teamID }

// Envelope is the payload published to stream subscribers.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker is an in-process pub/sub for stream clients, keyed by topic.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded envelopes for topic.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish sends an envelope to all subscribers of topic.
func (b *Broker) Publish(topic string, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Subscribers reports how many channels listen on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Notify implements story.Notifier.
func (b *Broker) Notify(teamID string, ev story.Event) {
	b.Publish(teamTopic(teamID), Envelope{Type: ev.Type, Data: ev})
}

// Announce implements announce.Sink.
func (b *Broker) Announce(a announce.Announcement) {
	b.Publish(announcementsTopic, Envelope{Type: "announcement", Data: a})
}
