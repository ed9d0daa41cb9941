package pubsub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Broker a simple in-memory pub/sub system. Each topic remembers only its
// latest message, which is what a state feed such as a leaderboard needs.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte // topic -> list of subscriber channels
	latest      map[string][]byte        // topic -> last published message
}

type WsMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

var (
	once   sync.Once
	broker *Broker
)

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string][]chan []byte),
		latest:      make(map[string][]byte),
	}
}

// GetBroker returns the singleton instance of the Broker.
func GetBroker() *Broker {
	once.Do(func() {
		broker = NewBroker()
	})
	return broker
}

// LeaderboardTopic is the topic carrying snapshots of one group.
func LeaderboardTopic(groupID string) string {
	return "leaderboard:" + groupID
}

// Subscribe subscribes to a topic. A new subscriber first receives the
// latest message, if any, then live messages.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func()) {
	b.mu.Lock()

	ch := make(chan []byte, 16) // Use a buffered channel
	if msg, ok := b.latest[topic]; ok {
		ch <- msg
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	var unsubOnce sync.Once
	unsubscribe := func() {
		unsubOnce.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subscribers := b.subscribers[topic]
			for i, sub := range subscribers {
				if sub == ch {
					b.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)
					close(ch)
					break
				}
			}
			if len(b.subscribers[topic]) == 0 {
				delete(b.subscribers, topic)
			}
			zap.S().Debugf("unsubscribed from topic %s", topic)
		})
	}

	zap.S().Debugf("new subscription to topic %s", topic)
	return ch, unsubscribe
}

// Publish stores msg as the topic's latest message and broadcasts it.
func (b *Broker) Publish(topic string, msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[topic] = msg

	// Broadcast to live subscribers (non-blocking).
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			// A slow client misses this update; the next one supersedes it.
		}
	}
}

// Latest returns the last message published on topic.
func (b *Broker) Latest(topic string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msg, ok := b.latest[topic]
	return msg, ok
}

// CloseTopic closes all subscriber channels and forgets the latest message.
func (b *Broker) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers[topic] {
		close(ch)
	}
	delete(b.subscribers, topic)
	delete(b.latest, topic)
	zap.S().Infof("closed pubsub topic %s", topic)
}

// FormatMessage wraps an already encoded JSON document as a stream message.
func FormatMessage(streamType string, data []byte) []byte {
	msg := WsMessage{Stream: streamType, Data: data}
	bytes, err := json.Marshal(msg)
	if err != nil {
		return []byte(`{"stream": "error", "data": "json format error"}`)
	}
	return bytes
}
