package mqtt

import (
	"strings"
	"sync"
)

// Message is a published message retained by a MemoryBroker.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// MemoryBroker is an in-process Messenger used by the simulator and tests.
type MemoryBroker struct {
	mu        sync.RWMutex
	handlers  map[string]MessageHandler
	published []Message
	retained  map[string][]byte
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		handlers: make(map[string]MessageHandler),
		retained: make(map[string][]byte),
	}
}

func (b *MemoryBroker) Publish(topic string, qos byte, retained bool, payload []byte) error {
	b.mu.Lock()
	b.published = append(b.published, Message{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	if retained {
		b.retained[topic] = payload
	}
	var matched []MessageHandler
	for filter, h := range b.handlers {
		if topicMatches(filter, topic) {
			matched = append(matched, h)
		}
	}
	b.mu.Unlock()

	for _, h := range matched {
		h(topic, payload)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(topic string, _ byte, handler MessageHandler) error {
	b.mu.Lock()
	b.handlers[topic] = handler
	var replay []Message
	for t, p := range b.retained {
		if topicMatches(topic, t) {
			replay = append(replay, Message{Topic: t, Payload: p, Retained: true})
		}
	}
	b.mu.Unlock()

	for _, m := range replay {
		handler(m.Topic, m.Payload)
	}
	return nil
}

func (b *MemoryBroker) Unsubscribe(topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		delete(b.handlers, t)
	}
	return nil
}

func (b *MemoryBroker) IsConnected() bool {
	return true
}

func (b *MemoryBroker) Published() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Message, len(b.published))
	copy(out, b.published)
	return out
}

func (b *MemoryBroker) Retained(topic string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.retained[topic]
	return p, ok
}

func topicMatches(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")

	for i, seg := range f {
		if seg == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if seg != "+" && seg != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}
