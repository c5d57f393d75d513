package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TopicGlobal carries events about the global timeline: posts created
// and deleted.
const TopicGlobal = "global"

// Event is the envelope pushed to websocket subscribers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// redisEnvelope wraps payloads on the redis channel. Origin lets an
// instance skip its own messages, which it already delivered locally.
type redisEnvelope struct {
	Origin  string `json:"origin"`
	Payload string `json:"payload"`
}

type Hub struct {
	id      string
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Topic string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if topicClients, ok := h.clients[client.Topic]; ok {
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.clients, client.Topic)
		}
	}
	close(client.Send)
}

// Publish marshals the event and fans it out to local subscribers and,
// when redis is configured, to subscribers on other instances.
func (h *Hub) Publish(topic string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("stream event marshal error: %v", err)
		return
	}
	h.Broadcast(topic, payload)
}

func (h *Hub) Broadcast(topic string, payload []byte) {
	h.fanOut(topic, payload)

	if h.redis != nil {
		body, err := json.Marshal(redisEnvelope{Origin: h.id, Payload: string(payload)})
		if err != nil {
			log.Printf("redis envelope marshal error: %v", err)
			return
		}
		if err := h.redis.Publish(context.Background(), redisChannel(topic), body).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) fanOut(topic string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[topic]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "timeline:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env redisEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("redis envelope unmarshal error: %v", err)
			continue
		}
		if env.Origin == h.id {
			continue
		}
		h.fanOut(topicFromChannel(msg.Channel), []byte(env.Payload))
	}
}

func redisChannel(topic string) string {
	return "timeline:" + topic + ":events"
}

func topicFromChannel(ch string) string {
	// timeline:{topic}:events
	const prefix = "timeline:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
