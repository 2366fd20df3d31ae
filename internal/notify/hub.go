package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventUnitMissionChange  = "unit_mission_change"
	EventEnemyMissionChange = "enemy_mission_change"
	EventUnitObtainedChange = "unit_obtained_change"
	EventUnitTypeChange     = "unit_type_change"
	EventPlanetOwnedChange  = "planet_owned_change"
	EventMissionReportNew   = "mission_report_new"
	EventUserDataChange     = "user_data_change"
)

// Sender delivers an event to a user's live connections. The payload
// function is only invoked when the user has at least one subscriber.
type Sender interface {
	SendMessage(userID int64, event string, payload func() (any, error))
}

type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

type Subscription struct {
	ID       string
	UserID   int64
	Messages <-chan Message

	send chan Message
}

// Hub fans events out to subscribers. Delivery never blocks: a subscriber
// whose buffer is full misses the message.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int64]map[string]*Subscription
	bufferSize  int
	logger      *slog.Logger
}

func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	logger.Debug("Initializing notification hub", "buffer_size", bufferSize)

	return &Hub{
		subscribers: make(map[int64]map[string]*Subscription),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

func (h *Hub) Subscribe(userID int64) *Subscription {
	send := make(chan Message, h.bufferSize)
	sub := &Subscription{
		ID:       uuid.NewString(),
		UserID:   userID,
		Messages: send,
		send:     send,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[string]*Subscription)
	}
	h.subscribers[userID][sub.ID] = sub

	h.logger.Debug("Subscriber registered", "component", "notify_hub", "user_id", userID, "subscription_id", sub.ID)
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sub.UserID]
	if _, ok := subs[sub.ID]; !ok {
		return
	}
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(h.subscribers, sub.UserID)
	}
	close(sub.send)

	h.logger.Debug("Subscriber removed", "component", "notify_hub", "user_id", sub.UserID, "subscription_id", sub.ID)
}

func (h *Hub) HasSubscribers(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID]) > 0
}

func (h *Hub) SendMessage(userID int64, event string, payload func() (any, error)) {
	if !h.HasSubscribers(userID) {
		return
	}

	logger := h.logger.With("component", "notify_hub", "user_id", userID, "event", event)

	value, err := payload()
	if err != nil {
		logger.Error("Failed to build notification payload", "error", err)
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		logger.Error("Failed to encode notification payload", "error", err)
		return
	}

	msg := Message{Event: event, Payload: data, SentAt: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers[userID] {
		select {
		case sub.send <- msg:
		default:
			logger.Warn("Subscriber buffer full, dropping notification", "subscription_id", sub.ID)
		}
	}
}
