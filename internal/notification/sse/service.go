// Package sse streams live quotation activity to connected buyers and
// suppliers over Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"sync"

	"procurement_backend/internal/events"
	"procurement_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventBoardChanged  EventType = "board_changed"
	EventStatusChanged EventType = "status_changed"
)

const clientBuffer = 32

// Event represents an SSE event payload
type Event struct {
	Type        EventType   `json:"type"`
	QuotationID uuid.UUID   `json:"quotationId"`
	ProductID   uuid.UUID   `json:"productId,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	actorID     uuid.UUID
	quotationID uuid.UUID
	events      chan Event
}

// Access decides whether an actor may watch a quotation.
type Access func(ctx context.Context, quotationID, actorID uuid.UUID, role string) error

// Service manages SSE connections and event broadcasting
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // quotationID -> clients
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.quotationID] = append(s.clients[c.quotationID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.quotationID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.quotationID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.quotationID]) == 0 {
		delete(s.clients, c.quotationID)
	}
}

// Publish sends an event to every client watching its quotation. Slow
// clients drop events instead of blocking the publisher.
func (s *Service) Publish(event Event) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered := 0
	for _, c := range s.clients[event.QuotationID] {
		select {
		case c.events <- event:
			delivered++
		default:
			s.log.Warn("sse buffer full", "quotationId", event.QuotationID.String(), "actorId", c.actorID.String())
		}
	}
	return delivered
}

// Watchers returns how many clients watch a quotation.
func (s *Service) Watchers(quotationID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[quotationID])
}

// Handle forwards bus events to watchers.
func (s *Service) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.OfferBoardChanged:
		s.Publish(Event{
			Type:        EventBoardChanged,
			QuotationID: e.QuotationID,
			ProductID:   e.ProductID,
			Data:        gin.H{"change": e.Change},
		})
	case events.QuotationStatusChanged:
		s.Publish(Event{
			Type:        EventStatusChanged,
			QuotationID: e.QuotationID,
			Data:        gin.H{"from": e.From, "to": e.To},
		})
	}
	return nil
}

// Subscribe registers the service on the bus.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.OfferBoardChanged{}.EventName(), s)
	bus.Subscribe(events.QuotationStatusChanged{}.EventName(), s)
}

// Handler returns a Gin handler streaming the events of the quotation in
// the :id path parameter. actor resolves the caller and writes its own error
// response when it fails.
func (s *Service) Handler(actor func(*gin.Context) (uuid.UUID, string, bool), quotationID func(*gin.Context) (uuid.UUID, bool), access Access, deny func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, role, ok := actor(c)
		if !ok {
			return
		}
		id, ok := quotationID(c)
		if !ok {
			return
		}
		if err := access(c.Request.Context(), id, actorID, role); err != nil {
			deny(c, err)
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{actorID: actorID, quotationID: id, events: make(chan Event, clientBuffer)}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"quotationId": id})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event := <-cl.events:
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}
