package websocket

import (
	"context"
	"sync"

	"github.com/OldStager01/streetlight-controller/internal/logger"
	"github.com/OldStager01/streetlight-controller/pkg/models"
)

// EventBridge forwards orchestrator events to subscribed WebSocket clients
type EventBridge struct {
	hub         *Hub
	eventsChan  <-chan *models.Event
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	stopOnce    sync.Once
}

// NewEventBridge wires a bus subscription to the hub. unsubscribe, when
// set, releases the subscription on Stop.
func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event, unsubscribe func()) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:         hub,
		eventsChan:  eventsChan,
		unsubscribe: unsubscribe,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (b *EventBridge) Start() {
	b.wg.Add(1)
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()
		b.wg.Wait()
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
		logger.Info("WebSocket event bridge stopped")
	})
}

func (b *EventBridge) run() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	msg := MessageFromEvent(event)
	if msg == nil {
		return
	}
	b.hub.BroadcastToLight(event.LightID, msg.JSON())
}
