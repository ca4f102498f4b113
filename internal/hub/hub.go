package hub

import (
	"sync"

	"github.com/crowdalert/incident_reporting_system/internal/config"
	"github.com/crowdalert/incident_reporting_system/internal/models"
	"github.com/crowdalert/incident_reporting_system/internal/observability"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Connection - одно живое подключение дашборда. Создается хабом в Connect,
// уничтожается в Disconnect. Хаб - единственный владелец множества подключений.
type Connection struct {
	id        uuid.UUID
	outbox    chan models.BroadcastEvent
	done      chan struct{}
	closeOnce sync.Once
}

// ID возвращает идентификатор подключения
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// Outbox возвращает канал исходящих событий подключения.
// События приходят строго в порядке вызовов Broadcast
func (c *Connection) Outbox() <-chan models.BroadcastEvent {
	return c.outbox
}

// Done закрывается при отключении. Канал outbox при этом не закрывается,
// чтобы конкурентный Broadcast не мог запаниковать на отправке
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Hub поддерживает множество живых подключений дашбордов и рассылает им
// события о верифицированных инцидентах. Доставка best-effort, at-most-once
// на подключение, без повтора истории для поздно подключившихся.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection

	logger     *logrus.Logger
	metrics    *observability.Metrics
	outboxSize int
}

func NewHub(logger *logrus.Logger, cfg *config.Config, metrics *observability.Metrics) *Hub {
	outboxSize := cfg.HubOutboxSize
	if outboxSize <= 0 {
		outboxSize = 64
	}
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		logger:      logger,
		metrics:     metrics,
		outboxSize:  outboxSize,
	}
}

// Connect регистрирует новое подключение. События, разосланные до этого
// момента, подключению не доставляются
func (h *Hub) Connect() *Connection {
	conn := &Connection{
		id:     uuid.New(),
		outbox: make(chan models.BroadcastEvent, h.outboxSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.connections[conn.id] = conn
	h.mu.Unlock()

	h.metrics.ConnectedDashboards.Inc()
	h.logger.WithFields(logrus.Fields{
		"service":       "hub",
		"connection_id": conn.id,
	}).Info("Dashboard connection registered")
	return conn
}

// Disconnect убирает подключение из множества. Идемпотентен: повторный
// вызов или вызов для уже убранного подключения - no-op
func (h *Hub) Disconnect(conn *Connection) {
	if conn == nil {
		return
	}

	h.mu.Lock()
	_, exists := h.connections[conn.id]
	if exists {
		delete(h.connections, conn.id)
	}
	h.mu.Unlock()

	if !exists {
		return
	}

	conn.closeOnce.Do(func() {
		close(conn.done)
	})

	h.metrics.ConnectedDashboards.Dec()
	h.logger.WithFields(logrus.Fields{
		"service":       "hub",
		"connection_id": conn.id,
	}).Info("Dashboard connection removed")
}

// Broadcast доставляет событие всем живым на момент вызова подключениям.
// Итерация идет по снимку множества, поэтому отключение в середине рассылки
// не ломает обход. Отправка неблокирующая: переполненный outbox означает
// мертвого или безнадежно медленного потребителя, такое подключение
// отключается, не задерживая остальных.
func (h *Hub) Broadcast(event models.BroadcastEvent) {
	h.mu.RLock()
	snapshot := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		snapshot = append(snapshot, conn)
	}
	h.mu.RUnlock()

	h.metrics.BroadcastsTotal.Inc()

	for _, conn := range snapshot {
		select {
		case <-conn.done:
			// Подключение уже убрано конкурентным Disconnect
		case conn.outbox <- event:
		default:
			h.logger.WithFields(logrus.Fields{
				"service":       "hub",
				"connection_id": conn.id,
			}).Warn("Connection outbox full, dropping slow consumer")
			h.metrics.BroadcastDrops.Inc()
			h.Disconnect(conn)
		}
	}
}

// ConnectionCount возвращает число живых подключений
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
