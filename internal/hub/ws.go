package hub

import (
	"net/http"
	"time"

	"github.com/crowdalert/incident_reporting_system/internal/config"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const maxInboundMessageSize = 512

// WSGateway поднимает websocket-подключения дашбордов и связывает их с хабом
type WSGateway struct {
	hub      *Hub
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	writeTimeout time.Duration
	pingInterval time.Duration
}

func NewWSGateway(h *Hub, logger *logrus.Logger, cfg *config.Config) *WSGateway {
	return &WSGateway{
		hub:    h,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Дашборд обслуживается с другого origin, доступ ограничивается на уровне сети
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		writeTimeout: cfg.HubWriteTimeout,
		pingInterval: cfg.HubPingInterval,
	}
}

// ServeWS апгрейдит HTTP-запрос до websocket и регистрирует подключение в хабе
func (g *WSGateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.WithError(err).Warn("Failed to upgrade dashboard connection")
		return
	}

	conn := g.hub.Connect()
	go g.writePump(conn, ws)
	go g.readPump(conn, ws)
}

// writePump переносит события из outbox подключения в сокет.
// Один писатель на подключение - порядок событий сохраняется.
// Ошибка или таймаут записи трактуется как неявный Disconnect
func (g *WSGateway) writePump(conn *Connection, ws *websocket.Conn) {
	ticker := time.NewTicker(g.pingInterval)
	defer func() {
		ticker.Stop()
		g.hub.Disconnect(conn)
		_ = ws.Close()
	}()

	for {
		select {
		case event := <-conn.Outbox():
			_ = ws.SetWriteDeadline(time.Now().Add(g.writeTimeout))
			if err := ws.WriteJSON(event); err != nil {
				g.logger.WithError(err).WithField("connection_id", conn.ID()).
					Warn("Dashboard write failed, disconnecting")
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(g.writeTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-conn.Done():
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump вычитывает входящие кадры. Канал в сторону сервера пассивный:
// содержимое отбрасывается, чтение нужно только для keep-alive и
// своевременного обнаружения закрытия
func (g *WSGateway) readPump(conn *Connection, ws *websocket.Conn) {
	defer func() {
		g.hub.Disconnect(conn)
		_ = ws.Close()
	}()

	ws.SetReadLimit(maxInboundMessageSize)
	readTimeout := g.pingInterval * 2
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.WithError(err).WithField("connection_id", conn.ID()).
					Debug("Dashboard connection closed unexpectedly")
			}
			return
		}
	}
}
