package models

import (
	"github.com/google/uuid"
)

// Тип события трансляции. Сейчас используется только NEW_INCIDENT,
// но дашборд различает события по этому полю.
const EventTypeNewIncident = "NEW_INCIDENT"

// BroadcastEvent - компактное сообщение, отправляемое всем подключенным дашбордам.
// Отправляется только для статусов VERIFIED и PENDING_REVIEW.
type BroadcastEvent struct {
	Type     string         `json:"type"`
	ID       uuid.UUID      `json:"id"`
	Lat      float64        `json:"lat"`
	Lng      float64        `json:"lng"`
	Status   IncidentStatus `json:"status"`
	Severity string         `json:"severity"`
}

// NewIncidentEvent собирает событие трансляции из зафиксированного инцидента
func NewIncidentEvent(inc *Incident) BroadcastEvent {
	return BroadcastEvent{
		Type:     EventTypeNewIncident,
		ID:       inc.ID,
		Lat:      inc.Latitude,
		Lng:      inc.Longitude,
		Status:   inc.Status,
		Severity: inc.Severity,
	}
}
