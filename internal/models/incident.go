package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus - статус инцидента, совпадает с исходом верификации
type IncidentStatus string

const (
	StatusVerified      IncidentStatus = "VERIFIED"
	StatusPendingReview IncidentStatus = "PENDING_REVIEW"
	StatusRejectedDup   IncidentStatus = "REJECTED_DUPLICATE"
	StatusRejectedBan   IncidentStatus = "REJECTED_BANNED_DEVICE"
)

// IsCommittable сообщает, должен ли инцидент с таким статусом быть зафиксирован в бд.
// Отклоненные статусы всегда откатываются и никогда не транслируются.
func (s IncidentStatus) IsCommittable() bool {
	return s == StatusVerified || s == StatusPendingReview
}

type Incident struct {
	ID          uuid.UUID      `json:"id"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Severity    string         `json:"severity"`
	Status      IncidentStatus `json:"status"`
	DeviceHash  string         `json:"-"` // псевдоним устройства, сырой токен никогда не храним
	CreatedAt   time.Time      `json:"created_at"`
}

// HasLocation сообщает, заданы ли координаты инцидента
func (i *Incident) HasLocation() bool {
	return i.Latitude != 0 || i.Longitude != 0
}
