package models

import (
	"time"
)

// TrustRecord представляет репутационную запись устройства.
// Создается лениво при первой отправке, никогда не удаляется.
// Флаг бана выставляется только внешним процессом модерации.
type TrustRecord struct {
	DeviceHash      string    `json:"device_hash"`
	Banned          bool      `json:"banned"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastSubmittedAt time.Time `json:"last_submitted_at"`
}

// SubmissionEvent - одна запись в журнале отправок устройства.
// Журнал append-only, используется для анализа дубликатов и частоты.
type SubmissionEvent struct {
	ID          int64     `json:"id"`
	DeviceHash  string    `json:"device_hash"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	SubmittedAt time.Time `json:"submitted_at"`
}
