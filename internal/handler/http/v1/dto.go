package v1

import (
	"time"

	"github.com/google/uuid"
)

// SubmitReportRequest DTO для приема отчета об инциденте
// @Description DTO для приема отчета об инциденте
type SubmitReportRequest struct {
	Category    string `json:"category" validate:"required,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	// Координаты через указатели: required на значении отвергал бы
	// легитимные отчеты с экватора и нулевого меридиана
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Severity  string   `json:"severity" validate:"required,oneof=low medium high critical"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatsResponse DTO для ответа со статистикой
// @Description DTO для ответа со статистикой
type StatsResponse struct {
	ReporterCount int `json:"reporter_count"`
}
