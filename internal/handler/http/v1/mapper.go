package v1

import "github.com/crowdalert/incident_reporting_system/internal/models"

// DTOToIncidentModel преобразует DTO отправки в доменную модель.
// Псевдоним устройства заполняет сервис, статус - верификация
func DTOToIncidentModel(dto SubmitReportRequest) *models.Incident {
	return &models.Incident{
		Category:    dto.Category,
		Description: dto.Description,
		Latitude:    *dto.Latitude,
		Longitude:   *dto.Longitude,
		Severity:    dto.Severity,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа.
// Псевдоним устройства наружу не отдается
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:          model.ID,
		Category:    model.Category,
		Description: model.Description,
		Latitude:    model.Latitude,
		Longitude:   model.Longitude,
		Severity:    model.Severity,
		Status:      string(model.Status),
		CreatedAt:   model.CreatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}
