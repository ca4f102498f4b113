package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Прием отчетов с мобильного клиента: только заголовок X-Device-ID,
	// API-ключ не требуется
	api.POST("/report", h.submitReport)

	// Операторские маршруты за API-ключом
	incidents := api.Group("/incidents", APIKeyAuthMiddleware(h.cfg, h.logger))
	{
		incidents.GET("", h.listIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
	}

	// Тракт модерации: внешнее по отношению к верификации управление банами
	admin := api.Group("/admin", APIKeyAuthMiddleware(h.cfg, h.logger))
	{
		admin.POST("/devices/:hash/ban", h.banDevice)
		admin.DELETE("/devices/:hash/ban", h.unbanDevice)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}

// RegisterFeed регистрирует websocket-маршрут живой ленты дашбордов
func (h *Handler) RegisterFeed(router *gin.Engine) {
	router.GET("/ws/feed", h.wsFeed)
}
