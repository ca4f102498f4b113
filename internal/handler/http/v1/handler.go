package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/crowdalert/incident_reporting_system/internal/config"
	"github.com/crowdalert/incident_reporting_system/internal/hub"
	"github.com/crowdalert/incident_reporting_system/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const deviceTokenHeader = "X-Device-ID"

type Handler struct {
	reportService service.ReportService
	gateway       *hub.WSGateway
	logger        *logrus.Logger
	validate      *validator.Validate
	cfg           *config.Config
}

func NewHandler(reportService service.ReportService, gateway *hub.WSGateway, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		reportService: reportService,
		gateway:       gateway,
		logger:        logger,
		validate:      validator.New(),
		cfg:           cfg,
	}
}

// @Summary Submit an incident report
// @Description Submit a geotagged incident report. Requires the X-Device-ID header; the raw device token is hashed and never stored.
// @Tags Reports
// @Accept json
// @Produce json
// @Param X-Device-ID header string true "Opaque device token"
// @Param report body SubmitReportRequest true "Incident report"
// @Success 201 {object} IncidentResponse "Report accepted (status VERIFIED or PENDING_REVIEW)"
// @Failure 400 {object} map[string]string "Missing device token, invalid body or validation error"
// @Failure 403 {object} map[string]string "Device banned"
// @Failure 409 {object} map[string]string "Duplicate report"
// @Failure 503 {object} map[string]string "Temporary infrastructure failure, retry later"
// @Router /report [post]
func (h *Handler) submitReport(c *gin.Context) {
	log := h.logger.WithField("method", "submitReport")

	// Токен устройства обязателен: без него отчет отклоняется до любых
	// побочных эффектов
	deviceToken := c.GetHeader(deviceTokenHeader)
	if deviceToken == "" {
		log.Warn("Submission without device token header")
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Device-ID header is required"})
		return
	}

	var input SubmitReportRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := DTOToIncidentModel(input)
	if err := h.reportService.SubmitReport(c.Request.Context(), model, deviceToken); err != nil {
		switch {
		case errors.Is(err, service.ErrMissingDeviceToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Device-ID header is required"})
		case errors.Is(err, service.ErrDeviceBanned):
			log.Warn("Submission from banned device rejected")
			c.JSON(http.StatusForbidden, gin.H{"error": "device banned"})
		case errors.Is(err, service.ErrDuplicateReport):
			log.Info("Duplicate submission rejected")
			c.JSON(http.StatusConflict, gin.H{"error": "duplicate report"})
		default:
			log.WithError(err).Error("Failed to submit report in service")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary failure, please retry"})
		}
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(model))
}

// @Summary Get a list of incidents
// @Description Get a paginated list of committed incidents. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(10)
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	incidents, err := h.reportService.ListIncidents(c.Request.Context(), page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single committed incident by its ID. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.reportService.GetIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Get reporter statistics
// @Description Get the count of distinct reporting devices within the configured window. Requires API key.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	count, err := h.reportService.GetStats(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get stats from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{ReporterCount: count})
}

// @Summary Ban a device
// @Description Ban a device by its pseudonymous hash. Banned devices get all submissions rejected. Requires API key.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param hash path string true "Device hash"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/devices/{hash}/ban [post]
func (h *Handler) banDevice(c *gin.Context) {
	h.setDeviceBan(c, true)
}

// @Summary Lift a device ban
// @Description Remove the ban flag from a device by its pseudonymous hash. Requires API key.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param hash path string true "Device hash"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/devices/{hash}/ban [delete]
func (h *Handler) unbanDevice(c *gin.Context) {
	h.setDeviceBan(c, false)
}

func (h *Handler) setDeviceBan(c *gin.Context, banned bool) {
	deviceHash := c.Param("hash")
	log := h.logger.WithField("method", "setDeviceBan").WithField("device_hash", deviceHash)

	if deviceHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device hash is required"})
		return
	}

	if err := h.reportService.SetDeviceBan(c.Request.Context(), deviceHash, banned); err != nil {
		log.WithError(err).Error("Failed to update device ban state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update ban state"})
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Live incident feed
// @Description Upgrade to a websocket and receive NEW_INCIDENT events for every committed report.
// @Tags Feed
// @Router /ws/feed [get]
func (h *Handler) wsFeed(c *gin.Context) {
	h.gateway.ServeWS(c.Writer, c.Request)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
