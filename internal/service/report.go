package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/crowdalert/incident_reporting_system/internal/config"
	"github.com/crowdalert/incident_reporting_system/internal/identity"
	"github.com/crowdalert/incident_reporting_system/internal/models"
	"github.com/crowdalert/incident_reporting_system/internal/observability"
	"github.com/crowdalert/incident_reporting_system/internal/verification"
	"github.com/crowdalert/incident_reporting_system/internal/webhook"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Ошибки отклонения отправки. Хендлер отображает их в коды HTTP-ответа
var (
	ErrMissingDeviceToken = errors.New("device token is required")
	ErrDeviceBanned       = errors.New("device is banned")
	ErrDuplicateReport    = errors.New("duplicate report")
)

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	BeginProvisional(ctx context.Context, incident *models.Incident) (ProvisionalIncident, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	GetReporterStats(ctx context.Context, minutes int) (int, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
}

// ProvisionalIncident - предварительная запись, ожидающая решения верификации.
// Commit вызывается тогда и только тогда, когда исход VERIFIED или PENDING_REVIEW,
// любой отклоненный исход откатывается
type ProvisionalIncident interface {
	Commit(ctx context.Context, status models.IncidentStatus) error
	Rollback(ctx context.Context) error
}

// Broadcaster определяет контракт рассылки событий дашбордам
type Broadcaster interface {
	Broadcast(event models.BroadcastEvent)
}

// TrustModerator - тракт модерации: запись флага бана.
// Отделен от интерфейса чтения движка верификации, чтобы решения модерации
// оставались аудируемыми и не смешивались с горячим путем запроса
type TrustModerator interface {
	SetBanned(ctx context.Context, deviceHash string, banned bool) error
}

// ReportService определяет контракт бизнес-логики приема и выдачи отчетов
type ReportService interface {
	SubmitReport(ctx context.Context, incident *models.Incident, deviceToken string) error
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	GetStats(ctx context.Context) (int, error)
	SetDeviceBan(ctx context.Context, deviceHash string, banned bool) error
}

type reportService struct {
	repo      IncidentRepository
	engine    verification.Engine
	hub       Broadcaster
	publisher webhook.WebhookPublisher
	moderator TrustModerator
	logger    *logrus.Logger
	cfg       *config.Config
	metrics   *observability.Metrics
	clock     clockwork.Clock
}

func NewReportService(
	repo IncidentRepository,
	engine verification.Engine,
	hub Broadcaster,
	publisher webhook.WebhookPublisher,
	moderator TrustModerator,
	logger *logrus.Logger,
	cfg *config.Config,
	metrics *observability.Metrics,
	clock clockwork.Clock,
) ReportService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &reportService{
		repo:      repo,
		engine:    engine,
		hub:       hub,
		publisher: publisher,
		moderator: moderator,
		logger:    logger,
		cfg:       cfg,
		metrics:   metrics,
		clock:     clock,
	}
}

// SubmitReport проводит отправку через весь тракт приема:
// хэш устройства -> предварительная запись -> верификация -> commit/rollback -> трансляция.
// Инцидент мутируется на месте: после успешного вызова заполнены ID, статус и время создания.
func (s *reportService) SubmitReport(ctx context.Context, incident *models.Incident, deviceToken string) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "report",
		"method":  "SubmitReport",
	})

	deviceHash, err := identity.Hash(deviceToken)
	if err != nil {
		// Без токена нет основы доверия - отклоняем до любой записи в бд
		log.Warn("Submission without device token rejected")
		return ErrMissingDeviceToken
	}
	incident.DeviceHash = deviceHash
	log = log.WithField("device_hash", deviceHash)

	// Решение commit/rollback обязано завершиться, даже если клиент ушел,
	// не дождавшись ответа - отвязываемся от отмены запроса
	dctx := context.WithoutCancel(ctx)

	provisional, err := s.repo.BeginProvisional(dctx, incident)
	if err != nil {
		log.WithError(err).Error("Failed to persist provisional incident")
		s.metrics.SubmissionErrors.Inc()
		return fmt.Errorf("service: could not persist report: %w", err)
	}

	outcome, err := s.engine.Verify(dctx, incident, deviceHash)
	if err != nil {
		// Инфраструктурный сбой верификации: откат, клиенту - повторяемая ошибка
		if rbErr := provisional.Rollback(dctx); rbErr != nil {
			log.WithError(rbErr).Error("Failed to rollback after verification failure")
		}
		log.WithError(err).Error("Verification failed")
		s.metrics.SubmissionErrors.Inc()
		return fmt.Errorf("service: could not verify report: %w", err)
	}

	if !outcome.IsCommittable() {
		// Отклоненная запись не должна пережить границу отката
		if rbErr := provisional.Rollback(dctx); rbErr != nil {
			log.WithError(rbErr).Error("Failed to rollback rejected incident")
		}
		s.metrics.SubmissionsTotal.WithLabelValues(string(outcome)).Inc()
		log.WithField("outcome", outcome).Info("Submission rejected")

		switch outcome {
		case models.StatusRejectedBan:
			return ErrDeviceBanned
		default:
			return ErrDuplicateReport
		}
	}

	if err := provisional.Commit(dctx, outcome); err != nil {
		log.WithError(err).Error("Failed to commit incident")
		s.metrics.SubmissionErrors.Inc()
		return fmt.Errorf("service: could not commit report: %w", err)
	}
	// Статус на модели выставляется здесь, а не внутри Commit:
	// транслируемое событие не должно зависеть от деталей репозитория
	incident.Status = outcome
	s.metrics.SubmissionsTotal.WithLabelValues(string(outcome)).Inc()
	log.WithFields(logrus.Fields{
		"incident_id": incident.ID,
		"outcome":     outcome,
	}).Info("Report committed")

	// Трансляция и уведомление модерации полностью развязаны с исходом отправки:
	// их ошибки логируются и никогда не доходят до отправителя
	s.hub.Broadcast(models.NewIncidentEvent(incident))

	if outcome == models.StatusPendingReview {
		event := webhook.ModerationEvent{
			IncidentID: incident.ID,
			DeviceHash: incident.DeviceHash,
			Latitude:   incident.Latitude,
			Longitude:  incident.Longitude,
			Severity:   incident.Severity,
			Status:     outcome,
			Timestamp:  s.clock.Now().UTC(),
		}
		if err := s.publisher.Publish(dctx, event); err != nil {
			log.WithError(err).Error("Failed to publish moderation event")
		}
	}

	return nil
}

// GetIncident получает инцидент по ID, сначала из кеша
func (s *reportService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "report",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		// Промах кеша из-за ошибки не фатален, идем в бд
		log.WithError(err).Warn("Failed to read incident from cache")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *reportService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.ListIncidents(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// GetStats возвращает число уникальных устройств, приславших отчеты за настроенное окно
func (s *reportService) GetStats(ctx context.Context) (int, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "report",
		"method":  "GetStats",
	})

	count, err := s.repo.GetReporterStats(ctx, s.cfg.StatsTimeWindowMinutes)
	if err != nil {
		log.WithError(err).Error("Failed to get reporter stats")
		return 0, fmt.Errorf("service: could not get stats: %w", err)
	}
	return count, nil
}

// SetDeviceBan выставляет или снимает бан устройства. Это внешний по отношению
// к верификации тракт модерации - движок это состояние только читает
func (s *reportService) SetDeviceBan(ctx context.Context, deviceHash string, banned bool) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "report",
		"method":      "SetDeviceBan",
		"device_hash": deviceHash,
		"banned":      banned,
	})

	if err := s.moderator.SetBanned(ctx, deviceHash, banned); err != nil {
		log.WithError(err).Error("Failed to update ban state")
		return fmt.Errorf("service: could not update ban state: %w", err)
	}
	log.Info("Device ban state updated")
	return nil
}
