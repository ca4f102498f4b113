package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/crowdalert/incident_reporting_system/internal/config"
	"github.com/crowdalert/incident_reporting_system/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// TrustStore определяет контракт для чтения репутационного состояния устройств.
// Движок верификации только читает флаг бана, выставляет его внешний процесс модерации.
type TrustStore interface {
	IsBanned(ctx context.Context, deviceHash string) (bool, error)
	Lookup(ctx context.Context, deviceHash string) (*models.TrustRecord, error)
	RecentSubmissions(ctx context.Context, deviceHash string, since time.Time) ([]models.SubmissionEvent, error)
	SubmissionCount(ctx context.Context, deviceHash string) (int, error)
	RecordSubmission(ctx context.Context, deviceHash string, at time.Time, lat, lon float64) error
}

// Engine определяет контракт движка верификации инцидентов
type Engine interface {
	Verify(ctx context.Context, incident *models.Incident, deviceHash string) (models.IncidentStatus, error)
}

type engine struct {
	trust  TrustStore
	logger *logrus.Logger
	cfg    *config.Config
	clock  clockwork.Clock
}

func NewEngine(trust TrustStore, logger *logrus.Logger, cfg *config.Config, clock clockwork.Clock) Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &engine{
		trust:  trust,
		logger: logger,
		cfg:    cfg,
		clock:  clock,
	}
}

// Verify принимает решение по отправке. Проверки выполняются строго по порядку,
// первая сработавшая побеждает:
//  1. бан - терминально, без записи в журнал отправок, чтобы забаненное
//     устройство не могло прощупывать состояние доверия через анализ дубликатов;
//  2. дубликат по окну время+расстояние;
//  3. превышение частоты - PENDING_REVIEW, а не отказ: ложное срабатывание
//     здесь может стоить недоставленного сообщения о реальном ЧП;
//  4. иначе VERIFIED.
//
// RecordSubmission вызывается ровно один раз для каждой отправки, прошедшей
// проверку бана (ветки 2-4), поэтому повторные отказы по бану не засоряют статистику.
func (e *engine) Verify(ctx context.Context, incident *models.Incident, deviceHash string) (models.IncidentStatus, error) {
	log := e.logger.WithFields(logrus.Fields{
		"service":     "verification",
		"method":      "Verify",
		"device_hash": deviceHash,
	})

	// 1. Проверка бана. Ошибка здесь - инфраструктурная: нельзя рисковать
	// и пропускать отчет устройства, чей статус бана мы не смогли прочитать.
	banned, err := e.trust.IsBanned(ctx, deviceHash)
	if err != nil {
		log.WithError(err).Error("Failed to read ban state from trust store")
		return "", fmt.Errorf("verification: could not check ban state: %w", err)
	}
	if banned {
		log.Warn("Submission rejected: device is banned")
		return models.StatusRejectedBan, nil
	}

	now := e.clock.Now()
	outcome := e.decide(ctx, log, incident, deviceHash, now)

	// Единственная запись в журнал отправок на ветках 2-4
	if err := e.trust.RecordSubmission(ctx, deviceHash, now, incident.Latitude, incident.Longitude); err != nil {
		// Потеря одной записи журнала не должна ронять уже принятое решение
		log.WithError(err).Error("Failed to record submission event")
	}

	log.WithField("outcome", outcome).Info("Verification decision made")
	return outcome, nil
}

// decide выполняет проверки дубликата и частоты. Движок не падает на
// структурно валидном, но неполном вводе: недоступная проверка пропускается
// в пользу максимально консервативного неотказного исхода.
func (e *engine) decide(ctx context.Context, log *logrus.Entry, incident *models.Incident, deviceHash string, now time.Time) models.IncidentStatus {
	// 2. Проверка дубликата/спама
	if incident.HasLocation() {
		since := now.Add(-e.cfg.DuplicateWindow)
		recent, err := e.trust.RecentSubmissions(ctx, deviceHash, since)
		if err != nil {
			// Анализ дубликатов недоступен - переходим к проверке частоты
			log.WithError(err).Warn("Duplicate analysis unavailable, skipping to rate check")
		} else {
			for _, ev := range recent {
				dist := haversineMeters(incident.Latitude, incident.Longitude, ev.Latitude, ev.Longitude)
				if dist <= e.cfg.DuplicateRadiusMeters {
					log.WithFields(logrus.Fields{
						"distance_meters": dist,
						"prior_submitted": ev.SubmittedAt,
					}).Info("Near-duplicate submission detected")
					return models.StatusRejectedDup
				}
			}
		}
	} else {
		log.Debug("Incident has no location, skipping duplicate check")
	}

	// 3. Проверка частоты. Считается количество отправок ДО текущей,
	// окно счетчика задает хранилище доверия
	count, err := e.trust.SubmissionCount(ctx, deviceHash)
	if err != nil {
		// Частоту оценить не можем - отдаем на ручной разбор, а не отбрасываем
		log.WithError(err).Warn("Rate analysis unavailable, degrading to PENDING_REVIEW")
		return models.StatusPendingReview
	}
	if count >= e.cfg.RateThreshold {
		log.WithField("submission_count", count).Info("Rate threshold exceeded, queueing for review")
		return models.StatusPendingReview
	}

	// 4. Все проверки пройдены
	return models.StatusVerified
}
