package service_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/crowdalert/incident_reporting_system/internal/config"
	"github.com/crowdalert/incident_reporting_system/internal/identity"
	"github.com/crowdalert/incident_reporting_system/internal/models"
	"github.com/crowdalert/incident_reporting_system/internal/observability"
	"github.com/crowdalert/incident_reporting_system/internal/service"
	"github.com/crowdalert/incident_reporting_system/internal/service/mocks"
	verification_mocks "github.com/crowdalert/incident_reporting_system/internal/verification/mocks"
	"github.com/crowdalert/incident_reporting_system/internal/webhook"
	webhook_mocks "github.com/crowdalert/incident_reporting_system/internal/webhook/mocks"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reportServiceMocks struct {
	repo        *mocks.MockIncidentRepository
	provisional *mocks.MockProvisionalIncident
	engine      *verification_mocks.MockEngine
	hub         *mocks.MockBroadcaster
	publisher   *webhook_mocks.MockWebhookPublisher
	moderator   *mocks.MockTrustModerator
	clock       *clockwork.FakeClock
}

// newTestReportService - вспомогательная функция для создания сервиса с моками
func newTestReportService(t *testing.T) (service.ReportService, *reportServiceMocks) {
	ctrl := gomock.NewController(t)
	m := &reportServiceMocks{
		repo:        mocks.NewMockIncidentRepository(ctrl),
		provisional: mocks.NewMockProvisionalIncident(ctrl),
		engine:      verification_mocks.NewMockEngine(ctrl),
		hub:         mocks.NewMockBroadcaster(ctrl),
		publisher:   webhook_mocks.NewMockWebhookPublisher(ctrl),
		moderator:   mocks.NewMockTrustModerator(ctrl),
		clock:       clockwork.NewFakeClock(),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		StatsTimeWindowMinutes: 60,
	}

	svc := service.NewReportService(
		m.repo, m.engine, m.hub, m.publisher, m.moderator,
		logger, cfg, observability.NewMetricsForTesting(), m.clock,
	)
	return svc, m
}

func TestSubmitReport_Verified(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incident := &models.Incident{
		Category: "fire",
		Severity: "high",
		Latitude: 12.9, Longitude: 77.6,
	}
	incidentID := uuid.New()
	expectedHash, _ := identity.Hash("device-token")

	// Ожидания: persist -> verify -> commit -> broadcast
	m.repo.EXPECT().
		BeginProvisional(gomock.Any(), incident).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (service.ProvisionalIncident, error) {
			// Симулируем, что БД присвоила ID
			inc.ID = incidentID
			return m.provisional, nil
		}).Times(1)

	m.engine.EXPECT().
		Verify(gomock.Any(), incident, expectedHash).
		Return(models.StatusVerified, nil).
		Times(1)

	m.provisional.EXPECT().Commit(gomock.Any(), models.StatusVerified).Return(nil).Times(1)

	m.hub.EXPECT().
		Broadcast(gomock.Any()).
		Do(func(event models.BroadcastEvent) {
			assert.Equal(t, models.EventTypeNewIncident, event.Type)
			assert.Equal(t, incidentID, event.ID)
			assert.Equal(t, models.StatusVerified, event.Status)
			assert.Equal(t, "high", event.Severity)
		}).Times(1)

	// VERIFIED не уходит в модерацию
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	err := svc.SubmitReport(ctx, incident, "device-token")

	// Проверки: статус на модели выставляет сервис, без участия репозитория
	require.NoError(t, err)
	assert.Equal(t, expectedHash, incident.DeviceHash)
	assert.Equal(t, models.StatusVerified, incident.Status)
}

func TestSubmitReport_PendingReviewNotifiesModeration(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6, Severity: "low"}

	m.repo.EXPECT().BeginProvisional(gomock.Any(), incident).Return(m.provisional, nil).Times(1)
	m.engine.EXPECT().Verify(gomock.Any(), incident, gomock.Any()).Return(models.StatusPendingReview, nil).Times(1)
	m.provisional.EXPECT().Commit(gomock.Any(), models.StatusPendingReview).Return(nil).Times(1)

	// PENDING_REVIEW транслируется с отличимым статусом и уходит модераторам
	m.hub.EXPECT().
		Broadcast(gomock.Any()).
		Do(func(event models.BroadcastEvent) {
			assert.Equal(t, models.StatusPendingReview, event.Status)
		}).Times(1)
	m.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, event webhook.ModerationEvent) {
			assert.Equal(t, models.StatusPendingReview, event.Status)
			assert.Equal(t, m.clock.Now().UTC(), event.Timestamp)
		}).Return(nil).Times(1)

	// Действие
	err := svc.SubmitReport(ctx, incident, "device-token")

	// Проверки
	require.NoError(t, err)
}

func TestSubmitReport_BannedDeviceRolledBackNotBroadcast(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}

	// Ожидания: откат, без Commit и без трансляции
	m.repo.EXPECT().BeginProvisional(gomock.Any(), incident).Return(m.provisional, nil).Times(1)
	m.engine.EXPECT().Verify(gomock.Any(), incident, gomock.Any()).Return(models.StatusRejectedBan, nil).Times(1)
	m.provisional.EXPECT().Rollback(gomock.Any()).Return(nil).Times(1)
	m.provisional.EXPECT().Commit(gomock.Any(), gomock.Any()).Times(0)
	m.hub.EXPECT().Broadcast(gomock.Any()).Times(0)
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	err := svc.SubmitReport(ctx, incident, "banned-device-token")

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrDeviceBanned)
}

func TestSubmitReport_DuplicateRolledBackNotBroadcast(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}

	m.repo.EXPECT().BeginProvisional(gomock.Any(), incident).Return(m.provisional, nil).Times(1)
	m.engine.EXPECT().Verify(gomock.Any(), incident, gomock.Any()).Return(models.StatusRejectedDup, nil).Times(1)
	m.provisional.EXPECT().Rollback(gomock.Any()).Return(nil).Times(1)
	m.hub.EXPECT().Broadcast(gomock.Any()).Times(0)

	// Действие
	err := svc.SubmitReport(ctx, incident, "device-token")

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrDuplicateReport)
}

func TestSubmitReport_MissingDeviceToken(t *testing.T) {
	// Подготовка: без токена ничего не персистится и не верифицируется
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}

	m.repo.EXPECT().BeginProvisional(gomock.Any(), gomock.Any()).Times(0)
	m.engine.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// Действие
	err := svc.SubmitReport(ctx, incident, "")

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrMissingDeviceToken)
}

func TestSubmitReport_PersistFailure(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}
	storeError := fmt.Errorf("connection refused")

	m.repo.EXPECT().BeginProvisional(gomock.Any(), incident).Return(nil, storeError).Times(1)
	m.engine.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	m.hub.EXPECT().Broadcast(gomock.Any()).Times(0)

	// Действие
	err := svc.SubmitReport(ctx, incident, "device-token")

	// Проверки
	require.Error(t, err)
	assert.ErrorContains(t, err, "could not persist report")
}

func TestSubmitReport_VerificationFailureRollsBack(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}
	verifyError := fmt.Errorf("trust store unavailable")

	m.repo.EXPECT().BeginProvisional(gomock.Any(), incident).Return(m.provisional, nil).Times(1)
	m.engine.EXPECT().Verify(gomock.Any(), incident, gomock.Any()).Return(models.IncidentStatus(""), verifyError).Times(1)
	m.provisional.EXPECT().Rollback(gomock.Any()).Return(nil).Times(1)
	m.hub.EXPECT().Broadcast(gomock.Any()).Times(0)

	// Действие
	err := svc.SubmitReport(ctx, incident, "device-token")

	// Проверки
	require.Error(t, err)
	assert.ErrorContains(t, err, "could not verify report")
}

func TestSubmitReport_CommitFailure(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}
	commitError := fmt.Errorf("commit failed")

	m.repo.EXPECT().BeginProvisional(gomock.Any(), incident).Return(m.provisional, nil).Times(1)
	m.engine.EXPECT().Verify(gomock.Any(), incident, gomock.Any()).Return(models.StatusVerified, nil).Times(1)
	m.provisional.EXPECT().Commit(gomock.Any(), models.StatusVerified).Return(commitError).Times(1)
	// Незафиксированный инцидент не транслируется
	m.hub.EXPECT().Broadcast(gomock.Any()).Times(0)

	// Действие
	err := svc.SubmitReport(ctx, incident, "device-token")

	// Проверки
	require.Error(t, err)
	assert.ErrorContains(t, err, "could not commit report")
}

func TestSubmitReport_ModerationPublishFailureDoesNotFailSubmission(t *testing.T) {
	// Подготовка: сбой уведомления модерации не влияет на исход отправки
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}

	m.repo.EXPECT().BeginProvisional(gomock.Any(), incident).Return(m.provisional, nil).Times(1)
	m.engine.EXPECT().Verify(gomock.Any(), incident, gomock.Any()).Return(models.StatusPendingReview, nil).Times(1)
	m.provisional.EXPECT().Commit(gomock.Any(), models.StatusPendingReview).Return(nil).Times(1)
	m.hub.EXPECT().Broadcast(gomock.Any()).Times(1)
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(fmt.Errorf("queue full")).Times(1)

	// Действие
	err := svc.SubmitReport(ctx, incident, "device-token")

	// Проверки
	require.NoError(t, err)
}

func TestGetIncident_FromCache(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	expected := &models.Incident{ID: incidentID, Category: "flood"}

	// Ожидания
	m.repo.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(expected, nil).Times(1)
	m.repo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	incident, err := svc.GetIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_FromDB(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	expected := &models.Incident{ID: incidentID, Category: "flood"}

	// Ожидания: промах кеша, чтение из бд, запись в кеш
	m.repo.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, nil).Times(1)
	m.repo.EXPECT().GetByID(ctx, incidentID).Return(expected, nil).Times(1)
	m.repo.EXPECT().SetIncidentCache(ctx, expected).Return(nil).Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	dbError := fmt.Errorf("не найдено")

	m.repo.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, nil).Times(1)
	m.repo.EXPECT().GetByID(ctx, incidentID).Return(nil, dbError).Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, incidentID)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorContains(t, err, "could not get incident")
}

func TestListIncidents_NormalizesPagination(t *testing.T) {
	// Подготовка: некорректные значения страниц приводятся к дефолтам
	svc, m := newTestReportService(t)
	ctx := context.Background()
	expected := []*models.Incident{{ID: uuid.New()}}

	m.repo.EXPECT().ListIncidents(ctx, 1, 20).Return(expected, nil).Times(1)

	// Действие
	incidents, err := svc.ListIncidents(ctx, 0, 500)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}

func TestGetStats_Success(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()

	m.repo.EXPECT().GetReporterStats(ctx, 60).Return(42, nil).Times(1)

	// Действие
	count, err := svc.GetStats(ctx)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestSetDeviceBan_Success(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()

	m.moderator.EXPECT().SetBanned(ctx, "device-hash", true).Return(nil).Times(1)

	// Действие
	err := svc.SetDeviceBan(ctx, "device-hash", true)

	// Проверки
	require.NoError(t, err)
}

func TestSetDeviceBan_Failure(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	storeError := fmt.Errorf("write failed")

	m.moderator.EXPECT().SetBanned(ctx, "device-hash", false).Return(storeError).Times(1)

	// Действие
	err := svc.SetDeviceBan(ctx, "device-hash", false)

	// Проверки
	require.Error(t, err)
	assert.ErrorContains(t, err, "could not update ban state")
}
