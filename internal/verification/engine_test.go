package verification

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/crowdalert/incident_reporting_system/internal/config"
	"github.com/crowdalert/incident_reporting_system/internal/models"
	"github.com/crowdalert/incident_reporting_system/internal/verification/mocks"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestEngine - вспомогательная функция для создания движка с моками и фейковыми часами
func newTestEngine(t *testing.T) (Engine, *mocks.MockTrustStore, *clockwork.FakeClock) {
	ctrl := gomock.NewController(t)
	trustMock := mocks.NewMockTrustStore(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		DuplicateWindow:       60 * time.Second,
		DuplicateRadiusMeters: 100,
		RateWindow:            60 * time.Second,
		RateThreshold:         10,
	}

	clock := clockwork.NewFakeClock()
	engine := NewEngine(trustMock, logger, cfg, clock)
	return engine, trustMock, clock
}

func TestVerify_BannedDevice(t *testing.T) {
	// Подготовка
	engine, trustMock, _ := newTestEngine(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}

	// Ожидания: бан терминален, никакие другие проверки не выполняются
	// и журнал отправок не пополняется
	trustMock.EXPECT().IsBanned(ctx, "banned-device").Return(true, nil).Times(1)
	trustMock.EXPECT().RecentSubmissions(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	trustMock.EXPECT().SubmissionCount(gomock.Any(), gomock.Any()).Times(0)
	trustMock.EXPECT().RecordSubmission(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "banned-device")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejectedBan, outcome)
}

func TestVerify_BanCheckFailure(t *testing.T) {
	// Подготовка
	engine, trustMock, _ := newTestEngine(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}
	storeError := fmt.Errorf("redis connection refused")

	// Ожидания: неизвестный статус бана - инфраструктурная ошибка, решение не принимается
	trustMock.EXPECT().IsBanned(ctx, "device").Return(false, storeError).Times(1)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "device")

	// Проверки
	require.Error(t, err)
	assert.Empty(t, outcome)
	assert.ErrorContains(t, err, "could not check ban state")
}

func TestVerify_Duplicate(t *testing.T) {
	// Подготовка: устройство отправило отчет в (12.9, 77.6), через 5 секунд
	// отправляет почти ту же точку (12.9001, 77.6001) - это ~15 метров
	engine, trustMock, clock := newTestEngine(t)
	ctx := context.Background()
	firstAt := clock.Now()
	clock.Advance(5 * time.Second)

	incident := &models.Incident{Latitude: 12.9001, Longitude: 77.6001}

	// Ожидания
	trustMock.EXPECT().IsBanned(ctx, "device-d").Return(false, nil).Times(1)
	trustMock.EXPECT().
		RecentSubmissions(ctx, "device-d", clock.Now().Add(-60*time.Second)).
		Return([]models.SubmissionEvent{
			{DeviceHash: "device-d", Latitude: 12.9, Longitude: 77.6, SubmittedAt: firstAt},
		}, nil).
		Times(1)
	// Дубликат тоже записывается в журнал - это ветка 2
	trustMock.EXPECT().
		RecordSubmission(ctx, "device-d", clock.Now(), 12.9001, 77.6001).
		Return(nil).
		Times(1)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "device-d")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejectedDup, outcome)
}

func TestVerify_SameAreaOutsideRadius(t *testing.T) {
	// Подготовка: прошлая отправка в ~1.5 км - это не дубликат
	engine, trustMock, clock := newTestEngine(t)
	ctx := context.Background()

	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}

	// Ожидания
	trustMock.EXPECT().IsBanned(ctx, "device-d").Return(false, nil).Times(1)
	trustMock.EXPECT().
		RecentSubmissions(ctx, "device-d", gomock.Any()).
		Return([]models.SubmissionEvent{
			{DeviceHash: "device-d", Latitude: 12.913, Longitude: 77.6, SubmittedAt: clock.Now().Add(-10 * time.Second)},
		}, nil).
		Times(1)
	trustMock.EXPECT().SubmissionCount(ctx, "device-d").Return(1, nil).Times(1)
	trustMock.EXPECT().RecordSubmission(ctx, "device-d", clock.Now(), 12.9, 77.6).Return(nil).Times(1)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "device-d")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, outcome)
}

func TestVerify_RateExceeded(t *testing.T) {
	// Подготовка: 11-я отправка при пороге 10 уходит на ручной разбор, а не отклоняется
	engine, trustMock, clock := newTestEngine(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 55.75, Longitude: 37.61}

	// Ожидания
	trustMock.EXPECT().IsBanned(ctx, "device-e").Return(false, nil).Times(1)
	trustMock.EXPECT().RecentSubmissions(ctx, "device-e", gomock.Any()).Return(nil, nil).Times(1)
	trustMock.EXPECT().SubmissionCount(ctx, "device-e").Return(10, nil).Times(1)
	trustMock.EXPECT().RecordSubmission(ctx, "device-e", clock.Now(), 55.75, 37.61).Return(nil).Times(1)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "device-e")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, outcome)
}

func TestVerify_UnderRateThreshold(t *testing.T) {
	// Подготовка
	engine, trustMock, _ := newTestEngine(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 55.75, Longitude: 37.61}

	// Ожидания
	trustMock.EXPECT().IsBanned(ctx, "device-e").Return(false, nil).Times(1)
	trustMock.EXPECT().RecentSubmissions(ctx, "device-e", gomock.Any()).Return(nil, nil).Times(1)
	trustMock.EXPECT().SubmissionCount(ctx, "device-e").Return(9, nil).Times(1)
	trustMock.EXPECT().RecordSubmission(ctx, "device-e", gomock.Any(), 55.75, 37.61).Return(nil).Times(1)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "device-e")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, outcome)
}

func TestVerify_MissingLocationSkipsDuplicateCheck(t *testing.T) {
	// Подготовка: без координат анализ дубликатов невозможен,
	// движок деградирует к проверке частоты вместо отказа
	engine, trustMock, _ := newTestEngine(t)
	ctx := context.Background()
	incident := &models.Incident{}

	// Ожидания: RecentSubmissions не вызывается вовсе
	trustMock.EXPECT().IsBanned(ctx, "device").Return(false, nil).Times(1)
	trustMock.EXPECT().RecentSubmissions(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	trustMock.EXPECT().SubmissionCount(ctx, "device").Return(0, nil).Times(1)
	trustMock.EXPECT().RecordSubmission(ctx, "device", gomock.Any(), 0.0, 0.0).Return(nil).Times(1)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "device")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, outcome)
}

func TestVerify_DuplicateAnalysisFailureDegradesToRateCheck(t *testing.T) {
	// Подготовка
	engine, trustMock, _ := newTestEngine(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}
	storeError := fmt.Errorf("query timeout")

	// Ожидания
	trustMock.EXPECT().IsBanned(ctx, "device").Return(false, nil).Times(1)
	trustMock.EXPECT().RecentSubmissions(ctx, "device", gomock.Any()).Return(nil, storeError).Times(1)
	trustMock.EXPECT().SubmissionCount(ctx, "device").Return(0, nil).Times(1)
	trustMock.EXPECT().RecordSubmission(ctx, "device", gomock.Any(), 12.9, 77.6).Return(nil).Times(1)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "device")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, outcome)
}

func TestVerify_RateAnalysisFailureDegradesToPendingReview(t *testing.T) {
	// Подготовка
	engine, trustMock, _ := newTestEngine(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}
	storeError := fmt.Errorf("counter unavailable")

	// Ожидания
	trustMock.EXPECT().IsBanned(ctx, "device").Return(false, nil).Times(1)
	trustMock.EXPECT().RecentSubmissions(ctx, "device", gomock.Any()).Return(nil, nil).Times(1)
	trustMock.EXPECT().SubmissionCount(ctx, "device").Return(0, storeError).Times(1)
	trustMock.EXPECT().RecordSubmission(ctx, "device", gomock.Any(), 12.9, 77.6).Return(nil).Times(1)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "device")

	// Проверки: недооцененная частота отдается людям, а не отбрасывается
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, outcome)
}

func TestVerify_RecordSubmissionFailureDoesNotChangeOutcome(t *testing.T) {
	// Подготовка
	engine, trustMock, _ := newTestEngine(t)
	ctx := context.Background()
	incident := &models.Incident{Latitude: 12.9, Longitude: 77.6}

	// Ожидания
	trustMock.EXPECT().IsBanned(ctx, "device").Return(false, nil).Times(1)
	trustMock.EXPECT().RecentSubmissions(ctx, "device", gomock.Any()).Return(nil, nil).Times(1)
	trustMock.EXPECT().SubmissionCount(ctx, "device").Return(0, nil).Times(1)
	trustMock.EXPECT().
		RecordSubmission(ctx, "device", gomock.Any(), 12.9, 77.6).
		Return(fmt.Errorf("insert failed")).
		Times(1)

	// Действие
	outcome, err := engine.Verify(ctx, incident, "device")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, outcome)
}

func TestHaversineMeters(t *testing.T) {
	// Нулевое расстояние
	assert.Zero(t, haversineMeters(12.9, 77.6, 12.9, 77.6))

	// (12.9, 77.6) -> (12.9001, 77.6001) - около 15 метров
	d := haversineMeters(12.9, 77.6, 12.9001, 77.6001)
	assert.InDelta(t, 15.5, d, 2.0)

	// Один градус широты - примерно 111 км
	d = haversineMeters(12.9, 77.6, 13.9, 77.6)
	assert.InDelta(t, 111000, d, 500)
}
