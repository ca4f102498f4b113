package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crowdalert/incident_reporting_system/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const rateCounterPrefix = "device_rate:"

// Store хранит репутационное состояние устройств: флаг бана и append-only
// журнал отправок в Postgres, скользящий счетчик частоты в Redis.
type Store struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	rateWindow  time.Duration
}

func NewStore(db *pgxpool.Pool, redisClient *redis.Client, rateWindow time.Duration) *Store {
	return &Store{
		db:          db,
		redisClient: redisClient,
		rateWindow:  rateWindow,
	}
}

// IsBanned возвращает флаг бана устройства. Неизвестное устройство не забанено
func (s *Store) IsBanned(ctx context.Context, deviceHash string) (bool, error) {
	query := `SELECT banned FROM device_trust WHERE device_hash = $1;`

	var banned bool
	err := s.db.QueryRow(ctx, query, deviceHash).Scan(&banned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Никогда не видели - нейтральное доверие
			return false, nil
		}
		return false, fmt.Errorf("failed to check ban state: %w", err)
	}
	return banned, nil
}

// Lookup возвращает репутационную запись устройства или nil, если устройство не встречалось
func (s *Store) Lookup(ctx context.Context, deviceHash string) (*models.TrustRecord, error) {
	query := `
		SELECT device_hash, banned, first_seen_at, last_submitted_at
		FROM device_trust
		WHERE device_hash = $1;
	`
	record := &models.TrustRecord{}
	err := s.db.QueryRow(ctx, query, deviceHash).Scan(
		&record.DeviceHash,
		&record.Banned,
		&record.FirstSeenAt,
		&record.LastSubmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lookup trust record: %w", err)
	}
	return record, nil
}

// RecentSubmissions возвращает отправки устройства начиная с момента since
func (s *Store) RecentSubmissions(ctx context.Context, deviceHash string, since time.Time) ([]models.SubmissionEvent, error) {
	query := `
		SELECT
			id,
			device_hash,
			ST_Y(location::geometry) as latitude,
			ST_X(location::geometry) as longitude,
			submitted_at
		FROM device_submissions
		WHERE device_hash = $1 AND submitted_at >= $2
		ORDER BY submitted_at DESC;
	`
	rows, err := s.db.Query(ctx, query, deviceHash, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent submissions: %w", err)
	}
	defer rows.Close()

	events := make([]models.SubmissionEvent, 0)
	for rows.Next() {
		var ev models.SubmissionEvent
		err := rows.Scan(&ev.ID, &ev.DeviceHash, &ev.Latitude, &ev.Longitude, &ev.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error submissions iteration: %w", err)
	}
	return events, nil
}

// SubmissionCount возвращает число отправок устройства в текущем окне частоты.
// Счетчик живет в Redis, длина окна задается TTL ключа при первом инкременте.
// Окно фиксированное, не скользящее: счетчик обнуляется по истечении TTL
func (s *Store) SubmissionCount(ctx context.Context, deviceHash string) (int, error) {
	key := rateCounterPrefix + deviceHash
	count, err := s.redisClient.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get submission counter: %w", err)
	}
	return count, nil
}

// RecordSubmission добавляет событие в журнал отправок и инкрементирует счетчик частоты.
// Журнал append-only: записи никогда не удаляются, история остается для аудита.
// INSERT и INCR атомарны каждый по себе, поэтому конкурентные ретраи одного
// устройства не теряют обновлений.
func (s *Store) RecordSubmission(ctx context.Context, deviceHash string, at time.Time, lat, lon float64) error {
	query := `
		INSERT INTO device_submissions (device_hash, location, submitted_at)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326), $4);
	`
	if _, err := s.db.Exec(ctx, query, deviceHash, lon, lat, at); err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}

	// Ленивое создание репутационной записи при первой отправке
	upsert := `
		INSERT INTO device_trust (device_hash, first_seen_at, last_submitted_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (device_hash) DO UPDATE SET last_submitted_at = EXCLUDED.last_submitted_at;
	`
	if _, err := s.db.Exec(ctx, upsert, deviceHash, at); err != nil {
		return fmt.Errorf("failed to upsert trust record: %w", err)
	}

	return s.incrementRateCounter(ctx, deviceHash)
}

// incrementRateCounter инкрементирует счетчик Redis и выставляет TTL окна
// при создании ключа. INCR и EXPIRE идут одним пайплайном
func (s *Store) incrementRateCounter(ctx context.Context, deviceHash string) error {
	key := rateCounterPrefix + deviceHash

	pipe := s.redisClient.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, s.rateWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment submission counter: %w", err)
	}
	return nil
}

// SetBanned выставляет или снимает флаг бана. Вызывается только трактом
// модерации - движок верификации этот метод не видит через свой интерфейс
func (s *Store) SetBanned(ctx context.Context, deviceHash string, banned bool) error {
	query := `
		INSERT INTO device_trust (device_hash, banned, first_seen_at, last_submitted_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (device_hash) DO UPDATE SET banned = EXCLUDED.banned;
	`
	if _, err := s.db.Exec(ctx, query, deviceHash, banned); err != nil {
		return fmt.Errorf("failed to set ban state: %w", err)
	}
	return nil
}
