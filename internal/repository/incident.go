package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crowdalert/incident_reporting_system/internal/models"
	"github.com/crowdalert/incident_reporting_system/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// provisionalIncident держит открытую транзакцию предварительной записи.
// До Commit строка не видна конкурентным читателям, Rollback убирает ее бесследно.
type provisionalIncident struct {
	tx       pgx.Tx
	incident *models.Incident
}

// BeginProvisional открывает транзакцию и вставляет предварительную запись об инциденте.
// Итоговый статус фиксируется только в Commit
func (r *IncidentRepository) BeginProvisional(ctx context.Context, incident *models.Incident) (service.ProvisionalIncident, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin provisional transaction: %w", err)
	}

	query := `
		INSERT INTO incidents (category, description, location, severity, status, device_hash)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326), $5, $6, $7) RETURNING id, created_at;
	`
	err = tx.QueryRow(ctx, query,
		incident.Category,
		incident.Description,
		incident.Longitude,
		incident.Latitude,
		incident.Severity,
		models.StatusPendingReview, // плейсхолдер до решения верификации
		incident.DeviceHash,
	).Scan(&incident.ID, &incident.CreatedAt)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to insert provisional incident: %w", err)
	}

	return &provisionalIncident{tx: tx, incident: incident}, nil
}

// Commit выставляет итоговый статус и фиксирует транзакцию.
// Вызывается только для VERIFIED и PENDING_REVIEW
func (p *provisionalIncident) Commit(ctx context.Context, status models.IncidentStatus) error {
	query := `UPDATE incidents SET status = $1 WHERE id = $2;`
	if _, err := p.tx.Exec(ctx, query, status, p.incident.ID); err != nil {
		_ = p.tx.Rollback(ctx)
		return fmt.Errorf("failed to set final incident status: %w", err)
	}

	if err := p.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit incident: %w", err)
	}
	p.incident.Status = status
	return nil
}

// Rollback откатывает предварительную запись. Идемпотентен:
// повторный вызов после Commit или Rollback - no-op
func (p *provisionalIncident) Rollback(ctx context.Context) error {
	if err := p.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback provisional incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	incident := &models.Incident{}
	query := `
		SELECT
			id,
			category,
			description,
			ST_Y(location::geometry) as latitude,
			ST_X(location::geometry) as longitude,
			severity,
			status,
			device_hash,
			created_at
		FROM incidents
		WHERE id = $1;
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.Category,
		&incident.Description,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Severity,
		&incident.Status,
		&incident.DeviceHash,
		&incident.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (r *IncidentRepository) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	// рассчитываем смещение
	offset := (page - 1) * pageSize

	query := `
		SELECT
			id,
			category,
			description,
			ST_Y(location::geometry) as latitude,
			ST_X(location::geometry) as longitude,
			severity,
			status,
			device_hash,
			created_at
		FROM incidents
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident := &models.Incident{}
		err := rows.Scan(
			&incident.ID,
			&incident.Category,
			&incident.Description,
			&incident.Latitude,
			&incident.Longitude,
			&incident.Severity,
			&incident.Status,
			&incident.DeviceHash,
			&incident.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// GetReporterStats возвращает количество уникальных устройств, приславших отчеты за окно
func (r *IncidentRepository) GetReporterStats(ctx context.Context, minutes int) (int, error) {
	query := `
		SELECT COUNT(DISTINCT device_hash)
		FROM device_submissions
		WHERE submitted_at >= NOW() - ($1 * INTERVAL '1 minute');
	`
	var count int
	err := r.db.QueryRow(ctx, query, minutes).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get reporter stats: %w", err)
	}
	return count, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	// Устанавливаем срок жизни кэша, например, 5 минут
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}
