package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crowdalert/incident_reporting_system/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	moderationQueueKey = "moderation_events"
)

// ModerationEvent - уведомление для модераторов об отчете, ожидающем ручного разбора
type ModerationEvent struct {
	IncidentID uuid.UUID             `json:"incident_id"`
	DeviceHash string                `json:"device_hash"`
	Latitude   float64               `json:"latitude"`
	Longitude  float64               `json:"longitude"`
	Severity   string                `json:"severity"`
	Status     models.IncidentStatus `json:"status"`
	Timestamp  time.Time             `json:"timestamp"`
}

// WebhookPublisher - интерфейс для публикации уведомлений модерации
type WebhookPublisher interface {
	Publish(ctx context.Context, event ModerationEvent) error
}

// RedisWebhookPublisher - реализация WebhookPublisher, использующая Redis
type RedisWebhookPublisher struct {
	redisClient *redis.Client
}

// NewRedisWebhookPublisher создает новый RedisWebhookPublisher
func NewRedisWebhookPublisher(client *redis.Client) *RedisWebhookPublisher {
	return &RedisWebhookPublisher{
		redisClient: client,
	}
}

// Publish публикует событие модерации в очередь Redis
func (p *RedisWebhookPublisher) Publish(ctx context.Context, event ModerationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal moderation event: %w", err)
	}

	// Используем LPUSH для добавления события в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, moderationQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish moderation event to Redis: %w", err)
	}
	return nil
}
