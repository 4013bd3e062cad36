// Package cache mirrors the latest derived views into redis so other
// processes can read them without subscribing to the remote store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"seizowatch/internal/models"
)

const (
	SummaryKey    = "seizowatch:summary"
	MonitoringKey = "seizowatch:monitoring"
)

type Publisher struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPublisher(client *redis.Client, ttl time.Duration) *Publisher {
	return &Publisher{client: client, ttl: ttl}
}

// PublishSummary stores the summary, or removes the key when there is none.
func (p *Publisher) PublishSummary(ctx context.Context, summary *models.AnalyticsSummary) error {
	if summary == nil {
		return p.client.Del(ctx, SummaryKey).Err()
	}
	return p.set(ctx, SummaryKey, summary)
}

func (p *Publisher) PublishSample(ctx context.Context, sample *models.MonitoringSample) error {
	if sample == nil {
		return p.client.Del(ctx, MonitoringKey).Err()
	}
	return p.set(ctx, MonitoringKey, sample)
}

func (p *Publisher) Summary(ctx context.Context) (*models.AnalyticsSummary, error) {
	var summary models.AnalyticsSummary
	found, err := p.get(ctx, SummaryKey, &summary)
	if err != nil || !found {
		return nil, err
	}
	return &summary, nil
}

func (p *Publisher) Sample(ctx context.Context) (*models.MonitoringSample, error) {
	var sample models.MonitoringSample
	found, err := p.get(ctx, MonitoringKey, &sample)
	if err != nil || !found {
		return nil, err
	}
	return &sample, nil
}

func (p *Publisher) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return p.client.Set(ctx, key, data, p.ttl).Err()
}

func (p *Publisher) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := p.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
