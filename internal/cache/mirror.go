package cache

import (
	"context"
	"log"
	"time"

	"seizowatch/internal/models"
)

const writeTimeout = 3 * time.Second

// Mirror pushes the newest summary and sample to redis from its own goroutine.
// Updates never block; a pending value is replaced by a newer one.
type Mirror struct {
	pub       *Publisher
	summaries chan *models.AnalyticsSummary
	samples   chan *models.MonitoringSample
}

func NewMirror(pub *Publisher) *Mirror {
	return &Mirror{
		pub:       pub,
		summaries: make(chan *models.AnalyticsSummary, 1),
		samples:   make(chan *models.MonitoringSample, 1),
	}
}

func (m *Mirror) UpdateSummary(s *models.AnalyticsSummary) { offer(m.summaries, s) }

func (m *Mirror) UpdateSample(s *models.MonitoringSample) { offer(m.samples, s) }

func (m *Mirror) Run(ctx context.Context) {
	log.Println("Redis mirror started.")
	for {
		select {
		case <-ctx.Done():
			log.Println("Redis mirror stopping.")
			return
		case s := <-m.summaries:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			if err := m.pub.PublishSummary(wctx, s); err != nil {
				log.Printf("Failed to publish summary to redis: %v", err)
			}
			cancel()
		case s := <-m.samples:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			if err := m.pub.PublishSample(wctx, s); err != nil {
				log.Printf("Failed to publish monitoring sample to redis: %v", err)
			}
			cancel()
		}
	}
}

func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
