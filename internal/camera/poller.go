package camera

import (
	"context"
	"log"
	"sync"
	"time"

	"seizowatch/internal/models"
)

type StatusRecorder interface {
	RecordCameraStatus(running bool, observedAt time.Time) error
}

type statusFetcher interface {
	Status(ctx context.Context) (models.CameraStatus, error)
}

// Poller checks the camera state at a fixed interval and records transitions.
// Poll failures are logged and leave the last known state in place.
type Poller struct {
	client   statusFetcher
	recorder StatusRecorder
	interval time.Duration

	mu      sync.RWMutex
	current models.CameraStatus
	known   bool
	lastErr error

	OnChange func(running bool)
	Now      func() time.Time
}

func NewPoller(client statusFetcher, recorder StatusRecorder, interval time.Duration) *Poller {
	return &Poller{
		client:   client,
		recorder: recorder,
		interval: interval,
		Now:      time.Now,
	}
}

func (p *Poller) Run(ctx context.Context) {
	log.Printf("Camera poller started. Checking every %s.", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("Camera poller stopping.")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

func (p *Poller) Poll(ctx context.Context) {
	status, err := p.client.Status(ctx)
	if err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		if ctx.Err() == nil {
			log.Printf("Failed to check camera status: %v", err)
		}
		return
	}

	p.mu.Lock()
	changed := !p.known || p.current.Running != status.Running
	p.current = status
	p.known = true
	p.lastErr = nil
	p.mu.Unlock()

	if !changed {
		return
	}
	log.Printf("Camera status: %s", status.Status)
	if p.recorder != nil {
		if err := p.recorder.RecordCameraStatus(status.Running, p.Now()); err != nil {
			log.Printf("Failed to record camera status: %v", err)
		}
	}
	if p.OnChange != nil {
		p.OnChange(status.Running)
	}
}

// Current returns the last polled state; known is false until a poll succeeds.
func (p *Poller) Current() (status models.CameraStatus, known bool, lastErr error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.known, p.lastErr
}
