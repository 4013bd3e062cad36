// Package alert notifies about newly verified seizure events. Every verified
// event is handled once; the sqlite ledger remembers which ones were seen.
package alert

import (
	"context"
	"log"
	"time"

	"seizowatch/internal/models"
)

const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

type Ledger interface {
	IsAlerted(eventID string) (bool, error)
	RecordAlert(rec models.AlertRecord) error
}

type Sender interface {
	Send(ctx context.Context, ev models.SeizureEvent) error
}

type Dispatcher struct {
	ledger Ledger
	sender Sender
	maxAge time.Duration

	// queue holds at most the newest pending snapshot; snapshots are full
	// collections so older ones carry nothing extra.
	queue chan []models.SeizureEvent

	Now      func() time.Time
	OnResult func(result string)
}

func NewDispatcher(ledger Ledger, sender Sender, maxAge time.Duration) *Dispatcher {
	return &Dispatcher{
		ledger: ledger,
		sender: sender,
		maxAge: maxAge,
		queue:  make(chan []models.SeizureEvent, 1),
		Now:    time.Now,
	}
}

// Enqueue never blocks. It is safe to call from a store callback.
func (d *Dispatcher) Enqueue(events []models.SeizureEvent) {
	for {
		select {
		case d.queue <- events:
			return
		default:
		}
		select {
		case <-d.queue:
		default:
		}
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("Alert dispatcher started. Max alert age: %s", d.maxAge)
	for {
		select {
		case <-ctx.Done():
			log.Println("Alert dispatcher stopping.")
			return
		case events := <-d.queue:
			d.Process(ctx, events)
		}
	}
}

// Process handles every verified event missing from the ledger. Recent ones
// are sent; older ones and ones without a usable time are recorded silently.
func (d *Dispatcher) Process(ctx context.Context, events []models.SeizureEvent) {
	now := d.Now()
	for _, ev := range events {
		if ctx.Err() != nil {
			return
		}
		if !ev.DLVerified || ev.ID == "" {
			continue
		}
		seen, err := d.ledger.IsAlerted(ev.ID)
		if err != nil {
			log.Printf("[%s] Alert ledger lookup failed: %v", ev.ID, err)
			continue
		}
		if seen {
			continue
		}

		result := ResultSkipped
		if ev.HasTime() && now.Sub(ev.Time) < d.maxAge {
			result = ResultSent
			if err := d.sender.Send(ctx, ev); err != nil {
				log.Printf("[%s] Alert failed: %v", ev.ID, err)
				result = ResultFailed
			}
		}

		rec := models.AlertRecord{
			EventID:        ev.ID,
			EventTimestamp: ev.Timestamp,
			AlertedAt:      now.Unix(),
			Delivered:      result == ResultSent,
		}
		if err := d.ledger.RecordAlert(rec); err != nil {
			log.Printf("[%s] Failed to record alert: %v", ev.ID, err)
		}
		if d.OnResult != nil {
			d.OnResult(result)
		}
	}
}
