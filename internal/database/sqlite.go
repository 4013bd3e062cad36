package database

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"seizowatch/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

const timeFormat = "02/01/2006 15:04:05.000"

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer at a time; the alert worker and the camera poller share it.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) initSchema() error {
	createAlertsTable := `
    CREATE TABLE IF NOT EXISTS alerted_events (
        event_id TEXT PRIMARY KEY,
        event_timestamp TEXT NOT NULL,
        alerted_at TEXT NOT NULL,
        alerted_unix INTEGER NOT NULL,
        delivered INTEGER NOT NULL
    );`
	createCameraTable := `
    CREATE TABLE IF NOT EXISTS camera_status_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        running INTEGER NOT NULL,
        observed_at TEXT NOT NULL,
        observed_unix INTEGER NOT NULL
    );`
	if _, err := r.db.Exec(createAlertsTable); err != nil {
		return err
	}
	_, err := r.db.Exec(createCameraTable)
	return err
}

// IsAlerted reports whether an event has already been handled by the alert
// dispatcher, whether or not the notification was delivered.
func (r *Repository) IsAlerted(eventID string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM alerted_events WHERE event_id = ?`, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) RecordAlert(rec models.AlertRecord) error {
	alertedAt := time.Unix(rec.AlertedAt, 0).In(time.Local).Format(timeFormat)
	query := `INSERT OR REPLACE INTO alerted_events (event_id, event_timestamp, alerted_at, alerted_unix, delivered) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, rec.EventID, rec.EventTimestamp, alertedAt, rec.AlertedAt, rec.Delivered)
	return err
}

// RecentAlerts returns the newest ledger rows first.
func (r *Repository) RecentAlerts(limit int) ([]models.AlertRecord, error) {
	rows, err := r.db.Query(`SELECT event_id, event_timestamp, alerted_unix, delivered FROM alerted_events ORDER BY alerted_unix DESC, event_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AlertRecord
	for rows.Next() {
		var rec models.AlertRecord
		if err := rows.Scan(&rec.EventID, &rec.EventTimestamp, &rec.AlertedAt, &rec.Delivered); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) RecordCameraStatus(running bool, observedAt time.Time) error {
	query := `INSERT INTO camera_status_log (running, observed_at, observed_unix) VALUES (?, ?, ?)`
	_, err := r.db.Exec(query, running, observedAt.In(time.Local).Format(timeFormat), observedAt.Unix())
	return err
}

// LastCameraStatus returns the most recent recorded camera state; found is
// false when nothing has been recorded yet.
func (r *Repository) LastCameraStatus() (running bool, observedAt time.Time, found bool, err error) {
	var observedStr string
	var observedUnix int64
	err = r.db.QueryRow(`SELECT running, observed_at, observed_unix FROM camera_status_log ORDER BY id DESC LIMIT 1`).
		Scan(&running, &observedStr, &observedUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, false, nil
	}
	if err != nil {
		return false, time.Time{}, false, err
	}
	if parsed, perr := time.ParseInLocation(timeFormat, observedStr, time.Local); perr == nil {
		observedAt = parsed
	} else {
		log.Printf("Warning: could not parse observed_at '%s' from DB: %v", observedStr, perr)
		observedAt = time.Unix(observedUnix, 0)
	}
	return running, observedAt, true, nil
}

func (r *Repository) Close() {
	r.db.Close()
}
