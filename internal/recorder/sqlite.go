package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"OilSentinel/internal/model"
)

// historyCap bounds the table so the file can't grow without limit.
const historyCap = 1000

// SQLiteRecorder persists price events to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so reads don't block the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			old_price  REAL,
			new_price  REAL NOT NULL,
			old_cycle  INTEGER,
			new_cycle  INTEGER NOT NULL,
			abs_change REAL,
			pct_change REAL,
			trend      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON price_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_cycle ON price_events(new_cycle)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordEvent inserts an accepted price event and trims old rows past the cap.
func (r *SQLiteRecorder) RecordEvent(evt *model.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldPrice sql.NullFloat64
	var oldCycle sql.NullInt64
	if evt.Old != nil {
		oldPrice = sql.NullFloat64{Float64: evt.Old.Price, Valid: true}
		oldCycle = sql.NullInt64{Int64: int64(evt.Old.Cycle), Valid: true}
	}

	_, err := r.db.Exec(`INSERT INTO price_events
		(timestamp, event_type, old_price, new_price, old_cycle, new_cycle, abs_change, pct_change, trend)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		evt.DetectedAt.Unix(), string(evt.Type),
		oldPrice, evt.New.Price, oldCycle, evt.New.Cycle,
		evt.Delta.Abs, evt.Delta.Percent, string(evt.Delta.Trend),
	)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`DELETE FROM price_events WHERE id NOT IN
		(SELECT id FROM price_events ORDER BY id DESC LIMIT ?)`, historyCap)
	return err
}

// RecentEvents returns the newest events, most recent first.
func (r *SQLiteRecorder) RecentEvents(limit int) ([]StoredEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, event_type, old_price, new_price,
		old_cycle, new_cycle, abs_change, pct_change, trend
		FROM price_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var (
			e        StoredEvent
			ts       int64
			oldPrice sql.NullFloat64
			oldCycle sql.NullInt64
		)
		if err := rows.Scan(&ts, &e.Type, &oldPrice, &e.NewPrice,
			&oldCycle, &e.NewCycle, &e.Abs, &e.Percent, &e.Trend); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		e.OldPrice = oldPrice.Float64
		e.OldCycle = int(oldCycle.Int64)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
