package carbu

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/osservaprezzi/carburapi/pkg/api"
)

const (
	defaultCacheSize = -1024 * 1024 // negative value for pages
	defaultPageSize  = 4096

	// Snapshots kept around after a prune. Upstream refreshes at most once a
	// day, so two weeks of history is plenty for the fallback tier.
	defaultKeepSnapshots = 14
)

// Store persists fuel snapshots in SQLite so the service can serve data
// across restarts and upstream outages. One row per successful refresh;
// stations and prices are saved as a single JSON blob to keep the pair
// atomic.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

type snapshotBlob struct {
	SavedAt  time.Time     `json:"saved_at"`
	Stations []api.Station `json:"stations"`
	Prices   []api.Price   `json:"prices"`
}

// NewStore opens (creating if needed) the snapshot database at dbPath.
func NewStore(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configurePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := createSnapshotTable(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &Store{db: db, log: logger}, nil
}

func createSnapshotTable(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS fuel_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		saved_at TEXT NOT NULL,
		data BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fuel_snapshots_saved_at ON fuel_snapshots(saved_at);
	`

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	return nil
}

func configurePragmas(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 10000;"); err != nil {
		return fmt.Errorf("error setting busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("error setting journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		return fmt.Errorf("error setting synchronous: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA cache_size = %d;", defaultCacheSize)); err != nil {
		return fmt.Errorf("error setting cache size: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA page_size = %d;", defaultPageSize)); err != nil {
		return fmt.Errorf("error setting page size: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a station/price pair. Empty datasets are rejected: a saved
// snapshot must always be usable as a fallback tier.
func (s *Store) Save(ctx context.Context, stations []api.Station, prices []api.Price) error {
	if len(stations) == 0 || len(prices) == 0 {
		return fmt.Errorf("refusing to save empty snapshot")
	}

	now := time.Now().UTC()
	data, err := json.Marshal(snapshotBlob{SavedAt: now, Stations: stations, Prices: prices})
	if err != nil {
		return fmt.Errorf("error marshaling snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			s.log.Warn("rollback error", "error", err)
		}
	}()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO fuel_snapshots (saved_at, data) VALUES (?, ?)",
		now.Format(time.RFC3339), data)
	if err != nil {
		return fmt.Errorf("error inserting snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	if err := s.prune(ctx, defaultKeepSnapshots); err != nil {
		s.log.Warn("snapshot prune failed", "error", err)
	}

	s.log.Debug("snapshot saved", "stations", len(stations), "prices", len(prices))
	return nil
}

// LoadLatest returns the most recently saved station/price pair, or nil
// slices when nothing has been persisted yet.
func (s *Store) LoadLatest(ctx context.Context) ([]api.Station, []api.Price, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM fuel_snapshots ORDER BY id DESC LIMIT 1").Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("error querying snapshot: %w", err)
	}

	var blob snapshotBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, nil, fmt.Errorf("error unmarshaling snapshot: %w", err)
	}
	return blob.Stations, blob.Prices, nil
}

// LastSavedAt returns the save time of the newest snapshot, or nil when the
// store is empty.
func (s *Store) LastSavedAt(ctx context.Context) (*time.Time, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT saved_at FROM fuel_snapshots ORDER BY id DESC LIMIT 1").Scan(&savedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying snapshot date: %w", err)
	}

	t, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return nil, fmt.Errorf("error parsing date %s: %w", savedAt, err)
	}
	return &t, nil
}

func (s *Store) prune(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM fuel_snapshots
		WHERE id NOT IN (SELECT id FROM fuel_snapshots ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return fmt.Errorf("error deleting old snapshots: %w", err)
	}
	return nil
}
