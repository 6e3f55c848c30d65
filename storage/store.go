package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"attraction-insights/models"
	"attraction-insights/utils"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"

	insertBatchSize = 50
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var attractionColumns = []string{
	"name", "link", "address", "description", "opening_hours", "image_url",
	"rating", "recommended_duration", "recommended_season", "ticket_price", "tips",
	"province", "city", "district", "latitude", "longitude", "source",
}

var selectColumns = "id, " + strings.Join(attractionColumns, ", ")

// Store persists cleaned attractions in PostgreSQL or SQLite.
type Store struct {
	db     *sqlx.DB
	driver string
	logger *utils.Logger
}

// Open connects with the named database/sql driver ("postgres", "pgx" or
// "sqlite"), retrying the initial ping, and applies migrations.
func Open(ctx context.Context, driver, dsn string, retry *utils.RetryConfig, logger *utils.Logger) (*Store, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if driver == dialectSQLite {
		// One connection serializes writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	err = retry.Do(ctx, "store: ping", func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := NewStore(db, logger)
	if _, err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an already opened connection; the caller runs Migrate.
func NewStore(db *sqlx.DB, logger *utils.Logger) *Store {
	return &Store{db: db, driver: db.DriverName(), logger: logger}
}

func (s *Store) dialect() string {
	if s.driver == dialectSQLite {
		return dialectSQLite
	}
	return dialectPostgres
}

// Save upserts records keyed on (name, address) in one transaction; with
// replace the table is emptied first. Any failure rolls back the whole call.
func (s *Store) Save(ctx context.Context, records []*models.Attraction, replace bool) (int, error) {
	records = uniqueByKey(records)
	if len(records) == 0 && !replace {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM attractions"); err != nil {
			return 0, fmt.Errorf("store: clear: %w", err)
		}
	}

	for i := 0; i < len(records); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.insertBatch(ctx, tx, records[i:end]); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	s.logger.Debug("[store] Saved %d records (replace=%t)", len(records), replace)
	return len(records), nil
}

func (s *Store) insertBatch(ctx context.Context, tx *sqlx.Tx, batch []*models.Attraction) error {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(attractionColumns)), ",") + ")"
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*len(attractionColumns))

	for _, a := range batch {
		valueStrings = append(valueStrings, placeholder)
		valueArgs = append(valueArgs,
			a.Name, a.Link, a.Address, a.Description, a.OpeningHours, a.ImageURL,
			a.Rating, a.RecommendedDuration, a.RecommendedSeason, a.TicketPrice, a.Tips,
			a.Province, a.City, a.District, a.Latitude, a.Longitude, a.Source)
	}

	updates := make([]string, 0, len(attractionColumns))
	for _, col := range attractionColumns {
		if col == "name" || col == "address" {
			continue
		}
		updates = append(updates, col+" = excluded."+col)
	}
	updates = append(updates, "updated_at = CURRENT_TIMESTAMP")

	query := fmt.Sprintf(`
		INSERT INTO attractions (%s)
		VALUES %s
		ON CONFLICT (name, address) DO UPDATE SET %s
	`, strings.Join(attractionColumns, ", "), strings.Join(valueStrings, ","), strings.Join(updates, ", "))

	if _, err := tx.ExecContext(ctx, tx.Rebind(query), valueArgs...); err != nil {
		return fmt.Errorf("store: insert batch: %w", err)
	}
	return nil
}

// uniqueByKey keeps the first record per (name, address); a single upsert
// statement may not touch the same row twice.
func uniqueByKey(records []*models.Attraction) []*models.Attraction {
	seen := make(map[string]struct{}, len(records))
	out := make([]*models.Attraction, 0, len(records))
	for _, a := range records {
		key := a.Name + "\x00" + a.Address
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// FetchAll returns every stored attraction ordered by id.
func (s *Store) FetchAll(ctx context.Context) ([]*models.Attraction, error) {
	return s.Query(ctx, models.Filter{})
}

// Query returns the attractions matching f, ordered by id. A season filter
// also matches multi-season values such as "春季、秋季".
func (s *Store) Query(ctx context.Context, f models.Filter) ([]*models.Attraction, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Province != "" {
		where = append(where, "province = ?")
		args = append(args, f.Province)
	}
	if f.City != "" {
		where = append(where, "city = ?")
		args = append(args, f.City)
	}
	if f.Season != "" {
		where = append(where, "recommended_season LIKE ?")
		args = append(args, "%"+f.Season+"%")
	}
	if f.MinRating > 0 {
		where = append(where, "rating >= ?")
		args = append(args, f.MinRating)
	}
	if f.FreeOnly {
		where = append(where, "ticket_price = ?")
		args = append(args, models.Free)
	}

	query := "SELECT " + selectColumns + " FROM attractions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	var out []*models.Attraction
	err := s.read(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, tx.Rebind(query), args...)
	})
	if err != nil {
		return nil, fmt.Errorf("store: query attractions: %w", err)
	}
	return out, nil
}

// Provinces lists the distinct non-empty provinces.
func (s *Store) Provinces(ctx context.Context) ([]string, error) {
	var out []string
	err := s.read(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out,
			"SELECT DISTINCT province FROM attractions WHERE province <> '' ORDER BY province")
	})
	if err != nil {
		return nil, fmt.Errorf("store: provinces: %w", err)
	}
	return out, nil
}

// Cities lists the distinct non-empty cities of a province; an empty
// province lists all cities.
func (s *Store) Cities(ctx context.Context, province string) ([]string, error) {
	query := "SELECT DISTINCT city FROM attractions WHERE city <> ''"
	var args []interface{}
	if province != "" {
		query += " AND province = ?"
		args = append(args, province)
	}
	query += " ORDER BY city"

	var out []string
	err := s.read(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, tx.Rebind(query), args...)
	})
	if err != nil {
		return nil, fmt.Errorf("store: cities: %w", err)
	}
	return out, nil
}

// read runs fn in its own transaction, always released on return.
func (s *Store) read(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
