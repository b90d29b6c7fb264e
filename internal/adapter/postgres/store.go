// Package postgres persists listings and serves filtered queries.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/flatscout/flatscout/internal/domain"
	"github.com/flatscout/flatscout/internal/filter"
	"github.com/flatscout/flatscout/internal/observability"
)

const (
	pingAttempts = 10
	pingDelay    = 2 * time.Second
	batchSize    = 50
)

// listingColumns is the column order used by every INSERT and SELECT.
// Filterable columns carry the same names as the listing schema fields, so
// a compiled predicate translates directly into a WHERE clause.
var listingColumns = []string{
	"listing_id", "url", "title", "city", "district", "address",
	"room_type", "contact_name",
	"size", "rent", "flatmates", "rooms_free",
	"available_from", "available_until", "online_since", "scraped_at",
	"lat", "lon",
}

// Store is a PostgreSQL-backed listing repository.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Open connects to PostgreSQL, waits for it to accept connections, and runs
// migrations.
func Open(dsn string, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < pingAttempts; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(pingDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := NewStore(db, logger, metrics)
	if err := s.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

// NewStore wraps an existing connection. The caller is responsible for
// migrations.
func NewStore(db *sql.DB, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{db: db, logger: logger, metrics: metrics}
}

// Migrate creates the listings table and its indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			listing_id      TEXT PRIMARY KEY,
			url             TEXT NOT NULL DEFAULT '',
			title           TEXT NOT NULL DEFAULT '',
			city            TEXT NOT NULL DEFAULT '',
			district        TEXT NOT NULL DEFAULT '',
			address         TEXT NOT NULL DEFAULT '',
			room_type       TEXT NOT NULL DEFAULT '',
			contact_name    TEXT NOT NULL DEFAULT '',
			size            DOUBLE PRECISION,
			rent            DOUBLE PRECISION,
			flatmates       DOUBLE PRECISION,
			rooms_free      DOUBLE PRECISION,
			available_from  TIMESTAMPTZ,
			available_until TIMESTAMPTZ,
			online_since    TIMESTAMPTZ,
			scraped_at      TIMESTAMPTZ,
			lat             DOUBLE PRECISION,
			lon             DOUBLE PRECISION
		);

		CREATE INDEX IF NOT EXISTS idx_listings_city ON listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_rent ON listings(rent);
		CREATE INDEX IF NOT EXISTS idx_listings_size ON listings(size);
	`)
	return err
}

// UpsertListings batch-inserts listings, skipping IDs that already exist.
// It returns the number of newly inserted rows.
func (s *Store) UpsertListings(ctx context.Context, listings []domain.Listing) (int, error) {
	inserted := 0
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		n, err := s.insertBatch(ctx, listings[i:end])
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	s.metrics.ListingsImported.Add(float64(inserted))
	return inserted, nil
}

func (s *Store) insertBatch(ctx context.Context, batch []domain.Listing) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	cols := len(listingColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)

	for idx, l := range batch {
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", idx*cols+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		var lat, lon *float64
		if l.Location != nil {
			lat, lon = &l.Location.Lat, &l.Location.Lon
		}
		valueArgs = append(valueArgs,
			l.ListingID, l.URL, l.Title, l.City, l.District, l.Address,
			l.RoomType, l.ContactName,
			l.Size, l.Rent, l.Flatmates, l.RoomsFree,
			l.AvailableFrom, l.AvailableUntil, l.OnlineSince, l.ScrapedAt,
			lat, lon,
		)
	}

	query := fmt.Sprintf(`INSERT INTO listings (%s) VALUES %s ON CONFLICT (listing_id) DO NOTHING`,
		strings.Join(listingColumns, ", "), strings.Join(valueStrings, ","))

	res, err := s.db.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: rows affected: %w", err)
	}
	return int(n), nil
}

// Query returns listings matching the compiled predicate, optionally sorted
// and limited. Rows with a NULL sort column always sort last. limit <= 0
// means no limit.
func (s *Store) Query(ctx context.Context, pred *filter.CompiledPredicate, sortSpec *domain.SortSpec, limit int) ([]domain.Listing, error) {
	where, args := pred.SQL(1)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(listingColumns, ", "))
	sb.WriteString(" FROM listings WHERE ")
	sb.WriteString(where)

	if sortSpec != nil {
		// Sort fields come from the listing schema, never from raw input.
		dir := "ASC"
		if sortSpec.Desc {
			dir = "DESC"
		}
		col := sortSpec.Field
		// Text columns store absent values as '', which must sort last
		// like NULL does for numeric and date columns.
		if domain.ListingSchema()[sortSpec.Field] == domain.KindText {
			col = fmt.Sprintf("NULLIF(%s, '')", col)
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s NULLS LAST, listing_id ASC", col, dir)
	} else {
		sb.WriteString(" ORDER BY listing_id ASC")
	}

	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func scanListing(rows *sql.Rows) (domain.Listing, error) {
	var (
		l        domain.Listing
		size     sql.NullFloat64
		rent     sql.NullFloat64
		mates    sql.NullFloat64
		free     sql.NullFloat64
		from     sql.NullTime
		until    sql.NullTime
		online   sql.NullTime
		scraped  sql.NullTime
		lat, lon sql.NullFloat64
	)
	err := rows.Scan(
		&l.ListingID, &l.URL, &l.Title, &l.City, &l.District, &l.Address,
		&l.RoomType, &l.ContactName,
		&size, &rent, &mates, &free,
		&from, &until, &online, &scraped,
		&lat, &lon,
	)
	if err != nil {
		return domain.Listing{}, err
	}

	l.Size = nullFloat(size)
	l.Rent = nullFloat(rent)
	l.Flatmates = nullFloat(mates)
	l.RoomsFree = nullFloat(free)
	l.AvailableFrom = nullTime(from)
	l.AvailableUntil = nullTime(until)
	l.OnlineSince = nullTime(online)
	if scraped.Valid {
		l.ScrapedAt = scraped.Time
	}
	if lat.Valid && lon.Valid {
		l.Location = &domain.Coordinate{Lat: lat.Float64, Lon: lon.Float64}
	}
	return l, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// CityCount is one entry of the per-city breakdown.
type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// Stats summarizes the stored listings.
type Stats struct {
	TotalListings int         `json:"total_listings"`
	Cities        int         `json:"cities"`
	AvgRent       *float64    `json:"avg_rent,omitempty"`
	AvgSize       *float64    `json:"avg_size,omitempty"`
	TopCities     []CityCount `json:"top_cities"`
}

// Stats computes aggregate statistics over all stored listings.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		stats   Stats
		avgRent sql.NullFloat64
		avgSize sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT city), AVG(rent), AVG(size) FROM listings
	`).Scan(&stats.TotalListings, &stats.Cities, &avgRent, &avgSize)
	if err != nil {
		return Stats{}, fmt.Errorf("postgres: stats: %w", err)
	}
	stats.AvgRent = nullFloat(avgRent)
	stats.AvgSize = nullFloat(avgSize)

	rows, err := s.db.QueryContext(ctx, `
		SELECT city, COUNT(*) AS n FROM listings
		GROUP BY city ORDER BY n DESC, city ASC LIMIT 10
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("postgres: top cities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cc CityCount
		if err := rows.Scan(&cc.City, &cc.Count); err != nil {
			return Stats{}, fmt.Errorf("postgres: scan city count: %w", err)
		}
		stats.TopCities = append(stats.TopCities, cc)
	}
	return stats, rows.Err()
}

// CheckReadiness reports whether the database accepts connections. The
// admin server's /readyz probe calls it.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
