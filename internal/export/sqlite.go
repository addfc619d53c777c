package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"firestige.xyz/peeracct/internal/peerstats"
)

const schema = `
CREATE TABLE IF NOT EXISTS traffic (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hostname TEXT NOT NULL,
	ip TEXT NOT NULL,
	dns TEXT,
	a_up INTEGER DEFAULT 0,
	a_down INTEGER DEFAULT 0,
	b_up INTEGER DEFAULT 0,
	b_down INTEGER DEFAULT 0,
	c_up INTEGER DEFAULT 0,
	c_down INTEGER DEFAULT 0,
	timestamp INTEGER NOT NULL -- Unix seconds
);
CREATE INDEX IF NOT EXISTS idx_traffic_timestamp ON traffic(timestamp);
`

// SQLiteSink appends export records to a local traffic history table.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens or creates the history database at path.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Name implements Sink.
func (s *SQLiteSink) Name() string { return "sqlite" }

// Write inserts records in a single transaction.
func (s *SQLiteSink) Write(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO traffic (hostname, ip, dns, a_up, a_down, b_up, b_down, c_up, c_down, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Hostname, r.Peer.String(), r.Name,
			int64(r.AUp), int64(r.ADown),
			int64(r.BUp), int64(r.BDown),
			int64(r.CUp), int64(r.CDown),
			r.Timestamp.Unix(),
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Total is one peer's aggregated traffic over a day.
type Total struct {
	IP  string `json:"ip" yaml:"ip"`
	DNS string `json:"dns" yaml:"dns"`
	peerstats.Counters `yaml:",inline"`
}

// DailyTotals sums rows per IP for the UTC day containing day.
func (s *SQLiteSink) DailyTotals(ctx context.Context, day time.Time) ([]Total, error) {
	from := day.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT ip, COALESCE(MAX(dns), ''),
		       SUM(a_up), SUM(a_down),
		       SUM(b_up), SUM(b_down),
		       SUM(c_up), SUM(c_down)
		FROM traffic
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY ip
		ORDER BY ip`, from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Total
	for rows.Next() {
		var t Total
		var aUp, aDown, bUp, bDown, cUp, cDown int64
		if err := rows.Scan(&t.IP, &t.DNS, &aUp, &aDown, &bUp, &bDown, &cUp, &cDown); err != nil {
			return nil, err
		}
		t.Counters = peerstats.Counters{
			AUp: uint64(aUp), ADown: uint64(aDown),
			BUp: uint64(bUp), BDown: uint64(bDown),
			CUp: uint64(cUp), CDown: uint64(cDown),
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
