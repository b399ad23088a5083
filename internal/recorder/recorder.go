// Package recorder stores lidar scans in SQLite so training episodes can be
// replayed, rendered and queried after the fact.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/racecar-sim/internal/lidar"
	"github.com/banshee-data/racecar-sim/internal/monitoring"
)

// ErrNotFound is returned when an episode or scan does not exist.
var ErrNotFound = errors.New("not found")

// Recorder is a SQLite-backed scan store.
type Recorder struct {
	db   *sql.DB
	path string
}

// Episode is one recorded run of a sensor.
type Episode struct {
	ID         uuid.UUID `json:"id"`
	Profile    string    `json:"profile"`
	NumSamples int       `json:"num_samples"`
	Realism    bool      `json:"realism"`
	Seed       int64     `json:"seed"`
	StartedAt  time.Time `json:"started_at"`
	Scans      int       `json:"scans"`
}

// Scan is one complete rotation.
type Scan struct {
	Episode  uuid.UUID `json:"episode"`
	Sequence uint64    `json:"sequence"`
	SimTime  float64   `json:"sim_time"`
	Samples  []float64 `json:"samples"`
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection serialises writers and keeps :memory: databases
	// shared across queries.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	r := &Recorder{db: db, path: path}
	if err := r.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Logf("[recorder] recording scans to %s", path)
	return r, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// DB exposes the underlying handle for admin tooling.
func (r *Recorder) DB() *sql.DB { return r.db }

// StartEpisode registers a new episode for the given sensor configuration.
func (r *Recorder) StartEpisode(ctx context.Context, p lidar.SensorProfile, realism bool, seed int64) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO episodes (episode_id, profile, num_samples, realism, seed, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), p.Name, p.NumSamples, realism, seed, time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("start episode: %w", err)
	}
	monitoring.Logf("[recorder] episode %s started (profile=%s realism=%v)", id, p.Name, realism)
	return id, nil
}

// RecordScan stores one rotation. Samples are stored as a JSON array so the
// admin SQL console can read them with json_each.
func (r *Recorder) RecordScan(ctx context.Context, episode uuid.UUID, seq uint64, simTime float64, samples []float64) error {
	data, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("encode scan: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO scans (episode_id, sequence, sim_time, samples) VALUES (?, ?, ?, ?)`,
		episode.String(), int64(seq), simTime, string(data),
	)
	if err != nil {
		return fmt.Errorf("record scan %d of %s: %w", seq, episode, err)
	}
	return nil
}

// Episodes lists every episode, newest first, with its scan count.
func (r *Recorder) Episodes(ctx context.Context) ([]Episode, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.episode_id, e.profile, e.num_samples, e.realism, e.seed, e.started_at, COUNT(s.sequence)
		FROM episodes e LEFT JOIN scans s ON s.episode_id = e.episode_id
		GROUP BY e.episode_id
		ORDER BY e.started_at DESC, e.episode_id`)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var (
			e  Episode
			id string
		)
		if err := rows.Scan(&id, &e.Profile, &e.NumSamples, &e.Realism, &e.Seed, &e.StartedAt, &e.Scans); err != nil {
			return nil, fmt.Errorf("scan episode row: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("episode id %q: %w", id, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Scans returns every scan of an episode in sequence order.
func (r *Recorder) Scans(ctx context.Context, episode uuid.UUID) ([]Scan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sequence, sim_time, samples FROM scans WHERE episode_id = ? ORDER BY sequence`,
		episode.String())
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var out []Scan
	for rows.Next() {
		s, err := scanRow(rows, episode)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestScan returns the highest-sequence scan of an episode.
func (r *Recorder) LatestScan(ctx context.Context, episode uuid.UUID) (Scan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT sequence, sim_time, samples FROM scans WHERE episode_id = ? ORDER BY sequence DESC LIMIT 1`,
		episode.String())
	s, err := scanRow(row, episode)
	if errors.Is(err, sql.ErrNoRows) {
		return Scan{}, fmt.Errorf("latest scan of %s: %w", episode, ErrNotFound)
	}
	return s, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(row rowScanner, episode uuid.UUID) (Scan, error) {
	var (
		s    = Scan{Episode: episode}
		seq  int64
		data string
	)
	if err := row.Scan(&seq, &s.SimTime, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scan{}, err
		}
		return Scan{}, fmt.Errorf("scan row: %w", err)
	}
	s.Sequence = uint64(seq)
	if err := json.Unmarshal([]byte(data), &s.Samples); err != nil {
		return Scan{}, fmt.Errorf("decode scan %d: %w", seq, err)
	}
	return s, nil
}

// AttachAdminRoutes mounts the tsweb debug index on mux with a live SQL
// console over the recorder database.
func (r *Recorder) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+r.path, r.db, &tailsql.DBOptions{
		Label: "Scan recorder",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	return nil
}
