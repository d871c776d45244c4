package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout фиксированной ширины, чтобы строки сортировались как время
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// EpisodeSummary одна строка индекса эпизодов
type EpisodeSummary struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Steps       int       `json:"steps"`
	TotalReward float64   `json:"total_reward"`
	Outcome     string    `json:"outcome"`
	Path        string    `json:"path"`
}

// EpisodeIndex индекс записанных эпизодов в SQLite
type EpisodeIndex struct {
	db *sql.DB
}

// OpenEpisodeIndex открывает или создает базу индекса
func OpenEpisodeIndex(path string) (*EpisodeIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("пустой путь к индексу")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			steps INTEGER NOT NULL,
			total_reward REAL NOT NULL,
			outcome TEXT NOT NULL,
			path TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_outcome ON episodes(outcome);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("инициализация индекса: %w", err)
		}
	}
	return &EpisodeIndex{db: db}, nil
}

// Record сохраняет итог эпизода
func (i *EpisodeIndex) Record(ctx context.Context, ep EpisodeSummary) error {
	_, err := i.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO episodes(id, started_at, ended_at, steps, total_reward, outcome, path)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		ep.ID,
		ep.StartedAt.UTC().Format(timeLayout),
		ep.EndedAt.UTC().Format(timeLayout),
		ep.Steps,
		ep.TotalReward,
		ep.Outcome,
		ep.Path,
	)
	if err != nil {
		return fmt.Errorf("запись эпизода %s: %w", ep.ID, err)
	}
	return nil
}

// Recent возвращает последние limit эпизодов, новые первыми
func (i *EpisodeIndex) Recent(ctx context.Context, limit int) ([]EpisodeSummary, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at, steps, total_reward, outcome, path
		 FROM episodes ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EpisodeSummary
	for rows.Next() {
		var (
			ep             EpisodeSummary
			started, ended string
		)
		if err := rows.Scan(&ep.ID, &started, &ended, &ep.Steps, &ep.TotalReward, &ep.Outcome, &ep.Path); err != nil {
			return nil, err
		}
		if ep.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, err
		}
		if ep.EndedAt, err = time.Parse(timeLayout, ended); err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// CountByOutcome количество эпизодов по каждому исходу
func (i *EpisodeIndex) CountByOutcome(ctx context.Context) (map[string]int, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM episodes GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n
	}
	return out, rows.Err()
}

// Close закрывает базу
func (i *EpisodeIndex) Close() error {
	return i.db.Close()
}
