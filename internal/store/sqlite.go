package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spacecouncil/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	version INTEGER NOT NULL,
	checksum TEXT NOT NULL,
	doc BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS room_players (
	room_id TEXT NOT NULL,
	player_id TEXT NOT NULL,
	PRIMARY KEY (room_id, player_id)
);
CREATE INDEX IF NOT EXISTS idx_room_players_player ON room_players(player_id);
`

// SQLite stores room documents as compressed blobs guarded by a version column
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (or creates) the database at path
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logger.Info("sqlite store ready", zap.String("path", path))
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Create(ctx context.Context, room *models.Room) error {
	blob, err := Encode(room)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rooms (id, name, status, version, checksum, doc, updated_at) VALUES (?, ?, ?, 1, ?, ?, ?)`,
		room.ID, room.Name, string(room.Status), Checksum(blob), blob, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: insert room %s: %v", models.ErrConflict, room.ID, err)
	}
	if err := syncPlayers(ctx, tx, room); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Load(ctx context.Context, id string) (*models.Room, int64, error) {
	var (
		version  int64
		checksum string
		blob     []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, checksum, doc FROM rooms WHERE id = ?`, id).Scan(&version, &checksum, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, models.ErrRoomNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load room %s: %w", id, err)
	}
	if Checksum(blob) != checksum {
		s.logger.Error("corrupt room document", zap.String("room", id), zap.Int64("version", version))
		return nil, 0, fmt.Errorf("room %s: %w", id, ErrChecksum)
	}
	room, err := Decode(blob)
	if err != nil {
		return nil, 0, err
	}
	return room, version, nil
}

func (s *SQLite) Save(ctx context.Context, room *models.Room, version int64) (int64, error) {
	blob, err := Encode(room)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE rooms SET name = ?, status = ?, version = version + 1, checksum = ?, doc = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		room.Name, string(room.Status), Checksum(blob), blob, time.Now().Unix(), room.ID, version)
	if err != nil {
		return 0, fmt.Errorf("save room %s: %w", room.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("save room %s: %w", room.ID, err)
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, room.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, models.ErrRoomNotFound
		}
		return 0, fmt.Errorf("%w: room %s moved past version %d", models.ErrConflict, room.ID, version)
	}
	if err := syncPlayers(ctx, tx, room); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit room %s: %w", room.ID, err)
	}
	return version + 1, nil
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) ListByPlayer(ctx context.Context, playerID string) ([]models.RoomSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.status,
			(SELECT COUNT(*) FROM room_players c WHERE c.room_id = r.id)
		FROM rooms r
		JOIN room_players p ON p.room_id = r.id
		WHERE p.player_id = ?
		ORDER BY r.id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list rooms for %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []models.RoomSummary
	for rows.Next() {
		var (
			sum    models.RoomSummary
			status string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &status, &sum.Players); err != nil {
			return nil, err
		}
		sum.Status = models.Status(status)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func syncPlayers(ctx context.Context, tx *sql.Tx, room *models.Room) error {
	for _, p := range room.Players {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO room_players (room_id, player_id) VALUES (?, ?)`, room.ID, p.ID); err != nil {
			return fmt.Errorf("index player %s: %w", p.ID, err)
		}
	}
	return nil
}
