package sys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrFavoriteExists is returned when a user saves the same URL twice.
var ErrFavoriteExists = errors.New("favorite already saved")

var DB *sql.DB

// FavoriteRow is one saved song of a user.
type FavoriteRow struct {
	URL       string
	Title     string
	Duration  time.Duration
	Streaming bool
	AddedAt   time.Time
}

// QueueBackupRow is the raw persisted queue of one guild.
type QueueBackupRow struct {
	GuildID   string
	Payload   []byte
	UpdatedAt time.Time
}

var (
	connPragmas = []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	schema = []string{
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS queue_backups (
			guild_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			duration INTEGER DEFAULT 0,
			streaming INTEGER DEFAULT 0,
			added_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_favorites_user_url ON favorites(user_id, url)`,
	}

	// Column additions for databases created before the column existed.
	// Re-running one fails with "duplicate column", which is ignored.
	columnMigrations = []string{
		"ALTER TABLE favorites ADD COLUMN streaming INTEGER DEFAULT 0",
	}
)

// InitDatabase opens the SQLite file at dsn and brings its schema up to date.
func InitDatabase(ctx context.Context, dsn string) error {
	_ = sqlite3.SQLiteDriver{}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(5)

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := prepareSchema(setupCtx, db); err != nil {
		_ = db.Close()
		return err
	}

	DB = db
	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func prepareSchema(ctx context.Context, db *sql.DB) error {
	for _, p := range connPragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, m := range columnMigrations {
		_, err := db.ExecContext(ctx, m)
		if err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf(MsgDBMigrationFail, err)
		}
	}
	return nil
}

// CloseDatabase closes the database connection
func CloseDatabase() {
	if DB != nil {
		_ = DB.Close()
		DB = nil
	}
}

func requireDB() error {
	if DB == nil {
		return errors.New(ErrDatabaseNotInitialized)
	}
	return nil
}

// --- Bot Config ---

func GetBotConfig(ctx context.Context, key string) (string, error) {
	if err := requireDB(); err != nil {
		return "", err
	}
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	if err := requireDB(); err != nil {
		return err
	}
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Queue Backups ---

func SaveQueueBackup(ctx context.Context, guildID string, payload []byte) error {
	if err := requireDB(); err != nil {
		return err
	}
	_, err := DB.ExecContext(ctx, `
		INSERT INTO queue_backups (guild_id, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(guild_id) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP
	`, guildID, string(payload))
	return err
}

func LoadQueueBackup(ctx context.Context, guildID string) (QueueBackupRow, bool, error) {
	if err := requireDB(); err != nil {
		return QueueBackupRow{}, false, err
	}
	row := QueueBackupRow{GuildID: guildID}
	var payload string
	err := DB.QueryRowContext(ctx, "SELECT payload, updated_at FROM queue_backups WHERE guild_id = ?", guildID).Scan(&payload, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return row, false, nil
	}
	if err != nil {
		return row, false, err
	}
	row.Payload = []byte(payload)
	return row, true, nil
}

func ListQueueBackups(ctx context.Context) ([]QueueBackupRow, error) {
	if err := requireDB(); err != nil {
		return nil, err
	}
	rows, err := DB.QueryContext(ctx, "SELECT guild_id, payload, updated_at FROM queue_backups ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueueBackupRow
	for rows.Next() {
		var r QueueBackupRow
		var payload string
		if err := rows.Scan(&r.GuildID, &payload, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Payload = []byte(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

func DeleteQueueBackup(ctx context.Context, guildID string) error {
	if err := requireDB(); err != nil {
		return err
	}
	_, err := DB.ExecContext(ctx, "DELETE FROM queue_backups WHERE guild_id = ?", guildID)
	return err
}

// --- Favorites ---

func AddFavorite(ctx context.Context, userID string, f FavoriteRow) error {
	if err := requireDB(); err != nil {
		return err
	}
	if f.AddedAt.IsZero() {
		f.AddedAt = time.Now()
	}
	_, err := DB.ExecContext(ctx, `
		INSERT INTO favorites (user_id, url, title, duration, streaming, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, f.URL, f.Title, int64(f.Duration/time.Second), f.Streaming, f.AddedAt.UTC())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrFavoriteExists
	}
	return err
}

// ListFavorites returns a user's favorites in the order they were saved.
func ListFavorites(ctx context.Context, userID string) ([]FavoriteRow, error) {
	if err := requireDB(); err != nil {
		return nil, err
	}
	rows, err := DB.QueryContext(ctx, "SELECT url, title, duration, streaming, added_at FROM favorites WHERE user_id = ? ORDER BY id ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FavoriteRow
	for rows.Next() {
		var f FavoriteRow
		var secs int64
		if err := rows.Scan(&f.URL, &f.Title, &secs, &f.Streaming, &f.AddedAt); err != nil {
			return nil, err
		}
		f.Duration = time.Duration(secs) * time.Second
		out = append(out, f)
	}
	return out, rows.Err()
}

// RemoveFavorite deletes the favorite at the 1-indexed position pos.
func RemoveFavorite(ctx context.Context, userID string, pos int) (FavoriteRow, error) {
	favs, err := ListFavorites(ctx, userID)
	if err != nil {
		return FavoriteRow{}, err
	}
	if pos < 1 || pos > len(favs) {
		return FavoriteRow{}, fmt.Errorf("favorite %d out of range 1-%d", pos, len(favs))
	}
	target := favs[pos-1]
	_, err = DB.ExecContext(ctx, "DELETE FROM favorites WHERE user_id = ? AND url = ?", userID, target.URL)
	return target, err
}

func ClearFavorites(ctx context.Context, userID string) (int64, error) {
	if err := requireDB(); err != nil {
		return 0, err
	}
	res, err := DB.ExecContext(ctx, "DELETE FROM favorites WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FavoriteUsers lists every user that has at least one favorite.
func FavoriteUsers(ctx context.Context) ([]string, error) {
	if err := requireDB(); err != nil {
		return nil, err
	}
	rows, err := DB.QueryContext(ctx, "SELECT DISTINCT user_id FROM favorites ORDER BY user_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
