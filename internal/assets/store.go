package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"alchemy/internal/config"
)

// Kind distinguishes stored asset types.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Asset is one generated artifact persisted to disk with a database row
// pointing at it.
type Asset struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Prompt    string    `json:"prompt,omitempty"`
	MimeType  string    `json:"mimeType,omitempty"`
	FilePath  string    `json:"filePath"`
	SourceURI string    `json:"sourceUri,omitempty"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store manages asset persistence backed by SQLite, with the raw bytes
// written under the configured media directory.
type Store struct {
	db       *sql.DB
	path     string
	mediaDir string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the asset database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.MediaDir, "assets.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, mediaDir: cfg.Paths.MediaDir}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveImage writes image bytes to the media directory and records the
// asset. Returns the stored asset with its generated id.
func (s *Store) SaveImage(ctx context.Context, session, title, prompt string, data []byte, mimeType string) (*Asset, error) {
	return s.save(ctx, KindImage, session, title, prompt, data, mimeType, "")
}

// SaveVideo writes video bytes to the media directory and records the
// asset alongside the vendor delivery URI it was downloaded from.
func (s *Store) SaveVideo(ctx context.Context, session, title, prompt string, data []byte, sourceURI string) (*Asset, error) {
	return s.save(ctx, KindVideo, session, title, prompt, data, "video/mp4", sourceURI)
}

func (s *Store) save(ctx context.Context, kind Kind, session, title, prompt string, data []byte, mimeType, sourceURI string) (*Asset, error) {
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, errors.New("assets: session required")
	}
	if len(data) == 0 {
		return nil, errors.New("assets: empty payload")
	}

	id := uuid.NewString()
	name := id + extensionFor(kind, mimeType)
	filePath := filepath.Join(s.mediaDir, string(kind)+"s", name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("assets: create media dir: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("assets: write payload: %w", err)
	}

	createdAt := time.Now().UTC()
	err := s.execWithRetry(ctx,
		`INSERT INTO assets (id, session, kind, title, prompt, mime_type, file_path, source_uri, size_bytes, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, session, string(kind), title, prompt, mimeType, filePath, sourceURI,
		int64(len(data)), createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		_ = os.Remove(filePath)
		return nil, fmt.Errorf("assets: insert row: %w", err)
	}

	return &Asset{
		ID:        id,
		Session:   session,
		Kind:      kind,
		Title:     title,
		Prompt:    prompt,
		MimeType:  mimeType,
		FilePath:  filePath,
		SourceURI: sourceURI,
		SizeBytes: int64(len(data)),
		CreatedAt: createdAt,
	}, nil
}

// List returns assets newest first. An empty session returns all
// sessions.
func (s *Store) List(ctx context.Context, session string) ([]*Asset, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, session, kind, title, prompt, mime_type, file_path, source_uri, size_bytes, created_at
              FROM assets`
	args := []any{}
	if session = strings.TrimSpace(session); session != "" {
		query += " WHERE session = ?"
		args = append(args, session)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("assets: query: %w", err)
	}
	defer rows.Close()

	var results []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assets: iterate rows: %w", err)
	}
	return results, nil
}

// GetByID fetches a single asset.
func (s *Store) GetByID(ctx context.Context, id string) (*Asset, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session, kind, title, prompt, mime_type, file_path, source_uri, size_bytes, created_at
         FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return asset, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*Asset, error) {
	var (
		asset     Asset
		kind      string
		createdAt string
	)
	err := row.Scan(&asset.ID, &asset.Session, &kind, &asset.Title, &asset.Prompt,
		&asset.MimeType, &asset.FilePath, &asset.SourceURI, &asset.SizeBytes, &createdAt)
	if err != nil {
		return nil, err
	}
	asset.Kind = Kind(kind)
	if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		asset.CreatedAt = parsed
	}
	return &asset, nil
}

func extensionFor(kind Kind, mimeType string) string {
	switch {
	case kind == KindVideo:
		return ".mp4"
	case strings.Contains(mimeType, "jpeg"):
		return ".jpg"
	case strings.Contains(mimeType, "webp"):
		return ".webp"
	default:
		return ".png"
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
