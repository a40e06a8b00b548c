// Package history keeps a local SQLite log of inspect, validate and compile
// runs so earlier results can be compared against rebuilt maps.
package history

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

// Kind is the operation a run recorded.
type Kind string

const (
	KindInspect  Kind = "inspect"
	KindValidate Kind = "validate"
	KindCompile  Kind = "compile"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	path       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	ok         INTEGER NOT NULL,
	digest     TEXT NOT NULL,
	detail     BLOB,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created ON runs (created_at);
`

// Run is one recorded operation. Detail holds the JSON the caller recorded,
// usually a summary or validation report.
type Run struct {
	ID        uuid.UUID       `json:"id"`
	Kind      Kind            `json:"kind"`
	Path      string          `json:"path"`
	Size      int64           `json:"size"`
	OK        bool            `json:"ok"`
	Digest    string          `json:"digest,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Entry describes a run to record.
type Entry struct {
	Kind Kind
	// Path is what the user asked about, e.g. "maps.pk3:maps/beach.bsp".
	Path string
	// File is hashed for the digest and size. Empty or missing files record
	// no digest.
	File   string
	OK     bool
	Detail any
}

// Store is a history database. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log zerolog.Logger
	now func() time.Time
}

// Open opens or creates the history database at path.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure history: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	log.Debug().Str("path", path).Msg("history opened")
	return &Store{db: db, enc: enc, dec: dec, log: log, now: time.Now}, nil
}

// Close releases the database and codecs.
func (s *Store) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.db.Close()
		return fmt.Errorf("close encoder: %w", err)
	}
	return s.db.Close()
}

// Record stores e and returns the run as written.
func (s *Store) Record(ctx context.Context, e Entry) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		Kind:      e.Kind,
		Path:      e.Path,
		OK:        e.OK,
		CreatedAt: s.now().UTC(),
	}

	if e.File != "" {
		digest, size, err := Digest(e.File)
		switch {
		case err == nil:
			run.Digest, run.Size = digest, size
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	var blob []byte
	if e.Detail != nil {
		detail, err := json.Marshal(e.Detail)
		if err != nil {
			return nil, fmt.Errorf("marshal run detail: %w", err)
		}
		run.Detail = detail
		blob = s.enc.EncodeAll(detail, nil)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, path, size, ok, digest, detail, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), string(run.Kind), run.Path, run.Size, run.OK, run.Digest, blob, run.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	s.log.Debug().Str("id", run.ID.String()).Str("kind", string(run.Kind)).Str("path", run.Path).Bool("ok", run.OK).Msg("run recorded")
	return run, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, path, size, ok, digest, detail, created_at FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	return runs, nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, path, size, ok, digest, detail, created_at FROM runs WHERE id = ?`, id.String())
	run, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scan(row scanner) (*Run, error) {
	var (
		run     Run
		id      string
		kind    string
		blob    []byte
		created int64
	)
	if err := row.Scan(&id, &kind, &run.Path, &run.Size, &run.OK, &run.Digest, &blob, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("run id %q: %w", id, err)
	}
	run.ID = parsed
	run.Kind = Kind(kind)
	run.CreatedAt = time.Unix(0, created).UTC()

	if len(blob) > 0 {
		detail, err := s.dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress run %s detail: %w", id, err)
		}
		run.Detail = detail
	}
	return &run, nil
}

// Digest returns the hex BLAKE2b-256 of the file at path and its size.
func Digest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
