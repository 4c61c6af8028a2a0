package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"portfolio-advisor/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// SessionRepository persists the latest portfolio document per (user,
// session) key as a flat file: one directory per user, one file per
// session. Writes go through a temp file and rename so readers never see a
// partial document, and are serialized per key.
type SessionRepository struct {
	root   string
	tracer trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionRepository(root string, tracer trace.Tracer) *SessionRepository {
	return &SessionRepository{
		root:   root,
		tracer: tracer,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Exists reports whether a document has been persisted for the key.
func (r *SessionRepository) Exists(ctx context.Context, userID, sessionID string) (bool, error) {
	_, span := r.tracer.Start(ctx, "session-repo.exists")
	defer span.End()

	path, err := r.sessionPath(userID, sessionID)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat session file: %w", err)
	}
	return true, nil
}

// Read returns the exact bytes last written for the key.
func (r *SessionRepository) Read(ctx context.Context, userID, sessionID string) (string, error) {
	_, span := r.tracer.Start(ctx, "session-repo.read")
	defer span.End()

	path, err := r.sessionPath(userID, sessionID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrSessionNotFound
		}
		return "", fmt.Errorf("read session file: %w", err)
	}
	return string(data), nil
}

// Write replaces the document for the key, creating the user directory on
// first use.
func (r *SessionRepository) Write(ctx context.Context, userID, sessionID, document string) error {
	_, span := r.tracer.Start(ctx, "session-repo.write")
	defer span.End()

	path, err := r.sessionPath(userID, sessionID)
	if err != nil {
		return err
	}

	lock := r.keyLock(userID + "/" + sessionID)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, sessionID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(document); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (r *SessionRepository) keyLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

func (r *SessionRepository) sessionPath(userID, sessionID string) (string, error) {
	if err := validateID(userID); err != nil {
		return "", fmt.Errorf("user id: %w", err)
	}
	if err := validateID(sessionID); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	return filepath.Join(r.root, userID, sessionID), nil
}

// validateID rejects identifiers that could escape the storage root.
func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("must not be empty")
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return fmt.Errorf("invalid identifier %q", id)
	}
	return nil
}
