// Package repofile persists the session snapshot as a JSON file on disk.
package repofile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/budget-dashboard/sessions"
	"github.com/rs/zerolog/log"
)

var _ sessions.Repo = (*FileRepo)(nil)

type FileRepo struct {
	path string
	lock sync.Mutex
}

func New(path string) *FileRepo {
	return &FileRepo{path: path}
}

func (r *FileRepo) Save(_ context.Context, session sessions.Session) error {
	data, err := sessions.MarshalSnapshot(session)
	if err != nil {
		return fmt.Errorf("FileRepo.Save marshal: %w", err)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("FileRepo.Save mkdir: %w", err)
	}

	// Write-then-rename so a crash never leaves a half written snapshot.
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".session-*")
	if err != nil {
		return fmt.Errorf("FileRepo.Save temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("FileRepo.Save write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("FileRepo.Save close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("FileRepo.Save chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("FileRepo.Save rename: %w", err)
	}
	return nil
}

func (r *FileRepo) Load(_ context.Context) (*sessions.Session, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FileRepo.Load: %w", err)
	}

	s, err := sessions.UnmarshalSnapshot(data)
	if err != nil {
		log.Warn().Err(err).Str("path", r.path).Msg("discarding corrupt session file")
		if rmErr := os.Remove(r.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("FileRepo.Load remove corrupt: %w", rmErr)
		}
		return nil, nil
	}
	return s, nil
}

func (r *FileRepo) Clear(_ context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("FileRepo.Clear: %w", err)
	}
	return nil
}
