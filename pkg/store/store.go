// Package store keeps generated output files so they can be downloaded,
// exported and plotted after the conversion request that produced them.
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// ErrNotFound is returned when a named object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a flat namespace of named blobs.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]ObjectInfo, error)
	// Delete removes name. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
}

type ObjectInfo struct {
	Name    string
	ModTime time.Time
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeName reduces a user supplied file name to a safe base name: no
// directories, spaces become underscores, and only [A-Za-z0-9._-] are kept.
// It returns "" if nothing usable is left.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	return name
}

var _ Store = &Local{}

// Local stores objects as files in a directory.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create output dir %s", dir)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) path(name string) (string, error) {
	safe := SanitizeName(name)
	if safe == "" || safe != name {
		return "", pkgerrors.Wrapf(ErrNotFound, "invalid object name %q", name)
	}
	return filepath.Join(l.dir, safe), nil
}

func (l *Local) Put(_ context.Context, name string, data []byte) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write %s", p)
	}
	return nil
}

func (l *Local) Get(_ context.Context, name string) ([]byte, error) {
	p, err := l.path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.Wrapf(ErrNotFound, "%s", name)
		}
		return nil, pkgerrors.Wrapf(err, "failed to read %s", p)
	}
	return b, nil
}

func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	p, err := l.path(name)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, pkgerrors.Wrapf(err, "failed to stat %s", p)
}

func (l *Local) List(_ context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list %s", l.dir)
	}

	var objs []ObjectInfo
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed since ReadDir.
			continue
		}
		objs = append(objs, ObjectInfo{Name: e.Name(), ModTime: info.ModTime()})
	}
	return objs, nil
}

func (l *Local) Delete(_ context.Context, name string) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove %s", p)
	}
	return nil
}
