// Package yamlfs stores actor records as one YAML file per actor and the
// pending effect collection as a single YAML document.
package yamlfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nathoo/brewcore/engine/save"
	"github.com/nathoo/brewcore/engine/store"
	"github.com/nathoo/brewcore/logging"
	"github.com/nathoo/brewcore/types"
)

// EffectsFile is the name of the pending effect document.
const EffectsFile = "active-effects.yml"

// Backend reads and writes files under a data directory:
//
//	<dir>/players/<uuid>.yml
//	<dir>/active-effects.yml
type Backend struct {
	dir string
	log logging.Logger
}

// Open creates the directory layout if needed.
func Open(dir string, log logging.Logger) (*Backend, error) {
	if err := os.MkdirAll(filepath.Join(dir, "players"), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &Backend{dir: dir, log: logging.OrNoOp(log)}, nil
}

func (b *Backend) recordPath(id uuid.UUID) string {
	return filepath.Join(b.dir, "players", id.String()+".yml")
}

// LoadRecord implements store.Backend.
func (b *Backend) LoadRecord(id uuid.UUID) (*types.ActorRecord, error) {
	data, err := os.ReadFile(b.recordPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", id, err)
	}
	r, err := save.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", id, err)
	}
	return r, nil
}

// SaveRecord implements store.Backend.
func (b *Backend) SaveRecord(r *types.ActorRecord) error {
	data, err := save.EncodeYAML(r)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", r.ID, err)
	}
	return writeAtomic(b.recordPath(r.ID), data)
}

// LoadEffects implements effects.Backend. A missing file is an empty
// collection; unreadable entries are skipped with a warning.
func (b *Backend) LoadEffects() (map[uuid.UUID][]types.PendingEffect, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, EffectsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[uuid.UUID][]types.PendingEffect{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", EffectsFile, err)
	}
	effects, bad, err := save.DecodeEffectsYAML(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", EffectsFile, err)
	}
	for _, e := range bad {
		b.log.Warnf("skipping pending effect: %v", e)
	}
	return effects, nil
}

// SaveEffects implements effects.Backend.
func (b *Backend) SaveEffects(effects map[uuid.UUID][]types.PendingEffect) error {
	data, err := save.EncodeEffectsYAML(effects)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", EffectsFile, err)
	}
	return writeAtomic(filepath.Join(b.dir, EffectsFile), data)
}

// writeAtomic writes to a temp file in the same directory and renames it
// over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
