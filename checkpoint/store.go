// Package checkpoint persists dqmc.Snapshot values as one YAML file per
// walker. Files are replaced atomically (temporary file + rename), so a
// crash leaves either the previous or the new checkpoint, never a torn one.
package checkpoint

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/katalvlaran/dqmc/dqmc"
	"github.com/katalvlaran/dqmc/simctx"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FormatVersion is written into every envelope.
const FormatVersion = 1

var (
	// ErrNoCheckpoint indicates that no checkpoint exists for a walker.
	ErrNoCheckpoint = errors.New("checkpoint: not found")
	// ErrCorrupt indicates an unreadable or inconsistent checkpoint file.
	ErrCorrupt = errors.New("checkpoint: corrupt file")
)

// envelope is the on-disk document.
type envelope struct {
	Version int       `yaml:"version"`
	ID      string    `yaml:"id"`
	RunID   string    `yaml:"run_id"`
	Walker  int       `yaml:"walker"`
	Saved   time.Time `yaml:"saved"`
	Bin     int       `yaml:"bin"`
	Sweep   int       `yaml:"sweep"`
	RNG     string    `yaml:"rng"`
	Field   [][]int8  `yaml:"field,flow"`
}

// Store reads and writes checkpoints below one directory.
type Store struct {
	dir   string
	runID string
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewStore creates dir if needed.
func NewStore(ctx *simctx.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}

	return &Store{
		dir:   dir,
		runID: ctx.RunID,
		log:   ctx.Logger.WithField("component", "checkpoint"),
		now:   time.Now,
	}, nil
}

// Path returns the file of walker.
func (s *Store) Path(walker int) string {
	return filepath.Join(s.dir, fmt.Sprintf("walker-%03d.yaml", walker))
}

// Save atomically replaces the checkpoint of walker.
func (s *Store) Save(walker int, snap dqmc.Snapshot) error {
	env := envelope{
		Version: FormatVersion,
		ID:      uuid.NewString(),
		RunID:   s.runID,
		Walker:  walker,
		Saved:   s.now().UTC(),
		Bin:     snap.Bin,
		Sweep:   snap.Sweep,
		RNG:     base64.StdEncoding.EncodeToString(snap.RNG),
		Field:   snap.Field,
	}
	data, err := yaml.Marshal(&env)
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".walker-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("checkpoint: write: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.Path(walker)); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	s.log.WithFields(logrus.Fields{"walker": walker, "bin": snap.Bin, "sweep": snap.Sweep, "id": env.ID}).Debug("checkpoint saved")

	return nil
}

// Load returns the snapshot of walker.
// Errors: ErrNoCheckpoint, ErrCorrupt.
func (s *Store) Load(walker int) (dqmc.Snapshot, error) {
	data, err := os.ReadFile(s.Path(walker))
	if errors.Is(err, fs.ErrNotExist) {
		return dqmc.Snapshot{}, fmt.Errorf("walker %d: %w", walker, ErrNoCheckpoint)
	}
	if err != nil {
		return dqmc.Snapshot{}, fmt.Errorf("checkpoint: %w", err)
	}

	var env envelope
	if err = yaml.Unmarshal(data, &env); err != nil {
		return dqmc.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	switch {
	case env.Version != FormatVersion:
		return dqmc.Snapshot{}, fmt.Errorf("%w: version %d", ErrCorrupt, env.Version)
	case env.Walker != walker:
		return dqmc.Snapshot{}, fmt.Errorf("%w: file holds walker %d", ErrCorrupt, env.Walker)
	}
	rng, err := base64.StdEncoding.DecodeString(env.RNG)
	if err != nil {
		return dqmc.Snapshot{}, fmt.Errorf("%w: rng: %v", ErrCorrupt, err)
	}
	if env.RunID != s.runID {
		s.log.WithFields(logrus.Fields{"walker": walker, "from_run": env.RunID}).Info("resuming checkpoint of another run")
	}

	return dqmc.Snapshot{Field: env.Field, RNG: rng, Bin: env.Bin, Sweep: env.Sweep}, nil
}
