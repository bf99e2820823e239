// Package checkpoint persists model parameters after every epoch in a bbolt
// database so a run can be inspected or resumed.
//
// Layout: one top-level bucket per run (the run's UUID as name), one key per
// epoch (zero-padded decimal, so keys sort by epoch), and a JSON envelope as
// value. The envelope carries a semver format string; a checkpoint written by
// a different major format is rejected on load.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// Format is the envelope format written by this package.
const Format = "v1.0.0"

var (
	// ErrNotFound is returned when a run or epoch has no checkpoint.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrFormat is returned for an envelope with an incompatible format.
	ErrFormat = errors.New("incompatible checkpoint format")

	// ErrNonFinite is returned by Save for parameters that are NaN or
	// infinite, which happens once a model has diverged.
	ErrNonFinite = errors.New("non-finite model parameter")

	// ErrModelMismatch is returned by Restore when the checkpoint was taken
	// from a model of another shape.
	ErrModelMismatch = errors.New("checkpoint model mismatch")
)

// ModelInfo is the shape of the model a checkpoint was taken from.
type ModelInfo struct {
	Shards      int `json:"shards"`
	Features    int `json:"features"`
	InnerPoints int `json:"inner_points"`
	OuterPoints int `json:"outer_points"`
}

// Checkpoint is one saved epoch.
type Checkpoint struct {
	Format       string    `json:"format"`
	RunID        uuid.UUID `json:"run_id"`
	Epoch        int       `json:"epoch"`
	Pearson      float64   `json:"pearson"`
	RelativeRMSE float64   `json:"rrmse"`
	MetricValid  bool      `json:"metric_valid"`
	SavedAt      time.Time `json:"saved_at"`
	Model        ModelInfo `json:"model"`
	Params       []float64 `json:"params,omitempty"`
}

// Run summarizes one run in the store.
type Run struct {
	ID     uuid.UUID
	Epochs int
	Latest int
}

// Store is a checkpoint database.
//
// Thread Safety: safe for concurrent use; bbolt serializes writers.
type Store struct {
	db     *bolt.DB
	logger *zap.Logger

	// Now returns the current time. Tests replace it.
	Now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop(), Now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening checkpoint db %s", path)
	}
	s.db = db
	return s, nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() uuid.UUID {
	return uuid.New()
}

// Close closes the database.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "closing checkpoint db")
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

func epochKey(epoch int) []byte {
	return []byte(fmt.Sprintf("%010d", epoch))
}

// Save writes c under its run and epoch, filling Format and SavedAt. An
// undefined Pearson value is stored as zero with MetricValid false. Params
// must be finite.
func (s *Store) Save(c Checkpoint) error {
	if c.RunID == uuid.Nil {
		return errors.New("checkpoint without run id")
	}
	for i, p := range c.Params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return errors.Wrapf(ErrNonFinite, "run %s epoch %d: parameter %d is %g", c.RunID, c.Epoch, i, p)
		}
	}
	c.Format = Format
	c.SavedAt = s.Now().UTC()
	if math.IsNaN(c.Pearson) {
		c.Pearson = 0
		c.MetricValid = false
	}
	if math.IsNaN(c.RelativeRMSE) || math.IsInf(c.RelativeRMSE, 0) {
		c.RelativeRMSE = 0
		c.MetricValid = false
	}

	value, err := json.Marshal(c)
	if err != nil {
		return errors.Wrapf(err, "encoding run %s epoch %d", c.RunID, c.Epoch)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(c.RunID.String()))
		if err != nil {
			return errors.Wrapf(err, "creating bucket: %s", c.RunID)
		}
		return b.Put(epochKey(c.Epoch), value)
	})
	if err != nil {
		return errors.Wrapf(err, "saving run %s epoch %d", c.RunID, c.Epoch)
	}

	s.logger.Debug("checkpoint saved",
		zap.String("run_id", c.RunID.String()),
		zap.Int("epoch", c.Epoch),
		zap.Int("bytes", len(value)),
	)
	return nil
}

func decode(value []byte, withParams bool) (Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(value, &c); err != nil {
		return c, errors.Wrap(err, "decoding checkpoint")
	}
	if !semver.IsValid(c.Format) || semver.Major(c.Format) != semver.Major(Format) {
		return c, errors.Wrapf(ErrFormat, "format %q, want %s.x", c.Format, semver.Major(Format))
	}
	if !withParams {
		c.Params = nil
	}
	return c, nil
}

// Latest returns the checkpoint of the highest epoch saved for runID.
func (s *Store) Latest(runID uuid.UUID) (Checkpoint, error) {
	var c Checkpoint
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runID.String()))
		if b == nil {
			return errors.Wrapf(ErrNotFound, "run %s", runID)
		}
		_, value := b.Cursor().Last()
		if value == nil {
			return errors.Wrapf(ErrNotFound, "run %s has no epochs", runID)
		}
		var err error
		c, err = decode(value, true)
		return err
	})
	return c, err
}

// List returns every checkpoint of runID in epoch order, without parameters.
func (s *Store) List(runID uuid.UUID) ([]Checkpoint, error) {
	var out []Checkpoint
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(runID.String()))
		if b == nil {
			return errors.Wrapf(ErrNotFound, "run %s", runID)
		}
		return b.ForEach(func(_, value []byte) error {
			c, err := decode(value, false)
			if err != nil {
				return err
			}
			out = append(out, c)
			return nil
		})
	})
	return out, err
}

// Runs returns a summary of every run, sorted by run id.
func (s *Store) Runs() ([]Run, error) {
	var out []Run
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			id, err := uuid.ParseBytes(name)
			if err != nil {
				s.logger.Warn("skipping foreign bucket", zap.ByteString("bucket", name))
				return nil
			}
			run := Run{ID: id, Epochs: b.Stats().KeyN}
			if k, _ := b.Cursor().Last(); k != nil {
				if _, err := fmt.Sscanf(string(k), "%d", &run.Latest); err != nil {
					return errors.Wrapf(err, "parsing epoch key %q", k)
				}
			}
			out = append(out, run)
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, errors.Wrap(err, "listing runs")
}
