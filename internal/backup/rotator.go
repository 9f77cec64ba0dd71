// Package backup keeps timestamped snapshots of the menu document and prunes the
// oldest ones beyond a retention bound.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"time"

	apperrors "menueditor-backend/pkg/errors"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
)

// Collision policies for two snapshots taken within the same second.
const (
	CollisionOverwrite = "overwrite"
	CollisionSuffix    = "suffix"
)

// Policy configures snapshotting.
type Policy struct {
	Enabled   bool
	Folder    string
	Keep      int
	Collision string
}

// Record describes one stored snapshot.
type Record struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  int       `json:"sequence,omitempty"`
	Size      int64     `json:"size"`
}

var namePattern = regexp.MustCompile(`^menu\.(\d+)(?:-(\d+))?\.yml$`)

// ParseName extracts timestamp and sequence from a snapshot file name.
func ParseName(name string) (Record, bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Record{}, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Record{}, false
	}
	seq := 0
	if m[2] != "" {
		if seq, err = strconv.Atoi(m[2]); err != nil {
			return Record{}, false
		}
	}
	return Record{Name: name, Timestamp: time.Unix(ts, 0).UTC(), Sequence: seq}, true
}

func snapshotName(ts int64, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("menu.%d.yml", ts)
	}
	return fmt.Sprintf("menu.%d-%d.yml", ts, seq)
}

// Rotator writes snapshots into a folder of a billy filesystem.
type Rotator struct {
	fs     billy.Filesystem
	policy Policy
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Rotator.
type Option func(*Rotator)

// WithClock replaces the wall clock used to name snapshots.
func WithClock(now func() time.Time) Option {
	return func(r *Rotator) { r.now = now }
}

// NewRotator creates a rotator.
func NewRotator(fs billy.Filesystem, policy Policy, logger *zap.Logger, opts ...Option) *Rotator {
	if policy.Collision == "" {
		policy.Collision = CollisionOverwrite
	}
	// A snapshot is always kept; pruning to zero would delete the one just written.
	if policy.Keep < 1 {
		policy.Keep = 1
	}
	r := &Rotator{fs: fs, policy: policy, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the active policy.
func (r *Rotator) Policy() Policy { return r.policy }

// Rotate stores previous as a new snapshot and prunes the folder down to
// Policy.Keep snapshots. It does nothing when backups are disabled.
func (r *Rotator) Rotate(ctx context.Context, previous []byte) (*Record, error) {
	if !r.policy.Enabled {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewBackupFailed("snapshot", err)
	}

	if err := r.fs.MkdirAll(r.policy.Folder, 0o755); err != nil {
		return nil, apperrors.NewBackupFailed("create folder", err)
	}

	rec, err := r.write(previous)
	if err != nil {
		return nil, apperrors.NewBackupFailed("snapshot", err)
	}
	r.logger.Info("Menu backup written",
		zap.String("folder", r.policy.Folder),
		zap.String("name", rec.Name),
		zap.Int64("size", rec.Size),
	)

	pruned, err := r.prune()
	if err != nil {
		return rec, apperrors.NewBackupFailed("prune", err)
	}
	if len(pruned) > 0 {
		r.logger.Info("Menu backups pruned",
			zap.String("folder", r.policy.Folder),
			zap.Strings("removed", pruned),
			zap.Int("keep", r.policy.Keep),
		)
	}
	return rec, nil
}

func (r *Rotator) write(data []byte) (*Record, error) {
	ts := r.now().Unix()
	seq := 0
	name := snapshotName(ts, seq)

	if r.policy.Collision == CollisionSuffix {
		for {
			if _, err := r.fs.Stat(r.fs.Join(r.policy.Folder, name)); os.IsNotExist(err) {
				break
			} else if err != nil {
				return nil, err
			}
			seq++
			name = snapshotName(ts, seq)
		}
	}

	if err := util.WriteFile(r.fs, r.fs.Join(r.policy.Folder, name), data, 0o644); err != nil {
		return nil, err
	}
	return &Record{
		Name:      name,
		Timestamp: time.Unix(ts, 0).UTC(),
		Sequence:  seq,
		Size:      int64(len(data)),
	}, nil
}

// prune removes the oldest snapshots until at most Keep remain.
func (r *Rotator) prune() ([]string, error) {
	records, err := r.records()
	if err != nil {
		return nil, err
	}
	if len(records) <= r.policy.Keep {
		return nil, nil
	}

	// records is newest first.
	var removed []string
	for _, rec := range records[r.policy.Keep:] {
		if err := r.fs.Remove(r.fs.Join(r.policy.Folder, rec.Name)); err != nil {
			return removed, fmt.Errorf("remove %s: %w", rec.Name, err)
		}
		removed = append(removed, rec.Name)
	}
	return removed, nil
}

// records lists snapshots newest first. Files that do not match the snapshot
// name pattern are ignored.
func (r *Rotator) records() ([]Record, error) {
	infos, err := r.fs.ReadDir(r.policy.Folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	records := make([]Record, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		rec, ok := ParseName(info.Name())
		if !ok {
			continue
		}
		rec.Size = info.Size()
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.Sequence != b.Sequence {
			return a.Sequence > b.Sequence
		}
		return a.Name > b.Name
	})
	return records, nil
}

// List returns the stored snapshots, newest first.
func (r *Rotator) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := r.records()
	if err != nil {
		return nil, apperrors.NewBackupFailed("list", err)
	}
	return records, nil
}

// Read returns the content of the named snapshot.
func (r *Rotator) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := ParseName(name); !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("backup %q", name))
	}

	f, err := r.fs.Open(r.fs.Join(r.policy.Folder, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("backup %q", name))
		}
		return nil, apperrors.NewBackupFailed("read", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewBackupFailed("read", err)
	}
	return data, nil
}
