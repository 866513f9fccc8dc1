// Package meeting is the entity repository of the meeting service: users,
// friendships, groups and events stored as rows of one flat table.
//
// Every mutation reads a full snapshot, checks its preconditions against it,
// applies the change to the decoded State and writes the whole snapshot back
// in a single throttled replace. Relationship invariants (friendship
// symmetry, group mirrors, disjoint participant sets) are only changed by
// the methods here. Concurrent callers race on the whole table; without
// optimistic mode on the table the last writer wins.
package meeting

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/observability"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/throttle"
	"github.com/ovaphlow/pitchfork/service-meeting/pkg/utilities"
)

// DateLayout is the format of every date cell.
const DateLayout = "2006-01-02"

// Table is the snapshot store the service reads and writes.
type Table interface {
	Fetch(ctx context.Context) (*table.Snapshot, error)
	Replace(ctx context.Context, snap *table.Snapshot) error
}

// Options wires the service collaborators. Zero values pick defaults.
type Options struct {
	Clock    clockwork.Clock
	Location *time.Location
	NewID    func() string
	Hasher   PasswordHasher
	// KeepExpiredOnList stops ListEvents from deleting expired events.
	KeepExpiredOnList bool
	Metrics           *observability.Collector
	Logger            *zap.SugaredLogger
}

// Service implements the entity operations on top of a Table.
type Service struct {
	table       Table
	clock       clockwork.Clock
	loc         *time.Location
	newID       func() string
	hasher      PasswordHasher
	sweepOnList bool
	metrics     *observability.Collector
	logger      *zap.SugaredLogger
}

// NewService constructs a Service.
func NewService(t Table, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.NewID == nil {
		opts.NewID = utilities.NewUUID
	}
	if opts.Hasher == nil {
		opts.Hasher = PlainHasher{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Service{
		table:       t,
		clock:       opts.Clock,
		loc:         opts.Location,
		newID:       opts.NewID,
		hasher:      opts.Hasher,
		sweepOnList: !opts.KeepExpiredOnList,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
}

// load fetches and decodes the current table.
func (s *Service) load(ctx context.Context) (*State, error) {
	snap, err := s.table.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Load(snap), nil
}

// commit writes the whole state back. Throttled and transport errors are
// returned unchanged; a stale snapshot becomes a conflict.
func (s *Service) commit(ctx context.Context, st *State, op string) error {
	snap := st.Snapshot()
	if err := s.table.Replace(ctx, snap); err != nil {
		if errors.Is(err, table.ErrStale) {
			return &Error{Kind: ErrConflict, Message: "the data changed while saving, please try again", Cause: err}
		}
		if errors.Is(err, throttle.ErrThrottled) {
			s.logger.Debugw("write throttled", "op", op)
		} else {
			s.logger.Warnw("write failed", "op", op, "err", err)
		}
		return err
	}
	st.version = snap.Version
	s.logger.Debugw("write committed", "op", op, "rows", len(snap.Rows), "version", snap.Version)
	return nil
}

// today returns the current date in the service location.
func (s *Service) today() string {
	return s.clock.Now().In(s.loc).Format(DateLayout)
}

// Snapshot returns the raw table, for administrative views.
func (s *Service) Snapshot(ctx context.Context) (*table.Snapshot, error) {
	return s.table.Fetch(ctx)
}

// validDate reports whether d is a calendar date in DateLayout.
func validDate(d string) bool {
	t, err := time.Parse(DateLayout, d)
	return err == nil && t.Format(DateLayout) == d
}
