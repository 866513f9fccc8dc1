package table

import (
	"context"
	"errors"
	"fmt"
)

// Store is a backend holding the whole table. Implementations must make
// Replace all-or-nothing: either every row of the snapshot is stored or the
// previous table is left as it was.
type Store interface {
	// Fetch returns every row together with the backend version.
	Fetch(ctx context.Context) (*Snapshot, error)
	// Replace overwrites the table with snap.Rows. With checkVersion set the
	// write fails with ErrStale when the backend moved past snap.Version.
	Replace(ctx context.Context, snap *Snapshot, checkVersion bool) (int64, error)
}

// ErrStale is returned by optimistic replaces of an outdated snapshot.
var ErrStale = errors.New("table changed since it was read")

// TransportError wraps a failure talking to the backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("table %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
