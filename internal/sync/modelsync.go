package sync

import (
	"context"
	"errors"
	"sync"
)

// Syncer is the record-type-agnostic face of a ModelSync, used by the
// scheduler and the CLI.
type Syncer interface {
	Name() string
	Group() Group
	Sync(ctx context.Context) (*Result, error)
	Push(ctx context.Context) (*Result, error)
	Pull(ctx context.Context) (*Result, error)
	PendingCount(ctx context.Context) (int, error)
}

// ModelSync binds a coordinator to one record type and guards it so at most
// one push and one pull are in flight at a time. The reservation step makes
// overlapping pushes safe at the data level; the guard keeps them from
// burning requests on each other's batches.
type ModelSync[P Payload] struct {
	coord  *Coordinator[P]
	pushMu sync.Mutex
	pullMu sync.Mutex
}

func NewModelSync[P Payload](coord *Coordinator[P]) *ModelSync[P] {
	return &ModelSync[P]{coord: coord}
}

func (m *ModelSync[P]) Name() string { return m.coord.cfg.RecordType }

func (m *ModelSync[P]) Group() Group { return m.coord.cfg.Group }

func (m *ModelSync[P]) Push(ctx context.Context) (*Result, error) {
	if !m.pushMu.TryLock() {
		return nil, ErrSyncRunning
	}
	defer m.pushMu.Unlock()
	return m.coord.Push(ctx)
}

func (m *ModelSync[P]) Pull(ctx context.Context) (*Result, error) {
	if !m.pullMu.TryLock() {
		return nil, ErrSyncRunning
	}
	defer m.pullMu.Unlock()
	return m.coord.Pull(ctx)
}

// Sync runs a push followed by a pull. The pull still runs when the push
// failed recoverably: server-side changes are independent of the local
// backlog, and the push batch has already been reverted to pending.
func (m *ModelSync[P]) Sync(ctx context.Context) (*Result, error) {
	combined := &Result{}

	pushRes, pushErr := m.Push(ctx)
	if pushRes != nil {
		combined.StartTime = pushRes.StartTime
		combined.merge(pushRes)
	}
	if pushErr != nil && !Recoverable(pushErr) {
		return combined, pushErr
	}

	pullRes, pullErr := m.Pull(ctx)
	if pullRes != nil {
		if combined.StartTime.IsZero() {
			combined.StartTime = pullRes.StartTime
		}
		combined.merge(pullRes)
	}

	return combined, errors.Join(pushErr, pullErr)
}

func (m *ModelSync[P]) PendingCount(ctx context.Context) (int, error) {
	return m.coord.PendingCount(ctx)
}
