package datapath

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/internal/localstore"
	"github.com/harrypeter07/billsync/internal/remote"
	"github.com/harrypeter07/billsync/internal/session"
	"github.com/harrypeter07/billsync/internal/syncqueue"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
)

// WriterParams groups dependencies for the writer.
type WriterParams struct {
	Logger   *logger.Logger
	DB       *gorm.DB
	Local    *localstore.Store
	Queue    *syncqueue.Repository
	Remote   remote.Store
	Sessions *session.Manager
	Mode     enums.Mode
}

// Writer is the mode-aware mutation path shared by the domain services.
// Every write lands in the local mirror first, so the UI sees it
// immediately. What happens next depends on the operating mode, which is
// re-evaluated from the current session on every call:
//
//   - local-first: the mutation and its queue entry commit in one local
//     transaction; the reconciler propagates it later.
//   - remote-direct: the remote store is written synchronously. A transient
//     remote failure degrades to the local-first path instead of failing
//     the user's action.
type Writer struct {
	logg     *logger.Logger
	db       *gorm.DB
	local    *localstore.Store
	queue    *syncqueue.Repository
	remote   remote.Store
	sessions *session.Manager
	mode     enums.Mode
}

// NewWriter validates the params and builds a writer.
func NewWriter(params WriterParams) (*Writer, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database is required")
	}
	if params.Local == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "local store is required")
	}
	if params.Queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sync queue is required")
	}
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "remote store is required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager is required")
	}
	return &Writer{
		logg:     params.Logger,
		db:       params.DB,
		local:    params.Local,
		queue:    params.Queue,
		remote:   params.Remote,
		sessions: params.Sessions,
		mode:     params.Mode,
	}, nil
}

// Local exposes the local mirror for read paths.
func (w *Writer) Local() *localstore.Store {
	return w.local
}

// CurrentMode resolves the operating mode from the live session.
func (w *Writer) CurrentMode(ctx context.Context) enums.Mode {
	sess, err := w.sessions.Get(ctx)
	if err != nil {
		sess = nil
	}
	return session.SelectMode(sess, w.mode)
}

// Create applies a new entity.
func Create[T localstore.Entity](ctx context.Context, w *Writer, entity T) error {
	return applyWrite(ctx, w, entity, enums.SyncActionCreate, nil)
}

// CreateWith applies a new entity plus extra local work in the same
// transaction, so dependent rows commit or roll back with the entity and
// its queue entry.
func CreateWith[T localstore.Entity](ctx context.Context, w *Writer, entity T, extra func(tx *gorm.DB) error) error {
	return applyWrite(ctx, w, entity, enums.SyncActionCreate, extra)
}

// Update applies a changed entity.
func Update[T localstore.Entity](ctx context.Context, w *Writer, entity T) error {
	return applyWrite(ctx, w, entity, enums.SyncActionUpdate, nil)
}

// UpdateWith applies a changed entity plus extra local work in the same
// transaction.
func UpdateWith[T localstore.Entity](ctx context.Context, w *Writer, entity T, extra func(tx *gorm.DB) error) error {
	return applyWrite(ctx, w, entity, enums.SyncActionUpdate, extra)
}

// Delete soft-deletes the entity locally and schedules (or performs) the
// remote delete. The local row is purged once the remote delete is
// confirmed.
func Delete[T localstore.Entity](ctx context.Context, w *Writer, id uuid.UUID, when time.Time) error {
	var zero T
	entityType := zero.Type()

	if w.CurrentMode(ctx) == enums.ModeRemoteDirect {
		var err error
		if entityType == enums.EntityInvoice {
			err = remote.DeleteInvoice(ctx, w.remote, id)
		} else {
			err = w.remote.Delete(ctx, entityType.Collection(), id)
		}
		switch {
		case err == nil, pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
			if err := localstore.SoftDelete[T](ctx, w.local, id, when); err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				return err
			}
			if entityType == enums.EntityInvoice {
				if err := w.local.ReplaceItems(ctx, id, nil); err != nil {
					return err
				}
			}
			return localstore.Purge[T](ctx, w.local, id)
		case pkgerrors.IsRetryable(err):
			w.logg.Warn(w.logg.WithEntity(ctx, entityType.String(), id.String()), "remote delete failed, queueing for sync")
		default:
			return err
		}
	}

	return w.db.Transaction(func(tx *gorm.DB) error {
		txStore := w.local.WithTx(tx)
		if err := localstore.SoftDelete[T](ctx, txStore, id, when); err != nil {
			return err
		}
		return w.queue.Enqueue(tx, entityType, id, enums.SyncActionDelete, map[string]any{"id": id.String()})
	})
}

func applyWrite[T localstore.Entity](ctx context.Context, w *Writer, entity T, action enums.SyncAction, extra func(tx *gorm.DB) error) error {
	entityType := entity.Type()
	id := entity.EntityID()

	if w.CurrentMode(ctx) == enums.ModeRemoteDirect {
		err := w.writeRemote(ctx, entityType, id, entity, action)
		switch {
		case err == nil:
			return w.db.Transaction(func(tx *gorm.DB) error {
				txStore := w.local.WithTx(tx)
				if err := localstore.Put(ctx, txStore, entity); err != nil {
					return err
				}
				if extra != nil {
					if err := extra(tx); err != nil {
						return err
					}
				}
				return localstore.MarkSynced[T](ctx, txStore, id)
			})
		case pkgerrors.IsRetryable(err):
			w.logg.Warn(w.logg.WithEntity(ctx, entityType.String(), id.String()), "remote write failed, queueing for sync")
		default:
			return err
		}
	}

	return w.db.Transaction(func(tx *gorm.DB) error {
		txStore := w.local.WithTx(tx)
		if err := localstore.Put(ctx, txStore, entity); err != nil {
			return err
		}
		if extra != nil {
			if err := extra(tx); err != nil {
				return err
			}
		}
		return w.queue.Enqueue(tx, entityType, id, action, entity)
	})
}

func (w *Writer) writeRemote(ctx context.Context, entityType enums.EntityType, id uuid.UUID, entity any, action enums.SyncAction) error {
	row, err := remote.RowFrom(entity)
	if err != nil {
		return err
	}
	collection := entityType.Collection()

	switch action {
	case enums.SyncActionCreate:
		if entityType == enums.EntityInvoice {
			return remote.CreateInvoice(ctx, w.remote, row)
		}
		err := w.remote.Create(ctx, collection, row)
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			return nil
		}
		return err
	case enums.SyncActionUpdate:
		if entityType == enums.EntityInvoice {
			return remote.UpdateInvoice(ctx, w.remote, id, row)
		}
		return w.remote.Update(ctx, collection, id, row)
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "unsupported direct action")
}
