package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/multierr"

	"github.com/harrypeter07/billsync/internal/localstore"
	"github.com/harrypeter07/billsync/internal/remote"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/logger"
	"github.com/harrypeter07/billsync/pkg/metrics"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 500 * time.Millisecond
	defaultBaseBackoff  = time.Second
	defaultMaxBackoff   = 5 * time.Minute
	defaultMaxRetries   = 10
	jitterWindow        = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// Warning describes a queue entry the reconciler will not retry. It is
// surfaced to the caller instead of being silently dropped.
type Warning struct {
	Entry models.SyncQueueEntry
	Err   error
}

// ReconcilerParams collects the reconciler's collaborators.
type ReconcilerParams struct {
	Logger  *logger.Logger
	Repo    *Repository
	Local   *localstore.Store
	Remote  remote.Store
	Metrics *metrics.SyncMetrics

	BatchSize    int
	PollInterval time.Duration
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	MaxRetries   int

	// OnWarning is invoked for every permanently failed entry. Optional.
	OnWarning func(Warning)
}

// Reconciler drains the sync queue against the remote store. Entries for the
// same entity are applied strictly in enqueue order; a failure on one entity
// never blocks progress on another. Replayed creates are idempotent: a
// remote row that already exists with the same id counts as success.
type Reconciler struct {
	logg    *logger.Logger
	repo    *Repository
	local   *localstore.Store
	remote  remote.Store
	metrics *metrics.SyncMetrics

	batchSize    int
	pollInterval time.Duration
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	maxRetries   int
	onWarning    func(Warning)
	now          func() time.Time
}

// NewReconciler validates the params and builds a reconciler.
func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "queue repository is required")
	}
	if params.Local == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "local store is required")
	}
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "remote store is required")
	}

	r := &Reconciler{
		logg:         params.Logger,
		repo:         params.Repo,
		local:        params.Local,
		remote:       params.Remote,
		metrics:      params.Metrics,
		batchSize:    params.BatchSize,
		pollInterval: params.PollInterval,
		baseBackoff:  params.BaseBackoff,
		maxBackoff:   params.MaxBackoff,
		maxRetries:   params.MaxRetries,
		onWarning:    params.OnWarning,
		now:          time.Now,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.pollInterval <= 0 {
		r.pollInterval = defaultPollInterval
	}
	if r.baseBackoff <= 0 {
		r.baseBackoff = defaultBaseBackoff
	}
	if r.maxBackoff <= 0 {
		r.maxBackoff = defaultMaxBackoff
	}
	if r.maxRetries <= 0 {
		r.maxRetries = defaultMaxRetries
	}
	return r, nil
}

// Run drains the queue until the context is canceled. An in-flight attempt
// abandoned by cancellation leaves its entry queued for the next cycle.
func (r *Reconciler) Run(ctx context.Context) error {
	interval := r.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "reconciler context canceled")
			return ctx.Err()
		default:
		}

		processed, err := r.DrainOnce(ctx)
		if err != nil {
			r.logg.Error(ctx, "reconciler drain error", err)
			backoff = nextBackoff(backoff, interval, r.maxBackoff)
			if err := r.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed > 0 {
			continue
		}
		if err := r.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// DrainOnce processes one batch of due entries and reports how many it
// applied successfully. Per-entity ordering holds within the batch: once an
// entry for an entity fails, later entries for that entity are skipped until
// the head succeeds.
func (r *Reconciler) DrainOnce(ctx context.Context) (int, error) {
	start := r.now()
	entries, err := r.repo.FetchDue(ctx, r.batchSize, start)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	type entityKey struct {
		entityType enums.EntityType
		entityID   string
	}

	drained := 0
	blocked := make(map[entityKey]bool)
	var errs error

	for _, entry := range entries {
		key := entityKey{entry.EntityType, entry.EntityID.String()}
		if blocked[key] {
			continue
		}

		// The entity's true head may be backing off or parked and thus
		// absent from this fetch. Never apply a later entry ahead of it.
		head, headErr := r.repo.HeadForEntity(ctx, entry.EntityType, entry.EntityID)
		if headErr != nil {
			errs = multierr.Append(errs, headErr)
			blocked[key] = true
			continue
		}
		if head.ID != entry.ID {
			blocked[key] = true
			continue
		}

		entryCtx := r.logg.WithEntity(ctx, entry.EntityType.String(), entry.EntityID.String())
		entryCtx = r.logg.WithField(entryCtx, "action", entry.Action.String())

		err := r.apply(entryCtx, entry)
		switch {
		case err == nil:
			if err := r.finish(entryCtx, entry); err != nil {
				errs = multierr.Append(errs, err)
				blocked[key] = true
				continue
			}
			drained++
			if r.metrics != nil {
				r.metrics.IncDrained(entry.EntityType.String(), entry.Action.String())
			}

		case isPermanent(err) || entry.RetryCount+1 >= r.maxRetries:
			r.reject(entryCtx, entry, err)
			blocked[key] = true

		default:
			delay := r.backoffFor(entry.RetryCount)
			if markErr := r.repo.MarkRetried(ctx, entry.ID, err, start.Add(delay)); markErr != nil {
				errs = multierr.Append(errs, markErr)
			}
			retryCtx := r.logg.WithField(entryCtx, "retry_count", entry.RetryCount+1)
			retryCtx = r.logg.WithField(retryCtx, "next_attempt_in", delay.String())
			r.logg.Warn(retryCtx, "sync attempt failed, will retry")
			if r.metrics != nil {
				r.metrics.IncRetried(entry.EntityType.String())
			}
			blocked[key] = true
		}
	}

	if r.metrics != nil {
		r.metrics.ObserveDrain("all", r.now().Sub(start))
	}
	return drained, errs
}

// apply replays one recorded mutation against the remote store, folding the
// idempotence rules into the result: a create that conflicts on id and a
// delete whose target is already gone both count as success.
func (r *Reconciler) apply(ctx context.Context, entry models.SyncQueueEntry) error {
	collection := entry.EntityType.Collection()

	switch entry.Action {
	case enums.SyncActionCreate:
		row, err := decodeRow(entry.Data)
		if err != nil {
			return err
		}
		if entry.EntityType == enums.EntityInvoice {
			err = remote.CreateInvoice(ctx, r.remote, row)
		} else {
			err = r.remote.Create(ctx, collection, row)
		}
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			r.logg.Info(ctx, "remote entity already exists, treating create as applied")
			return nil
		}
		return err

	case enums.SyncActionUpdate:
		row, err := decodeRow(entry.Data)
		if err != nil {
			return err
		}
		if entry.EntityType == enums.EntityInvoice {
			err = remote.UpdateInvoice(ctx, r.remote, entry.EntityID, row)
		} else {
			err = r.remote.Update(ctx, collection, entry.EntityID, row)
		}
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodePermanentSync, err, "remote entity missing for update")
		}
		return err

	case enums.SyncActionDelete:
		var err error
		if entry.EntityType == enums.EntityInvoice {
			err = remote.DeleteInvoice(ctx, r.remote, entry.EntityID)
		} else {
			err = r.remote.Delete(ctx, collection, entry.EntityID)
		}
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			r.logg.Info(ctx, "remote entity already gone, treating delete as applied")
			return nil
		}
		return err

	default:
		return pkgerrors.New(pkgerrors.CodePermanentSync, fmt.Sprintf("unknown sync action %q", entry.Action))
	}
}

// finish removes the drained entry and stamps local state. Deletes purge the
// soft-deleted row; creates and updates flip is_synced once no further
// mutations are queued for the entity.
func (r *Reconciler) finish(ctx context.Context, entry models.SyncQueueEntry) error {
	if err := r.repo.Delete(ctx, entry.ID); err != nil {
		return err
	}

	if entry.Action == enums.SyncActionDelete {
		return r.purgeLocal(ctx, entry)
	}

	pending, err := r.repo.PendingCount(ctx, entry.EntityType, entry.EntityID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return nil
	}
	return r.markLocalSynced(ctx, entry)
}

func (r *Reconciler) markLocalSynced(ctx context.Context, entry models.SyncQueueEntry) error {
	switch entry.EntityType {
	case enums.EntityProduct:
		return localstore.MarkSynced[models.Product](ctx, r.local, entry.EntityID)
	case enums.EntityCustomer:
		return localstore.MarkSynced[models.Customer](ctx, r.local, entry.EntityID)
	case enums.EntityInvoice:
		return localstore.MarkSynced[models.Invoice](ctx, r.local, entry.EntityID)
	}
	return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown entity type %q", entry.EntityType))
}

func (r *Reconciler) purgeLocal(ctx context.Context, entry models.SyncQueueEntry) error {
	switch entry.EntityType {
	case enums.EntityProduct:
		return localstore.Purge[models.Product](ctx, r.local, entry.EntityID)
	case enums.EntityCustomer:
		return localstore.Purge[models.Customer](ctx, r.local, entry.EntityID)
	case enums.EntityInvoice:
		if err := r.local.ReplaceItems(ctx, entry.EntityID, nil); err != nil {
			return err
		}
		return localstore.Purge[models.Invoice](ctx, r.local, entry.EntityID)
	}
	return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown entity type %q", entry.EntityType))
}

// reject parks an entry that will not be retried and surfaces the warning.
func (r *Reconciler) reject(ctx context.Context, entry models.SyncQueueEntry, cause error) {
	if err := r.repo.MarkRejected(ctx, entry.ID, cause); err != nil {
		r.logg.Error(ctx, "failed to mark sync entry rejected", err)
	}
	warnCtx := r.logg.WithField(ctx, "retry_count", entry.RetryCount)
	r.logg.Error(warnCtx, "sync entry permanently failed, data retained in queue", cause)
	if r.metrics != nil {
		r.metrics.IncRejected(entry.EntityType.String())
	}
	if r.onWarning != nil {
		r.onWarning(Warning{Entry: entry, Err: cause})
	}
}

func (r *Reconciler) backoffFor(retryCount int) time.Duration {
	delay := r.baseBackoff
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= r.maxBackoff {
			return withJitter(r.maxBackoff)
		}
	}
	return withJitter(delay)
}

func (r *Reconciler) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeRow(data json.RawMessage) (remote.Row, error) {
	var row remote.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePermanentSync, err, "decoding sync payload")
	}
	return row, nil
}

func isPermanent(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodePermanentSync) ||
		pkgerrors.HasCode(err, pkgerrors.CodeValidation) ||
		pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized)
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
