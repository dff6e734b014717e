package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hearth/internal/models"
	"hearth/internal/repository"
)

// ErrRetryLimitExceeded indicates a push kept failing transiently and
// the retry budget ran out. The record stays dirty and is retried on
// the next pass.
var ErrRetryLimitExceeded = errors.New("retry limit exceeded")

// Engine pushes dirty local records to the remote store and applies
// remote change notifications locally. Work on a given record id is
// serialized so a push and an inbound change never interleave.
type Engine struct {
	familyRepo     *repository.FamilyRepository
	profileRepo    *repository.ProfileRepository
	membershipRepo *repository.MembershipRepository
	client         RemoteClient
	codec          *Codec
	maxRetries     int
	baseDelay      time.Duration
	clock          func() time.Time

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// NewEngine creates a sync engine. maxRetries bounds additional push
// attempts after the first; baseDelay seeds the exponential backoff.
func NewEngine(
	familyRepo *repository.FamilyRepository,
	profileRepo *repository.ProfileRepository,
	membershipRepo *repository.MembershipRepository,
	client RemoteClient,
	maxRetries int,
	baseDelay time.Duration,
) *Engine {
	return &Engine{
		familyRepo:     familyRepo,
		profileRepo:    profileRepo,
		membershipRepo: membershipRepo,
		client:         client,
		codec:          NewCodec(),
		maxRetries:     maxRetries,
		baseDelay:      baseDelay,
		clock:          time.Now,
		inflight:       make(map[string]chan struct{}),
	}
}

// SyncPass pushes every dirty record once. Families go first, then
// profiles, then memberships, so the remote side never sees a
// membership before the records it references. Individual failures are
// logged and left dirty for the next pass.
func (e *Engine) SyncPass(ctx context.Context) error {
	start := time.Now()
	defer func() {
		syncPassDuration.Observe(time.Since(start).Seconds())
	}()

	if err := e.syncDirtyFamilies(ctx); err != nil {
		return err
	}
	if err := e.syncDirtyProfiles(ctx); err != nil {
		return err
	}
	return e.syncDirtyMemberships(ctx)
}

func (e *Engine) syncDirtyFamilies(ctx context.Context) error {
	families, err := e.familyRepo.ListDirtyFamilies()
	if err != nil {
		return fmt.Errorf("failed to list dirty families: %w", err)
	}

	var wg sync.WaitGroup
	for i := range families {
		f := &families[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := e.acquire(f.ID)
			defer release()
			if err := e.SyncFamily(ctx, f); err != nil {
				syncAttempts.WithLabelValues(RecordTypeFamily, outcomeFailure).Inc()
				slog.Error("family sync failed", "familyID", f.ID, "error", err)
				return
			}
			syncAttempts.WithLabelValues(RecordTypeFamily, outcomeSuccess).Inc()
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (e *Engine) syncDirtyProfiles(ctx context.Context) error {
	profiles, err := e.profileRepo.ListDirtyProfiles()
	if err != nil {
		return fmt.Errorf("failed to list dirty profiles: %w", err)
	}

	var wg sync.WaitGroup
	for i := range profiles {
		p := &profiles[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := e.acquire(p.ID)
			defer release()
			if err := e.SyncProfile(ctx, p); err != nil {
				syncAttempts.WithLabelValues(RecordTypeUserProfile, outcomeFailure).Inc()
				slog.Error("profile sync failed", "profileID", p.ID, "error", err)
				return
			}
			syncAttempts.WithLabelValues(RecordTypeUserProfile, outcomeSuccess).Inc()
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (e *Engine) syncDirtyMemberships(ctx context.Context) error {
	memberships, err := e.membershipRepo.ListDirtyMemberships()
	if err != nil {
		return fmt.Errorf("failed to list dirty memberships: %w", err)
	}

	var wg sync.WaitGroup
	for i := range memberships {
		m := &memberships[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := e.acquire(m.ID)
			defer release()
			if err := e.SyncMembership(ctx, m); err != nil {
				syncAttempts.WithLabelValues(RecordTypeMembership, outcomeFailure).Inc()
				slog.Error("membership sync failed", "membershipID", m.ID, "error", err)
				return
			}
			syncAttempts.WithLabelValues(RecordTypeMembership, outcomeSuccess).Inc()
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// SyncFamily pushes a single family. The dirty flag is only cleared
// after the remote store confirms the write, so a cancelled or failed
// push leaves the record queued for the next pass.
func (e *Engine) SyncFamily(ctx context.Context, f *models.Family) error {
	rec := e.codec.ExportFamily(f)
	saved, err := e.pushWithRetry(ctx, rec)

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		winner, rerr := e.codec.ResolveFamilyConflict(f, conflict.Server)
		if rerr != nil {
			return rerr
		}
		syncConflicts.WithLabelValues(string(winner)).Inc()
		if winner == WinnerRemote {
			return e.familyRepo.UpdateFamily(f)
		}
		// Local edit wins: push it again carrying the server's change
		// tag so the write is accepted.
		rec = e.codec.ExportFamily(f)
		rec.ModifiedAt = conflict.Server.ModifiedAt
		saved, err = e.pushWithRetry(ctx, rec)
	}
	if err != nil {
		return err
	}

	at := saved.ModifiedAt
	if at.IsZero() {
		at = e.clock()
	}
	f.MarkSynced(saved.Name, at)
	return e.familyRepo.MarkFamilySynced(f.ID, saved.Name, at)
}

// SyncProfile pushes a single user profile.
func (e *Engine) SyncProfile(ctx context.Context, p *models.UserProfile) error {
	rec := e.codec.ExportUserProfile(p)
	saved, err := e.pushWithRetry(ctx, rec)

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		winner, rerr := e.codec.ResolveUserProfileConflict(p, conflict.Server)
		if rerr != nil {
			return rerr
		}
		syncConflicts.WithLabelValues(string(winner)).Inc()
		if winner == WinnerRemote {
			return e.profileRepo.UpdateProfile(p)
		}
		rec = e.codec.ExportUserProfile(p)
		rec.ModifiedAt = conflict.Server.ModifiedAt
		saved, err = e.pushWithRetry(ctx, rec)
	}
	if err != nil {
		return err
	}

	at := saved.ModifiedAt
	if at.IsZero() {
		at = e.clock()
	}
	p.MarkSynced(saved.Name, at)
	return e.profileRepo.MarkProfileSynced(p.ID, saved.Name, at)
}

// SyncMembership pushes a single membership. Memberships that lost
// their family or user link are not representable remotely and are
// skipped without clearing the dirty flag.
func (e *Engine) SyncMembership(ctx context.Context, m *models.Membership) error {
	rec, err := e.codec.ExportMembership(m)
	if err != nil {
		return err
	}
	saved, err := e.pushWithRetry(ctx, rec)

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		winner, rerr := e.codec.ResolveMembershipConflict(m, conflict.Server)
		if rerr != nil {
			return rerr
		}
		syncConflicts.WithLabelValues(string(winner)).Inc()
		if winner == WinnerRemote {
			return e.membershipRepo.UpdateMembership(m)
		}
		rec, err = e.codec.ExportMembership(m)
		if err != nil {
			return err
		}
		rec.ModifiedAt = conflict.Server.ModifiedAt
		saved, err = e.pushWithRetry(ctx, rec)
	}
	if err != nil {
		return err
	}

	at := saved.ModifiedAt
	if at.IsZero() {
		at = e.clock()
	}
	m.MarkSynced(saved.Name, at)
	return e.membershipRepo.MarkMembershipSynced(m.ID, saved.Name, at)
}

// HandleRemoteChange reacts to a change notification for a single
// record. A record gone from the remote store is deleted locally, an
// unknown one is created, and an existing one goes through conflict
// resolution.
func (e *Engine) HandleRemoteChange(ctx context.Context, recordType, name string) error {
	release := e.acquire(name)
	defer release()

	rec, err := e.client.FetchRecord(ctx, recordType, name)
	if errors.Is(err, ErrRecordNotFound) {
		return e.applyRemoteDelete(recordType, name)
	}
	if err != nil {
		return err
	}

	switch recordType {
	case RecordTypeFamily:
		return e.applyRemoteFamily(ctx, rec)
	case RecordTypeUserProfile:
		return e.applyRemoteProfile(ctx, rec)
	case RecordTypeMembership:
		return e.applyRemoteMembership(ctx, rec)
	default:
		return fmt.Errorf("%w: unknown record type %q", ErrInvalidRecord, recordType)
	}
}

func (e *Engine) applyRemoteDelete(recordType, name string) error {
	switch recordType {
	case RecordTypeFamily:
		slog.Info("mirroring remote family deletion", "familyID", name)
		return e.familyRepo.DeleteFamily(name)
	case RecordTypeUserProfile:
		slog.Info("mirroring remote profile deletion", "profileID", name)
		return e.profileRepo.DeleteProfile(name)
	case RecordTypeMembership:
		slog.Info("mirroring remote membership deletion", "membershipID", name)
		return e.membershipRepo.DeleteMembership(name)
	default:
		return fmt.Errorf("%w: unknown record type %q", ErrInvalidRecord, recordType)
	}
}

func (e *Engine) applyRemoteFamily(ctx context.Context, rec Record) error {
	local, err := e.familyRepo.GetFamilyByID(rec.Name)
	if err != nil {
		return err
	}
	if local == nil {
		var f models.Family
		if err := e.codec.ImportFamily(rec, &f); err != nil {
			return err
		}
		return e.familyRepo.CreateFamily(&f)
	}

	winner, err := e.codec.ResolveFamilyConflict(local, rec)
	if err != nil {
		return err
	}
	syncConflicts.WithLabelValues(string(winner)).Inc()
	if winner == WinnerLocal {
		// Keep the local edit and make the remote side match it.
		out := e.codec.ExportFamily(local)
		out.ModifiedAt = rec.ModifiedAt
		if _, err := e.pushWithRetry(ctx, out); err != nil {
			return err
		}
	}
	return e.familyRepo.UpdateFamily(local)
}

func (e *Engine) applyRemoteProfile(ctx context.Context, rec Record) error {
	local, err := e.profileRepo.GetProfileByID(rec.Name)
	if err != nil {
		return err
	}
	if local == nil {
		var p models.UserProfile
		if err := e.codec.ImportUserProfile(rec, &p); err != nil {
			return err
		}
		return e.profileRepo.CreateProfile(&p)
	}

	winner, err := e.codec.ResolveUserProfileConflict(local, rec)
	if err != nil {
		return err
	}
	syncConflicts.WithLabelValues(string(winner)).Inc()
	if winner == WinnerLocal {
		out := e.codec.ExportUserProfile(local)
		out.ModifiedAt = rec.ModifiedAt
		if _, err := e.pushWithRetry(ctx, out); err != nil {
			return err
		}
	}
	return e.profileRepo.UpdateProfile(local)
}

func (e *Engine) applyRemoteMembership(ctx context.Context, rec Record) error {
	local, err := e.membershipRepo.GetMembershipByID(rec.Name)
	if err != nil {
		return err
	}
	if local == nil {
		var m models.Membership
		if err := e.codec.ImportMembership(rec, &m); err != nil {
			return err
		}
		return e.membershipRepo.CreateMembership(&m)
	}

	winner, err := e.codec.ResolveMembershipConflict(local, rec)
	if err != nil {
		return err
	}
	syncConflicts.WithLabelValues(string(winner)).Inc()
	if winner == WinnerLocal {
		out, err := e.codec.ExportMembership(local)
		if err != nil {
			return err
		}
		out.ModifiedAt = rec.ModifiedAt
		if _, err := e.pushWithRetry(ctx, out); err != nil {
			return err
		}
	}
	return e.membershipRepo.UpdateMembership(local)
}

// pushWithRetry saves a record, retrying transient failures with
// exponential backoff. Conflicts and other permanent failures are
// returned immediately.
func (e *Engine) pushWithRetry(ctx context.Context, rec Record) (Record, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			syncRetries.Inc()
			delay := time.Duration(1<<uint(attempt-1)) * e.baseDelay
			select {
			case <-ctx.Done():
				return Record{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		saved, err := e.client.SaveRecord(ctx, rec)
		if err == nil {
			return saved, nil
		}
		if !IsRetryable(err) {
			return Record{}, err
		}
		lastErr = err
		slog.Warn("transient push failure", "recordType", rec.Type, "recordName", rec.Name, "attempt", attempt+1, "error", err)
	}
	return Record{}, fmt.Errorf("%w for %s/%s: %v", ErrRetryLimitExceeded, rec.Type, rec.Name, lastErr)
}

// acquire blocks until no other sync work is running for the given
// record id, then claims it. The returned func releases the claim.
func (e *Engine) acquire(id string) func() {
	for {
		e.mu.Lock()
		ch, busy := e.inflight[id]
		if !busy {
			done := make(chan struct{})
			e.inflight[id] = done
			e.mu.Unlock()
			return func() {
				e.mu.Lock()
				delete(e.inflight, id)
				e.mu.Unlock()
				close(done)
			}
		}
		e.mu.Unlock()
		<-ch
	}
}
