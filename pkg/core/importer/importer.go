package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/pkg/core/model"
	"github.com/jakechorley/legacy-migrator/pkg/core/transform"
	"github.com/jakechorley/legacy-migrator/pkg/db"
)

// DryRunIDPrefix marks ids handed out for rows a dry run would have created
const DryRunIDPrefix = "dryrun-"

const shiftTypeDescription = "Imported from the legacy volunteer system"

// ErrExists is the per-record error for an existing record when skipping is disabled
var ErrExists = errors.New("already exists")

// Options controls import behaviour
type Options struct {
	DryRun             bool
	SkipExistingUsers  bool
	SkipExistingShifts bool
	Concurrency        int
}

// Importer creates target records only when they do not already exist.
// One Importer serves one migration run.
type Importer struct {
	store  db.MigrationStore
	opts   Options
	result *Result
	logger *zap.Logger

	mu       sync.Mutex
	registry map[string]string
}

// NewImporter creates an importer writing outcomes to result
func NewImporter(store db.MigrationStore, opts Options, result *Result, logger *zap.Logger) *Importer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if result == nil {
		result = NewResult()
	}
	return &Importer{
		store:    store,
		opts:     opts,
		result:   result,
		logger:   logger,
		registry: make(map[string]string),
	}
}

// Result returns the run's result
func (im *Importer) Result() *Result {
	return im.result
}

// IsFatal reports whether an error must abort the whole run
func IsFatal(err error) bool {
	return errors.Is(err, db.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

type importSpec struct {
	kind         string
	key          string
	skipExisting bool
	find         func(ctx context.Context) (string, error)
	create       func(ctx context.Context, id string) error
}

// importIfAbsent resolves one record to a target id. The returned error is either a
// per-record failure or, when IsFatal, a reason to stop the run.
func (im *Importer) importIfAbsent(ctx context.Context, spec importSpec) (string, Outcome, error) {
	registryKey := spec.kind + "|" + spec.key

	// Step 1: Already resolved earlier in this run. skipExisting only governs rows
	// that were in the target store before the run.
	if id, ok := im.lookupRegistry(registryKey); ok {
		return id, OutcomeSkipped, nil
	}

	// Step 2: Already in the target store
	id, err := spec.find(ctx)
	switch {
	case err == nil:
		im.remember(registryKey, id)
		if !spec.skipExisting {
			return id, OutcomeFailed, ErrExists
		}
		return id, OutcomeSkipped, nil
	case !errors.Is(err, db.ErrNotFound):
		return "", OutcomeFailed, fmt.Errorf("failed to look up existing %s: %w", spec.kind, err)
	}

	// Step 3: Create, or pretend to in a dry run
	if im.opts.DryRun {
		id = DryRunIDPrefix + uuid.NewString()
		im.remember(registryKey, id)
		return id, OutcomeCreated, nil
	}

	id = uuid.NewString()
	err = spec.create(ctx, id)
	if errors.Is(err, db.ErrAlreadyExists) {
		// Lost a race with another writer; the winner's row is the one to use
		existing, findErr := spec.find(ctx)
		if findErr != nil {
			return "", OutcomeFailed, fmt.Errorf("failed to load %s after unique violation: %w", spec.kind, findErr)
		}
		im.remember(registryKey, existing)
		return existing, OutcomeSkipped, nil
	}
	if err != nil {
		return "", OutcomeFailed, fmt.Errorf("failed to create %s: %w", spec.kind, err)
	}

	im.remember(registryKey, id)
	return id, OutcomeCreated, nil
}

func (im *Importer) lookupRegistry(key string) (string, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	id, ok := im.registry[key]
	return id, ok
}

func (im *Importer) remember(key, id string) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.registry[key] = id
}

// forEach runs fn for every index of keys. Indexes sharing a dedup key run one after another
// in input order, so the first occurrence of a key is the one that creates it; distinct
// keys run concurrently, at most Concurrency at a time. The first fatal error cancels
// the remaining work and is returned.
func (im *Importer) forEach(ctx context.Context, keys []string, fn func(ctx context.Context, i int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		once      sync.Once
		fatal     error
		semaphore = make(chan struct{}, im.opts.Concurrency)
	)

	for _, group := range groupByKey(keys) {
		wg.Add(1)
		go func(group []int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			for _, i := range group {
				if runCtx.Err() != nil {
					return
				}
				if err := fn(runCtx, i); err != nil {
					once.Do(func() {
						fatal = err
						cancel()
					})
					return
				}
			}
		}(group)
	}
	wg.Wait()

	if fatal != nil {
		return fatal
	}
	return ctx.Err()
}

// groupByKey returns the indexes of keys grouped by value, groups ordered by first
// occurrence and indexes ascending within each group
func groupByKey(keys []string) [][]int {
	position := make(map[string]int, len(keys))
	var groups [][]int
	for i, key := range keys {
		g, ok := position[key]
		if !ok {
			g = len(groups)
			position[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// settle records a per-record outcome, or hands back a fatal error
func (im *Importer) settle(kind, legacyID string, index int, outcome Outcome, err error) error {
	if err != nil {
		if IsFatal(err) {
			return fmt.Errorf("%s %s: %w", kind, legacyID, err)
		}
		im.result.AddError(kind, legacyID, index, err)
		im.logger.Warn("Record not imported",
			zap.String("kind", kind),
			zap.String("legacy_id", legacyID),
			zap.Error(err))
		return nil
	}
	im.result.Record(kind, outcome)
	return nil
}

// ImportUsers imports user drafts and returns legacy user id -> target user id.
// Drafts sharing an email resolve to the same target user.
func (im *Importer) ImportUsers(ctx context.Context, drafts []model.UserDraft) (map[string]string, error) {
	ids := make([]string, len(drafts))
	keys := make([]string, len(drafts))
	for i, draft := range drafts {
		keys[i] = db.NormalizeEmail(draft.Email)
	}

	err := im.forEach(ctx, keys, func(ctx context.Context, i int) error {
		draft := drafts[i]
		id, outcome, err := im.importIfAbsent(ctx, importSpec{
			kind:         transform.KindUser,
			key:          keys[i],
			skipExisting: im.opts.SkipExistingUsers,
			find: func(ctx context.Context) (string, error) {
				u, err := im.store.FindUserByEmail(ctx, draft.Email)
				if err != nil {
					return "", err
				}
				return u.ID, nil
			},
			create: func(ctx context.Context, id string) error {
				return im.store.CreateUser(ctx, userRow(id, draft))
			},
		})
		if err == nil {
			ids[i] = id
		}
		return im.settle(transform.KindUser, draft.LegacyID, i, outcome, err)
	})

	return collectIDs(ids, func(i int) string { return drafts[i].LegacyID }), err
}

// ImportShiftTypes imports shift types by name and returns name -> target id
func (im *Importer) ImportShiftTypes(ctx context.Context, names []string) (map[string]string, error) {
	ids := make([]string, len(names))

	err := im.forEach(ctx, names, func(ctx context.Context, i int) error {
		name := names[i]
		id, outcome, err := im.importIfAbsent(ctx, importSpec{
			kind:         transform.KindShiftType,
			key:          name,
			skipExisting: true,
			find: func(ctx context.Context) (string, error) {
				st, err := im.store.FindShiftTypeByName(ctx, name)
				if err != nil {
					return "", err
				}
				return st.ID, nil
			},
			create: func(ctx context.Context, id string) error {
				return im.store.CreateShiftType(ctx, &db.ShiftType{
					ID:          id,
					Name:        name,
					Description: shiftTypeDescription,
					CreatedAt:   time.Now().UTC(),
				})
			},
		})
		if err == nil {
			ids[i] = id
		}
		return im.settle(transform.KindShiftType, name, i, outcome, err)
	})

	return collectIDs(ids, func(i int) string { return names[i] }), err
}

// ImportShifts imports shift drafts and returns legacy event id -> target shift id.
// typeIDs maps shift type names to the ids from ImportShiftTypes.
func (im *Importer) ImportShifts(ctx context.Context, drafts []model.ShiftDraft, typeIDs map[string]string) (map[string]string, error) {
	ids := make([]string, len(drafts))
	keys := make([]string, len(drafts))
	for i, draft := range drafts {
		if typeID, ok := typeIDs[draft.ShiftTypeName]; ok {
			keys[i] = fmt.Sprintf("%s|%s|%s", draft.Start.UTC().Format(time.RFC3339), draft.End.UTC().Format(time.RFC3339), typeID)
		} else {
			keys[i] = fmt.Sprintf("untyped|%d", i)
		}
	}

	err := im.forEach(ctx, keys, func(ctx context.Context, i int) error {
		draft := drafts[i]
		typeID, ok := typeIDs[draft.ShiftTypeName]
		if !ok {
			return im.settle(transform.KindShift, draft.LegacyID, i, OutcomeFailed,
				fmt.Errorf("shift type %q was not imported", draft.ShiftTypeName))
		}

		id, outcome, err := im.importIfAbsent(ctx, importSpec{
			kind:         transform.KindShift,
			key:          keys[i],
			skipExisting: im.opts.SkipExistingShifts,
			find: func(ctx context.Context) (string, error) {
				s, err := im.store.FindShiftByWindow(ctx, draft.Start, draft.End, typeID)
				if err != nil {
					return "", err
				}
				return s.ID, nil
			},
			create: func(ctx context.Context, id string) error {
				return im.store.CreateShift(ctx, &db.Shift{
					ID:          id,
					ShiftTypeID: typeID,
					Start:       draft.Start,
					End:         draft.End,
					Location:    draft.Location,
					Capacity:    draft.Capacity,
					CreatedAt:   draft.CreatedAt,
				})
			},
		})
		if err == nil {
			ids[i] = id
		}
		return im.settle(transform.KindShift, draft.LegacyID, i, outcome, err)
	})

	return collectIDs(ids, func(i int) string { return drafts[i].LegacyID }), err
}

// ImportSignups imports signup drafts whose user and shift ids are resolved.
// indexes gives each draft's position in the legacy signup list for error ordering;
// nil means the drafts are in input order.
func (im *Importer) ImportSignups(ctx context.Context, drafts []model.SignupDraft, indexes []int) error {
	keys := make([]string, len(drafts))
	for i, draft := range drafts {
		keys[i] = draft.UserID + "|" + draft.ShiftID
	}

	return im.forEach(ctx, keys, func(ctx context.Context, i int) error {
		draft := drafts[i]
		index := i
		if indexes != nil {
			index = indexes[i]
		}

		_, outcome, err := im.importIfAbsent(ctx, importSpec{
			kind:         transform.KindSignup,
			key:          keys[i],
			skipExisting: true,
			find: func(ctx context.Context) (string, error) {
				s, err := im.store.FindSignupByUserAndShift(ctx, draft.UserID, draft.ShiftID)
				if err != nil {
					return "", err
				}
				return s.ID, nil
			},
			create: func(ctx context.Context, id string) error {
				return im.store.CreateSignup(ctx, &db.Signup{
					ID:         id,
					UserID:     draft.UserID,
					ShiftID:    draft.ShiftID,
					Status:     string(draft.Status),
					CanceledAt: draft.CanceledAt,
					CreatedAt:  draft.CreatedAt,
				})
			},
		})
		return im.settle(transform.KindSignup, draft.LegacyID, index, outcome, err)
	})
}

func userRow(id string, draft model.UserDraft) *db.User {
	return &db.User{
		ID:           id,
		Email:        db.NormalizeEmail(draft.Email),
		FirstName:    draft.FirstName,
		LastName:     draft.LastName,
		Name:         draft.Name,
		Phone:        draft.Phone,
		PasswordHash: draft.PasswordHash,
		ProfilePhoto: draft.Photo.DataURI(),
		IsMigrated:   draft.Migrated,
		MigratedAt:   draft.MigratedAt,
		CreatedAt:    draft.CreatedAt,
	}
}

func collectIDs(ids []string, keyAt func(i int) string) map[string]string {
	out := make(map[string]string, len(ids))
	for i, id := range ids {
		if id != "" {
			out[keyAt(i)] = id
		}
	}
	return out
}
