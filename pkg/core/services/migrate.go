package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/pkg/clients/legacyclient"
	"github.com/jakechorley/legacy-migrator/pkg/core/importer"
	"github.com/jakechorley/legacy-migrator/pkg/core/model"
	"github.com/jakechorley/legacy-migrator/pkg/core/transform"
	"github.com/jakechorley/legacy-migrator/pkg/db"
	"github.com/jakechorley/legacy-migrator/pkg/photo"
)

// MigrationState is the orchestrator's position in a run
type MigrationState string

const (
	StateIdle           MigrationState = "IDLE"
	StateAuthenticating MigrationState = "AUTHENTICATING"
	StateScraping       MigrationState = "SCRAPING"
	StateTransforming   MigrationState = "TRANSFORMING"
	StateImporting      MigrationState = "IMPORTING"
	StateDone           MigrationState = "DONE"
	StateFailed         MigrationState = "FAILED"
)

// PhotoAttacher embeds photos into user drafts
type PhotoAttacher interface {
	Attach(ctx context.Context, session *legacyclient.Session, drafts []model.UserDraft, concurrency int) []*photo.PhotoError
}

// MigrateDeps are the collaborators of a migration run
type MigrateDeps struct {
	Legacy LegacySource
	Photos PhotoAttacher // nil skips photos
	Store  db.MigrationStore
	Logger *zap.Logger
}

// MigrateOptions configure one migration run
type MigrateOptions struct {
	Credentials legacyclient.Credentials
	PageSize    int

	// Dataset skips authentication and scraping when set
	Dataset         *model.ScrapedDataset
	SaveDatasetPath string

	DryRun             bool
	SkipExistingUsers  bool
	SkipExistingShifts bool
	MarkAsMigrated     bool
	DefaultPassword    string
	PasswordHashCost   int
	Location           *time.Location

	ImportConcurrency int
	PhotoConcurrency  int

	Now           func() time.Time
	OnStateChange func(MigrationState)
}

// DatasetCounts are the number of legacy records a run worked from
type DatasetCounts struct {
	Users   int `json:"users"`
	Events  int `json:"events"`
	Signups int `json:"signups"`
}

// MigrationReport is the operator-facing summary of a run
type MigrationReport struct {
	RunID           string                 `json:"runId"`
	State           MigrationState         `json:"state"`
	DryRun          bool                   `json:"dryRun"`
	StartedAt       time.Time              `json:"startedAt"`
	FinishedAt      time.Time              `json:"finishedAt"`
	ShiftTimePolicy string                 `json:"shiftTimePolicy"`
	Dataset         DatasetCounts          `json:"dataset"`
	Stats           importer.Stats         `json:"stats"`
	Errors          []importer.RecordError `json:"errors"`
	Warnings        []string               `json:"warnings"`
	FatalError      string                 `json:"fatalError,omitempty"`
}

// Succeeded is true only when the run reached Done
func (r *MigrationReport) Succeeded() bool {
	return r.State == StateDone
}

// migration carries the state of a single run
type migration struct {
	deps    MigrateDeps
	opts    MigrateOptions
	report  *MigrationReport
	result  *importer.Result
	session *legacyclient.Session
	logger  *zap.Logger
}

// Migrate runs authentication, scraping, transformation and import in that order.
// The report is always returned; the error is set only when the run ends Failed.
func Migrate(ctx context.Context, deps MigrateDeps, opts MigrateOptions) (*MigrationReport, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	runID := uuid.New().String()
	m := &migration{
		deps: deps,
		opts: opts,
		report: &MigrationReport{
			RunID:     runID,
			State:     StateIdle,
			DryRun:    opts.DryRun,
			StartedAt: opts.Now(),
			Errors:    []importer.RecordError{},
			Warnings:  []string{},
		},
		result: importer.NewResult(),
		logger: deps.Logger.With(zap.String("run_id", runID)),
	}

	m.logger.Info("Starting migration", zap.Bool("dry_run", opts.DryRun))

	// Step 1: Obtain the dataset
	dataset := opts.Dataset
	if dataset == nil {
		var err error
		dataset, err = m.scrape(ctx)
		if err != nil {
			return m.fail(err)
		}
	} else {
		m.logger.Info("Using supplied dataset, skipping authentication and scraping",
			zap.Time("scraped_at", dataset.ScrapedAt))
	}
	m.report.Dataset = DatasetCounts{
		Users:   len(dataset.Users),
		Events:  len(dataset.Events),
		Signups: len(dataset.Signups),
	}

	// Step 2: Transform users and events
	m.setState(StateTransforming)
	transformer := transform.NewTransformer(transform.Options{
		MarkAsMigrated:   opts.MarkAsMigrated,
		DefaultPassword:  opts.DefaultPassword,
		PasswordHashCost: opts.PasswordHashCost,
		Location:         opts.Location,
		Now:              opts.Now,
	}, m.logger)
	policy := transformer.Policy()
	m.report.ShiftTimePolicy = fmt.Sprintf("%s@%s", policy.Name, policy.Version)

	users := m.transformUsers(transformer, dataset.Users)
	if m.deps.Photos != nil {
		m.attachPhotos(ctx, users)
	}
	shifts := m.transformEvents(transformer, dataset)
	m.collectWarnings(transformer)
	if err := ctx.Err(); err != nil {
		return m.fail(err)
	}

	// Step 3: Import in dependency order
	m.setState(StateImporting)
	imp := importer.NewImporter(m.deps.Store, importer.Options{
		DryRun:             opts.DryRun,
		SkipExistingUsers:  opts.SkipExistingUsers,
		SkipExistingShifts: opts.SkipExistingShifts,
		Concurrency:        opts.ImportConcurrency,
	}, m.result, m.logger)

	userIDs, err := imp.ImportUsers(ctx, users)
	if err != nil {
		return m.fail(err)
	}

	typeIDs, err := imp.ImportShiftTypes(ctx, shiftTypeNames(shifts))
	if err != nil {
		return m.fail(err)
	}

	shiftIDs, err := imp.ImportShifts(ctx, shifts, typeIDs)
	if err != nil {
		return m.fail(err)
	}

	signups, indexes := m.transformSignups(transformer, dataset.Signups, userIDs, shiftIDs)
	m.collectWarnings(transformer)
	if err := imp.ImportSignups(ctx, signups, indexes); err != nil {
		return m.fail(err)
	}

	// Step 4: Done
	m.finish(StateDone)
	stats := m.report.Stats
	m.logger.Info("Migration finished",
		zap.Int("users_created", stats.Users.Created),
		zap.Int("shifts_created", stats.Shifts.Created),
		zap.Int("signups_created", stats.Signups.Created),
		zap.Int("errors", len(m.report.Errors)),
		zap.Int("warnings", len(m.report.Warnings)))
	return m.report, nil
}

func (m *migration) setState(state MigrationState) {
	m.report.State = state
	m.logger.Info("Migration state", zap.String("state", string(state)))
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(state)
	}
}

func (m *migration) finish(state MigrationState) {
	m.result.SortErrors()
	m.report.Stats = m.result.Snapshot()
	m.report.Errors = append(m.report.Errors, m.result.Errors...)
	m.report.Warnings = append(m.report.Warnings, m.result.Warnings...)
	m.report.FinishedAt = m.opts.Now()
	m.setState(state)
}

func (m *migration) fail(err error) (*MigrationReport, error) {
	m.report.FatalError = err.Error()
	m.finish(StateFailed)
	m.logger.Error("Migration failed", zap.Error(err))
	return m.report, err
}

func (m *migration) scrape(ctx context.Context) (*model.ScrapedDataset, error) {
	m.setState(StateAuthenticating)
	session, err := authenticate(ctx, m.deps.Legacy, m.opts.Credentials, m.logger)
	if err != nil {
		return nil, err
	}
	m.session = session

	m.setState(StateScraping)
	dataset, scrapeReport := m.deps.Legacy.ScrapeAll(ctx, session, m.opts.PageSize)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, pageErr := range scrapeReport.PageErrors {
		m.result.AddWarning(fmt.Sprintf("incomplete scrape: %v", pageErr))
	}
	for _, recErr := range scrapeReport.RecordErrors {
		m.result.AddError(m.kindForResource(recErr.Resource), recErr.LegacyID, -1, errors.New(recErr.Message))
	}

	if m.opts.SaveDatasetPath != "" {
		if err := model.SaveDataset(m.opts.SaveDatasetPath, dataset); err != nil {
			m.result.AddWarning(fmt.Sprintf("dataset not saved: %v", err))
			m.logger.Warn("Failed to save dataset", zap.Error(err))
		} else {
			m.logger.Info("Saved dataset", zap.String("path", m.opts.SaveDatasetPath))
		}
	}
	return dataset, nil
}

func (m *migration) kindForResource(resource string) string {
	switch resource {
	case m.deps.Legacy.Resources().Users:
		return transform.KindUser
	case m.deps.Legacy.Resources().Events:
		return transform.KindShift
	default:
		return transform.KindSignup
	}
}

func (m *migration) transformUsers(t *transform.Transformer, legacy []model.LegacyUser) []model.UserDraft {
	drafts := make([]model.UserDraft, 0, len(legacy))
	for i, u := range legacy {
		draft, err := t.TransformUser(u)
		if err != nil {
			m.result.AddError(transform.KindUser, u.ID, i, err)
			m.logger.Warn("User not transformed", zap.String("legacy_id", u.ID), zap.Error(err))
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

func (m *migration) attachPhotos(ctx context.Context, users []model.UserDraft) {
	failures := m.deps.Photos.Attach(ctx, m.session, users, m.opts.PhotoConcurrency)
	for _, f := range failures {
		m.result.AddWarning(f.Error())
	}
}

func (m *migration) transformEvents(t *transform.Transformer, dataset *model.ScrapedDataset) []model.ShiftDraft {
	signupsByEvent := dataset.SignupsByEvent()
	drafts := make([]model.ShiftDraft, 0, len(dataset.Events))
	for i, e := range dataset.Events {
		draft, err := t.TransformEvent(e, signupsByEvent[e.ID])
		if err != nil {
			m.result.AddError(transform.KindShift, e.ID, i, err)
			m.logger.Warn("Event not transformed", zap.String("legacy_id", e.ID), zap.Error(err))
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

func (m *migration) transformSignups(t *transform.Transformer, legacy []model.LegacySignup, userIDs, shiftIDs map[string]string) ([]model.SignupDraft, []int) {
	drafts := make([]model.SignupDraft, 0, len(legacy))
	indexes := make([]int, 0, len(legacy))
	for i, s := range legacy {
		userID, ok := userIDs[s.UserID]
		if !ok {
			m.result.AddError(transform.KindSignup, s.ID, i, fmt.Errorf("user %s was not migrated", s.UserID))
			continue
		}
		shiftID, ok := shiftIDs[s.EventID]
		if !ok {
			m.result.AddError(transform.KindSignup, s.ID, i, fmt.Errorf("event %s was not migrated", s.EventID))
			continue
		}
		drafts = append(drafts, t.TransformSignup(s, userID, shiftID))
		indexes = append(indexes, i)
	}
	return drafts, indexes
}

func (m *migration) collectWarnings(t *transform.Transformer) {
	for _, w := range t.Warnings() {
		m.result.AddWarning(w)
	}
}

// shiftTypeNames lists distinct shift type names in first-seen order
func shiftTypeNames(shifts []model.ShiftDraft) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range shifts {
		if !seen[s.ShiftTypeName] {
			seen[s.ShiftTypeName] = true
			names = append(names, s.ShiftTypeName)
		}
	}
	return names
}
