package importer

import (
	"sort"
	"sync"

	"github.com/jakechorley/legacy-migrator/pkg/core/transform"
)

// Outcome of importing one record
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// KindStats counts outcomes for one record kind. Processed always equals Created + Skipped + Failed.
type KindStats struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Stats holds per-kind counts
type Stats struct {
	Users      KindStats `json:"users"`
	ShiftTypes KindStats `json:"shiftTypes"`
	Shifts     KindStats `json:"shifts"`
	Signups    KindStats `json:"signups"`
}

// RecordError is a per-record failure surfaced in the report
type RecordError struct {
	Kind     string `json:"kind"`
	LegacyID string `json:"legacyId"`
	Message  string `json:"message"`

	index int
}

var kindOrder = map[string]int{
	transform.KindUser:      0,
	transform.KindShiftType: 1,
	transform.KindShift:     2,
	transform.KindSignup:    3,
}

// Result accumulates stats, errors and warnings over a run. It is safe for concurrent use.
type Result struct {
	mu       sync.Mutex
	Stats    Stats         `json:"stats"`
	Errors   []RecordError `json:"errors"`
	Warnings []string      `json:"warnings"`
}

// NewResult creates an empty result
func NewResult() *Result {
	return &Result{
		Errors:   []RecordError{},
		Warnings: []string{},
	}
}

// Record counts a successful outcome
func (r *Result) Record(kind string, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.kindStats(kind)
	stats.Processed++
	switch outcome {
	case OutcomeCreated:
		stats.Created++
	case OutcomeSkipped:
		stats.Skipped++
	default:
		stats.Failed++
	}
}

// AddError counts a failed record. index is the record's position in its input batch.
func (r *Result) AddError(kind, legacyID string, index int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.kindStats(kind)
	stats.Processed++
	stats.Failed++
	r.Errors = append(r.Errors, RecordError{
		Kind:     kind,
		LegacyID: legacyID,
		Message:  err.Error(),
		index:    index,
	})
}

// AddWarning records a soft failure
func (r *Result) AddWarning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
}

// SortErrors orders errors by kind (users first) and then by input position
func (r *Result) SortErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.SliceStable(r.Errors, func(i, j int) bool {
		a, b := r.Errors[i], r.Errors[j]
		if kindOrder[a.Kind] != kindOrder[b.Kind] {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		return a.index < b.index
	})
}

// Snapshot returns a copy of the current stats
func (r *Result) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Stats
}

func (r *Result) kindStats(kind string) *KindStats {
	switch kind {
	case transform.KindUser:
		return &r.Stats.Users
	case transform.KindShiftType:
		return &r.Stats.ShiftTypes
	case transform.KindShift:
		return &r.Stats.Shifts
	default:
		return &r.Stats.Signups
	}
}
