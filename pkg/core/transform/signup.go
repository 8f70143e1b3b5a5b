package transform

import (
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/pkg/core/model"
)

// statusCodes are the legacy numeric status values
var statusCodes = map[string]model.SignupStatus{
	"1": model.SignupPending,
	"2": model.SignupConfirmed,
	"3": model.SignupWaitlisted,
	"4": model.SignupCanceled,
	"5": model.SignupNotNeeded,
	"6": model.SignupUnavailable,
	"7": model.SignupNoShow,
	"8": model.SignupConfirmed,
	"9": model.SignupCanceled,
}

var statusLabels = map[string]model.SignupStatus{
	"pending":      model.SignupPending,
	"unconfirmed":  model.SignupPending,
	"confirmed":    model.SignupConfirmed,
	"attended":     model.SignupConfirmed,
	"approved":     model.SignupConfirmed,
	"waitlist":     model.SignupWaitlisted,
	"waitlisted":   model.SignupWaitlisted,
	"waiting list": model.SignupWaitlisted,
	"canceled":     model.SignupCanceled,
	"cancelled":    model.SignupCanceled,
	"withdrawn":    model.SignupCanceled,
	"not needed":   model.SignupNotNeeded,
	"not_needed":   model.SignupNotNeeded,
	"unavailable":  model.SignupUnavailable,
	"no show":      model.SignupNoShow,
	"no_show":      model.SignupNoShow,
	"noshow":       model.SignupNoShow,
	"absent":       model.SignupNoShow,
}

// MapStatus maps a legacy status code or label. Unknown values map to Pending with known=false.
func MapStatus(raw string) (status model.SignupStatus, known bool) {
	value := strings.TrimSpace(raw)
	if s, ok := statusCodes[value]; ok {
		return s, true
	}
	label := strings.Join(strings.Fields(strings.ToLower(value)), " ")
	if s, ok := statusLabels[label]; ok {
		return s, true
	}
	return model.SignupPending, false
}

// TransformSignup maps a legacy signup whose user and shift are already resolved
func (t *Transformer) TransformSignup(signup model.LegacySignup, userID, shiftID string) model.SignupDraft {
	status, known := MapStatus(signup.Status)
	if !known {
		t.warn(KindSignup, signup.ID, "unknown signup status, using PENDING", zap.String("status", signup.Status))
	}

	createdAt, ok := parseTimestamp(signup.CreatedAt, t.opts.Location)
	if !ok {
		createdAt = t.now()
	}

	draft := model.SignupDraft{
		LegacyID:  signup.ID,
		UserID:    userID,
		ShiftID:   shiftID,
		Status:    status,
		Position:  CanonicalShiftTypeName(signup.Position),
		CreatedAt: createdAt,
	}
	if canceledAt, ok := parseTimestamp(signup.CanceledAt, t.opts.Location); ok {
		draft.CanceledAt = &canceledAt
	}
	return draft
}
