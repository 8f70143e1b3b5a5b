package legacyclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/pkg/core/model"
)

// ScrapeReport collects the non-fatal problems of a full scrape
type ScrapeReport struct {
	Pages        map[string]int
	PageErrors   []*PageFetchError
	RecordErrors []RecordError
}

// Complete reports whether every resource was read to the end
func (r ScrapeReport) Complete() bool {
	return len(r.PageErrors) == 0
}

// DecodeUser maps a users record
func DecodeUser(r Record) (model.LegacyUser, error) {
	return model.LegacyUser{
		ID:         r.ID,
		Email:      r.String("email", "email_address"),
		FirstName:  r.String("first_name", "firstName", "firstname"),
		LastName:   r.String("last_name", "lastName", "lastname"),
		Phone:      r.String("phone", "phone_number", "mobile"),
		ApprovedAt: r.String("approved_at", "approvedAt"),
		PhotoURL:   r.String("photo", "photo_url", "profile_photo_url", "profile_photo_path", "avatar"),
	}, nil
}

// DecodeEvent maps an events record
func DecodeEvent(r Record) (model.LegacyEvent, error) {
	name := r.String("name", "title")
	if name == "" {
		return model.LegacyEvent{}, errors.New("event has no name")
	}
	return model.LegacyEvent{
		ID:        r.ID,
		Name:      name,
		Date:      r.String("date", "event_date", "starts_at", "start_date"),
		Location:  r.String("location", "site", "venue"),
		Capacity:  r.Int("capacity", "volunteers_needed", "slots"),
		CreatedAt: r.String("created_at", "createdAt"),
		UpdatedAt: r.String("updated_at", "updatedAt"),
	}, nil
}

// DecodeSignup maps a signups record. Both relationship ids are required.
func DecodeSignup(r Record) (model.LegacySignup, error) {
	signup := model.LegacySignup{
		ID:         r.ID,
		UserID:     r.String("user_id", "userId", "user"),
		EventID:    r.String("event_id", "eventId", "event"),
		Status:     r.String("status", "status_id", "state"),
		Position:   r.String("position", "position_name", "role"),
		CreatedAt:  r.String("created_at", "createdAt"),
		UpdatedAt:  r.String("updated_at", "updatedAt"),
		CanceledAt: r.String("canceled_at", "cancelled_at", "canceledAt"),
	}
	if signup.UserID == "" {
		return model.LegacySignup{}, errors.New("signup has no user")
	}
	if signup.EventID == "" {
		return model.LegacySignup{}, errors.New("signup has no event")
	}
	return signup, nil
}

// ScrapeAll fetches users, events and signups concurrently
func (c *Client) ScrapeAll(ctx context.Context, session *Session, pageSize int) (*model.ScrapedDataset, ScrapeReport) {
	dataset := &model.ScrapedDataset{
		ScrapedAt: time.Now().UTC(),
		SourceURL: c.baseURL.String(),
	}
	report := ScrapeReport{Pages: make(map[string]int)}

	var (
		wg      sync.WaitGroup
		users   ScrapeResult[model.LegacyUser]
		events  ScrapeResult[model.LegacyEvent]
		signups ScrapeResult[model.LegacySignup]
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		users = ScrapePaged(ctx, c, session, c.opts.Resources.Users, pageSize, DecodeUser)
	}()
	go func() {
		defer wg.Done()
		events = ScrapePaged(ctx, c, session, c.opts.Resources.Events, pageSize, DecodeEvent)
	}()
	go func() {
		defer wg.Done()
		signups = ScrapePaged(ctx, c, session, c.opts.Resources.Signups, pageSize, DecodeSignup)
	}()
	wg.Wait()

	collect := func(resource string, pages int, recordErrors []RecordError, err error) {
		report.Pages[resource] = pages
		report.RecordErrors = append(report.RecordErrors, recordErrors...)
		var pageErr *PageFetchError
		if errors.As(err, &pageErr) {
			report.PageErrors = append(report.PageErrors, pageErr)
		}
	}
	collect(c.opts.Resources.Users, users.Pages, users.RecordErrors, users.Err)
	collect(c.opts.Resources.Events, events.Pages, events.RecordErrors, events.Err)
	collect(c.opts.Resources.Signups, signups.Pages, signups.RecordErrors, signups.Err)

	dataset.Users = users.Records
	dataset.Events = events.Records
	dataset.Signups = signups.Records

	c.logger.Info("Scrape finished",
		zap.Int("users", len(dataset.Users)),
		zap.Int("events", len(dataset.Events)),
		zap.Int("signups", len(dataset.Signups)),
		zap.Int("pageErrors", len(report.PageErrors)),
		zap.Int("recordErrors", len(report.RecordErrors)))

	return dataset, report
}
