package legacyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DecodeFunc maps a normalized record to a typed legacy value
type DecodeFunc[T any] func(Record) (T, error)

// ScrapeResult is everything collected for one resource. Err is a *PageFetchError when
// a page failed; Records still holds the pages fetched before it.
type ScrapeResult[T any] struct {
	Records      []T
	Pages        int
	RecordErrors []RecordError
	Err          error
}

type pageEnvelope struct {
	Resources   []json.RawMessage `json:"resources"`
	Data        []json.RawMessage `json:"data"`
	NextPageURL *string           `json:"next_page_url"`
}

func (e pageEnvelope) records() []json.RawMessage {
	if len(e.Resources) > 0 {
		return e.Resources
	}
	return e.Data
}

func (e pageEnvelope) next() string {
	if e.NextPageURL == nil {
		return ""
	}
	return strings.TrimSpace(*e.NextPageURL)
}

// ScrapePaged fetches every page of a resource. It stops on an empty page, a missing or
// repeated next-page link, or the configured page limit.
func ScrapePaged[T any](ctx context.Context, c *Client, session *Session, resource string, pageSize int, decode DecodeFunc[T]) ScrapeResult[T] {
	var result ScrapeResult[T]
	if pageSize <= 0 {
		pageSize = 100
	}

	lastNext := ""
	for page := 1; ; page++ {
		if page > c.opts.MaxPages {
			c.logger.Warn("Stopped scraping at page limit",
				zap.String("resource", resource),
				zap.Int("maxPages", c.opts.MaxPages))
			break
		}

		envelope, err := c.fetchPage(ctx, session, resource, page, pageSize)
		if err != nil {
			result.Err = &PageFetchError{Resource: resource, Page: page, Err: err}
			c.logger.Error("Page fetch failed, keeping partial results",
				zap.String("resource", resource),
				zap.Int("page", page),
				zap.Int("recordsSoFar", len(result.Records)),
				zap.Error(err))
			return result
		}

		raw := envelope.records()
		if len(raw) == 0 {
			break
		}
		result.Pages++

		for i, item := range raw {
			record, err := NormalizeRecord(item)
			if err != nil {
				result.RecordErrors = append(result.RecordErrors, RecordError{
					Resource: resource,
					LegacyID: fmt.Sprintf("page %d item %d", page, i+1),
					Message:  err.Error(),
				})
				continue
			}
			value, err := decode(record)
			if err != nil {
				result.RecordErrors = append(result.RecordErrors, RecordError{
					Resource: resource,
					LegacyID: record.ID,
					Message:  err.Error(),
				})
				continue
			}
			result.Records = append(result.Records, value)
		}

		c.logger.Debug("Scraped page",
			zap.String("resource", resource),
			zap.Int("page", page),
			zap.Int("records", len(raw)))

		next := envelope.next()
		if next == "" || next == lastNext {
			break
		}
		lastNext = next
	}

	c.logger.Info("Scraped resource",
		zap.String("resource", resource),
		zap.Int("pages", result.Pages),
		zap.Int("records", len(result.Records)),
		zap.Int("recordErrors", len(result.RecordErrors)))
	return result
}

func (c *Client) fetchPage(ctx context.Context, session *Session, resource string, page, pageSize int) (*pageEnvelope, error) {
	resp, err := c.request(ctx, session).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"page":    strconv.Itoa(page),
			"perPage": strconv.Itoa(pageSize),
		}).
		Get(c.resourcePath(resource))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	session.Merge(resp.Cookies())

	if isRedirect(resp.StatusCode()) {
		return nil, ErrSessionExpired
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	body := bytes.TrimSpace(resp.Body())
	var envelope pageEnvelope
	if len(body) > 0 && body[0] == '[' {
		// Bare arrays are a single unpaginated page
		if err := json.Unmarshal(body, &envelope.Resources); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return &envelope, nil
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &envelope, nil
}

func (c *Client) resourcePath(resource string) string {
	return strings.TrimRight(c.opts.APIPath, "/") + "/" + strings.Trim(resource, "/")
}
