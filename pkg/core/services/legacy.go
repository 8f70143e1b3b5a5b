package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/pkg/clients/legacyclient"
	"github.com/jakechorley/legacy-migrator/pkg/core/model"
)

// LegacySource is the part of the legacy client the services use
type LegacySource interface {
	Authenticate(ctx context.Context, creds legacyclient.Credentials) (*legacyclient.Session, error)
	TestConnection(ctx context.Context, session *legacyclient.Session) bool
	ScrapeAll(ctx context.Context, session *legacyclient.Session, pageSize int) (*model.ScrapedDataset, legacyclient.ScrapeReport)
	Resources() legacyclient.Resources
}

// authenticate logs in and confirms the session can read the API
func authenticate(ctx context.Context, legacy LegacySource, creds legacyclient.Credentials, logger *zap.Logger) (*legacyclient.Session, error) {
	session, err := legacy.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	if !legacy.TestConnection(ctx, session) {
		return nil, &legacyclient.AuthError{Err: errors.New("session was rejected by the connection test")}
	}

	logger.Debug("Legacy session verified")
	return session, nil
}

// TestConnection authenticates against the legacy panel and verifies the session
func TestConnection(ctx context.Context, legacy LegacySource, creds legacyclient.Credentials, logger *zap.Logger) error {
	logger.Info("Testing legacy connection", zap.String("email", creds.Email))

	if _, err := authenticate(ctx, legacy, creds, logger); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	logger.Info("Legacy connection OK")
	return nil
}

// ScrapeResult is the outcome of a standalone scrape
type ScrapeResult struct {
	Dataset *model.ScrapedDataset
	Report  legacyclient.ScrapeReport
}

// Scrape authenticates, extracts every resource and optionally saves the dataset to outPath
func Scrape(ctx context.Context, legacy LegacySource, creds legacyclient.Credentials, pageSize int, outPath string, logger *zap.Logger) (*ScrapeResult, error) {
	session, err := authenticate(ctx, legacy, creds, logger)
	if err != nil {
		return nil, err
	}

	dataset, report := legacy.ScrapeAll(ctx, session, pageSize)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scrape interrupted: %w", err)
	}

	if outPath != "" {
		if err := model.SaveDataset(outPath, dataset); err != nil {
			return nil, err
		}
		logger.Info("Saved dataset", zap.String("path", outPath))
	}

	return &ScrapeResult{Dataset: dataset, Report: report}, nil
}
