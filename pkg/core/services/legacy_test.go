package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/pkg/clients/legacyclient"
	"github.com/jakechorley/legacy-migrator/pkg/core/model"
)

func TestTestConnection(t *testing.T) {
	creds := legacyclient.Credentials{Email: "admin@x.com", Password: "secret"}

	assert.NoError(t, TestConnection(context.Background(), &fakeLegacy{}, creds, zap.NewNop()))

	err := TestConnection(context.Background(), &fakeLegacy{rejectTest: true}, creds, zap.NewNop())
	var authErr *legacyclient.AuthError
	assert.ErrorAs(t, err, &authErr)

	loginErr := errors.New("connection refused")
	err = TestConnection(context.Background(), &fakeLegacy{authErr: loginErr}, creds, zap.NewNop())
	assert.ErrorIs(t, err, loginErr)
}

func TestScrape_SavesDataset(t *testing.T) {
	legacy := &fakeLegacy{
		dataset: sampleDataset(),
		report:  legacyclient.ScrapeReport{Pages: map[string]int{"users": 1, "events": 1, "signups": 1}},
	}
	out := filepath.Join(t.TempDir(), "dataset.json")

	result, err := Scrape(context.Background(), legacy, legacyclient.Credentials{}, 25, out, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, result.Report.Complete())
	assert.Len(t, result.Dataset.Events, 2)

	saved, err := model.LoadDataset(out)
	require.NoError(t, err)
	assert.Equal(t, "e1", saved.Events[0].ID)
}

func TestScrape_AuthFailureStopsBeforeScraping(t *testing.T) {
	legacy := &fakeLegacy{authErr: &legacyclient.AuthError{Status: 500}}

	_, err := Scrape(context.Background(), legacy, legacyclient.Credentials{}, 25, "", zap.NewNop())
	assert.Error(t, err)
	assert.Equal(t, 0, legacy.scrapeCalls)
}
