package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/internal/config"
	"github.com/jakechorley/legacy-migrator/pkg/clients/legacyclient"
	"github.com/jakechorley/legacy-migrator/pkg/db"
	"github.com/jakechorley/legacy-migrator/pkg/photo"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg     *config.Config
	Legacy  *legacyclient.Client
	Photos  *photo.Pipeline
	Store   db.MigrationStore
	Logger  *zap.Logger
	LogFile string
	Ctx     context.Context
}

// credentials reads the operator login from config and the password environment variable
func (app *AppContext) credentials() (legacyclient.Credentials, error) {
	password, err := app.Cfg.LegacyPassword()
	if err != nil {
		return legacyclient.Credentials{}, err
	}
	return legacyclient.Credentials{Email: app.Cfg.Legacy.Email, Password: password}, nil
}
