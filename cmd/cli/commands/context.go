package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/whoseonfirst/internal/config"
	"github.com/jakechorley/whoseonfirst/pkg/clients/twilioclient"
	"github.com/jakechorley/whoseonfirst/pkg/core/services"
	"github.com/jakechorley/whoseonfirst/pkg/db"
	"github.com/jakechorley/whoseonfirst/pkg/scheduler"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg        *config.Config
	Database   db.Store
	SMSClient  *twilioclient.Client
	Dispatcher *services.Dispatcher
	Settings   *services.Settings
	Scheduler  *scheduler.Manager
	Logger     *zap.Logger
	Ctx        context.Context
}
