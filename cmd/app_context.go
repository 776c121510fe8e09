package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/shieldsec/shield-cli/internal/application"
	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type appContextKey struct{}

// AppContext carries everything a command needs after the root pre-run.
type AppContext struct {
	Logger   *zap.Logger
	Operator string
	DataDir  string
	Config   *CLIConfig

	// Services is built on first use so commands that never talk to the
	// backend do not fail on a bad API configuration.
	Services *application.Container

	servicesOnce sync.Once
	servicesErr  error
}

var globalAppContext *AppContext

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil && cmd.Context() != nil {
		if appCtx, ok := cmd.Context().Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	return globalAppContext
}

// services returns the application container, building it once.
func (a *AppContext) services(ctx context.Context) (*application.Container, error) {
	a.servicesOnce.Do(func() {
		if a.Services != nil {
			return
		}
		defaultType, err := assessment.ParseType(a.Config.Defaults.AssessmentType)
		if err != nil {
			a.servicesErr = err
			return
		}
		a.Services, a.servicesErr = application.NewContainer(ctx, application.Options{
			DataDir:       a.DataDir,
			APIBaseURL:    a.Config.API.BaseURL,
			APITimeout:    a.Config.apiTimeout(),
			APIRateLimit:  a.Config.API.RateLimit,
			SubmitTimeout: a.Config.submitTimeout(),
			DefaultType:   defaultType,
			Token:         a.Config.API.Token,
			Logger:        a.logger(),
		})
		if a.servicesErr != nil {
			a.servicesErr = fmt.Errorf("failed to initialize services: %w", a.servicesErr)
		}
	})
	return a.Services, a.servicesErr
}

func (a *AppContext) logger() *zap.Logger {
	if a == nil || a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
