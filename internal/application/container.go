package application

import (
	"context"
	"fmt"
	"time"

	authapp "github.com/shieldsec/shield-cli/internal/application/auth"
	catalogapp "github.com/shieldsec/shield-cli/internal/application/catalog"
	"github.com/shieldsec/shield-cli/internal/application/workflow"
	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	"github.com/shieldsec/shield-cli/internal/domain/session"
	"github.com/shieldsec/shield-cli/internal/infrastructure/persistence/json"
	"github.com/shieldsec/shield-cli/internal/infrastructure/shieldapi"
	"go.uber.org/zap"
)

// Options configures NewContainer.
type Options struct {
	DataDir       string
	APIBaseURL    string
	APITimeout    time.Duration
	APIRateLimit  int
	SubmitTimeout time.Duration
	DefaultType   assessment.Type
	// Token overrides the stored session for this process only.
	Token  string
	Logger *zap.Logger
}

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Repositories
	SessionRepo *json.SessionRepository
	Client      *shieldapi.Client

	// Services
	AuthService    *authapp.Service
	CatalogService *catalogapp.Service

	// Session is the session every backend call is made with, or nil.
	Session *session.Session

	submitTimeout time.Duration
	defaultType   assessment.Type
	logger        *zap.Logger
}

// NewContainer creates a new application service container
func NewContainer(ctx context.Context, opts Options) (*Container, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	sessionRepo, err := json.NewSessionRepository(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create session repository: %w", err)
	}
	authService := authapp.NewService(sessionRepo)

	sess, err := authService.Current(ctx)
	if err != nil {
		// a corrupt session file should not lock the user out of login
		opts.Logger.Warn("ignoring unreadable session", zap.String("path", sessionRepo.Path()), zap.Error(err))
		sess = nil
	}
	if opts.Token != "" {
		operator := ""
		if sess != nil {
			operator = sess.Operator()
		}
		if sess, err = session.NewSession(opts.Token, operator); err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	client, err := shieldapi.NewClient(shieldapi.Config{
		BaseURL:   opts.APIBaseURL,
		Timeout:   opts.APITimeout,
		RateLimit: opts.APIRateLimit,
		Session:   sess,
		Logger:    opts.Logger.Named("shieldapi"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return &Container{
		SessionRepo:    sessionRepo,
		Client:         client,
		AuthService:    authService,
		CatalogService: catalogapp.NewService(client, client, client),
		Session:        sess,
		submitTimeout:  opts.SubmitTimeout,
		defaultType:    opts.DefaultType,
		logger:         opts.Logger,
	}, nil
}

// NewWorkflow creates a controller bound to the container's client and
// session. notifier may be nil.
func (c *Container) NewWorkflow(notifier workflow.Notifier) (*workflow.Controller, error) {
	return workflow.New(workflow.Config{
		Organizations: c.Client,
		Assessments:   c.Client,
		Session:       c.Session,
		Logger:        c.logger.Named("workflow"),
		Notifier:      notifier,
		SubmitTimeout: c.submitTimeout,
		DefaultType:   c.defaultType,
	})
}
