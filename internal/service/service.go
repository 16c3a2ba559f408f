package service

import (
	"context"
	"io"

	"drying_oven/internal/logger"
	"drying_oven/internal/models"
	"drying_oven/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Oven is the display-layer command surface of the policy controller.
type Oven interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	PauseWait(ctx context.Context) error
	ResumeFromWait(ctx context.Context) error
	SelectPreset(ctx context.Context, id int) error
	ToggleFan230(ctx context.Context) error
	ToggleLamp(ctx context.Context) error
	Presets() []models.Preset
}

// Monitoring exposes read-only state: the runtime snapshot and link diagnostics.
type Monitoring interface {
	GetState() models.OvenRuntimeSnapshot
	GetLink() models.LinkDiagnostics
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.OvenEvent, error)
}

// Controller runs the policy countdown and door observation.
// Stop via context cancellation for graceful shutdown.
type Controller interface {
	Restore(ctx context.Context) error
	Run(ctx context.Context)
}

// LinkRunner runs the serial link until the context ends or the port fails.
type LinkRunner interface {
	Run(ctx context.Context) error
}

// Service aggregates all sub-services.
type Service struct {
	Oven
	Monitoring
	EventLog
	Controller
	LinkRunner
	Authorization
}

// Deps carries what the services need beyond the repositories.
type Deps struct {
	Port io.ReadWriter
	Log  *logger.Logger
	Oven OvenConfig
	Link LinkConfig
	Auth AuthConfig
}

// NewService wires the repository layer and the serial port into concrete services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	sup := NewLinkSupervisor(deps.Port, repos.EventRepo, deps.Log.Named("link"), deps.Link)
	oven := NewOvenService(sup, repos.StateRepo, repos.EventRepo, deps.Log.Named("oven"), deps.Oven)
	return &Service{
		Oven:          oven,
		Monitoring:    NewMonitoringService(oven, sup),
		EventLog:      NewEventLogService(repos.EventRepo),
		Controller:    oven,
		LinkRunner:    sup,
		Authorization: NewAuthService(repos.Auth, deps.Auth),
	}
}
