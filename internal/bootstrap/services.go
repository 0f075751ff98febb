package bootstrap

import (
	"database/sql"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/loveliiivelaugh/exercise-tracker/config"
	redisstore "github.com/loveliiivelaugh/exercise-tracker/internal/adapters/redis"
	"github.com/loveliiivelaugh/exercise-tracker/internal/data"
	"github.com/loveliiivelaugh/exercise-tracker/internal/observability/statsd"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
	"github.com/loveliiivelaugh/exercise-tracker/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Session    *service.SessionReconciler
	Activities *service.ActivityService
	Sessions   ports.SessionStore
	Broker     ports.ExternalSignInBroker
	Metrics    *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient goredis.UniversalClient
	Logger      *slog.Logger
	Identity    ports.IdentityProvider
	Broker      ports.ExternalSignInBroker
	Analytics   ports.AnalyticsSink
	Metrics     *statsd.Client
}

// NewServices wires adapters into the service layer.
func NewServices(deps *ServiceDeps) ServiceContainer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recordRepo := data.NewUserRecordRepo(deps.DB, logger)
	activityRepo := data.NewActivityRepo(deps.DB)

	opts := service.SessionReconcilerOptions{
		Identity:              deps.Identity,
		Records:               recordRepo,
		Analytics:             deps.Analytics,
		Logger:                logger,
		SendVerificationEmail: deps.Config.Auth.SendVerificationEmail,
	}
	if deps.Metrics != nil {
		opts.Metrics = deps.Metrics
	}
	reconciler := service.NewSessionReconciler(opts)

	activities := service.NewActivityService(service.ActivityServiceOptions{
		Store:   activityRepo,
		Session: reconciler,
	})

	return ServiceContainer{
		Session:    reconciler,
		Activities: activities,
		Sessions:   redisstore.NewSessionStore(deps.RedisClient),
		Broker:     deps.Broker,
		Metrics:    deps.Metrics,
	}
}
