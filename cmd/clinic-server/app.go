package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinic/scheduler/internal/config"
	"github.com/clinic/scheduler/internal/domain/identity"
	"github.com/clinic/scheduler/internal/domain/prescription"
	"github.com/clinic/scheduler/internal/domain/scheduling"
	"github.com/clinic/scheduler/internal/platform/auth"
	"github.com/clinic/scheduler/internal/platform/db"
	"github.com/clinic/scheduler/internal/platform/middleware"
)

const revocationSweepInterval = 10 * time.Minute

// app holds the wired services for one process.
type app struct {
	identity      *identity.Service
	scheduling    *scheduling.Service
	prescriptions *prescription.Service
	gate          *auth.Gate
	revoked       *auth.RevocationStore
	pool          *pgxpool.Pool
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	var (
		pool          *pgxpool.Pool
		stores        identity.Stores
		appointments  scheduling.AppointmentRepository
		prescriptions prescription.Repository
		tx            identity.TxRunner
	)
	if cfg.UsesPostgres() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		stores = identity.Stores{
			Admins:   identity.NewAdminRepo(pool),
			Doctors:  identity.NewDoctorRepo(pool),
			Patients: identity.NewPatientRepo(pool),
		}
		appointments = scheduling.NewAppointmentRepo(pool)
		prescriptions = prescription.NewRepo(pool)
		tx = db.NewTxRunner(pool)
	} else {
		stores = identity.Stores{
			Admins:   identity.NewMemoryAdminRepo(),
			Doctors:  identity.NewMemoryDoctorRepo(),
			Patients: identity.NewMemoryPatientRepo(),
		}
		appointments = scheduling.NewMemoryAppointmentRepo(stores.Doctors, stores.Patients)
		prescriptions = prescription.NewMemoryRepo(appointments)
		tx = identity.InlineTx{}
	}

	identitySvc := identity.NewService(stores, appointments, tx, auth.NewBcryptVerifier(), tokens)
	revoked := auth.NewRevocationStore(revocationSweepInterval)

	return &app{
		identity: identitySvc,
		scheduling: scheduling.NewService(appointments, stores.Doctors, loc,
			scheduling.WithLogger(logger.With().Str("component", "scheduling").Logger())),
		prescriptions: prescription.NewService(prescriptions, appointments),
		gate:          auth.NewGate(tokens, identitySvc, revoked),
		revoked:       revoked,
		pool:          pool,
	}, nil
}

func (a *app) Close() {
	a.revoked.Close()
	if a.pool != nil {
		a.pool.Close()
	}
}

// ensureAdmin creates the configured administrator if it does not exist yet.
func (a *app) ensureAdmin(ctx context.Context, cfg *config.Config) error {
	if cfg.AdminUsername == "" {
		return nil
	}
	_, err := a.identity.CreateAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if errors.Is(err, identity.ErrAdminExists) {
		return nil
	}
	return err
}

func newServer(cfg *config.Config, logger zerolog.Logger, a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool))
	}

	loginLimit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.LoginRateLimitRPS,
		BurstSize:         cfg.LoginRateLimitBurst,
		IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
	})

	apiV1 := e.Group("/api/v1")
	identity.NewHandler(a.identity, a.gate).RegisterRoutes(apiV1, loginLimit)
	scheduling.NewHandler(a.scheduling, a.gate).RegisterRoutes(apiV1)
	prescription.NewHandler(a.prescriptions, a.gate).RegisterRoutes(apiV1)

	return e
}
