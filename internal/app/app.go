// Package app assembles the forum core from its configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/msomdec/updog/internal/config"
	"github.com/msomdec/updog/internal/domain"
	"github.com/msomdec/updog/internal/repository/sqlite"
	"github.com/msomdec/updog/internal/service"
)

// App holds the services transports build on.
type App struct {
	Users  *service.UserService
	Votes  *service.VoteService
	Spaces *service.SpaceService
	Tokens *service.JWTIssuer

	limiter *service.TokenBucket
}

// New wires the services over db, dispatching events to events.
func New(cfg *config.Config, db *sqlite.DB, events domain.EventNotifier) *App {
	a := &App{
		Spaces: service.NewSpaceService(db.Spaces(), db.Subscriptions()),
		Votes:  service.NewVoteService(db, db.Votes(), events),
		Tokens: service.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL),
	}

	var opts []service.UserOption
	if cfg.LoginBurst > 0 {
		a.limiter = service.NewTokenBucket(1/cfg.LoginRefill.Seconds(), float64(cfg.LoginBurst))
		opts = append(opts, service.WithLoginLimiter(a.limiter))
	}

	a.Users = service.NewUserService(
		service.UserStores{
			Tx:            db,
			Users:         db.Users(),
			Spaces:        db.Spaces(),
			Subscriptions: db.Subscriptions(),
		},
		service.NewBcryptHasher(cfg.BcryptCost),
		a.Tokens,
		events,
		opts...,
	)
	return a
}

// Bootstrap seeds the default spaces and reconciles the administrator
// account. It is safe to run on every start.
func (a *App) Bootstrap(ctx context.Context, cfg *config.Config) error {
	if err := a.Spaces.SeedDefaults(ctx, cfg.DefaultSpaceNames()); err != nil {
		return fmt.Errorf("seed default spaces: %w", err)
	}

	if cfg.AdminUsername == "" {
		return nil
	}
	err := a.Users.AdminRegisterOrUpdate(ctx, domain.AdminConfig{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Email:    cfg.AdminEmail,
	})
	if err != nil {
		return fmt.Errorf("reconcile admin: %w", err)
	}
	return nil
}

// Run performs background housekeeping until ctx is done.
func (a *App) Run(ctx context.Context) {
	if a.limiter != nil {
		a.limiter.RunCleanup(ctx, 5*time.Minute, 10*time.Minute)
	}
}
