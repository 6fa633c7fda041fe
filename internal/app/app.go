// Package app builds the storefront object graph shared by the HTTP server
// and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/redis/go-redis/v9"

	"storefront/internal/apperror"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/migrate"
	"storefront/internal/repository/kv"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	productsvc "storefront/internal/service/product"
	sessionsvc "storefront/internal/service/session"
	"storefront/internal/shopapi"
	"storefront/internal/storage"
)

// App holds the explicitly constructed services of one shopping session.
type App struct {
	Config    config.Config
	Logger    *log.Logger
	ErrorLog  *apperror.Logger
	Store     kv.Repository
	Local     *storage.Local
	Ephemeral *storage.Ephemeral
	API       *shopapi.Client
	Session   *sessionsvc.Service
	Cart      *cartsvc.Service
	Catalog   *productsvc.Service
	Checkout  *checkoutsvc.Service

	ready   func(ctx context.Context) error
	closers []func() error
}

// New opens the configured store and wires every service on top of it.
// The cart engine is subscribed to session logout.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.Local = storage.NewLocal(a.Store)
	a.Ephemeral = storage.NewEphemeral(cfg.OrderConfirmationTTL)
	a.ErrorLog = apperror.NewLogger(logger, cfg.Development())

	api, err := shopapi.New(shopapi.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout}, a.Local, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.API = api

	a.Session = sessionsvc.New(api, a.Local, logger)
	a.Cart = cartsvc.New(api, a.Local, a.Session, cartsvc.Config{
		DemoUserID: cfg.DemoUserID,
		DemoCartID: cfg.DemoCartID,
	}, logger)
	a.Session.Subscribe(a.Cart)
	a.Catalog = productsvc.New(api)
	a.Checkout = checkoutsvc.New(a.Cart, api, a.Session, a.Ephemeral, logger)
	return a, nil
}

// HTTPDeps exposes the services to the HTTP surface.
func (a *App) HTTPDeps() httpserver.Deps {
	return httpserver.Deps{
		Session:      a.Session,
		Catalog:      a.Catalog,
		Cart:         a.Cart,
		Checkout:     a.Checkout,
		Ready:        a.Ready,
		ErrorLog:     a.ErrorLog,
		AllowOrigins: a.Config.CORSAllowOrigins,
	}
}

// Ready reports whether the persistent store answers.
func (a *App) Ready(ctx context.Context) error {
	if a.ready == nil {
		return nil
	}
	return a.ready(ctx)
}

// Close releases store connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.StoreDriver {
	case config.DriverMemory, "":
		a.Store = kv.NewMemory()

	case config.DriverSQLite:
		s, err := kv.OpenSQLite(cfg.SQLitePath, cfg.StoreScope)
		if err != nil {
			return err
		}
		a.Store = s
		a.ready = s.Ping
		a.closers = append(a.closers, s.Close)

	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBPool)
		if err != nil {
			return fmt.Errorf("connect to db: %w", err)
		}
		if err := migrate.Apply(ctx, pool); err != nil {
			pool.Close()
			return fmt.Errorf("apply migrations: %w", err)
		}
		a.Store = kv.NewPostgres(pool, cfg.StoreScope, a.Logger)
		a.ready = pool.Ping
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.Store = kv.NewRedis(client, cfg.StoreScope)
		a.ready = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		a.closers = append(a.closers, client.Close)

	case config.DriverMongo:
		database, err := kv.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		if err := kv.EnsureMongoIndexes(ctx, database); err != nil {
			_ = database.Client().Disconnect(context.Background())
			return err
		}
		a.Store = kv.NewMongo(database, cfg.StoreScope)
		a.ready = func(ctx context.Context) error { return database.Client().Ping(ctx, nil) }
		a.closers = append(a.closers, func() error { return database.Client().Disconnect(context.Background()) })

	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	a.Logger.Printf("app: store ready driver=%s scope=%s", cfg.StoreDriver, cfg.StoreScope)
	return nil
}
