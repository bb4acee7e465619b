// Package app boots the memberd server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memberd/memberd/internal/config"
	"github.com/memberd/memberd/internal/db"
	"github.com/memberd/memberd/internal/groups"
	adminapi "github.com/memberd/memberd/internal/http/api/admin"
	"github.com/memberd/memberd/internal/notify"
	"github.com/memberd/memberd/internal/profiles"
	"github.com/memberd/memberd/internal/ratelimit"
	"github.com/memberd/memberd/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// defaultSQLitePath is the database file used when no DSN is configured.
const defaultSQLitePath = "file:memberd.db"

// loginRateWindow is the fixed window for login attempt throttling.
const loginRateWindow = time.Minute

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return settings.Seed(conn)
}

// RunServer boots the HTTP server with database-backed components and shuts
// it down when the context is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)

	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSeed := settings.Seed(conn); errSeed != nil {
		return errSeed
	}

	adminCfg, errAdmin := config.LoadAdminConfig(configPath)
	if errAdmin != nil {
		return errAdmin
	}
	if errEnsure := EnsureAdminUser(conn, adminCfg); errEnsure != nil {
		return errEnsure
	}

	jwtConfig, _ := config.LoadJWTConfig(configPath)

	settingStore := settings.NewStore(conn)
	if errRefresh := settingStore.Refresh(ctx); errRefresh != nil {
		return errRefresh
	}

	groupStore := groups.NewStore(conn, groups.NewSnapshotRecorder())
	profileService := profiles.NewService(conn, groupStore)

	engine := gin.New()
	engine.Use(gin.Recovery())

	adminapi.RegisterAdminRoutes(engine, adminapi.Deps{
		DB:       conn,
		JWT:      jwtConfig,
		Groups:   groupStore,
		Profiles: profileService,
		Settings: settingStore,
		Limiter:  ratelimit.NewMemoryLimiter(loginRateWindow),
		Sender:   notify.LogSender{},
	})

	if defaultPort <= 0 {
		defaultPort = 8318
	}
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", defaultPort),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	log.Infof("listening on %s", server.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// openDatabase resolves the DSN from env/config and opens the connection.
// A missing DSN falls back to a local SQLite file.
func openDatabase(cfg config.AppConfig) (*gorm.DB, error) {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, errDSN := config.LoadDatabaseDSN(configPath)
	if errDSN != nil {
		log.WithError(errDSN).Warnf("no database dsn configured, using %s", defaultSQLitePath)
		dsn = defaultSQLitePath
	}
	return db.Open(dsn)
}
