package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/civicworks/shiftsync/pkg/auth"
	"github.com/civicworks/shiftsync/pkg/config"
	"github.com/civicworks/shiftsync/pkg/database"
	"github.com/civicworks/shiftsync/pkg/galaxy"
	"github.com/civicworks/shiftsync/pkg/handlers"
	"github.com/civicworks/shiftsync/pkg/reconcile"
	"github.com/civicworks/shiftsync/pkg/store"
	"github.com/civicworks/shiftsync/pkg/sync"
	"github.com/civicworks/shiftsync/pkg/utils"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}
	utils.InitLogger()

	if err := newRootCommand().Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "shiftsync",
		Short: "Volunteer shift attendance sync and reconciliation service",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	cmd.AddCommand(newServeCommand(&configPath))
	cmd.AddCommand(newSyncCommand(&configPath))
	cmd.AddCommand(newReconcileCommand(&configPath))
	return cmd
}

func setup(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(os.Getenv("DATABASE_URL"), os.Getenv("DATA_PATH"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return cfg, db, nil
}

// newGalaxySyncer builds a Syncer when upstream credentials are present,
// nil otherwise so the service can run on already-synced data.
func newGalaxySyncer(cfg *config.Config, db *gorm.DB) *sync.Syncer {
	apiKey := os.Getenv("GALAXY_API_KEY")
	email := os.Getenv("GALAXY_EMAIL")
	password := os.Getenv("GALAXY_PASSWORD")
	if apiKey == "" || email == "" || password == "" {
		log.Warn().Msg("galaxy credentials not set, upstream sync disabled")
		return nil
	}
	client := galaxy.New(cfg.APIBaseURL, apiKey, email, password)
	return sync.New(db, client, cfg.Resources)
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup(*configPath)
			if err != nil {
				return err
			}
			if err := auth.EnsureAdminExists(db); err != nil {
				return fmt.Errorf("ensuring admin user: %w", err)
			}

			syncer := newGalaxySyncer(cfg, db)
			reconciler := reconcile.New(db, reconcile.Options{
				SynthesizeNeedIDs: cfg.SynthesizeNeedIDs,
				FreshShiftData:    cfg.FreshShiftData,
			})

			h := &handlers.Handler{
				DB:         db,
				Statuses:   store.NewStatusStore(db),
				Meta:       store.NewMetadataStore(db),
				Reconciler: reconciler,
				Syncer:     syncer,
			}

			if syncer != nil && cfg.SyncIntervalMinutes > 0 {
				go runSyncLoop(cmd.Context(), syncer, reconciler,
					time.Duration(cfg.SyncIntervalMinutes)*time.Minute)
			}

			if os.Getenv("GIN_MODE") == "" {
				gin.SetMode(gin.ReleaseMode)
			}
			r := gin.New()
			r.Use(utils.GinLogger(), gin.Recovery())

			r.GET("/health", h.Health)
			r.POST("/admin/login", h.Login)

			admin := r.Group("/admin")
			admin.Use(h.AuthMiddleware())
			{
				admin.POST("/keys", h.GenerateKey)
				admin.GET("/keys", h.ListKeys)
				admin.PUT("/keys/:id", h.UpdateKeyLimit)
				admin.DELETE("/keys/:id", h.RevokeKey)
				admin.GET("/usage/:id", h.GetUsage)
			}

			api := r.Group("/api")
			api.Use(h.APIKeyMiddleware())
			{
				api.GET("/shifts", h.ListShifts)
				api.GET("/shifts/today", h.TodayShifts)
				api.GET("/shifts/:id", h.GetShift)
				api.GET("/users/pending-checkout", h.PendingCheckout)
				api.GET("/metadata/last-sync", h.LastSync)
				api.GET("/usage", h.GetMyUsage)
				api.POST("/reconcile", h.TriggerReconcile)
				api.POST("/sync", h.TriggerSync)
			}

			port := config.Getenv("PORT", "8000")

			log.Info().Str("port", port).Msg("server starting")
			srv := &http.Server{Addr: ":" + port, Handler: r}
			return srv.ListenAndServe()
		},
	}
}

// runSyncLoop periodically pulls fresh data and reconciles it.
func runSyncLoop(ctx context.Context, syncer *sync.Syncer, reconciler *reconcile.Reconciler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := syncer.SyncAll(ctx); err != nil {
				log.Error().Err(err).Msg("scheduled sync failed")
				continue
			}
			if _, err := reconciler.Reconcile(ctx, false); err != nil {
				log.Error().Err(err).Msg("scheduled reconciliation failed")
			}
		}
	}
}

func newSyncCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull needs, responses and hours from the upstream API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup(*configPath)
			if err != nil {
				return err
			}
			syncer := newGalaxySyncer(cfg, db)
			if syncer == nil {
				return fmt.Errorf("GALAXY_API_KEY, GALAXY_EMAIL and GALAXY_PASSWORD must be set")
			}
			return syncer.SyncAll(cmd.Context())
		},
	}
}

func newReconcileCommand(configPath *string) *cobra.Command {
	var futureOnly, fresh bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Derive shift attendance state from synced data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup(*configPath)
			if err != nil {
				return err
			}
			reconciler := reconcile.New(db, reconcile.Options{
				SynthesizeNeedIDs: cfg.SynthesizeNeedIDs,
				FreshShiftData:    fresh || cfg.FreshShiftData,
			})

			stats, err := reconciler.Reconcile(cmd.Context(), futureOnly)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&futureOnly, "future-only", false, "only process shifts starting in the future")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "clear derived shift data before writing")
	return cmd
}
