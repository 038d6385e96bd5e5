package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/config"
	"github.com/bellapacxx/bingo-live/controllers"
	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/routes"
	"github.com/bellapacxx/bingo-live/services"
	"github.com/bellapacxx/bingo-live/utils/auth"
	"github.com/bellapacxx/bingo-live/utils/logger"
	"github.com/bellapacxx/bingo-live/utils/telemetry"
)

// newHandler wires the services on top of the database.
func newHandler(cfg config.Config, db *gorm.DB) *controllers.Handler {
	catalog := services.NewPatternCatalog(db, game.NewDefaultSource(), cfg.MinPatternPositions)
	numbers := services.NewNumberLedger(db, catalog)
	cards := services.NewCardService(db, numbers, catalog)
	hub := services.NewHub(cfg.WSSendBuffer)

	return controllers.New(db, auth.NewSigner(cfg.JWTSecret, cfg.TokenTTL), services.NewUpgrader(cfg.AllowedOrigins), controllers.Services{
		Economy:  services.NewEconomyLedger(db),
		Deposits: services.NewDepositService(db),
		Payments: services.NewPaymentService(db),
		Purchases: services.NewPurchaseService(db, services.NewDBLocker(db), game.NewRandomGenerator(), services.PurchaseConfig{
			CardPrice: cfg.CardPrice,
			MaxCards:  cfg.MaxCardsPerPurchase,
			LockTTL:   cfg.PurchaseLockTTL,
		}),
		Catalog: catalog,
		Numbers: numbers,
		Cards:   cards,
		Session: services.NewSession(db, hub, numbers, cards, catalog, game.NewRandomGenerator()),
	})
}

// setupRouter initializes Gin routes and middleware
func setupRouter(cfg config.Config, h *controllers.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.SetupRoutes(r, h)
	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("[FATAL] config: %v", err)
		os.Exit(1)
	}
	if !logger.SetLevel(cfg.LogLevel) {
		logger.Warnf("unknown LOG_LEVEL %q, keeping debug", cfg.LogLevel)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		logger.Errorf("[FATAL] telemetry: %v", err)
		os.Exit(1)
	}

	db, err := config.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Errorf("[FATAL] database: %v", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, newHandler(cfg, db)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("🚀 Bingo server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, shutdownTracing(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
