package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.ApiService/controllers"
	"gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.ApiService/middleware"
	"gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.ApiService/services"
	container "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Container"
	rdgingestor "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Ingestor"
	implementation "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Repository/Implementation"
	interfaces "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Repository/Interfaces"
	resolver "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Resolver"
)

func main() {
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting reading service")

	cfg := ctr.GetConfig()

	db, err := ctr.GetDatabase()
	if err != nil {
		logger.FatalWithError(err, "Failed to initialize database")
	}

	datasetRepo := implementation.NewPostgresDatasetRepository(db)
	readingRepo := implementation.NewPostgresReadingRepository(db)
	datasetResolver := resolver.New(datasetRepo)

	// The raw-event archive is an optional collaborator; the service runs
	// without it.
	var archive interfaces.EventArchive
	if coll, err := ctr.GetArchiveCollection(); err != nil {
		logger.ErrorWithError(err, "Event archive unavailable, continuing without it")
	} else if coll != nil {
		archive = implementation.NewMongoEventArchive(coll)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestor := rdgingestor.New(cfg.MQTT, datasetResolver, readingRepo, archive, logger)
	if err := ingestor.Start(ctx, cfg.GetMQTTBrokerURL()); err != nil {
		logger.FatalWithError(err, "Failed to start ingestor")
	}

	readingService := services.NewReadingService(datasetRepo, readingRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	controllers.NewHealthController(cfg.API.Version, db).RegisterRoutes(router)
	controllers.NewDatasetController(readingService, cfg.API, logger).RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Listening on port " + cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithError(err, "HTTP server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down")

	// Stop consuming before closing the HTTP surface so queued events drain
	// into the store.
	ingestor.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "HTTP server shutdown failed")
	}

	logger.Info("Shutdown complete")
}
