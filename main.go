package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"prodflow/collab-gateway/config"
	"prodflow/collab-gateway/handlers"
	"prodflow/collab-gateway/internal/collab"
	"prodflow/collab-gateway/internal/storage"
	"prodflow/collab-gateway/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.InitLogger("info")
		config.Log.WithError(err).Fatal("Invalid configuration")
	}
	config.InitLogger(cfg.LogLevel)
	log := config.Log

	var store storage.TimelineStore
	switch cfg.StoreBackend {
	case config.StoreSupabase:
		store, err = storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey)
	default:
		store, err = storage.NewFileStore(cfg.DataDir)
	}
	if err != nil {
		log.WithError(err).WithField("backend", cfg.StoreBackend).Fatal("Failed to open timeline store")
	}
	defer store.Close()

	var archive collab.Archive
	if cfg.ArchiveDir != "" {
		badgerArchive, err := storage.NewBadgerArchive(cfg.ArchiveDir)
		if err != nil {
			log.WithError(err).WithField("dir", cfg.ArchiveDir).Fatal("Failed to open session archive")
		}
		defer badgerArchive.Close()
		archive = badgerArchive
	}

	hub := collab.NewHub(log, archive)
	h := handlers.NewApplicationHandler(store, hub, log)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Collaboration gateway is healthy",
		})
	})

	apiV1 := app.Group("/api/v1")

	apiV1.Get("/events", h.ListEvents)
	apiV1.Post("/events", h.CreateEvent)
	apiV1.Get("/events/:eventId", h.GetEvent)
	apiV1.Patch("/events/:eventId", h.UpdateEvent)
	apiV1.Get("/events/:eventId/briefing", h.GetBriefing)
	apiV1.Put("/events/:eventId/briefing", h.SaveBriefing)
	apiV1.Get("/events/:eventId/videos", h.ListVideoVersions)
	apiV1.Post("/events/upload-from-watcher", h.UploadFromWatcher)

	apiV1.Get("/timeline/:eventId", h.GetTimeline)
	apiV1.Post("/timeline/:eventId", h.SaveTimeline)
	apiV1.Patch("/timeline/:eventId", h.PatchTimeline)

	apiV1.Get("/sessions", h.ListSessions)

	app.Use("/ws", handlers.RequireWebsocketUpgrade)
	app.Get("/ws/session/:sessionId", h.SessionSocket())

	// Listen blocks; shut down on SIGINT/SIGTERM so the deferred store
	// and archive closes run.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		_ = app.Shutdown()
	}()

	log.WithField("port", cfg.Port).Info("Starting collaboration gateway")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
