package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"attraction-insights/services"
	"attraction-insights/utils"
)

// requestTimeout bounds every store read made on behalf of a request.
const requestTimeout = 15 * time.Second

// Catalog is the part of the store the API reads directly.
type Catalog interface {
	services.AttractionReader
	Provinces(ctx context.Context) ([]string, error)
	Cities(ctx context.Context, province string) ([]string, error)
	Ping(ctx context.Context) error
}

// Server exposes the dashboard charts over HTTP.
type Server struct {
	app        *fiber.App
	catalog    Catalog
	agg        *services.Aggregator
	dashboards *services.DashboardService
	logger     *utils.Logger
}

func NewServer(catalog Catalog, dashboards *services.DashboardService, logger *utils.Logger) *Server {
	s := &Server{
		catalog:    catalog,
		agg:        services.NewAggregator(catalog),
		dashboards: dashboards,
		logger:     logger,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "Attraction Insights",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.setupMiddlewares()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	s.app.Use(s.requestLogger)
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Accept",
	}))
	s.app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.health)

	api := s.app.Group("/api")
	api.Get("/statistics", s.statistics)
	api.Get("/dashboard", s.dashboard)
	api.Post("/dashboard/refresh", s.refreshDashboard)

	api.Get("/rating-distribution", s.ratingDistribution)
	api.Get("/season-distribution", s.seasonDistribution)
	api.Get("/rating-duration-correlation", s.ratingDurationCorrelation)
	api.Get("/province-distribution", s.provinceDistribution)
	api.Get("/geo-distribution", s.geoDistribution)
	api.Get("/price-distribution", s.priceDistribution)
	api.Get("/duration-distribution", s.durationDistribution)
	api.Get("/top-attractions", s.topAttractions)

	api.Get("/provinces", s.provinces)
	api.Get("/cities", s.cities)
	api.Get("/attractions", s.attractions)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("[api] %s %s -> %d (%v)", c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start))
	return err
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on port until Shutdown is called.
func (s *Server) Start(port string) error {
	addr := ":" + port
	s.logger.Info("[api] Listening on %s", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("[api] Shutting down")
	return s.app.ShutdownWithContext(ctx)
}
