package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"attraction-insights/models"
	"attraction-insights/services"
)

func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

// aggregator narrows charts to ?province= and ?city= when given.
func (s *Server) aggregator(c *fiber.Ctx) *services.Aggregator {
	province, city := c.Query("province"), c.Query("city")
	if province == "" && city == "" {
		return s.agg
	}
	return s.agg.WithFilter(models.Filter{Province: province, City: city})
}

// chart runs one aggregation and renders its result, or the error payload.
func chart[T any](s *Server, c *fiber.Ctx, compute func(ctx context.Context, agg *services.Aggregator) (T, error)) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	out, err := compute(ctx, s.aggregator(c))
	if err != nil {
		s.logger.Error("[api] %s failed: %v", c.Path(), err)
		return sendError(c, ErrAggregation)
	}
	return c.JSON(out)
}

func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := s.catalog.Ping(ctx); err != nil {
		s.logger.Warn("[api] Health check failed: %v", err)
		return sendError(c, ErrUnavailable)
	}
	return c.JSON(fiber.Map{"status": "healthy", "time": time.Now()})
}

func (s *Server) statistics(c *fiber.Ctx) error {
	return chart(s, c, func(ctx context.Context, agg *services.Aggregator) (models.Summary, error) {
		return agg.Summary(ctx)
	})
}

func (s *Server) dashboard(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	d, err := s.dashboards.Snapshot(ctx)
	if err != nil {
		s.logger.Error("[api] Dashboard snapshot failed: %v", err)
		return sendError(c, ErrAggregation)
	}
	return c.JSON(d)
}

func (s *Server) refreshDashboard(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	d, err := s.dashboards.Refresh(ctx)
	if err != nil {
		s.logger.Error("[api] Dashboard refresh failed: %v", err)
		return sendError(c, ErrAggregation)
	}
	return c.JSON(d)
}

func (s *Server) ratingDistribution(c *fiber.Ctx) error {
	return chart(s, c, func(ctx context.Context, agg *services.Aggregator) (models.CountSeries, error) {
		return agg.RatingDistribution(ctx)
	})
}

func (s *Server) seasonDistribution(c *fiber.Ctx) error {
	return chart(s, c, func(ctx context.Context, agg *services.Aggregator) (models.CountSeries, error) {
		return agg.SeasonDistribution(ctx)
	})
}

func (s *Server) ratingDurationCorrelation(c *fiber.Ctx) error {
	return chart(s, c, func(ctx context.Context, agg *services.Aggregator) ([]models.RatingDuration, error) {
		return agg.RatingDurationCorrelation(ctx)
	})
}

func (s *Server) provinceDistribution(c *fiber.Ctx) error {
	req := defaultProvinceRequest()
	if err := bindQuery(c, &req); err != nil {
		return sendError(c, err)
	}
	return chart(s, c, func(ctx context.Context, agg *services.Aggregator) (models.CountSeries, error) {
		return agg.ProvinceDistribution(ctx, req.TopN)
	})
}

func (s *Server) geoDistribution(c *fiber.Ctx) error {
	return chart(s, c, func(ctx context.Context, agg *services.Aggregator) ([]models.GeoPoint, error) {
		return agg.GeoDistribution(ctx)
	})
}

func (s *Server) priceDistribution(c *fiber.Ctx) error {
	return chart(s, c, func(ctx context.Context, agg *services.Aggregator) (models.PieSeries, error) {
		return agg.PriceDistribution(ctx)
	})
}

func (s *Server) durationDistribution(c *fiber.Ctx) error {
	return chart(s, c, func(ctx context.Context, agg *services.Aggregator) (models.CountSeries, error) {
		return agg.DurationDistribution(ctx)
	})
}

func (s *Server) topAttractions(c *fiber.Ctx) error {
	req := defaultTopAttractionsRequest()
	if err := bindQuery(c, &req); err != nil {
		return sendError(c, err)
	}
	return chart(s, c, func(ctx context.Context, agg *services.Aggregator) (models.ValueSeries, error) {
		return agg.TopAttractions(ctx, req.Limit, req.MinRating)
	})
}

func (s *Server) provinces(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	provinces, err := s.catalog.Provinces(ctx)
	if err != nil {
		s.logger.Error("[api] Listing provinces failed: %v", err)
		return sendError(c, ErrDatabase)
	}
	return c.JSON(provinces)
}

func (s *Server) cities(c *fiber.Ctx) error {
	var req citiesRequest
	if err := bindQuery(c, &req); err != nil {
		return sendError(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	cities, err := s.catalog.Cities(ctx, req.Province)
	if err != nil {
		s.logger.Error("[api] Listing cities of %s failed: %v", req.Province, err)
		return sendError(c, ErrDatabase)
	}
	return c.JSON(cities)
}

func (s *Server) attractions(c *fiber.Ctx) error {
	var req attractionsRequest
	if err := bindQuery(c, &req); err != nil {
		return sendError(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	records, err := s.catalog.Query(ctx, req.filter())
	if err != nil {
		s.logger.Error("[api] Querying attractions failed: %v", err)
		return sendError(c, ErrDatabase)
	}
	if records == nil {
		records = []*models.Attraction{}
	}
	return c.JSON(fiber.Map{"total": len(records), "data": records})
}
