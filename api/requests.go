package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"attraction-insights/models"
	"attraction-insights/services"
)

var validate = validator.New()

type provinceRequest struct {
	TopN int `query:"top_n" validate:"gte=1,lte=100"`
}

type topAttractionsRequest struct {
	Limit     int     `query:"limit" validate:"gte=1,lte=100"`
	MinRating float64 `query:"min_rating" validate:"gte=0,lte=5"`
}

type citiesRequest struct {
	Province string `query:"province" validate:"required"`
}

type attractionsRequest struct {
	Province  string  `query:"province" validate:"omitempty,max=32"`
	City      string  `query:"city" validate:"omitempty,max=32"`
	Season    string  `query:"season" validate:"omitempty,max=32"`
	MinRating float64 `query:"min_rating" validate:"gte=0,lte=5"`
	FreeOnly  bool    `query:"free_only"`
}

func (r attractionsRequest) filter() models.Filter {
	return models.Filter{
		Province:  r.Province,
		City:      r.City,
		Season:    r.Season,
		MinRating: r.MinRating,
		FreeOnly:  r.FreeOnly,
	}
}

// bindQuery parses the query string over req's defaults and validates it.
func bindQuery(c *fiber.Ctx, req any) error {
	if err := c.QueryParser(req); err != nil {
		return invalid(err)
	}
	if err := validate.Struct(req); err != nil {
		return invalid(err)
	}
	return nil
}

func defaultProvinceRequest() provinceRequest {
	return provinceRequest{TopN: services.DefaultProvinceTopN}
}

func defaultTopAttractionsRequest() topAttractionsRequest {
	return topAttractionsRequest{Limit: services.DefaultTopLimit, MinRating: services.DefaultMinRating}
}
