package services

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"attraction-insights/config"
	"attraction-insights/models"
	"attraction-insights/utils"
)

// CleanerOptions selects the swappable parts of the pipeline.
type CleanerOptions struct {
	Matcher     Matcher
	PriceFormat PriceFormat
}

// Cleaner transforms RawRecords into normalized Attractions.
type Cleaner struct {
	address  *AddressParser
	price    *PriceNormalizer
	duration *DurationNormalizer
	season   *SeasonNormalizer
	logger   *utils.Logger
}

// NewCleaner wires the parser and normalizers around one dictionary.
func NewCleaner(dict *config.Dictionary, opts CleanerOptions, logger *utils.Logger) *Cleaner {
	return &Cleaner{
		address:  NewAddressParser(dict, opts.Matcher),
		price:    NewPriceNormalizer(dict, opts.PriceFormat),
		duration: NewDurationNormalizer(NewHourExtractor()),
		season:   NewSeasonNormalizer(dict),
		logger:   logger,
	}
}

// Clean normalizes every record, drops (name, address) duplicates keeping
// the first occurrence, and backfills empty text fields. A bad field never
// drops its record.
func (c *Cleaner) Clean(raw []models.RawRecord) []*models.Attraction {
	seen := make(map[string]struct{}, len(raw))
	result := make([]*models.Attraction, 0, len(raw))

	for _, r := range raw {
		a := c.normalize(r)

		key := dedupKey(a)
		if _, dup := seen[key]; dup {
			c.logger.Debug("[cleaner] Duplicate skipped: %s @ %s", a.Name, a.Address)
			continue
		}
		seen[key] = struct{}{}

		backfill(a)
		result = append(result, a)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d records (dropped %d duplicates)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

func (c *Cleaner) normalize(r models.RawRecord) *models.Attraction {
	a := &models.Attraction{
		Name:         normaliseText(r.Get(models.FieldName)),
		Link:         normaliseLink(r.Get(models.FieldLink)),
		Address:      strings.TrimSpace(r.Get(models.FieldAddress)),
		Description:  normaliseText(r.Get(models.FieldDescription)),
		OpeningHours: normaliseText(r.Get(models.FieldOpeningHours)),
		ImageURL:     normaliseText(r.Get(models.FieldImageURL)),
		Tips:         normaliseText(r.Get(models.FieldTips)),
		Source:       normaliseText(r.Get(models.FieldSource)),
		Latitude:     parseCoordinate(r.Get(models.FieldLatitude), 90),
		Longitude:    parseCoordinate(r.Get(models.FieldLongitude), 180),
	}
	if !models.HasInfo(a.Name) {
		a.Name = models.UnnamedAttraction
	}

	loc := c.address.Parse(a.Address)
	a.Province, a.City, a.District = loc.Province, loc.City, loc.District

	a.Rating = NormalizeRating(r.Get(models.FieldRating))
	a.TicketPrice = c.price.Normalize(r.Get(models.FieldPrice))
	a.RecommendedDuration = c.duration.Normalize(r.Get(models.FieldDuration))
	a.RecommendedSeason = c.season.Normalize(r.Get(models.FieldSeason))
	return a
}

// dedupKey compares names and addresses after whitespace collapse; an
// absent address and the Unknown sentinel are the same key.
func dedupKey(a *models.Attraction) string {
	addr := normaliseText(a.Address)
	if !models.HasInfo(addr) {
		addr = ""
	}
	return normaliseText(a.Name) + "\x00" + addr
}

func backfill(a *models.Attraction) {
	for _, field := range []*string{
		&a.Address, &a.Description, &a.OpeningHours,
		&a.TicketPrice, &a.RecommendedDuration, &a.RecommendedSeason, &a.Tips,
	} {
		if !models.HasInfo(*field) {
			*field = models.Unknown
		}
	}
	if a.Link == models.NaN {
		a.Link = ""
	}
	if a.ImageURL == models.NaN {
		a.ImageURL = ""
	}
	a.Rating = math.Max(0, math.Min(5, a.Rating))
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func normaliseLink(s string) string {
	s = strings.TrimSpace(s)
	if !models.HasInfo(s) {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s
	}
	return "http://" + strings.TrimPrefix(s, "//")
}

// parseCoordinate returns nil for missing, unparseable or out-of-range values.
func parseCoordinate(s string, limit float64) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || v < -limit || v > limit {
		return nil
	}
	return &v
}
