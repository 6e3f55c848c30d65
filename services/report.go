package services

import (
	"math"
	"sort"

	"attraction-insights/models"
)

const qualityTopProvinces = 10

// BuildQualityReport summarizes how complete a cleaned batch is. The Unknown
// sentinel does not count as a value.
func BuildQualityReport(records []*models.Attraction) *models.QualityReport {
	report := &models.QualityReport{
		TotalRecords: len(records),
		Fields:       make(map[string]models.FieldStats),
	}

	fields := map[string]func(*models.Attraction) string{
		"name":                 func(a *models.Attraction) string { return a.Name },
		"link":                 func(a *models.Attraction) string { return a.Link },
		"address":              func(a *models.Attraction) string { return a.Address },
		"description":          func(a *models.Attraction) string { return a.Description },
		"opening_hours":        func(a *models.Attraction) string { return a.OpeningHours },
		"image_url":            func(a *models.Attraction) string { return a.ImageURL },
		"recommended_duration": func(a *models.Attraction) string { return a.RecommendedDuration },
		"recommended_season":   func(a *models.Attraction) string { return a.RecommendedSeason },
		"ticket_price":         func(a *models.Attraction) string { return a.TicketPrice },
		"tips":                 func(a *models.Attraction) string { return a.Tips },
		"province":             func(a *models.Attraction) string { return a.Province },
		"city":                 func(a *models.Attraction) string { return a.City },
		"district":             func(a *models.Attraction) string { return a.District },
		"source":               func(a *models.Attraction) string { return a.Source },
	}
	for name, get := range fields {
		unique := make(map[string]struct{})
		var stats models.FieldStats
		for _, a := range records {
			v := get(a)
			if !models.HasInfo(v) {
				continue
			}
			stats.NonEmpty++
			unique[v] = struct{}{}
		}
		stats.Unique = len(unique)
		report.Fields[name] = stats
	}

	if len(records) > 0 {
		rs := models.RatingStats{Count: len(records), Min: math.Inf(1), Max: math.Inf(-1)}
		var sum float64
		for _, a := range records {
			sum += a.Rating
			rs.Min = math.Min(rs.Min, a.Rating)
			rs.Max = math.Max(rs.Max, a.Rating)
		}
		rs.Mean = round2(sum / float64(len(records)))
		report.Rating = rs
	}

	order, counts := countInOrder(records, func(a *models.Attraction) string { return a.Province })
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > qualityTopProvinces {
		order = order[:qualityTopProvinces]
	}
	report.TopProvinces = make([]models.NameValue, 0, len(order))
	for _, p := range order {
		report.TopProvinces = append(report.TopProvinces, models.NameValue{Name: p, Value: counts[p]})
	}
	return report
}
