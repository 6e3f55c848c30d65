package models

import "time"

// CountSeries is the {labels, data} chart shape with integer counts.
type CountSeries struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// ValueSeries is the {labels, data} chart shape with real values.
type ValueSeries struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// NameValue is one slice of a pie chart.
type NameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// PieSeries is the {data: [{name, value}]} chart shape.
type PieSeries struct {
	Data []NameValue `json:"data"`
}

// RatingDuration is one sample of the rating/duration scatter plot.
type RatingDuration struct {
	Rating   float64 `json:"rating"`
	Duration float64 `json:"duration"`
}

// GeoPoint is one map marker; Value is [lat, lng, rating].
type GeoPoint struct {
	Name     string     `json:"name"`
	Value    [3]float64 `json:"value"`
	Province string     `json:"province"`
	City     string     `json:"city"`
}

// Summary holds the headline numbers of the dashboard.
type Summary struct {
	TotalAttractions     int     `json:"total_attractions"`
	AvgRating            float64 `json:"avg_rating"`
	FreeAttractions      int     `json:"free_attractions"`
	PaidAttractions      int     `json:"paid_attractions"`
	HighRatedAttractions int     `json:"high_rated_attractions"`
	ProvinceCount        int     `json:"province_count"`
	CityCount            int     `json:"city_count"`
	SeasonAll            int     `json:"season_all"`
	AvgDuration          string  `json:"avg_duration"`
}

// Dashboard bundles every chart computed over one read of the store.
type Dashboard struct {
	Summary              Summary          `json:"summary"`
	RatingDistribution   CountSeries      `json:"rating_distribution"`
	SeasonDistribution   CountSeries      `json:"season_distribution"`
	ProvinceDistribution CountSeries      `json:"province_distribution"`
	PriceDistribution    PieSeries        `json:"price_distribution"`
	DurationDistribution CountSeries      `json:"duration_distribution"`
	RatingDuration       []RatingDuration `json:"rating_duration_correlation"`
	GeoDistribution      []GeoPoint       `json:"geo_distribution"`
	TopAttractions       ValueSeries      `json:"top_attractions"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

// BatchResult describes the outcome of importing one source.
type BatchResult struct {
	BatchID    string `json:"batch_id"`
	Source     string `json:"source"`
	RawRecords int    `json:"raw_records"`
	Stored     int    `json:"stored"`
	Err        string `json:"error,omitempty"`
}

// ImportReport summarises an import run.
type ImportReport struct {
	ProcessedBatches int           `json:"processed_batches"`
	FailedBatches    int           `json:"failed_batches"`
	RawRecords       int           `json:"raw_records"`
	StoredRecords    int           `json:"stored_records"`
	Batches          []BatchResult `json:"batches"`
}

// FieldStats counts informative and distinct values of one field.
type FieldStats struct {
	NonEmpty int `json:"non_empty"`
	Unique   int `json:"unique"`
}

// RatingStats describes the rating column.
type RatingStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// QualityReport is the data-quality summary of a cleaned batch.
type QualityReport struct {
	TotalRecords int                   `json:"total_records"`
	Fields       map[string]FieldStats `json:"fields"`
	Rating       RatingStats           `json:"rating"`
	TopProvinces []NameValue           `json:"top_provinces"`
}
