package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"attraction-insights/models"
)

// AttractionReader is the read side of the store the aggregator depends on.
// Each call is expected to run in its own read transaction.
type AttractionReader interface {
	FetchAll(ctx context.Context) ([]*models.Attraction, error)
	Query(ctx context.Context, f models.Filter) ([]*models.Attraction, error)
}

// Chart defaults.
const (
	DefaultProvinceTopN = 15
	DefaultTopLimit     = 20
	DefaultMinRating    = 4.0
	HighRatingThreshold = 4.0
	topNameRunes        = 15
	noDuration          = "暂无"
)

// RatingLabels are the rating histogram buckets: [0,2] then (2,3], (3,4],
// (4,4.5], (4.5,5].
var RatingLabels = []string{"0-2", "2-3", "3-4", "4-4.5", "4.5-5"}

var ratingEdges = []float64{2, 3, 4, 4.5, 5}

// DurationLabels are the duration histogram buckets: [0,1), [1,2), [2,3),
// [3,5), [5,10) and [10,∞).
var DurationLabels = []string{"<1小时", "1-2小时", "2-3小时", "3-5小时", "5-10小时", ">10小时"}

var durationEdges = []float64{1, 2, 3, 5, 10}

var firstIntRegexp = regexp.MustCompile(`\d+`)

// Aggregator turns stored attractions into chart-ready structures. It never
// writes to the store.
type Aggregator struct {
	reader AttractionReader
	hours  *HourExtractor
	filter *models.Filter
}

func NewAggregator(reader AttractionReader) *Aggregator {
	return &Aggregator{reader: reader, hours: NewHourExtractor()}
}

// WithFilter returns an aggregator restricted to records matching f.
func (a *Aggregator) WithFilter(f models.Filter) *Aggregator {
	return &Aggregator{reader: a.reader, hours: a.hours, filter: &f}
}

func (a *Aggregator) load(ctx context.Context) ([]*models.Attraction, error) {
	var (
		records []*models.Attraction
		err     error
	)
	if a.filter != nil {
		records, err = a.reader.Query(ctx, *a.filter)
	} else {
		records, err = a.reader.FetchAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("aggregator: load records: %w", err)
	}
	return records, nil
}

func (a *Aggregator) RatingDistribution(ctx context.Context) (models.CountSeries, error) {
	records, err := a.load(ctx)
	if err != nil {
		return models.CountSeries{}, err
	}
	return ratingDistribution(records), nil
}

func (a *Aggregator) SeasonDistribution(ctx context.Context) (models.CountSeries, error) {
	records, err := a.load(ctx)
	if err != nil {
		return models.CountSeries{}, err
	}
	return seasonDistribution(records), nil
}

// ProvinceDistribution returns the topN provinces by record count; topN <= 0
// means DefaultProvinceTopN.
func (a *Aggregator) ProvinceDistribution(ctx context.Context, topN int) (models.CountSeries, error) {
	records, err := a.load(ctx)
	if err != nil {
		return models.CountSeries{}, err
	}
	return provinceDistribution(records, topN), nil
}

func (a *Aggregator) PriceDistribution(ctx context.Context) (models.PieSeries, error) {
	records, err := a.load(ctx)
	if err != nil {
		return models.PieSeries{}, err
	}
	return priceDistribution(records), nil
}

func (a *Aggregator) DurationDistribution(ctx context.Context) (models.CountSeries, error) {
	records, err := a.load(ctx)
	if err != nil {
		return models.CountSeries{}, err
	}
	return a.durationDistribution(records), nil
}

func (a *Aggregator) RatingDurationCorrelation(ctx context.Context) ([]models.RatingDuration, error) {
	records, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return a.ratingDuration(records), nil
}

func (a *Aggregator) GeoDistribution(ctx context.Context) ([]models.GeoPoint, error) {
	records, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return geoDistribution(records), nil
}

// TopAttractions lists the best rated records at or above minRating. A
// non-positive limit means DefaultTopLimit; minRating is used as given, so 0
// admits every record.
func (a *Aggregator) TopAttractions(ctx context.Context, limit int, minRating float64) (models.ValueSeries, error) {
	records, err := a.load(ctx)
	if err != nil {
		return models.ValueSeries{}, err
	}
	return topAttractions(records, limit, minRating), nil
}

func (a *Aggregator) AverageDuration(ctx context.Context) (string, error) {
	records, err := a.load(ctx)
	if err != nil {
		return "", err
	}
	return a.averageDuration(records), nil
}

func (a *Aggregator) Summary(ctx context.Context) (models.Summary, error) {
	records, err := a.load(ctx)
	if err != nil {
		return models.Summary{}, err
	}
	return a.summary(records), nil
}

// Dashboard computes every chart over a single read of the store.
func (a *Aggregator) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	records, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{
		Summary:              a.summary(records),
		RatingDistribution:   ratingDistribution(records),
		SeasonDistribution:   seasonDistribution(records),
		ProvinceDistribution: provinceDistribution(records, DefaultProvinceTopN),
		PriceDistribution:    priceDistribution(records),
		DurationDistribution: a.durationDistribution(records),
		RatingDuration:       a.ratingDuration(records),
		GeoDistribution:      geoDistribution(records),
		TopAttractions:       topAttractions(records, DefaultTopLimit, DefaultMinRating),
		GeneratedAt:          time.Now().UTC(),
	}, nil
}

func ratingDistribution(records []*models.Attraction) models.CountSeries {
	counts := make([]int, len(RatingLabels))
	for _, r := range records {
		counts[bucketIndex(r.Rating, ratingEdges, true)]++
	}
	return models.CountSeries{Labels: RatingLabels, Data: counts}
}

// bucketIndex locates v among ascending upper edges. Right-inclusive bins
// put v == edge in the lower bucket; otherwise it goes to the upper one.
// Values past the last edge land in the last bucket.
func bucketIndex(v float64, edges []float64, rightInclusive bool) int {
	for i, edge := range edges {
		if v < edge || (rightInclusive && v == edge) {
			return i
		}
	}
	if rightInclusive {
		return len(edges) - 1
	}
	return len(edges)
}

// countInOrder counts informative values, keeping first-seen order.
func countInOrder(records []*models.Attraction, value func(*models.Attraction) string) ([]string, map[string]int) {
	var order []string
	counts := make(map[string]int)
	for _, r := range records {
		v := value(r)
		if !models.HasInfo(v) {
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	return order, counts
}

func seasonDistribution(records []*models.Attraction) models.CountSeries {
	order, counts := countInOrder(records, func(a *models.Attraction) string { return a.RecommendedSeason })
	out := models.CountSeries{Labels: make([]string, 0, len(order)), Data: make([]int, 0, len(order))}
	for _, s := range order {
		out.Labels = append(out.Labels, s)
		out.Data = append(out.Data, counts[s])
	}
	return out
}

func provinceDistribution(records []*models.Attraction, topN int) models.CountSeries {
	if topN <= 0 {
		topN = DefaultProvinceTopN
	}
	order, counts := countInOrder(records, func(a *models.Attraction) string { return a.Province })
	// Stable sort keeps first-seen order among ties.
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > topN {
		order = order[:topN]
	}
	out := models.CountSeries{Labels: make([]string, 0, len(order)), Data: make([]int, 0, len(order))}
	for _, p := range order {
		out.Labels = append(out.Labels, p)
		out.Data = append(out.Data, counts[p])
	}
	return out
}

func priceDistribution(records []*models.Attraction) models.PieSeries {
	counts := make(map[string]int, len(PriceBuckets))
	for _, r := range records {
		p := r.TicketPrice
		if !models.HasInfo(p) {
			continue
		}
		counts[priceChartBucket(p)]++
	}
	out := models.PieSeries{Data: make([]models.NameValue, 0, len(PriceBuckets))}
	for _, b := range PriceBuckets {
		if counts[b] > 0 {
			out.Data = append(out.Data, models.NameValue{Name: b, Value: counts[b]})
		}
	}
	return out
}

// priceChartBucket re-buckets a stored price by its first integer.
func priceChartBucket(price string) string {
	if isPriceBucket(price) {
		return price
	}
	m := firstIntRegexp.FindString(price)
	if m == "" {
		return PriceOther
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return PriceOther
	}
	return priceBucket(float64(n))
}

func (a *Aggregator) durationDistribution(records []*models.Attraction) models.CountSeries {
	counts := make([]int, len(DurationLabels))
	for _, r := range records {
		if h := a.hours.Extract(r.RecommendedDuration); h.Found {
			counts[bucketIndex(h.Value, durationEdges, false)]++
		}
	}
	return models.CountSeries{Labels: DurationLabels, Data: counts}
}

func (a *Aggregator) ratingDuration(records []*models.Attraction) []models.RatingDuration {
	out := make([]models.RatingDuration, 0)
	for _, r := range records {
		if r.Rating <= 0 {
			continue
		}
		if h := a.hours.Extract(r.RecommendedDuration); h.Found {
			out = append(out, models.RatingDuration{Rating: r.Rating, Duration: h.Value})
		}
	}
	return out
}

func geoDistribution(records []*models.Attraction) []models.GeoPoint {
	out := make([]models.GeoPoint, 0)
	for _, r := range records {
		if r.Latitude == nil || r.Longitude == nil {
			continue
		}
		out = append(out, models.GeoPoint{
			Name:     r.Name,
			Value:    [3]float64{*r.Latitude, *r.Longitude, r.Rating},
			Province: r.Province,
			City:     r.City,
		})
	}
	return out
}

func topAttractions(records []*models.Attraction, limit int, minRating float64) models.ValueSeries {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	rated := make([]*models.Attraction, 0, len(records))
	for _, r := range records {
		if r.Rating >= minRating {
			rated = append(rated, r)
		}
	}
	sort.SliceStable(rated, func(i, j int) bool { return rated[i].Rating > rated[j].Rating })
	if len(rated) > limit {
		rated = rated[:limit]
	}

	out := models.ValueSeries{Labels: make([]string, 0, len(rated)), Data: make([]float64, 0, len(rated))}
	for _, r := range rated {
		out.Labels = append(out.Labels, truncateRunes(r.Name, topNameRunes))
		out.Data = append(out.Data, r.Rating)
	}
	return out
}

func (a *Aggregator) averageDuration(records []*models.Attraction) string {
	var total float64
	var n int
	for _, r := range records {
		if h := a.hours.Extract(r.RecommendedDuration); h.Found {
			total += h.Value
			n++
		}
	}
	if n == 0 {
		return noDuration
	}
	avg := total / float64(n)
	if avg < 1 {
		return fmt.Sprintf("%d分钟", int(avg*60))
	}
	return fmt.Sprintf("%.1f小时", avg)
}

func (a *Aggregator) summary(records []*models.Attraction) models.Summary {
	s := models.Summary{TotalAttractions: len(records), AvgDuration: a.averageDuration(records)}
	provinces := make(map[string]struct{})
	cities := make(map[string]struct{})
	var ratingSum float64

	for _, r := range records {
		ratingSum += r.Rating
		if r.TicketPrice == models.Free {
			s.FreeAttractions++
		}
		if r.Rating >= HighRatingThreshold {
			s.HighRatedAttractions++
		}
		if r.RecommendedSeason == models.AllSeasons {
			s.SeasonAll++
		}
		if r.Province != "" {
			provinces[r.Province] = struct{}{}
		}
		if r.City != "" {
			cities[r.City] = struct{}{}
		}
	}

	s.PaidAttractions = s.TotalAttractions - s.FreeAttractions
	s.ProvinceCount = len(provinces)
	s.CityCount = len(cities)
	if len(records) > 0 {
		s.AvgRating = round2(ratingSum / float64(len(records)))
	}
	return s
}
