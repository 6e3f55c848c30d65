package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attraction-insights/models"
	"attraction-insights/services"
	"attraction-insights/utils"
)

type fakeCatalog struct {
	records []*models.Attraction
	err     error
	pingErr error
}

func (f *fakeCatalog) FetchAll(context.Context) ([]*models.Attraction, error) {
	return f.records, f.err
}

func (f *fakeCatalog) Query(_ context.Context, filter models.Filter) ([]*models.Attraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Attraction
	for _, r := range f.records {
		if filter.Province != "" && r.Province != filter.Province {
			continue
		}
		if filter.City != "" && r.City != filter.City {
			continue
		}
		if r.Rating < filter.MinRating {
			continue
		}
		if filter.FreeOnly && r.TicketPrice != models.Free {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeCatalog) Provinces(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"北京", "浙江"}, nil
}

func (f *fakeCatalog) Cities(_ context.Context, province string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if province == "浙江" {
		return []string{"杭州", "嘉兴"}, nil
	}
	return []string{}, nil
}

func (f *fakeCatalog) Ping(context.Context) error {
	return f.pingErr
}

func lat(v float64) *float64 { return &v }

func sampleCatalog() *fakeCatalog {
	return &fakeCatalog{records: []*models.Attraction{
		{Name: "故宫博物院", Province: "北京", Rating: 4.8, TicketPrice: "60元", RecommendedDuration: "2-4小时", RecommendedSeason: "四季皆宜", Latitude: lat(39.91), Longitude: lat(116.39)},
		{Name: "西湖", Province: "浙江", City: "杭州", Rating: 4.7, TicketPrice: "免费", RecommendedDuration: "1-2小时", RecommendedSeason: "四季皆宜"},
		{Name: "古镇", Province: "浙江", City: "嘉兴", Rating: 2, TicketPrice: "300元", RecommendedDuration: "0.5小时", RecommendedSeason: "夏季"},
	}}
}

func newTestServer(catalog *fakeCatalog) *Server {
	logger := utils.NewNopLogger()
	dashboards := services.NewDashboardService(services.NewAggregator(catalog), nil, time.Minute, logger)
	return NewServer(catalog, dashboards, logger)
}

func doRequest(t *testing.T, s *Server, method, target string) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestHealth(t *testing.T) {
	status, body := doRequest(t, newTestServer(sampleCatalog()), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"healthy"`)

	down := sampleCatalog()
	down.pingErr = errors.New("connection refused")
	status, body = doRequest(t, newTestServer(down), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode[errorResponse](t, body).Error.Code)
}

func TestChartEndpoints(t *testing.T) {
	s := newTestServer(sampleCatalog())

	status, body := doRequest(t, s, http.MethodGet, "/api/rating-distribution")
	require.Equal(t, http.StatusOK, status)
	rating := decode[models.CountSeries](t, body)
	assert.Equal(t, services.RatingLabels, rating.Labels)
	assert.Equal(t, []int{1, 0, 0, 0, 2}, rating.Data)

	status, body = doRequest(t, s, http.MethodGet, "/api/duration-distribution")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[models.CountSeries](t, body).Labels, 6)

	status, body = doRequest(t, s, http.MethodGet, "/api/price-distribution")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []models.NameValue{
		{Name: "免费", Value: 1}, {Name: "51-100元", Value: 1}, {Name: "200元以上", Value: 1},
	}, decode[models.PieSeries](t, body).Data)

	status, body = doRequest(t, s, http.MethodGet, "/api/geo-distribution")
	require.Equal(t, http.StatusOK, status)
	geo := decode[[]models.GeoPoint](t, body)
	require.Len(t, geo, 1)
	assert.Equal(t, [3]float64{39.91, 116.39, 4.8}, geo[0].Value)

	status, body = doRequest(t, s, http.MethodGet, "/api/statistics")
	require.Equal(t, http.StatusOK, status)
	summary := decode[models.Summary](t, body)
	assert.Equal(t, 3, summary.TotalAttractions)
	assert.Equal(t, 1, summary.FreeAttractions)
}

func TestChartEndpointsFilterByProvince(t *testing.T) {
	s := newTestServer(sampleCatalog())

	status, body := doRequest(t, s, http.MethodGet, "/api/season-distribution?province="+url.QueryEscape("浙江"))
	require.Equal(t, http.StatusOK, status)
	seasons := decode[models.CountSeries](t, body)
	assert.Equal(t, []string{"四季皆宜", "夏季"}, seasons.Labels)
	assert.Equal(t, []int{1, 1}, seasons.Data)
}

func TestProvinceDistributionTopN(t *testing.T) {
	s := newTestServer(sampleCatalog())

	status, body := doRequest(t, s, http.MethodGet, "/api/province-distribution?top_n=1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"浙江"}, decode[models.CountSeries](t, body).Labels)

	status, body = doRequest(t, s, http.MethodGet, "/api/province-distribution?top_n=0")
	assert.Equal(t, http.StatusBadRequest, status)
	appErr := decode[errorResponse](t, body).Error
	assert.Equal(t, "INVALID_REQUEST", appErr.Code)
	assert.Contains(t, appErr.Details, "TopN")

	status, _ = doRequest(t, s, http.MethodGet, "/api/province-distribution?top_n=abc")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTopAttractions(t *testing.T) {
	s := newTestServer(sampleCatalog())

	status, body := doRequest(t, s, http.MethodGet, "/api/top-attractions")
	require.Equal(t, http.StatusOK, status)
	top := decode[models.ValueSeries](t, body)
	assert.Equal(t, []string{"故宫博物院", "西湖"}, top.Labels)
	assert.Equal(t, []float64{4.8, 4.7}, top.Data)

	status, body = doRequest(t, s, http.MethodGet, "/api/top-attractions?limit=5&min_rating=1.5")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[models.ValueSeries](t, body).Labels, 3)

	status, body = doRequest(t, s, http.MethodGet, "/api/top-attractions?min_rating=0")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []float64{4.8, 4.7, 2}, decode[models.ValueSeries](t, body).Data)

	status, _ = doRequest(t, s, http.MethodGet, "/api/top-attractions?min_rating=7")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAggregationFailureIsErrorPayload(t *testing.T) {
	broken := sampleCatalog()
	broken.err = errors.New("db gone")
	s := newTestServer(broken)

	for _, path := range []string{"/api/rating-distribution", "/api/statistics", "/api/dashboard"} {
		status, body := doRequest(t, s, http.MethodGet, path)
		assert.Equal(t, http.StatusInternalServerError, status, path)
		assert.Equal(t, "AGGREGATION_FAILED", decode[errorResponse](t, body).Error.Code, path)
	}

	status, body := doRequest(t, s, http.MethodGet, "/api/provinces")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "DATABASE_ERROR", decode[errorResponse](t, body).Error.Code)
}

func TestProvincesAndCities(t *testing.T) {
	s := newTestServer(sampleCatalog())

	status, body := doRequest(t, s, http.MethodGet, "/api/provinces")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"北京", "浙江"}, decode[[]string](t, body))

	status, body = doRequest(t, s, http.MethodGet, "/api/cities?province="+url.QueryEscape("浙江"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"杭州", "嘉兴"}, decode[[]string](t, body))

	status, _ = doRequest(t, s, http.MethodGet, "/api/cities")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAttractionsQuery(t *testing.T) {
	s := newTestServer(sampleCatalog())

	status, body := doRequest(t, s, http.MethodGet, "/api/attractions?free_only=true")
	require.Equal(t, http.StatusOK, status)
	var out struct {
		Total int                  `json:"total"`
		Data  []*models.Attraction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, "西湖", out.Data[0].Name)
}

func TestDashboardRefresh(t *testing.T) {
	s := newTestServer(sampleCatalog())

	status, body := doRequest(t, s, http.MethodPost, "/api/dashboard/refresh")
	require.Equal(t, http.StatusOK, status)
	d := decode[models.Dashboard](t, body)
	assert.Equal(t, 3, d.Summary.TotalAttractions)
	assert.Len(t, d.DurationDistribution.Labels, 6)
}

func TestUnknownRoute(t *testing.T) {
	status, body := doRequest(t, newTestServer(sampleCatalog()), http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, body).Error.Code)
}
