package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attraction-insights/models"
	"attraction-insights/utils"
)

func newTestCleaner(t *testing.T) *Cleaner {
	t.Helper()
	return NewCleaner(testDictionary(t), CleanerOptions{}, utils.NewNopLogger())
}

func TestCleanerNormalizesRecord(t *testing.T) {
	c := newTestCleaner(t)

	out := c.Clean([]models.RawRecord{{
		models.FieldName:     " 故宫  ",
		models.FieldAddress:  "北京市东城区景山前街4号",
		models.FieldRating:   "4.8",
		models.FieldPrice:    "60元",
		models.FieldDuration: "3-4小时",
		models.FieldSeason:   "四季",
	}})
	require.Len(t, out, 1)

	a := out[0]
	assert.Equal(t, "故宫", a.Name)
	assert.Equal(t, "北京", a.Province)
	assert.Equal(t, "", a.City)
	assert.Equal(t, "东城区", a.District)
	assert.Equal(t, 4.8, a.Rating)
	assert.Equal(t, "60元", a.TicketPrice)
	assert.Equal(t, "2-4小时", a.RecommendedDuration)
	assert.Equal(t, models.AllSeasons, a.RecommendedSeason)
	assert.Equal(t, "北京市东城区景山前街4号", a.Address)
}

func TestCleanerBucketFormat(t *testing.T) {
	c := NewCleaner(testDictionary(t), CleanerOptions{PriceFormat: PriceBucket}, utils.NewNopLogger())

	out := c.Clean([]models.RawRecord{{models.FieldName: "故宫", models.FieldPrice: "60元"}})
	require.Len(t, out, 1)
	assert.Equal(t, Price51To100, out[0].TicketPrice)
}

func TestCleanerEmptyAddress(t *testing.T) {
	c := newTestCleaner(t)

	out := c.Clean([]models.RawRecord{{models.FieldName: "无名湖", models.FieldAddress: ""}})
	require.Len(t, out, 1)
	assert.Equal(t, "", out[0].Province)
	assert.Equal(t, "", out[0].City)
	assert.Equal(t, "", out[0].District)
	assert.Equal(t, models.Unknown, out[0].Address)
}

func TestCleanerDedupFirstWins(t *testing.T) {
	c := newTestCleaner(t)

	out := c.Clean([]models.RawRecord{
		{models.FieldName: "A", models.FieldAddress: "X"},
		{models.FieldName: "B", models.FieldAddress: "X"},
		{models.FieldName: "A", models.FieldAddress: "X", models.FieldRating: "5"},
		{models.FieldName: " A ", models.FieldAddress: " X", models.FieldRating: "4"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, 0.0, out[0].Rating)
	assert.Equal(t, "B", out[1].Name)
}

func TestCleanerDedupTreatsMissingAddressAlike(t *testing.T) {
	c := newTestCleaner(t)

	out := c.Clean([]models.RawRecord{
		{models.FieldName: "A"},
		{models.FieldName: "A", models.FieldAddress: "nan"},
		{models.FieldName: "A", models.FieldAddress: models.Unknown},
	})
	assert.Len(t, out, 1)
}

func TestCleanerBackfill(t *testing.T) {
	c := newTestCleaner(t)

	out := c.Clean([]models.RawRecord{{
		models.FieldName:        "nan",
		models.FieldDescription: "nan",
		models.FieldLink:        "nan",
		models.FieldRating:      "abc",
	}})
	require.Len(t, out, 1)

	a := out[0]
	assert.Equal(t, models.UnnamedAttraction, a.Name)
	assert.Equal(t, models.Unknown, a.Description)
	assert.Equal(t, models.Unknown, a.OpeningHours)
	assert.Equal(t, models.Unknown, a.TicketPrice)
	assert.Equal(t, models.Unknown, a.RecommendedDuration)
	assert.Equal(t, models.Unknown, a.Tips)
	assert.Equal(t, models.AllSeasons, a.RecommendedSeason)
	assert.Equal(t, "", a.Link)
	assert.Equal(t, 0.0, a.Rating)
	assert.Nil(t, a.Latitude)
	assert.Nil(t, a.Longitude)
}

func TestCleanerTextAndLink(t *testing.T) {
	c := newTestCleaner(t)

	out := c.Clean([]models.RawRecord{
		{
			"name":               "西湖",
			"link":               "you.ctrip.com/sight/hangzhou14/49894.html",
			"description":        "  人间\t天堂 \n 西湖 ",
			"latitude":           "30.25",
			"longitude":          "120.15",
			"ticket_price":       "免费",
			"recommended_season": "春秋",
		},
		{models.FieldName: "灵隐寺", models.FieldLink: "https://example.com/lingyin", models.FieldLatitude: "95"},
	})
	require.Len(t, out, 2)

	assert.Equal(t, "http://you.ctrip.com/sight/hangzhou14/49894.html", out[0].Link)
	assert.Equal(t, "人间 天堂 西湖", out[0].Description)
	require.NotNil(t, out[0].Latitude)
	assert.Equal(t, 30.25, *out[0].Latitude)
	require.NotNil(t, out[0].Longitude)
	assert.Equal(t, 120.15, *out[0].Longitude)
	assert.Equal(t, models.Free, out[0].TicketPrice)
	assert.Equal(t, "春季、秋季", out[0].RecommendedSeason)

	assert.Equal(t, "https://example.com/lingyin", out[1].Link)
	assert.Nil(t, out[1].Latitude)
}

func TestCleanerRatingClamp(t *testing.T) {
	c := newTestCleaner(t)

	cases := []struct {
		raw  string
		want float64
	}{
		{"4.5", 4.5},
		{"9", 5},
		{"-3", 0},
		{"", 0},
		{"five", 0},
	}
	for _, tc := range cases {
		out := c.Clean([]models.RawRecord{{models.FieldName: "x", models.FieldRating: tc.raw}})
		require.Len(t, out, 1)
		if out[0].Rating != tc.want {
			t.Errorf("rating %q: got %v, want %v", tc.raw, out[0].Rating, tc.want)
		}
	}
}

func TestCleanerIdempotent(t *testing.T) {
	c := newTestCleaner(t)

	raw := []models.RawRecord{
		{
			models.FieldName:     " 故宫  ",
			models.FieldAddress:  "北京市东城区景山前街4号",
			models.FieldRating:   "4.8",
			models.FieldPrice:    "60元",
			models.FieldDuration: "3-4小时",
			models.FieldSeason:   "四季",
			models.FieldLink:     "www.dpm.org.cn",
		},
		{
			models.FieldName:      "九寨沟",
			models.FieldAddress:   "四川省阿坝州九寨沟县",
			models.FieldRating:    "7",
			models.FieldPrice:     "门票169元",
			models.FieldDuration:  "一天",
			models.FieldSeason:    "秋冬",
			models.FieldLatitude:  "33.26",
			models.FieldLongitude: "103.92",
		},
		{models.FieldName: "无名", models.FieldPrice: "详见官网", models.FieldDuration: "看心情"},
		{models.FieldName: "", models.FieldSeason: "雨后"},
	}

	first := c.Clean(raw)
	again := make([]models.RawRecord, 0, len(first))
	for _, a := range first {
		again = append(again, a.ToRaw())
	}
	second := c.Clean(again)

	assert.Equal(t, first, second)
}
