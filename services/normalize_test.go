package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attraction-insights/config"
	"attraction-insights/models"
)

func testDictionary(t *testing.T) *config.Dictionary {
	t.Helper()
	dict, err := config.DefaultDictionary()
	require.NoError(t, err)
	return dict
}

func TestHourExtractor(t *testing.T) {
	e := NewHourExtractor()
	cases := []struct {
		input string
		want  Hours
	}{
		{"3-4小时", Hours{3.5, true}},
		{"1-2小时", Hours{1.5, true}},
		{"2~3个小时", Hours{2.5, true}},
		{"1.5-2.5h", Hours{2, true}},
		{"3小时以上", Hours{3, true}},
		{"约2小时", Hours{2, true}},
		{"1.5个小时", Hours{1.5, true}},
		{"2h", Hours{2, true}},
		{"0小时", Hours{0, true}},
		{"半天", Hours{}},
		{"", Hours{}},
		{"暂无信息", Hours{}},
	}
	for _, tc := range cases {
		got := e.Extract(tc.input)
		if got != tc.want {
			t.Errorf("Extract(%q): got %+v, want %+v", tc.input, got, tc.want)
		}
	}
}

func TestHourExtractorRangeMidpoint(t *testing.T) {
	e := NewHourExtractor()
	for n := 0; n <= 12; n++ {
		for m := n; m <= 12; m++ {
			text := fmt.Sprintf("%d-%d小时", n, m)
			got := e.Extract(text)
			want := float64(n+m) / 2
			if !got.Found || got.Value != want {
				t.Errorf("Extract(%q): got %+v, want %.1f", text, got, want)
			}
		}
	}
}

func TestDurationNormalizer(t *testing.T) {
	n := NewDurationNormalizer(nil)
	cases := []struct {
		input string
		want  string
	}{
		{"", models.Unknown},
		{"nan", models.Unknown},
		{"1小时", "1-2小时"},
		{"2小时", "1-2小时"},
		{"3-4小时", "2-4小时"},
		{"4小时", "2-4小时"},
		{"5小时以上", "半天"},
		{"8h", "半天"},
		{"10小时", "1天以上"},
		{"建议半天", "半天"},
		{"一天", "1天"},
		{"1天", "1天"},
		{"两天", "1-2天"},
		{"2天", "1-2天"},
		{"看心情", "看心情"},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.input); got != tc.want {
			t.Errorf("Normalize(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDurationNormalizerIdempotent(t *testing.T) {
	n := NewDurationNormalizer(nil)
	for _, in := range []string{"3-4小时", "10小时", "一天", "两天", "半天", "", "看心情", "0.5小时"} {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestPriceNormalizerAmount(t *testing.T) {
	n := NewPriceNormalizer(testDictionary(t), PriceAmount)
	cases := []struct {
		input string
		want  string
	}{
		{"", models.Unknown},
		{"nan", models.Unknown},
		{"免费", models.Free},
		{"免费开放", models.Free},
		{"0元", models.Free},
		{"无需门票", models.Free},
		{"景区不收费", models.Free},
		{"0.0元", models.Free},
		{"60元", "60元"},
		{"门票60元", "60元"},
		{"成人 120.5 元", "120元"},
		{"0.5元", "0.5元"},
		{"100元/人，学生半价", "100元"},
		{"详见官网", "详见官网"},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.input); got != tc.want {
			t.Errorf("Normalize(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestPriceNormalizerBucket(t *testing.T) {
	n := NewPriceNormalizer(testDictionary(t), PriceBucket)
	cases := []struct {
		input string
		want  string
	}{
		{"免费", models.Free},
		{"30元", Price1To50},
		{"50元", Price1To50},
		{"60元", Price51To100},
		{"100元", Price51To100},
		{"150元", Price101To200},
		{"200元", Price101To200},
		{"260元", PriceOver200},
		{"详见官网", PriceOther},
		{Price51To100, Price51To100},
		{PriceOther, PriceOther},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.input); got != tc.want {
			t.Errorf("Normalize(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestPriceFreeKeywordsAlwaysFree(t *testing.T) {
	dict := testDictionary(t)
	for _, format := range []PriceFormat{PriceAmount, PriceBucket} {
		n := NewPriceNormalizer(dict, format)
		for _, kw := range dict.FreeKeywords {
			for _, text := range []string{kw, "门票" + kw, kw + "，需预约", "成人票" + kw + "起"} {
				assert.Equal(t, models.Free, n.Normalize(text), "format %s text %q", format, text)
			}
		}
	}
}

func TestParsePriceFormat(t *testing.T) {
	f, err := ParsePriceFormat("bucket")
	require.NoError(t, err)
	assert.Equal(t, PriceBucket, f)

	f, err = ParsePriceFormat("")
	require.NoError(t, err)
	assert.Equal(t, PriceAmount, f)

	_, err = ParsePriceFormat("range")
	assert.Error(t, err)
}

func TestSeasonNormalizer(t *testing.T) {
	n := NewSeasonNormalizer(testDictionary(t))
	cases := []struct {
		input string
		want  string
	}{
		{"", models.AllSeasons},
		{"nan", models.AllSeasons},
		{"春", "春季"},
		{"夏天", "夏季"},
		{"秋季", "秋季"},
		{"全年", models.AllSeasons},
		{"四季", models.AllSeasons},
		{"四季皆宜", models.AllSeasons},
		{"常年开放", models.AllSeasons},
		{"春秋两季最佳", "春季、秋季"},
		{"秋冬", "秋季、冬季"},
		{"春夏秋", models.AllSeasons},
		{"夏季避暑胜地", "夏季"},
		{"雨后", "雨后"},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.input); got != tc.want {
			t.Errorf("Normalize(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSeasonNormalizerIdempotent(t *testing.T) {
	n := NewSeasonNormalizer(testDictionary(t))
	for _, in := range []string{"春秋两季最佳", "冬", "全年", "", "雨后", "夏冬"} {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestNormalizeRating(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{"4.8", 4.8},
		{" 3 ", 3},
		{"5.0", 5},
		{"7.5", 5},
		{"-1", 0},
		{"", 0},
		{"nan", 0},
		{"NaN", 0},
		{"inf", 5},
		{"+Inf", 5},
		{"-inf", 0},
		{"1e400", 5},
		{"4.5分", 0},
		{"good", 0},
	}
	for _, tc := range cases {
		if got := NormalizeRating(tc.input); got != tc.want {
			t.Errorf("NormalizeRating(%q): got %v, want %v", tc.input, got, tc.want)
		}
	}
}
