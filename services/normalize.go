package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"attraction-insights/config"
	"attraction-insights/models"
)

// Hours is the result of an hour extraction. Found distinguishes "0 hours"
// from "no duration in the text"; callers must skip records that are not
// found instead of counting them as zero.
type Hours struct {
	Value float64
	Found bool
}

type hourRule struct {
	pattern *regexp.Regexp
	extract func(m []string) float64
}

// HourExtractor recovers an hour estimate from free-text durations by trying
// an ordered list of patterns. The first pattern that matches wins.
type HourExtractor struct {
	rules []hourRule
}

// NewHourExtractor builds the extractor. Ranges are tried first so that
// "3-4小时" yields the midpoint rather than the trailing "4小时".
func NewHourExtractor() *HourExtractor {
	return &HourExtractor{rules: []hourRule{
		{
			pattern: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[-~～至到]\s*(\d+(?:\.\d+)?)\s*个?(?:小时|[hH])`),
			extract: func(m []string) float64 { return (parseNum(m[1]) + parseNum(m[2])) / 2 },
		},
		{
			pattern: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*个?小时以上`),
			extract: firstGroup,
		},
		{
			pattern: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*个?小时`),
			extract: firstGroup,
		},
		{
			pattern: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[hH]`),
			extract: firstGroup,
		},
	}}
}

// Extract returns the hour value found in text.
func (e *HourExtractor) Extract(text string) Hours {
	text = strings.TrimSpace(text)
	if text == "" {
		return Hours{}
	}
	for _, r := range e.rules {
		if m := r.pattern.FindStringSubmatch(text); m != nil {
			return Hours{Value: r.extract(m), Found: true}
		}
	}
	return Hours{}
}

func firstGroup(m []string) float64 { return parseNum(m[1]) }

func parseNum(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// Canonical duration labels.
const (
	Duration1To2Hours = "1-2小时"
	Duration2To4Hours = "2-4小时"
	DurationHalfDay   = "半天"
	DurationOverDay   = "1天以上"
	DurationOneDay    = "1天"
	Duration1To2Days  = "1-2天"
)

var canonicalDurations = map[string]struct{}{
	Duration1To2Hours: {},
	Duration2To4Hours: {},
	DurationHalfDay:   {},
	DurationOverDay:   {},
	DurationOneDay:    {},
	Duration1To2Days:  {},
}

// DurationNormalizer maps free-text durations to the canonical labels.
type DurationNormalizer struct {
	hours *HourExtractor
}

func NewDurationNormalizer(hours *HourExtractor) *DurationNormalizer {
	if hours == nil {
		hours = NewHourExtractor()
	}
	return &DurationNormalizer{hours: hours}
}

func (n *DurationNormalizer) Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || text == models.NaN {
		return models.Unknown
	}
	// Canonical labels pass through; "1天以上" and "1-2天" carry no hour value.
	if _, ok := canonicalDurations[text]; ok {
		return text
	}

	if h := n.hours.Extract(text); h.Found {
		switch {
		case h.Value <= 2:
			return Duration1To2Hours
		case h.Value <= 4:
			return Duration2To4Hours
		case h.Value <= 8:
			return DurationHalfDay
		default:
			return DurationOverDay
		}
	}

	switch {
	case strings.Contains(text, "半天"):
		return DurationHalfDay
	case strings.Contains(text, "一天"), strings.Contains(text, "1天"):
		return DurationOneDay
	case strings.Contains(text, "两"), strings.Contains(text, "2天"):
		return Duration1To2Days
	}
	return text
}

// PriceFormat selects how a paid price is rendered.
type PriceFormat int

const (
	// PriceAmount renders the whole-yuan amount, e.g. "60元".
	PriceAmount PriceFormat = iota
	// PriceBucket renders the canonical bucket label, e.g. "51-100元".
	PriceBucket
)

func (f PriceFormat) String() string {
	if f == PriceBucket {
		return "bucket"
	}
	return "amount"
}

// ParsePriceFormat accepts "amount" and "bucket".
func ParsePriceFormat(s string) (PriceFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "amount":
		return PriceAmount, nil
	case "bucket":
		return PriceBucket, nil
	default:
		return PriceAmount, fmt.Errorf("unknown price format %q", s)
	}
}

// Canonical price buckets.
const (
	Price1To50    = "1-50元"
	Price51To100  = "51-100元"
	Price101To200 = "101-200元"
	PriceOver200  = "200元以上"
	PriceOther    = "其他"
)

// PriceBuckets lists the chart buckets in display order.
var PriceBuckets = []string{models.Free, Price1To50, Price51To100, Price101To200, PriceOver200, PriceOther}

var yuanRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*元`)

// PriceNormalizer maps free-text ticket prices to "免费", an amount or a
// bucket label depending on the configured format.
type PriceNormalizer struct {
	freeKeywords []string
	format       PriceFormat
}

func NewPriceNormalizer(dict *config.Dictionary, format PriceFormat) *PriceNormalizer {
	return &PriceNormalizer{freeKeywords: dict.FreeKeywords, format: format}
}

func (n *PriceNormalizer) Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || text == models.NaN || text == models.Unknown {
		return models.Unknown
	}
	if n.isFree(text) {
		return models.Free
	}
	if n.format == PriceBucket && isPriceBucket(text) {
		return text
	}

	m := yuanRegexp.FindStringSubmatch(text)
	if m == nil {
		if n.format == PriceBucket {
			return PriceOther
		}
		return text
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return text
	}
	if value == 0 {
		return models.Free
	}

	if n.format == PriceBucket {
		return priceBucket(value)
	}
	if value < 1 {
		return strconv.FormatFloat(value, 'f', -1, 64) + "元"
	}
	return fmt.Sprintf("%d元", int64(math.Floor(value)))
}

// isFree reports whether text contains a free keyword. Keywords that start
// with a digit ("0元") must not be the tail of a larger number ("60元").
func (n *PriceNormalizer) isFree(text string) bool {
	for _, kw := range n.freeKeywords {
		if kw == "" {
			continue
		}
		from := 0
		for {
			idx := strings.Index(text[from:], kw)
			if idx < 0 {
				break
			}
			idx += from
			if !startsWithDigit(kw) || idx == 0 || !isNumberByte(text[idx-1]) {
				return true
			}
			from = idx + len(kw)
		}
	}
	return false
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func isNumberByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == '.'
}

func isPriceBucket(s string) bool {
	for _, b := range PriceBuckets {
		if s == b {
			return true
		}
	}
	return false
}

func priceBucket(value float64) string {
	switch {
	case value <= 50:
		return Price1To50
	case value <= 100:
		return Price51To100
	case value <= 200:
		return Price101To200
	default:
		return PriceOver200
	}
}

// SeasonNormalizer maps season descriptions to 春季/夏季/秋季/冬季, 四季皆宜 or
// a "、"-joined list of seasons.
type SeasonNormalizer struct {
	aliases     []config.SeasonAlias
	allSeason   []string
	seasons     []config.Season
	allSeasonAs string
}

func NewSeasonNormalizer(dict *config.Dictionary) *SeasonNormalizer {
	return &SeasonNormalizer{
		aliases:     dict.SeasonAliases,
		allSeason:   dict.AllSeasonKeywords,
		seasons:     dict.Seasons,
		allSeasonAs: models.AllSeasons,
	}
}

func (n *SeasonNormalizer) Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || text == models.NaN || text == models.Unknown {
		return n.allSeasonAs
	}
	for _, a := range n.aliases {
		if text == a.Key {
			return a.Value
		}
	}
	for _, kw := range n.allSeason {
		if kw != "" && strings.Contains(text, kw) {
			return n.allSeasonAs
		}
	}

	var found []string
	for _, s := range n.seasons {
		if strings.Contains(text, s.Char) {
			found = append(found, s.Name)
		}
	}
	switch {
	case len(found) >= 3:
		return n.allSeasonAs
	case len(found) > 0:
		return strings.Join(found, "、")
	default:
		return text
	}
}

// NormalizeRating parses a rating and clips it to [0, 5], so +Inf becomes 5
// and -Inf becomes 0. Unparsable text and NaN become 0.
func NormalizeRating(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(5, v))
}
