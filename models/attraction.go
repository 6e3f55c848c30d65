package models

import (
	"strconv"
	"strings"
)

// Sentinels and defaults stored in text fields.
const (
	// Unknown marks a text field that was cleaned but carries no information.
	Unknown = "暂无信息"
	// UnnamedAttraction replaces a missing name.
	UnnamedAttraction = "未命名景点"
	// AllSeasons is the canonical all-season tag.
	AllSeasons = "四季皆宜"
	// Free is the canonical free-admission price.
	Free = "免费"
	// NaN is the literal some CSV exporters write for missing cells.
	NaN = "nan"
)

// Canonical raw field names, as written by the scrapers and the source CSV.
const (
	FieldName         = "名字"
	FieldLink         = "链接"
	FieldAddress      = "地址"
	FieldDescription  = "介绍"
	FieldOpeningHours = "开放时间"
	FieldImageURL     = "图片链接"
	FieldRating       = "评分"
	FieldDuration     = "建议游玩时间"
	FieldSeason       = "建议季节"
	FieldPrice        = "门票"
	FieldTips         = "小贴士"
	FieldLongitude    = "经度"
	FieldLatitude     = "纬度"
	FieldSource       = "数据源"
)

var fieldAliases = map[string][]string{
	FieldName:         {"name"},
	FieldLink:         {"link", "url"},
	FieldAddress:      {"address"},
	FieldDescription:  {"description"},
	FieldOpeningHours: {"opening_hours"},
	FieldImageURL:     {"image_url"},
	FieldRating:       {"rating"},
	FieldDuration:     {"recommended_duration"},
	FieldSeason:       {"recommended_season"},
	FieldPrice:        {"ticket_price", "price"},
	FieldTips:         {"tips"},
	FieldLongitude:    {"longitude", "lng"},
	FieldLatitude:     {"latitude", "lat"},
	FieldSource:       {"source"},
}

// RawRecord holds one unprocessed row as produced by a scraper or a
// spreadsheet: free-text values keyed by column name. Any field may be
// missing, empty, or the literal "nan".
type RawRecord map[string]string

// Get returns the value of field, falling back to its English aliases.
func (r RawRecord) Get(field string) string {
	if v, ok := r[field]; ok && v != "" {
		return v
	}
	for _, alias := range fieldAliases[field] {
		if v, ok := r[alias]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Attraction is the cleaned record ready for storage and aggregation.
type Attraction struct {
	ID                  int64    `db:"id" json:"id"`
	Name                string   `db:"name" json:"name"`
	Link                string   `db:"link" json:"link"`
	Address             string   `db:"address" json:"address"`
	Description         string   `db:"description" json:"description"`
	OpeningHours        string   `db:"opening_hours" json:"opening_hours"`
	ImageURL            string   `db:"image_url" json:"image_url"`
	Rating              float64  `db:"rating" json:"rating"`
	RecommendedDuration string   `db:"recommended_duration" json:"recommended_duration"`
	RecommendedSeason   string   `db:"recommended_season" json:"recommended_season"`
	TicketPrice         string   `db:"ticket_price" json:"ticket_price"`
	Tips                string   `db:"tips" json:"tips"`
	Province            string   `db:"province" json:"province"`
	City                string   `db:"city" json:"city"`
	District            string   `db:"district" json:"district"`
	Latitude            *float64 `db:"latitude" json:"latitude"`
	Longitude           *float64 `db:"longitude" json:"longitude"`
	Source              string   `db:"source" json:"source"`
}

// ToRaw converts a cleaned record back into its raw form, so it can be fed
// through the cleaner again (re-import of an exported file).
func (a *Attraction) ToRaw() RawRecord {
	r := RawRecord{
		FieldName:         a.Name,
		FieldLink:         a.Link,
		FieldAddress:      a.Address,
		FieldDescription:  a.Description,
		FieldOpeningHours: a.OpeningHours,
		FieldImageURL:     a.ImageURL,
		FieldRating:       strconv.FormatFloat(a.Rating, 'f', -1, 64),
		FieldDuration:     a.RecommendedDuration,
		FieldSeason:       a.RecommendedSeason,
		FieldPrice:        a.TicketPrice,
		FieldTips:         a.Tips,
		FieldSource:       a.Source,
	}
	if a.Latitude != nil {
		r[FieldLatitude] = strconv.FormatFloat(*a.Latitude, 'f', -1, 64)
	}
	if a.Longitude != nil {
		r[FieldLongitude] = strconv.FormatFloat(*a.Longitude, 'f', -1, 64)
	}
	return r
}

// HasInfo reports whether a text value carries information, i.e. is neither
// empty, "nan", nor the Unknown sentinel.
func HasInfo(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != NaN && s != Unknown
}

// Filter narrows a stored record set. Zero values mean "no constraint".
type Filter struct {
	Province  string
	City      string
	Season    string
	MinRating float64
	FreeOnly  bool
}
