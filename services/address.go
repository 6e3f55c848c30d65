package services

import (
	"regexp"
	"strings"

	"attraction-insights/config"
	"attraction-insights/models"
)

// Autonomous prefectures spell out their ethnic groups after the city name,
// as in 海南藏族自治州.
var ethnicPrefecture = regexp.MustCompile(`^\p{Han}{1,9}?自治州`)

// Location is the administrative breakdown of an address. Empty fields mean
// "not determined", which is not an error.
type Location struct {
	Province string
	City     string
	District string
}

// AddressParser extracts province, city and district from free-text Chinese
// addresses using the dictionary tables.
type AddressParser struct {
	dict             *config.Dictionary
	matcher          Matcher
	districtPatterns []*regexp.Regexp
}

// NewAddressParser compiles the district patterns for dict. A nil matcher
// means FirstMatch.
func NewAddressParser(dict *config.Dictionary, matcher Matcher) *AddressParser {
	if matcher == nil {
		matcher = FirstMatch{}
	}

	var exclude strings.Builder
	for _, sfx := range dict.DistrictSuffixes {
		exclude.WriteString(regexp.QuoteMeta(sfx))
	}
	patterns := make([]*regexp.Regexp, 0, len(dict.DistrictSuffixes))
	for _, sfx := range dict.DistrictSuffixes {
		// The run before the suffix may not hold another administrative
		// suffix, whitespace, digits or punctuation.
		patterns = append(patterns, regexp.MustCompile(`([^`+exclude.String()+`\s\d\p{P}]+`+regexp.QuoteMeta(sfx)+`)`))
	}

	return &AddressParser{dict: dict, matcher: matcher, districtPatterns: patterns}
}

// Parse resolves the location of address. Empty or "nan" input yields an
// empty Location.
//
// A province name followed by a province suffix (省, 市, 自治区, ...) wins
// over the matcher, earliest occurrence first, so 广东省广州市越秀区北京路 is
// 广东 and 青海省海南藏族自治州 is 青海. Without a suffixed name the matcher
// decides.
func (p *AddressParser) Parse(address string) Location {
	address = strings.TrimSpace(address)
	if !models.HasInfo(address) {
		return Location{}
	}

	var loc Location
	rest := address

	prov, idx := p.province(address)
	if prov != "" {
		loc.Province = prov
		rest = trimAnyPrefix(address[idx+len(prov):], p.dict.ProvinceSuffixes)
	}

	if cities := p.dict.Cities[prov]; prov != "" && len(cities) > 0 {
		if city, cidx := p.matcher.Match(rest, cities); city != "" {
			loc.City = city
			rest = rest[cidx+len(city):]
			rest = trimAnyPrefix(ethnicPrefecture.ReplaceAllString(rest, ""), p.dict.CitySuffixes)
		} else if city, _ := p.matcher.Match(address, cities); city != "" {
			loc.City = city
		}
	}

	loc.District = p.district(rest, loc)
	if loc.District == "" && prov != "" {
		// The district may precede the province, as in 东城区景山前街4号北京.
		loc.District = p.district(address[:idx], loc)
	}
	return loc
}

// province prefers the earliest suffixed province name and falls back to the
// matcher.
func (p *AddressParser) province(address string) (string, int) {
	best, bestIdx := "", -1
	for _, prov := range p.dict.Provinces {
		if prov == "" {
			continue
		}
		for off := 0; off < len(address); {
			i := strings.Index(address[off:], prov)
			if i < 0 {
				break
			}
			i += off
			if bestIdx >= 0 && (i > bestIdx || i == bestIdx && len(prov) <= len(best)) {
				break
			}
			if hasAnyPrefix(address[i+len(prov):], p.dict.ProvinceSuffixes) {
				best, bestIdx = prov, i
				break
			}
			off = i + len(prov)
		}
	}
	if best != "" {
		return best, bestIdx
	}
	return p.matcher.Match(address, p.dict.Provinces)
}

func (p *AddressParser) district(text string, loc Location) string {
	for i, re := range p.districtPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := m[1]
		bare := strings.TrimSuffix(candidate, p.dict.DistrictSuffixes[i])
		if p.isResolved(candidate, loc) || p.isResolved(bare, loc) {
			continue
		}
		return candidate
	}
	return ""
}

func (p *AddressParser) isResolved(s string, loc Location) bool {
	return s != "" && (s == loc.Province || s == loc.City)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, pfx := range prefixes {
		if pfx != "" && strings.HasPrefix(s, pfx) {
			return true
		}
	}
	return false
}

// trimAnyPrefix strips the first matching prefix; prefixes are tried in order.
func trimAnyPrefix(s string, prefixes []string) string {
	for _, pfx := range prefixes {
		if pfx != "" && strings.HasPrefix(s, pfx) {
			return s[len(pfx):]
		}
	}
	return s
}
