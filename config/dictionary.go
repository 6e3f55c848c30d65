package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed dictionary.yaml
var defaultDictionary []byte

// SeasonAlias maps a whole season description to its canonical tag.
type SeasonAlias struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Season pairs the character searched for in free text with the canonical tag.
type Season struct {
	Char string `yaml:"char"`
	Name string `yaml:"name"`
}

// Dictionary holds the lookup tables used by the address parser and the
// field normalizers. It is loaded once at start-up and must be treated as
// read-only after that.
type Dictionary struct {
	Provinces         []string            `yaml:"provinces"`
	ProvinceSuffixes  []string            `yaml:"province_suffixes"`
	Cities            map[string][]string `yaml:"cities"`
	CitySuffixes      []string            `yaml:"city_suffixes"`
	DistrictSuffixes  []string            `yaml:"district_suffixes"`
	FreeKeywords      []string            `yaml:"free_keywords"`
	SeasonAliases     []SeasonAlias       `yaml:"season_aliases"`
	AllSeasonKeywords []string            `yaml:"all_season_keywords"`
	Seasons           []Season            `yaml:"seasons"`
}

// DefaultDictionary returns the dictionary compiled into the binary.
func DefaultDictionary() (*Dictionary, error) {
	return parseDictionary(defaultDictionary)
}

// LoadDictionary reads a dictionary from path, or the embedded default when
// path is empty.
func LoadDictionary(path string) (*Dictionary, error) {
	if path == "" {
		return DefaultDictionary()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary: read %q: %w", path, err)
	}
	return parseDictionary(data)
}

func parseDictionary(data []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("dictionary: parse yaml: %w", err)
	}

	d.setDefaults()
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	return &d, nil
}

func (d *Dictionary) setDefaults() {
	if d.Cities == nil {
		d.Cities = make(map[string][]string)
	}
	if len(d.DistrictSuffixes) == 0 {
		d.DistrictSuffixes = []string{"市", "区", "县", "镇"}
	}
	if len(d.Seasons) == 0 {
		d.Seasons = []Season{
			{Char: "春", Name: "春季"},
			{Char: "夏", Name: "夏季"},
			{Char: "秋", Name: "秋季"},
			{Char: "冬", Name: "冬季"},
		}
	}
}

func (d *Dictionary) validate() error {
	if len(d.Provinces) == 0 {
		return fmt.Errorf("at least one province is required")
	}

	known := make(map[string]bool, len(d.Provinces))
	for i, p := range d.Provinces {
		if p == "" {
			return fmt.Errorf("empty province name at index %d", i)
		}
		known[p] = true
	}

	for prov, cities := range d.Cities {
		if !known[prov] {
			return fmt.Errorf("city list for unknown province %q", prov)
		}
		for i, c := range cities {
			if c == "" {
				return fmt.Errorf("empty city name at index %d for province %q", i, prov)
			}
		}
	}

	for i, a := range d.SeasonAliases {
		if a.Key == "" || a.Value == "" {
			return fmt.Errorf("season alias at index %d must have key and value", i)
		}
	}
	for i, s := range d.Seasons {
		if s.Char == "" || s.Name == "" {
			return fmt.Errorf("season at index %d must have char and name", i)
		}
	}
	return nil
}
