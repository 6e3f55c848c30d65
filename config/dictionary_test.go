package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDictionary(t *testing.T) {
	d, err := DefaultDictionary()
	require.NoError(t, err)

	assert.Len(t, d.Provinces, 34)
	assert.Equal(t, "北京", d.Provinces[0])
	assert.Contains(t, d.Cities["广东"], "广州")
	assert.Empty(t, d.Cities["北京"], "municipalities have no city list")
	assert.Equal(t, []string{"市", "区", "县", "镇"}, d.DistrictSuffixes)
	assert.Equal(t, "四季皆宜", d.SeasonAliases[len(d.SeasonAliases)-1].Value)
}

func TestLoadDictionaryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.yaml")
	content := "provinces: [北京, 广东]\ncities:\n  广东: [广州]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := LoadDictionary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"北京", "广东"}, d.Provinces)
	assert.Len(t, d.Seasons, 4, "seasons default when omitted")
	assert.Len(t, d.DistrictSuffixes, 4)
}

func TestLoadDictionaryRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no provinces", "cities: {}\n"},
		{"unknown province", "provinces: [北京]\ncities:\n  广东: [广州]\n"},
		{"empty alias", "provinces: [北京]\nseason_aliases:\n  - {key: 春}\n"},
		{"bad yaml", "provinces: [北京\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dict.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadDictionary(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadDictionaryMissingFile(t *testing.T) {
	_, err := LoadDictionary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
