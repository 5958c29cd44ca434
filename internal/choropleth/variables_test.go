package choropleth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Lookup(t *testing.T) {
	c := NewCatalog(MunicipalityVariables)

	assert.Equal(t, "Median Age", c.Lookup("median_age").Label)
	assert.True(t, c.Has("births"))
	assert.False(t, c.Has("population_density"))

	// Unknown keys keep their key and borrow the total population styling.
	density := c.Lookup("population_density")
	assert.Equal(t, "population_density", density.Key)
	assert.Equal(t, "Total Population", density.Label)
	assert.Equal(t, "Blues", density.Scheme)
	assert.Len(t, c.All(), 12)
}

func TestCatalog_LookupWithoutDefault(t *testing.T) {
	c := NewCatalog([]Variable{{Key: "area", Label: "Area"}})
	assert.Equal(t, "nope", c.Lookup("nope").Key)
	assert.Equal(t, "Area", c.Lookup("nope").Label)

	assert.Equal(t, "Total Population", NewCatalog(nil).Lookup("nope").Label)
	assert.Equal(t, DefaultVariable, NewCatalog(nil).Lookup("").Key)
}

func TestCatalogs_EveryEntryIsUsable(t *testing.T) {
	cats := DefaultCatalogs()
	for _, c := range []*Catalog{cats.Municipality, cats.Region} {
		for _, v := range c.All() {
			assert.NoError(t, v.Format.Validate(), v.Key)
			_, err := SchemeInterpolator(v.Scheme)
			assert.NoError(t, err, v.Key)
		}
	}
}

func TestLoadCatalogs(t *testing.T) {
	doc := `
municipality:
  - key: births
    label: Live Births
    format: grouped
    scheme: Oranges
  - key: elderly_share
    label: Share over 65
    format: percent
    scheme: Purples
`
	cats, err := LoadCatalogs(strings.NewReader(doc))
	require.NoError(t, err)

	births := cats.Municipality.Lookup("births")
	assert.Equal(t, "Live Births", births.Label)
	assert.Equal(t, "Oranges", births.Scheme)
	assert.True(t, cats.Municipality.Has("elderly_share"))
	assert.Len(t, cats.Municipality.All(), 13)
	assert.Len(t, cats.Region.All(), 6)
}

func TestLoadCatalogs_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":   "municipality: [",
		"no key":     "region:\n  - label: X\n    format: grouped\n    scheme: Blues\n",
		"bad format": "region:\n  - key: x\n    format: roman\n    scheme: Blues\n",
		"bad scheme": "region:\n  - key: x\n    format: grouped\n    scheme: Plaid\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalogs(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	cats, err := LoadCatalogFile("")
	require.NoError(t, err)
	assert.Len(t, cats.Municipality.All(), 12)

	p := filepath.Join(t.TempDir(), "variables.yaml")
	require.NoError(t, os.WriteFile(p, []byte(""), 0o644))
	cats, err = LoadCatalogFile(p)
	require.NoError(t, err)
	assert.Len(t, cats.Region.All(), 6)

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
