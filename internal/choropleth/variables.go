// Package choropleth joins boundary features to temporal data, colors them
// on a sequential scale and draws the result.
package choropleth

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultVariable lends its descriptor to unknown keys.
const DefaultVariable = "population_total"

// Variable describes how one data field is labeled, formatted and colored.
type Variable struct {
	Key    string `yaml:"key" json:"key"`
	Label  string `yaml:"label" json:"label"`
	Format Format `yaml:"format" json:"format"`
	Scheme string `yaml:"scheme" json:"scheme"`
}

// MunicipalityVariables is the municipality map catalog.
var MunicipalityVariables = []Variable{
	{Key: "population_total", Label: "Total Population", Format: FormatGrouped, Scheme: "Blues"},
	{Key: "population_male", Label: "Male Population", Format: FormatGrouped, Scheme: "Blues"},
	{Key: "population_female", Label: "Female Population", Format: FormatGrouped, Scheme: "Blues"},
	{Key: "births", Label: "Births", Format: FormatGrouped, Scheme: "Greens"},
	{Key: "deaths", Label: "Deaths", Format: FormatGrouped, Scheme: "Reds"},
	{Key: "net_migration", Label: "Net Migration", Format: FormatGrouped, Scheme: "RdBu"},
	{Key: "median_age", Label: "Median Age", Format: FormatFixed1, Scheme: SchemeViridis},
	{Key: "avg_household_size", Label: "Avg. Household Size", Format: FormatFixed2, Scheme: "YlOrRd"},
	{Key: "households_total", Label: "Total Households", Format: FormatGrouped, Scheme: "Purples"},
	{Key: "median_income_dkk", Label: "Median Income (DKK)", Format: FormatRounded, Scheme: "Greens"},
	{Key: "employment_rate", Label: "Employment Rate", Format: FormatPercent, Scheme: "Greens"},
	{Key: "unemployment_rate", Label: "Unemployment Rate", Format: FormatPercent, Scheme: "Reds"},
}

// RegionVariables is the region map catalog.
var RegionVariables = []Variable{
	{Key: "population_total", Label: "Total Population", Format: FormatGrouped, Scheme: "Blues"},
	{Key: "population_density", Label: "Population Density", Format: FormatFixed1, Scheme: "YlOrRd"},
	{Key: "area", Label: "Area (km²)", Format: FormatGrouped, Scheme: "Greens"},
	{Key: "median_age", Label: "Median Age", Format: FormatFixed1, Scheme: SchemeViridis},
	{Key: "employment_rate", Label: "Employment Rate", Format: FormatPercent, Scheme: "Greens"},
	{Key: "unemployment_rate", Label: "Unemployment Rate", Format: FormatPercent, Scheme: "Reds"},
}

// Catalog is an ordered set of variables.
type Catalog struct {
	vars  []Variable
	byKey map[string]int
}

// NewCatalog builds a catalog. Later duplicates replace earlier ones in place.
func NewCatalog(vars []Variable) *Catalog {
	c := &Catalog{byKey: make(map[string]int, len(vars))}
	for _, v := range vars {
		if i, ok := c.byKey[v.Key]; ok {
			c.vars[i] = v
			continue
		}
		c.byKey[v.Key] = len(c.vars)
		c.vars = append(c.vars, v)
	}
	return c
}

// Has reports whether key is in the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.byKey[key]
	return ok
}

// Lookup returns the descriptor for key. An unknown key keeps its own Key
// and borrows the label, format and scheme of population_total, or of the
// first entry if that is missing too.
func (c *Catalog) Lookup(key string) Variable {
	if i, ok := c.byKey[key]; ok {
		return c.vars[i]
	}
	v := Variable{Key: DefaultVariable, Label: "Total Population", Format: FormatGrouped, Scheme: "Blues"}
	if i, ok := c.byKey[DefaultVariable]; ok {
		v = c.vars[i]
	} else if len(c.vars) > 0 {
		v = c.vars[0]
	}
	if key != "" {
		v.Key = key
	}
	return v
}

// All returns the variables in catalog order.
func (c *Catalog) All() []Variable {
	out := make([]Variable, len(c.vars))
	copy(out, c.vars)
	return out
}

// Catalogs holds the per-map catalogs.
type Catalogs struct {
	Municipality *Catalog
	Region       *Catalog
}

// DefaultCatalogs returns the built-in catalogs.
func DefaultCatalogs() Catalogs {
	return Catalogs{
		Municipality: NewCatalog(MunicipalityVariables),
		Region:       NewCatalog(RegionVariables),
	}
}

type catalogFile struct {
	Municipality []Variable `yaml:"municipality"`
	Region       []Variable `yaml:"region"`
}

// LoadCatalogs reads catalog overrides from YAML. Entries are merged over the
// built-in catalogs by key; a section that is absent keeps its defaults.
func LoadCatalogs(r io.Reader) (Catalogs, error) {
	var f catalogFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return Catalogs{}, eris.Wrap(err, "choropleth: decode variables")
	}

	for _, list := range [][]Variable{f.Municipality, f.Region} {
		for _, v := range list {
			if v.Key == "" {
				return Catalogs{}, eris.New("choropleth: variable without key")
			}
			if err := v.Format.Validate(); err != nil {
				return Catalogs{}, eris.Wrapf(err, "choropleth: variable %s", v.Key)
			}
			if _, err := SchemeInterpolator(v.Scheme); err != nil {
				return Catalogs{}, eris.Wrapf(err, "choropleth: variable %s", v.Key)
			}
		}
	}

	return Catalogs{
		Municipality: NewCatalog(append(append([]Variable{}, MunicipalityVariables...), f.Municipality...)),
		Region:       NewCatalog(append(append([]Variable{}, RegionVariables...), f.Region...)),
	}, nil
}

// LoadCatalogFile reads catalog overrides from path. An empty path returns
// the defaults.
func LoadCatalogFile(path string) (Catalogs, error) {
	if path == "" {
		return DefaultCatalogs(), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return Catalogs{}, eris.Wrapf(err, "choropleth: open %s", path)
	}
	defer file.Close() //nolint:errcheck
	return LoadCatalogs(file)
}
