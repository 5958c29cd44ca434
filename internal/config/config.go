package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Map    MapConfig    `yaml:"map" mapstructure:"map"`
	Table  TableConfig  `yaml:"table" mapstructure:"table"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Port      int    `yaml:"port" mapstructure:"port"`
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"`
}

// DataConfig locates the demographic and boundary sources. Sources are
// local paths or http(s) URLs.
type DataConfig struct {
	Dir                   string   `yaml:"dir" mapstructure:"dir"`
	Demographics          string   `yaml:"demographics" mapstructure:"demographics"`
	MunicipalitiesGeoJSON string   `yaml:"municipalities_geojson" mapstructure:"municipalities_geojson"`
	RegionsGeoJSON        string   `yaml:"regions_geojson" mapstructure:"regions_geojson"`
	RegionDemographics    string   `yaml:"region_demographics" mapstructure:"region_demographics"`
	NumericFields         []string `yaml:"numeric_fields" mapstructure:"numeric_fields"`
	DecimalComma          bool     `yaml:"decimal_comma" mapstructure:"decimal_comma"`
	ShapeNameField        string   `yaml:"shape_name_field" mapstructure:"shape_name_field"`
}

// MapConfig configures the choropleth views.
type MapConfig struct {
	DefaultVariable   string  `yaml:"default_variable" mapstructure:"default_variable"`
	DefaultDate       string  `yaml:"default_date" mapstructure:"default_date"`
	Join              string  `yaml:"join" mapstructure:"join"`
	SimplifyTolerance float64 `yaml:"simplify_tolerance" mapstructure:"simplify_tolerance"`
	VariablesFile     string  `yaml:"variables_file" mapstructure:"variables_file"`
	CacheEntries      int     `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLSecs      int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// TableConfig configures the data table.
type TableConfig struct {
	Locale string `yaml:"locale" mapstructure:"locale"`
}

// FetchConfig configures remote source downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// StoreConfig configures the optional record store. An empty driver
// serves records straight from the loaded CSV.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultNumericFields lists the demographic columns parsed as numbers.
var DefaultNumericFields = []string{
	"population_total", "population_male", "population_female",
	"births", "deaths", "net_migration", "median_age",
	"avg_household_size", "households_total", "median_income_dkk",
	"employment_rate", "unemployment_rate",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "PORT", "DASHBOARD_SERVER_PORT"); err != nil {
		return nil, eris.Wrap(err, "config: bind port env")
	}

	// Defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.static_dir", "public")
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.demographics", "data/dk_region_municipality_demo_mock.csv")
	v.SetDefault("data.municipalities_geojson", "https://raw.githubusercontent.com/codeforgermany/click_that_hood/main/public/data/denmark-municipalities.geojson")
	v.SetDefault("data.regions_geojson", "data/regionsinddeling_formatted_noz.geojson")
	v.SetDefault("data.region_demographics", "")
	v.SetDefault("data.numeric_fields", DefaultNumericFields)
	v.SetDefault("data.decimal_comma", true)
	v.SetDefault("data.shape_name_field", "navn")
	v.SetDefault("map.default_variable", "population_total")
	v.SetDefault("map.default_date", "2025-01-01")
	v.SetDefault("map.join", "exact")
	v.SetDefault("map.simplify_tolerance", 0)
	v.SetDefault("map.cache_entries", 256)
	v.SetDefault("map.cache_ttl_secs", 300)
	v.SetDefault("table.locale", "en")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.user_agent", "demographics-dashboard/1.0")
	v.SetDefault("fetch.rate_per_sec", 5)
	v.SetDefault("store.driver", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the named command.
func (c *Config) Validate(command string) error {
	var problems []string

	switch command {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Data.Demographics == "" {
			problems = append(problems, "data.demographics is required")
		}
	case "import":
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "render":
		if c.Data.Demographics == "" {
			problems = append(problems, "data.demographics is required")
		}
		if c.Data.MunicipalitiesGeoJSON == "" && c.Data.RegionsGeoJSON == "" {
			problems = append(problems, "a boundary source is required")
		}
	}

	switch c.Map.Join {
	case "", "exact", "fold":
	default:
		problems = append(problems, "map.join must be exact or fold")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
