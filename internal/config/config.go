package config

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/bikeshare-matrix/internal/trips"
)

// Config holds the full application configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Inputs    InputsConfig    `yaml:"inputs" mapstructure:"inputs"`
	Region    trips.Region    `yaml:"region" mapstructure:"region"`
	Matrix    MatrixConfig    `yaml:"matrix" mapstructure:"matrix"`
	Stations  StationsConfig  `yaml:"stations" mapstructure:"stations"`
	Employers EmployersConfig `yaml:"employers" mapstructure:"employers"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// PathsConfig locates the project directory layout.
type PathsConfig struct {
	Root      string `yaml:"root" mapstructure:"root" validate:"required"`
	Input     string `yaml:"input" mapstructure:"input" validate:"required"`
	Processed string `yaml:"processed" mapstructure:"processed" validate:"required"`
	Figures   string `yaml:"figures" mapstructure:"figures" validate:"required"`
}

// InputsConfig names the input files, relative to the input directory unless absolute.
type InputsConfig struct {
	Trips     string `yaml:"trips" mapstructure:"trips" validate:"required"`
	ZCTA      string `yaml:"zcta" mapstructure:"zcta" validate:"required"`
	ZIPField  string `yaml:"zip_field" mapstructure:"zip_field" validate:"required"`
	Employers string `yaml:"employers" mapstructure:"employers"`
}

// MatrixConfig configures classification.
type MatrixConfig struct {
	UnmatchedPolicy string `yaml:"unmatched_policy" mapstructure:"unmatched_policy" validate:"oneof=balanced unclassified"`
}

// StationsConfig configures the station-name lookup database.
type StationsConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path        string `yaml:"path" mapstructure:"path" validate:"required_if=Driver sqlite"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url" validate:"required_if=Driver postgres"`
}

// EmployersConfig lists the employers highlighted on the hotspot layer.
type EmployersConfig struct {
	Key []string `yaml:"key" mapstructure:"key"`
}

// ReportConfig configures console and file output.
type ReportConfig struct {
	TopN        int    `yaml:"top_n" mapstructure:"top_n" validate:"gt=0"`
	UnnamedTopN int    `yaml:"unnamed_top_n" mapstructure:"unnamed_top_n" validate:"gt=0"`
	CategoryTop int    `yaml:"category_top" mapstructure:"category_top" validate:"gt=0"`
	Store       string `yaml:"store" mapstructure:"store"`
	StoreDriver string `yaml:"store_driver" mapstructure:"store_driver" validate:"oneof=sqlite postgres"`
	StoreURL    string `yaml:"store_url" mapstructure:"store_url" validate:"required_if=StoreDriver postgres"`
	XLSX        bool   `yaml:"xlsx" mapstructure:"xlsx"`
	GeoJSON     bool   `yaml:"geojson" mapstructure:"geojson"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// InputDir returns the absolute-or-root-relative input directory.
func (c *Config) InputDir() string { return c.under(c.Paths.Input) }

// ProcessedDir returns the processed-data directory.
func (c *Config) ProcessedDir() string { return c.under(c.Paths.Processed) }

// FiguresDir returns the figures directory.
func (c *Config) FiguresDir() string { return c.under(c.Paths.Figures) }

// TripsPath returns the trips CSV path.
func (c *Config) TripsPath() string { return resolve(c.InputDir(), c.Inputs.Trips) }

// ZCTAPath returns the ZCTA shapefile path.
func (c *Config) ZCTAPath() string { return resolve(c.InputDir(), c.Inputs.ZCTA) }

// StationsPath returns the SQLite station database path.
func (c *Config) StationsPath() string { return resolve(c.InputDir(), c.Stations.Path) }

// EmployersPath returns the geocoded employers CSV, which lives with processed data.
func (c *Config) EmployersPath() string { return resolve(c.ProcessedDir(), c.Inputs.Employers) }

// StoreTarget returns the results store driver and its file path or connection
// string. The target is "" when the store is disabled.
func (c *Config) StoreTarget() (driver, target string) {
	if c.Report.StoreDriver == "postgres" {
		return c.Report.StoreDriver, c.Report.StoreURL
	}
	if c.Report.Store == "" {
		return c.Report.StoreDriver, ""
	}
	return c.Report.StoreDriver, resolve(c.ProcessedDir(), c.Report.Store)
}

func (c *Config) under(p string) string { return resolve(c.Paths.Root, p) }

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	return nil
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BIKESHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.root", ".")
	v.SetDefault("paths.input", "input_data")
	v.SetDefault("paths.processed", "processed_data")
	v.SetDefault("paths.figures", "figures")
	v.SetDefault("inputs.trips", "trips.csv")
	v.SetDefault("inputs.zcta", "tl_2024_us_zcta520.shp")
	v.SetDefault("inputs.zip_field", "ZCTA5CE20")
	v.SetDefault("inputs.employers", "geocoded_employers.csv")
	v.SetDefault("region.min_lat", trips.DefaultRegion.MinLat)
	v.SetDefault("region.max_lat", trips.DefaultRegion.MaxLat)
	v.SetDefault("region.min_lng", trips.DefaultRegion.MinLng)
	v.SetDefault("region.max_lng", trips.DefaultRegion.MaxLng)
	v.SetDefault("matrix.unmatched_policy", "balanced")
	v.SetDefault("stations.driver", "sqlite")
	v.SetDefault("stations.path", "april2025.db")
	v.SetDefault("stations.database_url", "")
	v.SetDefault("employers.key", []string{
		"National Geographic Society",
		"District of Columbia CVS Pharmacy",
		"Georgetown University",
		"Children's National Medical Center",
		"General Dynamics Information Technology",
	})
	v.SetDefault("report.top_n", 15)
	v.SetDefault("report.unnamed_top_n", 10)
	v.SetDefault("report.category_top", 5)
	v.SetDefault("report.store", "analysis.db")
	v.SetDefault("report.store_driver", "sqlite")
	v.SetDefault("report.store_url", "")
	v.SetDefault("report.xlsx", true)
	v.SetDefault("report.geojson", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
