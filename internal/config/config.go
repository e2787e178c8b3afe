package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Input struct {
		Segments   string `yaml:"segments"`
		Catchments string `yaml:"catchments"`
		// Domain is the segment -> catchment table. When empty the map is
		// built from Polygons.
		Domain   string `yaml:"domain"`
		Polygons string `yaml:"polygons"`
		// Type1Table replaces type-1 selection with an external table.
		Type1Table string `yaml:"type1_table"`
	} `yaml:"input"`
	Selection struct {
		SearchAreaThreshold    float64 `yaml:"search_area_threshold"`
		DownstreamSearchCutoff float64 `yaml:"downstream_search_cutoff"`
		MaxCentroidDistance    float64 `yaml:"max_centroid_distance"`
		ReconcileSteps         int     `yaml:"reconcile_steps"`
	} `yaml:"selection"`
	Routing struct {
		MaxRouteSteps int `yaml:"max_route_steps"`
	} `yaml:"routing"`
	Validation struct {
		MainNetworkThreshold float64 `yaml:"main_network_threshold"`
	} `yaml:"validation"`
	Storage struct {
		// Driver is sqlite3, postgres or redis.
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Compress bool   `yaml:"compress"`
	} `yaml:"storage"`
	Output struct {
		Dir     string `yaml:"dir"`
		Metrics string `yaml:"metrics"`
		Report  string `yaml:"report"`
	} `yaml:"output"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns a configuration with every tunable set to its usual value.
func Default() *Config {
	var cfg Config
	cfg.Selection.SearchAreaThreshold = 800
	cfg.Selection.DownstreamSearchCutoff = 10000
	cfg.Selection.MaxCentroidDistance = 0.5
	cfg.Selection.ReconcileSteps = 5
	cfg.Routing.MaxRouteSteps = 30
	cfg.Validation.MainNetworkThreshold = 1000
	cfg.Storage.Driver = "sqlite3"
	cfg.Storage.DSN = "mgbbho.db"
	cfg.Storage.Compress = true
	cfg.Output.Dir = "out"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config over the defaults
	cfg := Default()
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// 3. Override with Environment Variables if present
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"MGBBHO_SEGMENTS":       &cfg.Input.Segments,
		"MGBBHO_CATCHMENTS":     &cfg.Input.Catchments,
		"MGBBHO_DOMAIN":         &cfg.Input.Domain,
		"MGBBHO_POLYGONS":       &cfg.Input.Polygons,
		"MGBBHO_TYPE1_TABLE":    &cfg.Input.Type1Table,
		"MGBBHO_STORAGE_DRIVER": &cfg.Storage.Driver,
		"MGBBHO_STORAGE_DSN":    &cfg.Storage.DSN,
		"MGBBHO_OUTPUT_DIR":     &cfg.Output.Dir,
		"MGBBHO_LOG_LEVEL":      &cfg.Log.Level,
		"MGBBHO_LOG_FORMAT":     &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"MGBBHO_SEARCH_AREA_THRESHOLD":  &cfg.Selection.SearchAreaThreshold,
		"MGBBHO_MAIN_NETWORK_THRESHOLD": &cfg.Validation.MainNetworkThreshold,
	}
	for key, dst := range floats {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = f
	}

	if v := os.Getenv("MGBBHO_MAX_ROUTE_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MGBBHO_MAX_ROUTE_STEPS: %w", err)
		}
		cfg.Routing.MaxRouteSteps = n
	}
	return nil
}

// Validate rejects bounds that would make the walks or filters meaningless.
func (c *Config) Validate() error {
	var errs []error
	if c.Selection.ReconcileSteps <= 0 {
		errs = append(errs, errors.New("selection.reconcile_steps must be positive"))
	}
	if c.Routing.MaxRouteSteps <= 0 {
		errs = append(errs, errors.New("routing.max_route_steps must be positive"))
	}
	if c.Selection.MaxCentroidDistance < 0 {
		errs = append(errs, errors.New("selection.max_centroid_distance must not be negative"))
	}
	if c.Selection.SearchAreaThreshold < 0 || c.Validation.MainNetworkThreshold < 0 {
		errs = append(errs, errors.New("area thresholds must not be negative"))
	}
	switch c.Storage.Driver {
	case "sqlite3", "postgres", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}
