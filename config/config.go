package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del agente.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Filter  FilterConfig  `yaml:"filter"`
	Sizing  SizingConfig  `yaml:"sizing"`
	API     APIConfig     `yaml:"api"`
	Sources SourcesConfig `yaml:"datasources"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`

	// Secretos: solo por entorno (.env o variables), nunca por YAML.
	PrivateKey      string `yaml:"-"` // PRIVATE_KEY: wallet de Polygon para CLOB y redención
	ManifoldAPIKey  string `yaml:"-"` // MANIFOLD_API_KEY
	EstimatorAPIKey string `yaml:"-"` // ESTIMATOR_API_KEY
}

// AgentConfig controla el ciclo del agente.
type AgentConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	CandidateLimit  int     `yaml:"candidate_limit"` // candidatos pedidos a cada venue
	TopN            int     `yaml:"top_n"`           // candidatos estimados por ciclo
	EdgeThreshold   float64 `yaml:"edge_threshold"`
	PriceTolerance  float64 `yaml:"price_tolerance"` // margen del pre-check de book sobre el precio de decisión
}

// FilterConfig contiene los umbrales de elegibilidad de mercados.
type FilterConfig struct {
	MinLiquidity    float64 `yaml:"min_liquidity"`
	MinHoursToClose float64 `yaml:"min_hours_to_close"`
	MaxHoursToClose float64 `yaml:"max_hours_to_close"`
	MinParticipants int     `yaml:"min_participants"`
}

// SizingConfig contiene los parámetros de gestión de riesgo.
type SizingConfig struct {
	Bankroll        float64 `yaml:"bankroll"`
	KellyMultiplier float64 `yaml:"kelly_multiplier"`
	MaxBankrollPct  float64 `yaml:"max_bankroll_pct"`
	MaxStake        float64 `yaml:"max_stake"`  // 0 = sin techo absoluto
	ImpactCap       float64 `yaml:"impact_cap"` // solo venues pooled
	Unit            float64 `yaml:"unit"`
}

// APIConfig contiene los base URLs de los servicios externos.
type APIConfig struct {
	CLOBBase      string `yaml:"clob_base"`
	GammaBase     string `yaml:"gamma_base"`
	ManifoldBase  string `yaml:"manifold_base"`
	EstimatorBase string `yaml:"estimator_base"`
	PolygonRPC    string `yaml:"polygon_rpc"`
}

// SourcesConfig declara las fuentes de datos estructurados disponibles.
// La presencia de una key habilita apuestas de baja confianza en su
// categoría: hay con qué corroborar la estimación.
type SourcesConfig struct {
	SportsAPIKey  string `yaml:"sports_api_key"`  // ENV: SPORTS_API_KEY
	FinanceAPIKey string `yaml:"finance_api_key"` // ENV: FINANCE_API_KEY
}

// StorageConfig dice dónde vive la base SQLite.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // archivo SQLite, o ":memory:" para pruebas
}

// LogConfig ajusta la salida de slog.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn o error
	Format string `yaml:"format"` // text o json
}

// Load lee el YAML y encima aplica el entorno: primero el .env del
// directorio actual si existe, después las variables ya exportadas.
func Load(path string) (*Config, error) {
	// Sin .env no pasa nada; el entorno real manda igual.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// CycleInterval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Agent.IntervalSeconds) * time.Second
}

// HasSportsSource devuelve true si hay fuente de datos deportivos configurada.
func (c *Config) HasSportsSource() bool {
	return c.Sources.SportsAPIKey != ""
}

// HasFinanceSource devuelve true si hay fuente de datos financieros configurada.
func (c *Config) HasFinanceSource() bool {
	return c.Sources.FinanceAPIKey != ""
}

// applyEnvOverrides pisa la config con las variables de entorno presentes.
// Los secretos solo entran por aquí, nunca por YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		cfg.PrivateKey = v
	}
	if v := os.Getenv("MANIFOLD_API_KEY"); v != "" {
		cfg.ManifoldAPIKey = v
	}
	if v := os.Getenv("ESTIMATOR_API_KEY"); v != "" {
		cfg.EstimatorAPIKey = v
	}
	if v := os.Getenv("POLYGON_RPC"); v != "" {
		cfg.API.PolygonRPC = v
	}
	if v := os.Getenv("SPORTS_API_KEY"); v != "" {
		cfg.Sources.SportsAPIKey = v
	}
	if v := os.Getenv("FINANCE_API_KEY"); v != "" {
		cfg.Sources.FinanceAPIKey = v
	}
}

// setDefaults rellena todo campo requerido que haya quedado en cero.
func setDefaults(cfg *Config) {
	if cfg.Agent.IntervalSeconds <= 0 {
		cfg.Agent.IntervalSeconds = 900
	}
	if cfg.Agent.CandidateLimit <= 0 {
		cfg.Agent.CandidateLimit = 100
	}
	if cfg.Agent.TopN <= 0 {
		cfg.Agent.TopN = 10
	}
	if cfg.Agent.EdgeThreshold <= 0 {
		cfg.Agent.EdgeThreshold = 0.10
	}
	if cfg.Agent.PriceTolerance <= 0 {
		cfg.Agent.PriceTolerance = 0.02
	}
	if cfg.Filter.MinLiquidity <= 0 {
		cfg.Filter.MinLiquidity = 100
	}
	if cfg.Filter.MinHoursToClose <= 0 {
		cfg.Filter.MinHoursToClose = 1
	}
	if cfg.Filter.MaxHoursToClose <= 0 {
		cfg.Filter.MaxHoursToClose = 90 * 24
	}
	if cfg.Filter.MinParticipants <= 0 {
		cfg.Filter.MinParticipants = 1
	}
	if cfg.Sizing.Bankroll <= 0 {
		cfg.Sizing.Bankroll = 1000
	}
	if cfg.Sizing.KellyMultiplier <= 0 {
		cfg.Sizing.KellyMultiplier = 0.25
	}
	if cfg.Sizing.MaxBankrollPct <= 0 {
		cfg.Sizing.MaxBankrollPct = 0.05
	}
	if cfg.Sizing.ImpactCap <= 0 {
		cfg.Sizing.ImpactCap = 0.05
	}
	if cfg.Sizing.Unit <= 0 {
		cfg.Sizing.Unit = 1
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.ManifoldBase == "" {
		cfg.API.ManifoldBase = "https://api.manifold.markets/v0"
	}
	if cfg.API.PolygonRPC == "" {
		cfg.API.PolygonRPC = "https://polygon-rpc.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "edgebot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
