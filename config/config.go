package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del monitor.
type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
	API     APIConfig     `yaml:"api"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Log     LogConfig     `yaml:"log"`
}

// MonitorConfig controla el loop de monitoreo y los umbrales de salida.
// Es inmutable tras Load: los componentes la reciben en el constructor y
// nunca leen configuración global dentro de su lógica.
type MonitorConfig struct {
	IntervalSeconds  int     `yaml:"interval_seconds"`
	TakeProfitPct    float64 `yaml:"take_profit_pct"`   // 0.30 = +30%
	StopLossPct      float64 `yaml:"stop_loss_pct"`     // 0.15 = -15%
	AutoExecute      bool    `yaml:"auto_execute"`      // false = solo alertas
	SyncEveryTicks   int     `yaml:"sync_every_ticks"`  // cada cuántos ticks reconciliar balances
	BalanceTolerance float64 `yaml:"balance_tolerance"` // diferencia ignorada como ruido de precisión
}

// APIConfig contiene los base URLs de las APIs y el RPC de Polygon.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
	RPCURL    string `yaml:"rpc_url"`
}

// WalletConfig identifica las wallets consultadas para balances.
// La private key nunca vive en el YAML — solo en POLY_PRIVATE_KEY.
type WalletConfig struct {
	ProxyAddress string `yaml:"proxy_address"` // wallet proxy/custodial, opcional
}

// LedgerConfig controla dónde se persisten las posiciones.
type LedgerConfig struct {
	Path string `yaml:"path"` // ruta al archivo JSON de posiciones
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env/entorno sobreescriben los del YAML para las keys que
// correspondan. Si el YAML no existe se parte de la configuración vacía —
// el monitor puede correr solo con variables de entorno, como el original.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	// Los umbrales se pre-cargan antes del YAML: un 0 explícito en el
	// archivo o en el entorno desactiva el umbral, no vuelve al default.
	cfg := Config{
		Monitor: MonitorConfig{
			TakeProfitPct:    0.30,
			StopLossPct:      0.15,
			BalanceTolerance: 0.01,
		},
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	case os.IsNotExist(err):
		// sin archivo: solo env + defaults
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Interval devuelve el intervalo entre ticks como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// PrivateKey devuelve la private key de la wallet de ejecución desde el entorno.
func (c *Config) PrivateKey() string {
	return os.Getenv("POLY_PRIVATE_KEY")
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TAKE_PROFIT_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Monitor.TakeProfitPct = f
		}
	}
	if v := os.Getenv("STOP_LOSS_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Monitor.StopLossPct = f
		}
	}
	if v := os.Getenv("MONITOR_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.IntervalSeconds = n
		}
	}
	if v := os.Getenv("AUTO_EXECUTE"); v != "" {
		cfg.Monitor.AutoExecute = v == "true" || v == "1"
	}
	if v := os.Getenv("POLYMARKET_PROXY_WALLET"); v != "" {
		cfg.Wallet.ProxyAddress = v
	}
	if v := os.Getenv("POSITIONS_FILE"); v != "" {
		cfg.Ledger.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Monitor.IntervalSeconds <= 0 {
		cfg.Monitor.IntervalSeconds = 30
	}
	if cfg.Monitor.SyncEveryTicks <= 0 {
		cfg.Monitor.SyncEveryTicks = 10
	}
	if cfg.Monitor.BalanceTolerance < 0 {
		cfg.Monitor.BalanceTolerance = 0.01
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.RPCURL == "" {
		cfg.API.RPCURL = "https://polygon-rpc.com"
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "positions.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
