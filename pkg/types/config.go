// Package types provides configuration types for the signal engine.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level engine configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Data      DataConfig      `mapstructure:"data" json:"data"`
	Engine    EngineConfig    `mapstructure:"engine" json:"engine"`
	Router    RouterConfig    `mapstructure:"router" json:"router"`
	Scoring   ScoringConfig   `mapstructure:"scoring" json:"scoring"`
	Promotion PromotionConfig `mapstructure:"promotion" json:"promotion"`
}

// ServerConfig represents API server configuration.
type ServerConfig struct {
	Host          string        `mapstructure:"host" json:"host"`
	Port          int           `mapstructure:"port" json:"port"`
	WebSocketPath string        `mapstructure:"websocket_path" json:"websocketPath"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" json:"readTimeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" json:"writeTimeout"`
}

// DataConfig represents on-disk state configuration.
type DataConfig struct {
	DataDir        string `mapstructure:"data_dir" json:"dataDir"`
	SignalLogFile  string `mapstructure:"signal_log_file" json:"signalLogFile"`
	OutcomeLogFile string `mapstructure:"outcome_log_file" json:"outcomeLogFile"`
}

// EngineConfig represents the polling loop configuration.
type EngineConfig struct {
	Symbols      []string      `mapstructure:"symbols" json:"symbols"`
	Strategy     string        `mapstructure:"strategy" json:"strategy"`
	PollInterval time.Duration `mapstructure:"poll_interval" json:"pollInterval"`
	Workers      int           `mapstructure:"workers" json:"workers"`
	QueueSize    int           `mapstructure:"queue_size" json:"queueSize"`
}

// RouterConfig represents the routing pipeline tunables.
type RouterConfig struct {
	RuleScore          float64 `mapstructure:"rule_score" json:"ruleScore"`
	BullRegimeWeight   float64 `mapstructure:"bull_regime_weight" json:"bullRegimeWeight"`
	OtherRegimeWeight  float64 `mapstructure:"other_regime_weight" json:"otherRegimeWeight"`
	ContextRejectBelow float64 `mapstructure:"context_reject_below" json:"contextRejectBelow"`
	MinAvgVolume       float64 `mapstructure:"min_avg_volume" json:"minAvgVolume"`
}

// ScoringConfig represents ML collaborator configuration.
type ScoringConfig struct {
	LiveModelPath    string        `mapstructure:"live_model_path" json:"liveModelPath"`
	ContextModelPath string        `mapstructure:"context_model_path" json:"contextModelPath"`
	CallTimeout      time.Duration `mapstructure:"call_timeout" json:"callTimeout"`
	BreakerOpenAfter uint32        `mapstructure:"breaker_open_after" json:"breakerOpenAfter"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown" json:"breakerCooldown"`
}

// PromotionConfig represents paper-to-live graduation criteria.
type PromotionConfig struct {
	MinTrades  int     `mapstructure:"min_trades" json:"minTrades"`
	MinWinRate float64 `mapstructure:"min_win_rate" json:"minWinRate"`
}

// DefaultConfig returns the defaults used when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "localhost",
			Port:          8080,
			WebSocketPath: "/ws/decisions",
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  15 * time.Second,
		},
		Data: DataConfig{
			DataDir:        "./data",
			SignalLogFile:  "signals.csv",
			OutcomeLogFile: "outcomes.csv",
		},
		Engine: EngineConfig{
			Symbols:      []string{"AAPL", "MSFT", "NVDA", "TSLA"},
			Strategy:     "crossover",
			PollInterval: time.Minute,
			Workers:      4,
			QueueSize:    64,
		},
		Router: RouterConfig{
			RuleScore:          0.7,
			BullRegimeWeight:   0.9,
			OtherRegimeWeight:  0.5,
			ContextRejectBelow: 0.3,
			MinAvgVolume:       1_000_000,
		},
		Scoring: ScoringConfig{
			LiveModelPath:    "models/live_model.json",
			ContextModelPath: "models/context_model.json",
			CallTimeout:      2 * time.Second,
			BreakerOpenAfter: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Promotion: PromotionConfig{
			MinTrades:  10,
			MinWinRate: 0.55,
		},
	}
}

// LoadConfig reads configuration from the given file (optional) and from
// SIGNALENGINE_* environment variables, layered over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SIGNALENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
