package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FinanceConfig holds the tunable financial parameters consumed by the
// analytics engine and inventory reports.
type FinanceConfig struct {
	// IncomeTaxRate is the flat rate applied to profit before tax when
	// estimating income tax. Fraction, e.g. 0.30 for 30%.
	IncomeTaxRate float64 `mapstructure:"incomeTaxRate"`

	// LowStockThreshold is the fallback minimum stock level for products
	// that do not define their own min_stock.
	LowStockThreshold int `mapstructure:"lowStockThreshold"`

	// SummaryCacheTTLSeconds bounds how stale a cached analytics summary
	// may get before the next read recomputes it.
	SummaryCacheTTLSeconds int `mapstructure:"summaryCacheTTLSeconds"`
}

func DefaultFinanceConfig() FinanceConfig {
	return FinanceConfig{
		IncomeTaxRate:          0.30,
		LowStockThreshold:      5,
		SummaryCacheTTLSeconds: 60,
	}
}

type FinanceConfigHolder struct {
	current atomic.Value // holds FinanceConfig
}

func NewFinanceConfigHolder() (*FinanceConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("finance")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/retailcore/config") // Volume-mounted config
	v.AddConfigPath("/etc/retailcore")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("RETAILCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFinanceConfig()
	v.SetDefault("finance.incomeTaxRate", defaults.IncomeTaxRate)
	v.SetDefault("finance.lowStockThreshold", defaults.LowStockThreshold)
	v.SetDefault("finance.summaryCacheTTLSeconds", defaults.SummaryCacheTTLSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg FinanceConfig
	if err := v.UnmarshalKey("finance", &cfg); err != nil {
		return nil, err
	}
	if err := validateFinanceConfig(cfg); err != nil {
		return nil, err
	}

	holder := &FinanceConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FinanceConfig
		if err := v.UnmarshalKey("finance", &updated); err != nil {
			log.Printf("[finance-config] reload failed: %v", err)
			return
		}
		if err := validateFinanceConfig(updated); err != nil {
			log.Printf("[finance-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[finance-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *FinanceConfigHolder) Get() FinanceConfig {
	return h.current.Load().(FinanceConfig)
}

// NewStaticFinanceConfigHolder returns a holder pinned to the given values.
// Used by tests and callers that bypass file-backed configuration.
func NewStaticFinanceConfigHolder(cfg FinanceConfig) *FinanceConfigHolder {
	holder := &FinanceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateFinanceConfig(cfg FinanceConfig) error {
	if cfg.IncomeTaxRate < 0 || cfg.IncomeTaxRate >= 1 {
		return errors.New("finance.incomeTaxRate must be in [0, 1)")
	}
	if cfg.LowStockThreshold < 0 {
		return errors.New("finance.lowStockThreshold cannot be negative")
	}
	if cfg.SummaryCacheTTLSeconds < 0 {
		return errors.New("finance.summaryCacheTTLSeconds cannot be negative")
	}
	return nil
}
