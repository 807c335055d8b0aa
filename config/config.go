// Package config loads the pipeline's option table via
// github.com/spf13/viper: a YAML/TOML config file overlaid with
// environment-variable overrides and hard-coded defaults. Concrete
// router/factory addresses per chain id are an external collaborator's
// concern; this package only loads the generic option table the core
// pipeline and CLI consume.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/arbiter-labs/hyperarb/types"
)

// Defaults mirror the pipeline's configuration defaults.
const (
	DefaultChainID           = 999
	DefaultMaxHops           = 3
	DefaultMaxPoolsPerHop    = 5
	DefaultWorkerPoolSize    = 4
	DefaultCacheTTLMs        = 60_000
	DefaultCacheDir          = "./cache"
	DefaultMinProfitThreshold = "1000000000000000" // 10^15 wei
	DefaultMaxGasPriceWei    = "300000000000"       // 3e11 wei
)

// Config is the fully-resolved option set the pipeline consumes.
type Config struct {
	ChainID uint64
	RPCURL  string

	WalletAddress    string
	WalletPrivateKey string

	MaxGasPrice         types.U256
	MinProfitThreshold  types.U256
	MaxHops             int
	MaxPoolsPerHop      int
	BaseTokens          []types.Address
	WorkerPoolSize      int
	CacheTTL            time.Duration
	CacheDir            string

	TelegramBotToken string
	TelegramChatID   string
}

// ErrMissingRequired is returned by Load when a required key has no value
// from file, environment, or default: configuration errors surface on
// startup, and the process exits non-zero.
type ErrMissingRequired struct{ Key string }

func (e *ErrMissingRequired) Error() string {
	return fmt.Sprintf("config: missing required key %q", e.Key)
}

// Load reads configuration from the defaults above, configPath (if
// non-empty), and the environment variables PRIVATE_KEY, WALLET_ADDRESS,
// CHAIN_ID, TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID. The environment
// overrides the file and the file overrides the defaults; no other key
// has an environment override.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		ChainID:          v.GetUint64("chainId"),
		RPCURL:           v.GetString("rpc.url"),
		WalletAddress:    v.GetString("wallet.address"),
		WalletPrivateKey: v.GetString("wallet.privateKey"),
		MaxHops:          v.GetInt("maxHops"),
		MaxPoolsPerHop:   v.GetInt("maxPoolsPerHop"),
		WorkerPoolSize:   v.GetInt("workerPoolSize"),
		CacheTTL:         time.Duration(v.GetInt64("cacheTtlMs")) * time.Millisecond,
		CacheDir:         v.GetString("cacheDir"),
		TelegramBotToken: v.GetString("telegram.botToken"),
		TelegramChatID:   v.GetString("telegram.chatId"),
	}

	maxGas, err := types.ParseU256(v.GetString("maxGasPrice"))
	if err != nil {
		return nil, fmt.Errorf("config: maxGasPrice: %w", err)
	}
	cfg.MaxGasPrice = maxGas

	minProfit, err := types.ParseU256(v.GetString("minProfitThreshold"))
	if err != nil {
		return nil, fmt.Errorf("config: minProfitThreshold: %w", err)
	}
	cfg.MinProfitThreshold = minProfit

	for _, raw := range v.GetStringSlice("baseTokens") {
		addr, err := types.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("config: baseTokens: %w", err)
		}
		cfg.BaseTokens = append(cfg.BaseTokens, addr)
	}

	if cfg.RPCURL == "" {
		return nil, &ErrMissingRequired{Key: "rpc.url"}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chainId", DefaultChainID)
	v.SetDefault("maxGasPrice", DefaultMaxGasPriceWei)
	v.SetDefault("minProfitThreshold", DefaultMinProfitThreshold)
	v.SetDefault("maxHops", DefaultMaxHops)
	v.SetDefault("maxPoolsPerHop", DefaultMaxPoolsPerHop)
	v.SetDefault("workerPoolSize", DefaultWorkerPoolSize)
	v.SetDefault("cacheTtlMs", DefaultCacheTTLMs)
	v.SetDefault("cacheDir", DefaultCacheDir)
}

func bindEnv(v *viper.Viper) {
	// Explicit single-variable bindings rather than SetEnvPrefix +
	// AutomaticEnv, since these names don't follow a common prefix
	// convention (PRIVATE_KEY, not HYPERARB_PRIVATE_KEY).
	_ = v.BindEnv("wallet.privateKey", "PRIVATE_KEY")
	_ = v.BindEnv("wallet.address", "WALLET_ADDRESS")
	_ = v.BindEnv("chainId", "CHAIN_ID")
	_ = v.BindEnv("telegram.botToken", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.chatId", "TELEGRAM_CHAT_ID")
}
