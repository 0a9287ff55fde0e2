package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Trending  TrendingConfig  `mapstructure:"trending"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Payments  PaymentsConfig  `mapstructure:"payments"`
	App       AppConfig       `mapstructure:"app"`
}

type TelegramConfig struct {
	BotToken          string  `mapstructure:"bot_token"`
	ChannelID         string  `mapstructure:"channel_id"`       // public trending channel
	OperatorChatID    string  `mapstructure:"operator_chat_id"` // support/admin chat
	AdminIDs          []int64 `mapstructure:"-"`
	SupportLink       string  `mapstructure:"support_link"`
	RequestTimeout    int     `mapstructure:"request_timeout"` // seconds
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
}

type TrendingConfig struct {
	PollInterval      int      `mapstructure:"poll_interval"` // seconds
	Thresholds        []int    `mapstructure:"-"`
	SupportedNetworks []string `mapstructure:"-"`
}

type ProvidersConfig struct {
	DexScreenerURL    string `mapstructure:"dexscreener_url"`
	PumpFunURL        string `mapstructure:"pumpfun_url"`
	RequestTimeout    int    `mapstructure:"request_timeout"` // seconds
	MaxRetries        int    `mapstructure:"max_retries"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	MaxResponseSize   int64  `mapstructure:"max_response_size"`
}

// PaymentsConfig holds the wallets shown to the user and the display price of each package.
type PaymentsConfig struct {
	SolWallet     string `mapstructure:"sol_wallet"`
	UsdtSolWallet string `mapstructure:"usdt_sol_wallet"`
	UsdtEthWallet string `mapstructure:"usdt_eth_wallet"`
	Price3h       string `mapstructure:"price_3h"`
	Price12h      string `mapstructure:"price_12h"`
	Price24h      string `mapstructure:"price_24h"`
}

type AppConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	FontPath string `mapstructure:"font_path"`
}

var (
	DefaultThresholds        = []int{10, 20, 30, 40, 50, 60, 70}
	DefaultSupportedNetworks = []string{"solana", "ethereum", "bsc", "base", "arbitrum"}
)

// RegisterFlags declares every config key on fs so cobra commands can override file/env values.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("telegram.bot_token", "", "Telegram bot token (env: BOT_TOKEN)")
	fs.String("telegram.channel_id", "", "Trending channel chat ID (env: TRENDING_CHANNEL_ID)")
	fs.String("telegram.operator_chat_id", "", "Operator chat ID for approvals and summaries (env: OPERATOR_CHAT_ID)")
	fs.String("telegram.admin_ids", "", "Comma-separated Telegram user IDs allowed to run admin commands (env: ADMIN_IDS)")
	fs.String("telegram.support_link", "", "Support contact link shown to users (env: SUPPORT_LINK)")
	fs.Int("telegram.request_timeout", 15, "Telegram request timeout in seconds")
	fs.Float64("telegram.messages_per_second", 20, "Outgoing Telegram message rate")

	fs.Int("trending.poll_interval", 60, "Poll interval in seconds (env: POLL_INTERVAL)")
	fs.String("trending.thresholds", "", "Comma-separated alert levels in percent (env: THRESHOLDS)")
	fs.String("trending.supported_networks", "", "Comma-separated supported network ids (env: SUPPORTED_NETWORKS)")

	fs.String("providers.dexscreener_url", "https://api.dexscreener.com", "DexScreener API base URL")
	fs.String("providers.pumpfun_url", "https://frontend-api-v3.pump.fun", "pump.fun API base URL")
	fs.Int("providers.request_timeout", 10, "Provider request timeout in seconds")
	fs.Int("providers.max_retries", 2, "Max retries for failed provider requests")
	fs.Int("providers.requests_per_minute", 250, "DexScreener request budget per minute")

	fs.String("app.data_dir", "data_out", "Data directory (env: DATA_DIR)")
	fs.String("app.font_path", "", "TTF font used for logo cards (env: FONT_PATH)")
}

// LoadConfig builds the configuration from, in increasing priority:
// 1. defaults
// 2. config.yaml
// 3. .env file and process environment
// 4. command line flags (only those explicitly set)
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	godotenv.Load(".env")

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.ReadInConfig()

	v.SetConfigType("env")
	v.SetConfigFile(".env")
	v.MergeInConfig()

	v.AutomaticEnv()

	setupEnvAliases(v)

	if flags != nil {
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				v.BindPFlag(f.Name, f)
			}
		})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.Telegram.AdminIDs, err = parseInt64List(v.Get("telegram.admin_ids")); err != nil {
		return nil, fmt.Errorf("telegram.admin_ids: %w", err)
	}
	thresholds, err := parseInt64List(v.Get("trending.thresholds"))
	if err != nil {
		return nil, fmt.Errorf("trending.thresholds: %w", err)
	}
	for _, t := range thresholds {
		cfg.Trending.Thresholds = append(cfg.Trending.Thresholds, int(t))
	}
	if len(cfg.Trending.Thresholds) == 0 {
		cfg.Trending.Thresholds = append([]int(nil), DefaultThresholds...)
	}
	// A repeated level would describe the same threshold key twice.
	cfg.Trending.Thresholds = lo.Uniq(cfg.Trending.Thresholds)
	sort.Ints(cfg.Trending.Thresholds)
	cfg.Trending.SupportedNetworks = lowerAll(parseStringList(v.Get("trending.supported_networks")))
	if len(cfg.Trending.SupportedNetworks) == 0 {
		cfg.Trending.SupportedNetworks = append([]string(nil), DefaultSupportedNetworks...)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("telegram.bot_token", "BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.channel_id", "TRENDING_CHANNEL_ID")
	v.BindEnv("telegram.operator_chat_id", "OPERATOR_CHAT_ID", "SUPPORT_CHAT_ID")
	v.BindEnv("telegram.admin_ids", "ADMIN_IDS")
	v.BindEnv("telegram.support_link", "SUPPORT_LINK")
	v.BindEnv("telegram.request_timeout", "TELEGRAM_REQUEST_TIMEOUT")
	v.BindEnv("telegram.messages_per_second", "TELEGRAM_MESSAGES_PER_SECOND")

	v.BindEnv("trending.poll_interval", "POLL_INTERVAL")
	v.BindEnv("trending.thresholds", "THRESHOLDS")
	v.BindEnv("trending.supported_networks", "SUPPORTED_NETWORKS")

	v.BindEnv("providers.dexscreener_url", "DEXSCREENER_URL")
	v.BindEnv("providers.pumpfun_url", "PUMPFUN_URL")
	v.BindEnv("providers.request_timeout", "PROVIDER_REQUEST_TIMEOUT")
	v.BindEnv("providers.max_retries", "PROVIDER_MAX_RETRIES")
	v.BindEnv("providers.requests_per_minute", "PROVIDER_REQUESTS_PER_MINUTE")
	v.BindEnv("providers.max_response_size", "PROVIDER_MAX_RESPONSE_SIZE")

	v.BindEnv("payments.sol_wallet", "SOL_WALLET")
	v.BindEnv("payments.usdt_sol_wallet", "USDT_SOL_WALLET")
	v.BindEnv("payments.usdt_eth_wallet", "USDT_ETH_WALLET")
	v.BindEnv("payments.price_3h", "PRICE_3H")
	v.BindEnv("payments.price_12h", "PRICE_12H")
	v.BindEnv("payments.price_24h", "PRICE_24H")

	v.BindEnv("app.data_dir", "DATA_DIR")
	v.BindEnv("app.font_path", "FONT_PATH")
}

func setDefaults(v *viper.Viper) {
	// Telegram
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.channel_id", "")
	v.SetDefault("telegram.operator_chat_id", "")
	v.SetDefault("telegram.admin_ids", "")
	v.SetDefault("telegram.support_link", "https://t.me/")
	v.SetDefault("telegram.request_timeout", 15)
	v.SetDefault("telegram.messages_per_second", 20.0)

	// Trending
	v.SetDefault("trending.poll_interval", 60)
	v.SetDefault("trending.thresholds", "")
	v.SetDefault("trending.supported_networks", "")

	// Providers
	v.SetDefault("providers.dexscreener_url", "https://api.dexscreener.com")
	v.SetDefault("providers.pumpfun_url", "https://frontend-api-v3.pump.fun")
	v.SetDefault("providers.request_timeout", 10)
	v.SetDefault("providers.max_retries", 2)
	v.SetDefault("providers.requests_per_minute", 250)
	v.SetDefault("providers.max_response_size", 5*1024*1024) // 5MB

	// Payments
	v.SetDefault("payments.sol_wallet", "")
	v.SetDefault("payments.usdt_sol_wallet", "")
	v.SetDefault("payments.usdt_eth_wallet", "")
	v.SetDefault("payments.price_3h", "0.5 SOL")
	v.SetDefault("payments.price_12h", "1.5 SOL")
	v.SetDefault("payments.price_24h", "2.5 SOL")

	// App
	v.SetDefault("app.data_dir", "data_out")
	v.SetDefault("app.font_path", "")
}

// parseInt64List accepts "1, 2,3" from env/flags or a YAML list.
func parseInt64List(raw interface{}) ([]int64, error) {
	items := parseStringList(raw)
	out := make([]int64, 0, len(items))
	for _, item := range items {
		n, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", item, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseStringList(raw interface{}) []string {
	var items []string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []interface{}:
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
	case []int:
		for _, item := range v {
			items = append(items, strconv.Itoa(item))
		}
	default:
		items = []string{fmt.Sprint(v)}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}

func validateConfig(cfg *Config) error {
	if cfg.Trending.PollInterval <= 0 {
		return fmt.Errorf("trending.poll_interval must be positive, got %d", cfg.Trending.PollInterval)
	}
	for _, level := range cfg.Trending.Thresholds {
		if level <= 0 {
			return fmt.Errorf("trending.thresholds must be positive, got %d", level)
		}
	}
	if cfg.Providers.RequestTimeout <= 0 {
		return fmt.Errorf("providers.request_timeout must be positive, got %d", cfg.Providers.RequestTimeout)
	}
	if cfg.Providers.MaxRetries < 0 {
		return fmt.Errorf("providers.max_retries must not be negative")
	}
	return nil
}

// ValidateBot checks the keys only the Telegram bot needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (env: BOT_TOKEN)")
	}
	if c.Telegram.ChannelID == "" {
		return fmt.Errorf("telegram.channel_id is required (env: TRENDING_CHANNEL_ID)")
	}
	if len(c.Telegram.AdminIDs) == 0 {
		return fmt.Errorf("telegram.admin_ids must list at least one admin (env: ADMIN_IDS)")
	}
	return nil
}

func (c *Config) IsAdmin(userID int64) bool {
	return lo.Contains(c.Telegram.AdminIDs, userID)
}
