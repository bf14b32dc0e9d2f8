package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	Chain    ChainConfig
	Pricing  PricingConfig
	Feed     FeedConfig
	Stripe   StripeConfig
	Printify PrintifyConfig
}

type ServerConfig struct {
	Port    string
	SiteURL string
}

type DBConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig URL 为空时不启用分布式锁
type RedisConfig struct {
	URL string
}

type ChainConfig struct {
	RPCURL       string
	Network      string
	USDCAddress  string
	Collector    string
	ExemptNFT    string // 持有即免单次付费
	BadgeNFT     string // 仅用于展示徽章
	RPCRateLimit float64
	RPCBurst     int
}

// PricingConfig 金额均为 USDC 最小单位（6 位小数）
type PricingConfig struct {
	Currency      string
	Signup        int64
	Post          int64
	Comment       int64
	FreeThreshold int64
}

type FeedConfig struct {
	CacheTTL time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	SuccessURL    string
	CancelURL     string
	ShipCountries []string
}

type PrintifyConfig struct {
	APIKey    string
	BaseURL   string
	ShopID    string
	ProductID string
	Variants  map[string]int
}

func Load() (*Config, error) {
	siteURL := strings.TrimRight(getEnv("SITE_URL", "https://agentfails.wtf"), "/")

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			SiteURL: siteURL,
		},
		DB: DBConfig{
			URL:             getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=agentfails port=5432 sslmode=disable TimeZone=UTC"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Chain: ChainConfig{
			RPCURL:       getEnv("BASE_RPC_URL", "https://mainnet.base.org"),
			Network:      getEnv("CHAIN_NETWORK", "base-mainnet"),
			USDCAddress:  getEnv("USDC_ADDRESS", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
			Collector:    getEnv("PAYMENT_COLLECTOR", "0xd4C15E8dEcC996227cE1830A39Af2Dd080138F89"),
			ExemptNFT:    getEnv("EXEMPT_NFT_ADDRESS", "0x1ad890FCE6cB865737A3411E7d04f1F5668b0686"),
			BadgeNFT:     getEnv("BADGE_NFT_ADDRESS", "0xc9cDED1749AE3a46Bd4870115816037b82B24143"),
			RPCRateLimit: getEnvFloat("RPC_RATE_LIMIT", 10),
			RPCBurst:     getEnvInt("RPC_BURST", 20),
		},
		Pricing: PricingConfig{
			Currency:      "USDC",
			Signup:        getEnvInt64("SIGNUP_USDC_AMOUNT", 2_000_000),
			Post:          getEnvInt64("POST_USDC_AMOUNT", 100_000),
			Comment:       getEnvInt64("COMMENT_USDC_AMOUNT", 100_000),
			FreeThreshold: getEnvInt64("FREE_THRESHOLD", 100),
		},
		Feed: FeedConfig{
			CacheTTL: time.Duration(getEnvInt("FEED_CACHE_TTL_SEC", 30)) * time.Second,
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceID:       getEnv("STRIPE_PRICE_ID", "price_1T2yvSLECHmgJcHTyztuGHca"),
			SuccessURL:    siteURL + "/merch/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:     siteURL + "/merch",
			ShipCountries: getEnvList("MERCH_SHIP_COUNTRIES", "US,CA,GB,AU,DE,FR,NL,SE,JP,SG"),
		},
		Printify: PrintifyConfig{
			APIKey:    getEnv("PRINTIFY_API_KEY", ""),
			BaseURL:   getEnv("PRINTIFY_BASE_URL", "https://api.printify.com/v1"),
			ShopID:    getEnv("PRINTIFY_SHOP_ID", "5856939"),
			ProductID: getEnv("PRINTIFY_PRODUCT_ID", "6998a9e635ddad0d0308cebd"),
		},
	}

	variants, err := parseVariants(getEnv("PRINTIFY_VARIANTS", "S:18100,M:18101,L:18102,XL:18103,2XL:18104"))
	if err != nil {
		return nil, err
	}
	cfg.Printify.Variants = variants

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("BASE_RPC_URL is required")
	}
	for key, addr := range map[string]string{
		"USDC_ADDRESS":       c.Chain.USDCAddress,
		"PAYMENT_COLLECTOR":  c.Chain.Collector,
		"EXEMPT_NFT_ADDRESS": c.Chain.ExemptNFT,
		"BADGE_NFT_ADDRESS":  c.Chain.BadgeNFT,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s is not a valid address: %q", key, addr)
		}
	}
	if c.Pricing.Signup <= 0 || c.Pricing.Post <= 0 || c.Pricing.Comment <= 0 {
		return fmt.Errorf("USDC amounts must be positive")
	}
	if c.Pricing.FreeThreshold < 0 {
		return fmt.Errorf("FREE_THRESHOLD must not be negative")
	}
	return nil
}

// MerchEnabled Stripe 与 Printify 均已配置
func (c *Config) MerchEnabled() bool {
	return c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret != "" && c.Printify.APIKey != ""
}

func parseVariants(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		size, id, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("PRINTIFY_VARIANTS: bad entry %q", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("PRINTIFY_VARIANTS: bad variant id %q", id)
		}
		out[strings.ToUpper(strings.TrimSpace(size))] = n
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, fallback), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
