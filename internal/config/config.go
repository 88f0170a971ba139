package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. STOREFRONT_HTTP_ADDR.
const EnvPrefix = "STOREFRONT"

// Config holds application configuration.
type Config struct {
	HTTP     HTTPConfig
	Host     HostConfig
	Shop     ShopConfig
	STAN     STANConfig
	Database DatabaseConfig
	Log      LogConfig
}

// HTTPConfig holds the catalog client API settings.
type HTTPConfig struct {
	Addr   string
	WebDir string `mapstructure:"web_dir"`
}

// HostConfig points at the host's request channel. BaseURL wins over
// Resource when both are set.
type HostConfig struct {
	Resource        string
	BaseURL         string        `mapstructure:"base_url"`
	CheckoutTimeout time.Duration `mapstructure:"checkout_timeout"`
}

type ShopConfig struct {
	NotificationTTL time.Duration `mapstructure:"notification_ttl"`
	KeepCartOnClose bool          `mapstructure:"keep_cart_on_close"`
}

// STANConfig holds the NATS Streaming subscription for host messages.
type STANConfig struct {
	Enabled   bool
	ClusterID string `mapstructure:"cluster_id"`
	ClientID  string `mapstructure:"client_id"`
	URL       string
	Subject   string
	Queue     string
	Durable   string
}

// DatabaseConfig enables the receipt journal when URL is set.
type DatabaseConfig struct {
	URL string
}

type LogConfig struct {
	Level string
	Dev   bool
}

// New returns a viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.web_dir", "")
	v.SetDefault("host.resource", "LNS_Shops")
	v.SetDefault("host.base_url", "")
	v.SetDefault("host.checkout_timeout", "10s")
	v.SetDefault("shop.notification_ttl", "3s")
	v.SetDefault("shop.keep_cart_on_close", false)
	v.SetDefault("stan.enabled", false)
	v.SetDefault("stan.cluster_id", "storefront-cluster")
	v.SetDefault("stan.client_id", "")
	v.SetDefault("stan.url", "nats://localhost:4223")
	v.SetDefault("stan.subject", "storefront.host")
	v.SetDefault("stan.queue", "storefront")
	v.SetDefault("stan.durable", "storefront-durable")
	v.SetDefault("database.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile (optional; "storefront.yaml" in the working
// directory otherwise) on top of v and decodes the result.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if c.Host.BaseURL == "" && c.Host.Resource == "" {
		return errors.New("config: host.resource or host.base_url is required")
	}
	if c.Host.CheckoutTimeout <= 0 {
		return errors.New("config: host.checkout_timeout must be positive")
	}
	if c.Shop.NotificationTTL <= 0 {
		return errors.New("config: shop.notification_ttl must be positive")
	}
	if c.STAN.Enabled && c.STAN.Subject == "" {
		return errors.New("config: stan.subject is required when stan is enabled")
	}
	return nil
}
