// Package config loads gateway settings from an optional YAML file, the
// environment (prefix BST) and finally the settings table.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/stake-plus/bst-governance/src/chain"
	"github.com/stake-plus/bst-governance/src/gov"
)

type Config struct {
	BindAddr string `yaml:"bindAddr" split_words:"true"`
	DevMode  bool   `yaml:"devMode"  split_words:"true"`
	LogLevel string `yaml:"logLevel" split_words:"true"`

	TLSCertFile string `yaml:"tlsCertFile" envconfig:"TLS_CERT_FILE"`
	TLSKeyFile  string `yaml:"tlsKeyFile"  envconfig:"TLS_KEY_FILE"`

	RPCURL      string `yaml:"rpcUrl"      envconfig:"RPC_URL"`
	ChainID     uint64 `yaml:"chainId"     split_words:"true"`
	ExplorerURL string `yaml:"explorerUrl" envconfig:"EXPLORER_URL"`

	MembershipAddress string `yaml:"membershipAddress" split_words:"true"`
	TokenAddress      string `yaml:"tokenAddress"      split_words:"true"`
	GovernorAddress   string `yaml:"governorAddress"   split_words:"true"`
	ENSRegistry       string `yaml:"ensRegistry"       envconfig:"ENS_REGISTRY"`

	JWTSecret  string `yaml:"jwtSecret"  envconfig:"JWT_SECRET"`
	SIWEDomain string `yaml:"siweDomain" envconfig:"SIWE_DOMAIN"`
	SIWEURI    string `yaml:"siweUri"    envconfig:"SIWE_URI"`

	MySQLDSN   string `yaml:"mysqlDsn"   envconfig:"MYSQL_DSN"`
	SQLitePath string `yaml:"sqlitePath" split_words:"true"`
	RedisURL   string `yaml:"redisUrl"   envconfig:"REDIS_URL"`

	ReadTimeout     time.Duration `yaml:"readTimeout"     split_words:"true"`
	ReadAttempts    int           `yaml:"readAttempts"    split_words:"true"`
	StalenessWindow time.Duration `yaml:"stalenessWindow" split_words:"true"`
	WatchInterval   time.Duration `yaml:"watchInterval"   split_words:"true"`

	CORSOrigins []string      `yaml:"corsOrigins" envconfig:"CORS_ORIGINS"`
	RateLimit   int           `yaml:"rateLimit"   split_words:"true"`
	RateWindow  time.Duration `yaml:"rateWindow"  split_words:"true"`
	AdminTier   string        `yaml:"adminTier"   split_words:"true"`
}

func Defaults() *Config {
	return &Config{
		BindAddr:        ":8080",
		LogLevel:        "info",
		ExplorerURL:     "https://sepolia.etherscan.io",
		SIWEDomain:      "localhost:8080",
		SIWEURI:         "http://localhost:8080",
		SQLitePath:      "bst.db",
		ReadTimeout:     8 * time.Second,
		ReadAttempts:    3,
		StalenessWindow: 12 * time.Second,
		WatchInterval:   15 * time.Second,
		CORSOrigins:     []string{"http://localhost:5173"},
		RateLimit:       60,
		RateWindow:      time.Minute,
		AdminTier:       gov.TierGold.String(),
	}
}

// Load applies defaults, then configFile (if any), then BST_* variables.
func Load(configFile string) (*Config, error) {
	cfg := Defaults()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("bst", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const devSecret = "bst-dev-secret"

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.DevMode {
			return errors.New("BST_JWT_SECRET is required outside dev mode")
		}
		logrus.Warn("no JWT secret configured, using the dev secret")
		c.JWTSecret = devSecret
	}
	if _, err := gov.ParseTier(c.AdminTier); err != nil {
		return fmt.Errorf("adminTier: %w", err)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("tlsCertFile and tlsKeyFile must be set together")
	}
	if c.ReadAttempts < 1 {
		return fmt.Errorf("readAttempts must be at least 1, got %d", c.ReadAttempts)
	}
	if _, err := c.Addresses(); err != nil {
		return err
	}
	return nil
}

// Addresses parses the configured contract addresses. Blank ones are
// left nil, which marks that contract unconfigured.
func (c *Config) Addresses() (chain.Addresses, error) {
	var out chain.Addresses
	for _, f := range []struct {
		name string
		raw  string
		dst  **common.Address
	}{
		{"membershipAddress", c.MembershipAddress, &out.Membership},
		{"tokenAddress", c.TokenAddress, &out.Token},
		{"governorAddress", c.GovernorAddress, &out.Governor},
		{"ensRegistry", c.ENSRegistry, &out.ENSRegistry},
	} {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		addr, err := gov.ParseAddress(raw)
		if err != nil {
			return chain.Addresses{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = &addr
	}
	return out, nil
}

func (c *Config) RequiredAdminTier() gov.Tier {
	t, err := gov.ParseTier(c.AdminTier)
	if err != nil {
		return gov.TierGold
	}
	return t
}

// ApplySettings overlays values from the settings table. Database values
// win over file and environment, unparsable ones are logged and skipped.
func (c *Config) ApplySettings(settings map[string]string) {
	log := logrus.WithField("component", "config")
	for name, val := range settings {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		var err error
		switch name {
		case "explorer_url":
			c.ExplorerURL = val
		case "admin_tier":
			if _, err = gov.ParseTier(val); err == nil {
				c.AdminTier = val
			}
		case "read_attempts":
			var n int
			if n, err = strconv.Atoi(val); err == nil && n > 0 {
				c.ReadAttempts = n
			}
		case "read_timeout":
			err = setDuration(&c.ReadTimeout, val)
		case "staleness_window":
			err = setDuration(&c.StalenessWindow, val)
		case "watch_interval":
			err = setDuration(&c.WatchInterval, val)
		case "cors_origins":
			c.CORSOrigins = splitCSV(val)
		case "rate_limit":
			var n int
			if n, err = strconv.Atoi(val); err == nil && n > 0 {
				c.RateLimit = n
			}
		default:
			continue
		}
		if err != nil {
			log.WithError(err).WithField("setting", name).Warn("ignoring invalid setting")
		}
	}
}

func setDuration(dst *time.Duration, val string) error {
	d, err := time.ParseDuration(val)
	if err != nil {
		return err
	}
	if d > 0 {
		*dst = d
	}
	return nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
