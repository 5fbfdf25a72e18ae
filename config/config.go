package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/qrlwallet/go-bridge/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// ExplorerUrlKey is the base url of the QRL node API
	ExplorerUrlKey = "EXPLORER_URL"
	// DeviceBridgeUrlKey is the ws(s) url of the hardware device bridge
	DeviceBridgeUrlKey = "DEVICE_BRIDGE_URL"
	// RequestTimeoutKey is the timeout in seconds of a single API request
	RequestTimeoutKey = "REQUEST_TIMEOUT"
	// RateLimitKey caps API requests per second, 0 disables the limit
	RateLimitKey = "RATE_LIMIT"
	// MaxRetriesKey is how many times a failed read is retried
	MaxRetriesKey = "MAX_RETRIES"
	// CircuitBreakerKey toggles the circuit breaker around API requests
	CircuitBreakerKey = "CIRCUIT_BREAKER"
	// ScanLimitKey is how many indexes of an iterable derivation mode are
	// scanned on discovery
	ScanLimitKey = "SCAN_LIMIT"
	// NetworkKey is either mainnet or testnet
	NetworkKey = "NETWORK"
	// LogLevelKey is a logrus level name, ie. info or debug
	LogLevelKey = "LOG_LEVEL"

	envPrefix = "QRLBRIDGE"
)

type Config struct {
	ExplorerUrl     string
	DeviceBridgeUrl string
	RequestTimeout  time.Duration
	RateLimit       int
	MaxRetries      int
	CircuitBreaker  bool
	ScanLimit       int
	Currency        types.Currency
	LogLevel        log.Level
}

// Load reads the configuration from the environment and, when configFile is
// not empty, from that file. Environment variables take precedence.
func Load(configFile string) (*Config, error) {
	vip := viper.New()
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()

	vip.SetDefault(RequestTimeoutKey, 10)
	vip.SetDefault(RateLimitKey, 0)
	vip.SetDefault(MaxRetriesKey, 2)
	vip.SetDefault(CircuitBreakerKey, true)
	vip.SetDefault(ScanLimitKey, 1)
	vip.SetDefault(NetworkKey, types.MainNet)
	vip.SetDefault(LogLevelKey, log.InfoLevel.String())

	if configFile != "" {
		vip.SetConfigFile(configFile)
		if err := vip.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := fromViper(vip)
	if err != nil {
		return nil, fmt.Errorf("error while validating config: %w", err)
	}
	return cfg, nil
}

func fromViper(vip *viper.Viper) (*Config, error) {
	explorerUrl := strings.TrimSpace(vip.GetString(ExplorerUrlKey))
	if explorerUrl == "" {
		return nil, fmt.Errorf("%s must not be empty", ExplorerUrlKey)
	}
	if _, err := url.ParseRequestURI(explorerUrl); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ExplorerUrlKey, err)
	}

	timeout := vip.GetInt(RequestTimeoutKey)
	rateLimit := vip.GetInt(RateLimitKey)
	maxRetries := vip.GetInt(MaxRetriesKey)
	scanLimit := vip.GetInt(ScanLimitKey)
	if err := errors.Join(
		positive(RequestTimeoutKey, timeout),
		notNegative(RateLimitKey, rateLimit),
		notNegative(MaxRetriesKey, maxRetries),
		positive(ScanLimitKey, scanLimit),
	); err != nil {
		return nil, err
	}

	currency, err := types.CurrencyForNetwork(vip.GetString(NetworkKey))
	if err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(vip.GetString(LogLevelKey))
	if err != nil {
		return nil, err
	}

	return &Config{
		ExplorerUrl:     explorerUrl,
		DeviceBridgeUrl: strings.TrimSpace(vip.GetString(DeviceBridgeUrlKey)),
		RequestTimeout:  time.Duration(timeout) * time.Second,
		RateLimit:       rateLimit,
		MaxRetries:      maxRetries,
		CircuitBreaker:  vip.GetBool(CircuitBreakerKey),
		ScanLimit:       scanLimit,
		Currency:        currency,
		LogLevel:        level,
	}, nil
}

func positive(key string, value int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %d", key, value)
	}
	return nil
}

func notNegative(key string, value int) error {
	if value < 0 {
		return fmt.Errorf("%s must not be negative, got %d", key, value)
	}
	return nil
}
