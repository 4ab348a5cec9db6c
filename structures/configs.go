package structures

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/modulrcloud/counter-relay/constants"
)

// GasParams is a gas budget/price pair where nil means "let the ledger client decide".
type GasParams struct {
	Budget *uint64 `json:"gasBudget"`
	Price  *uint64 `json:"gasPrice"`
}

// RelayConfig is the static process configuration. It is built once at startup and never mutated.
type RelayConfig struct {
	Network         string
	RpcUrl          string
	Mnemonic        string
	SecretKey       string
	DerivationPath  string
	PackageId       string
	CounterId       string
	GasDefaults     GasParams
	Interface       string
	Port            int
	LogLevel        string
	LogFile         string
	RpcTimeout      time.Duration
	FinalityTimeout time.Duration
	RateLimitRps    float64
	RateLimitBurst  int
}

// LoadRelayConfig reads the relay configuration from environment variables and applies defaults.
// It fails when the package id is missing or the network cannot be mapped to an RPC endpoint.
func LoadRelayConfig() (*RelayConfig, error) {

	cfg := &RelayConfig{
		Network:         strings.ToLower(getenv(constants.EnvNetwork, "testnet")),
		RpcUrl:          getenv(constants.EnvRpcUrl, ""),
		Mnemonic:        firstEnv(constants.EnvMnemonic, constants.EnvMnemonicAlias),
		SecretKey:       firstEnv(constants.EnvSecretKey, constants.EnvSecretKeyAlias),
		DerivationPath:  getenv(constants.EnvDerivationPath, constants.DefaultDerivationPath),
		PackageId:       getenv(constants.EnvPackageId, ""),
		CounterId:       getenv(constants.EnvCounterId, ""),
		Interface:       getenv(constants.EnvInterface, "0.0.0.0"),
		Port:            getenvInt(constants.EnvPort, 3000),
		LogLevel:        getenv(constants.EnvLogLevel, "info"),
		LogFile:         getenv(constants.EnvLogFile, ""),
		RpcTimeout:      time.Duration(getenvInt(constants.EnvRpcTimeoutMs, 30_000)) * time.Millisecond,
		FinalityTimeout: time.Duration(getenvInt(constants.EnvFinalityTimeoutMs, 60_000)) * time.Millisecond,
		RateLimitBurst:  getenvInt(constants.EnvRateLimitBurst, 10),
	}

	if rps, err := strconv.ParseFloat(getenv(constants.EnvRateLimitRps, "0"), 64); err == nil && rps > 0 {
		cfg.RateLimitRps = rps
	}

	cfg.GasDefaults = GasParams{
		Budget: ParseGasValue(os.Getenv(constants.EnvGasBudget)),
		Price:  ParseGasValue(os.Getenv(constants.EnvGasPrice)),
	}

	if cfg.RpcUrl == "" {
		url, ok := constants.NetworkRpcUrls[cfg.Network]
		if !ok {
			return nil, fmt.Errorf("unknown %s %q and no %s set", constants.EnvNetwork, cfg.Network, constants.EnvRpcUrl)
		}
		cfg.RpcUrl = url
	}

	if cfg.PackageId == "" {
		return nil, fmt.Errorf("%s is required", constants.EnvPackageId)
	}

	return cfg, nil
}

// ListenAddr is the interface:port pair the HTTP server binds to.
func (c *RelayConfig) ListenAddr() string {
	return c.Interface + ":" + strconv.Itoa(c.Port)
}

// ParseGasValue converts a textual gas value into a MIST amount. Anything that is not a
// non-negative integer (after trimming) yields nil.
func ParseGasValue(raw string) *uint64 {

	raw = strings.TrimSpace(raw)

	if raw == "" {
		return nil
	}

	if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return &v
	}

	// "5000.0" and "5e3" are numeric too
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return FloatGasValue(f)
}

// FloatGasValue accepts integral, non-negative floats that fit into uint64.
func FloatGasValue(f float64) *uint64 {
	if f < 0 || f >= 1<<64 || f != math.Trunc(f) {
		return nil
	}
	v := uint64(f)
	return &v
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
