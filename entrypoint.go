package main

import (
	"fmt"

	"github.com/modulrcloud/counter-relay/cryptography"
	"github.com/modulrcloud/counter-relay/handlers"
	"github.com/modulrcloud/counter-relay/http_pack"
	"github.com/modulrcloud/counter-relay/rpc_pack"
	"github.com/modulrcloud/counter-relay/structures"
	"github.com/modulrcloud/counter-relay/utils"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunRelay prepares the relay and serves HTTP until the server stops.
// Any startup failure is fatal: nothing is served without a usable identity and package id.
func RunRelay() {

	cfg, err := structures.LoadRelayConfig()
	if err != nil {
		fatal("Failed to load configuration", err)
		return
	}

	if err := utils.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fatal("Failed to initialise logger", err)
		return
	}

	relay, err := prepareRelay(cfg)
	if err != nil {
		fatal("Failed to prepare relay", err)
		return
	}

	server := http_pack.NewHTTPServer(relay)

	go listenForSignals(server)

	if err := http_pack.CreateHTTPServer(server, cfg.ListenAddr()); err != nil {
		utils.GracefulShutdown(1)
	}

	// Serve returns nil after a signal-driven Shutdown; wait for that shutdown to exit the process.
	utils.GracefulShutdown(0)
}

func prepareRelay(cfg *structures.RelayConfig) (*handlers.Relay, error) {

	identity, err := cryptography.ResolveIdentity(cfg.Mnemonic, cfg.SecretKey, cfg.DerivationPath)
	if err != nil {
		return nil, fmt.Errorf("resolve signing identity: %w", err)
	}

	client := rpc_pack.NewClient(cfg.RpcUrl,
		rpc_pack.WithTimeout(cfg.RpcTimeout),
		rpc_pack.WithFinalityTimeout(cfg.FinalityTimeout),
	)

	utils.LogWithTime("Relay identity resolved", zapcore.InfoLevel,
		zap.String("address", identity.Address()),
		zap.String("source", identity.Source()),
		zap.String("network", cfg.Network),
		zap.String("rpc", client.Endpoint()),
		zap.String("package", cfg.PackageId),
	)

	return handlers.NewRelay(cfg, identity, client, utils.NewMetrics()), nil
}

func fatal(msg string, err error) {
	utils.LogWithTime(fmt.Sprintf("%s: %v", msg, err), zapcore.ErrorLevel)
	// the logger may still be the no-op one
	fmt.Printf("%s: %v\n", msg, err)
	utils.GracefulShutdown(1)
}

func shutdownServer(server *fasthttp.Server) func() error {
	return func() error { return server.Shutdown() }
}
