package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/modulrcloud/counter-relay/utils"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

func main() {
	RunRelay()
}

func listenForSignals(server *fasthttp.Server) {

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	received := <-sig
	utils.Log().Info("Signal received", zap.String("signal", received.String()))

	utils.GracefulShutdown(0, shutdownServer(server))
}
