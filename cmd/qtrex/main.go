package main

import (
	"log/slog"
	"net/http"
	"os"

	_ "net/http/pprof" // profiling

	"qtrex/internal/cli"
	"qtrex/internal/qtrexlog"
)

func main() {
	defer qtrexlog.RecoverPanic("main", func() {
		slog.Error("qtrex terminated due to unhandled panic")
	})

	if os.Getenv("QTREX_PROFILE") != "" {
		go func() {
			slog.Info("serving pprof at localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				slog.Error("pprof listener failed", "error", err)
			}
		}()
	}

	cli.Execute()
}
