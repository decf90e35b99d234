package main

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

// Version value, injected via go build `ldflags` at build time
var version = "dev"

func init() {
	logging.InstantiateLoggers(logging.WithDefaultLevel(zap.InfoLevel))
}

func main() {
	Run("asthash", "Fingerprint AST dumps and deduplicate type lists",
		HashCmd,
		BenchUniqueCmd,

		ConfigureViper("ASTHASH"),
		ConfigureVersion(version),

		PersistentFlags(
			func(flags *pflag.FlagSet) {
				flags.String("pprof-listen-addr", "", "[OPERATOR] If non-empty, the process will listen on this address for pprof analysis (see https://golang.org/pkg/net/http/pprof/)")
			},
		),
		AfterAllHook(func(cmd *cobra.Command) {
			cmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
				servePprof(viper.GetString("global-pprof-listen-addr"))
			}
		}),
	)
}

// servePprof exposes the profiling endpoints in the background, useful while
// hashing large dump directories or running bench-unique.
func servePprof(listenAddr string) {
	if listenAddr == "" {
		return
	}

	go func() {
		zlog.Info("serving pprof", zap.String("listen_addr", listenAddr))
		if err := http.ListenAndServe(listenAddr, nil); err != nil {
			zlog.Warn("pprof server stopped", zap.String("listen_addr", listenAddr), zap.Error(err))
		}
	}()
}
