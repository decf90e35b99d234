package fingerprint

import (
	"os"
	"sync"

	"github.com/streamingfast/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var zlog, tracer = logging.PackageLogger("asthash-fingerprint", "github.com/streamingfast/ast-hash/fingerprint")

// DebugEnvVar turns on diagnostic traces on stderr when present in the
// environment, whatever its value.
const DebugEnvVar = "ASTHASH_DEBUG"

var (
	diagnosticOnce   sync.Once
	diagnosticLogger *zap.Logger
)

// traceLogger returns the logger receiving per child traces, nil when tracing
// is off. The environment is only sampled once per process.
func traceLogger() *zap.Logger {
	diagnosticOnce.Do(func() {
		diagnosticLogger = diagnosticLoggerFromEnv(os.LookupEnv, os.Stderr)
	})

	if diagnosticLogger != nil {
		return diagnosticLogger
	}

	if tracer.Enabled() {
		return zlog
	}

	return nil
}

func diagnosticLoggerFromEnv(lookupEnv func(key string) (string, bool), out zapcore.WriteSyncer) *zap.Logger {
	if _, found := lookupEnv(DebugEnvVar); !found {
		return nil
	}

	return newDiagnosticLogger(out)
}

func newDiagnosticLogger(out zapcore.WriteSyncer) *zap.Logger {
	config := zap.NewDevelopmentEncoderConfig()
	config.TimeKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(config), zapcore.Lock(out), zapcore.DebugLevel)
	return zap.New(core).Named("fingerprint")
}
