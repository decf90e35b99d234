package main

import (
	"github.com/streamingfast/cli"
	"github.com/streamingfast/logging"
)

// Traces of the commands themselves are enabled with DLOG=asthash-cli=debug,
// engine traces with DLOG=asthash-fingerprint=debug or ASTHASH_DEBUG.
var zlog, tracer = logging.RootLogger("asthash-cli", "github.com/streamingfast/ast-hash/cmd/asthash")

func init() {
	cli.SetLogger(zlog, tracer)
}
