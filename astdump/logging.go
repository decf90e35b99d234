package astdump

import (
	"github.com/streamingfast/logging"
)

var zlog, tracer = logging.PackageLogger("asthash-astdump", "github.com/streamingfast/ast-hash/astdump")
