package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abourget/llerrgroup"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/streamingfast/ast-hash/astdump"
	"github.com/streamingfast/ast-hash/fingerprint"
	"github.com/streamingfast/ast-hash/stablehash"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
	"go.uber.org/zap"
)

var HashCmd = Command(hashE,
	"hash <path>",
	"Computes the fingerprint of AST dump files",
	Description(`
		Loads AST dumps (YAML or JSON) and prints one '<digest>  <file>' line per dump.

		Arguments:
		- <path>: A dump file, or a folder walked recursively for '*.json', '*.yaml' and '*.yml' files.

		Set the ASTHASH_DEBUG environment variable to trace every child visited on stderr.
	`),
	ExactArgs(1),
	Flags(func(flags *pflag.FlagSet) {
		flags.String("format", "hex", "Digest output format, one of: hex, decimal, base64")
		flags.Uint64("concurrency", 4, "Amount of dump files hashed in parallel")
		flags.Bool("show-version", false, "Print the cache key version before the digests")
	}),
)

func hashE(cmd *cobra.Command, args []string) error {
	root := args[0]

	format, err := digestFormatter(sflags.MustGetString(cmd, "format"))
	if err != nil {
		return err
	}

	concurrency := sflags.MustGetUint64(cmd, "concurrency")
	if concurrency == 0 {
		return fmt.Errorf("invalid concurrency: must be greater than 0")
	}

	files, err := dumpFiles(root)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no dump files found in %q", root)
	}

	engine := fingerprint.New()
	digests, err := hashFiles(engine, files, int(concurrency))
	if err != nil {
		return err
	}

	zlog.Debug("hashed dump files", zap.Int("count", len(files)), zap.String("version", engine.Version()))

	if sflags.MustGetBool(cmd, "show-version") {
		fmt.Println(engine.Version())
	}

	for i, file := range files {
		fmt.Printf("%s  %s\n", format(digests[i]), file)
	}

	return nil
}

// hashFiles loads and hashes files, each digest at the index of its file.
func hashFiles(engine *fingerprint.Engine, files []string, concurrency int) ([]stablehash.Digest, error) {
	digests := make([]stablehash.Digest, len(files))

	llg := llerrgroup.New(concurrency)
	for i, f := range files {
		if llg.Stop() {
			continue
		}

		index := i
		file := f

		llg.Go(func() error {
			value, err := astdump.LoadFile(file)
			if err != nil {
				return err
			}

			digest, err := engine.Hash(value)
			if err != nil {
				return fmt.Errorf("hashing %q: %w", file, err)
			}

			if tracer.Enabled() {
				zlog.Debug("hashed dump", zap.String("file", file), zap.Stringer("digest", digest))
			}

			digests[index] = digest
			return nil
		})
	}

	if err := llg.Wait(); err != nil {
		return nil, err
	}

	return digests, nil
}

func dumpFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func digestFormatter(format string) (func(stablehash.Digest) string, error) {
	switch format {
	case "hex":
		return stablehash.Digest.String, nil
	case "decimal":
		return stablehash.Digest.Decimal, nil
	case "base64":
		return stablehash.Digest.Base64, nil
	}

	return nil, fmt.Errorf("invalid format %q, valid values are: hex, decimal, base64", format)
}
