package main

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/streamingfast/ast-hash/typeset"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/cli/sflags"
)

var BenchUniqueCmd = Command(benchUniqueE,
	"bench-unique",
	"Benchmarks identity deduplication of type lists against the quadratic approach",
	ExactArgs(0),
	Flags(func(flags *pflag.FlagSet) {
		flags.Uint64("iterations-percent", 100, "Percentage of the default amount of iterations to run for each scenario")
		flags.Uint64("seed", 0, "Seed used to shuffle the lists, 0 uses the current time")
	}),
)

type benchScenario struct {
	size       int
	duplicates int
	iterations int
}

var benchScenarios = []benchScenario{
	// small lists
	{5, 3, 100000},
	{7, 3, 100000},
	{8, 3, 50000},
	{10, 3, 50000},
	// medium lists
	{50, 5, 10000},
	{100, 5, 5000},
	// large lists, what a real analysis sees
	{500, 3, 1000},
	{1000, 3, 500},
	// high duplication
	{2000, 5, 100},
}

type benchType struct {
	id int
}

func benchUniqueE(cmd *cobra.Command, args []string) error {
	percent := sflags.MustGetUint64(cmd, "iterations-percent")
	if percent == 0 {
		return fmt.Errorf("invalid iterations-percent: must be greater than 0")
	}

	seed := int64(sflags.MustGetUint64(cmd, "seed"))
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	random := rand.New(rand.NewSource(seed))

	fmt.Println("TYPE LIST DEDUPLICATION BENCHMARK")
	for _, scenario := range benchScenarios {
		iterations := scenario.iterations * int(percent) / 100
		if iterations == 0 {
			iterations = 1
		}

		if err := runBenchScenario(random, scenario.size, scenario.duplicates, iterations); err != nil {
			return err
		}
	}
	fmt.Println(strings.Repeat("=", 70))

	return nil
}

func runBenchScenario(random *rand.Rand, size, duplicates, iterations int) error {
	list := benchList(random, size, duplicates)

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("List size: %d (unique: %d, duplication factor: %dx)\n", len(list), size, duplicates)
	fmt.Printf("Iterations: %d\n", iterations)
	fmt.Println(strings.Repeat("-", 70))

	// warmup
	uniqueLinear(list)
	typeset.Unique(list)

	start := time.Now()
	for i := 0; i < iterations; i++ {
		uniqueLinear(list)
	}
	linear := time.Since(start)

	start = time.Now()
	for i := 0; i < iterations; i++ {
		typeset.Unique(list)
	}
	identity := time.Since(start)

	expected := uniqueLinear(list)
	actual := typeset.Unique(list)
	if len(expected) != len(actual) {
		return fmt.Errorf("result count mismatch for size %d: linear found %d, identity found %d", size, len(expected), len(actual))
	}

	fmt.Printf("Linear scan:    %s\n", linear)
	fmt.Printf("Identity set:   %s\n", identity)
	fmt.Printf("Speedup:        %.2fx\n", float64(linear)/float64(identity))
	fmt.Printf("Result count:   %d\n\n", len(actual))

	return nil
}

func benchList(random *rand.Rand, size, duplicates int) []*benchType {
	unique := make([]*benchType, size)
	for i := range unique {
		unique[i] = &benchType{id: i}
	}

	list := make([]*benchType, 0, size*duplicates)
	for i := 0; i < duplicates; i++ {
		list = append(list, unique...)
	}
	random.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })

	return list
}

// uniqueLinear checks every kept element for each item.
func uniqueLinear(list []*benchType) []*benchType {
	out := make([]*benchType, 0, len(list))
	for _, item := range list {
		found := false
		for _, existing := range out {
			if existing == item {
				found = true
				break
			}
		}

		if !found {
			out = append(out, item)
		}
	}

	return out
}
