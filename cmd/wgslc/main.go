// Command wgslc is the WGSL front-end compiler CLI.
//
// Usage:
//
//	wgslc [options] <input.wgsl>
//
// Examples:
//
//	wgslc shader.wgsl                    # Parse, resolve and validate
//	wgslc -entry fs_main shader.wgsl     # Keep a single entry point
//	wgslc -set exposure=1.5 shader.wgsl  # Substitute an override value
//	wgslc -config wgslc.toml shader.wgsl # Read options from a TOML file
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gogpu/wgslc"
)

var (
	entry     = flag.String("entry", "", "compile a single entry point")
	rename    = flag.Bool("rename", false, "compact module-scope names")
	overrides overrideFlags
	config    = flag.String("config", "", "read options from a TOML file")
	maxErrors = flag.Int("max-errors", 0, "parse error cap (0 = default)")
	quiet     = flag.Bool("quiet", false, "suppress the module summary")
	version   = flag.Bool("version", false, "print version")
)

const wgslcVersion = "0.1.0-dev"

func main() {
	flag.Var(&overrides, "set", "override value as name=number (repeatable)")
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("wgslc version %s\n", wgslcVersion)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		printError("no input file specified")
		usage()
		os.Exit(1)
	}

	inputPath := args[0]

	opts := wgslc.Options{}
	if *config != "" {
		if err := loadConfig(*config, &opts); err != nil {
			printError(fmt.Sprintf("reading config: %v", err))
			os.Exit(1)
		}
	}
	// Flags win over the config file.
	if *entry != "" {
		opts.EntryPoint = *entry
	}
	if *rename {
		opts.CompactNames = true
	}
	if *maxErrors > 0 {
		opts.MaxParseErrors = *maxErrors
	}
	if len(overrides.values) > 0 {
		if opts.Overrides == nil {
			opts.Overrides = make(map[string]float64)
		}
		for name, value := range overrides.values {
			opts.Overrides[name] = value
		}
	}

	source, err := os.ReadFile(inputPath)
	if err != nil {
		printError(fmt.Sprintf("reading file: %v", err))
		os.Exit(1)
	}

	result, err := wgslc.CompileWithOptions(string(source), opts)
	if err != nil {
		reportFailure(inputPath, err)
		os.Exit(1)
	}

	printDiagnostics(inputPath, string(source), result.Diagnostics)

	if !*quiet {
		printSummary(inputPath, result)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: wgslc [options] <input.wgsl>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  wgslc shader.wgsl                   Validate a shader module\n")
	fmt.Fprintf(os.Stderr, "  wgslc -entry fs_main shader.wgsl    Keep one entry point\n")
	fmt.Fprintf(os.Stderr, "  wgslc -set exposure=1.5 shader.wgsl Substitute an override\n")
}
