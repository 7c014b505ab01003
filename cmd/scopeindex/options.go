package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"scopeindex/internal/core/config"
)

const versionString = "1.0.0"
const defaultConfigPath = "./scopeindex.toml"

var errUsage = errors.New("usage")

type cliOptions struct {
	configPath string
	verbose    bool
	version    bool
	regexp     bool
	ignoreCase bool
	limit      int
	args       []string
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("scopeindex", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.BoolVar(&opts.regexp, "regexp", false, "Treat search queries as regular expressions")
	fs.BoolVar(&opts.ignoreCase, "i", false, "Case-insensitive search")
	fs.IntVar(&opts.limit, "limit", 0, "Maximum number of results (0 uses the configured limit)")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	opts.args = fs.Args()
	return opts, nil
}

// loadConfig reads path. A missing file at the default location falls back
// to the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		config.ApplyEnvOverrides(cfg)
		return cfg, nil
	}
	return nil, fmt.Errorf("load config %s: %w", path, err)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: scopeindex [flags] <command> [args]

commands:
  index <file>...                      extract and store the scopes of files
  complete <file> <line> <col> <prefix> list stored completions for prefix
  find <root> <query>                  fuzzy-match project filenames
  symbols <root>                       list the symbols declared under root
  search <root> <query>                search the text of every project file
  watch <root>                         keep the index current until interrupted
`)
}
