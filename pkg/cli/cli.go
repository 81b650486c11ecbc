// Package cli parses command-line configuration for the jackdaw
// core, adapted from the teacher's flag.NewFlagSet pattern: short and
// long flag pairs, environment-variable fallbacks applied only when
// the flag was not explicitly set, and a reordering pass so flags and
// positional arguments can be freely interleaved.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds settings parsed from command-line arguments.
type Config struct {
	DocumentPath  string        // path to the persisted document, if any
	SamplerCmd    string        // sampler subprocess command line
	SamplerAddr   string        // sampler control-protocol listen address
	Timeout       time.Duration // 0 means unlimited
	LogLevel      string        // debug, info, warn, error
	Headless      bool
	ShowHelp      bool
}

// ParseArgs parses args into a Config.
func ParseArgs(args []string) (*Config, error) {
	reordered := reorderArgs(args)

	fs := flag.NewFlagSet("jackdaw", flag.ContinueOnError)
	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "exit after this many seconds (0 = unlimited)")
	fs.IntVar(&timeoutSec, "t", 0, "short form of -timeout")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&config.LogLevel, "l", "info", "short form of -log-level")
	fs.StringVar(&config.SamplerCmd, "sampler-cmd", "", "sampler subprocess command line")
	fs.StringVar(&config.SamplerAddr, "sampler-addr", "", "sampler control-protocol address")
	fs.BoolVar(&config.Headless, "headless", false, "run without a GUI shell")
	fs.BoolVar(&config.ShowHelp, "help", false, "show this help")
	fs.BoolVar(&config.ShowHelp, "h", false, "short form of -help")

	if err := fs.Parse(reordered); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["headless"] {
		if v := os.Getenv("JACKDAW_HEADLESS"); v != "" {
			config.Headless = v == "1" || strings.EqualFold(v, "true")
		}
	}
	if !set["timeout"] && !set["t"] {
		if v := os.Getenv("JACKDAW_TIMEOUT"); v != "" {
			if t, err := strconv.Atoi(v); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}
	if !set["log-level"] && !set["l"] {
		if v := os.Getenv("JACKDAW_LOG_LEVEL"); v != "" {
			config.LogLevel = strings.ToLower(v)
		}
	}
	if !set["sampler-cmd"] {
		config.SamplerCmd = os.Getenv("JACKDAW_SAMPLER_CMD")
	}
	if !set["sampler-addr"] {
		config.SamplerAddr = os.Getenv("JACKDAW_SAMPLER_ADDR")
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	if fs.NArg() > 0 {
		config.DocumentPath = fs.Arg(0)
	}

	return config, nil
}

// reorderArgs places flags (and their values) before positional
// arguments so ParseArgs can tolerate either ordering.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if arg != "-h" && arg != "--help" && arg != "--headless" {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}
	return append(flags, positional...)
}

// PrintHelp writes usage information to stdout.
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `jackdaw - MIDI sequencer core

Usage:
  jackdaw [options] [document-path]

Arguments:
  document-path                 path to a saved document (optional)

Options:
  -t, --timeout <seconds>       exit after N seconds (default: unlimited)
  -l, --log-level <level>       debug, info, warn, error (default: info)
  --sampler-cmd <command>       sampler subprocess command line
  --sampler-addr <host:port>    sampler control-protocol address
  --headless                    run without a GUI shell
  -h, --help                     show this help

Environment Variables:
  JACKDAW_HEADLESS=1
  JACKDAW_TIMEOUT=<seconds>
  JACKDAW_LOG_LEVEL=<level>
  JACKDAW_SAMPLER_CMD=<command>
  JACKDAW_SAMPLER_ADDR=<host:port>
`)
}
