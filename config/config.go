// Package config implements the flat, per-daemon configuration struct every
// binary under cmd/ parses at startup, using github.com/jessevdk/go-flags
// the way the teacher's cmd/lnd/main.go hands its args to a flags.Error-
// aware entry point.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

// DefaultMsgEndpoint and DefaultCtlEndpoint are the addresses Supervisor
// binds and every other daemon dials, absent an override (spec.md §6
// "Bus transport").
const (
	DefaultMsgEndpoint = "127.0.0.1:9854"
	DefaultCtlEndpoint = "127.0.0.1:9855"
)

// Config is shared by every daemon binary (lnpd, channeld, connectiond,
// gossipd, routed). A given binary only honors the subset of flags
// meaningful to it; e.g. connectiond ignores DataDir because it keeps no
// storage driver.
type Config struct {
	MsgEndpoint string `long:"msgendpoint" description:"address of the Msg bus, bound by lnpd and dialed by everyone else"`
	CtlEndpoint string `long:"ctlendpoint" description:"address of the Ctl bus, bound by lnpd and dialed by everyone else"`

	DataDir string `long:"datadir" description:"directory holding per-channel storage driver files"`
	LogDir  string `long:"logdir" description:"directory holding daemon log files"`

	DebugLevel string `long:"debuglevel" description:"logging level for all subsystems {trace, debug, info, warn, error, critical}"`

	MaxLogFileSize int `long:"maxlogfilesize" description:"maximum log file size in MB before rotation"`
	MaxLogFiles    int `long:"maxlogfiles" description:"maximum number of rotated log files to keep"`

	// TempChannelID is the hex-encoded temporary channel id a channeld
	// child is launched with as its sole positional argument; populated
	// by Load from os.Args, not from a flag.
	TempChannelID string
}

// Default returns a Config populated with this core's defaults, mirroring
// the teacher's habit of constructing a zero-value-safe config before
// flags.Parse overlays command-line overrides.
func Default() *Config {
	return &Config{
		MsgEndpoint:    DefaultMsgEndpoint,
		CtlEndpoint:    DefaultCtlEndpoint,
		DataDir:        defaultDataDir(),
		LogDir:         defaultLogDir(),
		DebugLevel:     "info",
		MaxLogFileSize: 10,
		MaxLogFiles:    3,
	}
}

// Load parses args (typically os.Args[1:]) into a Config seeded with
// Default(). Any positional argument left over after flag parsing is
// treated as a channeld TempChannelID, the convention lnpd's child-spawn
// uses to hand off the new channel's identity (spec.md §4.2 "Child
// launching").
func Load(args []string) (*Config, error) {
	cfg := Default()
	parser := flags.NewParser(cfg, flags.Default)
	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		cfg.TempChannelID = rest[0]
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".lnpnode", "data")
	}
	return filepath.Join(home, ".lnpnode", "data")
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".lnpnode", "logs")
	}
	return filepath.Join(home, ".lnpnode", "logs")
}

// LogFile returns the log file path for a given daemon name under the
// configured LogDir, matching the per-daemon subdirectory layout of the
// teacher's default config (e.g. ~/.lnd/logs/<net>/lnd.log, here without a
// network tier since this core has none).
func (c *Config) LogFile(daemonName string) string {
	return filepath.Join(c.LogDir, fmt.Sprintf("%s.log", daemonName))
}
