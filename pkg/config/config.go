// Package config resolves the bridge's settings: a listen port, a log
// level, the credit grant handed out on CREDIT_STATUS, and an optional
// sync-wait watchdog timeout. Settings come from CLI flags with an
// optional .ini file supplying defaults for anything left unset.
package config

import (
	"flag"
	"time"

	"gopkg.in/ini.v1"
)

const (
	// DefaultPort is the UDP port the bridge listens on when nothing else
	// is configured.
	DefaultPort = 9997
	// DefaultCreditGrant is the steady-state credit count granted to the
	// peer on every CREDIT_STATUS.
	DefaultCreditGrant = 3
	// DefaultLogLevel matches logrus's default.
	DefaultLogLevel = "info"
)

// Config holds the bridge's resolved runtime settings.
type Config struct {
	Port        uint16
	LogLevel    string
	CreditGrant uint8
	SyncTimeout time.Duration
}

// iniDefaults is the subset of Config an .ini file may override. Section
// layout mirrors the teacher's EDS/object-dictionary .ini convention: one
// flat [bridge] section, keys named after the flags with underscores in
// place of hyphens (log_level for -log-level).
type iniDefaults struct {
	Port          uint16
	LogLevel      string
	CreditGrant   uint8
	SyncTimeoutMs int
}

// Load resolves a Config from CLI flags registered on fs and parsed from
// args. A -config flag, if given, names an .ini file supplying defaults for
// any flag the caller did not explicitly pass; flags always win over the
// .ini file over the package defaults.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	defaults := Config{
		Port:        DefaultPort,
		LogLevel:    DefaultLogLevel,
		CreditGrant: DefaultCreditGrant,
	}

	configPath := fs.String("config", "", "path to an ini config file (bridge section)")
	port := fs.Uint("port", uint(defaults.Port), "UDP port to listen on")
	logLevel := fs.String("log-level", defaults.LogLevel, "logrus level (debug, info, warn, error)")
	creditGrant := fs.Uint("credit-grant", uint(defaults.CreditGrant), "credit count granted on CREDIT_STATUS")
	syncTimeoutMs := fs.Int("sync-timeout-ms", int(defaults.SyncTimeout/time.Millisecond), "sync-wait watchdog timeout in milliseconds (0 disables)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:        uint16(*port),
		LogLevel:    *logLevel,
		CreditGrant: uint8(*creditGrant),
		SyncTimeout: time.Duration(*syncTimeoutMs) * time.Millisecond,
	}

	if *configPath == "" {
		return cfg, nil
	}
	overrides, err := loadIni(*configPath)
	if err != nil {
		return Config{}, err
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if !explicit["port"] {
		cfg.Port = overrides.Port
	}
	if !explicit["log-level"] {
		cfg.LogLevel = overrides.LogLevel
	}
	if !explicit["credit-grant"] {
		cfg.CreditGrant = overrides.CreditGrant
	}
	if !explicit["sync-timeout-ms"] {
		cfg.SyncTimeout = time.Duration(overrides.SyncTimeoutMs) * time.Millisecond
	}
	return cfg, nil
}

func loadIni(path string) (iniDefaults, error) {
	file, err := ini.Load(path)
	if err != nil {
		return iniDefaults{}, err
	}
	section := file.Section("bridge")
	return iniDefaults{
		Port:          uint16(section.Key("port").MustUint(DefaultPort)),
		LogLevel:      section.Key("log_level").MustString(DefaultLogLevel),
		CreditGrant:   uint8(section.Key("credit_grant").MustUint(DefaultCreditGrant)),
		SyncTimeoutMs: section.Key("sync_timeout_ms").MustInt(0),
	}, nil
}
