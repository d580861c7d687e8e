package inspect

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kingrea/modload/internal/config"
)

// Environment overrides on top of the project config. The port override
// lives in config (MODLOAD_INSPECT_PORT).
const (
	EnvEnabled = "MODLOAD_INSPECT_ENABLED"
	EnvHost    = "MODLOAD_INSPECT_HOST"
)

// DefaultMaxBody caps POST /load payloads.
const DefaultMaxBody int64 = 64 << 10

// Timeouts bound the listener's connections. Write covers a full load.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// DefaultTimeouts returns the listener timeouts used when none are set.
func DefaultTimeouts() Timeouts {
	return Timeouts{Read: 15 * time.Second, Write: time.Minute, Idle: time.Minute}
}

// Settings controls the inspect listener. Addr is host:port; port 0 binds
// any free port.
type Settings struct {
	Enabled  bool
	Addr     string
	MaxBody  int64
	Timeouts Timeouts
}

// SettingsFromConfig derives Settings from the project's inspect block and
// the environment.
func SettingsFromConfig(cfg *config.Config) Settings {
	var raw config.InspectConfig
	if cfg != nil {
		raw = cfg.Project.Inspect
	}
	host := strings.TrimSpace(raw.Host)
	if v := strings.TrimSpace(os.Getenv(EnvHost)); v != "" {
		host = v
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port := raw.Port
	if port < 0 || port > 65535 {
		port = 0
	}
	s := Settings{
		Enabled: raw.Enabled,
		Addr:    net.JoinHostPort(host, strconv.Itoa(port)),
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnabled)); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			s.Enabled = enabled
		}
	}
	return s.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if strings.TrimSpace(s.Addr) == "" {
		s.Addr = "127.0.0.1:0"
	}
	if s.MaxBody <= 0 {
		s.MaxBody = DefaultMaxBody
	}
	def := DefaultTimeouts()
	if s.Timeouts.Read <= 0 {
		s.Timeouts.Read = def.Read
	}
	if s.Timeouts.Write <= 0 {
		s.Timeouts.Write = def.Write
	}
	if s.Timeouts.Idle <= 0 {
		s.Timeouts.Idle = def.Idle
	}
	return s
}
