package envconf

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

type nestedConf struct {
	DSN   string `env:"ENVCONF_TEST_DSN"`
	Conns int    `env:"ENVCONF_TEST_CONNS" envDefault:"4"`
}

type testConf struct {
	Port     uint16        `env:"ENVCONF_TEST_PORT" envDefault:"8080"`
	Timeout  time.Duration `env:"ENVCONF_TEST_TIMEOUT" envDefault:"3s"`
	Level    slog.Level    `env:"ENVCONF_TEST_LEVEL" envDefault:"info"`
	Origins  []string      `env:"ENVCONF_TEST_ORIGINS" envDefault:""`
	Weights  []int         `env:"ENVCONF_TEST_WEIGHTS" envDefault:"1,2"`
	Debug    *bool         `env:"ENVCONF_TEST_DEBUG" envDefault:"false"`
	Postgres nestedConf
	ignored  string
}

//nolint:paralleltest // t.Setenv
func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("ENVCONF_TEST_DSN", "postgres://x")
	t.Setenv("ENVCONF_TEST_TIMEOUT", "250ms")
	t.Setenv("ENVCONF_TEST_LEVEL", "debug")
	t.Setenv("ENVCONF_TEST_ORIGINS", "a.example, b.example,,")

	cfg := new(testConf)

	err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Fatalf("port: want 8080, got %d", cfg.Port)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("timeout: got %s", cfg.Timeout)
	}
	if cfg.Level != slog.LevelDebug {
		t.Fatalf("level: got %s", cfg.Level)
	}
	if len(cfg.Origins) != 2 || cfg.Origins[0] != "a.example" || cfg.Origins[1] != "b.example" {
		t.Fatalf("origins: got %#v", cfg.Origins)
	}
	if len(cfg.Weights) != 2 || cfg.Weights[1] != 2 {
		t.Fatalf("weights: got %#v", cfg.Weights)
	}
	if cfg.Debug == nil || *cfg.Debug {
		t.Fatalf("debug: got %v", cfg.Debug)
	}
	if cfg.Postgres.DSN != "postgres://x" || cfg.Postgres.Conns != 4 {
		t.Fatalf("nested: got %+v", cfg.Postgres)
	}
}

//nolint:paralleltest // t.Setenv
func TestLoad_MissingRequired(t *testing.T) {
	cfg := new(testConf)

	err := Load(cfg)
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("want ErrMissingRequired, got %v", err)
	}
}

//nolint:paralleltest // t.Setenv
func TestLoad_BadValue(t *testing.T) {
	t.Setenv("ENVCONF_TEST_DSN", "x")
	t.Setenv("ENVCONF_TEST_PORT", "not-a-port")

	err := Load(new(testConf))
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_InvalidDestination(t *testing.T) {
	t.Parallel()

	if err := Load(nil); err == nil {
		t.Fatalf("nil destination accepted")
	}

	var notStruct int
	if err := Load(&notStruct); err == nil {
		t.Fatalf("non-struct destination accepted")
	}

	if err := Load(testConf{}); err == nil {
		t.Fatalf("non-pointer destination accepted")
	}
}
