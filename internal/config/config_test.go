package config_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/config"
)

func TestDefaultEnablesAssertions(t *testing.T) {
	cfg := config.Default()

	if !cfg.AssertionsEnabled {
		t.Error("Default().AssertionsEnabled = false, want true")
	}

	if cfg.Tracing.Enabled || cfg.StoreGeneratedClasses || cfg.UnittestMode {
		t.Errorf("Default() has a feature enabled: %+v", cfg)
	}
}

func TestNewAppliesOptionsInOrder(t *testing.T) {
	cfg := config.New(
		config.WithTracing("Demo.main"),
		config.WithClassDump("/tmp/dump"),
		config.WithUnittestMode(),
	)

	if !cfg.Tracing.Enabled {
		t.Error("WithTracing did not enable tracing")
	}

	if len(cfg.Tracing.Methods) != 1 || cfg.Tracing.Methods[0] != "Demo.main" {
		t.Errorf("Tracing.Methods = %v, want [Demo.main]", cfg.Tracing.Methods)
	}

	if !cfg.StoreGeneratedClasses || cfg.DumpPath != "/tmp/dump" {
		t.Errorf("WithClassDump not applied: %+v", cfg)
	}

	if !cfg.UnittestMode {
		t.Error("WithUnittestMode did not set UnittestMode")
	}

	if !cfg.AssertionsEnabled {
		t.Error("New should still start from Default(), which enables assertions")
	}
}

func TestWithTracingNoMethodsTracesEverything(t *testing.T) {
	cfg := config.New(config.WithTracing())

	if !cfg.Tracing.Enabled {
		t.Fatal("Tracing.Enabled = false")
	}

	if len(cfg.Tracing.Methods) != 0 {
		t.Errorf("Tracing.Methods = %v, want empty (trace everything)", cfg.Tracing.Methods)
	}
}
