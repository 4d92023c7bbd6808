// Package config holds the options the execution core recognizes at startup.
//
// Options are plain fields rather than a functional-options builder for the
// fields themselves, but construction follows the teacher's two-phase
// (early/late) OptionFn convention: New invokes every OptionFn twice, first
// with early=true and then with early=false, mirroring vm.OptionFn's two
// invocations per option. Both passes run inside New, before any class table
// or code cache is constructed.
package config

// TraceCfg controls JIT entry/exit tracing.
type TraceCfg struct {
	// Enabled turns on a "trace instruction" VM exit prepended to every
	// bytecode's IR fragment (spec §4.2 "Trace mode").
	Enabled bool

	// Methods lists fully-qualified method names to trace. The runtime passes
	// only Enabled to the compiler, so every compiled method is traced
	// whenever Enabled is set, whatever Methods holds.
	Methods []string
}

// Config is the set of options the core recognizes (spec §6).
type Config struct {
	// StoreGeneratedClasses dumps each compiled method's machine code, with
	// its ids and class/method names, to a debug file for later inspection
	// (internal/codedump). Class bytes are not dumped.
	StoreGeneratedClasses bool

	// DumpPath names the file StoreGeneratedClasses writes to. Empty means
	// "corevm-classes.dump" in the working directory.
	DumpPath string

	Tracing TraceCfg

	// AssertionsEnabled maps $assertionsDisabled to false in class <clinit>.
	AssertionsEnabled bool

	// DebugPrintExceptions logs each raised managed exception at Error level.
	DebugPrintExceptions bool

	// UnittestMode disables installing the thread-suspend signal handler.
	UnittestMode bool
}

// OptionFn mutates a Config during construction. early is true on the first
// pass and false on the second; New runs the second pass for every option
// after the first pass for every option.
type OptionFn func(cfg *Config, early bool)

// New builds a Config from a sequence of options, each applied twice: once
// with early=true, once with early=false. This mirrors vm.New's early/late
// convention; both passes complete before New returns.
func New(opts ...OptionFn) Config {
	cfg := Default()

	for _, fn := range opts {
		fn(&cfg, true)
	}

	for _, fn := range opts {
		fn(&cfg, false)
	}

	return cfg
}

// Default returns the zero-value-safe default configuration: nothing traced,
// nothing dumped, assertions enabled, signal handler installed.
func Default() Config {
	return Config{
		AssertionsEnabled: true,
	}
}

// WithTracing enables JIT trace-mode and records the named methods in
// Tracing.Methods (see TraceCfg.Methods for how they are used).
func WithTracing(methods ...string) OptionFn {
	return func(cfg *Config, early bool) {
		if early {
			cfg.Tracing = TraceCfg{Enabled: true, Methods: methods}
		}
	}
}

// WithClassDump enables StoreGeneratedClasses, writing to path.
func WithClassDump(path string) OptionFn {
	return func(cfg *Config, early bool) {
		if early {
			cfg.StoreGeneratedClasses = true
			cfg.DumpPath = path
		}
	}
}

// WithUnittestMode disables the signal handler, for use under `go test`
// where a stray SIGUSR1 handler would confuse the test runner.
func WithUnittestMode() OptionFn {
	return func(cfg *Config, early bool) {
		if early {
			cfg.UnittestMode = true
		}
	}
}
