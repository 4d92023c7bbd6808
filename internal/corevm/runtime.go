// Package corevm wires the execution core's process-wide singletons (spec
// §9) into one handle a CLI or embedder can construct once and drive:
// class table, region allocator, code cache, compiler, and exit dispatcher.
// It plays the role the teacher's internal/vm.New/vm.LC3 play for elsie —
// one constructor, a handful of OptionFn-style config.Config fields, and a
// single struct every subcommand is handed.
package corevm

import (
	"fmt"

	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/classfile"
	"github.com/sparrowvm/core/internal/codedump"
	"github.com/sparrowvm/core/internal/compiler"
	"github.com/sparrowvm/core/internal/config"
	"github.com/sparrowvm/core/internal/exitdispatch"
	"github.com/sparrowvm/core/internal/ir"
	"github.com/sparrowvm/core/internal/log"
	"github.com/sparrowvm/core/internal/mem"
	"github.com/sparrowvm/core/internal/stack"
)

// Runtime bundles the execution core's singletons and the classfile source
// backing the class table. Classfile parsing itself is out of scope (spec
// §1); callers supply a classfile.Source, normally a classfile.FixtureSource
// until a real parser exists.
type Runtime struct {
	Classes  *class.Table
	Regions  *mem.Regions
	Code     *ir.CodeCache
	Compiler *compiler.Compiler
	Dispatch *exitdispatch.Dispatcher

	Config config.Config
	dump   *codedump.Writer

	log *log.Logger
}

// New wires a Runtime from a classfile source and configuration.
func New(source classfile.Source, cfg config.Config) (*Runtime, error) {
	regions, err := mem.NewRegions()
	if err != nil {
		return nil, fmt.Errorf("corevm: regions: %w", err)
	}

	classes := class.NewTable(source)
	code := ir.NewCodeCache()
	comp := compiler.New(classes)
	comp.Trace = cfg.Tracing.Enabled
	dispatch := exitdispatch.New(classes, regions, code, comp)

	rt := &Runtime{
		Classes:  classes,
		Regions:  regions,
		Code:     code,
		Compiler: comp,
		Dispatch: dispatch,
		Config:   cfg,
		log:      log.DefaultLogger(),
	}

	if cfg.StoreGeneratedClasses {
		path := cfg.DumpPath
		if path == "" {
			path = "corevm-classes.dump"
		}

		w, err := codedump.Create(path)
		if err != nil {
			regions.Close()
			return nil, fmt.Errorf("corevm: class dump: %w", err)
		}

		rt.dump = w
	}

	return rt, nil
}

// Close releases the region reservation and any open dump file.
func (rt *Runtime) Close() error {
	if rt.dump != nil {
		rt.dump.Close()
	}

	return rt.Regions.Close()
}

// Install compiles shape on rc and installs it into the code cache,
// recording it to the debug dump if one is open (spec §9
// store_generated_classes).
func (rt *Runtime) Install(rc *class.RuntimeClass, shape class.MethodShape) (*ir.CompiledMethod, error) {
	methodID := uint64(rc.ID)<<32 | rt.Compiler.IRMethodID(rc, shape)

	prog, err := rt.Compiler.Compile(rc, shape, methodID)
	if err != nil {
		return nil, err
	}

	cm, err := rt.Code.Install(prog)
	if err != nil {
		return nil, err
	}

	if rt.dump != nil {
		rt.dump.Append(codedump.Record{
			IRMethodID: prog.IRMethodID,
			MethodID:   methodID,
			ClassName:  rc.View.Name,
			MethodName: shape.Name,
			FrameSize:  cm.FrameSize,
			Code:       cm.Code,
		})
	}

	return cm, nil
}

// RunStatic installs (if needed) and runs a static method with no
// arguments, returning its int64 result. This is the CLI's `run`
// subcommand's entry path: a fresh ManagedStack and JavaStackGuard per
// invocation, mirroring the teacher's one-machine-per-run demo.
func (rt *Runtime) RunStatic(className, methodName, descriptor string) (int64, error) {
	rc, err := rt.Classes.Get(className)
	if err != nil {
		return 0, err
	}

	shape := class.MethodShape{Name: methodName, Descriptor: descriptor}

	cm, ok := rt.Code.Lookup(rt.Compiler.IRMethodID(rc, shape))
	if !ok {
		cm, err = rt.Install(rc, shape)
		if err != nil {
			return 0, err
		}
	}

	ms, err := stack.NewManagedStack(1 << 20)
	if err != nil {
		return 0, err
	}
	defer ms.Close()

	guard := stack.NewGuard(ms, true)

	return rt.Code.RunMethod(cm.IRMethodID, guard, cm.MethodID)
}
