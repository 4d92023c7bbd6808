package corevm

import "github.com/sparrowvm/core/internal/classfile"

// DemoSource returns a tiny hand-built classfile.FixtureSource, the
// execution core's equivalent of the teacher's demo.go hand-assembled
// TRAP-HALT program: a single class with one static method that computes
// 1+2 and returns it, enough to drive compile→install→run_method end to
// end without a real classfile parser.
//
// Bytecode: iconst_1, iconst_2, iadd, ireturn.
func DemoSource() classfile.FixtureSource {
	return classfile.FixtureSource{
		"Demo": &classfile.ClassView{
			Name: "Demo",
			Methods: []classfile.MethodView{
				{
					Name:       "main",
					Descriptor: "()I",
					AccessFlags: classfile.AccStatic,
					Code:       []byte{0x04, 0x05, 0x60, 0xac},
					MaxStack:   2,
					MaxLocals:  0,
				},
			},
		},
	}
}
