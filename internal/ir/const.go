package ir

import (
	"fmt"

	"github.com/sparrowvm/core/internal/asmx86"
)

// Const16bit, Const32bit, Const64bit load an immediate into Reg. Three
// widths exist (rather than one parametrized op) because the x86-64
// encoding differs materially by width (imm16 vs imm32 vs the movabs imm64
// form). The compiler picks the width by opcode: iconst uses Const32bit,
// bipush/sipush use Const16bit, aconst_null and lconst use Const64bit.
type Const16bit struct {
	Reg   asmx86.Reg
	Value int16
}

func (Const16bit) Kind() OpKind { return OpConst16bit }
func (i Const16bit) String() string { return fmt.Sprintf("Const16bit %s, #%d", i.Reg, i.Value) }

type Const32bit struct {
	Reg   asmx86.Reg
	Value int32
}

func (Const32bit) Kind() OpKind { return OpConst32bit }
func (i Const32bit) String() string { return fmt.Sprintf("Const32bit %s, #%d", i.Reg, i.Value) }

type Const64bit struct {
	Reg   asmx86.Reg
	Value int64
}

func (Const64bit) Kind() OpKind { return OpConst64bit }
func (i Const64bit) String() string { return fmt.Sprintf("Const64bit %s, #%d", i.Reg, i.Value) }

// AddConst adds an immediate to Reg in place (the compiler uses it for
// iinc).
type AddConst struct {
	Reg   asmx86.Reg
	Value int32
}

func (AddConst) Kind() OpKind { return OpAddConst }
func (i AddConst) String() string { return fmt.Sprintf("AddConst %s, #%d", i.Reg, i.Value) }
