package ir

import (
	"fmt"

	"github.com/sparrowvm/core/internal/asmx86"
)

// LoadFPRelative loads a value at a fixed byte offset from the frame
// pointer into reg (spec §4.1 "Memory / stack"). Every local-variable and
// operand-stack access the compiler emits goes through this or
// StoreFPRelative — there is no separate operand stack pointer (spec §4.2).
type LoadFPRelative struct {
	Offset int32
	Reg    asmx86.Reg
	Size   asmx86.OpSize
}

func (LoadFPRelative) Kind() OpKind { return OpLoadFPRelative }
func (i LoadFPRelative) String() string {
	return fmt.Sprintf("LoadFPRelative[%s] %s, fp%+d", i.Size, i.Reg, i.Offset)
}

// StoreFPRelative is LoadFPRelative's dual: writes reg to a frame-relative
// slot.
type StoreFPRelative struct {
	Offset int32
	Reg    asmx86.Reg
	Size   asmx86.OpSize
}

func (StoreFPRelative) Kind() OpKind { return OpStoreFPRelative }
func (i StoreFPRelative) String() string {
	return fmt.Sprintf("StoreFPRelative[%s] fp%+d, %s", i.Size, i.Offset, i.Reg)
}

// Load reads from the address held in AddrReg (plus Offset) into Reg —
// used for field access, array element access, and any other indirection
// through a raw pointer rather than a frame slot.
type Load struct {
	AddrReg asmx86.Reg
	Offset  int32
	Reg     asmx86.Reg
	Size    asmx86.OpSize
}

func (Load) Kind() OpKind { return OpLoad }
func (i Load) String() string {
	return fmt.Sprintf("Load[%s] %s, [%s%+d]", i.Size, i.Reg, i.AddrReg, i.Offset)
}

// Store is Load's dual.
type Store struct {
	AddrReg asmx86.Reg
	Offset  int32
	Reg     asmx86.Reg
	Size    asmx86.OpSize
}

func (Store) Kind() OpKind { return OpStore }
func (i Store) String() string {
	return fmt.Sprintf("Store[%s] [%s%+d], %s", i.Size, i.AddrReg, i.Offset, i.Reg)
}
