package compiler

import "github.com/sparrowvm/core/internal/class"

// HelperID names a registered native/intrinsic helper (spec §4.2
// "Intrinsics"): one entry of a small fixed table of well-known natives.
type HelperID uint32

const (
	HelperIdentityHashCode HelperID = iota
	HelperObjectHashCode
	HelperObjectGetClass
	HelperCompareAndSwapInt
	HelperCompareAndSwapLong
	HelperCompareAndSwapObject
	HelperUnsafeAllocateMemory
	HelperUnsafeFreeMemory
	HelperUnsafeAddressSize
	HelperArrayNewArray
)

// intrinsicTable maps a method's declaring class plus MethodShape to its
// helper. lookupIntrinsic reads it, but the compiler does not call
// lookupIntrinsic: invokes of these methods compile like any other invoke,
// and no CallIntrinsicHelper is emitted for them.
var intrinsicTable = map[string]map[class.MethodShape]HelperID{
	"java/lang/System": {
		{Name: "identityHashCode", Descriptor: "(Ljava/lang/Object;)I"}: HelperIdentityHashCode,
	},
	"java/lang/Object": {
		{Name: "hashCode", Descriptor: "()I"}:                     HelperObjectHashCode,
		{Name: "getClass", Descriptor: "()Ljava/lang/Class;"}:     HelperObjectGetClass,
	},
	"sun/misc/Unsafe": {
		{Name: "compareAndSwapInt", Descriptor: "(Ljava/lang/Object;JII)Z"}:    HelperCompareAndSwapInt,
		{Name: "compareAndSwapLong", Descriptor: "(Ljava/lang/Object;JJJ)Z"}:   HelperCompareAndSwapLong,
		{Name: "compareAndSwapObject", Descriptor: "(Ljava/lang/Object;JLjava/lang/Object;Ljava/lang/Object;)Z"}: HelperCompareAndSwapObject,
		{Name: "allocateMemory", Descriptor: "(J)J"}: HelperUnsafeAllocateMemory,
		{Name: "freeMemory", Descriptor: "(J)V"}:     HelperUnsafeFreeMemory,
		{Name: "addressSize", Descriptor: "()I"}:     HelperUnsafeAddressSize,
	},
	"java/lang/reflect/Array": {
		{Name: "newArray", Descriptor: "(Ljava/lang/Class;I)Ljava/lang/Object;"}: HelperArrayNewArray,
	},
}

// lookupIntrinsic reports whether a call to shape on className should be
// compiled as a CallIntrinsicHelper instead of an ordinary invoke.
func lookupIntrinsic(className string, shape class.MethodShape) (HelperID, bool) {
	methods, ok := intrinsicTable[className]
	if !ok {
		return 0, false
	}

	id, ok := methods[shape]
	return id, ok
}
