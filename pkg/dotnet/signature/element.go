// Package signature models ECMA-335 type and method signatures and encodes
// them into #Blob heap entries.
package signature

import "fmt"

// ElementType is a signature element type code (ECMA-335 II.23.1.16).
type ElementType uint8

const (
	ElementEnd         ElementType = 0x00
	ElementVoid        ElementType = 0x01
	ElementBoolean     ElementType = 0x02
	ElementChar        ElementType = 0x03
	ElementI1          ElementType = 0x04
	ElementU1          ElementType = 0x05
	ElementI2          ElementType = 0x06
	ElementU2          ElementType = 0x07
	ElementI4          ElementType = 0x08
	ElementU4          ElementType = 0x09
	ElementI8          ElementType = 0x0A
	ElementU8          ElementType = 0x0B
	ElementR4          ElementType = 0x0C
	ElementR8          ElementType = 0x0D
	ElementString      ElementType = 0x0E
	ElementPtr         ElementType = 0x0F
	ElementByRef       ElementType = 0x10
	ElementValueType   ElementType = 0x11
	ElementClass       ElementType = 0x12
	ElementVar         ElementType = 0x13
	ElementArray       ElementType = 0x14
	ElementGenericInst ElementType = 0x15
	ElementTypedByRef  ElementType = 0x16
	ElementI           ElementType = 0x18
	ElementU           ElementType = 0x19
	ElementFnPtr       ElementType = 0x1B
	ElementObject      ElementType = 0x1C
	ElementSzArray     ElementType = 0x1D
	ElementMVar        ElementType = 0x1E
	ElementCModReqd    ElementType = 0x1F
	ElementCModOpt     ElementType = 0x20
	ElementInternal    ElementType = 0x21
	ElementSentinel    ElementType = 0x41
	ElementPinned      ElementType = 0x45
)

// corLibNames maps primitive element types to their System type names.
var corLibNames = map[ElementType]string{
	ElementVoid:       "Void",
	ElementBoolean:    "Boolean",
	ElementChar:       "Char",
	ElementI1:         "SByte",
	ElementU1:         "Byte",
	ElementI2:         "Int16",
	ElementU2:         "UInt16",
	ElementI4:         "Int32",
	ElementU4:         "UInt32",
	ElementI8:         "Int64",
	ElementU8:         "UInt64",
	ElementR4:         "Single",
	ElementR8:         "Double",
	ElementString:     "String",
	ElementTypedByRef: "TypedReference",
	ElementI:          "IntPtr",
	ElementU:          "UIntPtr",
	ElementObject:     "Object",
}

// IsCorLib reports whether e is a primitive with a fixed System type.
func (e ElementType) IsCorLib() bool {
	_, ok := corLibNames[e]
	return ok
}

func (e ElementType) String() string {
	switch e {
	case ElementPtr:
		return "PTR"
	case ElementByRef:
		return "BYREF"
	case ElementValueType:
		return "VALUETYPE"
	case ElementClass:
		return "CLASS"
	case ElementGenericInst:
		return "GENERICINST"
	case ElementSzArray:
		return "SZARRAY"
	}
	if name, ok := corLibNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ElementType(0x%02X)", uint8(e))
}
