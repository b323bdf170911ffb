package cil

// Every opcode defined by ECMA-335 Partition III.
var (
	Nop         = newOpCode(0x00, false, Push0, Pop0, Primitive, InlineNone, FlowNext)
	Break       = newOpCode(0x01, false, Push0, Pop0, Primitive, InlineNone, FlowBreak)
	Ldarg0      = newOpCode(0x02, false, Push1, Pop0, Macro, InlineNone, FlowNext)
	Ldarg1      = newOpCode(0x03, false, Push1, Pop0, Macro, InlineNone, FlowNext)
	Ldarg2      = newOpCode(0x04, false, Push1, Pop0, Macro, InlineNone, FlowNext)
	Ldarg3      = newOpCode(0x05, false, Push1, Pop0, Macro, InlineNone, FlowNext)
	Ldloc0      = newOpCode(0x06, false, Push1, Pop0, Macro, InlineNone, FlowNext)
	Ldloc1      = newOpCode(0x07, false, Push1, Pop0, Macro, InlineNone, FlowNext)
	Ldloc2      = newOpCode(0x08, false, Push1, Pop0, Macro, InlineNone, FlowNext)
	Ldloc3      = newOpCode(0x09, false, Push1, Pop0, Macro, InlineNone, FlowNext)
	Stloc0      = newOpCode(0x0A, false, Push0, Pop1, Macro, InlineNone, FlowNext)
	Stloc1      = newOpCode(0x0B, false, Push0, Pop1, Macro, InlineNone, FlowNext)
	Stloc2      = newOpCode(0x0C, false, Push0, Pop1, Macro, InlineNone, FlowNext)
	Stloc3      = newOpCode(0x0D, false, Push0, Pop1, Macro, InlineNone, FlowNext)
	LdargS      = newOpCode(0x0E, false, Push1, Pop0, Macro, ShortInlineVar, FlowNext)
	LdargaS     = newOpCode(0x0F, false, PushI, Pop0, Macro, ShortInlineVar, FlowNext)
	StargS      = newOpCode(0x10, false, Push0, Pop1, Macro, ShortInlineVar, FlowNext)
	LdlocS      = newOpCode(0x11, false, Push1, Pop0, Macro, ShortInlineVar, FlowNext)
	LdlocaS     = newOpCode(0x12, false, PushI, Pop0, Macro, ShortInlineVar, FlowNext)
	StlocS      = newOpCode(0x13, false, Push0, Pop1, Macro, ShortInlineVar, FlowNext)
	Ldnull      = newOpCode(0x14, false, PushRef, Pop0, Primitive, InlineNone, FlowNext)
	LdcI4M1     = newOpCode(0x15, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI40      = newOpCode(0x16, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI41      = newOpCode(0x17, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI42      = newOpCode(0x18, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI43      = newOpCode(0x19, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI44      = newOpCode(0x1A, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI45      = newOpCode(0x1B, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI46      = newOpCode(0x1C, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI47      = newOpCode(0x1D, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI48      = newOpCode(0x1E, false, PushI, Pop0, Macro, InlineNone, FlowNext)
	LdcI4S      = newOpCode(0x1F, false, PushI, Pop0, Macro, ShortInlineI, FlowNext)
	LdcI4       = newOpCode(0x20, false, PushI, Pop0, Primitive, InlineI, FlowNext)
	LdcI8       = newOpCode(0x21, false, PushI8, Pop0, Primitive, InlineI8, FlowNext)
	LdcR4       = newOpCode(0x22, false, PushR4, Pop0, Primitive, ShortInlineR, FlowNext)
	LdcR8       = newOpCode(0x23, false, PushR8, Pop0, Primitive, InlineR, FlowNext)
	Dup         = newOpCode(0x25, false, Push1Push1, Pop1, Primitive, InlineNone, FlowNext)
	Pop         = newOpCode(0x26, false, Push0, Pop1, Primitive, InlineNone, FlowNext)
	Jmp         = newOpCode(0x27, false, Push0, Pop0, Primitive, InlineMethod, FlowCall)
	Call        = newOpCode(0x28, false, VarPush, VarPop, Primitive, InlineMethod, FlowCall)
	Calli       = newOpCode(0x29, false, VarPush, VarPop, Primitive, InlineSig, FlowCall)
	Ret         = newOpCode(0x2A, false, Push0, VarPop, Primitive, InlineNone, FlowReturn)
	BrS         = newOpCode(0x2B, false, Push0, Pop0, Macro, ShortInlineBrTarget, FlowBranch)
	BrfalseS    = newOpCode(0x2C, false, Push0, PopI, Macro, ShortInlineBrTarget, FlowCondBranch)
	BrtrueS     = newOpCode(0x2D, false, Push0, PopI, Macro, ShortInlineBrTarget, FlowCondBranch)
	BeqS        = newOpCode(0x2E, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	BgeS        = newOpCode(0x2F, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	BgtS        = newOpCode(0x30, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	BleS        = newOpCode(0x31, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	BltS        = newOpCode(0x32, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	BneUnS      = newOpCode(0x33, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	BgeUnS      = newOpCode(0x34, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	BgtUnS      = newOpCode(0x35, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	BleUnS      = newOpCode(0x36, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	BltUnS      = newOpCode(0x37, false, Push0, Pop1Pop1, Macro, ShortInlineBrTarget, FlowCondBranch)
	Br          = newOpCode(0x38, false, Push0, Pop0, Primitive, InlineBrTarget, FlowBranch)
	Brfalse     = newOpCode(0x39, false, Push0, PopI, Primitive, InlineBrTarget, FlowCondBranch)
	Brtrue      = newOpCode(0x3A, false, Push0, PopI, Primitive, InlineBrTarget, FlowCondBranch)
	Beq         = newOpCode(0x3B, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	Bge         = newOpCode(0x3C, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	Bgt         = newOpCode(0x3D, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	Ble         = newOpCode(0x3E, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	Blt         = newOpCode(0x3F, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	BneUn       = newOpCode(0x40, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	BgeUn       = newOpCode(0x41, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	BgtUn       = newOpCode(0x42, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	BleUn       = newOpCode(0x43, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	BltUn       = newOpCode(0x44, false, Push0, Pop1Pop1, Primitive, InlineBrTarget, FlowCondBranch)
	Switch      = newOpCode(0x45, false, Push0, PopI, Primitive, InlineSwitch, FlowCondBranch)
	LdindI1     = newOpCode(0x46, false, PushI, PopI, Primitive, InlineNone, FlowNext)
	LdindU1     = newOpCode(0x47, false, PushI, PopI, Primitive, InlineNone, FlowNext)
	LdindI2     = newOpCode(0x48, false, PushI, PopI, Primitive, InlineNone, FlowNext)
	LdindU2     = newOpCode(0x49, false, PushI, PopI, Primitive, InlineNone, FlowNext)
	LdindI4     = newOpCode(0x4A, false, PushI, PopI, Primitive, InlineNone, FlowNext)
	LdindU4     = newOpCode(0x4B, false, PushI, PopI, Primitive, InlineNone, FlowNext)
	LdindI8     = newOpCode(0x4C, false, PushI8, PopI, Primitive, InlineNone, FlowNext)
	LdindI      = newOpCode(0x4D, false, PushI, PopI, Primitive, InlineNone, FlowNext)
	LdindR4     = newOpCode(0x4E, false, PushR4, PopI, Primitive, InlineNone, FlowNext)
	LdindR8     = newOpCode(0x4F, false, PushR8, PopI, Primitive, InlineNone, FlowNext)
	LdindRef    = newOpCode(0x50, false, PushRef, PopI, Primitive, InlineNone, FlowNext)
	StindRef    = newOpCode(0x51, false, Push0, PopIPopI, Primitive, InlineNone, FlowNext)
	StindI1     = newOpCode(0x52, false, Push0, PopIPopI, Primitive, InlineNone, FlowNext)
	StindI2     = newOpCode(0x53, false, Push0, PopIPopI, Primitive, InlineNone, FlowNext)
	StindI4     = newOpCode(0x54, false, Push0, PopIPopI, Primitive, InlineNone, FlowNext)
	StindI8     = newOpCode(0x55, false, Push0, PopIPopI8, Primitive, InlineNone, FlowNext)
	StindR4     = newOpCode(0x56, false, Push0, PopIPopR4, Primitive, InlineNone, FlowNext)
	StindR8     = newOpCode(0x57, false, Push0, PopIPopR8, Primitive, InlineNone, FlowNext)
	Add         = newOpCode(0x58, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Sub         = newOpCode(0x59, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Mul         = newOpCode(0x5A, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Div         = newOpCode(0x5B, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	DivUn       = newOpCode(0x5C, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Rem         = newOpCode(0x5D, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	RemUn       = newOpCode(0x5E, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	And         = newOpCode(0x5F, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Or          = newOpCode(0x60, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Xor         = newOpCode(0x61, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Shl         = newOpCode(0x62, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Shr         = newOpCode(0x63, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	ShrUn       = newOpCode(0x64, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Neg         = newOpCode(0x65, false, Push1, Pop1, Primitive, InlineNone, FlowNext)
	Not         = newOpCode(0x66, false, Push1, Pop1, Primitive, InlineNone, FlowNext)
	ConvI1      = newOpCode(0x67, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvI2      = newOpCode(0x68, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvI4      = newOpCode(0x69, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvI8      = newOpCode(0x6A, false, PushI8, Pop1, Primitive, InlineNone, FlowNext)
	ConvR4      = newOpCode(0x6B, false, PushR4, Pop1, Primitive, InlineNone, FlowNext)
	ConvR8      = newOpCode(0x6C, false, PushR8, Pop1, Primitive, InlineNone, FlowNext)
	ConvU4      = newOpCode(0x6D, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvU8      = newOpCode(0x6E, false, PushI8, Pop1, Primitive, InlineNone, FlowNext)
	Callvirt    = newOpCode(0x6F, false, VarPush, VarPop, ObjModel, InlineMethod, FlowCall)
	Cpobj       = newOpCode(0x70, false, Push0, PopIPopI, ObjModel, InlineType, FlowNext)
	Ldobj       = newOpCode(0x71, false, Push1, PopI, ObjModel, InlineType, FlowNext)
	Ldstr       = newOpCode(0x72, false, PushRef, Pop0, ObjModel, InlineString, FlowNext)
	Newobj      = newOpCode(0x73, false, PushRef, VarPop, ObjModel, InlineMethod, FlowCall)
	Castclass   = newOpCode(0x74, false, PushRef, PopRef, ObjModel, InlineType, FlowNext)
	Isinst      = newOpCode(0x75, false, PushI, PopRef, ObjModel, InlineType, FlowNext)
	ConvRUn     = newOpCode(0x76, false, PushR8, Pop1, Primitive, InlineNone, FlowNext)
	Unbox       = newOpCode(0x79, false, PushI, PopRef, Primitive, InlineType, FlowNext)
	Throw       = newOpCode(0x7A, false, Push0, PopRef, ObjModel, InlineNone, FlowThrow)
	Ldfld       = newOpCode(0x7B, false, Push1, PopRef, ObjModel, InlineField, FlowNext)
	Ldflda      = newOpCode(0x7C, false, PushI, PopRef, ObjModel, InlineField, FlowNext)
	Stfld       = newOpCode(0x7D, false, Push0, PopRefPop1, ObjModel, InlineField, FlowNext)
	Ldsfld      = newOpCode(0x7E, false, Push1, Pop0, ObjModel, InlineField, FlowNext)
	Ldsflda     = newOpCode(0x7F, false, PushI, Pop0, ObjModel, InlineField, FlowNext)
	Stsfld      = newOpCode(0x80, false, Push0, Pop1, ObjModel, InlineField, FlowNext)
	Stobj       = newOpCode(0x81, false, Push0, PopIPop1, Primitive, InlineType, FlowNext)
	ConvOvfI1Un = newOpCode(0x82, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfI2Un = newOpCode(0x83, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfI4Un = newOpCode(0x84, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfI8Un = newOpCode(0x85, false, PushI8, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfU1Un = newOpCode(0x86, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfU2Un = newOpCode(0x87, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfU4Un = newOpCode(0x88, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfU8Un = newOpCode(0x89, false, PushI8, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfIUn  = newOpCode(0x8A, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfUUn  = newOpCode(0x8B, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	Box         = newOpCode(0x8C, false, PushRef, Pop1, Primitive, InlineType, FlowNext)
	Newarr      = newOpCode(0x8D, false, PushRef, PopI, ObjModel, InlineType, FlowNext)
	Ldlen       = newOpCode(0x8E, false, PushI, PopRef, ObjModel, InlineNone, FlowNext)
	Ldelema     = newOpCode(0x8F, false, PushI, PopRefPopI, ObjModel, InlineType, FlowNext)
	LdelemI1    = newOpCode(0x90, false, PushI, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemU1    = newOpCode(0x91, false, PushI, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemI2    = newOpCode(0x92, false, PushI, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemU2    = newOpCode(0x93, false, PushI, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemI4    = newOpCode(0x94, false, PushI, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemU4    = newOpCode(0x95, false, PushI, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemI8    = newOpCode(0x96, false, PushI8, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemI     = newOpCode(0x97, false, PushI, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemR4    = newOpCode(0x98, false, PushR4, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemR8    = newOpCode(0x99, false, PushR8, PopRefPopI, ObjModel, InlineNone, FlowNext)
	LdelemRef   = newOpCode(0x9A, false, PushRef, PopRefPopI, ObjModel, InlineNone, FlowNext)
	StelemI     = newOpCode(0x9B, false, Push0, PopRefPopIPopI, ObjModel, InlineNone, FlowNext)
	StelemI1    = newOpCode(0x9C, false, Push0, PopRefPopIPopI, ObjModel, InlineNone, FlowNext)
	StelemI2    = newOpCode(0x9D, false, Push0, PopRefPopIPopI, ObjModel, InlineNone, FlowNext)
	StelemI4    = newOpCode(0x9E, false, Push0, PopRefPopIPopI, ObjModel, InlineNone, FlowNext)
	StelemI8    = newOpCode(0x9F, false, Push0, PopRefPopIPopI8, ObjModel, InlineNone, FlowNext)
	StelemR4    = newOpCode(0xA0, false, Push0, PopRefPopIPopR4, ObjModel, InlineNone, FlowNext)
	StelemR8    = newOpCode(0xA1, false, Push0, PopRefPopIPopR8, ObjModel, InlineNone, FlowNext)
	StelemRef   = newOpCode(0xA2, false, Push0, PopRefPopIPopRef, ObjModel, InlineNone, FlowNext)
	Ldelem      = newOpCode(0xA3, false, Push1, PopRefPopI, ObjModel, InlineType, FlowNext)
	Stelem      = newOpCode(0xA4, false, Push0, PopRefPopIPop1, ObjModel, InlineType, FlowNext)
	UnboxAny    = newOpCode(0xA5, false, Push1, PopRef, ObjModel, InlineType, FlowNext)
	ConvOvfI1   = newOpCode(0xB3, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfU1   = newOpCode(0xB4, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfI2   = newOpCode(0xB5, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfU2   = newOpCode(0xB6, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfI4   = newOpCode(0xB7, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfU4   = newOpCode(0xB8, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfI8   = newOpCode(0xB9, false, PushI8, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfU8   = newOpCode(0xBA, false, PushI8, Pop1, Primitive, InlineNone, FlowNext)
	Refanyval   = newOpCode(0xC2, false, PushI, Pop1, Primitive, InlineType, FlowNext)
	Ckfinite    = newOpCode(0xC3, false, PushR8, Pop1, Primitive, InlineNone, FlowNext)
	Mkrefany    = newOpCode(0xC6, false, Push1, PopI, Primitive, InlineType, FlowNext)
	Ldtoken     = newOpCode(0xD0, false, PushI, Pop0, Primitive, InlineTok, FlowNext)
	ConvU2      = newOpCode(0xD1, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvU1      = newOpCode(0xD2, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvI       = newOpCode(0xD3, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfI    = newOpCode(0xD4, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	ConvOvfU    = newOpCode(0xD5, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	AddOvf      = newOpCode(0xD6, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	AddOvfUn    = newOpCode(0xD7, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	MulOvf      = newOpCode(0xD8, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	MulOvfUn    = newOpCode(0xD9, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	SubOvf      = newOpCode(0xDA, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	SubOvfUn    = newOpCode(0xDB, false, Push1, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Endfinally  = newOpCode(0xDC, false, Push0, Pop0, Primitive, InlineNone, FlowReturn)
	Leave       = newOpCode(0xDD, false, Push0, Pop0, Primitive, InlineBrTarget, FlowBranch)
	LeaveS      = newOpCode(0xDE, false, Push0, Pop0, Primitive, ShortInlineBrTarget, FlowBranch)
	StindI      = newOpCode(0xDF, false, Push0, PopIPopI, Primitive, InlineNone, FlowNext)
	ConvU       = newOpCode(0xE0, false, PushI, Pop1, Primitive, InlineNone, FlowNext)
	Arglist     = newOpCode(0x00, true, PushI, Pop0, Primitive, InlineNone, FlowNext)
	Ceq         = newOpCode(0x01, true, PushI, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Cgt         = newOpCode(0x02, true, PushI, Pop1Pop1, Primitive, InlineNone, FlowNext)
	CgtUn       = newOpCode(0x03, true, PushI, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Clt         = newOpCode(0x04, true, PushI, Pop1Pop1, Primitive, InlineNone, FlowNext)
	CltUn       = newOpCode(0x05, true, PushI, Pop1Pop1, Primitive, InlineNone, FlowNext)
	Ldftn       = newOpCode(0x06, true, PushI, Pop0, Primitive, InlineMethod, FlowNext)
	Ldvirtftn   = newOpCode(0x07, true, PushI, PopRef, Primitive, InlineMethod, FlowNext)
	Ldarg       = newOpCode(0x09, true, Push1, Pop0, Primitive, InlineVar, FlowNext)
	Ldarga      = newOpCode(0x0A, true, PushI, Pop0, Primitive, InlineVar, FlowNext)
	Starg       = newOpCode(0x0B, true, Push0, Pop1, Primitive, InlineVar, FlowNext)
	Ldloc       = newOpCode(0x0C, true, Push1, Pop0, Primitive, InlineVar, FlowNext)
	Ldloca      = newOpCode(0x0D, true, PushI, Pop0, Primitive, InlineVar, FlowNext)
	Stloc       = newOpCode(0x0E, true, Push0, Pop1, Primitive, InlineVar, FlowNext)
	Localloc    = newOpCode(0x0F, true, PushI, PopI, Primitive, InlineNone, FlowNext)
	Endfilter   = newOpCode(0x11, true, Push0, PopI, Primitive, InlineNone, FlowReturn)
	Unaligned   = newOpCode(0x12, true, Push0, Pop0, Prefix, ShortInlineI, FlowMeta)
	Volatile    = newOpCode(0x13, true, Push0, Pop0, Prefix, InlineNone, FlowMeta)
	Tailcall    = newOpCode(0x14, true, Push0, Pop0, Prefix, InlineNone, FlowMeta)
	Initobj     = newOpCode(0x15, true, Push0, PopI, ObjModel, InlineType, FlowNext)
	Constrained = newOpCode(0x16, true, Push0, Pop0, Prefix, InlineType, FlowMeta)
	Cpblk       = newOpCode(0x17, true, Push0, PopIPopIPopI, Primitive, InlineNone, FlowNext)
	Initblk     = newOpCode(0x18, true, Push0, PopIPopIPopI, Primitive, InlineNone, FlowNext)
	No          = newOpCode(0x19, true, Push0, Pop0, Prefix, ShortInlineI, FlowMeta)
	Rethrow     = newOpCode(0x1A, true, Push0, Pop0, ObjModel, InlineNone, FlowThrow)
	Sizeof      = newOpCode(0x1C, true, PushI, Pop0, Primitive, InlineType, FlowNext)
	Refanytype  = newOpCode(0x1D, true, PushI, Pop1, Primitive, InlineNone, FlowNext)
	Readonly    = newOpCode(0x1E, true, Push0, Pop0, Prefix, InlineNone, FlowMeta)
)

type entry struct {
	op   OpCode
	name string
}

type tables struct {
	single   [256]OpCode
	extended [256]OpCode
	names    [512]string
}

// registry is built once during package initialization and is read-only
// afterwards.
var registry = buildTables([]entry{
	{Nop, "nop"},
	{Break, "break"},
	{Ldarg0, "ldarg.0"},
	{Ldarg1, "ldarg.1"},
	{Ldarg2, "ldarg.2"},
	{Ldarg3, "ldarg.3"},
	{Ldloc0, "ldloc.0"},
	{Ldloc1, "ldloc.1"},
	{Ldloc2, "ldloc.2"},
	{Ldloc3, "ldloc.3"},
	{Stloc0, "stloc.0"},
	{Stloc1, "stloc.1"},
	{Stloc2, "stloc.2"},
	{Stloc3, "stloc.3"},
	{LdargS, "ldarg.s"},
	{LdargaS, "ldarga.s"},
	{StargS, "starg.s"},
	{LdlocS, "ldloc.s"},
	{LdlocaS, "ldloca.s"},
	{StlocS, "stloc.s"},
	{Ldnull, "ldnull"},
	{LdcI4M1, "ldc.i4.m1"},
	{LdcI40, "ldc.i4.0"},
	{LdcI41, "ldc.i4.1"},
	{LdcI42, "ldc.i4.2"},
	{LdcI43, "ldc.i4.3"},
	{LdcI44, "ldc.i4.4"},
	{LdcI45, "ldc.i4.5"},
	{LdcI46, "ldc.i4.6"},
	{LdcI47, "ldc.i4.7"},
	{LdcI48, "ldc.i4.8"},
	{LdcI4S, "ldc.i4.s"},
	{LdcI4, "ldc.i4"},
	{LdcI8, "ldc.i8"},
	{LdcR4, "ldc.r4"},
	{LdcR8, "ldc.r8"},
	{Dup, "dup"},
	{Pop, "pop"},
	{Jmp, "jmp"},
	{Call, "call"},
	{Calli, "calli"},
	{Ret, "ret"},
	{BrS, "br.s"},
	{BrfalseS, "brfalse.s"},
	{BrtrueS, "brtrue.s"},
	{BeqS, "beq.s"},
	{BgeS, "bge.s"},
	{BgtS, "bgt.s"},
	{BleS, "ble.s"},
	{BltS, "blt.s"},
	{BneUnS, "bne.un.s"},
	{BgeUnS, "bge.un.s"},
	{BgtUnS, "bgt.un.s"},
	{BleUnS, "ble.un.s"},
	{BltUnS, "blt.un.s"},
	{Br, "br"},
	{Brfalse, "brfalse"},
	{Brtrue, "brtrue"},
	{Beq, "beq"},
	{Bge, "bge"},
	{Bgt, "bgt"},
	{Ble, "ble"},
	{Blt, "blt"},
	{BneUn, "bne.un"},
	{BgeUn, "bge.un"},
	{BgtUn, "bgt.un"},
	{BleUn, "ble.un"},
	{BltUn, "blt.un"},
	{Switch, "switch"},
	{LdindI1, "ldind.i1"},
	{LdindU1, "ldind.u1"},
	{LdindI2, "ldind.i2"},
	{LdindU2, "ldind.u2"},
	{LdindI4, "ldind.i4"},
	{LdindU4, "ldind.u4"},
	{LdindI8, "ldind.i8"},
	{LdindI, "ldind.i"},
	{LdindR4, "ldind.r4"},
	{LdindR8, "ldind.r8"},
	{LdindRef, "ldind.ref"},
	{StindRef, "stind.ref"},
	{StindI1, "stind.i1"},
	{StindI2, "stind.i2"},
	{StindI4, "stind.i4"},
	{StindI8, "stind.i8"},
	{StindR4, "stind.r4"},
	{StindR8, "stind.r8"},
	{Add, "add"},
	{Sub, "sub"},
	{Mul, "mul"},
	{Div, "div"},
	{DivUn, "div.un"},
	{Rem, "rem"},
	{RemUn, "rem.un"},
	{And, "and"},
	{Or, "or"},
	{Xor, "xor"},
	{Shl, "shl"},
	{Shr, "shr"},
	{ShrUn, "shr.un"},
	{Neg, "neg"},
	{Not, "not"},
	{ConvI1, "conv.i1"},
	{ConvI2, "conv.i2"},
	{ConvI4, "conv.i4"},
	{ConvI8, "conv.i8"},
	{ConvR4, "conv.r4"},
	{ConvR8, "conv.r8"},
	{ConvU4, "conv.u4"},
	{ConvU8, "conv.u8"},
	{Callvirt, "callvirt"},
	{Cpobj, "cpobj"},
	{Ldobj, "ldobj"},
	{Ldstr, "ldstr"},
	{Newobj, "newobj"},
	{Castclass, "castclass"},
	{Isinst, "isinst"},
	{ConvRUn, "conv.r.un"},
	{Unbox, "unbox"},
	{Throw, "throw"},
	{Ldfld, "ldfld"},
	{Ldflda, "ldflda"},
	{Stfld, "stfld"},
	{Ldsfld, "ldsfld"},
	{Ldsflda, "ldsflda"},
	{Stsfld, "stsfld"},
	{Stobj, "stobj"},
	{ConvOvfI1Un, "conv.ovf.i1.un"},
	{ConvOvfI2Un, "conv.ovf.i2.un"},
	{ConvOvfI4Un, "conv.ovf.i4.un"},
	{ConvOvfI8Un, "conv.ovf.i8.un"},
	{ConvOvfU1Un, "conv.ovf.u1.un"},
	{ConvOvfU2Un, "conv.ovf.u2.un"},
	{ConvOvfU4Un, "conv.ovf.u4.un"},
	{ConvOvfU8Un, "conv.ovf.u8.un"},
	{ConvOvfIUn, "conv.ovf.i.un"},
	{ConvOvfUUn, "conv.ovf.u.un"},
	{Box, "box"},
	{Newarr, "newarr"},
	{Ldlen, "ldlen"},
	{Ldelema, "ldelema"},
	{LdelemI1, "ldelem.i1"},
	{LdelemU1, "ldelem.u1"},
	{LdelemI2, "ldelem.i2"},
	{LdelemU2, "ldelem.u2"},
	{LdelemI4, "ldelem.i4"},
	{LdelemU4, "ldelem.u4"},
	{LdelemI8, "ldelem.i8"},
	{LdelemI, "ldelem.i"},
	{LdelemR4, "ldelem.r4"},
	{LdelemR8, "ldelem.r8"},
	{LdelemRef, "ldelem.ref"},
	{StelemI, "stelem.i"},
	{StelemI1, "stelem.i1"},
	{StelemI2, "stelem.i2"},
	{StelemI4, "stelem.i4"},
	{StelemI8, "stelem.i8"},
	{StelemR4, "stelem.r4"},
	{StelemR8, "stelem.r8"},
	{StelemRef, "stelem.ref"},
	{Ldelem, "ldelem"},
	{Stelem, "stelem"},
	{UnboxAny, "unbox.any"},
	{ConvOvfI1, "conv.ovf.i1"},
	{ConvOvfU1, "conv.ovf.u1"},
	{ConvOvfI2, "conv.ovf.i2"},
	{ConvOvfU2, "conv.ovf.u2"},
	{ConvOvfI4, "conv.ovf.i4"},
	{ConvOvfU4, "conv.ovf.u4"},
	{ConvOvfI8, "conv.ovf.i8"},
	{ConvOvfU8, "conv.ovf.u8"},
	{Refanyval, "refanyval"},
	{Ckfinite, "ckfinite"},
	{Mkrefany, "mkrefany"},
	{Ldtoken, "ldtoken"},
	{ConvU2, "conv.u2"},
	{ConvU1, "conv.u1"},
	{ConvI, "conv.i"},
	{ConvOvfI, "conv.ovf.i"},
	{ConvOvfU, "conv.ovf.u"},
	{AddOvf, "add.ovf"},
	{AddOvfUn, "add.ovf.un"},
	{MulOvf, "mul.ovf"},
	{MulOvfUn, "mul.ovf.un"},
	{SubOvf, "sub.ovf"},
	{SubOvfUn, "sub.ovf.un"},
	{Endfinally, "endfinally"},
	{Leave, "leave"},
	{LeaveS, "leave.s"},
	{StindI, "stind.i"},
	{ConvU, "conv.u"},
	{Arglist, "arglist"},
	{Ceq, "ceq"},
	{Cgt, "cgt"},
	{CgtUn, "cgt.un"},
	{Clt, "clt"},
	{CltUn, "clt.un"},
	{Ldftn, "ldftn"},
	{Ldvirtftn, "ldvirtftn"},
	{Ldarg, "ldarg"},
	{Ldarga, "ldarga"},
	{Starg, "starg"},
	{Ldloc, "ldloc"},
	{Ldloca, "ldloca"},
	{Stloc, "stloc"},
	{Localloc, "localloc"},
	{Endfilter, "endfilter"},
	{Unaligned, "unaligned."},
	{Volatile, "volatile."},
	{Tailcall, "tail."},
	{Initobj, "initobj"},
	{Constrained, "constrained."},
	{Cpblk, "cpblk"},
	{Initblk, "initblk"},
	{No, "no."},
	{Rethrow, "rethrow"},
	{Sizeof, "sizeof"},
	{Refanytype, "refanytype"},
	{Readonly, "readonly."},
})

func buildTables(entries []entry) *tables {
	t := &tables{}
	for _, e := range entries {
		if e.op.IsLarge() {
			t.extended[e.op.Byte2()] = e.op
		} else {
			t.single[e.op.Byte1()] = e.op
		}
		t.names[tableSlot(e.op)] = e.name
	}
	return t
}

// Describe returns the single-byte opcode encoded by b. Unused slots and the
// 0xFE lead byte return the zero OpCode.
func Describe(b byte) OpCode {
	return registry.single[b]
}

// DescribeExtended returns the two-byte opcode whose second byte is b.
func DescribeExtended(b byte) OpCode {
	return registry.extended[b]
}

// Lookup returns the opcode that starts with b1. b2 is only consulted when b1
// is the extended prefix.
func Lookup(b1, b2 byte) OpCode {
	if b1 == ExtendedPrefix {
		return registry.extended[b2]
	}
	return registry.single[b1]
}

// CodeOpCode returns the opcode for a numeric code.
func CodeOpCode(c Code) OpCode {
	if c>>8 == ExtendedPrefix {
		return registry.extended[byte(c)]
	}
	if c > 0xFF {
		return 0
	}
	return registry.single[byte(c)]
}

// ParseMnemonic finds an opcode by its textual name.
func ParseMnemonic(name string) (OpCode, bool) {
	op, ok := mnemonics[name]
	return op, ok
}

var mnemonics = func() map[string]OpCode {
	m := make(map[string]OpCode, 256)
	for i, name := range registry.names {
		if name == "" {
			continue
		}
		if i < 256 {
			m[name] = registry.single[i]
		} else {
			m[name] = registry.extended[i-256]
		}
	}
	return m
}()
