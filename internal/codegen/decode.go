package codegen

import "fmt"

// OperandKind describes one operand slot of an instruction, so the
// decoder (shared by the disassembler and the VM's dispatch loop) never
// has to special-case opcodes.
type OperandKind int

const (
	// OperVarint is a signed LEB128 varint (slot numbers, counts, nth).
	OperVarint OperandKind = iota
	// OperNameRef is a varint whose value indexes the constant pool
	// (or, before a pool is attached, the Generator's provisional name
	// table).
	OperNameRef
	// OperDisp8 is a raw signed byte displacement, patched after
	// reservation rather than varint-encoded.
	OperDisp8
	// OperDisp32 is a raw signed little-endian 4-byte displacement.
	OperDisp32
	// OperDouble is a raw IEEE-754 little-endian 8-byte payload.
	OperDouble
)

// operandLayout lists each opcode's operand slots in encoding order.
// Opcodes absent from the table have no operands.
var operandLayout = map[OpCode][]OperandKind{
	OpGetLocalSlot: {OperVarint},
	OpPutLocalSlot: {OperVarint},
	OpGetBlockSlot: {OperVarint, OperVarint},
	OpPutBlockSlot: {OperVarint, OperVarint},

	OpGetGlobalSlot: {OperVarint},
	OpPutGlobalSlot: {OperVarint},

	OpGetObjSlot: {OperVarint},
	OpPutObjSlot: {OperVarint},

	OpGetThisSlot: {OperVarint},
	OpPutThisSlot: {OperVarint},

	OpGetTypeSlot:     {OperVarint, OperVarint},
	OpPutTypeSlot:     {OperVarint, OperVarint},
	OpGetThisTypeSlot: {OperVarint},
	OpPutThisTypeSlot: {OperVarint},

	OpGetLocalByName:  {OperNameRef},
	OpPutLocalByName:  {OperNameRef},
	OpGetObjByName:    {OperNameRef},
	OpPutObjByName:    {OperNameRef},
	OpGetThisByName:   {OperNameRef},
	OpPutThisByName:   {OperNameRef},
	OpGetGlobalByName: {OperNameRef},
	OpPutGlobalByName: {OperNameRef},

	OpCall:                {OperVarint},
	OpCallScopedName:      {OperNameRef, OperVarint},
	OpCallObjName:         {OperNameRef, OperVarint},
	OpCallObjSlot:         {OperVarint, OperVarint},
	OpCallObjInstanceSlot: {OperVarint, OperVarint},
	OpCallObjStaticSlot:   {OperVarint, OperVarint},
	OpCallThisSlot:        {OperVarint, OperVarint},
	OpCallThisStaticSlot:  {OperVarint, OperVarint},
	OpCallGlobalSlot:      {OperVarint, OperVarint},
	OpCallBlockSlot:       {OperVarint, OperVarint, OperVarint},
	OpCallConstructor:     {OperVarint},
	OpCallNextConstructor: {OperVarint},

	OpGoto8:        {OperDisp8},
	OpGoto:         {OperDisp32},
	OpBranchTrue8:  {OperDisp8},
	OpBranchTrue:   {OperDisp32},
	OpBranchFalse8: {OperDisp8},
	OpBranchFalse:  {OperDisp32},
	OpBranchEq8:    {OperDisp8},
	OpBranchEq:     {OperDisp32},
	OpBranchNe8:    {OperDisp8},
	OpBranchNe:     {OperDisp32},

	OpLoadInt:       {OperVarint},
	OpLoadDouble:    {OperDouble},
	OpLoadString:    {OperNameRef},
	OpLoadNamespace: {OperNameRef},
	OpLoadRegExp:    {OperNameRef},
	OpLoadXML:       {OperNameRef},

	OpNew:       {OperNameRef, OperVarint},
	OpNewObject: {OperVarint},
	OpNewArray:  {OperVarint},
	OpPopItems:  {OperVarint},

	OpOpenBlock:       {OperVarint, OperVarint},
	OpAddNamespace:    {OperNameRef},
	OpAddNamespaceRef: {OperVarint},
	OpDefineFunction:  {OperVarint, OperVarint},
	OpDefineClass:     {OperNameRef},

	OpInitDefaultArgs8: {OperVarint},
	OpInitDefaultArgs:  {OperVarint},

	OpDeleteProperty: {OperNameRef},

	OpDebug: {OperNameRef, OperVarint, OperNameRef},
}

// Instr is one decoded instruction: its byte offset, opcode, and operand
// values in layout order (displacements and doubles are carried as their
// raw numeric value).
type Instr struct {
	Offset   int
	Op       OpCode
	Operands []int64
	Kinds    []OperandKind
	Size     int
}

// readVarint decodes a signed LEB128 varint starting at i, mirroring
// appendVarint's encoding exactly.
func readVarint(code []byte, i int) (int64, int, error) {
	var result int64
	var shift uint
	for {
		if i >= len(code) {
			return 0, i, fmt.Errorf("truncated varint operand at offset %d", i)
		}
		b := code[i]
		i++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, i, nil
		}
	}
}

// DecodeOne decodes the instruction at offset, returning it and the
// offset of the next instruction.
func DecodeOne(code []byte, offset int) (Instr, int, error) {
	if offset >= len(code) {
		return Instr{}, offset, fmt.Errorf("offset %d past end of code", offset)
	}
	op := OpCode(code[offset])
	if _, known := OpCodeNames[op]; !known {
		return Instr{}, offset, fmt.Errorf("unknown opcode 0x%02x at offset %d", byte(op), offset)
	}
	in := Instr{Offset: offset, Op: op, Kinds: operandLayout[op]}
	i := offset + 1

	// InitDefaultArgs is the one variable-arity instruction: a count
	// followed by that many segment byte-lengths.
	if op == OpInitDefaultArgs || op == OpInitDefaultArgs8 {
		n, next, err := readVarint(code, i)
		if err != nil {
			return Instr{}, i, err
		}
		i = next
		in.Operands = append(in.Operands, n)
		in.Kinds = []OperandKind{OperVarint}
		for k := int64(0); k < n; k++ {
			var v int64
			v, i, err = readVarint(code, i)
			if err != nil {
				return Instr{}, i, err
			}
			in.Operands = append(in.Operands, v)
			in.Kinds = append(in.Kinds, OperVarint)
		}
		in.Size = i - offset
		return in, i, nil
	}

	for _, kind := range in.Kinds {
		switch kind {
		case OperVarint, OperNameRef:
			v, next, err := readVarint(code, i)
			if err != nil {
				return Instr{}, i, err
			}
			in.Operands = append(in.Operands, v)
			i = next
		case OperDisp8:
			if i >= len(code) {
				return Instr{}, i, fmt.Errorf("truncated 8-bit displacement at offset %d", i)
			}
			in.Operands = append(in.Operands, int64(int8(code[i])))
			i++
		case OperDisp32:
			if i+4 > len(code) {
				return Instr{}, i, fmt.Errorf("truncated 32-bit displacement at offset %d", i)
			}
			v := int32(code[i]) | int32(code[i+1])<<8 | int32(code[i+2])<<16 | int32(code[i+3])<<24
			in.Operands = append(in.Operands, int64(v))
			i += 4
		case OperDouble:
			if i+8 > len(code) {
				return Instr{}, i, fmt.Errorf("truncated double at offset %d", i)
			}
			var bits uint64
			for k := 0; k < 8; k++ {
				bits |= uint64(code[i+k]) << (8 * k)
			}
			in.Operands = append(in.Operands, int64(bits))
			i += 8
		}
	}
	in.Size = i - offset
	return in, i, nil
}

// DecodeAll decodes a full code buffer into its instruction sequence.
func DecodeAll(code []byte) ([]Instr, error) {
	var out []Instr
	for i := 0; i < len(code); {
		in, next, err := DecodeOne(code, i)
		if err != nil {
			return out, err
		}
		out = append(out, in)
		i = next
	}
	return out, nil
}
