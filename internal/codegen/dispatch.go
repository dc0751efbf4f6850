package codegen

import "github.com/ejscript/ejsc/internal/ast"

// emitLoadName and emitStoreName implement the binding-aware
// dispatch preference order for a QName reference already resolved (or
// explicitly left unresolved) by Bind:
//  1. unbound                      -> *ByName
//  2. current-function local       -> *LocalSlot_k / *LocalSlot
//  3. enclosing lexical block       -> *BlockSlot
//  4. instance property (`this`)   -> *ThisSlot_k / *ThisSlot / *ThisTypeSlot
//  5. module global                -> *GlobalSlot
//
// Steps 6 (owner is a type -> *TypeSlot) and 7 (explicit object with a
// statically known class -> *ObjSlot_k / *ObjSlot / *ObjInstanceSlot /
// *ObjStaticSlot) go through an explicit object expression rather than a
// QName's own Lookup; staticTypeOf/findMember below resolve them for
// emitDotLoad, emitMemberStore, and emitCall. An object whose type is
// not statically known stays *ByName.
// maxBoundSlot is the slot-encoding limit: slot 255 still takes the
// dedicated slot path, 256 forces *ByName dynamic dispatch.
const maxBoundSlot = 255

func (g *Generator) emitLoadName(n *ast.Node) {
	lk := n.Lookup
	if lk == nil || !lk.Bound || slotOverflows(lk) {
		g.fn.buf.EmitEffect(OpGetGlobalByName, 1, int64(g.internName(n.QName.Name)))
		return
	}
	declNode, _ := lk.Ref.(*ast.Node)

	if lk.InstanceProperty && lk.UseThis && declNode != nil && declNode.Lookup != nil {
		if declNode.Attrs&ast.AttrStatic != 0 {
			g.fn.buf.EmitOperands(OpGetThisTypeSlot, int64(declNode.Lookup.SlotNum))
			return
		}
		emitSlot10(g.fn.buf, declNode.Lookup.SlotNum, OpGetThisSlot0, OpGetThisSlot)
		return
	}
	if slot, ok := g.globalSlots[declNode]; ok {
		g.fn.buf.EmitOperand(OpGetGlobalSlot, int64(slot))
		return
	}
	if declNode != nil && declNode.Lookup != nil {
		if lk.NthBlock == 0 {
			emitSlot10(g.fn.buf, declNode.Lookup.SlotNum, OpGetLocalSlot0, OpGetLocalSlot)
			return
		}
		g.fn.buf.EmitOperands(OpGetBlockSlot, int64(declNode.Lookup.SlotNum), int64(lk.NthBlock))
		return
	}
	g.fn.buf.EmitEffect(OpGetGlobalByName, 1, int64(g.internName(n.QName.Name)))
}

// slotOverflows reports whether the resolved declaration's slot exceeds
// the bindable range, forcing the dynamic fallback.
func slotOverflows(lk *ast.Lookup) bool {
	declNode, _ := lk.Ref.(*ast.Node)
	return declNode != nil && declNode.Lookup != nil && declNode.Lookup.SlotNum > maxBoundSlot
}

func (g *Generator) emitStoreName(n *ast.Node) {
	lk := n.Lookup
	if lk == nil || !lk.Bound || slotOverflows(lk) {
		g.fn.buf.EmitEffect(OpPutGlobalByName, -1, int64(g.internName(n.QName.Name)))
		return
	}
	declNode, _ := lk.Ref.(*ast.Node)

	if lk.InstanceProperty && lk.UseThis && declNode != nil && declNode.Lookup != nil {
		if declNode.Attrs&ast.AttrStatic != 0 {
			g.fn.buf.EmitOperands(OpPutThisTypeSlot, int64(declNode.Lookup.SlotNum))
			return
		}
		g.fn.buf.EmitOperand(OpPutThisSlot, int64(declNode.Lookup.SlotNum))
		return
	}
	if slot, ok := g.globalSlots[declNode]; ok {
		g.fn.buf.EmitOperand(OpPutGlobalSlot, int64(slot))
		return
	}
	if declNode != nil && declNode.Lookup != nil {
		if lk.NthBlock == 0 {
			g.fn.buf.EmitOperand(OpPutLocalSlot, int64(declNode.Lookup.SlotNum))
			return
		}
		g.fn.buf.EmitOperands(OpPutBlockSlot, int64(declNode.Lookup.SlotNum), int64(lk.NthBlock))
		return
	}
	g.fn.buf.EmitEffect(OpPutGlobalByName, -1, int64(g.internName(n.QName.Name)))
}

// staticTypeOf resolves the class a member-access object expression is
// statically known to be: a QName that names a class declaration itself
// (a type reference, dispatch-preference step 6), a QName whose
// declaration carries a resolved class type annotation, or a `new C`
// expression (both step 7). Returns nil when the object's type is
// dynamic and the access must stay *ByName.
func staticTypeOf(obj *ast.Node) (cls *ast.Node, isTypeRef bool) {
	switch obj.Kind {
	case ast.KindQName:
		if obj.Lookup == nil || !obj.Lookup.Bound {
			return nil, false
		}
		decl, ok := obj.Lookup.Ref.(*ast.Node)
		if !ok {
			return nil, false
		}
		if decl.Kind == ast.KindClass {
			return decl, true
		}
		if decl.Kind == ast.KindVarDefinition && len(decl.Children) > 0 {
			if ann := decl.Children[0]; ann != nil && ann.Lookup != nil {
				if typeDecl, ok := ann.Lookup.Ref.(*ast.Node); ok && typeDecl.Kind == ast.KindClass {
					return typeDecl, false
				}
			}
		}
	case ast.KindNew:
		callee := obj.Children[0]
		if callee != nil && callee.Kind == ast.KindQName && callee.Lookup != nil {
			if decl, ok := callee.Lookup.Ref.(*ast.Node); ok && decl.Kind == ast.KindClass {
				return decl, false
			}
		}
	}
	return nil, false
}

// findMember locates a bindable member of cls (or its base chain) by
// name and staticness, forcing the layout so slots exist. Constructors
// never bind (OpCallConstructor dispatches through the class itself)
// and getters/setters never bind (the slot's value is runtime-
// determined), so both return false.
func (g *Generator) findMember(cls *ast.Node, name string, wantStatic bool) (*ast.Node, bool) {
	g.getClassLayout(cls)
	seen := make(map[*ast.Node]bool)
	for c := cls; c != nil && !seen[c]; c = baseClassNodeOf(c) {
		seen[c] = true
		g.getClassLayout(c)
		body := c.Children[len(c.Children)-1]
		if body == nil {
			continue
		}
		for _, m := range ClassMembers(body) {
			if m.QName.Name != name {
				continue
			}
			if m.Kind != ast.KindVarDefinition && m.Kind != ast.KindFunction {
				continue
			}
			if (m.Attrs&ast.AttrStatic != 0) != wantStatic {
				continue
			}
			if m.Kind == ast.KindFunction && (m.QName.Name == c.QName.Name || m.Text != "") {
				return nil, false // constructor or get/set accessor
			}
			if m.Lookup == nil || m.Lookup.SlotNum > maxBoundSlot {
				return nil, false
			}
			return m, true
		}
	}
	return nil, false
}

// emitSlot10 picks the dedicated zero-operand form for slot < 10, the
// generic operand form otherwise.
func emitSlot10(buf *Buffer, slot int, base0, generic OpCode) {
	if slot >= 0 && slot < 10 {
		buf.Emit(base0 + OpCode(slot))
		return
	}
	buf.EmitOperand(generic, int64(slot))
}

// internName returns the constant reference a name operand encodes.
// With a NamePool attached (the normal compile-to-module path), the
// reference is the real pool offset and the emitted bytecode
// needs no later rewriting. Without one (unit tests driving the
// Generator directly), names index the provisional nameList the
// disassembler resolves against.
func (g *Generator) internName(name string) int {
	if g.pool != nil {
		return g.pool.Intern(name)
	}
	if g.names == nil {
		g.names = make(map[string]int)
	}
	if idx, ok := g.names[name]; ok {
		return idx
	}
	idx := len(g.nameList)
	g.names[name] = idx
	g.nameList = append(g.nameList, name)
	return idx
}
