package codegen

import "github.com/ejscript/ejsc/internal/ast"

// classLayout is the slot-count result of laying out one class: how many
// instance slots and how many static slots it occupies once its base
// class's own slots (if any) are accounted for.
// Ejscript's real object model keeps properties and methods in one
// slot-indexed table per type rather than splitting fields from a
// separate vtable (the opcode set's GetObjSlot/CallObjInstanceSlot pair
// address the same slot space).
type classLayout struct {
	instanceSlots int
	staticSlots   int
}

// getClassLayout computes (and caches) cls's slot layout, resolving the
// base class's layout first regardless of declaration order — a forward
// reference to a not-yet-walked base is resolved by recursing into it
// directly rather than relying on FixupPhase's left-to-right walk order.
func (g *Generator) getClassLayout(cls *ast.Node) *classLayout {
	if l, ok := g.classLayouts[cls]; ok {
		return l
	}
	l := &classLayout{}
	g.classLayouts[cls] = l // placeholder breaks cyclic extends before recursing

	if base := cls.Children[0]; base != nil && base.Lookup != nil {
		if baseNode, ok := base.Lookup.Ref.(*ast.Node); ok && baseNode != cls {
			baseLayout := g.getClassLayout(baseNode)
			l.instanceSlots = baseLayout.instanceSlots
			l.staticSlots = baseLayout.staticSlots
		}
	}

	body := cls.Children[len(cls.Children)-1]
	if body == nil {
		return l
	}
	for _, m := range ClassMembers(body) {
		switch m.Kind {
		case ast.KindVarDefinition:
			g.assignClassSlot(m, cls, l)
		case ast.KindFunction:
			g.assignClassSlot(m, cls, l)
		}
	}
	return l
}

// ClassMembers yields a class body's member declarations in order,
// unwrapping the Directives grouping a `var a, b;` field line parses to
// so fields and methods walk as one flat list.
func ClassMembers(body *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, m := range body.Children {
		if m == nil {
			continue
		}
		if m.Kind == ast.KindDirectives {
			for _, v := range m.Children {
				if v != nil {
					out = append(out, v)
				}
			}
			continue
		}
		out = append(out, m)
	}
	return out
}

func (g *Generator) assignClassSlot(m, cls *ast.Node, l *classLayout) {
	if m.Lookup == nil {
		m.Lookup = &ast.Lookup{}
	}
	m.Lookup.OwnerIsType = true
	isStatic := m.Attrs&ast.AttrStatic != 0

	// An override member is stamped into the inherited slot it replaces
	// rather than appended after the base slots, so bound dispatch
	// through the base's slot number reaches the derived method.
	if m.Attrs&ast.AttrOverride != 0 {
		if slot, ok := g.findBaseMemberSlot(cls, m.QName.Name, isStatic); ok {
			m.Lookup.SlotNum = slot
			return
		}
	}

	if isStatic {
		m.Lookup.SlotNum = l.staticSlots
		l.staticSlots++
		return
	}
	// A constructor (method named after its class) isn't an instance
	// slot a caller ever addresses by name at a fixed offset the way a
	// field or ordinary method is; OpCallConstructor dispatches through
	// the class reference itself, not a slot.
	if m.Kind == ast.KindFunction && m.QName.Name == cls.QName.Name {
		return
	}
	m.Lookup.SlotNum = l.instanceSlots
	l.instanceSlots++
}

// baseClassNodeOf returns cls's resolved base-class declaration, or nil.
func baseClassNodeOf(cls *ast.Node) *ast.Node {
	base := cls.Children[0]
	if base == nil || base.Lookup == nil {
		return nil
	}
	decl, ok := base.Lookup.Ref.(*ast.Node)
	if !ok || decl == cls || decl.Kind != ast.KindClass {
		return nil
	}
	return decl
}

// findBaseMemberSlot locates the slot of a same-named member up the base
// chain, forcing base layouts to compute first so their slots exist. The
// seen set guards against cyclic extends chains.
func (g *Generator) findBaseMemberSlot(cls *ast.Node, name string, wantStatic bool) (int, bool) {
	seen := map[*ast.Node]bool{cls: true}
	for base := baseClassNodeOf(cls); base != nil && !seen[base]; base = baseClassNodeOf(base) {
		seen[base] = true
		g.getClassLayout(base)
		body := base.Children[len(base.Children)-1]
		if body == nil {
			continue
		}
		for _, m := range ClassMembers(body) {
			if m.QName.Name != name || m.QName.Name == base.QName.Name {
				continue
			}
			if (m.Attrs&ast.AttrStatic != 0) == wantStatic && m.Lookup != nil {
				return m.Lookup.SlotNum, true
			}
		}
	}
	return 0, false
}

// newSyntheticSlot allocates a local slot not tied to any declaration
// node, for CodeGen-introduced temporaries (a for-in loop's iterator
// handle, for instance).
func (g *Generator) newSyntheticSlot() int {
	slot := g.fn.nextSlot
	g.fn.nextSlot++
	if g.fn.nextSlot > g.fn.maxSlot {
		g.fn.maxSlot = g.fn.nextSlot
	}
	return slot
}

// assignLocalSlot gives decl the current function's next local slot,
// recording it on decl.Lookup.
func (g *Generator) assignLocalSlot(decl *ast.Node) int {
	slot := g.fn.nextSlot
	g.fn.nextSlot++
	if g.fn.nextSlot > g.fn.maxSlot {
		g.fn.maxSlot = g.fn.nextSlot
	}
	if decl.Lookup == nil {
		decl.Lookup = &ast.Lookup{}
	}
	decl.Lookup.SlotNum = slot
	return slot
}

// assignBlockLocalSlots walks n's subtree assigning a local slot to every
// var/let/const declaration, stopping at a nested KindFunction boundary
// (that function gets its own slot space when compileFunction visits it)
// and at a disabled subtree (erased declarations never reach CodeGen,
// but a defensive check costs nothing).
func assignBlockLocalSlotsWalk(g *Generator, n *ast.Node) {
	if n == nil || n.Disabled {
		return
	}
	switch n.Kind {
	case ast.KindFunction:
		return
	case ast.KindVarDefinition:
		g.assignLocalSlot(n)
	case ast.KindCatch:
		if len(n.Children) > 0 && n.Children[0] != nil {
			g.assignLocalSlot(n.Children[0])
		}
	}
	for _, c := range n.Children {
		assignBlockLocalSlotsWalk(g, c)
	}
}

func (g *Generator) assignBlockLocalSlots(n *ast.Node) {
	assignBlockLocalSlotsWalk(g, n)
}
