package compiler

// Adapters from codegen's per-file output to the module writer's image
// model. CodeGen emits pool-offset bytecode against internal/module's
// constant pool, so everything here is metadata shuffling.

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/codegen"
	"github.com/ejscript/ejsc/internal/module"
)

func imageFromModule(m *codegen.Module, pool *module.ConstantPool, opts Options) *module.Image {
	img := &module.Image{
		Name:         m.Name,
		Version:      opts.Version,
		Dependencies: opts.Dependencies,
		Pool:         pool,
	}
	if m.Init != nil {
		img.Init = functionFromCodegen(m.Init)
	}
	for _, fn := range m.Functions {
		img.Functions = append(img.Functions, functionFromCodegen(fn))
	}
	for _, c := range m.Classes {
		img.Classes = append(img.Classes, classFromCodegen(c))
	}
	img.Globals = globalsFromProgram(m)
	return img
}

func functionFromCodegen(fn *codegen.Function) *module.Function {
	out := &module.Function{
		Name:      fn.Name,
		Slot:      slotOf(fn.Node),
		NumArgs:   fn.NumParams,
		NumLocals: fn.NumLocalSlots,
		Code:      fn.Buf.Bytes,
	}
	if fn.Node != nil {
		out.Doc = fn.Node.Doc
		out.Attrs = uint32(fn.Node.Attrs)
		if len(fn.Node.Children) > 1 && fn.Node.Children[1] != nil {
			out.ResultType = fn.Node.Children[1].QName.Name
		}
		if len(fn.Node.Children) > 0 && fn.Node.Children[0] != nil {
			for _, p := range fn.Node.Children[0].Children {
				if p == nil {
					continue
				}
				prop := module.Property{
					Name: p.QName.Name,
					Slot: slotOf(p),
				}
				if len(p.Children) > 0 && p.Children[0] != nil {
					prop.Type = p.Children[0].QName.Name
				}
				out.Params = append(out.Params, prop)
			}
		}
	}
	for _, e := range fn.Buf.Exceptions {
		out.Exceptions = append(out.Exceptions, module.Exception{
			Flags:        int(e.Flags),
			TryStart:     e.TryStart,
			TryEnd:       e.TryEnd,
			HandlerStart: e.HandlerStart,
			HandlerEnd:   e.HandlerEnd,
			NumBlocks:    e.NumBlocks,
			NumStack:     e.NumStack,
			CatchType:    catchTypeName(e.CatchType),
		})
	}
	return out
}

func catchTypeName(t any) string {
	if n, ok := t.(*ast.Node); ok && n != nil {
		return n.QName.Name
	}
	return ""
}

func slotOf(n *ast.Node) int {
	if n == nil || n.Lookup == nil {
		return ast.UnresolvedSlot
	}
	return n.Lookup.SlotNum
}

func classFromCodegen(c *codegen.Class) *module.Class {
	out := &module.Class{
		Name: c.Name,
		Slot: slotOf(c.Node),
	}
	if c.Node != nil {
		out.Doc = c.Node.Doc
		out.Attrs = uint32(c.Node.Attrs)
		if base := c.Node.Children[0]; base != nil {
			out.Base = base.QName.Name
		}
		if ifcs := c.Node.Children[1]; ifcs != nil {
			for _, in := range ifcs.Children {
				if in != nil {
					out.Interfaces = append(out.Interfaces, in.QName.Name)
				}
			}
		}
		body := c.Node.Children[len(c.Node.Children)-1]
		if body != nil {
			for _, m := range codegen.ClassMembers(body) {
				if m.Kind != ast.KindVarDefinition {
					continue
				}
				prop := module.Property{
					Name:  m.QName.Name,
					Attrs: uint32(m.Attrs),
					Slot:  slotOf(m),
					Doc:   m.Doc,
				}
				if len(m.Children) > 0 && m.Children[0] != nil {
					prop.Type = m.Children[0].QName.Name
				}
				if m.Attrs&ast.AttrStatic != 0 {
					out.StaticProps = append(out.StaticProps, prop)
				} else {
					out.InstanceProps = append(out.InstanceProps, prop)
				}
			}
		}
	}
	if c.Constructor != nil {
		out.Constructor = functionFromCodegen(c.Constructor)
	}
	for _, m := range c.Methods {
		out.Methods = append(out.Methods, functionFromCodegen(m))
	}
	return out
}

// globalsFromProgram extracts the module's global var declarations as
// Property sections, in declaration order.
func globalsFromProgram(m *codegen.Module) []module.Property {
	var props []module.Property
	var prog *ast.Node
	if m.Init != nil {
		prog = m.Init.Node
	}
	if prog == nil {
		return nil
	}
	addVar := func(v *ast.Node) {
		if v == nil || v.Kind != ast.KindVarDefinition || v.Disabled {
			return
		}
		prop := module.Property{
			Name:  v.QName.Name,
			Attrs: uint32(v.Attrs),
			Slot:  slotOf(v),
			Doc:   v.Doc,
		}
		if len(v.Children) > 0 && v.Children[0] != nil {
			prop.Type = v.Children[0].QName.Name
		}
		props = append(props, prop)
	}
	for _, c := range prog.Children {
		if c == nil || c.Disabled {
			continue
		}
		switch c.Kind {
		case ast.KindVarDefinition:
			addVar(c)
		case ast.KindDirectives:
			for _, v := range c.Children {
				addVar(v)
			}
		}
	}
	return props
}
