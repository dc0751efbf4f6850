package module

import (
	"fmt"
	"sort"
)

// WriteOptions control header flags.
type WriteOptions struct {
	// Empty sets the empty-interp header bit.
	Empty bool
}

// Write serializes one or more module images into a .mod byte stream:
// the file header, then per module its Module section, constant pool,
// dependencies, initializer, and global properties, closed by
// ModuleEnd. Multiple images arise from `--merge` builds.
func Write(images []*Image, opts WriteOptions) ([]byte, error) {
	var buf []byte
	buf = appendWord(buf, Magic)
	buf = appendWord(buf, FileVersion)
	flags := uint32(0)
	if opts.Empty {
		flags |= FlagEmptyInterp
	}
	buf = appendWord(buf, flags)

	for _, img := range images {
		var err error
		buf, err = writeModule(buf, img)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func writeModule(buf []byte, img *Image) ([]byte, error) {
	pool := img.Pool
	if pool == nil {
		pool = NewConstantPool()
		img.Pool = pool
	}
	// Every string any section will reference must be interned before
	// the pool bytes are written and the pool locks.
	internImage(pool, img)
	if pool.LockViolation {
		return nil, fmt.Errorf("constant pool locked; try another module name")
	}
	pool.Lock()

	buf = append(buf, SectionModule)
	buf = appendString(buf, img.Name)
	buf = appendVarint(buf, img.Version.Packed())

	checksumAt := len(buf)
	buf = appendWord(buf, 0) // reserved checksum slot, patched below

	buf = appendVarint(buf, int64(pool.Len()))
	buf = append(buf, pool.Bytes()...)

	for _, d := range img.Dependencies {
		buf = append(buf, SectionDependency)
		buf = appendVarint(buf, int64(pool.Lookup(d.Name)))
		buf = appendWord(buf, d.Checksum)
		buf = appendVarint(buf, d.Min.Packed())
		buf = appendVarint(buf, d.Max.Packed())
	}

	var err error
	if img.Init != nil {
		if buf, err = writeFunction(buf, pool, img.Init, AttrInitializer); err != nil {
			return nil, err
		}
	}

	// Classes are emitted so that a base class precedes every class
	// extending it.
	for _, c := range orderClasses(img.Classes) {
		if buf, err = writeClass(buf, pool, c); err != nil {
			return nil, err
		}
	}
	for _, fn := range img.Functions {
		if buf, err = writeFunction(buf, pool, fn, 0); err != nil {
			return nil, err
		}
	}
	for i := range img.Globals {
		buf = writeProperty(buf, pool, &img.Globals[i])
	}

	buf = append(buf, SectionModuleEnd)

	if pool.LockViolation {
		return nil, fmt.Errorf("constant pool locked; try another module name")
	}

	img.Checksum = ComputeChecksum(img)
	buf[checksumAt] = byte(img.Checksum)
	buf[checksumAt+1] = byte(img.Checksum >> 8)
	buf[checksumAt+2] = byte(img.Checksum >> 16)
	buf[checksumAt+3] = byte(img.Checksum >> 24)
	return buf, nil
}

// orderClasses returns classes base-first. Bases are matched by name
// within the image; a cycle (user error)
// falls back to declaration order for its members, since the visited
// flag guarantees each class is still emitted exactly once.
func orderClasses(classes []*Class) []*Class {
	byName := make(map[string]*Class, len(classes))
	for _, c := range classes {
		byName[c.Name] = c
	}
	visited := make(map[*Class]bool, len(classes))
	var out []*Class
	var visit func(c *Class)
	visit = func(c *Class) {
		if visited[c] {
			return
		}
		visited[c] = true
		if base, ok := byName[c.Base]; ok && base != c {
			visit(base)
		}
		for _, in := range c.Interfaces {
			if ifc, ok := byName[in]; ok && ifc != c {
				visit(ifc)
			}
		}
		out = append(out, c)
	}
	for _, c := range classes {
		visit(c)
	}
	return out
}

func writeFunction(buf []byte, pool *ConstantPool, fn *Function, extraAttrs uint32) ([]byte, error) {
	buf = append(buf, SectionFunction)
	buf = appendVarint(buf, int64(pool.Lookup(fn.Name)))
	buf = appendVarint(buf, int64(pool.Lookup(fn.Space)))
	buf = appendVarint(buf, int64(fn.NextSlot))
	buf = appendVarint(buf, int64(fn.Attrs|extraAttrs))
	buf = appendVarint(buf, int64(fn.Lang))
	if fn.ResultType == "" {
		buf = appendNoRef(buf)
	} else {
		buf = appendNameRef(buf, pool.Lookup(fn.ResultType), 0)
	}
	buf = appendVarint(buf, int64(fn.Slot))
	buf = appendVarint(buf, int64(fn.NumArgs))
	buf = appendVarint(buf, int64(fn.NumLocals))
	buf = appendVarint(buf, int64(len(fn.Exceptions)))
	buf = appendVarint(buf, int64(len(fn.Code)))
	buf = append(buf, fn.Code...)

	if len(fn.Exceptions) > 0 {
		buf = append(buf, SectionException)
		for _, e := range fn.Exceptions {
			if !(e.TryStart <= e.TryEnd && e.TryEnd <= e.HandlerStart && e.HandlerStart <= e.HandlerEnd) {
				return nil, fmt.Errorf("function %s: exception bounds out of order", fn.Name)
			}
			buf = appendVarint(buf, int64(e.Flags))
			buf = appendVarint(buf, int64(e.TryStart))
			buf = appendVarint(buf, int64(e.TryEnd))
			buf = appendVarint(buf, int64(e.HandlerStart))
			buf = appendVarint(buf, int64(e.HandlerEnd))
			buf = appendVarint(buf, int64(e.NumBlocks))
			buf = appendVarint(buf, int64(e.NumStack))
			if e.CatchType == "" {
				buf = appendNoRef(buf)
			} else {
				buf = appendNameRef(buf, pool.Lookup(e.CatchType), 0)
			}
		}
	}
	for i := range fn.Params {
		buf = writeProperty(buf, pool, &fn.Params[i])
	}
	if fn.Doc != "" {
		buf = writeDoc(buf, pool, fn.Doc)
	}
	buf = append(buf, SectionFunctionEnd)
	return buf, nil
}

func writeClass(buf []byte, pool *ConstantPool, c *Class) ([]byte, error) {
	buf = append(buf, SectionClass)
	buf = appendVarint(buf, int64(pool.Lookup(c.Name)))
	buf = appendVarint(buf, int64(pool.Lookup(c.Space)))
	buf = appendVarint(buf, int64(c.Attrs))
	buf = appendVarint(buf, int64(c.Slot))
	if c.Base == "" {
		buf = appendNoRef(buf)
	} else {
		buf = appendNameRef(buf, pool.Lookup(c.Base), 0)
	}
	buf = appendVarint(buf, int64(len(c.Interfaces)))
	for _, in := range c.Interfaces {
		buf = appendVarint(buf, int64(pool.Lookup(in)))
	}
	buf = appendVarint(buf, int64(len(c.StaticProps)))
	buf = appendVarint(buf, int64(len(c.InstanceProps)))
	for i := range c.StaticProps {
		buf = writeProperty(buf, pool, &c.StaticProps[i])
	}
	for i := range c.InstanceProps {
		buf = writeProperty(buf, pool, &c.InstanceProps[i])
	}
	var err error
	if c.Constructor != nil {
		if buf, err = writeFunction(buf, pool, c.Constructor, AttrConstructor); err != nil {
			return nil, err
		}
	}
	for _, m := range c.Methods {
		if buf, err = writeFunction(buf, pool, m, 0); err != nil {
			return nil, err
		}
	}
	if c.Doc != "" {
		buf = writeDoc(buf, pool, c.Doc)
	}
	buf = append(buf, SectionClassEnd)
	return buf, nil
}

func writeProperty(buf []byte, pool *ConstantPool, p *Property) []byte {
	buf = append(buf, SectionProperty)
	buf = appendVarint(buf, int64(pool.Lookup(p.Name)))
	buf = appendVarint(buf, int64(pool.Lookup(p.Space)))
	buf = appendVarint(buf, int64(p.Attrs))
	buf = appendVarint(buf, int64(p.Slot))
	if p.Type == "" {
		buf = appendNoRef(buf)
	} else {
		buf = appendNameRef(buf, pool.Lookup(p.Type), 0)
	}
	// Properties have no End tag, so the doc is flag-prefixed instead of
	// tag-introduced; a tag here would be ambiguous with whatever section
	// follows the property.
	if p.Doc != "" {
		buf = appendVarint(buf, 1)
		buf = appendVarint(buf, int64(pool.Lookup(p.Doc)))
	} else {
		buf = appendVarint(buf, 0)
	}
	return buf
}

func writeDoc(buf []byte, pool *ConstantPool, doc string) []byte {
	buf = append(buf, SectionDoc)
	return appendVarint(buf, int64(pool.Lookup(doc)))
}

// internImage pre-interns every string the sections will reference, so
// the pool can lock before its bytes are written. Names
// are interned in a deterministic order so two compilations of the same
// sources produce byte-identical pools.
func internImage(pool *ConstantPool, img *Image) {
	pool.Intern("")
	for _, d := range img.Dependencies {
		pool.Intern(d.Name)
	}
	if img.Init != nil {
		internFunction(pool, img.Init)
	}
	for _, fn := range img.Functions {
		internFunction(pool, fn)
	}
	for _, c := range img.Classes {
		pool.Intern(c.Name)
		pool.Intern(c.Space)
		pool.Intern(c.Base)
		ifcs := append([]string(nil), c.Interfaces...)
		sort.Strings(ifcs)
		for _, in := range ifcs {
			pool.Intern(in)
		}
		for i := range c.StaticProps {
			internProperty(pool, &c.StaticProps[i])
		}
		for i := range c.InstanceProps {
			internProperty(pool, &c.InstanceProps[i])
		}
		if c.Constructor != nil {
			internFunction(pool, c.Constructor)
		}
		for _, m := range c.Methods {
			internFunction(pool, m)
		}
		pool.Intern(c.Doc)
	}
	for i := range img.Globals {
		internProperty(pool, &img.Globals[i])
	}
}

func internFunction(pool *ConstantPool, fn *Function) {
	pool.Intern(fn.Name)
	pool.Intern(fn.Space)
	pool.Intern(fn.ResultType)
	for _, e := range fn.Exceptions {
		pool.Intern(e.CatchType)
	}
	for i := range fn.Params {
		internProperty(pool, &fn.Params[i])
	}
	pool.Intern(fn.Doc)
}

func internProperty(pool *ConstantPool, p *Property) {
	pool.Intern(p.Name)
	pool.Intern(p.Space)
	pool.Intern(p.Type)
	pool.Intern(p.Doc)
}
