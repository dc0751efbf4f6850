package module

import (
	"fmt"
)

// Read parses a .mod byte stream back into its module images, verifying
// the magic, file version, and each module's checksum. It is the writer's exact mirror; `ejsc doc` and `ejsc
// run` on pre-compiled inputs both go through it.
func Read(data []byte) ([]*Image, uint32, error) {
	magic, i, err := readWord(data, 0)
	if err != nil {
		return nil, 0, err
	}
	if magic != Magic {
		return nil, 0, fmt.Errorf("bad magic 0x%08X: not a module file", magic)
	}
	fileVersion, i, err := readWord(data, i)
	if err != nil {
		return nil, 0, err
	}
	if fileVersion != FileVersion {
		return nil, 0, fmt.Errorf("unsupported module file version %d (have %d)", fileVersion, FileVersion)
	}
	flags, i, err := readWord(data, i)
	if err != nil {
		return nil, 0, err
	}

	var images []*Image
	for i < len(data) {
		if data[i] != SectionModule {
			return nil, flags, fmt.Errorf("expected Module section at offset %d, found tag %d", i, data[i])
		}
		var img *Image
		img, i, err = readModule(data, i+1)
		if err != nil {
			return nil, flags, err
		}
		if sum := ComputeChecksum(img); sum != img.Checksum {
			return nil, flags, fmt.Errorf("module %s: checksum mismatch (stored %08X, computed %08X)",
				img.Name, img.Checksum, sum)
		}
		images = append(images, img)
	}
	return images, flags, nil
}

func readModule(data []byte, i int) (*Image, int, error) {
	img := &Image{}
	var err error
	img.Name, i, err = readString(data, i)
	if err != nil {
		return nil, i, err
	}
	var packed int64
	packed, i, err = readVarint(data, i)
	if err != nil {
		return nil, i, err
	}
	img.Version = UnpackVersion(packed)
	img.Checksum, i, err = readWord(data, i)
	if err != nil {
		return nil, i, err
	}
	var poolLen int64
	poolLen, i, err = readVarint(data, i)
	if err != nil {
		return nil, i, err
	}
	if poolLen < 1 || i+int(poolLen) > len(data) {
		return nil, i, fmt.Errorf("truncated constant pool at offset %d", i)
	}
	img.Pool = PoolFromBytes(data[i : i+int(poolLen)])
	i += int(poolLen)

	for {
		if i >= len(data) {
			return nil, i, fmt.Errorf("module %s: missing ModuleEnd", img.Name)
		}
		tag := data[i]
		i++
		switch tag {
		case SectionModuleEnd:
			return img, i, nil
		case SectionDependency:
			var d Dependency
			d, i, err = readDependency(data, i, img.Pool)
			if err != nil {
				return nil, i, err
			}
			img.Dependencies = append(img.Dependencies, d)
		case SectionFunction:
			var fn *Function
			fn, i, err = readFunction(data, i, img.Pool)
			if err != nil {
				return nil, i, err
			}
			if fn.Attrs&AttrInitializer != 0 {
				fn.Attrs &^= AttrInitializer
				img.Init = fn
			} else {
				img.Functions = append(img.Functions, fn)
			}
		case SectionClass:
			var c *Class
			c, i, err = readClass(data, i, img.Pool)
			if err != nil {
				return nil, i, err
			}
			img.Classes = append(img.Classes, c)
		case SectionProperty:
			var p Property
			p, i, err = readProperty(data, i, img.Pool)
			if err != nil {
				return nil, i, err
			}
			img.Globals = append(img.Globals, p)
		default:
			return nil, i, fmt.Errorf("module %s: unexpected section tag %d at offset %d", img.Name, tag, i-1)
		}
	}
}

func readDependency(data []byte, i int, pool *ConstantPool) (Dependency, int, error) {
	var d Dependency
	var nameOff int64
	var err error
	nameOff, i, err = readVarint(data, i)
	if err != nil {
		return d, i, err
	}
	var ok bool
	if d.Name, ok = pool.StringAt(int(nameOff)); !ok {
		return d, i, fmt.Errorf("dependency name ref %d outside constant pool", nameOff)
	}
	d.Checksum, i, err = readWord(data, i)
	if err != nil {
		return d, i, err
	}
	var minP, maxP int64
	if minP, i, err = readVarint(data, i); err != nil {
		return d, i, err
	}
	if maxP, i, err = readVarint(data, i); err != nil {
		return d, i, err
	}
	d.Min, d.Max = UnpackVersion(minP), UnpackVersion(maxP)
	return d, i, nil
}

func readPoolString(data []byte, i int, pool *ConstantPool, what string) (string, int, error) {
	off, i, err := readVarint(data, i)
	if err != nil {
		return "", i, err
	}
	s, ok := pool.StringAt(int(off))
	if !ok {
		return "", i, fmt.Errorf("%s ref %d outside constant pool", what, off)
	}
	return s, i, nil
}

func readFunction(data []byte, i int, pool *ConstantPool) (*Function, int, error) {
	fn := &Function{}
	var err error
	if fn.Name, i, err = readPoolString(data, i, pool, "function name"); err != nil {
		return nil, i, err
	}
	if fn.Space, i, err = readPoolString(data, i, pool, "function namespace"); err != nil {
		return nil, i, err
	}
	var v int64
	if v, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	fn.NextSlot = int(v)
	if v, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	fn.Attrs = uint32(v)
	if v, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	fn.Lang = int(v)
	var result GlobalRef
	if result, i, err = readGlobalRef(data, i, pool); err != nil {
		return nil, i, err
	}
	fn.ResultType = result.Name
	if v, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	fn.Slot = int(v)
	if v, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	fn.NumArgs = int(v)
	if v, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	fn.NumLocals = int(v)
	var numExceptions int64
	if numExceptions, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	var codeLen int64
	if codeLen, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	if codeLen < 0 || i+int(codeLen) > len(data) {
		return nil, i, fmt.Errorf("function %s: truncated code", fn.Name)
	}
	fn.Code = append([]byte(nil), data[i:i+int(codeLen)]...)
	i += int(codeLen)

	if numExceptions > 0 {
		if i >= len(data) || data[i] != SectionException {
			return nil, i, fmt.Errorf("function %s: missing Exception section", fn.Name)
		}
		i++
		for k := int64(0); k < numExceptions; k++ {
			var e Exception
			if e, i, err = readException(data, i, pool); err != nil {
				return nil, i, err
			}
			fn.Exceptions = append(fn.Exceptions, e)
		}
	}

	for {
		if i >= len(data) {
			return nil, i, fmt.Errorf("function %s: missing FunctionEnd", fn.Name)
		}
		tag := data[i]
		i++
		switch tag {
		case SectionFunctionEnd:
			return fn, i, nil
		case SectionProperty:
			var p Property
			if p, i, err = readProperty(data, i, pool); err != nil {
				return nil, i, err
			}
			fn.Params = append(fn.Params, p)
		case SectionDoc:
			if fn.Doc, i, err = readDocText(data, i, pool); err != nil {
				return nil, i, err
			}
		default:
			return nil, i, fmt.Errorf("function %s: unexpected tag %d", fn.Name, tag)
		}
	}
}

func readException(data []byte, i int, pool *ConstantPool) (Exception, int, error) {
	var e Exception
	fields := []*int{&e.Flags, &e.TryStart, &e.TryEnd, &e.HandlerStart, &e.HandlerEnd, &e.NumBlocks, &e.NumStack}
	var err error
	var v int64
	for _, f := range fields {
		if v, i, err = readVarint(data, i); err != nil {
			return e, i, err
		}
		*f = int(v)
	}
	var catch GlobalRef
	if catch, i, err = readGlobalRef(data, i, pool); err != nil {
		return e, i, err
	}
	e.CatchType = catch.Name
	if !(e.TryStart <= e.TryEnd && e.TryEnd <= e.HandlerStart && e.HandlerStart <= e.HandlerEnd) {
		return e, i, fmt.Errorf("exception bounds out of order at offset %d", i)
	}
	return e, i, nil
}

func readClass(data []byte, i int, pool *ConstantPool) (*Class, int, error) {
	c := &Class{}
	var err error
	if c.Name, i, err = readPoolString(data, i, pool, "class name"); err != nil {
		return nil, i, err
	}
	if c.Space, i, err = readPoolString(data, i, pool, "class namespace"); err != nil {
		return nil, i, err
	}
	var v int64
	if v, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	c.Attrs = uint32(v)
	if v, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	c.Slot = int(v)
	var base GlobalRef
	if base, i, err = readGlobalRef(data, i, pool); err != nil {
		return nil, i, err
	}
	c.Base = base.Name
	var numInterfaces int64
	if numInterfaces, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	for k := int64(0); k < numInterfaces; k++ {
		var in string
		if in, i, err = readPoolString(data, i, pool, "interface"); err != nil {
			return nil, i, err
		}
		c.Interfaces = append(c.Interfaces, in)
	}
	var numStatic, numInstance int64
	if numStatic, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}
	if numInstance, i, err = readVarint(data, i); err != nil {
		return nil, i, err
	}

	readProps := func(n int64) ([]Property, error) {
		var props []Property
		for k := int64(0); k < n; k++ {
			if i >= len(data) || data[i] != SectionProperty {
				return nil, fmt.Errorf("class %s: missing Property section", c.Name)
			}
			i++
			var p Property
			if p, i, err = readProperty(data, i, pool); err != nil {
				return nil, err
			}
			props = append(props, p)
		}
		return props, nil
	}
	if c.StaticProps, err = readProps(numStatic); err != nil {
		return nil, i, err
	}
	if c.InstanceProps, err = readProps(numInstance); err != nil {
		return nil, i, err
	}

	for {
		if i >= len(data) {
			return nil, i, fmt.Errorf("class %s: missing ClassEnd", c.Name)
		}
		tag := data[i]
		i++
		switch tag {
		case SectionClassEnd:
			return c, i, nil
		case SectionFunction:
			var fn *Function
			if fn, i, err = readFunction(data, i, pool); err != nil {
				return nil, i, err
			}
			if fn.Attrs&AttrConstructor != 0 {
				fn.Attrs &^= AttrConstructor
				c.Constructor = fn
			} else {
				c.Methods = append(c.Methods, fn)
			}
		case SectionDoc:
			if c.Doc, i, err = readDocText(data, i, pool); err != nil {
				return nil, i, err
			}
		default:
			return nil, i, fmt.Errorf("class %s: unexpected tag %d", c.Name, tag)
		}
	}
}

// readProperty parses a property section body (its tag already
// consumed), including its flag-prefixed optional doc.
func readProperty(data []byte, i int, pool *ConstantPool) (Property, int, error) {
	var p Property
	var err error
	if p.Name, i, err = readPoolString(data, i, pool, "property name"); err != nil {
		return p, i, err
	}
	if p.Space, i, err = readPoolString(data, i, pool, "property namespace"); err != nil {
		return p, i, err
	}
	var v int64
	if v, i, err = readVarint(data, i); err != nil {
		return p, i, err
	}
	p.Attrs = uint32(v)
	if v, i, err = readVarint(data, i); err != nil {
		return p, i, err
	}
	p.Slot = int(v)
	var typ GlobalRef
	if typ, i, err = readGlobalRef(data, i, pool); err != nil {
		return p, i, err
	}
	p.Type = typ.Name
	var hasDoc int64
	if hasDoc, i, err = readVarint(data, i); err != nil {
		return p, i, err
	}
	if hasDoc != 0 {
		if p.Doc, i, err = readDocText(data, i, pool); err != nil {
			return p, i, err
		}
	}
	return p, i, nil
}

func readDocText(data []byte, i int, pool *ConstantPool) (string, int, error) {
	return readPoolString(data, i, pool, "doc")
}
