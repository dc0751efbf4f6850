// Package module serializes compiled modules to the binary .mod format:
// a header, a per-module constant pool, and nested class/function/
// property/exception sections with a running checksum.
package module

import (
	"golang.org/x/text/unicode/norm"
)

// PoolBufSize is the chunk granularity the pool grows by.
const PoolBufSize = 512

// ConstantPool is the per-module string region: zero-terminated strings
// concatenated bytewise, offset 0 reserved to mean "no string" (the
// region's first byte is '\0'). It satisfies codegen.NamePool so the
// Generator emits real pool offsets as name operands.
type ConstantPool struct {
	data    []byte
	offsets map[string]int
	locked  bool

	// LockViolation records that an Intern arrived after Lock — a fatal
	// condition the writer surfaces.
	LockViolation bool
}

// NewConstantPool creates a pool holding only the reserved empty string.
func NewConstantPool() *ConstantPool {
	p := &ConstantPool{
		data:    make([]byte, 1, PoolBufSize),
		offsets: make(map[string]int),
	}
	p.offsets[""] = 0
	return p
}

// Intern adds s to the pool (NFC-normalized, so namespace URIs written
// with precomposed and decomposed code points share one entry) and
// returns its byte offset. Interning after Lock trips LockViolation and
// returns 0; the writer reports it as a fatal diagnostic.
func (p *ConstantPool) Intern(s string) int {
	s = norm.NFC.String(s)
	if off, ok := p.offsets[s]; ok {
		return off
	}
	if p.locked {
		p.LockViolation = true
		return 0
	}
	off := len(p.data)
	if need := off + len(s) + 1; cap(p.data) < need {
		grown := make([]byte, off, (need/PoolBufSize+1)*PoolBufSize)
		copy(grown, p.data)
		p.data = grown
	}
	p.data = append(p.data, s...)
	p.data = append(p.data, 0)
	p.offsets[s] = off
	return off
}

// Lookup returns s's offset without interning, or -1 if absent.
func (p *ConstantPool) Lookup(s string) int {
	if off, ok := p.offsets[norm.NFC.String(s)]; ok {
		return off
	}
	return -1
}

// StringAt returns the zero-terminated string starting at offset, and
// whether the offset lands on a valid string start or interior byte run.
func (p *ConstantPool) StringAt(offset int) (string, bool) {
	if offset < 0 || offset >= len(p.data) {
		return "", false
	}
	end := offset
	for end < len(p.data) && p.data[end] != 0 {
		end++
	}
	if end == len(p.data) {
		return "", false
	}
	return string(p.data[offset:end]), true
}

// Lock freezes the pool ahead of writing its bytes.
func (p *ConstantPool) Lock() { p.locked = true }

// Locked reports whether Lock has been called.
func (p *ConstantPool) Locked() bool { return p.locked }

// Bytes returns the raw pool region.
func (p *ConstantPool) Bytes() []byte { return p.data }

// Len returns the pool's byte length.
func (p *ConstantPool) Len() int { return len(p.data) }

// PoolFromBytes wraps an already-serialized pool region (from Reader)
// for StringAt access. The pool arrives locked.
func PoolFromBytes(data []byte) *ConstantPool {
	p := &ConstantPool{data: data, offsets: make(map[string]int), locked: true}
	for i := 0; i < len(data); {
		end := i
		for end < len(data) && data[end] != 0 {
			end++
		}
		if end >= len(data) {
			break
		}
		s := string(data[i:end])
		if _, ok := p.offsets[s]; !ok {
			p.offsets[s] = i
		}
		i = end + 1
	}
	return p
}
