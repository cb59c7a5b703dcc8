// Package wasmtest assembles minimal WebAssembly binaries for tests.
package wasmtest

import (
	"encoding/binary"
	"math"
	"sort"
)

// Empty is a valid module with no sections.
var Empty = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// ValType is a WebAssembly value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// Import is a function imported by a Module. Imported functions take the
// lowest function indices, in order.
type Import struct {
	Module, Name    string
	Params, Results []ValType
}

// Func is a function defined by a Module. Body is its code without the
// closing end opcode. A non-empty Export names it in the export section.
type Func struct {
	Export          string
	Params, Results []ValType
	Locals          []ValType
	Body            []byte
}

// Data is an active data segment at Offset of memory 0.
type Data struct {
	Offset uint32
	Bytes  []byte
}

// Module describes a module to assemble. With MemoryPages set it defines
// and exports one memory as "memory". Global 0 is a mutable i32 starting at
// Heap, which BumpAlloc uses as its heap pointer.
type Module struct {
	Imports     []Import
	Funcs       []Func
	MemoryPages uint32
	Heap        int32
	Data        []Data
}

// Bytes encodes m as a binary module.
func (m Module) Bytes() []byte {
	out := append([]byte(nil), Empty...)

	var types []byte
	for _, imp := range m.Imports {
		types = appendFuncType(types, imp.Params, imp.Results)
	}
	for _, fn := range m.Funcs {
		types = appendFuncType(types, fn.Params, fn.Results)
	}
	out = appendSection(out, 1, vec(len(m.Imports)+len(m.Funcs), types))

	if len(m.Imports) > 0 {
		var imps []byte
		for i, imp := range m.Imports {
			imps = appendName(imps, imp.Module)
			imps = appendName(imps, imp.Name)
			imps = append(imps, 0x00)
			imps = appendULEB(imps, uint64(i))
		}
		out = appendSection(out, 2, vec(len(m.Imports), imps))
	}

	var funcs []byte
	for i := range m.Funcs {
		funcs = appendULEB(funcs, uint64(len(m.Imports)+i))
	}
	out = appendSection(out, 3, vec(len(m.Funcs), funcs))

	if m.MemoryPages > 0 {
		out = appendSection(out, 5, vec(1, appendULEB([]byte{0x00}, uint64(m.MemoryPages))))
	}

	global := appendSLEB([]byte{byte(I32), 0x01, 0x41}, int64(m.Heap))
	out = appendSection(out, 6, vec(1, append(global, 0x0b)))

	var exps []byte
	n := 0
	for i, fn := range m.Funcs {
		if fn.Export == "" {
			continue
		}
		exps = appendName(exps, fn.Export)
		exps = append(exps, 0x00)
		exps = appendULEB(exps, uint64(len(m.Imports)+i))
		n++
	}
	if m.MemoryPages > 0 {
		exps = appendName(exps, "memory")
		exps = append(exps, 0x02, 0x00)
		n++
	}
	out = appendSection(out, 7, vec(n, exps))

	var bodies []byte
	for _, fn := range m.Funcs {
		body := appendULEB(nil, uint64(len(fn.Locals)))
		for _, l := range fn.Locals {
			body = append(body, 0x01, byte(l))
		}
		body = append(body, fn.Body...)
		body = append(body, 0x0b)
		bodies = appendULEB(bodies, uint64(len(body)))
		bodies = append(bodies, body...)
	}
	out = appendSection(out, 10, vec(len(m.Funcs), bodies))

	if len(m.Data) > 0 {
		var segs []byte
		for _, d := range m.Data {
			segs = appendSLEB(append(segs, 0x00, 0x41), int64(d.Offset))
			segs = append(segs, 0x0b)
			segs = appendULEB(segs, uint64(len(d.Bytes)))
			segs = append(segs, d.Bytes...)
		}
		out = appendSection(out, 11, vec(len(m.Data), segs))
	}

	return out
}

// ConstModule returns a module exporting one nullary function per entry of
// exports, each returning its constant as an i32.
func ConstModule(exports map[string]int32) []byte {
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)

	var m Module
	for _, name := range names {
		m.Funcs = append(m.Funcs, Func{
			Export:  name,
			Results: []ValType{I32},
			Body:    I32Const(exports[name]),
		})
	}

	return m.Bytes()
}

// BumpAlloc is an Alloc export handing out memory from global 0 without
// ever reclaiming it. Pair it with NopFree.
func BumpAlloc() Func {
	return Func{
		Export:  "Alloc",
		Params:  []ValType{I32},
		Results: []ValType{I32},
		Body:    Code(GlobalGet(0), GlobalGet(0), LocalGet(0), I32Add, GlobalSet(0)),
	}
}

// NopFree is a Free export that does nothing.
func NopFree() Func {
	return Func{Export: "Free", Params: []ValType{I32}}
}

// Instructions.
var (
	Drop   = []byte{0x1a}
	I32Add = []byte{0x6a}
	I32Ne  = []byte{0x47}
)

// Code concatenates instructions.
func Code(instrs ...[]byte) []byte {
	var out []byte
	for _, in := range instrs {
		out = append(out, in...)
	}

	return out
}

// LocalGet, GlobalGet, GlobalSet, Call and I32Const encode the instruction
// of the same name with its immediate.
func LocalGet(i uint32) []byte  { return appendULEB([]byte{0x20}, uint64(i)) }
func GlobalGet(i uint32) []byte { return appendULEB([]byte{0x23}, uint64(i)) }
func GlobalSet(i uint32) []byte { return appendULEB([]byte{0x24}, uint64(i)) }
func Call(fn uint32) []byte     { return appendULEB([]byte{0x10}, uint64(fn)) }
func I32Const(v int32) []byte   { return appendSLEB([]byte{0x41}, int64(v)) }

// F64Const pushes v.
func F64Const(v float64) []byte {
	return binary.LittleEndian.AppendUint64([]byte{0x44}, math.Float64bits(v))
}

// I32Load8U loads one byte from the address on the stack.
func I32Load8U() []byte { return []byte{0x2d, 0x00, 0x00} }

// I32Store8 stores the low byte of a value at the address below it.
func I32Store8() []byte { return []byte{0x3a, 0x00, 0x00} }

// F64Store stores an f64 at the address below it.
func F64Store() []byte { return []byte{0x39, 0x03, 0x00} }

func appendFuncType(out []byte, params, results []ValType) []byte {
	out = append(out, 0x60)
	out = appendULEB(out, uint64(len(params)))
	for _, p := range params {
		out = append(out, byte(p))
	}
	out = appendULEB(out, uint64(len(results)))
	for _, r := range results {
		out = append(out, byte(r))
	}

	return out
}

func vec(n int, items []byte) []byte {
	return append(appendULEB(nil, uint64(n)), items...)
}

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = appendULEB(out, uint64(len(payload)))

	return append(out, payload...)
}

func appendName(out []byte, name string) []byte {
	out = appendULEB(out, uint64(len(name)))
	return append(out, name...)
}

func appendULEB(out []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func appendSLEB(out []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
