package sandbox

// Minimal WASM assembler for test fixtures. Section and body lengths
// are computed, so fixtures stay correct as they change.

const (
	secType   = 1
	secImport = 2
	secFunc   = 3
	secMemory = 5
	secExport = 7
	secCode   = 10
	secData   = 11

	valI32 = 0x7f

	kindFunc   = 0x00
	kindMemory = 0x02

	opUnreachable = 0x00
	opIf          = 0x04
	opEnd         = 0x0b
	opCall        = 0x10
	opLocalGet    = 0x20
	opI32Const    = 0x41
	opI32Eqz      = 0x45

	blockTypeEmpty = 0x40
)

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb128(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func wasmVec(items ...[]byte) []byte {
	out := uleb128(uint32(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func wasmSection(id byte, contents []byte) []byte {
	return cat([]byte{id}, uleb128(uint32(len(contents))), contents)
}

func wasmName(s string) []byte {
	return cat(uleb128(uint32(len(s))), []byte(s))
}

func funcType(params, results []byte) []byte {
	return cat([]byte{0x60},
		uleb128(uint32(len(params))), params,
		uleb128(uint32(len(results))), results)
}

func importFunc(module, name string, typeIndex uint32) []byte {
	return cat(wasmName(module), wasmName(name), []byte{kindFunc}, uleb128(typeIndex))
}

func exportEntry(name string, kind byte, index uint32) []byte {
	return cat(wasmName(name), []byte{kind}, uleb128(index))
}

// funcBody encodes a code entry with no locals; opEnd is appended.
func funcBody(instrs ...[]byte) []byte {
	body := cat(uleb128(0), cat(instrs...), []byte{opEnd})
	return cat(uleb128(uint32(len(body))), body)
}

// dataSegment encodes an active segment in memory 0 at a constant
// offset.
func dataSegment(offset int32, data []byte) []byte {
	return cat([]byte{0x00, opI32Const}, sleb128(offset), []byte{opEnd},
		uleb128(uint32(len(data))), data)
}

func i32Const(v int32) []byte  { return cat([]byte{opI32Const}, sleb128(v)) }
func callFunc(i uint32) []byte { return cat([]byte{opCall}, uleb128(i)) }
func localGet(i uint32) []byte { return cat([]byte{opLocalGet}, uleb128(i)) }

// memorySection declares one memory of one page.
func memorySection() []byte {
	return wasmSection(secMemory, wasmVec([]byte{0x00, 0x01}))
}

func wasmModule(sections ...[]byte) []byte {
	header := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	return cat(header, cat(sections...))
}

// loggingModule imports host.log and exports memory plus a dispatch
// that logs msg and returns the ordinal it was called with.
func loggingModule(msg string) []byte {
	logType := funcType([]byte{valI32, valI32}, nil)
	dispatchType := funcType([]byte{valI32}, []byte{valI32})
	return wasmModule(
		wasmSection(secType, wasmVec(logType, dispatchType)),
		wasmSection(secImport, wasmVec(importFunc("host", "log", 0))),
		wasmSection(secFunc, wasmVec(uleb128(1))),
		memorySection(),
		wasmSection(secExport, wasmVec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("dispatch", kindFunc, 1),
		)),
		wasmSection(secCode, wasmVec(funcBody(
			i32Const(8), i32Const(int32(len(msg))), callFunc(0),
			localGet(0),
		))),
		wasmSection(secData, wasmVec(dataSegment(8, []byte(msg)))),
	)
}

// initLoggingModule adds an init export that logs "ready"; dispatch
// echoes its ordinal without logging.
func initLoggingModule() []byte {
	logType := funcType([]byte{valI32, valI32}, nil)
	dispatchType := funcType([]byte{valI32}, []byte{valI32})
	initType := funcType(nil, nil)
	return wasmModule(
		wasmSection(secType, wasmVec(logType, dispatchType, initType)),
		wasmSection(secImport, wasmVec(importFunc("host", "log", 0))),
		wasmSection(secFunc, wasmVec(uleb128(1), uleb128(2))),
		memorySection(),
		wasmSection(secExport, wasmVec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("dispatch", kindFunc, 1),
			exportEntry("init", kindFunc, 2),
		)),
		wasmSection(secCode, wasmVec(
			funcBody(localGet(0)),
			funcBody(i32Const(8), i32Const(5), callFunc(0)),
		)),
		wasmSection(secData, wasmVec(dataSegment(8, []byte("ready")))),
	)
}

// trapInitModule exports an init that traps immediately.
func trapInitModule() []byte {
	dispatchType := funcType([]byte{valI32}, []byte{valI32})
	initType := funcType(nil, nil)
	return wasmModule(
		wasmSection(secType, wasmVec(dispatchType, initType)),
		wasmSection(secFunc, wasmVec(uleb128(0), uleb128(1))),
		memorySection(),
		wasmSection(secExport, wasmVec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("dispatch", kindFunc, 0),
			exportEntry("init", kindFunc, 1),
		)),
		wasmSection(secCode, wasmVec(
			funcBody(localGet(0)),
			funcBody([]byte{opUnreachable}),
		)),
	)
}

// badInitModule exports an init with a parameter, which the loader
// must reject at load time.
func badInitModule() []byte {
	dispatchType := funcType([]byte{valI32}, []byte{valI32})
	initType := funcType([]byte{valI32}, nil)
	return wasmModule(
		wasmSection(secType, wasmVec(dispatchType, initType)),
		wasmSection(secFunc, wasmVec(uleb128(0), uleb128(1))),
		memorySection(),
		wasmSection(secExport, wasmVec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("dispatch", kindFunc, 0),
			exportEntry("init", kindFunc, 1),
		)),
		wasmSection(secCode, wasmVec(
			funcBody(localGet(0)),
			funcBody(),
		)),
	)
}

// trapDispatchModule exports a dispatch that traps on every call.
func trapDispatchModule() []byte {
	dispatchType := funcType([]byte{valI32}, []byte{valI32})
	return wasmModule(
		wasmSection(secType, wasmVec(dispatchType)),
		wasmSection(secFunc, wasmVec(uleb128(0))),
		memorySection(),
		wasmSection(secExport, wasmVec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("dispatch", kindFunc, 0),
		)),
		wasmSection(secCode, wasmVec(funcBody([]byte{opUnreachable}))),
	)
}

// conditionalTrapModule traps for ordinal 0 and echoes any other
// ordinal, so a trapped command can be followed by a working one on
// the same instance.
func conditionalTrapModule() []byte {
	dispatchType := funcType([]byte{valI32}, []byte{valI32})
	return wasmModule(
		wasmSection(secType, wasmVec(dispatchType)),
		wasmSection(secFunc, wasmVec(uleb128(0))),
		memorySection(),
		wasmSection(secExport, wasmVec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("dispatch", kindFunc, 0),
		)),
		wasmSection(secCode, wasmVec(funcBody(
			localGet(0),
			[]byte{opI32Eqz},
			[]byte{opIf, blockTypeEmpty, opUnreachable, opEnd},
			localGet(0),
		))),
	)
}

// noMemoryModule exports dispatch but no memory.
func noMemoryModule() []byte {
	dispatchType := funcType([]byte{valI32}, []byte{valI32})
	return wasmModule(
		wasmSection(secType, wasmVec(dispatchType)),
		wasmSection(secFunc, wasmVec(uleb128(0))),
		wasmSection(secExport, wasmVec(exportEntry("dispatch", kindFunc, 0))),
		wasmSection(secCode, wasmVec(funcBody(localGet(0)))),
	)
}

// noDispatchModule exports memory but no dispatch.
func noDispatchModule() []byte {
	return wasmModule(
		memorySection(),
		wasmSection(secExport, wasmVec(exportEntry("memory", kindMemory, 0))),
	)
}

// wrongSignatureModule exports a dispatch taking no parameters.
func wrongSignatureModule() []byte {
	dispatchType := funcType(nil, nil)
	return wasmModule(
		wasmSection(secType, wasmVec(dispatchType)),
		wasmSection(secFunc, wasmVec(uleb128(0))),
		memorySection(),
		wasmSection(secExport, wasmVec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("dispatch", kindFunc, 0),
		)),
		wasmSection(secCode, wasmVec(funcBody())),
	)
}

// unknownImportModule imports a host function the engine never links,
// so it compiles but fails to instantiate.
func unknownImportModule() []byte {
	logType := funcType([]byte{valI32, valI32}, nil)
	dispatchType := funcType([]byte{valI32}, []byte{valI32})
	return wasmModule(
		wasmSection(secType, wasmVec(logType, dispatchType)),
		wasmSection(secImport, wasmVec(importFunc("host", "missing", 0))),
		wasmSection(secFunc, wasmVec(uleb128(1))),
		memorySection(),
		wasmSection(secExport, wasmVec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("dispatch", kindFunc, 1),
		)),
		wasmSection(secCode, wasmVec(funcBody(localGet(0)))),
	)
}
