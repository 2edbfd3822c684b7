// Package wasi implements a WASI preview-1 subset: the part of the ABI a
// minimal, non-sandboxed CLI guest actually exercises (console I/O,
// argv/environ, and process exit), built on internal/host's memory-access
// helpers.
package wasi

import (
	"io"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/host"
	"github.com/wazero-vm/core/internal/store"
)

// Errno is the WASI preview-1 error code returned in a function's i32
// result slot; it is never a Go error since a well-behaved guest inspects
// it and continues.
type Errno uint32

const (
	ErrnoSuccess Errno = 0
	ErrnoBadf    Errno = 8
	ErrnoInval   Errno = 28
	ErrnoNotsup  Errno = 58
)

// ModuleName is the import module name every WASI-targeting guest expects.
const ModuleName = "wasi_snapshot_preview1"

// Module bundles the runtime state (args, environment, and standard
// streams) behind a wasi_snapshot_preview1 import object.
type Module struct {
	args   []string
	env    []string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	exitCode *int
}

// Option configures a Module at construction time.
type Option func(*Module)

func WithArgs(args ...string) Option   { return func(m *Module) { m.args = args } }
func WithEnviron(env ...string) Option { return func(m *Module) { m.env = env } }
func WithStdin(r io.Reader) Option     { return func(m *Module) { m.stdin = r } }
func WithStdout(w io.Writer) Option    { return func(m *Module) { m.stdout = w } }
func WithStderr(w io.Writer) Option    { return func(m *Module) { m.stderr = w } }

// New builds a WASI module with the given options; its AsHostModule
// returns the host.Module ready for vm.RegisterHostModule.
func New(opts ...Option) *Module {
	m := &Module{stdin: io.LimitReader(nil, 0)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExitCode reports the code passed to proc_exit, if the guest called it.
func (m *Module) ExitCode() (code int, exited bool) {
	if m.exitCode == nil {
		return 0, false
	}
	return *m.exitCode, true
}

func i32(ops store.OperandAccess) (uint32, error) {
	v, err := ops.Pop()
	if err != nil {
		return 0, err
	}
	return v.I32(), nil
}

// popN pops n i32 arguments and returns them in call order (arg0 first).
func popN(ops store.OperandAccess, n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := n - 1; i >= 0; i-- {
		v, err := i32(ops)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func result(ops store.OperandAccess, errno Errno) store.HostStatus {
	ops.Push(api.I32(uint32(errno)))
	return store.HostSuccess()
}

// sizesGet writes {count, bufSize} to the two output pointers, the shared
// shape of args_sizes_get and environ_sizes_get.
func sizesGet(mem *store.MemoryInstance, countPtr, bufSizePtr uint32, items []string) error {
	total := 0
	for _, s := range items {
		total += len(s) + 1
	}
	if err := host.WriteBytes(mem, countPtr, encodeU32(uint32(len(items)))); err != nil {
		return err
	}
	return host.WriteBytes(mem, bufSizePtr, encodeU32(uint32(total)))
}

// stringsGet writes a NUL-terminated packing of items into buf, and the
// resulting pointer to each entry into the ptrs array, the shared shape of
// args_get and environ_get.
func stringsGet(mem *store.MemoryInstance, ptrsPtr, bufPtr uint32, items []string) error {
	cursor := bufPtr
	for i, s := range items {
		if err := host.WriteBytes(mem, ptrsPtr+uint32(i*4), encodeU32(cursor)); err != nil {
			return err
		}
		packed := append([]byte(s), 0)
		if err := host.WriteBytes(mem, cursor, packed); err != nil {
			return err
		}
		cursor += uint32(len(packed))
	}
	return nil
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// iovec is a single {ptr, len} pair as laid out by the WASI ABI.
type iovec struct {
	ptr uint32
	len uint32
}

func readIovecs(mem *store.MemoryInstance, iovsPtr, iovsLen uint32) ([]iovec, error) {
	out := make([]iovec, iovsLen)
	for i := range out {
		raw, err := host.ReadBytes(mem, iovsPtr+uint32(i*8), 8)
		if err != nil {
			return nil, err
		}
		out[i] = iovec{
			ptr: uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24,
			len: uint32(raw[4]) | uint32(raw[5])<<8 | uint32(raw[6])<<16 | uint32(raw[7])<<24,
		}
	}
	return out, nil
}

// AsHostModule builds the host.Module of function bindings a VM registers
// as the "wasi_snapshot_preview1" import provider. Cost is a flat per-call
// charge; WASI calls are I/O bound rather than compute bound, matching the
// WASI cost table's lighter treatment of calls.
func (m *Module) AsHostModule() *host.Module {
	hm := host.NewModule(ModuleName)
	i32t := api.ValueTypeI32

	hm.Register("proc_exit", &api.FunctionType{Params: []api.ValueType{i32t}},
		1, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			code, err := i32(ops)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			c := int(int32(code))
			m.exitCode = &c
			return store.HostStatus{Kind: api.KindTerminated}
		})

	hm.Register("args_sizes_get", &api.FunctionType{Params: []api.ValueType{i32t, i32t}, Results: []api.ValueType{i32t}},
		2, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popN(ops, 2)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			if err := sizesGet(mem, args[0], args[1], m.args); err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			return result(ops, ErrnoSuccess)
		})

	hm.Register("args_get", &api.FunctionType{Params: []api.ValueType{i32t, i32t}, Results: []api.ValueType{i32t}},
		2, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popN(ops, 2)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			if err := stringsGet(mem, args[0], args[1], m.args); err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			return result(ops, ErrnoSuccess)
		})

	hm.Register("environ_sizes_get", &api.FunctionType{Params: []api.ValueType{i32t, i32t}, Results: []api.ValueType{i32t}},
		2, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popN(ops, 2)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			if err := sizesGet(mem, args[0], args[1], m.env); err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			return result(ops, ErrnoSuccess)
		})

	hm.Register("environ_get", &api.FunctionType{Params: []api.ValueType{i32t, i32t}, Results: []api.ValueType{i32t}},
		2, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popN(ops, 2)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			if err := stringsGet(mem, args[0], args[1], m.env); err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			return result(ops, ErrnoSuccess)
		})

	hm.Register("fd_write", &api.FunctionType{Params: []api.ValueType{i32t, i32t, i32t, i32t}, Results: []api.ValueType{i32t}},
		3, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popN(ops, 4)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			fd, iovsPtr, iovsLen, nwrittenPtr := args[0], args[1], args[2], args[3]
			w := m.writerFor(fd)
			if w == nil {
				return result(ops, ErrnoBadf)
			}
			iovs, err := readIovecs(mem, iovsPtr, iovsLen)
			if err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			var total uint32
			for _, iov := range iovs {
				buf, err := host.ReadBytes(mem, iov.ptr, iov.len)
				if err != nil {
					return store.HostFailure(api.KindAccessForbidMemory, err)
				}
				n, err := w.Write(buf)
				if err != nil {
					return result(ops, ErrnoInval)
				}
				total += uint32(n)
			}
			if err := host.WriteBytes(mem, nwrittenPtr, encodeU32(total)); err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			return result(ops, ErrnoSuccess)
		})

	hm.Register("fd_read", &api.FunctionType{Params: []api.ValueType{i32t, i32t, i32t, i32t}, Results: []api.ValueType{i32t}},
		3, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popN(ops, 4)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			fd, iovsPtr, iovsLen, nreadPtr := args[0], args[1], args[2], args[3]
			if fd != 0 {
				return result(ops, ErrnoBadf)
			}
			iovs, err := readIovecs(mem, iovsPtr, iovsLen)
			if err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			var total uint32
			for _, iov := range iovs {
				buf := make([]byte, iov.len)
				n, rerr := m.stdin.Read(buf)
				if n > 0 {
					if err := host.WriteBytes(mem, iov.ptr, buf[:n]); err != nil {
						return store.HostFailure(api.KindAccessForbidMemory, err)
					}
					total += uint32(n)
				}
				if rerr != nil {
					break
				}
			}
			if err := host.WriteBytes(mem, nreadPtr, encodeU32(total)); err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			return result(ops, ErrnoSuccess)
		})

	return hm
}

func (m *Module) writerFor(fd uint32) io.Writer {
	switch fd {
	case 1:
		return m.stdout
	case 2:
		return m.stderr
	default:
		return nil
	}
}
