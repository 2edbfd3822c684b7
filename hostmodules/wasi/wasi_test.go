package wasi_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/hostmodules/wasi"
	"github.com/wazero-vm/core/internal/stack"
	"github.com/wazero-vm/core/internal/store"
)

func TestArgsSizesGetAndArgsGet(t *testing.T) {
	m := wasi.New(wasi.WithArgs("a", "bc"))
	hm := m.AsHostModule()
	mem := store.NewMemoryInstance(1, nil)

	sizesGet, ok := hm.Lookup("args_sizes_get")
	require.True(t, ok)
	sk := stack.New()
	sk.Push(api.I32(0))  // countPtr
	sk.Push(api.I32(16)) // bufSizePtr
	status := sizesGet.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	errno, err := sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(wasi.ErrnoSuccess), errno.I32())

	count, err := readLE32(mem, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)
	bufSize, err := readLE32(mem, 16)
	require.NoError(t, err)
	assert.Equal(t, uint32(len("a\x00")+len("bc\x00")), bufSize)

	argsGet, ok := hm.Lookup("args_get")
	require.True(t, ok)
	sk.Push(api.I32(32)) // ptrsPtr
	sk.Push(api.I32(64)) // bufPtr
	status = argsGet.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	errno, err = sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(wasi.ErrnoSuccess), errno.I32())

	firstPtr, err := readLE32(mem, 32)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), firstPtr)
	assert.Equal(t, byte('a'), mem.Data[64])
	assert.Equal(t, byte(0), mem.Data[65])
}

func TestFdWriteWritesToStdout(t *testing.T) {
	var out bytes.Buffer
	m := wasi.New(wasi.WithStdout(&out))
	hm := m.AsHostModule()
	mem := store.NewMemoryInstance(1, nil)

	copy(mem.Data[100:], "hi")
	require.NoError(t, putLE32(mem, 0, 100))
	require.NoError(t, putLE32(mem, 4, 2))

	fdWrite, ok := hm.Lookup("fd_write")
	require.True(t, ok)
	sk := stack.New()
	sk.Push(api.I32(1))  // fd = stdout
	sk.Push(api.I32(0))  // iovsPtr
	sk.Push(api.I32(1))  // iovsLen
	sk.Push(api.I32(20)) // nwrittenPtr
	status := fdWrite.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	errno, err := sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(wasi.ErrnoSuccess), errno.I32())
	assert.Equal(t, "hi", out.String())

	written, err := readLE32(mem, 20)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), written)
}

func TestFdWriteToUnknownFdReturnsBadf(t *testing.T) {
	m := wasi.New()
	hm := m.AsHostModule()
	mem := store.NewMemoryInstance(1, nil)
	fdWrite, _ := hm.Lookup("fd_write")

	sk := stack.New()
	sk.Push(api.I32(5)) // unknown fd
	sk.Push(api.I32(0))
	sk.Push(api.I32(0))
	sk.Push(api.I32(0))
	status := fdWrite.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	errno, err := sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(wasi.ErrnoBadf), errno.I32())
}

func TestFdReadFromStdin(t *testing.T) {
	m := wasi.New(wasi.WithStdin(strings.NewReader("yo")))
	hm := m.AsHostModule()
	mem := store.NewMemoryInstance(1, nil)

	require.NoError(t, putLE32(mem, 0, 100)) // iovec ptr
	require.NoError(t, putLE32(mem, 4, 8))    // iovec len

	fdRead, ok := hm.Lookup("fd_read")
	require.True(t, ok)
	sk := stack.New()
	sk.Push(api.I32(0))  // fd = stdin
	sk.Push(api.I32(0))  // iovsPtr
	sk.Push(api.I32(1))  // iovsLen
	sk.Push(api.I32(20)) // nreadPtr
	status := fdRead.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	errno, err := sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(wasi.ErrnoSuccess), errno.I32())
	assert.Equal(t, "yo", string(mem.Data[100:102]))
}

func TestProcExitSetsExitCodeAndTerminates(t *testing.T) {
	m := wasi.New()
	hm := m.AsHostModule()
	mem := store.NewMemoryInstance(1, nil)
	procExit, _ := hm.Lookup("proc_exit")

	sk := stack.New()
	sk.Push(api.I32(7))
	status := procExit.AsCallable().Invoke(sk, mem)
	assert.Equal(t, api.KindTerminated, status.Kind)

	code, exited := m.ExitCode()
	assert.True(t, exited)
	assert.Equal(t, 7, code)
}

func readLE32(mem *store.MemoryInstance, offset uint32) (uint32, error) {
	b := mem.Data[offset : offset+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func putLE32(mem *store.MemoryInstance, offset, v uint32) error {
	b := mem.Data[offset : offset+4]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return nil
}
