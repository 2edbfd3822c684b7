package host

import (
	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/store"
)

// ReadBytes returns a bounds-checked, copied slice of mem starting at
// offset with the given length.
func ReadBytes(mem *store.MemoryInstance, offset, length uint32) ([]byte, error) {
	if !mem.Bounds(uint64(offset), uint64(length)) {
		return nil, api.NewError(api.KindAccessForbidMemory, "read out of bounds")
	}
	out := make([]byte, length)
	copy(out, mem.Data[offset:offset+length])
	return out, nil
}

// WriteBytes bounds-checks and copies data into mem starting at offset.
func WriteBytes(mem *store.MemoryInstance, offset uint32, data []byte) error {
	if !mem.Bounds(uint64(offset), uint64(len(data))) {
		return api.NewError(api.KindAccessForbidMemory, "write out of bounds")
	}
	copy(mem.Data[offset:offset+uint32(len(data))], data)
	return nil
}

// reverse returns a newly allocated byte-reversed copy of b, used to
// bridge Wasm's little-endian linear memory to a big-endian wire format
// (e.g. EEI's 256-bit values).
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// ReadBytesBigEndian reads length bytes at offset and reverses them,
// interpreting Wasm's little-endian-oriented linear memory as a big-endian
// wire value.
func ReadBytesBigEndian(mem *store.MemoryInstance, offset, length uint32) ([]byte, error) {
	b, err := ReadBytes(mem, offset, length)
	if err != nil {
		return nil, err
	}
	return reverse(b), nil
}

// WriteBytesBigEndian reverses data before writing it, the inverse of
// ReadBytesBigEndian.
func WriteBytesBigEndian(mem *store.MemoryInstance, offset uint32, data []byte) error {
	return WriteBytes(mem, offset, reverse(data))
}

// ReplacePage bulk-replaces the contents of one page.
func ReplacePage(mem *store.MemoryInstance, pageIndex uint32, data []byte) error {
	if len(data) != store.PageSize {
		return api.NewError(api.KindAccessForbidMemory, "page replacement data must be exactly one page")
	}
	offset := uint64(pageIndex) * store.PageSize
	if offset+store.PageSize > uint64(len(mem.Data)) {
		return api.NewError(api.KindAccessForbidMemory, "page index out of bounds")
	}
	copy(mem.Data[offset:offset+store.PageSize], data)
	return nil
}

// ReplaceAll bulk-replaces the entire memory contents; len(data) must equal
// the current byte length (page count is unaffected).
func ReplaceAll(mem *store.MemoryInstance, data []byte) error {
	if len(data) != len(mem.Data) {
		return api.NewError(api.KindAccessForbidMemory, "replacement data size must match memory size")
	}
	copy(mem.Data, data)
	return nil
}
