package emu

import (
	"encoding/binary"
	"fmt"
)

// Default memory map.
const (
	TextBegin  uint32 = 0x00400000
	TextEnd    uint32 = 0x004FFFFF
	DataBegin  uint32 = 0x10000000
	DataEnd    uint32 = 0x100FFFFF
	StackBegin uint32 = 0x7FF00000
	StackEnd   uint32 = 0x7FFFFFFF
	KTextBegin uint32 = 0x80000000
	KTextEnd   uint32 = 0x800FFFFF
	KDataBegin uint32 = 0x90000000
	KDataEnd   uint32 = 0x900FFFFF
)

// RegionSpec describes a memory region without its backing storage.
type RegionSpec struct {
	Name  string `json:"name"`
	Begin uint32 `json:"begin"`
	End   uint32 `json:"end"` // inclusive
}

// Size returns the number of bytes covered by the region.
func (s RegionSpec) Size() uint64 {
	return uint64(s.End) - uint64(s.Begin) + 1
}

// DefaultLayout returns the default memory regions, ordered by address.
func DefaultLayout() []RegionSpec {
	return []RegionSpec{
		{Name: "text", Begin: TextBegin, End: TextEnd},
		{Name: "data", Begin: DataBegin, End: DataEnd},
		{Name: "stack", Begin: StackBegin, End: StackEnd},
		{Name: "ktext", Begin: KTextBegin, End: KTextEnd},
		{Name: "kdata", Begin: KDataBegin, End: KDataEnd},
	}
}

// Region is a contiguous, byte-addressable block of memory.
type Region struct {
	RegionSpec
	mem []byte
}

// contains reports whether [addr, addr+size) lies inside the region.
func (r *Region) contains(addr uint32, size uint32) bool {
	last := uint64(addr) + uint64(size) - 1
	return addr >= r.Begin && last <= uint64(r.End)
}

// Memory is the simulated memory: a fixed set of non-overlapping regions.
//
// Accesses that fall outside every region, straddle a region boundary, or
// are misaligned read as 0 and drop writes. Callers cannot tell an invalid
// address from one that holds zero.
type Memory struct {
	regions []*Region
}

// NewMemory creates a memory with the default layout.
func NewMemory() *Memory {
	m, err := NewMemoryWithLayout(DefaultLayout())
	if err != nil {
		panic(err)
	}
	return m
}

// NewMemoryWithLayout creates a memory with the given regions. The regions
// must be ordered by address and must not overlap.
func NewMemoryWithLayout(layout []RegionSpec) (*Memory, error) {
	m := &Memory{}

	for i, spec := range layout {
		if spec.End < spec.Begin {
			return nil, fmt.Errorf("region %s: end 0x%08x before begin 0x%08x",
				spec.Name, spec.End, spec.Begin)
		}
		if i > 0 && spec.Begin <= layout[i-1].End {
			return nil, fmt.Errorf("region %s overlaps or precedes region %s",
				spec.Name, layout[i-1].Name)
		}

		m.regions = append(m.regions, &Region{
			RegionSpec: spec,
			mem:        make([]byte, spec.Size()),
		})
	}

	return m, nil
}

// Regions returns the region descriptions, ordered by address.
func (m *Memory) Regions() []RegionSpec {
	specs := make([]RegionSpec, len(m.regions))
	for i, r := range m.regions {
		specs[i] = r.RegionSpec
	}
	return specs
}

// Region returns the description of the named region.
func (m *Memory) Region(name string) (RegionSpec, bool) {
	for _, r := range m.regions {
		if r.Name == name {
			return r.RegionSpec, true
		}
	}
	return RegionSpec{}, false
}

// Reset zeroes the contents of every region.
func (m *Memory) Reset() {
	for _, r := range m.regions {
		clear(r.mem)
	}
}

// slice returns the backing bytes for an aligned access of the given size,
// or nil if the access is invalid.
func (m *Memory) slice(addr uint32, size uint32) []byte {
	if addr%size != 0 {
		return nil
	}

	for _, r := range m.regions {
		if r.contains(addr, size) {
			off := addr - r.Begin
			return r.mem[off : off+size]
		}
	}

	return nil
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) uint8 {
	b := m.slice(addr, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	if b := m.slice(addr, 1); b != nil {
		b[0] = value
	}
}

// Read16 reads a little-endian half-word.
func (m *Memory) Read16(addr uint32) uint16 {
	b := m.slice(addr, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Write16 writes a little-endian half-word.
func (m *Memory) Write16(addr uint32, value uint16) {
	if b := m.slice(addr, 2); b != nil {
		binary.LittleEndian.PutUint16(b, value)
	}
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) uint32 {
	b := m.slice(addr, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	if b := m.slice(addr, 4); b != nil {
		binary.LittleEndian.PutUint32(b, value)
	}
}

// LoadWords writes consecutive words starting at base.
func (m *Memory) LoadWords(base uint32, words []uint32) {
	for i, w := range words {
		m.Write32(base+uint32(i)*4, w)
	}
}
