package blockdev

// Mem is a Device backed by memory.
type Mem struct {
	geo  Geometry
	data []byte
}

// NewMem creates an erased memory device.
func NewMem(geo Geometry) (*Mem, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	m := &Mem{geo: geo, data: make([]byte, geo.Size)}
	fill(m.data, Erased)
	return m, nil
}

// Bytes exposes the device content.
func (m *Mem) Bytes() []byte {
	return m.data
}

// Init implements Device.
func (m *Mem) Init() error { return nil }

// Deinit implements Device.
func (m *Mem) Deinit() error { return nil }

// Sync implements Device.
func (m *Mem) Sync() error { return nil }

// Read implements Device.
func (m *Mem) Read(buf []byte, addr uint64) error {
	if err := CheckRange(addr, uint64(len(buf)), m.geo.ReadSize, m.geo.Size); err != nil {
		return err
	}
	copy(buf, m.data[addr:])
	return nil
}

// Program implements Device.
func (m *Mem) Program(buf []byte, addr uint64) error {
	if err := CheckRange(addr, uint64(len(buf)), m.geo.ProgramSize, m.geo.Size); err != nil {
		return err
	}
	for i, b := range buf {
		m.data[addr+uint64(i)] &= b
	}
	return nil
}

// Erase implements Device.
func (m *Mem) Erase(addr, size uint64) error {
	if err := CheckRange(addr, size, m.geo.EraseSize, m.geo.Size); err != nil {
		return err
	}
	fill(m.data[addr:addr+size], Erased)
	return nil
}

// ReadSize implements Device.
func (m *Mem) ReadSize() uint64 { return m.geo.ReadSize }

// ProgramSize implements Device.
func (m *Mem) ProgramSize() uint64 { return m.geo.ProgramSize }

// EraseSize implements Device.
func (m *Mem) EraseSize() uint64 { return m.geo.EraseSize }

// Size implements Device.
func (m *Mem) Size() uint64 { return m.geo.Size }
