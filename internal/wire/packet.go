package wire

// Packet is the in-memory representation of one wire packet. Not every
// field is meaningful for every Op; see the per-opcode layouts in
// SPEC_FULL.md §6. This mirrors the original protocol's single
// `struct packet` with op-dependent fields, generalized into named Go
// fields instead of a C union.
type Packet struct {
	Op Op

	// ERROR
	ErrCode ErrCode

	// OPEN_FILE, CLOSE_FILE, WRITE_FILE, READ_FILE, APPEND_FILE, LOCK_FILE,
	// UNLOCK_FILE, REMOVE_FILE, FILE_P
	Name string

	// OPEN_FILE
	Flags byte

	// DATA, FILE_P, WRITE_FILE, APPEND_FILE
	Data []byte

	// DATA, FILE_P: whether Data is RLE-encoded on the wire
	Compressed bool

	// READ_N_FILES, FILE_SEQUENCE
	Count uint64
}

// HasFlag reports whether the OPEN_FILE flags byte has flag set.
func (p *Packet) HasFlag(flag byte) bool {
	return p.Flags&flag != 0
}

func Comp() *Packet                   { return &Packet{Op: OpComp} }
func Ack() *Packet                    { return &Packet{Op: OpAck} }
func CloseConn() *Packet              { return &Packet{Op: OpCloseConn} }
func Error(code ErrCode) *Packet      { return &Packet{Op: OpError, ErrCode: code} }
func Data(b []byte) *Packet           { return &Packet{Op: OpData, Data: b} }
func FileP(name string, b []byte) *Packet {
	return &Packet{Op: OpFileP, Name: name, Data: b}
}
func FileSequence(count uint64) *Packet { return &Packet{Op: OpFileSequence, Count: count} }

func OpenFile(name string, flags byte) *Packet {
	return &Packet{Op: OpOpenFile, Name: name, Flags: flags}
}

func nameOnly(op Op, name string) *Packet { return &Packet{Op: op, Name: name} }

func CloseFile(name string) *Packet  { return nameOnly(OpCloseFile, name) }
func ReadFile(name string) *Packet   { return nameOnly(OpReadFile, name) }
func LockFile(name string) *Packet   { return nameOnly(OpLockFile, name) }
func UnlockFile(name string) *Packet { return nameOnly(OpUnlockFile, name) }
func RemoveFile(name string) *Packet { return nameOnly(OpRemoveFile, name) }

func WriteFile(name string, data []byte) *Packet {
	return &Packet{Op: OpWriteFile, Name: name, Data: data}
}

func AppendFile(name string, data []byte) *Packet {
	return &Packet{Op: OpAppendFile, Name: name, Data: data}
}

func ReadNFiles(count uint64) *Packet {
	return &Packet{Op: OpReadNFiles, Count: count}
}
