package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrPeerClosed is returned by ReadPacket when the peer closed the
// connection, either at a packet boundary (before any byte of a new packet
// was read) or partway through a packet. Any other I/O error is returned
// unwrapped and must be treated the same way by callers (both mean "the
// client is gone").
var ErrPeerClosed = errors.New("wire: peer closed connection")

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrPeerClosed
		}
		return err
	}
	return nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return writeFull(w, buf[:])
}

// writeFull guarantees the entire buffer is written or an error is
// returned; a plain net.Conn.Write already blocks until done or error for
// stream sockets, but looping here costs nothing and protects against any
// io.Writer that might return a short write (e.g. in tests).
func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if err := readFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeUint64(w, uint64(len(b))); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return writeFull(w, b)
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func readCompressedBytes(r io.Reader) (data []byte, compressed bool, err error) {
	var flag [1]byte
	if err = readFull(r, flag[:]); err != nil {
		return nil, false, err
	}
	data, err = readBytes(r)
	if err != nil {
		return nil, false, err
	}
	return data, flag[0] != 0, nil
}

func writeCompressedBytes(w io.Writer, data []byte, compressed bool) error {
	var flag [1]byte
	if compressed {
		flag[0] = 1
	}
	if err := writeFull(w, flag[:]); err != nil {
		return err
	}
	return writeBytes(w, data)
}

// ReadPacket reads exactly one packet from r. If the peer closed the
// connection before or during the packet, ErrPeerClosed is returned; other
// read errors are returned as they are, and an unknown opcode yields an
// error. A half-read packet is never returned to the caller.
func ReadPacket(r io.Reader) (*Packet, error) {
	var opByte [1]byte
	if err := readFull(r, opByte[:]); err != nil {
		return nil, err
	}

	p := &Packet{Op: Op(opByte[0])}

	switch p.Op {
	case OpComp, OpAck, OpCloseConn:
		// no further fields

	case OpError:
		var b [1]byte
		if err := readFull(r, b[:]); err != nil {
			return nil, err
		}
		p.ErrCode = ErrCode(b[0])

	case OpData:
		data, compressed, err := readCompressedBytes(r)
		if err != nil {
			return nil, err
		}
		p.Data, p.Compressed = data, compressed

	case OpFileP:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		data, compressed, err := readCompressedBytes(r)
		if err != nil {
			return nil, err
		}
		p.Name, p.Data, p.Compressed = name, data, compressed

	case OpFileSequence:
		count, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		p.Count = count

	case OpOpenFile:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		var flags [1]byte
		if err := readFull(r, flags[:]); err != nil {
			return nil, err
		}
		p.Name, p.Flags = name, flags[0]

	case OpCloseFile, OpReadFile, OpLockFile, OpUnlockFile, OpRemoveFile:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		p.Name = name

	case OpWriteFile, OpAppendFile:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		data, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		p.Name, p.Data = name, data

	case OpReadNFiles:
		count, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		p.Count = count

	default:
		return nil, fmt.Errorf("wire: unknown opcode %d", opByte[0])
	}

	return p, nil
}

// WritePacket writes p to w in full, per its opcode's layout.
func WritePacket(w io.Writer, p *Packet) error {
	if err := writeFull(w, []byte{byte(p.Op)}); err != nil {
		return err
	}

	switch p.Op {
	case OpComp, OpAck, OpCloseConn:
		return nil

	case OpError:
		return writeFull(w, []byte{byte(p.ErrCode)})

	case OpData:
		return writeCompressedBytes(w, p.Data, p.Compressed)

	case OpFileP:
		if err := writeString(w, p.Name); err != nil {
			return err
		}
		return writeCompressedBytes(w, p.Data, p.Compressed)

	case OpFileSequence:
		return writeUint64(w, p.Count)

	case OpOpenFile:
		if err := writeString(w, p.Name); err != nil {
			return err
		}
		return writeFull(w, []byte{p.Flags})

	case OpCloseFile, OpReadFile, OpLockFile, OpUnlockFile, OpRemoveFile:
		return writeString(w, p.Name)

	case OpWriteFile, OpAppendFile:
		if err := writeString(w, p.Name); err != nil {
			return err
		}
		return writeBytes(w, p.Data)

	case OpReadNFiles:
		return writeUint64(w, p.Count)

	default:
		return fmt.Errorf("wire: unknown opcode %d", p.Op)
	}
}
