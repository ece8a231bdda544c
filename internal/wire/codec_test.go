package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, p *Packet) *Packet {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, p))
	got, err := ReadPacket(&buf)
	require.NoError(t, err)
	return got
}

func TestRoundTripEveryOpcode(t *testing.T) {
	t.Parallel()

	pkts := []*Packet{
		Comp(),
		Ack(),
		CloseConn(),
		Error(ErrFileAlreadyLocked),
		Data([]byte("hello")),
		FileP("name", []byte("payload")),
		FileSequence(42),
		OpenFile("name", OCreate|OLock),
		CloseFile("name"),
		ReadFile("name"),
		LockFile("name"),
		UnlockFile("name"),
		RemoveFile("name"),
		WriteFile("name", []byte("data")),
		AppendFile("name", []byte("more")),
		ReadNFiles(7),
	}

	for _, p := range pkts {
		got := roundTrip(t, p)
		assert.Equal(t, p.Op, got.Op)
		assert.Equal(t, p.ErrCode, got.ErrCode)
		assert.Equal(t, p.Name, got.Name)
		assert.Equal(t, p.Flags, got.Flags)
		assert.Equal(t, p.Data, got.Data)
		assert.Equal(t, p.Count, got.Count)
	}
}

func TestReadPacketReportsPeerClosedAtBoundary(t *testing.T) {
	t.Parallel()

	_, err := ReadPacket(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrPeerClosed)
}

func TestReadPacketReportsPeerClosedMidPacket(t *testing.T) {
	t.Parallel()

	// OPEN_FILE whose name length prefix promises more bytes than follow.
	var buf bytes.Buffer
	buf.WriteByte(byte(OpOpenFile))
	buf.Write([]byte{5, 0, 0, 0, 0, 0, 0, 0}) // claims a 5-byte name
	buf.WriteString("ab")                     // but only 2 bytes follow

	_, err := ReadPacket(&buf)
	assert.ErrorIs(t, err, ErrPeerClosed)
}

func TestDataCompressedFlagRoundTrips(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	p := &Packet{Op: OpData, Data: []byte{3, 'a'}, Compressed: true}
	var buf bytes.Buffer
	require.NoError(WritePacket(&buf, p))

	got, err := ReadPacket(&buf)
	require.NoError(err)
	require.True(got.Compressed)
	require.Equal([]byte{3, 'a'}, got.Data)
}

func TestUnknownOpcodeErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadPacket(bytes.NewReader([]byte{255}))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
