package handler

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuarubin/blobstore/internal/config"
	"github.com/joshuarubin/blobstore/internal/connreg"
	"github.com/joshuarubin/blobstore/internal/rwlock"
	"github.com/joshuarubin/blobstore/internal/storage"
	"github.com/joshuarubin/blobstore/internal/wire"
)

type testFixture struct {
	srv *Server
	reg *connreg.Registry
	st  *storage.Storage

	next storage.ClientHandle
}

func newFixture(t *testing.T, policy storage.Policy, maxBlobs int64, maxBytes int64) *testFixture {
	t.Helper()
	cfg := &config.Config{EnableCompression: false}
	st := storage.New(policy, maxBlobs, maxBytes)
	reg := connreg.New()
	lock := rwlock.New()
	return &testFixture{
		srv: New(cfg, lock, st, reg, nil),
		reg: reg,
		st:  st,
	}
}

// connect registers a new client handle backed by a loopback TCP
// connection, returning the handle and the test's end of it (the "peer
// socket"). The kernel socket buffer holds the replies Serve writes before
// it returns, so the test can read them afterwards.
func (f *testFixture) connect(t *testing.T) (storage.ClientHandle, net.Conn) {
	t.Helper()
	f.next++
	handle := f.next

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	peerSide, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	serverSide, err := ln.Accept()
	require.NoError(t, err)

	f.reg.Add(handle, serverSide)
	return handle, peerSide
}

// request writes req to peer on its own goroutine while the caller drives
// Serve on the main goroutine.
func request(peer net.Conn, req *wire.Packet) {
	go func() { _ = wire.WritePacket(peer, req) }()
}

func readResponse(t *testing.T, peer net.Conn) *wire.Packet {
	t.Helper()
	resp, err := wire.ReadPacket(peer)
	require.NoError(t, err)
	return resp
}

func TestOpenCreateWriteRead(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, storage.FIFO, 10, 1024)

	h, peer := f.connect(t)
	defer peer.Close()

	request(peer, wire.OpenFile("a", wire.OCreate))
	outcome, effects := f.srv.Serve(h)
	require.Equal(Idle, outcome)
	require.Empty(effects)
	require.Equal(wire.OpComp, readResponse(t, peer).Op)

	request(peer, wire.OpenFile("a", wire.OCreate|wire.OLock))
	_, _ = f.srv.Serve(h)
	resp := readResponse(t, peer)
	require.Equal(wire.OpError, resp.Op)
	require.Equal(wire.ErrFileAlreadyExists, resp.ErrCode)

	request(peer, wire.OpenFile("a", wire.OLock))
	_, _ = f.srv.Serve(h)
	require.Equal(wire.OpComp, readResponse(t, peer).Op)

	request(peer, wire.WriteFile("a", []byte("hello")))
	_, _ = f.srv.Serve(h)
	require.Equal(wire.OpComp, readResponse(t, peer).Op)

	request(peer, wire.WriteFile("a", []byte("again")))
	_, _ = f.srv.Serve(h)
	resp = readResponse(t, peer)
	require.Equal(wire.OpError, resp.Op)
	require.Equal(wire.ErrFileWasAlreadyWritten, resp.ErrCode)

	request(peer, wire.ReadFile("a"))
	_, _ = f.srv.Serve(h)
	resp = readResponse(t, peer)
	require.Equal(wire.OpData, resp.Op)
	require.Equal("hello", string(resp.Data))
}

func TestOpenMissingWithoutCreateFails(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, storage.FIFO, 10, 1024)

	h, peer := f.connect(t)
	defer peer.Close()

	request(peer, wire.OpenFile("missing", 0))
	_, _ = f.srv.Serve(h)
	resp := readResponse(t, peer)
	require.Equal(wire.OpError, resp.Op)
	require.Equal(wire.ErrFileDoesNotExist, resp.ErrCode)
}

func TestLockFIFOWaitQueueAndDeferredReply(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, storage.FIFO, 10, 1024)

	h1, p1 := f.connect(t)
	h2, p2 := f.connect(t)
	h3, p3 := f.connect(t)
	defer p1.Close()
	defer p2.Close()
	defer p3.Close()

	request(p1, wire.OpenFile("f", wire.OCreate))
	_, _ = f.srv.Serve(h1)
	require.Equal(wire.OpComp, readResponse(t, p1).Op)

	request(p1, wire.LockFile("f"))
	_, _ = f.srv.Serve(h1)
	require.Equal(wire.OpComp, readResponse(t, p1).Op)

	// h2 and h3 both try to lock; both enqueue and get no reply yet.
	request(p2, wire.LockFile("f"))
	outcome, effects := f.srv.Serve(h2)
	require.Equal(Parked, outcome)
	require.Empty(effects)

	request(p3, wire.LockFile("f"))
	outcome, effects = f.srv.Serve(h3)
	require.Equal(Parked, outcome)
	require.Empty(effects)

	// h1 unlocks: h2 (enqueued first) is promoted and gets its deferred COMP
	// directly; h1 gets its own COMP for the unlock itself.
	request(p1, wire.UnlockFile("f"))
	outcome, effects = f.srv.Serve(h1)
	require.Equal(Idle, outcome)
	require.Equal(wire.OpComp, readResponse(t, p1).Op)
	require.Len(effects, 1)
	require.Equal(h2, effects[0].Handle)
	require.Equal(Idle, effects[0].Outcome)
	require.Equal(wire.OpComp, readResponse(t, p2).Op)

	// h2 now holds the lock; unlocking promotes h3.
	request(p2, wire.UnlockFile("f"))
	outcome, effects = f.srv.Serve(h2)
	require.Equal(Idle, outcome)
	require.Equal(wire.OpComp, readResponse(t, p2).Op)
	require.Len(effects, 1)
	require.Equal(h3, effects[0].Handle)
	require.Equal(wire.OpComp, readResponse(t, p3).Op)
}

func TestWriteEvictsAndStreamsFileP(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, storage.FIFO, 10, 10)

	h, peer := f.connect(t)
	defer peer.Close()

	request(peer, wire.OpenFile("a", wire.OCreate|wire.OLock))
	_, _ = f.srv.Serve(h)
	require.Equal(wire.OpComp, readResponse(t, peer).Op)

	request(peer, wire.WriteFile("a", []byte("12345")))
	_, _ = f.srv.Serve(h)
	require.Equal(wire.OpComp, readResponse(t, peer).Op)

	request(peer, wire.OpenFile("b", wire.OCreate|wire.OLock))
	_, _ = f.srv.Serve(h)
	require.Equal(wire.OpComp, readResponse(t, peer).Op)

	// "b" needs 10 bytes, only 5 remain before hitting max_bytes=10; "a"
	// (the only other blob) must be evicted and streamed back first.
	request(peer, wire.WriteFile("b", []byte("1234567890")))
	_, _ = f.srv.Serve(h)

	resp := readResponse(t, peer)
	require.Equal(wire.OpFileP, resp.Op)
	require.Equal("a", resp.Name)
	require.Equal("12345", string(resp.Data))

	require.Equal(wire.OpComp, readResponse(t, peer).Op)
}

func TestRemoveFailsLockWaiters(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, storage.FIFO, 10, 1024)

	owner, pOwner := f.connect(t)
	waiter, pWaiter := f.connect(t)
	defer pOwner.Close()
	defer pWaiter.Close()

	request(pOwner, wire.OpenFile("a", wire.OCreate|wire.OLock))
	_, _ = f.srv.Serve(owner)
	require.Equal(wire.OpComp, readResponse(t, pOwner).Op)

	request(pWaiter, wire.LockFile("a"))
	outcome, _ := f.srv.Serve(waiter)
	require.Equal(Parked, outcome)

	request(pOwner, wire.RemoveFile("a"))
	_, effects := f.srv.Serve(owner)
	require.Equal(wire.OpComp, readResponse(t, pOwner).Op)

	require.Len(effects, 1)
	require.Equal(waiter, effects[0].Handle)
	require.Equal(Idle, effects[0].Outcome)

	resp := readResponse(t, pWaiter)
	require.Equal(wire.OpError, resp.Op)
	require.Equal(wire.ErrFileDoesNotExist, resp.ErrCode)
}
