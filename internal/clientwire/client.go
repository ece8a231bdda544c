// Package clientwire is the blobctl side of the wire protocol: a thin
// synchronous request/response driver over a single connection, grounded on
// the same framing internal/wire/codec.go implements server-side.
package clientwire

import (
	"fmt"
	"net"

	"github.com/joshuarubin/blobstore/internal/wire"
	"github.com/joshuarubin/blobstore/internal/wire/rle"
)

// Client is one connection to a blobstore server.
type Client struct {
	conn net.Conn
}

// Dial connects to a blobstore server listening on a unix domain socket at
// socketName.
func Dial(socketName string) (*Client, error) {
	conn, err := net.Dial("unix", socketName)
	if err != nil {
		return nil, fmt.Errorf("clientwire: dial %s: %w", socketName, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes req without waiting for a response, used for requests like
// READ_N_FILES whose replies are an unbounded FILE_P sequence terminated by
// COMP rather than a single packet.
func (c *Client) Send(req *wire.Packet) error {
	if err := wire.WritePacket(c.conn, req); err != nil {
		return fmt.Errorf("clientwire: write request: %w", err)
	}
	return nil
}

// Do sends req and reads back exactly one response packet, decompressing a
// DATA/FILE_P payload if the server flagged it as RLE-encoded.
func (c *Client) Do(req *wire.Packet) (*wire.Packet, error) {
	if err := wire.WritePacket(c.conn, req); err != nil {
		return nil, fmt.Errorf("clientwire: write request: %w", err)
	}

	resp, err := wire.ReadPacket(c.conn)
	if err != nil {
		return nil, fmt.Errorf("clientwire: read response: %w", err)
	}

	decompress(resp)
	return resp, nil
}

// ReadOne reads one more packet off the wire without sending a request,
// used by callers draining a READ_N_FILES sequence of FILE_P packets.
func (c *Client) ReadOne() (*wire.Packet, error) {
	resp, err := wire.ReadPacket(c.conn)
	if err != nil {
		return nil, fmt.Errorf("clientwire: read response: %w", err)
	}
	decompress(resp)
	return resp, nil
}

func decompress(p *wire.Packet) {
	if p.Compressed && (p.Op == wire.OpData || p.Op == wire.OpFileP) {
		p.Data = rle.Decode(p.Data)
		p.Compressed = false
	}
}

// AsError converts an OpError response packet into a Go error, or returns
// nil if resp is not an error packet.
func AsError(resp *wire.Packet) error {
	if resp.Op != wire.OpError {
		return nil
	}
	return fmt.Errorf("blobstore: %s", resp.ErrCode)
}
