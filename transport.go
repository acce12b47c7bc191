// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

package tn3270

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Transport is the opaque async byte-stream a Session runs the protocol
// over. A real connection is wrapped by NetTransport; tests substitute a
// fake that never touches the network. TLS is opaque to the session: a
// Transport backed by a *tls.Conn has already completed its handshake
// before Session ever sees a byte.
type Transport interface {
	// Read blocks for at least one byte, honoring ctx's deadline, and
	// returns the bytes available, which may be fewer than len(p).
	Read(ctx context.Context, p []byte) (int, error)
	// Write sends all of p or returns an error.
	Write(ctx context.Context, p []byte) error
	// Close terminates the connection. It is safe to call more than once.
	Close() error
}

// NetTransport adapts a net.Conn (including a *tls.Conn with its
// handshake already complete) to the Transport interface.
type NetTransport struct {
	Conn net.Conn
}

// NewNetTransport wraps conn.
func NewNetTransport(conn net.Conn) *NetTransport { return &NetTransport{Conn: conn} }

// Dial opens a plain TCP connection to host:port and wraps it.
func Dial(ctx context.Context, host string, port int) (*NetTransport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return NewNetTransport(conn), nil
}

func (t *NetTransport) Read(ctx context.Context, p []byte) (int, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = t.Conn.SetReadDeadline(dl)
	} else {
		_ = t.Conn.SetReadDeadline(time.Time{})
	}
	return t.Conn.Read(p)
}

func (t *NetTransport) Write(ctx context.Context, p []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = t.Conn.SetWriteDeadline(dl)
	} else {
		_ = t.Conn.SetWriteDeadline(time.Time{})
	}
	_, err := t.Conn.Write(p)
	return err
}

func (t *NetTransport) Close() error { return t.Conn.Close() }
