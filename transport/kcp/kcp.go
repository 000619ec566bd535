// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package kcp ships compacted container blocks over KCP, a reliable
// UDP-based stream transport. It is the low-latency alternative to
// transport/kafka for point-to-point shipping: no broker, one dialed
// session per destination, blocks framed with a length prefix since KCP
// presents a byte stream rather than discrete messages.
package kcp

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	kcp "github.com/xtaci/kcp-go"

	"github.com/aristanetworks/glog"
)

// Block is a compacted container's byte image plus the key identifying it,
// the same payload shape transport/kafka publishes.
type Block struct {
	Key   string
	Bytes []byte
}

// maxFrameBytes bounds a single decoded frame, protecting a reader from a
// corrupt or hostile length prefix.
const maxFrameBytes = 64 << 20

// writeBlock frames b onto w: a uint32 key length, the key, a uint32
// payload length, the payload.
func writeBlock(w io.Writer, b Block) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b.Key)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, b.Key); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b.Bytes)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(b.Bytes)
	return err
}

// readBlock reads one frame written by writeBlock. It returns io.EOF only
// on a clean boundary between frames.
func readBlock(r io.Reader) (Block, error) {
	key, err := readChunk(r, true)
	if err != nil {
		return Block{}, err
	}
	payload, err := readChunk(r, false)
	if err != nil {
		return Block{}, err
	}
	return Block{Key: string(key), Bytes: payload}, nil
}

func readChunk(r io.Reader, atBoundary bool) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if !atBoundary && err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrameBytes {
		return nil, fmt.Errorf("kcp: frame of %d bytes exceeds limit", n)
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// Client writes blocks to a single destination, dialing lazily on the first
// Write and redialing after any write error.
type Client struct {
	addr string
	conn net.Conn
}

// NewClient returns a client publishing to the KCP listener at addr.
func NewClient(addr string) *Client {
	return &Client{addr: addr}
}

// Write ships b to the destination. On error the session is torn down so
// the next Write redials.
func (c *Client) Write(b Block) error {
	var err error
	if c.conn == nil {
		c.conn, err = kcp.DialWithOptions(c.addr, nil, 10, 3)
		if err != nil {
			return err
		}
	}
	err = writeBlock(c.conn, b)
	if err != nil {
		c.conn.Close()
		c.conn = nil
	}
	return err
}

// Close tears down the client's session, if one is open.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Handler processes one received block. Returning an error closes the
// session it arrived on; a Client on the other end redials only once one of
// its own writes fails.
type Handler func(b Block) error

// Server accepts KCP sessions and dispatches every received block to a
// handler, one goroutine per session.
type Server struct {
	lis    *kcp.Listener
	handle Handler
}

// NewServer returns a server listening on addr.
func NewServer(addr string, handle Handler) (*Server, error) {
	lis, err := kcp.ListenWithOptions(addr, nil, 10, 3)
	if err != nil {
		return nil, err
	}
	return &Server{lis: lis, handle: handle}, nil
}

// Run accepts sessions until the listener is closed.
func (s *Server) Run() error {
	for {
		conn, err := s.lis.AcceptKCP()
		if err != nil {
			return err
		}

		go func() {
			defer conn.Close()
			for {
				b, err := readBlock(conn)
				if err != nil {
					if err != io.EOF {
						glog.Error(err)
					}
					return
				}
				if err := s.handle(b); err != nil {
					glog.Error(err)
					return
				}
			}
		}()
	}
}

// Close stops the listener; Run returns once it has.
func (s *Server) Close() error {
	return s.lis.Close()
}
