package rpcserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client is the CLI side of the command socket: send one request line,
// read one reply line.
type Client struct {
	conn    net.Conn
	enc     *json.Encoder
	scanner *bufio.Scanner
}

// Dial connects to the command socket.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Client{conn: conn, enc: json.NewEncoder(conn), scanner: scanner}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Raw executes a request and returns the undecoded reply line.
func (c *Client) Raw(req Request) (json.RawMessage, error) {
	if err := c.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("sending %s: %w", req.Cmd, err)
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading reply: %w", err)
		}
		return nil, fmt.Errorf("connection closed while waiting for %s reply", req.Cmd)
	}
	return append(json.RawMessage(nil), c.scanner.Bytes()...), nil
}

// Do executes a request and decodes the reply into out. A server-side
// error reply is surfaced as an error.
func (c *Client) Do(req Request, out any) error {
	raw, err := c.Raw(req)
	if err != nil {
		return err
	}
	var errReply ErrorReply
	if err := json.Unmarshal(raw, &errReply); err == nil && errReply.Error != "" {
		return fmt.Errorf("%s: %s", req.Cmd, errReply.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s reply: %w", req.Cmd, err)
	}
	return nil
}
