// Package ciscoios drives Cisco IOS switches over an interactive
// management session (telnet during bootstrap, optionally SSH after).
package ciscoios

import (
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"time"
)

// errTimeout marks an expect that ran out of time. The retry loops
// treat it differently from io.EOF: a timeout retries immediately, an
// EOF means the switch is still booting and gets a grace sleep.
var errTimeout = errors.New("session timeout")

func isTimeout(err error) bool {
	if errors.Is(err, errTimeout) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

type readResult struct {
	data []byte
	err  error
}

// expectSession is a line-oriented expect loop over any duplex stream.
// A reader goroutine feeds incoming bytes through a channel so expect
// timeouts work uniformly for telnet conns and SSH channels (which have
// no read deadlines).
type expectSession struct {
	conn    io.ReadWriteCloser
	reads   chan readResult
	buf     []byte
	readErr error
}

func newExpectSession(conn io.ReadWriteCloser) *expectSession {
	s := &expectSession{
		conn:  conn,
		reads: make(chan readResult, 8),
	}
	go func() {
		for {
			chunk := make([]byte, 4096)
			n, err := conn.Read(chunk)
			if n > 0 {
				s.reads <- readResult{data: chunk[:n]}
			}
			if err != nil {
				s.reads <- readResult{err: err}
				return
			}
		}
	}()
	return s
}

// send writes one line terminated by newline ("\n" normally, "\r"
// inside tclsh heredocs).
func (s *expectSession) send(line, newline string) error {
	_, err := s.conn.Write([]byte(line + newline))
	return err
}

// expect consumes input until one of the patterns matches, returning
// the index of the matching pattern and everything read up to and
// including the match.
func (s *expectSession) expect(timeout time.Duration, patterns ...*regexp.Regexp) (int, string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		for i, pattern := range patterns {
			if loc := pattern.FindIndex(s.buf); loc != nil {
				matched := string(s.buf[:loc[1]])
				s.buf = s.buf[loc[1]:]
				return i, matched, nil
			}
		}
		if s.readErr != nil {
			return -1, string(s.buf), s.readErr
		}
		select {
		case res := <-s.reads:
			if res.data != nil {
				s.buf = append(s.buf, res.data...)
			}
			if res.err != nil {
				s.readErr = res.err
			}
		case <-deadline.C:
			return -1, string(s.buf), fmt.Errorf("%w after %s", errTimeout, timeout)
		}
	}
}

func (s *expectSession) close() {
	s.conn.Close()
}

// ----------------------------------------------------------------------------
// Telnet transport
// ----------------------------------------------------------------------------

const (
	telnetIAC  = 255
	telnetDONT = 254
	telnetDO   = 253
	telnetWONT = 252
	telnetWILL = 251
	telnetSB   = 250
	telnetSE   = 240
)

// telnetConn filters telnet option negotiation out of the byte stream,
// refusing every option the switch proposes (matching the behavior of
// a dumb client). Everything else passes through untouched.
type telnetConn struct {
	net.Conn
	state   int // 0 normal, 1 after IAC, 2 inside SB
	pending byte
}

func dialTelnet(address string, timeout time.Duration) (*telnetConn, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, err
	}
	return &telnetConn{Conn: conn}, nil
}

func (c *telnetConn) Read(p []byte) (int, error) {
	raw := make([]byte, len(p))
	for {
		n, err := c.Conn.Read(raw)
		out := 0
		for _, b := range raw[:n] {
			switch c.state {
			case 0:
				if b == telnetIAC {
					c.state = 1
				} else {
					p[out] = b
					out++
				}
			case 1:
				switch b {
				case telnetIAC: // escaped 0xff data byte
					p[out] = b
					out++
					c.state = 0
				case telnetDO, telnetDONT, telnetWILL, telnetWONT:
					c.pending = b
					c.state = 3
				case telnetSB:
					c.state = 2
				default:
					c.state = 0
				}
			case 2: // subnegotiation, skip until IAC SE
				if b == telnetIAC {
					c.state = 4
				}
			case 4: // IAC inside subnegotiation
				if b == telnetSE {
					c.state = 0
				} else {
					c.state = 2
				}
			case 3: // option byte of DO/DONT/WILL/WONT
				switch c.pending {
				case telnetDO:
					c.Conn.Write([]byte{telnetIAC, telnetWONT, b})
				case telnetWILL:
					c.Conn.Write([]byte{telnetIAC, telnetDONT, b})
				}
				c.state = 0
			}
		}
		if out > 0 || err != nil {
			return out, err
		}
		// The whole read was negotiation; read again.
	}
}
