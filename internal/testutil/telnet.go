package testutil

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"regexp"
	"strings"
	"testing"
	"time"
)

// DefaultReadTimeout bounds Expect.
const DefaultReadTimeout = 3 * time.Second

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// TelnetClient is a Telnet test client that sees the arena as plain text.
type TelnetClient struct {
	conn   net.Conn
	reader *bufio.Reader
	t      *testing.T
	seen   strings.Builder
}

// NewTelnetClient dials addr and returns a client closed on test cleanup.
//
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}
	t.Cleanup(func() { _ = conn.Close() })

	t.Logf("telnet client connected to %s [%s]", addr, time.Since(start))
	return &TelnetClient{conn: conn, reader: bufio.NewReader(conn), t: t}
}

// ReadUntil reads until the text received since the last match contains substr.
// Telnet commands, ANSI styling and carriage returns are removed first.
//
// Postcondition: Returns the plain text up to and including the match, or fails on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	tmp := make([]byte, 1024)
	for {
		text := ansiPattern.ReplaceAllString(c.seen.String(), "")
		if idx := strings.Index(text, substr); idx >= 0 {
			end := idx + len(substr)
			c.seen.Reset()
			c.seen.WriteString(text[end:])
			return text[:end]
		}
		n, err := c.reader.Read(tmp)
		if n > 0 {
			c.seen.WriteString(plain(tmp[:n]))
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, c.seen.String(), err)
		}
	}
}

// Expect is ReadUntil with DefaultReadTimeout.
func (c *TelnetClient) Expect(substr string) string {
	c.t.Helper()
	return c.ReadUntil(substr, DefaultReadTimeout)
}

// plain drops three-byte option negotiation and CRs. Sub-negotiation is not
// expected from the arena.
func plain(b []byte) string {
	var out bytes.Buffer
	for i := 0; i < len(b); i++ {
		if b[i] == 255 && i+2 < len(b) && b[i+1] >= 251 && b[i+1] <= 254 {
			i += 2
			continue
		}
		if b[i] != '\r' {
			out.WriteByte(b[i])
		}
	}
	return out.String()
}

// Send writes text followed by CRLF.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the connection.
func (c *TelnetClient) Close() {
	_ = c.conn.Close()
}
