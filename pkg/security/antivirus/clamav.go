package antivirus

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"
)

// clamd accepts INSTREAM chunks up to StreamMaxLength; 1MB stays well below
// the default.
const chunkSize = 1 << 20

// ClamAVScanner connects to clamd daemon for malware scanning
type ClamAVScanner struct {
	address string        // TCP address (host:port) or Unix socket path
	timeout time.Duration // Connection and scan timeout
}

var _ Scanner = (*ClamAVScanner)(nil)

// NewClamAVScanner creates a ClamAV scanner
// address: TCP "localhost:3310" or Unix socket "/var/run/clamav/clamd.sock"
func NewClamAVScanner(address string, timeout time.Duration) *ClamAVScanner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClamAVScanner{
		address: address,
		timeout: timeout,
	}
}

func (c *ClamAVScanner) Name() string {
	return "clamav"
}

func (c *ClamAVScanner) dial(ctx context.Context, timeout time.Duration) (net.Conn, error) {
	network := "tcp"
	if strings.HasPrefix(c.address, "/") {
		network = "unix"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, c.address)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)
	return conn, nil
}

// Available checks if ClamAV daemon is reachable
func (c *ClamAVScanner) Available(ctx context.Context) bool {
	conn, err := c.dial(ctx, 5*time.Second)
	if err != nil {
		return false
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("zPING\x00")); err != nil {
		return false
	}

	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && reply == "" {
		return false
	}
	return strings.HasPrefix(reply, "PONG")
}

// Scan streams data to clamd with zINSTREAM.
// Clean: "stream: OK"; infected: "stream: <threat> FOUND"; fault: "... ERROR"
func (c *ClamAVScanner) Scan(ctx context.Context, filename string, data []byte) ScanResult {
	result := ScanResult{ScannerName: c.Name()}

	conn, err := c.dial(ctx, c.timeout)
	if err != nil {
		result.Error = fmt.Errorf("failed to connect to clamd: %w", err)
		return result
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		result.Error = fmt.Errorf("failed to send command: %w", err)
		return result
	}

	size := make([]byte, 4)
	for offset := 0; offset < len(data); offset += chunkSize {
		end := min(offset+chunkSize, len(data))
		binary.BigEndian.PutUint32(size, uint32(end-offset))
		if _, err := conn.Write(size); err != nil {
			result.Error = fmt.Errorf("failed to send chunk size: %w", err)
			return result
		}
		if _, err := conn.Write(data[offset:end]); err != nil {
			result.Error = fmt.Errorf("failed to send file data: %w", err)
			return result
		}
	}

	// zero-length chunk ends the stream
	if _, err := conn.Write([]byte{0, 0, 0, 0}); err != nil {
		result.Error = fmt.Errorf("failed to send end marker: %w", err)
		return result
	}

	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && reply == "" {
		result.Error = fmt.Errorf("failed to read response: %w", err)
		return result
	}
	reply = strings.TrimSpace(strings.TrimRight(reply, "\x00"))

	switch {
	case strings.HasSuffix(reply, "FOUND"):
		result.Infected = true
		if _, threat, ok := strings.Cut(reply, ":"); ok {
			result.ThreatName = strings.TrimSuffix(strings.TrimSpace(threat), " FOUND")
		}
	case strings.HasSuffix(reply, "ERROR"):
		result.Error = fmt.Errorf("scan error: %s", reply)
	case !strings.HasSuffix(reply, "OK"):
		result.Error = fmt.Errorf("unexpected clamd reply: %q", reply)
	}

	return result
}
