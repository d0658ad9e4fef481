package antivirus

import (
	"context"
	"time"
)

// ScanResult contains the result of a malware scan. Infected is only set
// when the scanner positively identified a threat; a scanner fault is
// reported through Error with Infected false.
type ScanResult struct {
	Infected    bool
	ThreatName  string
	ScannerName string
	Error       error
}

// Scanner is the interface for pluggable antivirus implementations
type Scanner interface {
	Scan(ctx context.Context, filename string, data []byte) ScanResult
	Name() string
	Available(ctx context.Context) bool
}

// NoOpScanner reports every file as clean. It is used when no clamd address
// is configured.
type NoOpScanner struct{}

var _ Scanner = (*NoOpScanner)(nil)

func (n *NoOpScanner) Scan(ctx context.Context, filename string, data []byte) ScanResult {
	return ScanResult{ScannerName: n.Name()}
}

func (n *NoOpScanner) Name() string {
	return "noop"
}

func (n *NoOpScanner) Available(ctx context.Context) bool {
	return true
}

func NewNoOpScanner() *NoOpScanner {
	return &NoOpScanner{}
}

// New picks ClamAV when address is set and the no-op scanner otherwise.
func New(address string, timeout time.Duration) Scanner {
	if address == "" {
		return NewNoOpScanner()
	}
	return NewClamAVScanner(address, timeout)
}
