package logging

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sift/sift/internal/rules"
)

// Finding is written as a single JSON object per match.
type Finding struct {
	Timestamp time.Time `json:"ts"`
	ScanID    string    `json:"scan_id"`
	Source    string    `json:"source"`
	RuleID    string    `json:"rule_id"`
	Pattern   string    `json:"pattern"`
	Start     int       `json:"start"`
	End       int       `json:"end"`
	Unit      string    `json:"unit"`
	Score     int       `json:"score"`
	Tags      []string  `json:"tags,omitempty"`
	Evidence  string    `json:"evidence"`
	Verdict   string    `json:"verdict"`
}

// FindingLog appends findings as JSON lines. It is safe for concurrent use.
type FindingLog struct {
	mu sync.Mutex
	w  io.Writer
}

func NewFindingLog(w io.Writer) *FindingLog {
	return &FindingLog{w: w}
}

func OpenFindingLog(path string) (*FindingLog, func() error, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return NewFindingLog(file), file.Close, nil
}

// Write appends findings, one line each. A nil log discards them.
func (l *FindingLog) Write(findings ...Finding) error {
	if l == nil || len(findings) == 0 {
		return nil
	}

	var buf []byte
	for _, f := range findings {
		f.Evidence = rules.Snippet(f.Evidence)
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(buf)
	return err
}

// FromResult turns every match in res into a Finding stamped with ts.
func FromResult(scanID, source, verdict string, res rules.Result, ts time.Time) []Finding {
	if len(res.Matches) == 0 {
		return nil
	}
	out := make([]Finding, len(res.Matches))
	for i, m := range res.Matches {
		out[i] = Finding{
			Timestamp: ts,
			ScanID:    scanID,
			Source:    source,
			RuleID:    m.RuleID,
			Pattern:   m.Pattern,
			Start:     m.Start,
			End:       m.End,
			Unit:      string(m.Unit),
			Score:     m.Score,
			Tags:      append([]string(nil), m.Tags...),
			Evidence:  m.Evidence,
			Verdict:   verdict,
		}
	}
	return out
}

var scanCount atomic.Uint64

// NewScanID returns a random hex id, or a counter-based one if the system
// random source fails.
func NewScanID() string {
	var buf [12]byte
	if _, err := rand.Read(buf[:]); err == nil {
		return hex.EncodeToString(buf[:])
	}
	return fmt.Sprintf("scan-%d", scanCount.Add(1))
}
