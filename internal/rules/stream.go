package rules

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrBufferLimit is returned when a reader is longer than the buffer that
// rules with transforms need to see the whole input.
var ErrBufferLimit = errors.New("input exceeds buffer limit")

const defaultChunkSize = 64 << 10

type ScanOptions struct {
	ChunkSize        int
	MaxBufferedBytes int64
	// RuleIDs restricts the scan; empty means every rule.
	RuleIDs []string
}

// ruleScan tracks one rule's progress through a streamed input.
type ruleScan struct {
	rule      *Rule
	s         streamer
	matches   []Match
	truncated bool
	done      bool
}

func (rs *ruleScan) collect(h hit) bool {
	if rs.rule.MaxMatches > 0 && len(rs.matches) == rs.rule.MaxMatches {
		rs.truncated = true
		rs.done = true
		return false
	}
	rs.matches = append(rs.matches, rs.rule.match(h))
	return true
}

// ScanReader reads r once. Rules without transforms match chunk by chunk as
// data arrives; rules with transforms need the whole input, which is buffered
// up to MaxBufferedBytes and evaluated at EOF.
func (e *Engine) ScanReader(ctx context.Context, r io.Reader, opts ScanOptions) (Result, error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	selected := e.selectRules(opts.RuleIDs)
	scans := make([]*ruleScan, len(selected))
	needBuffer := false
	for i, rule := range selected {
		if rule.Transforms.Empty() {
			scans[i] = &ruleScan{rule: rule, s: rule.matcher.stream()}
		} else {
			needBuffer = true
		}
	}

	var buf bytes.Buffer
	var total int64
	chunk := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			data := chunk[:n]
			for _, rs := range scans {
				if rs == nil || rs.done {
					continue
				}
				rs.s.feed(data, rs.collect)
			}
			if needBuffer {
				if opts.MaxBufferedBytes > 0 && int64(buf.Len()+n) > opts.MaxBufferedBytes {
					return Result{}, fmt.Errorf("%w of %d bytes", ErrBufferLimit, opts.MaxBufferedBytes)
				}
				buf.Write(data)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, err
		}
	}

	result := Result{Bytes: total}
	for i, rule := range selected {
		rs := scans[i]
		if rs == nil {
			matches, truncated := rule.evaluate(buf.String())
			result.add(rule, matches, truncated)
			continue
		}
		if !rs.done {
			rs.s.flush(rs.collect)
		}
		result.add(rule, rs.matches, rs.truncated)
	}
	return result, nil
}
