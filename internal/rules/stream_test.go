package rules

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"testing/iotest"
)

type span struct {
	Rule       string
	Pattern    string
	Start, End int
}

func spans(matches []Match) []span {
	out := make([]span, len(matches))
	for i, m := range matches {
		out[i] = span{m.RuleID, m.Pattern, m.Start, m.End}
	}
	return out
}

func streamEngine(t *testing.T) *Engine {
	return NewEngine([]Rule{
		mustRule(t, "bytes", 2, "bytes", true, []string{"abc", "a", "bc", "ca", "bca"}),
		mustRule(t, "runes", 3, "runes", true, []string{"żółw", "łw"}),
		mustRule(t, "decoded", 5, "bytes", false, []string{"<script>"}, "url_decode", "lowercase"),
	})
}

func TestScanReaderMatchesEvaluate(t *testing.T) {
	engine := streamEngine(t)
	input := "abcabcaba_ŻÓŁW abbabcc %3Cscript%3E żółw"

	want := engine.Evaluate(input)
	for _, size := range []int{1, 2, 3, 5, 64} {
		got, err := engine.ScanReader(context.Background(), strings.NewReader(input), ScanOptions{ChunkSize: size})
		if err != nil {
			t.Fatalf("chunk size %d: %v", size, err)
		}
		if !slices.Equal(spans(want.Matches), spans(got.Matches)) {
			t.Fatalf("chunk size %d: expected %v got %v", size, spans(want.Matches), spans(got.Matches))
		}
		if got.Score != want.Score || !slices.Equal(got.Rules, want.Rules) {
			t.Fatalf("chunk size %d: expected score %d rules %v, got %d %v", size, want.Score, want.Rules, got.Score, got.Rules)
		}
		if got.Bytes != int64(len(input)) {
			t.Fatalf("chunk size %d: expected %d bytes, got %d", size, len(input), got.Bytes)
		}
	}
}

func TestScanReaderSplitRunes(t *testing.T) {
	engine := NewEngine([]Rule{mustRule(t, "r", 1, "runes", false, []string{"€", "x€"})})

	res, err := engine.ScanReader(context.Background(), iotest.OneByteReader(strings.NewReader("ax€€")), ScanOptions{})
	if err != nil {
		t.Fatalf("ScanReader: %v", err)
	}
	want := []span{
		{"r", "x€", 1, 3},
		{"r", "€", 2, 3},
		{"r", "€", 3, 4},
	}
	if got := spans(res.Matches); !slices.Equal(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestScanReaderInvalidUTF8(t *testing.T) {
	engine := NewEngine([]Rule{mustRule(t, "r", 1, "runes", false, []string{"�b", "��"})})
	input := "a\xe2\x82b\xe2\x82"

	want := engine.Evaluate(input)
	got, err := engine.ScanReader(context.Background(), iotest.OneByteReader(strings.NewReader(input)), ScanOptions{})
	if err != nil {
		t.Fatalf("ScanReader: %v", err)
	}
	if !slices.Equal(spans(want.Matches), spans(got.Matches)) {
		t.Fatalf("expected %v got %v", spans(want.Matches), spans(got.Matches))
	}
	if len(got.Matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got.Matches))
	}
}

func TestScanReaderBufferLimit(t *testing.T) {
	engine := streamEngine(t)

	_, err := engine.ScanReader(context.Background(), strings.NewReader(strings.Repeat("x", 100)), ScanOptions{ChunkSize: 16, MaxBufferedBytes: 40})
	if !errors.Is(err, ErrBufferLimit) {
		t.Fatalf("expected ErrBufferLimit, got %v", err)
	}

	res, err := engine.ScanReader(context.Background(), strings.NewReader(strings.Repeat("a", 100)), ScanOptions{
		ChunkSize:        16,
		MaxBufferedBytes: 40,
		RuleIDs:          []string{"bytes"},
	})
	if err != nil {
		t.Fatalf("streaming-only rules should not buffer: %v", err)
	}
	if len(res.Matches) != 100 {
		t.Fatalf("expected 100 matches, got %d", len(res.Matches))
	}
}

func TestScanReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := streamEngine(t).ScanReader(ctx, strings.NewReader("abc"), ScanOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScanReaderReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := streamEngine(t).ScanReader(context.Background(), iotest.ErrReader(boom), ScanOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestScanReaderMaxMatches(t *testing.T) {
	rule := mustRule(t, "a", 1, "bytes", false, []string{"a"})
	rule.MaxMatches = 3
	engine := NewEngine([]Rule{rule})

	res, err := engine.ScanReader(context.Background(), strings.NewReader("aaaaaa"), ScanOptions{ChunkSize: 2})
	if err != nil {
		t.Fatalf("ScanReader: %v", err)
	}
	if len(res.Matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(res.Matches))
	}
	if !slices.Equal(res.Truncated, []string{"a"}) {
		t.Fatalf("expected truncation for rule a, got %v", res.Truncated)
	}
}

func TestScanReaderEmptyInputWithPathTransform(t *testing.T) {
	engine := NewEngine([]Rule{mustRule(t, "slash", 1, "bytes", false, []string{"/"}, "normalize_path")})

	res, err := engine.ScanReader(context.Background(), strings.NewReader(""), ScanOptions{})
	if err != nil {
		t.Fatalf("ScanReader: %v", err)
	}
	if res.Score != 0 || len(res.Matches) != 0 || res.Bytes != 0 {
		t.Fatalf("expected nothing from empty input, got %+v", res)
	}
}
