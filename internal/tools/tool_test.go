package tools

import (
	"strings"
	"testing"
)

func TestArgs(t *testing.T) {
	args := Args{
		"path":      "a.go",
		"recursive": "true",
		"count":     float64(3),
		"empty":     nil,
		"flag":      true,
	}
	if !args.Present("path") || args.Present("empty") || args.Present("missing") {
		t.Fatal("Present misreports keys")
	}
	if got := args.String("path", "."); got != "a.go" {
		t.Errorf("String(path) = %q", got)
	}
	if got := args.String("empty", "."); got != "." {
		t.Errorf("String(empty) = %q", got)
	}
	if got := args.String("count", ""); got != "3" {
		t.Errorf("String(count) = %q", got)
	}
	if !args.Bool("recursive", false) || !args.Bool("flag", false) {
		t.Error("Bool should accept bools and bool strings")
	}
	if args.Bool("missing", false) {
		t.Error("Bool default not honoured")
	}
}

func TestLimiterTruncates(t *testing.T) {
	l := NewLimiter(0)
	short := "hello"
	if got := l.Limit(short); got != short {
		t.Fatalf("Limit(short) = %q", got)
	}
	long := strings.Repeat("é", MaxOutputLength+10)
	got := l.Limit(long)
	if !strings.HasSuffix(got, TruncatedMarker) {
		t.Fatal("missing truncation marker")
	}
	if n := len([]rune(strings.TrimSuffix(got, TruncatedMarker))); n != MaxOutputLength {
		t.Fatalf("kept %d characters, want %d", n, MaxOutputLength)
	}
	if _, budgeted := l.Remaining(); budgeted {
		t.Fatal("zero budget should disable budgeting")
	}
}

func TestLimiterBudget(t *testing.T) {
	l := NewLimiter(10)
	if got := l.Limit("abcdef"); got != "abcdef" {
		t.Fatalf("first = %q", got)
	}
	if remaining, _ := l.Remaining(); remaining != 4 {
		t.Fatalf("remaining = %d, want 4", remaining)
	}
	if got := l.Limit("123456"); got != "1234"+TruncatedMarker {
		t.Fatalf("second = %q", got)
	}
	if got := l.Limit("more"); got != BudgetExhaustedOutput {
		t.Fatalf("third = %q", got)
	}
}

func TestResultIsError(t *testing.T) {
	if !Errorf("read_file", "File not found: %s", "x").IsError() {
		t.Fatal("Errorf result should be an error")
	}
	if (Result{Output: "ok"}).IsError() {
		t.Fatal("plain output is not an error")
	}
}

func TestRequiredFor(t *testing.T) {
	if got := RequiredFor("write_file"); len(got) != 2 || got[0] != "path" || got[1] != "content" {
		t.Fatalf("RequiredFor(write_file) = %v", got)
	}
	if RequiredFor("nope") != nil {
		t.Fatal("unknown tool should have no requirements")
	}
}
