package derive

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/medsave/rxwizard/internal/platform/medsave"
)

type pageCall struct{ limit, offset int }

type fakeLister struct {
	numbers []string
	failAt  int // page index that fails, -1 for none
	failErr error
	calls   []pageCall
}

func (f *fakeLister) RegistrationNumbers(_ context.Context, limit, offset int) ([]string, error) {
	f.calls = append(f.calls, pageCall{limit, offset})
	if f.failAt >= 0 && offset/limit == f.failAt {
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, fmt.Errorf("%w: connection refused", medsave.ErrTransport)
	}
	if offset >= len(f.numbers) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.numbers) {
		end = len(f.numbers)
	}
	return f.numbers[offset:end], nil
}

var june1 = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

func TestRegistrationDatePrefix(t *testing.T) {
	if got := RegistrationDatePrefix(june1); got != "REG240601" {
		t.Errorf("expected REG240601, got %s", got)
	}
}

func TestAllocator_NextAfterExisting(t *testing.T) {
	var nums []string
	for i := 1; i <= 7; i++ {
		nums = append(nums, fmt.Sprintf("REG2406010000%d", i))
	}
	a := NewAllocator(&fakeLister{numbers: nums, failAt: -1})
	got := a.Next(context.Background(), june1)
	if got.Number != "REG24060100008" {
		t.Errorf("expected REG24060100008, got %s", got.Number)
	}
	if !got.Authoritative {
		t.Errorf("expected authoritative allocation, reason %q", got.Reason)
	}
}

func TestAllocator_FirstUnderPrefix(t *testing.T) {
	lister := &fakeLister{numbers: []string{"REG23123100042", "REG24053100010", "OLD-7"}, failAt: -1}
	got := NewAllocator(lister).Next(context.Background(), june1)
	if !strings.HasSuffix(got.Number, "00001") || got.Number != "REG24060100001" {
		t.Errorf("expected REG24060100001, got %s", got.Number)
	}
}

func TestAllocator_ScansEveryPage(t *testing.T) {
	var nums []string
	for i := 1; i <= 120; i++ {
		nums = append(nums, fmt.Sprintf("REG240601%05d", i))
	}
	lister := &fakeLister{numbers: nums, failAt: -1}
	got := NewAllocator(lister).Next(context.Background(), june1)
	if got.Number != "REG24060100121" {
		t.Errorf("expected REG24060100121, got %s", got.Number)
	}
	if len(lister.calls) != 4 {
		t.Fatalf("expected 4 page calls, got %d", len(lister.calls))
	}
	for i, c := range lister.calls {
		if c.limit != DefaultPageSize || c.offset != i*DefaultPageSize {
			t.Errorf("call %d: %+v", i, c)
		}
	}
}

func TestAllocator_RandomFallbackWhenFirstPageFails(t *testing.T) {
	a := NewAllocator(&fakeLister{failAt: 0}, WithRand(func(n int) int {
		if n != 100000 {
			t.Errorf("expected range 100000, got %d", n)
		}
		return 4242
	}))
	got := a.Next(context.Background(), june1)
	if got.Number != "REG24060104242" {
		t.Errorf("expected REG24060104242, got %s", got.Number)
	}
	if got.Authoritative {
		t.Error("random fallback must not be authoritative")
	}
	if !strings.Contains(got.Reason, "random fallback") {
		t.Errorf("unexpected reason %q", got.Reason)
	}
}

func TestAllocator_ErrorReplyOnFirstPageStopsScan(t *testing.T) {
	lister := &fakeLister{
		failAt:  0,
		failErr: &medsave.APIError{Action: "list", Entity: medsave.Patients, Message: "db down"},
	}
	a := NewAllocator(lister, WithRand(func(int) int {
		t.Error("error reply must not use the random fallback")
		return 4242
	}))
	got := a.Next(context.Background(), june1)
	if got.Number != "REG24060100001" {
		t.Errorf("expected REG24060100001, got %s", got.Number)
	}
	if got.Authoritative || got.PagesScanned != 0 {
		t.Errorf("unexpected allocation %+v", got)
	}
	if !strings.Contains(got.Reason, "partial scan") {
		t.Errorf("unexpected reason %q", got.Reason)
	}
}

func TestAllocator_PartialScanNotAuthoritative(t *testing.T) {
	var nums []string
	for i := 1; i <= 60; i++ {
		nums = append(nums, fmt.Sprintf("REG240601%05d", i))
	}
	got := NewAllocator(&fakeLister{numbers: nums, failAt: 1}).Next(context.Background(), june1)
	if got.Number != "REG24060100051" {
		t.Errorf("expected REG24060100051, got %s", got.Number)
	}
	if got.Authoritative {
		t.Error("interrupted scan must not be authoritative")
	}
}

func TestAllocator_PageCap(t *testing.T) {
	var nums []string
	for i := 1; i <= 30; i++ {
		nums = append(nums, fmt.Sprintf("REG240601%05d", i))
	}
	lister := &fakeLister{numbers: nums, failAt: -1}
	got := NewAllocator(lister, WithPageSize(10), WithMaxPages(2)).Next(context.Background(), june1)
	if len(lister.calls) != 2 {
		t.Errorf("expected 2 calls, got %d", len(lister.calls))
	}
	if got.Number != "REG24060100021" || got.Authoritative {
		t.Errorf("unexpected allocation %+v", got)
	}
}

func TestAllocator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lister := &fakeLister{failAt: -1}
	got := NewAllocator(lister).Next(ctx, june1)
	if got.Authoritative || len(lister.calls) != 0 {
		t.Errorf("unexpected allocation %+v after %d calls", got, len(lister.calls))
	}
}

func TestSequence(t *testing.T) {
	tests := []struct {
		number string
		seq    int
		ok     bool
	}{
		{"REG24060100007", 7, true},
		{"REG24060100012-A", 12, true},
		{"REG240601", 0, false},
		{"REG240601X1", 0, false},
		{"REG24060200003", 0, false},
	}
	for _, tt := range tests {
		seq, ok := Sequence(tt.number, "REG240601")
		if seq != tt.seq || ok != tt.ok {
			t.Errorf("Sequence(%q) = %d %v, want %d %v", tt.number, seq, ok, tt.seq, tt.ok)
		}
	}
}
