package derive

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/medsave/rxwizard/internal/platform/medsave"
)

const (
	RegistrationPrefix = "REG"
	suffixWidth        = 5
	suffixSpace        = 100000

	DefaultPageSize = 50
	DefaultMaxPages = 200
)

// RegistrationLister pages through the registration numbers of stored patients.
type RegistrationLister interface {
	RegistrationNumbers(ctx context.Context, limit, offset int) ([]string, error)
}

// Allocation is a registration number and how far it can be trusted.
// Authoritative is false when the number came from the random fallback or
// from a scan that stopped before reaching the last page.
type Allocation struct {
	Number        string `json:"number"`
	Sequence      int    `json:"sequence"`
	Authoritative bool   `json:"authoritative"`
	PagesScanned  int    `json:"pages_scanned"`
	Reason        string `json:"reason,omitempty"`
}

type Allocator struct {
	source   RegistrationLister
	pageSize int
	maxPages int
	intn     func(int) int
}

type AllocatorOption func(*Allocator)

func WithPageSize(n int) AllocatorOption {
	return func(a *Allocator) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

func WithMaxPages(n int) AllocatorOption {
	return func(a *Allocator) {
		if n > 0 {
			a.maxPages = n
		}
	}
}

// WithRand replaces the source of the fallback suffix.
func WithRand(intn func(int) int) AllocatorOption {
	return func(a *Allocator) { a.intn = intn }
}

func NewAllocator(source RegistrationLister, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		source:   source,
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegistrationDatePrefix returns "REG" followed by the two digit year, month
// and day of t.
func RegistrationDatePrefix(t time.Time) string {
	return RegistrationPrefix + t.Format("060102")
}

// Sequence returns the numeric suffix of number under prefix: the run of
// digits directly after it. ok is false when number has another prefix or no
// digits follow.
func Sequence(number, prefix string) (int, bool) {
	if !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	rest := number[len(prefix):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s%0*d", prefix, suffixWidth, seq)
}

// Next scans the stored numbers under today's prefix and allocates max+1.
// If the API cannot be reached for the first page the suffix is random. An
// error reply stops the scan like a short page does.
func (a *Allocator) Next(ctx context.Context, now time.Time) Allocation {
	prefix := RegistrationDatePrefix(now)
	maxSeq := 0
	page := 0

	for ; page < a.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return a.partial(prefix, maxSeq, page, err)
		}
		numbers, err := a.source.RegistrationNumbers(ctx, a.pageSize, page*a.pageSize)
		if err != nil {
			if page == 0 && errors.Is(err, medsave.ErrTransport) {
				seq := a.intn(suffixSpace)
				return Allocation{
					Number:   formatNumber(prefix, seq),
					Sequence: seq,
					Reason:   "random fallback: " + err.Error(),
				}
			}
			return a.partial(prefix, maxSeq, page, err)
		}
		if len(numbers) == 0 {
			break
		}
		for _, n := range numbers {
			if seq, ok := Sequence(n, prefix); ok && seq > maxSeq {
				maxSeq = seq
			}
		}
	}

	alloc := Allocation{
		Number:        formatNumber(prefix, maxSeq+1),
		Sequence:      maxSeq + 1,
		Authoritative: page < a.maxPages,
		PagesScanned:  page,
	}
	if !alloc.Authoritative {
		alloc.Reason = fmt.Sprintf("scan stopped at page cap %d", a.maxPages)
	}
	return alloc
}

func (a *Allocator) partial(prefix string, maxSeq, pages int, err error) Allocation {
	return Allocation{
		Number:       formatNumber(prefix, maxSeq+1),
		Sequence:     maxSeq + 1,
		PagesScanned: pages,
		Reason:       "partial scan: " + err.Error(),
	}
}
