package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medsave/rxwizard/internal/domain/derive"
	"github.com/medsave/rxwizard/internal/domain/draft"
	"github.com/medsave/rxwizard/internal/platform/debounce"
	"github.com/medsave/rxwizard/internal/platform/session"
)

var (
	ErrDraftNotFound   = session.ErrNotFound
	ErrMissingHospital = errors.New("hospital has not been saved")
	ErrMissingPatient  = errors.New("patient has not been saved")
	ErrMissingDoctor   = errors.New("doctor has not been saved")
	ErrValidation      = errors.New("patient details failed validation")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrStale is returned by work whose draft was reset while it ran.
	ErrStale = errors.New("draft was reset while the request was in flight")
)

// DateTimeLayout is the format of patient.date_time.
const DateTimeLayout = "2006-01-02T15:04"

type Policy string

const (
	PolicyAdvisory Policy = "advisory"
	PolicyBlocking Policy = "blocking"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyAdvisory:
		return PolicyAdvisory, nil
	case PolicyBlocking:
		return PolicyBlocking, nil
	default:
		return "", fmt.Errorf("unknown validation policy %q", s)
	}
}

// UserError carries the notice shown to the user alongside the remote
// failure that caused it.
type UserError struct {
	Notice string
	Err    error
}

func (e *UserError) Error() string { return e.Notice + ": " + e.Err.Error() }
func (e *UserError) Unwrap() error { return e.Err }

func userError(notice string, err error) error {
	return &UserError{Notice: notice, Err: err}
}

type Deps struct {
	Sessions  session.Repository
	Records   Records
	Postal    PostalLookup
	Tokens    TokenIssuer
	Allocator RegistrationAllocator
	Clock     Clock
	Logger    zerolog.Logger
	Policy    Policy
	// SearchQuiet is the debounce window of patient searches.
	SearchQuiet time.Duration
}

type Service struct {
	sessions  session.Repository
	records   Records
	postal    PostalLookup
	tokens    TokenIssuer
	allocator RegistrationAllocator
	clock     Clock
	logger    zerolog.Logger
	policy    Policy
	searches  *debounce.Debouncer
}

func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = systemClock{}
	}
	if d.Policy == "" {
		d.Policy = PolicyAdvisory
	}
	return &Service{
		sessions:  d.Sessions,
		records:   d.Records,
		postal:    d.Postal,
		tokens:    d.Tokens,
		allocator: d.Allocator,
		clock:     d.Clock,
		logger:    d.Logger.With().Str("component", "prescription").Logger(),
		policy:    d.Policy,
		searches:  debounce.New(d.SearchQuiet),
	}
}

// Draft is the client view of a stored draft.
type Draft struct {
	ID         string         `json:"draft_id"`
	Generation uint64         `json:"generation"`
	Document   draft.Document `json:"document"`
}

func view(id string, s *draft.Store) *Draft {
	return &Draft{ID: id, Generation: s.Generation(), Document: s.Document()}
}

type Started struct {
	Draft
	Token        string            `json:"token"`
	ExpiresAt    time.Time         `json:"expires_at"`
	Registration derive.Allocation `json:"registration"`
}

// Start opens a new draft with a fresh registration number and the current
// date_time, and issues the token that guards it.
func (s *Service) Start(ctx context.Context) (*Started, error) {
	store := draft.NewStore()
	alloc := s.stamp(ctx, store)

	id, err := s.sessions.Create(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	token, exp, err := s.tokens.Issue(id)
	if err != nil {
		_ = s.sessions.Delete(ctx, id)
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Started{
		Draft:        *view(id, store),
		Token:        token,
		ExpiresAt:    exp,
		Registration: alloc,
	}, nil
}

// stamp fills registration_no and date_time the way the patient step does
// when it is first shown.
func (s *Service) stamp(ctx context.Context, store *draft.Store) derive.Allocation {
	now := s.clock.Now()
	alloc := s.allocator.Next(ctx, now)
	if !alloc.Authoritative {
		s.logger.Warn().
			Str("registration_no", alloc.Number).
			Int("pages_scanned", alloc.PagesScanned).
			Str("reason", alloc.Reason).
			Msg("registration number not confirmed unique")
	}
	_ = draft.Set(store, draft.RegistrationNo, alloc.Number)
	_ = draft.Set(store, draft.DateTime, now.Format(DateTimeLayout))
	return alloc
}

func (s *Service) Get(ctx context.Context, id string) (*Draft, error) {
	store, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return view(id, store), nil
}

// Reset returns the draft to the empty template. Work still in flight for
// the old generation discards its results.
func (s *Service) Reset(ctx context.Context, id string) (*Draft, error) {
	s.searches.Forget(id)
	now := s.clock.Now()
	alloc := s.allocator.Next(ctx, now)
	store, err := s.sessions.Update(ctx, id, func(st *draft.Store) error {
		st.Reset()
		if err := draft.Set(st, draft.RegistrationNo, alloc.Number); err != nil {
			return err
		}
		return draft.Set(st, draft.DateTime, now.Format(DateTimeLayout))
	})
	if err != nil {
		return nil, err
	}
	if !alloc.Authoritative {
		s.logger.Warn().Str("draft_id", id).Str("reason", alloc.Reason).
			Msg("registration number not confirmed unique")
	}
	return view(id, store), nil
}

func (s *Service) Discard(ctx context.Context, id string) error {
	s.searches.Forget(id)
	return s.sessions.Delete(ctx, id)
}

// Apply runs one wire mutation against the draft.
func (s *Service) Apply(ctx context.Context, id string, m draft.Mutation) (*Draft, error) {
	if m.Op == draft.OpReset {
		return s.Reset(ctx, id)
	}
	return s.update(ctx, id, func(st *draft.Store) error {
		return st.Apply(m)
	})
}

func (s *Service) ReplaceSection(ctx context.Context, id string, section draft.Section, partial map[string]any) (*Draft, error) {
	return s.update(ctx, id, func(st *draft.Store) error {
		return st.ReplaceSection(section, partial)
	})
}

func (s *Service) update(ctx context.Context, id string, fn func(*draft.Store) error) (*Draft, error) {
	store, err := s.sessions.Update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	return view(id, store), nil
}

// updateAt is update guarded by a generation captured before remote work
// began. A draft reset in between rejects the write with ErrStale.
func (s *Service) updateAt(ctx context.Context, id string, gen uint64, fn func(*draft.Store) error) (*Draft, error) {
	return s.update(ctx, id, func(st *draft.Store) error {
		if st.Generation() != gen {
			return ErrStale
		}
		return fn(st)
	})
}

// snapshot reads the draft and its generation before remote work starts.
func (s *Service) snapshot(ctx context.Context, id string) (draft.Document, uint64, error) {
	store, err := s.sessions.Get(ctx, id)
	if err != nil {
		return draft.Document{}, 0, err
	}
	return store.Document(), store.Generation(), nil
}
