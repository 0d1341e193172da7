// Package tenant resolves which organization scopes a user's session. Every
// tenant-scoped read and write in the API is bound to the context this
// package produces.
package tenant

import (
	"context"
	"errors"
	"sync"
	"time"

	"lendbook/internal/domain/accesscontrol"

	"go.uber.org/zap"
)

// State of the resolver. Resolved and Unresolved are terminal for a given
// resolution; a switch re-enters Resolving.
type State int

const (
	StateUninitialized State = iota
	StateResolving
	StateResolved
	StateUnresolved
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

var (
	// ErrNoOrganizations means the user belongs to no organization; the
	// caller redirects to onboarding.
	ErrNoOrganizations = errors.New("user has no accessible organizations")
	// ErrNotMember means the requested organization is not in the user's
	// accessible list.
	ErrNotMember = errors.New("user is not a member of the requested organization")
	// ErrUnavailable means listing organizations kept failing after retries.
	ErrUnavailable = errors.New("organization list is unavailable")
	// ErrStale means a newer resolution superseded this one; the result was
	// discarded, not applied.
	ErrStale = errors.New("resolution superseded by a newer request")
)

const (
	listAttempts   = 3
	listRetryPause = 250 * time.Millisecond
)

// Context identifies the active organization for a session.
type Context struct {
	OrganizationID   int64  `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	RoleName         string `json:"role_name"`
}

// OrganizationLister yields the organizations a user can access.
type OrganizationLister interface {
	ListMemberships(ctx context.Context, userID int64) ([]accesscontrol.Membership, error)
}

// SelectionStore persists the user's last tenant selection across sessions.
type SelectionStore interface {
	Get(ctx context.Context, userID int64) (int64, bool, error)
	Set(ctx context.Context, userID, orgID int64) error
}

// Invalidator drops all cached data of one tenant.
type Invalidator interface {
	InvalidateTenant(ctx context.Context, orgID int64) error
}

// Resolver owns the tenant context for a session. It is the only component
// allowed to mutate the active context.
type Resolver struct {
	lister      OrganizationLister
	selections  SelectionStore
	invalidator Invalidator
	logger      *zap.SugaredLogger

	mu         sync.Mutex
	state      State
	current    *Context
	generation uint64
}

func NewResolver(lister OrganizationLister, selections SelectionStore, invalidator Invalidator, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{
		lister:      lister,
		selections:  selections,
		invalidator: invalidator,
		logger:      logger,
		state:       StateUninitialized,
	}
}

// State returns the current resolver state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Current returns the active tenant context, or nil before resolution.
func (r *Resolver) Current() *Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	c := *r.current
	return &c
}

// Resolve establishes the session's tenant context: a still-valid persisted
// selection wins, otherwise the first accessible organization. An empty list
// lands in StateUnresolved with ErrNoOrganizations. Superseded resolutions
// (a newer Resolve or Switch started meanwhile) are discarded.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (*Context, error) {
	gen := r.beginResolving()

	memberships, err := r.listWithRetry(ctx, userID)
	if err != nil {
		r.finish(gen, StateUnresolved, nil)
		return nil, err
	}
	if len(memberships) == 0 {
		r.finish(gen, StateUnresolved, nil)
		return nil, ErrNoOrganizations
	}

	selected := memberships[0]
	if persisted, ok, err := r.selections.Get(ctx, userID); err == nil && ok {
		for _, m := range memberships {
			if m.OrganizationID == persisted {
				selected = m
				break
			}
		}
	} else if err != nil {
		r.logger.Warnw("failed to read persisted tenant selection", "user_id", userID, "error", err)
	}

	tc := &Context{
		OrganizationID:   selected.OrganizationID,
		OrganizationName: selected.OrganizationName,
		RoleName:         selected.RoleName,
	}
	if !r.finish(gen, StateResolved, tc) {
		return nil, ErrStale
	}

	if err := r.selections.Set(ctx, userID, tc.OrganizationID); err != nil {
		r.logger.Warnw("failed to persist tenant selection", "user_id", userID, "error", err)
	}
	return tc, nil
}

// Switch moves the session to another accessible organization. All cached
// data of the outgoing tenant is invalidated before the new context becomes
// visible, so no read can attribute stale data to the new tenant.
func (r *Resolver) Switch(ctx context.Context, userID, orgID int64) (*Context, error) {
	r.mu.Lock()
	previous := r.current
	r.mu.Unlock()

	gen := r.beginResolving()

	memberships, err := r.listWithRetry(ctx, userID)
	if err != nil {
		r.finish(gen, StateUnresolved, nil)
		return nil, err
	}

	var selected *accesscontrol.Membership
	for i := range memberships {
		if memberships[i].OrganizationID == orgID {
			selected = &memberships[i]
			break
		}
	}
	if selected == nil {
		// Not a membership: restore the previous context rather than
		// defaulting anywhere.
		r.finish(gen, StateResolved, previous)
		return nil, ErrNotMember
	}

	if previous != nil && previous.OrganizationID != orgID {
		if err := r.invalidator.InvalidateTenant(ctx, previous.OrganizationID); err != nil {
			r.finish(gen, StateResolved, previous)
			return nil, err
		}
	}
	// Also clear anything a previous session may have left for the incoming
	// tenant.
	if err := r.invalidator.InvalidateTenant(ctx, orgID); err != nil {
		r.finish(gen, StateResolved, previous)
		return nil, err
	}

	tc := &Context{
		OrganizationID:   selected.OrganizationID,
		OrganizationName: selected.OrganizationName,
		RoleName:         selected.RoleName,
	}
	if !r.finish(gen, StateResolved, tc) {
		return nil, ErrStale
	}

	if err := r.selections.Set(ctx, userID, orgID); err != nil {
		r.logger.Warnw("failed to persist tenant selection", "user_id", userID, "error", err)
	}
	return tc, nil
}

func (r *Resolver) beginResolving() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.state = StateResolving
	return r.generation
}

// finish applies the outcome only if no newer resolution started meanwhile.
func (r *Resolver) finish(gen uint64, state State, tc *Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return false
	}
	r.state = state
	r.current = tc
	return true
}

func (r *Resolver) listWithRetry(ctx context.Context, userID int64) ([]accesscontrol.Membership, error) {
	var lastErr error
	for attempt := 1; attempt <= listAttempts; attempt++ {
		memberships, err := r.lister.ListMemberships(ctx, userID)
		if err == nil {
			return memberships, nil
		}
		lastErr = err
		r.logger.Warnw("listing organizations failed",
			"user_id", userID, "attempt", attempt, "error", err)

		if attempt < listAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(listRetryPause):
			}
		}
	}
	return nil, errors.Join(ErrUnavailable, lastErr)
}
