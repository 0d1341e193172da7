package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lendbook/internal/domain/accesscontrol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLister struct {
	mu          sync.Mutex
	memberships []accesscontrol.Membership
	failures    int
	calls       int
}

func (f *fakeLister) ListMemberships(_ context.Context, _ int64) ([]accesscontrol.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection refused")
	}
	return f.memberships, nil
}

type memorySelections struct {
	mu   sync.Mutex
	byID map[int64]int64
}

func newMemorySelections() *memorySelections {
	return &memorySelections{byID: map[int64]int64{}}
}

func (m *memorySelections) Get(_ context.Context, userID int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orgID, ok := m.byID[userID]
	return orgID, ok, nil
}

func (m *memorySelections) Set(_ context.Context, userID, orgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[userID] = orgID
	return nil
}

type recordingInvalidator struct {
	mu          sync.Mutex
	invalidated []int64
}

func (r *recordingInvalidator) InvalidateTenant(_ context.Context, orgID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, orgID)
	return nil
}

func memberships(orgs ...int64) []accesscontrol.Membership {
	out := make([]accesscontrol.Membership, 0, len(orgs))
	for _, id := range orgs {
		out = append(out, accesscontrol.Membership{
			OrganizationID:   id,
			OrganizationName: "org",
			RoleName:         "manager",
		})
	}
	return out
}

func newTestResolver(lister OrganizationLister, selections SelectionStore, inv Invalidator) *Resolver {
	return NewResolver(lister, selections, inv, zap.NewNop().Sugar())
}

func TestResolveFirstAccessibleByDefault(t *testing.T) {
	r := newTestResolver(&fakeLister{memberships: memberships(10, 20)}, newMemorySelections(), &recordingInvalidator{})
	require.Equal(t, StateUninitialized, r.State())

	tc, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), tc.OrganizationID)
	assert.Equal(t, StateResolved, r.State())
}

func TestResolvePrefersValidPersistedSelection(t *testing.T) {
	selections := newMemorySelections()
	require.NoError(t, selections.Set(context.Background(), 1, 20))

	r := newTestResolver(&fakeLister{memberships: memberships(10, 20)}, selections, &recordingInvalidator{})
	tc, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), tc.OrganizationID)
}

func TestResolveIgnoresStalePersistedSelection(t *testing.T) {
	selections := newMemorySelections()
	require.NoError(t, selections.Set(context.Background(), 1, 99)) // no longer accessible

	r := newTestResolver(&fakeLister{memberships: memberships(10, 20)}, selections, &recordingInvalidator{})
	tc, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), tc.OrganizationID)

	// The fallback becomes the new persisted selection.
	persisted, ok, err := selections.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(10), persisted)
}

func TestResolveEmptyListUnresolved(t *testing.T) {
	r := newTestResolver(&fakeLister{}, newMemorySelections(), &recordingInvalidator{})

	tc, err := r.Resolve(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoOrganizations)
	assert.Nil(t, tc)
	assert.Equal(t, StateUnresolved, r.State())
	assert.Nil(t, r.Current())
}

func TestResolveRetriesTransientFailures(t *testing.T) {
	lister := &fakeLister{memberships: memberships(10), failures: 2}
	r := newTestResolver(lister, newMemorySelections(), &recordingInvalidator{})

	tc, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), tc.OrganizationID)
	assert.Equal(t, 3, lister.calls)
}

func TestResolvePermanentFailureUnresolved(t *testing.T) {
	lister := &fakeLister{memberships: memberships(10), failures: 10}
	r := newTestResolver(lister, newMemorySelections(), &recordingInvalidator{})

	_, err := r.Resolve(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, StateUnresolved, r.State())
}

func TestSwitchInvalidatesOutgoingTenantBeforeApplying(t *testing.T) {
	inv := &recordingInvalidator{}
	r := newTestResolver(&fakeLister{memberships: memberships(10, 20)}, newMemorySelections(), inv)

	_, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)

	tc, err := r.Switch(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(20), tc.OrganizationID)

	// Outgoing tenant first, then the incoming one, both before the new
	// context became current.
	require.Equal(t, []int64{10, 20}, inv.invalidated)
	assert.Equal(t, int64(20), r.Current().OrganizationID)
}

func TestSwitchToNonMemberKeepsPreviousContext(t *testing.T) {
	inv := &recordingInvalidator{}
	r := newTestResolver(&fakeLister{memberships: memberships(10, 20)}, newMemorySelections(), inv)

	_, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)

	_, err = r.Switch(context.Background(), 1, 77)
	require.ErrorIs(t, err, ErrNotMember)
	assert.Equal(t, int64(10), r.Current().OrganizationID)
	assert.Empty(t, inv.invalidated, "nothing may be invalidated on a refused switch")
	assert.Equal(t, StateResolved, r.State())
}

func TestStaleResolutionIsDiscarded(t *testing.T) {
	r := newTestResolver(&fakeLister{memberships: memberships(10, 20)}, newMemorySelections(), &recordingInvalidator{})

	// Simulate an in-flight resolution superseded by a newer one: the old
	// generation must not overwrite the newer outcome.
	oldGen := r.beginResolving()
	_ = r.beginResolving()

	applied := r.finish(oldGen, StateResolved, &Context{OrganizationID: 10})
	assert.False(t, applied)
	assert.Nil(t, r.Current())
	assert.Equal(t, StateResolving, r.State())
}
