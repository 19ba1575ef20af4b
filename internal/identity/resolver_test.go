package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryAccounts enforces unique session refs and emails like the accounts table.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]model.Account
	inserts  int

	// failures makes the next n calls fail.
	failures int
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: make(map[uuid.UUID]model.Account)}
}

func (m *memoryAccounts) fail() error {
	if m.failures > 0 {
		m.failures--
		return errors.New("connection reset")
	}
	return nil
}

func (m *memoryAccounts) FindBySessionRef(ctx context.Context, sessionRef string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	for _, a := range m.accounts {
		if a.HasSession(sessionRef) {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memoryAccounts) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	for _, a := range m.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memoryAccounts) InsertAccount(ctx context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	for _, a := range m.accounts {
		if a.Email == account.Email || (account.SessionRef != nil && a.HasSession(*account.SessionRef)) {
			return ErrAccountExists
		}
	}
	m.accounts[account.ID] = *account
	m.inserts++
	return nil
}

func (m *memoryAccounts) UpdateSessionRef(ctx context.Context, accountID uuid.UUID, sessionRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	a, ok := m.accounts[accountID]
	if !ok {
		return errors.New("account not found")
	}
	a.SessionRef = &sessionRef
	m.accounts[accountID] = a
	return nil
}

func (m *memoryAccounts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

func newTestResolver(store AccountStore, attempts int) *Resolver {
	r := NewResolver(store, attempts, zerolog.Nop())
	r.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return r
}

var shopper = model.Session{ID: "sess-1", Email: "Ama@Example.com", FirstName: "Ama", LastName: "Mensah"}

func TestResolver_CreatesAccount(t *testing.T) {
	store := newMemoryAccounts()

	account, err := newTestResolver(store, 3).Resolve(context.Background(), shopper)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.Equal(t, "ama@example.com", account.Email)
	assert.True(t, account.HasSession("sess-1"))
	assert.Equal(t, model.RoleCustomer, account.Role)
	assert.Equal(t, 1, store.count())
}

func TestResolver_IsIdempotent(t *testing.T) {
	store := newMemoryAccounts()
	r := newTestResolver(store, 3)

	first, err := r.Resolve(context.Background(), shopper)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), shopper)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.count())
}

func TestResolver_LinksExistingAccountByEmail(t *testing.T) {
	store := newMemoryAccounts()
	stale := "old-session"
	existing := model.Account{ID: uuid.New(), Email: "ama@example.com", SessionRef: &stale, Role: model.RoleAdmin}
	store.accounts[existing.ID] = existing

	account, err := newTestResolver(store, 3).Resolve(context.Background(), shopper)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, account.ID)
	assert.True(t, account.HasSession("sess-1"))
	assert.True(t, store.accounts[existing.ID].HasSession("sess-1"))
	assert.Equal(t, model.RoleAdmin, account.Role)
	assert.Zero(t, store.inserts)
}

func TestResolver_RetriesTransientFailures(t *testing.T) {
	store := newMemoryAccounts()
	store.failures = 2

	account, err := newTestResolver(store, 3).Resolve(context.Background(), shopper)

	require.NoError(t, err)
	assert.NotNil(t, account)
}

func TestResolver_ExhaustedRetries(t *testing.T) {
	store := newMemoryAccounts()
	store.failures = 10

	account, err := newTestResolver(store, 3).Resolve(context.Background(), shopper)

	assert.Nil(t, account)
	var resolutionErr *model.IdentityResolutionError
	require.ErrorAs(t, err, &resolutionErr)
	assert.Equal(t, 3, resolutionErr.Attempts)
	assert.True(t, resolutionErr.Retryable())
	assert.Zero(t, store.count())
}

func TestResolver_RequiresSession(t *testing.T) {
	store := newMemoryAccounts()
	r := newTestResolver(store, 3)

	_, err := r.Resolve(context.Background(), model.Session{Email: "a@b.c"})
	assert.ErrorIs(t, err, model.ErrMissingSession)

	_, err = r.Resolve(context.Background(), model.Session{ID: "s", Email: "  "})
	assert.ErrorIs(t, err, model.ErrMissingSession)
}

// racingAccounts holds every insert until all callers have reached it.
type racingAccounts struct {
	*memoryAccounts
	barrier sync.WaitGroup
}

func (r *racingAccounts) InsertAccount(ctx context.Context, account *model.Account) error {
	r.barrier.Done()
	r.barrier.Wait()
	return r.memoryAccounts.InsertAccount(ctx, account)
}

func TestResolver_ConcurrentResolveCreatesOneAccount(t *testing.T) {
	const callers = 8

	store := &racingAccounts{memoryAccounts: newMemoryAccounts()}
	store.barrier.Add(callers)
	r := newTestResolver(store, 3)

	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account, err := r.Resolve(context.Background(), shopper)
			errs[i] = err
			if account != nil {
				ids[i] = account.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, store.count())
}
