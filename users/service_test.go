package users

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/credstore-go/apperror"
	"github.com/user/credstore-go/password"
)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	// Cheap cost parameters keep the suite fast without changing behavior.
	hasher, err := password.NewHasher(password.Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	store := newMemStore()
	return NewService(store, hasher), store
}

func validRegister() RegisterRequest {
	return RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "longenough1"}
}

func TestRegisterStoresHashNotPlaintext(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, validRegister())
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "ana@example.com", resp.Email)

	stored, err := store.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"), "hash not in PHC format: %s", stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "longenough1")
}

func TestRegisterNormalizesEmailCase(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	req := validRegister()
	req.Email = "Ana@Example.COM"
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = store.GetByEmail(ctx, "ana@example.com")
	assert.NoError(t, err)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{Name: "", Email: "not-an-email", Password: "short1"})
	require.Error(t, err)
	assert.True(t, apperror.IsValidationError(err))

	appErr, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Len(t, appErr.Fields, 3)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegister())
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegister())
	require.Error(t, err)
	assert.True(t, apperror.IsConflictError(err))
}

func TestConcurrentDuplicateRegistration(t *testing.T) {
	// Two racing registrations with the same email must yield exactly one
	// success and one conflict; the store's atomic rejection decides.
	svc, _ := newTestService(t)
	ctx := context.Background()

	const racers = 8
	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Register(ctx, validRegister())
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case apperror.IsConflictError(err):
			conflicts++
		default:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, conflicts)
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegister())
	require.NoError(t, err)

	err = svc.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "longenough1"})
	assert.NoError(t, err)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegister())
	require.NoError(t, err)

	wrongPassword := svc.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "not-the-password"})
	unknownEmail := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "longenough1"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.True(t, apperror.IsAuthError(wrongPassword))
	assert.True(t, apperror.IsAuthError(unknownEmail))

	// The outward payloads must match exactly.
	wrongResp, _ := apperror.FromError(wrongPassword)
	unknownResp, _ := apperror.FromError(unknownEmail)
	assert.Equal(t, wrongResp.ToResponse(), unknownResp.ToResponse())
}

func TestLoginCorruptStoredHash(t *testing.T) {
	// An undecodable stored hash must surface as invalid credentials, never
	// as a panic or a distinct error kind.
	svc, store := newTestService(t)
	ctx := context.Background()

	// Both string-level and parameter-level corruption: the second decodes
	// cleanly but carries a zero parallelism degree the key derivation
	// cannot run with.
	corrupt := []User{
		{
			ID:           "b6f7c9de-0000-0000-0000-000000000000",
			Name:         "Corrupt",
			Email:        "corrupt@example.com",
			PasswordHash: "not-a-phc-string",
		},
		{
			ID:           "b6f7c9de-0000-0000-0000-000000000001",
			Name:         "Zeroed",
			Email:        "zeroed@example.com",
			PasswordHash: "$argon2id$v=19$m=8192,t=1,p=0$c2FsdHNhbHQ$a2V5a2V5",
		},
	}
	for i := range corrupt {
		require.NoError(t, store.Insert(ctx, &corrupt[i]))
	}

	for _, u := range corrupt {
		err := svc.Login(ctx, LoginRequest{Email: u.Email, Password: "whatever1"})
		require.Error(t, err)
		assert.True(t, apperror.IsAuthError(err))
	}
}

func TestLoginEmptyCredentials(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Login(context.Background(), LoginRequest{})
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
}

func TestListReturnsInsertionOrderWithoutSecrets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, u := range []RegisterRequest{
		{Name: "Ana", Email: "ana@example.com", Password: "longenough1"},
		{Name: "Ben", Email: "ben@example.com", Password: "longenough2"},
		{Name: "Cyn", Email: "cyn@example.com", Password: "longenough3"},
	} {
		_, err := svc.Register(ctx, u)
		require.NoError(t, err)
	}

	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, []string{"ana@example.com", "ben@example.com", "cyn@example.com"},
		[]string{views[0].Email, views[1].Email, views[2].Email})

	// No marshalled view may carry a hash field of any kind.
	raw, err := json.Marshal(views)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "argon2id")
}

func TestGetByID(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegister())
	require.NoError(t, err)
	stored, err := store.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)

	view, err := svc.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, view.ID)
	assert.Equal(t, "Ana", view.Name)
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), "11111111-2222-3333-4444-555555555555")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
