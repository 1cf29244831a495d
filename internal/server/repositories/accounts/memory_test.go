package accounts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, r *MemoryRepository, email, token string) *models.Account {
	t.Helper()
	tok := token
	a, err := r.Create(context.Background(), &models.Account{
		Email:             email,
		PasswordHash:      "hash",
		Subscription:      models.SubscriptionFree,
		AvatarURL:         "avatar",
		VerificationToken: &tok,
	})
	require.NoError(t, err)
	return a
}

func TestMemory_CreateAndGet(t *testing.T) {
	r := NewMemoryRepository()
	a := seed(t, r, "a@x.com", "tok")

	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	byID, err := r.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	byEmail, err := r.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)

	_, err = r.GetByEmail(context.Background(), "b@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepository()
	a := seed(t, r, "a@x.com", "tok")

	got, err := r.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	*got.VerificationToken = "mutated"
	got.Email = "mutated"

	again, err := r.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok", *again.VerificationToken)
	assert.Equal(t, "a@x.com", again.Email)
}

func TestMemory_ConcurrentDuplicateRegistration(t *testing.T) {
	r := NewMemoryRepository()
	var ok, dup atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(context.Background(), &models.Account{Email: "same@x.com", PasswordHash: "h", AvatarURL: "u"})
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, common.ErrorAlreadyExists):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(15), dup.Load())
}

func TestMemory_ConsumeVerificationTokenOnce(t *testing.T) {
	r := NewMemoryRepository()
	seed(t, r, "a@x.com", "tok")

	a, err := r.ConsumeVerificationToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, a.Verified)
	assert.Nil(t, a.VerificationToken)

	_, err = r.ConsumeVerificationToken(context.Background(), "tok")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemory_SetSessionToken(t *testing.T) {
	r := NewMemoryRepository()
	a := seed(t, r, "a@x.com", "tok")
	token := "jwt"

	require.NoError(t, r.SetSessionToken(context.Background(), a.ID, &token))
	got, _ := r.GetByID(context.Background(), a.ID)
	require.NotNil(t, got.SessionToken)
	assert.Equal(t, "jwt", *got.SessionToken)

	require.NoError(t, r.SetSessionToken(context.Background(), a.ID, nil))
	got, _ = r.GetByID(context.Background(), a.ID)
	assert.Nil(t, got.SessionToken)

	assert.ErrorIs(t, r.SetSessionToken(context.Background(), "ghost", nil), common.ErrorNotFound)
}

func TestMemory_UpdateProfile(t *testing.T) {
	r := NewMemoryRepository()
	a := seed(t, r, "a@x.com", "tok1")
	seed(t, r, "b@x.com", "tok2")

	t.Run("empty patch leaves record unchanged", func(t *testing.T) {
		before, _ := r.GetByID(context.Background(), a.ID)
		after, err := r.UpdateProfile(context.Background(), a.ID, models.ProfilePatch{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("sparse patch", func(t *testing.T) {
		name := "Ann"
		got, err := r.UpdateProfile(context.Background(), a.ID, models.ProfilePatch{DisplayName: &name})
		require.NoError(t, err)
		assert.Equal(t, "Ann", *got.DisplayName)
		assert.Equal(t, "a@x.com", got.Email)
		assert.Equal(t, models.SubscriptionFree, got.Subscription)
	})

	t.Run("email taken", func(t *testing.T) {
		email := "b@x.com"
		_, err := r.UpdateProfile(context.Background(), a.ID, models.ProfilePatch{Email: &email})
		assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	})

	t.Run("email change moves index", func(t *testing.T) {
		email := "c@x.com"
		_, err := r.UpdateProfile(context.Background(), a.ID, models.ProfilePatch{Email: &email})
		require.NoError(t, err)

		_, err = r.GetByEmail(context.Background(), "a@x.com")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		got, err := r.GetByEmail(context.Background(), "c@x.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := r.UpdateProfile(context.Background(), "ghost", models.ProfilePatch{})
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestMemory_UpdateAvatar(t *testing.T) {
	r := NewMemoryRepository()
	a := seed(t, r, "a@x.com", "tok")

	require.NoError(t, r.UpdateAvatar(context.Background(), a.ID, "http://h/avatars/x.jpg"))
	got, _ := r.GetByID(context.Background(), a.ID)
	assert.Equal(t, "http://h/avatars/x.jpg", got.AvatarURL)

	assert.ErrorIs(t, r.UpdateAvatar(context.Background(), "ghost", "x"), common.ErrorNotFound)
}
