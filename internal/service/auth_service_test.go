package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository/memory"
)

func registerDTO(username string) domain.RegisterUserDTO {
	return domain.RegisterUserDTO{
		Username: username, Password: "hunter2", ConfirmPassword: "hunter2",
		Name: "test user", City: "delhi", Pincode: "110001",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := NewAuthService(store.Users(), "secret", time.Hour)

	user, err := auth.Register(ctx, registerDTO(" asha "))
	require.NoError(t, err)
	assert.Equal(t, "asha", user.Username)
	assert.Equal(t, "Test User", user.Name)
	assert.NotEqual(t, "hunter2", user.PasswordHash)
	assert.False(t, user.IsAdmin)

	_, err = auth.Register(ctx, registerDTO("asha"))
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	mismatch := registerDTO("ravi")
	mismatch.ConfirmPassword = "other"
	_, err = auth.Register(ctx, mismatch)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = auth.Login(ctx, domain.LoginUserDTO{Username: "asha", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, domain.LoginUserDTO{Username: "nobody", Password: "hunter2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := auth.Login(ctx, domain.LoginUserDTO{Username: "asha", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, resp.Role)

	p, err := auth.PrincipalFromToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: user.ID, Username: "asha"}, p)
}

func TestLoginRefusedForDeletedUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := NewAuthService(store.Users(), "secret", time.Hour)

	user, err := auth.Register(ctx, registerDTO("asha"))
	require.NoError(t, err)
	require.NoError(t, store.Users().SoftDelete(ctx, user.ID))

	_, err = auth.Login(ctx, domain.LoginUserDTO{Username: "asha", Password: "hunter2"})
	assert.ErrorIs(t, err, ErrUserDeleted)
}

func TestPrincipalFromTokenRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := NewAuthService(store.Users(), "secret", time.Hour)
	_, err := auth.Register(ctx, registerDTO("asha"))
	require.NoError(t, err)
	resp, err := auth.Login(ctx, domain.LoginUserDTO{Username: "asha", Password: "hunter2"})
	require.NoError(t, err)

	_, err = auth.PrincipalFromToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := NewAuthService(store.Users(), "another-secret", time.Hour)
	_, err = other.PrincipalFromToken(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	expired := NewAuthService(store.Users(), "secret", -time.Hour)
	resp, err = expired.Login(ctx, domain.LoginUserDTO{Username: "asha", Password: "hunter2"})
	require.NoError(t, err)
	_, err = expired.PrincipalFromToken(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPrincipalFromTokenReadsStoredUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := NewAuthService(store.Users(), "secret", time.Hour)
	users := NewUserService(store)

	user, err := auth.Register(ctx, registerDTO("asha"))
	require.NoError(t, err)
	resp, err := auth.Login(ctx, domain.LoginUserDTO{Username: "asha", Password: "hunter2"})
	require.NoError(t, err)

	_, err = users.UpdateProfile(ctx, domain.Principal{UserID: user.ID, Username: user.Username}, domain.UpdateProfileDTO{Username: "asha.k"})
	require.NoError(t, err)
	p, err := auth.PrincipalFromToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "asha.k", p.Username)

	require.NoError(t, store.Users().SoftDelete(ctx, user.ID))
	_, err = auth.PrincipalFromToken(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.ErrorIs(t, err, ErrUserDeleted)
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := NewAuthService(store.Users(), "secret", time.Hour)

	require.NoError(t, auth.BootstrapAdmin(ctx, "admin", "admin"))
	require.NoError(t, auth.BootstrapAdmin(ctx, "admin", "admin"))

	admins, err := store.Users().FindAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "110043", admins[0].Pincode)

	resp, err := auth.Login(ctx, domain.LoginUserDTO{Username: "admin", Password: "admin"})
	require.NoError(t, err)
	p, err := auth.PrincipalFromToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
}
