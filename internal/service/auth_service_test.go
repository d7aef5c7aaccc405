package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/chess-web/internal/domain"
	"github.com/dom/chess-web/internal/repository/postgres"
	"github.com/dom/chess-web/internal/service"
	"github.com/dom/chess-web/internal/testutil"
)

func TestAuthService_Register(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	authService := service.NewAuthService(repos.User, repos.Session, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		input     service.RegisterInput
		setup     func()
		wantErr   error
		checkUser bool
	}{
		{
			name: "successful registration",
			input: service.RegisterInput{
				DisplayName: "newuser",
				Password:    "password123",
			},
			checkUser: true,
		},
		{
			name: "duplicate display name",
			input: service.RegisterInput{
				DisplayName: "existinguser",
				Password:    "password123",
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithDisplayName("existinguser").
					Build(t, testDB.DB)
			},
			wantErr: service.ErrDisplayNameExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testDB.Truncate(t)

			if tt.setup != nil {
				tt.setup()
			}

			result, err := authService.Register(ctx, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			if tt.checkUser {
				assert.NotNil(t, result.User)
				assert.Equal(t, tt.input.DisplayName, result.User.DisplayName)
				assert.NotEmpty(t, result.AccessToken)
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	authService := service.NewAuthService(repos.User, repos.Session, cfg)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   service.LoginInput
		wantErr error
	}{
		{
			name: "successful login",
			input: service.LoginInput{
				DisplayName: "loginuser",
				Password:    "correctpassword",
			},
		},
		{
			name: "wrong password",
			input: service.LoginInput{
				DisplayName: "loginuser",
				Password:    "wrongpassword",
			},
			wantErr: service.ErrInvalidCredentials,
		},
		{
			name: "unknown user",
			input: service.LoginInput{
				DisplayName: "ghost",
				Password:    "correctpassword",
			},
			wantErr: service.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testDB.Truncate(t)

			testutil.NewUserBuilder().
				WithDisplayName("loginuser").
				WithPassword("correctpassword").
				Build(t, testDB.DB)

			result, err := authService.Login(ctx, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.input.DisplayName, result.User.DisplayName)
			assert.NotEmpty(t, result.AccessToken)
		})
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	authService := service.NewAuthService(repos.User, repos.Session, cfg)
	ctx := context.Background()

	t.Run("valid token resolves the session", func(t *testing.T) {
		testDB.Truncate(t)

		result, err := authService.Register(ctx, service.RegisterInput{
			DisplayName: "sessionuser",
			Password:    "password123",
		})
		require.NoError(t, err)

		info, err := authService.ValidateSession(ctx, result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, info.UserID)
		assert.NotEqual(t, uuid.Nil, info.SessionID)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		testDB.Truncate(t)

		_, err := authService.ValidateSession(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, domain.ErrSessionInvalid)
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		testDB.Truncate(t)

		result, err := authService.Register(ctx, service.RegisterInput{
			DisplayName: "logoutuser",
			Password:    "password123",
		})
		require.NoError(t, err)

		info, err := authService.ValidateSession(ctx, result.AccessToken)
		require.NoError(t, err)

		require.NoError(t, authService.Logout(ctx, info.SessionID))

		_, err = authService.ValidateSession(ctx, result.AccessToken)
		assert.ErrorIs(t, err, domain.ErrSessionInvalid)
	})
}
