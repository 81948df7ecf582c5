package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryoner-gateway/config"
	"cryoner-gateway/internal/core/ports/mocks"
	"cryoner-gateway/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAuthService(t *testing.T) (*AuthServiceImpl, *mocks.MockHashService, *mocks.MockTokenService, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)

	admin := config.AdminConfig{
		Username:     "admin",
		PasswordHash: "$argon2id$stored",
	}
	svc := NewAuthService(admin, hashSvc, tokenSvc, testLogger())
	return svc, hashSvc, tokenSvc, ctrl
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, hashSvc, tokenSvc, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	expiry := time.Now().Add(time.Hour)
	hashSvc.EXPECT().Verify("hunter2", "$argon2id$stored").Return(true, nil)
	tokenSvc.EXPECT().Generate("admin").Return("signed.jwt", expiry, nil)

	token, expiresAt, err := svc.Login(context.Background(), "admin", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt", token)
	assert.Equal(t, expiry, expiresAt)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, hashSvc, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	hashSvc.EXPECT().Verify("wrong", "$argon2id$stored").Return(false, nil)

	_, _, err := svc.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, "AUTH_001"))
}

func TestAuthService_Login_WrongUsername(t *testing.T) {
	svc, hashSvc, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	// The password is still checked so both failure modes take the same path.
	hashSvc.EXPECT().Verify("hunter2", "$argon2id$stored").Return(true, nil)

	_, _, err := svc.Login(context.Background(), "intruder", "hunter2")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, "AUTH_001"))
}

func TestAuthService_Login_UnusableHash(t *testing.T) {
	svc, hashSvc, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	hashSvc.EXPECT().Verify("hunter2", "$argon2id$stored").Return(false, errors.New("invalid hash format"))

	_, _, err := svc.Login(context.Background(), "admin", "hunter2")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, "SYS_001"))
}

func TestAuthService_Login_TokenFailure(t *testing.T) {
	svc, hashSvc, tokenSvc, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	hashSvc.EXPECT().Verify("hunter2", "$argon2id$stored").Return(true, nil)
	tokenSvc.EXPECT().Generate("admin").Return("", time.Time{}, errors.New("signing failed"))

	_, _, err := svc.Login(context.Background(), "admin", "hunter2")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, "SYS_001"))
}
