package services

import (
	"testing"

	"cardkeeper-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthService(t *testing.T) (*AuthService, *CategoryService) {
	t.Helper()

	db := setupTestDB(t)
	categories := NewCategoryService(db)
	return NewAuthService(db, categories), categories
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	auth, categories := setupAuthService(t)

	user, err := auth.Register(&models.UserRegisterRequest{
		Username: "zhangsan",
		Email:    "zhangsan@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	// 注册时同步创建默认分类
	list, err := categories.GetUserCategories(user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)

	logged, err := auth.Login(&models.UserLoginRequest{
		Email:    "zhangsan@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	auth, _ := setupAuthService(t)

	req := &models.UserRegisterRequest{
		Username: "zhangsan",
		Email:    "zhangsan@example.com",
		Password: "secret123",
	}
	_, err := auth.Register(req)
	require.NoError(t, err)

	_, err = auth.Register(req)
	assert.ErrorIs(t, err, ErrUserExists)

	// 用户名相同邮箱不同也算重复
	_, err = auth.Register(&models.UserRegisterRequest{
		Username: "zhangsan",
		Email:    "other@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	auth, _ := setupAuthService(t)

	_, err := auth.Register(&models.UserRegisterRequest{
		Username: "zhangsan",
		Email:    "zhangsan@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	_, err = auth.Login(&models.UserLoginRequest{
		Email:    "zhangsan@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(&models.UserLoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
