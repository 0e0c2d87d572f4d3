package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"cineverse/internal/auth"
	"cineverse/internal/config"
	"cineverse/internal/models"
	"cineverse/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AuthServiceTestSuite 覆盖注册、登录和凭据更新。
type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service AuthService
	cfg     config.Config
	ctx     context.Context
}

func (suite *AuthServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)

	sqlDB, err := db.DB()
	require.NoError(suite.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(suite.T(), db.AutoMigrate(&models.User{}))

	suite.db = db
	suite.ctx = context.Background()
	suite.cfg = config.Config{
		Auth: config.AuthConfig{
			JWTSecretKey: "test_jwt_secret_key",
			JWTExpiry:    time.Hour,
		},
	}
	suite.service = NewAuthService(storage.NewGormUserRepository(db), suite.cfg)
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *AuthServiceTestSuite) TestRegisterDerivesUsernameFromEmail() {
	t := suite.T()
	user, err := suite.service.Register(suite.ctx, "Alice.Wong@Example.COM", "secret123", "")
	require.NoError(t, err)

	assert.Equal(t, "alice.wong", user.Username)
	assert.Equal(t, "alice.wong@example.com", user.Email)
	// 昵称缺省时等于用户名
	assert.Equal(t, "alice.wong", user.DisplayName)
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func (suite *AuthServiceTestSuite) TestRegisterUsernameCollisionGetsSuffix() {
	t := suite.T()
	_, err := suite.service.Register(suite.ctx, "carol@one.com", "secret123", "")
	require.NoError(t, err)

	second, err := suite.service.Register(suite.ctx, "carol@two.com", "secret123", "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(second.Username, "carol-"))
	assert.NotEqual(t, "carol", second.Username)
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	t := suite.T()
	_, err := suite.service.Register(suite.ctx, "bob@example.com", "secret123", "")
	require.NoError(t, err)

	_, err = suite.service.Register(suite.ctx, "BOB@example.com", "other456", "")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func (suite *AuthServiceTestSuite) TestRegisterInvalidEmail() {
	t := suite.T()
	for _, bad := range []string{"", "no-at-sign", "@example.com", "trailing@"} {
		_, err := suite.service.Register(suite.ctx, bad, "secret123", "")
		assert.ErrorIs(t, err, ErrInvalidEmail, "email: %q", bad)
	}
}

func (suite *AuthServiceTestSuite) TestLoginByUsernameAndEmail() {
	t := suite.T()
	registered, err := suite.service.Register(suite.ctx, "dave@example.com", "secret123", "Dave")
	require.NoError(t, err)

	token, user, err := suite.service.Login(suite.ctx, "dave", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, registered.ID, user.ID)

	token, user, err = suite.service.Login(suite.ctx, "dave@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, registered.ID, user.ID)

	// 签发的令牌能通过校验并还原出用户身份
	claims, err := auth.ValidateToken(suite.ctx, token, suite.cfg.Auth.JWTSecretKey, nil)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, "dave", claims.Username)
}

func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	t := suite.T()
	_, err := suite.service.Register(suite.ctx, "eve@example.com", "secret123", "")
	require.NoError(t, err)

	_, _, err = suite.service.Login(suite.ctx, "eve", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLoginUnknownUser() {
	t := suite.T()
	_, _, err := suite.service.Login(suite.ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func (suite *AuthServiceTestSuite) TestUpdateCredentials() {
	t := suite.T()
	user, err := suite.service.Register(suite.ctx, "frank@example.com", "secret123", "")
	require.NoError(t, err)

	require.NoError(t, suite.service.UpdateCredentials(suite.ctx, user.ID, "frank@new.com", "newpass456"))

	// 旧密码失效，新邮箱和新密码生效
	_, _, err = suite.service.Login(suite.ctx, "frank@new.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = suite.service.Login(suite.ctx, "frank@new.com", "newpass456")
	assert.NoError(t, err)
}

func (suite *AuthServiceTestSuite) TestUpdateCredentialsEmailTaken() {
	t := suite.T()
	_, err := suite.service.Register(suite.ctx, "grace@example.com", "secret123", "")
	require.NoError(t, err)
	user, err := suite.service.Register(suite.ctx, "heidi@example.com", "secret123", "")
	require.NoError(t, err)

	err = suite.service.UpdateCredentials(suite.ctx, user.ID, "grace@example.com", "")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
