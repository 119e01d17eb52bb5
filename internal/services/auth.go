package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tchtranslate/portal/internal/config"
	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/internal/utils"
	"github.com/tchtranslate/portal/pkg/logger"
	"github.com/tchtranslate/portal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = response.NewUnauthorized("invalid email or password")
	ErrUserDisabled       = response.NewUnauthorized("user is disabled")
	ErrTokenRevoked       = response.NewUnauthorized("token has been revoked")
	ErrInvalidToken       = response.NewUnauthorized("invalid or expired token")
)

type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, jwtConfig: jwtCfg}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	ExpireAt time.Time    `json:"expireAt"`
}

// Login checks credentials and issues a token carrying the user's current
// claims.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	hours := s.jwtConfig.ExpireHour
	token, err := utils.GenerateToken(claimsFor(&user), hours)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Str("uid", user.ID).Msg("[Auth] failed to record last login")
	}

	return &LoginResponse{
		Token:    token,
		User:     &user,
		ExpireAt: now.Add(time.Duration(hours) * time.Hour),
	}, nil
}

// Authenticate parses a bearer token and checks it against the stored
// user: the account must exist, be active, and still carry the claims
// version the token was issued with.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*utils.Claims, error) {
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}

	var user models.User
	err = s.db.WithContext(ctx).Select("id", "claims_version", "is_active").
		Where("id = ?", claims.UID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenRevoked
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	if user.ClaimsVersion != claims.Version {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// VerifyToken reports whether token would be accepted right now.
func (s *AuthService) VerifyToken(ctx context.Context, token string) bool {
	_, err := s.Authenticate(ctx, token)
	return err == nil
}

// CreateAdminIfNotExists seeds the first admin account on an empty users
// table.
func (s *AuthService) CreateAdminIfNotExists(cfg *config.AdminConfig) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := cfg.Password
	if password == "" {
		password = "admin123"
		logger.Warn().Str("email", cfg.Email).Msg("[Auth] seeding admin with the default password, change it")
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:         strings.ToLower(cfg.Email),
		Password:      hashed,
		Name:          "Administrator",
		Role:          models.RoleAdmin,
		Tenant:        cfg.Tenant,
		Department:    models.DepartmentAll,
		ClaimsVersion: 1,
		IsActive:      true,
	}
	return s.db.Create(&admin).Error
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func (s *AuthService) ChangePassword(ctx context.Context, uid string, req *ChangePasswordRequest) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return response.NewBadRequest("incorrect old password")
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&user).Update("password", hashed).Error
}

func claimsFor(u *models.User) utils.Claims {
	return utils.Claims{
		UID:        u.ID,
		Email:      u.Email,
		Role:       u.Role,
		Tenant:     u.Tenant,
		Department: u.Department,
		Version:    u.ClaimsVersion,
	}
}
