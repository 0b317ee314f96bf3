package service

import (
	"strings"
	"time"

	"github.com/moban-market/internal/config"
	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// JWT 主体角色
const (
	TokenRoleUser  = "user"
	TokenRoleAdmin = "admin"
)

// TokenClaims JWT 载荷
type TokenClaims struct {
	SubjectID uint   `json:"subject_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService 认证业务服务
type AuthService struct {
	cfg       *config.Config
	userRepo  repository.UserRepository
	adminRepo repository.AdminRepository
}

// NewAuthService 创建认证服务
func NewAuthService(cfg *config.Config, userRepo repository.UserRepository, adminRepo repository.AdminRepository) *AuthService {
	return &AuthService{
		cfg:       cfg,
		userRepo:  userRepo,
		adminRepo: adminRepo,
	}
}

// Register 注册用户并签发令牌
func (s *AuthService) Register(email, password, displayName string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(displayName),
		Status:       constants.UserStatusActive,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, "", err
	}
	token, err := s.issueToken(user.ID, TokenRoleUser)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login 用户登录
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if user.Status != constants.UserStatusActive {
		return nil, "", ErrUserDisabled
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(user.ID, now); err == nil {
		user.LastLoginAt = &now
	}
	token, err := s.issueToken(user.ID, TokenRoleUser)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// AdminLogin 管理员登录
func (s *AuthService) AdminLogin(username, password string) (*models.Admin, string, error) {
	admin, err := s.adminRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, "", err
	}
	if admin == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.adminRepo.UpdateLastLogin(admin.ID, now); err == nil {
		admin.LastLoginAt = &now
	}
	token, err := s.issueToken(admin.ID, TokenRoleAdmin)
	if err != nil {
		return nil, "", err
	}
	return admin, token, nil
}

// ParseToken 解析并校验令牌
func (s *AuthService) ParseToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.SubjectID == 0 || (claims.Role != TokenRoleUser && claims.Role != TokenRoleAdmin) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *AuthService) issueToken(subjectID uint, role string) (string, error) {
	expireHours := s.cfg.JWT.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}
	now := time.Now()
	claims := TokenClaims{
		SubjectID: subjectID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWT.SecretKey))
}
