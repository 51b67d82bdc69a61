// Package auth 提供登录与系统用户管理
package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
	"github.com/dumeirei/hotel-pms-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// MinPasswordLength 密码最小长度
const MinPasswordLength = 8

// AuthService 认证服务
type AuthService struct {
	userRepo   *repository.UserRepository
	jwtManager *jwt.Manager
	hasher     *crypto.Hasher
	now        func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo *repository.UserRepository, jwtManager *jwt.Manager, hasher *crypto.Hasher) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		hasher:     hasher,
		now:        time.Now,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	User  *UserInfo  `json:"user"`
	Token *jwt.Token `json:"token"`
}

// UserInfo 用户信息（不含密码）
type UserInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
	Password *string `json:"password"`
}

// Login 用户名密码登录
// 用户不存在与密码错误返回同一错误
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPasswordError
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, errors.ErrPasswordError
	}
	if !user.Active {
		return nil, errors.ErrAccountDisabled
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	now := s.now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.Warn("failed to update last login", logger.UserID(user.ID), logger.Err(err))
	} else {
		user.LastLoginAt = &now
	}

	tracing.SetAttributes(ctx, tracing.WithUserID(user.ID))
	logger.Info("user logged in", logger.UserID(user.ID), logger.Actor(user.Username))
	return &LoginResponse{User: toUserInfo(user), Token: token}, nil
}

// GetUser 获取用户信息
func (s *AuthService) GetUser(ctx context.Context, id int64) (*UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, userError(err)
	}
	return toUserInfo(user), nil
}

// CreateUser 创建系统用户
func (s *AuthService) CreateUser(ctx context.Context, req *CreateUserRequest) (*UserInfo, error) {
	username := strings.TrimSpace(req.Username)
	fullName := strings.TrimSpace(req.FullName)
	if username == "" || fullName == "" {
		return nil, errors.ErrInvalidParams.WithMessage("username and full name are required")
	}
	if !validRole(req.Role) {
		return nil, errors.ErrInvalidParams.WithMessagef("invalid role: %s", req.Role)
	}
	if len(req.Password) < MinPasswordLength {
		return nil, errors.ErrInvalidParams.WithMessagef("password must be at least %d characters", MinPasswordLength)
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrUserExists
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         req.Role,
		Active:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	logger.Info("user created", logger.UserID(user.ID), logger.String("role", user.Role))
	return toUserInfo(user), nil
}

// UpdateUser 更新用户资料、角色、状态或密码
func (s *AuthService) UpdateUser(ctx context.Context, id int64, req *UpdateUserRequest) (*UserInfo, error) {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return nil, userError(err)
	}

	fields := make(map[string]interface{})
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, errors.ErrInvalidParams.WithMessage("full name cannot be empty")
		}
		fields["full_name"] = name
	}
	if req.Role != nil {
		if !validRole(*req.Role) {
			return nil, errors.ErrInvalidParams.WithMessagef("invalid role: %s", *req.Role)
		}
		fields["role"] = *req.Role
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if req.Password != nil {
		if len(*req.Password) < MinPasswordLength {
			return nil, errors.ErrInvalidParams.WithMessagef("password must be at least %d characters", MinPasswordLength)
		}
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, errors.ErrInternalError.WithError(err)
		}
		fields["password_hash"] = hash
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, id, fields); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
	}
	return s.GetUser(ctx, id)
}

// ListUsers 用户列表
func (s *AuthService) ListUsers(ctx context.Context, p *utils.Pagination) ([]*UserInfo, int64, error) {
	p.Normalize()
	users, total, err := s.userRepo.List(ctx, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}

	list := make([]*UserInfo, 0, len(users))
	for _, u := range users {
		list = append(list, toUserInfo(u))
	}
	return list, total, nil
}

// EnsureAdmin 用户表为空时创建初始管理员
// 未配置密码时跳过
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg *config.BootstrapConfig) (bool, error) {
	if cfg == nil || cfg.AdminPassword == "" {
		return false, nil
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return false, errors.ErrDatabaseError.WithError(err)
	}
	if count > 0 {
		return false, nil
	}

	fullName := cfg.AdminFullName
	if fullName == "" {
		fullName = "Administrator"
	}
	if _, err := s.CreateUser(ctx, &CreateUserRequest{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		FullName: fullName,
		Role:     jwt.RoleAdmin,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func validRole(role string) bool {
	return role == jwt.RoleAdmin || role == jwt.RoleReception
}

func userError(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrUserNotFound
	}
	return errors.ErrDatabaseError.WithError(err)
}

func toUserInfo(u *models.User) *UserInfo {
	return &UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName,
		Role:        u.Role,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
	}
}
