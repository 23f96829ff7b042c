// internal/services/user_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/utils"
)

var (
	ErrUserExists      = errors.New("username already taken")
	ErrInvalidPassword = errors.New("invalid password")
)

// UserService manages staff accounts. Only admins reach it, except for
// ChangePassword.
type UserService struct {
	db *gorm.DB
}

type CreateUserRequest struct {
	Username   string      `json:"username" validate:"required,username"`
	FullName   string      `json:"full_name" validate:"required,max=255"`
	Email      string      `json:"email" validate:"omitempty,email"`
	Password   string      `json:"password" validate:"required,min=8"`
	Role       models.Role `json:"role" validate:"required,role"`
	ProvinceID *uint       `json:"province_id"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type UpdateUserStatusRequest struct {
	Status models.UserStatus `json:"status" validate:"required,oneof=active suspended"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Create registers a staff account. Province roles must name the province
// they submit for.
func (s *UserService) Create(req *CreateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Role.IsProvince() && req.ProvinceID == nil {
		return nil, errors.New("province roles require a province")
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	user := &models.User{
		Username:   req.Username,
		FullName:   req.FullName,
		Email:      req.Email,
		Role:       req.Role,
		ProvinceID: req.ProvinceID,
		Status:     models.UserStatusActive,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *UserService) List(role models.Role, params utils.PaginationParams) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("username ILIKE ? OR full_name ILIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	query = utils.ApplySort(query, params, []string{"created_at", "username", "role"})
	if err := utils.ApplyPagination(query, params).Preload("Province").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *UserService) SetStatus(userID uuid.UUID, status models.UserStatus) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update user status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) ChangePassword(userID uuid.UUID, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return ErrInvalidPassword
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Model(&user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
