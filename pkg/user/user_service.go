package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils/mailing"
	"foodgram/pkg/jwt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type (
	UserService interface {
		Register(ctx context.Context, req domain.RegisterRequest) (*domain.UserResponse, error)
		Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
		Me(ctx context.Context, userID string) (*domain.UserResponse, error)
		GetUser(ctx context.Context, requesterID, targetID string) (*domain.UserResponse, error)
		GetUsers(ctx context.Context, requesterID string, page, limit int) (*domain.UsersResponse, error)
		SetPassword(ctx context.Context, userID string, req domain.SetPasswordRequest) error
		ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error
		ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	}

	userService struct {
		userRepository UserRepository
		jwtService     jwt.JWTService
	}
)

func NewUserService(userRepository UserRepository, jwtService jwt.JWTService) UserService {
	return &userService{
		userRepository: userRepository,
		jwtService:     jwtService,
	}
}

func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.UserResponse, error) {
	exists, err := s.userRepository.CheckEmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrEmailAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := entities.User{
		ID:        uuid.New(),
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  string(hashed),
	}

	if err := s.userRepository.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrEmailAlreadyExists
		}
		return nil, err
	}

	res := UserResponse(&user, false)
	return &res, nil
}

func (s *userService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCredentialsInvalid
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, domain.ErrCredentialsInvalid
	}

	token := s.jwtService.GenerateTokenUser(user.ID.String())

	return &domain.LoginResponse{
		Token: token,
		User:  UserResponse(user, false),
	}, nil
}

func (s *userService) Me(ctx context.Context, userID string) (*domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	res := UserResponse(user, false)
	return &res, nil
}

func (s *userService) GetUser(ctx context.Context, requesterID, targetID string) (*domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	isSubscribed := false
	if requesterID != "" {
		isSubscribed, err = s.userRepository.IsSubscribed(ctx, requesterID, targetID)
		if err != nil {
			return nil, err
		}
	}

	res := UserResponse(user, isSubscribed)
	return &res, nil
}

func (s *userService) GetUsers(ctx context.Context, requesterID string, page, limit int) (*domain.UsersResponse, error) {
	users, count, err := s.userRepository.GetUsers(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	result := make([]domain.UserResponse, 0, len(users))
	for _, u := range users {
		isSubscribed := false
		if requesterID != "" {
			isSubscribed, err = s.userRepository.IsSubscribed(ctx, requesterID, u.ID.String())
			if err != nil {
				return nil, err
			}
		}
		result = append(result, UserResponse(u, isSubscribed))
	}

	return &domain.UsersResponse{
		Users: result,
		Pagination: domain.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      count,
			TotalPages: (count + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

func (s *userService) SetPassword(ctx context.Context, userID string, req domain.SetPasswordRequest) error {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return domain.ErrPasswordNotMatch
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.Password = string(hashed)
	return s.userRepository.UpdateUser(ctx, user)
}

func (s *userService) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	token, err := s.jwtService.GenerateTokenResetPassword(
		map[string]any{"email": user.Email}, 30*time.Minute,
	)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Use this token to reset your password:</p><p><b>%s</b></p>",
		user.Username, token,
	)
	return mailing.SendMail(user.Email, "Password reset", body)
}

func (s *userService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	claims, err := s.jwtService.ValidateTokenResetPassword(req.Token)
	if err != nil {
		return err
	}

	email, ok := claims["email"].(string)
	if !ok {
		return domain.ErrTokenInvalid
	}

	user, err := s.userRepository.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.Password = string(hashed)
	return s.userRepository.UpdateUser(ctx, user)
}

// UserResponse maps a user entity to its API representation.
func UserResponse(u *entities.User, isSubscribed bool) domain.UserResponse {
	return domain.UserResponse{
		ID:           u.ID.String(),
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: isSubscribed,
	}
}
