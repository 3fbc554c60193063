package domain

import (
	"errors"
)

var (
	MessageSuccessRegister       = "user registered successfully"
	MessageSuccessLogin          = "login success"
	MessageSuccessLogout         = "logout success"
	MessageSuccessGetMe          = "success get current user"
	MessageSuccessGetUser        = "success get user"
	MessageSuccessGetUsers       = "success get users"
	MessageSuccessSetPassword    = "password changed successfully"
	MessageSuccessForgotPassword = "password reset email sent"
	MessageSuccessResetPassword  = "password reset successfully"

	MessageFailedRegister       = "failed to register user"
	MessageFailedLogin          = "failed to login"
	MessageFailedGetUser        = "failed to get user"
	MessageFailedGetUsers       = "failed to get users"
	MessageFailedSetPassword    = "failed to change password"
	MessageFailedForgotPassword = "failed to send password reset email"
	MessageFailedResetPassword  = "failed to reset password"

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrCredentialsInvalid = errors.New("invalid email or password")
	ErrPasswordNotMatch   = errors.New("current password does not match")
)

type (
	RegisterRequest struct {
		Email     string `json:"email" validate:"required,email,max=254"`
		Username  string `json:"username" validate:"required,max=150"`
		FirstName string `json:"first_name" validate:"max=150"`
		LastName  string `json:"last_name" validate:"max=150"`
		Password  string `json:"password" validate:"required,min=8"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string       `json:"auth_token"`
		User  UserResponse `json:"user"`
	}

	SetPasswordRequest struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=8"`
	}

	ForgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	ResetPasswordRequest struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8"`
	}

	UserResponse struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		Username     string `json:"username"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		IsSubscribed bool   `json:"is_subscribed"`
	}

	UsersResponse struct {
		Users      []UserResponse `json:"users"`
		Pagination Pagination     `json:"pagination"`
	}
)
