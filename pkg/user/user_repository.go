package user

import (
	"context"
	"errors"

	"foodgram/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	UserRepository interface {
		CreateUser(ctx context.Context, user *entities.User) error
		GetUserByID(ctx context.Context, id string) (*entities.User, error)
		GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
		GetUsers(ctx context.Context, page, limit int) ([]*entities.User, int64, error)
		UpdateUser(ctx context.Context, user *entities.User) error
		CheckEmailExists(ctx context.Context, email string) (bool, error)

		// Subscription rows live here: a follow is a relation between users.
		CreateSubscription(ctx context.Context, userID, authorID uuid.UUID) error
		DeleteSubscription(ctx context.Context, userID, authorID string) error
		IsSubscribed(ctx context.Context, userID, authorID string) (bool, error)
		GetSubscriptions(ctx context.Context, userID string, page, limit int) ([]*entities.Subscription, int64, error)
	}

	userRepository struct {
		db *gorm.DB
	}
)

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *entities.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUsers(ctx context.Context, page, limit int) ([]*entities.User, int64, error) {
	var users []*entities.User
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(limit).
		Order("created_at asc").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, count, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *entities.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) CreateSubscription(ctx context.Context, userID, authorID uuid.UUID) error {
	subscription := entities.Subscription{
		ID:       uuid.New(),
		UserID:   userID,
		AuthorID: authorID,
	}
	return r.db.WithContext(ctx).Create(&subscription).Error
}

func (r *userRepository) DeleteSubscription(ctx context.Context, userID, authorID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&entities.Subscription{}).Error
}

func (r *userRepository) IsSubscribed(ctx context.Context, userID, authorID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) GetSubscriptions(ctx context.Context, userID string, page, limit int) ([]*entities.Subscription, int64, error) {
	var subscriptions []*entities.Subscription
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.Subscription{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("user_id = ?", userID).
		Offset(offset).
		Limit(limit).
		Order("created_at desc").
		Find(&subscriptions).Error; err != nil {
		return nil, 0, err
	}

	return subscriptions, count, nil
}
