package subscription

import (
	"context"
	"errors"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/pkg/recipe"
	"foodgram/pkg/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	SubscriptionService interface {
		Subscribe(ctx context.Context, userID, authorID string, recipesLimit int) (*domain.SubscriptionResponse, error)
		Unsubscribe(ctx context.Context, userID, authorID string) error
		GetSubscriptions(ctx context.Context, userID string, page, limit, recipesLimit int) (*domain.SubscriptionsResponse, error)
	}

	subscriptionService struct {
		userRepository   user.UserRepository
		recipeRepository recipe.RecipeRepository
	}
)

func NewSubscriptionService(userRepository user.UserRepository, recipeRepository recipe.RecipeRepository) SubscriptionService {
	return &subscriptionService{
		userRepository:   userRepository,
		recipeRepository: recipeRepository,
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, userID, authorID string, recipesLimit int) (*domain.SubscriptionResponse, error) {
	// self-subscription is rejected regardless of prior state
	if userID == authorID {
		return nil, domain.ErrSelfSubscription
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	author, err := s.userRepository.GetUserByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	subscribed, err := s.userRepository.IsSubscribed(ctx, userID, authorID)
	if err != nil {
		return nil, err
	}
	if subscribed {
		return nil, domain.ErrAlreadySubscribed
	}

	if err := s.userRepository.CreateSubscription(ctx, userUUID, author.ID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrAlreadySubscribed
		}
		return nil, err
	}

	return s.buildSubscriptionResponse(ctx, author, recipesLimit)
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, userID, authorID string) error {
	if _, err := s.userRepository.GetUserByID(ctx, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	subscribed, err := s.userRepository.IsSubscribed(ctx, userID, authorID)
	if err != nil {
		return err
	}
	if !subscribed {
		return domain.ErrNotSubscribed
	}

	return s.userRepository.DeleteSubscription(ctx, userID, authorID)
}

func (s *subscriptionService) GetSubscriptions(ctx context.Context, userID string, page, limit, recipesLimit int) (*domain.SubscriptionsResponse, error) {
	subscriptions, count, err := s.userRepository.GetSubscriptions(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	result := make([]domain.SubscriptionResponse, 0, len(subscriptions))
	for _, sub := range subscriptions {
		if sub.Author == nil {
			continue
		}
		res, err := s.buildSubscriptionResponse(ctx, sub.Author, recipesLimit)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}

	return &domain.SubscriptionsResponse{
		Subscriptions: result,
		Pagination: domain.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      count,
			TotalPages: (count + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

func (s *subscriptionService) buildSubscriptionResponse(ctx context.Context, author *entities.User, recipesLimit int) (*domain.SubscriptionResponse, error) {
	recipes, err := s.recipeRepository.GetRecipesByAuthor(ctx, author.ID.String(), recipesLimit)
	if err != nil {
		return nil, err
	}

	previews := make([]domain.RecipePreview, 0, len(recipes))
	for _, r := range recipes {
		previews = append(previews, recipe.RecipePreview(r))
	}

	recipesCount, err := s.recipeRepository.CountRecipesByAuthor(ctx, author.ID.String())
	if err != nil {
		return nil, err
	}

	return &domain.SubscriptionResponse{
		ID:           author.ID.String(),
		Email:        author.Email,
		Username:     author.Username,
		FirstName:    author.FirstName,
		LastName:     author.LastName,
		IsSubscribed: true,
		Recipes:      previews,
		RecipesCount: recipesCount,
	}, nil
}
