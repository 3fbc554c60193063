package domain

import (
	"errors"
)

var (
	MessageSuccessSubscribe        = "subscribed to author"
	MessageSuccessUnsubscribe      = "unsubscribed from author"
	MessageSuccessGetSubscriptions = "success get subscriptions"

	MessageFailedSubscribe        = "failed to subscribe"
	MessageFailedUnsubscribe      = "failed to unsubscribe"
	MessageFailedGetSubscriptions = "failed to get subscriptions"

	ErrSelfSubscription  = errors.New("you cannot subscribe to yourself")
	ErrAlreadySubscribed = errors.New("you are already subscribed to this author")
	ErrNotSubscribed     = errors.New("you are not subscribed to this author")
)

type (
	// SubscriptionResponse represents one followed author together with a
	// preview of their recipes. The preview list may be truncated by the
	// recipes_limit query parameter; RecipesCount always holds the full total.
	SubscriptionResponse struct {
		ID           string          `json:"id"`
		Email        string          `json:"email"`
		Username     string          `json:"username"`
		FirstName    string          `json:"first_name"`
		LastName     string          `json:"last_name"`
		IsSubscribed bool            `json:"is_subscribed"`
		Recipes      []RecipePreview `json:"recipes"`
		RecipesCount int64           `json:"recipes_count"`
	}

	SubscriptionsResponse struct {
		Subscriptions []SubscriptionResponse `json:"subscriptions"`
		Pagination    Pagination             `json:"pagination"`
	}
)
