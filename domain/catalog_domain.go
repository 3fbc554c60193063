package domain

import (
	"errors"
)

var (
	MessageSuccessGetTags        = "success get tags"
	MessageSuccessGetTag         = "success get tag"
	MessageSuccessGetIngredients = "success get ingredients"
	MessageSuccessGetIngredient  = "success get ingredient"

	MessageFailedGetTags        = "failed to get tags"
	MessageFailedGetTag         = "failed to get tag"
	MessageFailedGetIngredients = "failed to get ingredients"
	MessageFailedGetIngredient  = "failed to get ingredient"

	ErrTagNotFound        = errors.New("tag not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
)

type (
	TagResponse struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Slug  string `json:"slug"`
	}

	IngredientResponse struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}
)
