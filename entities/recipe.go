package entities

import (
	"github.com/google/uuid"
	"time"
)

type Recipe struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	AuthorID    uuid.UUID `gorm:"not null" json:"author_id"`
	Name        string    `gorm:"not null" json:"name"`
	Image       string    `json:"image,omitempty"`
	Text        string    `gorm:"type:text" json:"text"`
	CookingTime int       `gorm:"not null" json:"cooking_time"` // minutes, > 0
	PubDate     time.Time `gorm:"type:timestamp;autoCreateTime" json:"pub_date"`

	Author *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Tags   []Tag `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE"`
	Timestamp
}

// IngredientRecipe links one recipe to one ingredient with a quantity.
// Rows are removed together with their recipe.
type IngredientRecipe struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	RecipeID     uuid.UUID `gorm:"uniqueIndex:idx_ingredient_recipes_pair" json:"recipe_id"`
	IngredientID uuid.UUID `gorm:"uniqueIndex:idx_ingredient_recipes_pair" json:"ingredient_id"`
	Amount       int       `gorm:"not null" json:"amount"` // > 0

	Recipe     *Recipe     `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Ingredient *Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
}

type Favorite struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID   uuid.UUID `gorm:"uniqueIndex:idx_favorites_user_recipe" json:"user_id"`
	RecipeID uuid.UUID `gorm:"uniqueIndex:idx_favorites_user_recipe" json:"recipe_id"`

	User   *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe *Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Timestamp
}

type ShoppingCart struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID   uuid.UUID `gorm:"uniqueIndex:idx_shopping_carts_user_recipe" json:"user_id"`
	RecipeID uuid.UUID `gorm:"uniqueIndex:idx_shopping_carts_user_recipe" json:"recipe_id"`

	User   *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe *Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Timestamp
}
