package recipe

import (
	"context"
	"errors"
	"testing"

	"foodgram/domain"
	"foodgram/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRecipeRepository struct {
	recipes   map[string]*entities.Recipe
	joins     []*entities.IngredientRecipe
	favorites map[string]bool
	carts     map[string]bool
	cartRows  []*entities.IngredientRecipe
}

func newFakeRecipeRepository() *fakeRecipeRepository {
	return &fakeRecipeRepository{
		recipes:   make(map[string]*entities.Recipe),
		favorites: make(map[string]bool),
		carts:     make(map[string]bool),
	}
}

func pairKey(a, b string) string { return a + "|" + b }

func (f *fakeRecipeRepository) CreateRecipe(_ context.Context, recipe *entities.Recipe) error {
	f.recipes[recipe.ID.String()] = recipe
	return nil
}

func (f *fakeRecipeRepository) GetRecipeByID(_ context.Context, id string) (*entities.Recipe, error) {
	recipe, ok := f.recipes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return recipe, nil
}

func (f *fakeRecipeRepository) UpdateRecipe(_ context.Context, recipe *entities.Recipe) error {
	f.recipes[recipe.ID.String()] = recipe
	return nil
}

func (f *fakeRecipeRepository) ReplaceTags(_ context.Context, recipe *entities.Recipe, tags []entities.Tag) error {
	recipe.Tags = tags
	return nil
}

func (f *fakeRecipeRepository) DeleteRecipe(_ context.Context, id string) error {
	delete(f.recipes, id)
	return nil
}

func (f *fakeRecipeRepository) GetRecipes(_ context.Context, _ domain.RecipeFilter, _ string, _, _ int) ([]*entities.Recipe, int64, error) {
	var all []*entities.Recipe
	for _, r := range f.recipes {
		all = append(all, r)
	}
	return all, int64(len(all)), nil
}

func (f *fakeRecipeRepository) GetRecipesByAuthor(_ context.Context, authorID string, limit int) ([]*entities.Recipe, error) {
	var result []*entities.Recipe
	for _, r := range f.recipes {
		if r.AuthorID.String() == authorID {
			result = append(result, r)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeRecipeRepository) CountRecipesByAuthor(_ context.Context, authorID string) (int64, error) {
	var count int64
	for _, r := range f.recipes {
		if r.AuthorID.String() == authorID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRecipeRepository) CreateRecipeIngredient(_ context.Context, row *entities.IngredientRecipe) error {
	f.joins = append(f.joins, row)
	return nil
}

func (f *fakeRecipeRepository) GetRecipeIngredients(_ context.Context, recipeID string) ([]*entities.IngredientRecipe, error) {
	var rows []*entities.IngredientRecipe
	for _, row := range f.joins {
		if row.RecipeID.String() == recipeID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeRecipeRepository) UpdateRecipeIngredientAmount(_ context.Context, recipeID, ingredientID string, amount int) (int64, error) {
	var affected int64
	for _, row := range f.joins {
		if row.RecipeID.String() == recipeID && row.IngredientID.String() == ingredientID {
			row.Amount = amount
			affected++
		}
	}
	return affected, nil
}

func (f *fakeRecipeRepository) AddFavorite(_ context.Context, userID, recipeID uuid.UUID) error {
	key := pairKey(userID.String(), recipeID.String())
	if f.favorites[key] {
		return gorm.ErrDuplicatedKey
	}
	f.favorites[key] = true
	return nil
}

func (f *fakeRecipeRepository) RemoveFavorite(_ context.Context, userID, recipeID string) error {
	delete(f.favorites, pairKey(userID, recipeID))
	return nil
}

func (f *fakeRecipeRepository) IsFavorited(_ context.Context, userID, recipeID string) (bool, error) {
	return f.favorites[pairKey(userID, recipeID)], nil
}

func (f *fakeRecipeRepository) AddToCart(_ context.Context, userID, recipeID uuid.UUID) error {
	key := pairKey(userID.String(), recipeID.String())
	if f.carts[key] {
		return gorm.ErrDuplicatedKey
	}
	f.carts[key] = true
	return nil
}

func (f *fakeRecipeRepository) RemoveFromCart(_ context.Context, userID, recipeID string) error {
	delete(f.carts, pairKey(userID, recipeID))
	return nil
}

func (f *fakeRecipeRepository) IsInCart(_ context.Context, userID, recipeID string) (bool, error) {
	return f.carts[pairKey(userID, recipeID)], nil
}

func (f *fakeRecipeRepository) GetCartIngredients(_ context.Context, _ string) ([]*entities.IngredientRecipe, error) {
	return f.cartRows, nil
}

type stubUserRepository struct {
	users map[string]*entities.User
	subs  map[string]bool
}

func (s *stubUserRepository) CreateUser(_ context.Context, user *entities.User) error { return nil }

func (s *stubUserRepository) GetUserByID(_ context.Context, id string) (*entities.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepository) GetUserByEmail(_ context.Context, _ string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) GetUsers(_ context.Context, _, _ int) ([]*entities.User, int64, error) {
	return nil, 0, nil
}

func (s *stubUserRepository) UpdateUser(_ context.Context, _ *entities.User) error { return nil }

func (s *stubUserRepository) CheckEmailExists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (s *stubUserRepository) CreateSubscription(_ context.Context, userID, authorID uuid.UUID) error {
	s.subs[pairKey(userID.String(), authorID.String())] = true
	return nil
}

func (s *stubUserRepository) DeleteSubscription(_ context.Context, userID, authorID string) error {
	delete(s.subs, pairKey(userID, authorID))
	return nil
}

func (s *stubUserRepository) IsSubscribed(_ context.Context, userID, authorID string) (bool, error) {
	return s.subs[pairKey(userID, authorID)], nil
}

func (s *stubUserRepository) GetSubscriptions(_ context.Context, _ string, _, _ int) ([]*entities.Subscription, int64, error) {
	return nil, 0, nil
}

type stubTagRepository struct {
	tags map[string]entities.Tag
}

func (s *stubTagRepository) GetTags(_ context.Context) ([]*entities.Tag, error) { return nil, nil }

func (s *stubTagRepository) GetTagByID(_ context.Context, _ string) (*entities.Tag, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubTagRepository) GetTagsByIDs(_ context.Context, ids []uuid.UUID) ([]entities.Tag, error) {
	var result []entities.Tag
	for _, id := range ids {
		if tag, ok := s.tags[id.String()]; ok {
			result = append(result, tag)
		}
	}
	return result, nil
}

func (s *stubTagRepository) CreateTag(_ context.Context, _ *entities.Tag) error { return nil }

type stubIngredientRepository struct {
	ingredients map[string]entities.Ingredient
}

func (s *stubIngredientRepository) GetIngredients(_ context.Context, _ string) ([]*entities.Ingredient, error) {
	return nil, nil
}

func (s *stubIngredientRepository) GetIngredientByID(_ context.Context, _ string) (*entities.Ingredient, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubIngredientRepository) GetIngredientsByIDs(_ context.Context, ids []uuid.UUID) ([]entities.Ingredient, error) {
	var result []entities.Ingredient
	for _, id := range ids {
		if ing, ok := s.ingredients[id.String()]; ok {
			result = append(result, ing)
		}
	}
	return result, nil
}

func (s *stubIngredientRepository) CreateIngredient(_ context.Context, _ *entities.Ingredient) error {
	return nil
}

type stubS3 struct{}

func (stubS3) UploadImage(_ context.Context, folder string, _ []byte, _ string) (string, error) {
	return "https://example.test/" + folder + "/image.png", nil
}

type recipeFixture struct {
	service        RecipeService
	recipeRepo     *fakeRecipeRepository
	userRepo       *stubUserRepository
	tagRepo        *stubTagRepository
	ingredientRepo *stubIngredientRepository

	author   *entities.User
	tag      entities.Tag
	flour    entities.Ingredient
	sugar    entities.Ingredient
	userID   string
	authorID string
}

func newRecipeFixture() *recipeFixture {
	author := &entities.User{
		ID:       uuid.New(),
		Email:    "author@example.com",
		Username: "author",
	}
	tag := entities.Tag{ID: uuid.New(), Name: "breakfast", Color: "#E26C2D", Slug: "breakfast"}
	flour := entities.Ingredient{ID: uuid.New(), Name: "flour", MeasurementUnit: "g"}
	sugar := entities.Ingredient{ID: uuid.New(), Name: "sugar", MeasurementUnit: "g"}

	recipeRepo := newFakeRecipeRepository()
	userRepo := &stubUserRepository{
		users: map[string]*entities.User{author.ID.String(): author},
		subs:  make(map[string]bool),
	}
	tagRepo := &stubTagRepository{tags: map[string]entities.Tag{tag.ID.String(): tag}}
	ingredientRepo := &stubIngredientRepository{ingredients: map[string]entities.Ingredient{
		flour.ID.String(): flour,
		sugar.ID.String(): sugar,
	}}

	return &recipeFixture{
		service:        NewRecipeService(recipeRepo, userRepo, tagRepo, ingredientRepo, stubS3{}),
		recipeRepo:     recipeRepo,
		userRepo:       userRepo,
		tagRepo:        tagRepo,
		ingredientRepo: ingredientRepo,
		author:         author,
		tag:            tag,
		flour:          flour,
		sugar:          sugar,
		userID:         uuid.NewString(),
		authorID:       author.ID.String(),
	}
}

func (f *recipeFixture) seedRecipe() *entities.Recipe {
	recipe := &entities.Recipe{
		ID:          uuid.New(),
		AuthorID:    f.author.ID,
		Name:        "pancakes",
		Text:        "mix and fry",
		CookingTime: 15,
		Author:      f.author,
		Tags:        []entities.Tag{f.tag},
	}
	f.recipeRepo.recipes[recipe.ID.String()] = recipe
	return recipe
}

func TestCreateRecipe(t *testing.T) {
	f := newRecipeFixture()

	req := domain.CreateRecipeRequest{
		Name:        "pancakes",
		Text:        "mix and fry",
		CookingTime: 15,
		Tags:        []string{f.tag.ID.String()},
		Ingredients: []domain.RecipeIngredientRequest{
			{ID: f.flour.ID.String(), Amount: 200},
			{ID: f.sugar.ID.String(), Amount: 50},
		},
	}

	res, err := f.service.CreateRecipe(context.Background(), req, f.authorID)
	if err != nil {
		t.Fatalf("CreateRecipe() error = %v", err)
	}
	if res.Name != "pancakes" || res.CookingTime != 15 {
		t.Errorf("CreateRecipe() = %q/%d, want pancakes/15", res.Name, res.CookingTime)
	}
	if len(res.Tags) != 1 || res.Tags[0].Slug != "breakfast" {
		t.Errorf("CreateRecipe() tags = %+v, want one breakfast tag", res.Tags)
	}
	if len(res.Ingredients) != 2 {
		t.Fatalf("CreateRecipe() ingredients = %d, want 2", len(res.Ingredients))
	}
	if res.Author.ID != f.authorID {
		t.Errorf("CreateRecipe() author = %s, want %s", res.Author.ID, f.authorID)
	}
	if len(f.recipeRepo.joins) != 2 {
		t.Errorf("join rows = %d, want 2", len(f.recipeRepo.joins))
	}
}

func TestCreateRecipeUnknownTag(t *testing.T) {
	f := newRecipeFixture()

	req := domain.CreateRecipeRequest{
		Name:        "pancakes",
		Text:        "mix and fry",
		CookingTime: 15,
		Tags:        []string{uuid.NewString()},
		Ingredients: []domain.RecipeIngredientRequest{
			{ID: f.flour.ID.String(), Amount: 200},
		},
	}

	if _, err := f.service.CreateRecipe(context.Background(), req, f.authorID); !errors.Is(err, domain.ErrTagNotFound) {
		t.Errorf("CreateRecipe() error = %v, want ErrTagNotFound", err)
	}
}

func TestCreateRecipeUnknownIngredient(t *testing.T) {
	f := newRecipeFixture()

	req := domain.CreateRecipeRequest{
		Name:        "pancakes",
		Text:        "mix and fry",
		CookingTime: 15,
		Tags:        []string{f.tag.ID.String()},
		Ingredients: []domain.RecipeIngredientRequest{
			{ID: uuid.NewString(), Amount: 10},
		},
	}

	if _, err := f.service.CreateRecipe(context.Background(), req, f.authorID); !errors.Is(err, domain.ErrIngredientNotFound) {
		t.Errorf("CreateRecipe() error = %v, want ErrIngredientNotFound", err)
	}
}

func TestUpdateRecipeAuthorOnly(t *testing.T) {
	f := newRecipeFixture()
	recipe := f.seedRecipe()

	name := "waffles"
	req := domain.UpdateRecipeRequest{Name: &name}

	if _, err := f.service.UpdateRecipe(context.Background(), recipe.ID.String(), req, f.userID); !errors.Is(err, domain.ErrNotRecipeAuthor) {
		t.Fatalf("UpdateRecipe() as stranger error = %v, want ErrNotRecipeAuthor", err)
	}

	res, err := f.service.UpdateRecipe(context.Background(), recipe.ID.String(), req, f.authorID)
	if err != nil {
		t.Fatalf("UpdateRecipe() as author error = %v", err)
	}
	if res.Name != "waffles" {
		t.Errorf("UpdateRecipe() name = %q, want waffles", res.Name)
	}
}

func TestUpdateRecipeIngredientUpsert(t *testing.T) {
	f := newRecipeFixture()
	recipe := f.seedRecipe()
	f.recipeRepo.joins = append(f.recipeRepo.joins, &entities.IngredientRecipe{
		ID:           uuid.New(),
		RecipeID:     recipe.ID,
		IngredientID: f.flour.ID,
		Amount:       100,
	})

	ingredients := []domain.RecipeIngredientRequest{
		{ID: f.flour.ID.String(), Amount: 250}, // existing pair, amount changes
		{ID: f.sugar.ID.String(), Amount: 50},  // new pair, row gets created
	}
	req := domain.UpdateRecipeRequest{Ingredients: &ingredients}

	if _, err := f.service.UpdateRecipe(context.Background(), recipe.ID.String(), req, f.authorID); err != nil {
		t.Fatalf("UpdateRecipe() error = %v", err)
	}

	if len(f.recipeRepo.joins) != 2 {
		t.Fatalf("join rows = %d, want 2", len(f.recipeRepo.joins))
	}
	for _, row := range f.recipeRepo.joins {
		switch row.IngredientID {
		case f.flour.ID:
			if row.Amount != 250 {
				t.Errorf("flour amount = %d, want 250", row.Amount)
			}
		case f.sugar.ID:
			if row.Amount != 50 {
				t.Errorf("sugar amount = %d, want 50", row.Amount)
			}
		}
	}
}

func TestDeleteRecipe(t *testing.T) {
	f := newRecipeFixture()
	recipe := f.seedRecipe()

	tests := []struct {
		name     string
		recipeID string
		userID   string
		wantErr  error
	}{
		{"stranger", recipe.ID.String(), f.userID, domain.ErrNotRecipeAuthor},
		{"unknown recipe", uuid.NewString(), f.authorID, domain.ErrRecipeNotFound},
		{"author", recipe.ID.String(), f.authorID, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.service.DeleteRecipe(context.Background(), tt.recipeID, tt.userID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeleteRecipe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, ok := f.recipeRepo.recipes[recipe.ID.String()]; ok {
		t.Errorf("recipe still present after delete")
	}
}

func TestFavorite(t *testing.T) {
	f := newRecipeFixture()
	recipe := f.seedRecipe()

	preview, err := f.service.Favorite(context.Background(), recipe.ID.String(), f.userID)
	if err != nil {
		t.Fatalf("Favorite() error = %v", err)
	}
	if preview.ID != recipe.ID.String() || preview.Name != recipe.Name {
		t.Errorf("Favorite() preview = %+v, want recipe short form", preview)
	}

	if _, err := f.service.Favorite(context.Background(), recipe.ID.String(), f.userID); !errors.Is(err, domain.ErrAlreadyFavorited) {
		t.Errorf("second Favorite() error = %v, want ErrAlreadyFavorited", err)
	}

	if _, err := f.service.Favorite(context.Background(), uuid.NewString(), f.userID); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("Favorite() unknown recipe error = %v, want ErrRecipeNotFound", err)
	}
}

func TestUnfavorite(t *testing.T) {
	f := newRecipeFixture()
	recipe := f.seedRecipe()

	if err := f.service.Unfavorite(context.Background(), recipe.ID.String(), f.userID); !errors.Is(err, domain.ErrNotFavorited) {
		t.Errorf("Unfavorite() without favorite error = %v, want ErrNotFavorited", err)
	}

	if _, err := f.service.Favorite(context.Background(), recipe.ID.String(), f.userID); err != nil {
		t.Fatalf("Favorite() error = %v", err)
	}
	if err := f.service.Unfavorite(context.Background(), recipe.ID.String(), f.userID); err != nil {
		t.Errorf("Unfavorite() error = %v", err)
	}
}

func TestShoppingCart(t *testing.T) {
	f := newRecipeFixture()
	recipe := f.seedRecipe()

	if err := f.service.RemoveFromShoppingCart(context.Background(), recipe.ID.String(), f.userID); !errors.Is(err, domain.ErrNotInCart) {
		t.Errorf("RemoveFromShoppingCart() empty cart error = %v, want ErrNotInCart", err)
	}

	if _, err := f.service.AddToShoppingCart(context.Background(), recipe.ID.String(), f.userID); err != nil {
		t.Fatalf("AddToShoppingCart() error = %v", err)
	}
	if _, err := f.service.AddToShoppingCart(context.Background(), recipe.ID.String(), f.userID); !errors.Is(err, domain.ErrAlreadyInCart) {
		t.Errorf("second AddToShoppingCart() error = %v, want ErrAlreadyInCart", err)
	}
	if err := f.service.RemoveFromShoppingCart(context.Background(), recipe.ID.String(), f.userID); err != nil {
		t.Errorf("RemoveFromShoppingCart() error = %v", err)
	}
}

func TestGetShoppingListAggregation(t *testing.T) {
	f := newRecipeFixture()

	flour := f.flour
	sugar := f.sugar
	f.recipeRepo.cartRows = []*entities.IngredientRecipe{
		{IngredientID: flour.ID, Amount: 200, Ingredient: &flour},
		{IngredientID: sugar.ID, Amount: 50, Ingredient: &sugar},
		{IngredientID: flour.ID, Amount: 300, Ingredient: &flour},
	}

	items, err := f.service.GetShoppingList(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("GetShoppingList() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("GetShoppingList() items = %d, want 2", len(items))
	}
	if items[0].Name != "flour" || items[0].Amount != 500 {
		t.Errorf("items[0] = %+v, want flour 500", items[0])
	}
	if items[1].Name != "sugar" || items[1].Amount != 50 {
		t.Errorf("items[1] = %+v, want sugar 50", items[1])
	}
}

func TestFormatShoppingList(t *testing.T) {
	items := []domain.ShoppingListItem{
		{Name: "flour", MeasurementUnit: "g", Amount: 500},
		{Name: "milk", MeasurementUnit: "ml", Amount: 250},
	}

	got := FormatShoppingList(items)
	want := "Shopping list:\n\nflour - 500 g\nmilk - 250 ml"
	if got != want {
		t.Errorf("FormatShoppingList() = %q, want %q", got, want)
	}
}

func TestGetRecipeDetailAnonymous(t *testing.T) {
	f := newRecipeFixture()
	recipe := f.seedRecipe()
	f.recipeRepo.favorites[pairKey(f.userID, recipe.ID.String())] = true

	res, err := f.service.GetRecipeDetail(context.Background(), recipe.ID.String(), "")
	if err != nil {
		t.Fatalf("GetRecipeDetail() error = %v", err)
	}
	if res.IsFavorited || res.IsInShoppingCart {
		t.Errorf("anonymous detail flags = %v/%v, want false/false", res.IsFavorited, res.IsInShoppingCart)
	}
	if res.Author.IsSubscribed {
		t.Errorf("anonymous author.is_subscribed = true, want false")
	}

	if _, err := f.service.GetRecipeDetail(context.Background(), uuid.NewString(), ""); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("GetRecipeDetail() unknown error = %v, want ErrRecipeNotFound", err)
	}
}
