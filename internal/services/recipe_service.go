// Package services – RecipeService
//
// This file implements RecipeService, which owns the recipe lifecycle:
// listing with per-viewer flags, authoring with ingredient validation,
// owner-only updates and deletes, and short-link resolution. Images are
// written to object storage before the transaction and removed again when
// the transaction fails; replaced images are removed after commit.
//
// Observability: public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/events"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/storage"
)

// RecipeView is a recipe with the flags relative to one viewer.
type RecipeView struct {
	domain.Recipe
	IsFavorited      bool
	IsInShoppingCart bool
	AuthorSubscribed bool
}

// RecipeQuery holds list filters. Favorited and InCart apply to the viewer
// and match nothing for anonymous viewers.
type RecipeQuery struct {
	AuthorID  uint
	Favorited bool
	InCart    bool
}

// RecipeService coordinates recipe persistence, validation and media.
type RecipeService struct {
	DB     *gorm.DB
	Store  storage.Store
	Events events.Publisher

	MaxImageBytes int64
}

// NewRecipeService constructs a RecipeService. A nil publisher discards events.
func NewRecipeService(db *gorm.DB, store storage.Store, pub events.Publisher, maxImageBytes int64) *RecipeService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &RecipeService{DB: db, Store: store, Events: pub, MaxImageBytes: maxImageBytes}
}

func (s *RecipeService) validator() RecipeValidator {
	return RecipeValidator{
		MaxImageBytes: s.MaxImageBytes,
		Lookup: func(ctx context.Context, ids []uint) (map[uint]bool, error) {
			return repo.ExistingIngredientIDs(ctx, s.DB, ids)
		},
	}
}

// ListPage returns one page of recipes newest first and the total count.
func (s *RecipeService) ListPage(ctx context.Context, viewerID uint, q RecipeQuery, page, pageSize int) ([]RecipeView, int64, error) {
	tr := otel.Tracer("services/RecipeService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int64("viewer.id", int64(viewerID)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if (q.Favorited || q.InCart) && viewerID == 0 {
		return []RecipeView{}, 0, nil
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 6
	}

	f := repo.RecipeFilter{AuthorID: q.AuthorID}
	if q.Favorited {
		f.FavoritedBy = viewerID
	}
	if q.InCart {
		f.InCartOf = viewerID
	}

	total, err := repo.CountRecipes(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []RecipeView{}, 0, nil
	}
	items, err := repo.ListRecipesPage(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.decorate(ctx, viewerID, items)
	return views, total, err
}

// Get returns one recipe with viewer flags.
func (s *RecipeService) Get(ctx context.Context, viewerID, id uint) (*RecipeView, error) {
	tr := otel.Tracer("services/RecipeService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("recipe.id", int64(id))),
	)
	defer span.End()

	r, err := repo.GetRecipe(ctx, s.DB, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	views, err := s.decorate(ctx, viewerID, []domain.Recipe{*r})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Brief returns the recipe row without relations.
func (s *RecipeService) Brief(ctx context.Context, id uint) (*domain.Recipe, error) {
	r, err := repo.GetRecipeBrief(ctx, s.DB, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return r, nil
}

// Create validates in and stores a new recipe authored by authorID.
func (s *RecipeService) Create(ctx context.Context, authorID uint, in RecipeInput) (*RecipeView, error) {
	tr := otel.Tracer("services/RecipeService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("author.id", int64(authorID))),
	)
	defer span.End()

	draft, err := s.validator().Validate(ctx, in, false)
	if err != nil {
		return nil, err
	}

	key, err := putImage(ctx, s.Store, recipeImageFolder, draft.Image)
	if err != nil {
		return nil, err
	}

	rec := &domain.Recipe{
		AuthorID:    authorID,
		Name:        draft.Name,
		Text:        draft.Text,
		CookingTime: draft.CookingTime,
		Image:       key,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.CreateRecipe(ctx, tx, rec, draft.Lines)
	})
	if err != nil {
		discardImage(ctx, s.Store, key)
		if repo.IsDuplicate(err) {
			return nil, fieldError("ingredients", "ingredients must not repeat")
		}
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	s.publish(ctx, events.New(events.RecipeCreated, map[string]any{
		"recipe_id": rec.ID,
		"author_id": authorID,
	}))
	return s.Get(ctx, authorID, rec.ID)
}

// Update replaces the authorable fields of a recipe owned by authorID.
// Recipes that are missing or owned by someone else yield ErrRecipeNotFound.
func (s *RecipeService) Update(ctx context.Context, authorID, id uint, in RecipeInput) (*RecipeView, error) {
	tr := otel.Tracer("services/RecipeService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.Int64("author.id", int64(authorID)),
			attribute.Int64("recipe.id", int64(id)),
		),
	)
	defer span.End()

	current, err := s.Brief(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.AuthorID != authorID {
		return nil, ErrRecipeNotFound
	}

	draft, err := s.validator().Validate(ctx, in, true)
	if err != nil {
		return nil, err
	}

	key := current.Image
	if draft.Image != nil {
		if key, err = putImage(ctx, s.Store, recipeImageFolder, draft.Image); err != nil {
			return nil, err
		}
	}

	rec := &domain.Recipe{
		ID:          id,
		AuthorID:    authorID,
		Name:        draft.Name,
		Text:        draft.Text,
		CookingTime: draft.CookingTime,
		Image:       key,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.UpdateRecipe(ctx, tx, rec, draft.Lines)
	})
	if err != nil {
		if key != current.Image {
			discardImage(ctx, s.Store, key)
		}
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrRecipeNotFound
		case repo.IsDuplicate(err):
			return nil, fieldError("ingredients", "ingredients must not repeat")
		}
		return nil, fmt.Errorf("update recipe: %w", err)
	}
	if key != current.Image {
		discardImage(ctx, s.Store, current.Image)
	}
	return s.Get(ctx, authorID, id)
}

// Delete removes a recipe owned by authorID together with its image.
func (s *RecipeService) Delete(ctx context.Context, authorID, id uint) error {
	tr := otel.Tracer("services/RecipeService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.Int64("author.id", int64(authorID)),
			attribute.Int64("recipe.id", int64(id)),
		),
	)
	defer span.End()

	current, err := s.Brief(ctx, id)
	if err != nil {
		return err
	}
	if current.AuthorID != authorID {
		return ErrRecipeNotFound
	}
	if err := repo.DeleteRecipe(ctx, s.DB, id, authorID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRecipeNotFound
		}
		return err
	}
	discardImage(ctx, s.Store, current.Image)
	s.publish(ctx, events.New(events.RecipeDeleted, map[string]any{
		"recipe_id": id,
		"author_id": authorID,
	}))
	return nil
}

// decorate attaches viewer flags to recipes with one query per flag.
func (s *RecipeService) decorate(ctx context.Context, viewerID uint, items []domain.Recipe) ([]RecipeView, error) {
	out := make([]RecipeView, len(items))
	if len(items) == 0 {
		return out, nil
	}
	recipeIDs := make([]uint, len(items))
	authorIDs := make([]uint, len(items))
	for i, r := range items {
		recipeIDs[i] = r.ID
		authorIDs[i] = r.AuthorID
	}

	fav, err := repo.Favorites.Targets(ctx, s.DB, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	cart, err := repo.ShoppingCart.Targets(ctx, s.DB, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	subs, err := repo.Subscriptions.Targets(ctx, s.DB, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	for i, r := range items {
		out[i] = RecipeView{
			Recipe:           r,
			IsFavorited:      fav[r.ID],
			IsInShoppingCart: cart[r.ID],
			AuthorSubscribed: subs[r.AuthorID],
		}
	}
	return out, nil
}

func (s *RecipeService) publish(ctx context.Context, ev events.Event) {
	publishEvent(ctx, s.Events, ev)
}

// publishEvent sends ev and logs failures; events never fail a request.
func publishEvent(ctx context.Context, pub events.Publisher, ev events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("event", ev.Type).Msg("publish event failed")
	}
}
