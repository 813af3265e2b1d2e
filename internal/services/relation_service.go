// Package services – RelationService
//
// Favorites, shopping cart entries and subscriptions are presence rows over
// (owner, target) join tables. RelationService implements the add/remove
// toggle once; a Relation value supplies the table, the target lookup and
// the messages. Adding an existing row and removing a missing one are both
// errors, and a unique violation from a concurrent insert is reported the
// same way as the pre-check.
package services

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/events"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// relationToggles counts toggle attempts by relation, action and outcome.
var relationToggles = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relation_toggles_total",
		Help: "Favorite, shopping cart and subscription toggles by outcome.",
	},
	[]string{"relation", "action", "outcome"},
)

func init() {
	prometheus.MustRegister(relationToggles)
}

// Relation describes one join table toggle.
type Relation struct {
	Name  string
	Table repo.JoinTable

	// TargetExists returns ErrRecipeNotFound / ErrUserNotFound for unknown targets.
	TargetExists func(ctx context.Context, db *gorm.DB, id uint) error

	AlreadyMsg string
	AbsentMsg  string
	// SelfMsg, when set, forbids owner == target.
	SelfMsg string
	// CreatedEvent, when set, is published after a successful add.
	CreatedEvent string
}

func recipeExists(ctx context.Context, db *gorm.DB, id uint) error {
	if _, err := repo.GetRecipeBrief(ctx, db, id); err != nil {
		if repo.IsNotFound(err) {
			return ErrRecipeNotFound
		}
		return err
	}
	return nil
}

func userExists(ctx context.Context, db *gorm.DB, id uint) error {
	if _, err := repo.GetUser(ctx, db, id); err != nil {
		if repo.IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// Known relations.
var (
	Favorites = Relation{
		Name:         "favorite",
		Table:        repo.Favorites,
		TargetExists: recipeExists,
		AlreadyMsg:   "recipe is already in favorites",
		AbsentMsg:    "recipe is not in favorites",
	}
	ShoppingCart = Relation{
		Name:         "shopping_cart",
		Table:        repo.ShoppingCart,
		TargetExists: recipeExists,
		AlreadyMsg:   "recipe is already in the shopping cart",
		AbsentMsg:    "recipe is not in the shopping cart",
	}
	Subscriptions = Relation{
		Name:         "subscription",
		Table:        repo.Subscriptions,
		TargetExists: userExists,
		AlreadyMsg:   "already subscribed to this author",
		AbsentMsg:    "not subscribed to this author",
		SelfMsg:      "cannot subscribe to yourself",
		CreatedEvent: events.SubscriptionCreated,
	}
)

// RelationService toggles join table rows.
type RelationService struct {
	DB     *gorm.DB
	Events events.Publisher
}

// Add creates the (owner, target) row of rel.
func (s *RelationService) Add(ctx context.Context, rel Relation, ownerID, targetID uint) error {
	tr := otel.Tracer("services/RelationService")
	ctx, span := tr.Start(ctx, "Add",
		trace.WithAttributes(
			attribute.String("relation", rel.Name),
			attribute.Int64("owner.id", int64(ownerID)),
			attribute.Int64("target.id", int64(targetID)),
		),
	)
	defer span.End()

	err := s.add(ctx, rel, ownerID, targetID)
	relationToggles.WithLabelValues(rel.Name, "add", outcome(err)).Inc()
	return err
}

func (s *RelationService) add(ctx context.Context, rel Relation, ownerID, targetID uint) error {
	if err := rel.TargetExists(ctx, s.DB, targetID); err != nil {
		return err
	}
	if rel.SelfMsg != "" && ownerID == targetID {
		return &RelationError{Kind: ErrSelfRelation, Message: rel.SelfMsg}
	}
	exists, err := rel.Table.Exists(ctx, s.DB, ownerID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return &RelationError{Kind: ErrAlreadyPresent, Message: rel.AlreadyMsg}
	}
	if err := rel.Table.Insert(ctx, s.DB, ownerID, targetID); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return &RelationError{Kind: ErrAlreadyPresent, Message: rel.AlreadyMsg}
		}
		return err
	}
	if rel.CreatedEvent != "" {
		publishEvent(ctx, s.Events, events.New(rel.CreatedEvent, map[string]any{
			"owner_id":  ownerID,
			"target_id": targetID,
		}))
	}
	return nil
}

// Remove deletes the (owner, target) row of rel.
func (s *RelationService) Remove(ctx context.Context, rel Relation, ownerID, targetID uint) error {
	tr := otel.Tracer("services/RelationService")
	ctx, span := tr.Start(ctx, "Remove",
		trace.WithAttributes(
			attribute.String("relation", rel.Name),
			attribute.Int64("owner.id", int64(ownerID)),
			attribute.Int64("target.id", int64(targetID)),
		),
	)
	defer span.End()

	err := s.remove(ctx, rel, ownerID, targetID)
	relationToggles.WithLabelValues(rel.Name, "remove", outcome(err)).Inc()
	return err
}

func (s *RelationService) remove(ctx context.Context, rel Relation, ownerID, targetID uint) error {
	if err := rel.TargetExists(ctx, s.DB, targetID); err != nil {
		return err
	}
	if err := rel.Table.Delete(ctx, s.DB, ownerID, targetID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &RelationError{Kind: ErrNotPresent, Message: rel.AbsentMsg}
		}
		return err
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyPresent):
		return "already_present"
	case errors.Is(err, ErrNotPresent):
		return "not_present"
	case errors.Is(err, ErrSelfRelation):
		return "self"
	case errors.Is(err, ErrRecipeNotFound), errors.Is(err, ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}
