// Package services – IngredientService
//
// IngredientService serves the shared ingredient catalog: case-insensitive
// prefix search (cached when a cache is configured), single lookups, and the
// bulk import used to seed the catalog. Search keys are folded with
// golang.org/x/text/cases so matching is Unicode aware.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/cache"
	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

const ingredientsVersionKey = "ingredients:version"

// IngredientRecord is one row of an import file.
type IngredientRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// ImportStats summarizes an import run.
type ImportStats struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Skipped  int `json:"skipped"`
}

// IngredientService provides catalog reads and imports.
type IngredientService struct {
	DB    *gorm.DB
	Cache cache.Cache
	TTL   time.Duration
}

// NewIngredientService constructs an IngredientService. A nil cache disables
// caching.
func NewIngredientService(db *gorm.DB, c cache.Cache, ttl time.Duration) *IngredientService {
	if c == nil {
		c = cache.Noop{}
	}
	return &IngredientService{DB: db, Cache: c, TTL: ttl}
}

// FoldName returns the case-folded search key of an ingredient name.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Search lists ingredients whose name starts with prefix, ignoring case.
func (s *IngredientService) Search(ctx context.Context, prefix string) ([]domain.Ingredient, error) {
	tr := otel.Tracer("services/IngredientService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.String("prefix", prefix)),
	)
	defer span.End()

	folded := FoldName(prefix)
	key := "ingredients:v" + strconv.FormatInt(s.version(ctx), 10) + ":" + folded

	if b, err := s.Cache.Get(ctx, key); err == nil {
		var cached []domain.Ingredient
		if json.Unmarshal(b, &cached) == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		loggerFrom(ctx).Debug().Err(err).Msg("ingredient cache read failed")
	}

	items, err := repo.SearchIngredients(ctx, s.DB, folded)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Ingredient{}
	}
	if b, err := json.Marshal(items); err == nil {
		if err := s.Cache.Set(ctx, key, b, s.TTL); err != nil {
			loggerFrom(ctx).Debug().Err(err).Msg("ingredient cache write failed")
		}
	}
	return items, nil
}

func (s *IngredientService) version(ctx context.Context) int64 {
	b, err := s.Cache.Get(ctx, ingredientsVersionKey)
	if err != nil {
		return 0
	}
	n, _ := strconv.ParseInt(string(b), 10, 64)
	return n
}

// Get returns one ingredient.
func (s *IngredientService) Get(ctx context.Context, id uint) (*domain.Ingredient, error) {
	ing, err := repo.GetIngredient(ctx, s.DB, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrIngredientNotFound
		}
		return nil, err
	}
	return ing, nil
}

// Import creates the (name, unit) pairs that are not in the catalog yet.
// Rows with a blank or overlong name or unit are skipped. Cached searches are
// invalidated when anything was created.
func (s *IngredientService) Import(ctx context.Context, records []IngredientRecord) (ImportStats, error) {
	tr := otel.Tracer("services/IngredientService")
	ctx, span := tr.Start(ctx, "Import",
		trace.WithAttributes(attribute.Int("records", len(records))),
	)
	defer span.End()

	var stats ImportStats
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			name := strings.TrimSpace(rec.Name)
			unit := strings.TrimSpace(rec.MeasurementUnit)
			if name == "" || unit == "" || utf8.RuneCountInString(name) > 100 || utf8.RuneCountInString(unit) > 100 {
				stats.Skipped++
				continue
			}
			ing := &domain.Ingredient{Name: name, MeasurementUnit: unit, SearchName: FoldName(name)}
			created, err := repo.EnsureIngredient(ctx, tx, ing)
			if err != nil {
				return err
			}
			if created {
				stats.Created++
			} else {
				stats.Existing++
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	if stats.Created > 0 {
		if _, err := s.Cache.Incr(ctx, ingredientsVersionKey); err != nil {
			loggerFrom(ctx).Warn().Err(err).Msg("ingredient cache invalidation failed")
		}
	}
	return stats, nil
}
