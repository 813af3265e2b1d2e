package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-recipes-backend/internal/cache"
	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/events"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// afterQueryOn calls fn right after the nth query against table completes.
// Tests use it to land a competing write between a pre-check and the insert
// it guards.
func afterQueryOn(t *testing.T, db *gorm.DB, table string, nth int, fn func()) {
	t.Helper()
	seen := 0
	err := db.Callback().Query().After("gorm:query").Register("test:after_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		if seen++; seen == nth {
			fn()
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

// ----- in-memory collaborators -----

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) URL(key string) string { return "/media/" + key }

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	hits int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	b, ok := c.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	c.hits++
	return b, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *memCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if b, ok := c.data[key]; ok {
		_, _ = fmt.Sscan(string(b), &n)
	}
	n++
	c.data[key] = []byte(fmt.Sprint(n))
	return n, nil
}

func (c *memCache) Close() error { return nil }

// ----- fixtures -----

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func pngDataURI(t *testing.T) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
}

func strPtr(s string) *string { return &s }

func mkUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u := &domain.User{Email: name + "@example.com", Username: name, FirstName: name, LastName: "L", Password: "x"}
	if err := repo.CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func mkIngredient(t *testing.T, db *gorm.DB, name, unit string) *domain.Ingredient {
	t.Helper()
	ing := &domain.Ingredient{Name: name, MeasurementUnit: unit, SearchName: FoldName(name)}
	if err := db.Create(ing).Error; err != nil {
		t.Fatalf("create ingredient %s: %v", name, err)
	}
	return ing
}

func mkRecipe(t *testing.T, db *gorm.DB, author *domain.User, name string, lines ...domain.RecipeIngredient) *domain.Recipe {
	t.Helper()
	r := &domain.Recipe{AuthorID: author.ID, Name: name, Text: "text", CookingTime: 10, Image: "recipes/" + name + ".png"}
	if err := repo.CreateRecipe(context.Background(), db, r, lines); err != nil {
		t.Fatalf("create recipe %s: %v", name, err)
	}
	return r
}

func line(ing *domain.Ingredient, amount int) domain.RecipeIngredient {
	return domain.RecipeIngredient{IngredientID: ing.ID, Amount: amount}
}

func validInput(t *testing.T, ingredients ...IngredientAmount) RecipeInput {
	return RecipeInput{
		Ingredients: ingredients,
		Image:       strPtr(pngDataURI(t)),
		Name:        strPtr("Pancakes"),
		Text:        strPtr("Mix and fry."),
		CookingTime: NewFlexInt(15),
	}
}

func item(id, amount int64) IngredientAmount {
	return IngredientAmount{ID: NewFlexInt(id), Amount: NewFlexInt(amount)}
}

func fieldErrs(t *testing.T, err error) FieldErrors {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	return ve.Fields
}
