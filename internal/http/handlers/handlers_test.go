package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// ---------- tiny stubs ----------

type stubRecipes struct {
	RecipeService // unimplemented methods panic

	listFn    func(ctx context.Context, viewerID uint, q services.RecipeQuery, page, pageSize int) ([]services.RecipeView, int64, error)
	briefFn   func(ctx context.Context, id uint) (*domain.Recipe, error)
	resolveFn func(ctx context.Context, code string) (uint, error)
}

func (s stubRecipes) ListPage(ctx context.Context, viewerID uint, q services.RecipeQuery, page, pageSize int) ([]services.RecipeView, int64, error) {
	return s.listFn(ctx, viewerID, q, page, pageSize)
}

func (s stubRecipes) Brief(ctx context.Context, id uint) (*domain.Recipe, error) {
	return s.briefFn(ctx, id)
}

func (s stubRecipes) ResolveShortCode(ctx context.Context, code string) (uint, error) {
	return s.resolveFn(ctx, code)
}

type stubRelations struct {
	addFn    func(rel services.Relation, ownerID, targetID uint) error
	removeFn func(rel services.Relation, ownerID, targetID uint) error
}

func (s stubRelations) Add(_ context.Context, rel services.Relation, ownerID, targetID uint) error {
	return s.addFn(rel, ownerID, targetID)
}

func (s stubRelations) Remove(_ context.Context, rel services.Relation, ownerID, targetID uint) error {
	return s.removeFn(rel, ownerID, targetID)
}

type stubShoppingList struct{ text string }

func (s stubShoppingList) Render(context.Context, uint) (string, error) { return s.text, nil }

type prefixMedia string

func (p prefixMedia) URL(key string) string { return string(p) + key }

// asUser pretends an upstream Authenticate middleware accepted a token.
func asUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", id)
		c.Next()
	}
}

func newRouter(h *Handlers, uid uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if uid != 0 {
		r.Use(asUser(uid))
	}
	r.GET("/recipes/", h.ListRecipes)
	r.GET("/recipes/download_shopping_cart/", h.DownloadShoppingCart)
	r.GET("/recipes/:id/", h.GetRecipe)
	r.GET("/recipes/:id/get-link/", h.GetLink)
	r.POST("/recipes/:id/favorite/", h.AddFavorite)
	r.DELETE("/recipes/:id/favorite/", h.RemoveFavorite)
	r.GET("/r/:code/", h.ResolveShortLink)
	return r
}

func serve(r *gin.Engine, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------- tests ----------

func TestListRecipes_InvalidAuthor(t *testing.T) {
	h := New(Services{Recipes: stubRecipes{}}, Options{})
	w := serve(newRouter(h, 0), http.MethodGet, "/recipes/?author=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != ErrCodeValidation || len(resp.Errors["author"]) != 1 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestListRecipes_FiltersAndPageLinks(t *testing.T) {
	var (
		gotQ          services.RecipeQuery
		gotViewer     uint
		gotPage, gotN int
	)
	recipes := stubRecipes{
		listFn: func(_ context.Context, viewerID uint, q services.RecipeQuery, page, size int) ([]services.RecipeView, int64, error) {
			gotViewer, gotQ, gotPage, gotN = viewerID, q, page, size
			v := services.RecipeView{IsFavorited: true}
			v.ID, v.Name, v.Image = 5, "Soup", "recipes/soup.png"
			return []services.RecipeView{v}, 10, nil
		},
	}
	h := New(Services{Recipes: recipes, Media: prefixMedia("/media/")}, Options{PublicBaseURL: "http://x.test/"})
	w := serve(newRouter(h, 3), http.MethodGet, "/recipes/?page=2&limit=2&is_favorited=true&author=9", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if gotViewer != 3 || !gotQ.Favorited || gotQ.InCart || gotQ.AuthorID != 9 || gotPage != 2 || gotN != 2 {
		t.Fatalf("service got viewer=%d q=%+v page=%d size=%d", gotViewer, gotQ, gotPage, gotN)
	}

	var body Paginated[RecipeResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Count != 10 || len(body.Results) != 1 {
		t.Fatalf("envelope = %+v", body)
	}
	if body.Results[0].Image != "http://x.test/media/recipes/soup.png" || !body.Results[0].IsFavorited {
		t.Fatalf("result = %+v", body.Results[0])
	}
	if body.Next == nil || *body.Next != "http://x.test/recipes/?author=9&is_favorited=true&limit=2&page=3" {
		t.Fatalf("next = %v", body.Next)
	}
	if body.Previous == nil || *body.Previous != "http://x.test/recipes/?author=9&is_favorited=true&limit=2" {
		t.Fatalf("previous = %v", body.Previous)
	}
}

func TestGetRecipe_MalformedIDIsNotFound(t *testing.T) {
	h := New(Services{Recipes: stubRecipes{}}, Options{})
	for _, id := range []string{"abc", "-1", "0", "1a", "+2"} {
		w := serve(newRouter(h, 0), http.MethodGet, "/recipes/"+id+"/", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("id %q: status=%d", id, w.Code)
		}
	}
}

func TestFavoriteToggle(t *testing.T) {
	var added, removed bool
	rel := stubRelations{
		addFn: func(r services.Relation, owner, target uint) error {
			if added {
				return &services.RelationError{Kind: services.ErrAlreadyPresent, Message: r.AlreadyMsg}
			}
			added = owner == 4 && target == 8
			return nil
		},
		removeFn: func(r services.Relation, _, _ uint) error {
			if removed {
				return &services.RelationError{Kind: services.ErrNotPresent, Message: r.AbsentMsg}
			}
			removed = true
			return nil
		},
	}
	recipes := stubRecipes{briefFn: func(_ context.Context, id uint) (*domain.Recipe, error) {
		return &domain.Recipe{ID: id, Name: "Tea", CookingTime: 3, Image: "recipes/tea.gif"}, nil
	}}
	h := New(Services{Recipes: recipes, Relations: rel, Media: prefixMedia("https://cdn.test/")}, Options{})
	r := newRouter(h, 4)

	w := serve(r, http.MethodPost, "/recipes/8/favorite/", nil)
	if w.Code != http.StatusCreated || !added {
		t.Fatalf("add status=%d added=%v", w.Code, added)
	}
	var mini RecipeMinifiedResponse
	_ = json.Unmarshal(w.Body.Bytes(), &mini)
	if mini.ID != 8 || mini.Image != "https://cdn.test/recipes/tea.gif" || mini.CookingTime != 3 {
		t.Fatalf("minified = %+v", mini)
	}

	w = serve(r, http.MethodPost, "/recipes/8/favorite/", nil)
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusBadRequest || resp.Code != ErrCodeAlreadyExists ||
		len(resp.Errors["non_field_errors"]) != 1 || resp.Errors["non_field_errors"][0] != services.Favorites.AlreadyMsg {
		t.Fatalf("duplicate add: %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodDelete, "/recipes/8/favorite/", nil)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("remove: %d %q", w.Code, w.Body.String())
	}
	w = serve(r, http.MethodDelete, "/recipes/8/favorite/", nil)
	resp = ErrorResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusBadRequest || resp.Code != ErrCodeNotPresent {
		t.Fatalf("second remove: %d %s", w.Code, w.Body.String())
	}
}

func TestShortLinks_UseForwardedBase(t *testing.T) {
	recipes := stubRecipes{
		briefFn: func(_ context.Context, id uint) (*domain.Recipe, error) {
			if id != 7 {
				return nil, services.ErrRecipeNotFound
			}
			return &domain.Recipe{ID: 7}, nil
		},
		resolveFn: func(_ context.Context, code string) (uint, error) {
			id, valid := services.ParseShortCode(code)
			if !valid || id != 7 {
				return 0, services.ErrRecipeNotFound
			}
			return id, nil
		},
	}
	h := New(Services{Recipes: recipes}, Options{})
	r := newRouter(h, 0)
	fwd := map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "food.example"}

	w := serve(r, http.MethodGet, "/recipes/7/get-link/", fwd)
	var link ShortLinkResponse
	_ = json.Unmarshal(w.Body.Bytes(), &link)
	if w.Code != http.StatusOK || link.ShortLink != "https://food.example/r/7/" {
		t.Fatalf("get-link: %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"short-link"`) {
		t.Fatalf("expected short-link key: %s", w.Body.String())
	}

	w = serve(r, http.MethodGet, "/r/7/", fwd)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "https://food.example/recipes/7/" {
		t.Fatalf("redirect: %d %q", w.Code, w.Header().Get("Location"))
	}
	if w = serve(r, http.MethodGet, "/r/8/", fwd); w.Code != http.StatusNotFound {
		t.Fatalf("unknown code: %d", w.Code)
	}
	if w = serve(r, http.MethodGet, "/recipes/8/get-link/", fwd); w.Code != http.StatusNotFound {
		t.Fatalf("unknown recipe link: %d", w.Code)
	}
}

func TestDownloadShoppingCart_Headers(t *testing.T) {
	h := New(Services{ShoppingList: stubShoppingList{text: "Shopping list:\n\nSalt (g) - 5\n"}}, Options{})
	w := serve(newRouter(h, 1), http.MethodGet, "/recipes/download_shopping_cart/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("content-type=%q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="shopping_cart.txt"` {
		t.Fatalf("content-disposition=%q", cd)
	}
	if w.Body.String() != "Shopping list:\n\nSalt (g) - 5\n" {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestMediaURL_WithoutRequestStaysRelative(t *testing.T) {
	h := New(Services{Media: prefixMedia("/media/")}, Options{})
	if got := h.mediaURL(nil, "avatars/a.png"); got != "/media/avatars/a.png" {
		t.Fatalf("got %q", got)
	}
	if got := h.mediaURL(nil, ""); got != "" {
		t.Fatalf("empty key gave %q", got)
	}
}
