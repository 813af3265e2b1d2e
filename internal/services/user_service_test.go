package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-recipes-backend/internal/auth"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

func newUserSvc(t *testing.T) (*UserService, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewUserService(newTestDB(t), store, 4, 10<<20), store
}

func reg(name string) RegisterInput {
	return RegisterInput{
		Email:     name + "@example.com",
		Username:  name,
		FirstName: "First",
		LastName:  "Last",
		Password:  "s3cret-pass",
	}
}

func TestUserService_RegisterHashesPassword(t *testing.T) {
	s, _ := newUserSvc(t)
	u, err := s.Register(context.Background(), reg("alice"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == 0 || u.Password == "s3cret-pass" || !auth.CheckPassword(u.Password, "s3cret-pass") {
		t.Fatalf("password not hashed properly: %+v", u)
	}
}

func TestUserService_RegisterDuplicateUsername(t *testing.T) {
	s, _ := newUserSvc(t)
	ctx := context.Background()
	first, err := s.Register(ctx, reg("alice"))
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}

	dup := reg("alice")
	dup.Email = "other@example.com"
	_, err = s.Register(ctx, dup)
	fe := fieldErrs(t, err)
	if got := fe["username"]; len(got) != 1 || got[0] != "a user with that username already exists" {
		t.Fatalf("username errors = %v", fe)
	}
	if _, ok := fe["email"]; ok {
		t.Fatalf("email must not be reported: %v", fe)
	}

	still, err := repo.GetUser(ctx, s.DB, first.ID)
	if err != nil || still.Email != "alice@example.com" {
		t.Fatalf("first user affected: %+v, %v", still, err)
	}
	total, _ := repo.CountUsers(ctx, s.DB)
	if total != 1 {
		t.Fatalf("users = %d; want 1", total)
	}
}

func TestUserService_RegisterLosesRaceOnEmail(t *testing.T) {
	s, _ := newUserSvc(t)

	// both pre-check lookups miss, then a competing signup takes the email
	afterQueryOn(t, s.DB, "users", 2, func() {
		mkUser(t, s.DB, "carol")
	})

	in := reg("carol-2")
	in.Email = "carol@example.com"
	_, err := s.Register(context.Background(), in)
	fe := fieldErrs(t, err)
	if got := fe["email"]; len(got) != 1 || got[0] != "a user with that email already exists" {
		t.Fatalf("field errors = %v", fe)
	}
	if _, ok := fe["username"]; ok {
		t.Fatalf("username must not be reported: %v", fe)
	}
	if total, _ := repo.CountUsers(context.Background(), s.DB); total != 1 {
		t.Fatalf("users = %d; want 1", total)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	s, _ := newUserSvc(t)
	in := RegisterInput{Email: "nope", Username: "bad name!", FirstName: " ", Password: ""}
	_, err := s.Register(context.Background(), in)
	fe := fieldErrs(t, err)
	want := map[string]string{
		"email":      "enter a valid email address",
		"username":   "enter a valid username; it may contain only letters, numbers and @/./+/-/_ characters",
		"first_name": "this field is required",
		"last_name":  "this field is required",
		"password":   "this field is required",
	}
	for f, msg := range want {
		if got := fe[f]; len(got) != 1 || got[0] != msg {
			t.Fatalf("%s errors = %v; want %q", f, got, msg)
		}
	}
}

func TestUserService_SetPassword(t *testing.T) {
	s, _ := newUserSvc(t)
	ctx := context.Background()
	u, _ := s.Register(ctx, reg("alice"))

	err := s.SetPassword(ctx, u.ID, SetPasswordInput{NewPassword: "n3w", CurrentPassword: "wrong"})
	if fe := fieldErrs(t, err); fe["current_password"][0] != "wrong password" {
		t.Fatalf("errors = %v", fe)
	}
	if err := s.SetPassword(ctx, u.ID, SetPasswordInput{NewPassword: "n3w", CurrentPassword: "s3cret-pass"}); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	got, _ := repo.GetUser(ctx, s.DB, u.ID)
	if !auth.CheckPassword(got.Password, "n3w") {
		t.Fatalf("password not changed")
	}
	if fe := fieldErrs(t, s.SetPassword(ctx, u.ID, SetPasswordInput{})); len(fe["new_password"]) != 1 {
		t.Fatalf("missing fields errors = %v", fe)
	}
}

func TestUserService_Avatar(t *testing.T) {
	s, store := newUserSvc(t)
	ctx := context.Background()
	u, _ := s.Register(ctx, reg("alice"))

	if _, err := s.SetAvatar(ctx, u.ID, nil); err == nil {
		t.Fatalf("expected required error")
	}
	if _, err := s.SetAvatar(ctx, u.ID, strPtr("data:image/png;base64,AAAA")); err == nil {
		t.Fatalf("expected invalid image error")
	}

	first, err := s.SetAvatar(ctx, u.ID, strPtr(pngDataURI(t)))
	if err != nil {
		t.Fatalf("SetAvatar: %v", err)
	}
	if !store.has(first.Avatar) {
		t.Fatalf("avatar not stored")
	}
	second, err := s.SetAvatar(ctx, u.ID, strPtr(pngDataURI(t)))
	if err != nil {
		t.Fatalf("SetAvatar again: %v", err)
	}
	if store.has(first.Avatar) || !store.has(second.Avatar) {
		t.Fatalf("old avatar should be replaced")
	}

	if err := s.ClearAvatar(ctx, u.ID); err != nil {
		t.Fatalf("ClearAvatar: %v", err)
	}
	got, _ := repo.GetUser(ctx, s.DB, u.ID)
	if got.Avatar != "" || store.count() != 0 {
		t.Fatalf("avatar not cleared: %q, objects=%d", got.Avatar, store.count())
	}
	if err := s.ClearAvatar(ctx, u.ID); err != nil {
		t.Fatalf("ClearAvatar without avatar: %v", err)
	}
}

func TestUserService_AuthorAndSubscriptions(t *testing.T) {
	s, _ := newUserSvc(t)
	ctx := context.Background()
	alice := mkUser(t, s.DB, "alice")
	bob := mkUser(t, s.DB, "bob")
	carol := mkUser(t, s.DB, "carol")
	for _, n := range []string{"b1", "b2", "b3"} {
		mkRecipe(t, s.DB, bob, n)
	}
	if err := repo.Subscriptions.Insert(ctx, s.DB, alice.ID, bob.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := repo.Subscriptions.Insert(ctx, s.DB, alice.ID, carol.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	av, err := s.Author(ctx, alice.ID, bob.ID, 2)
	if err != nil {
		t.Fatalf("Author: %v", err)
	}
	if !av.IsSubscribed || av.RecipesCount != 3 || len(av.Recipes) != 2 {
		t.Fatalf("author view: subscribed=%v count=%d recipes=%d", av.IsSubscribed, av.RecipesCount, len(av.Recipes))
	}
	all, _ := s.Author(ctx, 0, bob.ID, -1)
	if all.IsSubscribed || len(all.Recipes) != 3 {
		t.Fatalf("anonymous author view: %+v", all)
	}
	if _, err := s.Author(ctx, alice.ID, 999, 1); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown author: %v", err)
	}

	subs, total, err := s.SubscriptionsPage(ctx, alice.ID, 1, 10, -1)
	if err != nil || total != 2 || len(subs) != 2 {
		t.Fatalf("SubscriptionsPage: total=%d len=%d err=%v", total, len(subs), err)
	}
	for _, a := range subs {
		if !a.IsSubscribed {
			t.Fatalf("subscription list entries must be subscribed")
		}
	}

	users, total, err := s.ListPage(ctx, alice.ID, 1, 2)
	if err != nil || total != 3 || len(users) != 2 || users[0].ID != alice.ID || !users[1].IsSubscribed {
		t.Fatalf("ListPage: total=%d users=%+v err=%v", total, users, err)
	}
	if _, err := s.Get(ctx, 0, 12345); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Get unknown: %v", err)
	}
}
