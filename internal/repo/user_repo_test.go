package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUsers_CRUDAndLookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := mkUser(t, db, "alice")
	mkUser(t, db, "bob")

	got, err := GetUserByEmail(ctx, db, "alice@example.com")
	if err != nil || got.ID != alice.ID {
		t.Fatalf("GetUserByEmail: %+v %v", got, err)
	}
	if _, err := GetUser(ctx, db, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if taken, _ := UserFieldTaken(ctx, db, "username", "alice"); !taken {
		t.Fatalf("username alice should be taken")
	}
	if taken, _ := UserFieldTaken(ctx, db, "email", "nobody@example.com"); taken {
		t.Fatalf("email should be free")
	}

	if n, _ := CountUsers(ctx, db); n != 2 {
		t.Fatalf("CountUsers = %d", n)
	}
	page, _ := ListUsersPage(ctx, db, 1, 5)
	if len(page) != 1 || page[0].Username != "bob" {
		t.Fatalf("ListUsersPage offset 1: %+v", page)
	}

	if err := UpdateUserPassword(ctx, db, alice.ID, "newhash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}
	if err := UpdateUserAvatar(ctx, db, alice.ID, "avatars/a.png"); err != nil {
		t.Fatalf("UpdateUserAvatar: %v", err)
	}
	got, _ = GetUser(ctx, db, alice.ID)
	if got.Password != "newhash" || got.Avatar != "avatars/a.png" {
		t.Fatalf("updates not persisted: %+v", got)
	}
	if err := UpdateUserAvatar(ctx, db, 999, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestSubscribedAuthors_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reader := mkUser(t, db, "reader")
	a1 := mkUser(t, db, "a1")
	a2 := mkUser(t, db, "a2")

	if err := Subscriptions.Insert(ctx, db, reader.ID, a1.ID); err != nil {
		t.Fatalf("subscribe a1: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := Subscriptions.Insert(ctx, db, reader.ID, a2.ID); err != nil {
		t.Fatalf("subscribe a2: %v", err)
	}

	if n, _ := CountSubscriptions(ctx, db, reader.ID); n != 2 {
		t.Fatalf("CountSubscriptions = %d", n)
	}
	authors, err := ListSubscribedAuthorsPage(ctx, db, reader.ID, 0, 10)
	if err != nil {
		t.Fatalf("ListSubscribedAuthorsPage: %v", err)
	}
	if len(authors) != 2 || authors[0].ID != a2.ID || authors[1].ID != a1.ID {
		t.Fatalf("unexpected order: %+v", authors)
	}
}
