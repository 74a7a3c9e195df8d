package sys

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()
	if err := InitDatabase(ctx, filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	t.Cleanup(CloseDatabase)
	return ctx
}

func TestDatabaseRequiresInit(t *testing.T) {
	CloseDatabase()
	if _, err := GetBotConfig(context.Background(), "k"); err == nil {
		t.Fatal("query ran without a database")
	}
}

func TestInitDatabaseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	ctx := context.Background()
	for range 2 {
		if err := InitDatabase(ctx, path); err != nil {
			t.Fatal(err)
		}
		CloseDatabase()
	}
}

func TestBotConfig(t *testing.T) {
	ctx := openTestDB(t)
	if v, err := GetBotConfig(ctx, "missing"); err != nil || v != "" {
		t.Fatalf("GetBotConfig(missing) = %q, %v", v, err)
	}
	for _, v := range []string{"true", "false"} {
		if err := SetBotConfig(ctx, "presence_visible", v); err != nil {
			t.Fatal(err)
		}
		if got, _ := GetBotConfig(ctx, "presence_visible"); got != v {
			t.Fatalf("got %q, want %q", got, v)
		}
	}
}

func TestQueueBackups(t *testing.T) {
	ctx := openTestDB(t)
	if err := SaveQueueBackup(ctx, "1", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := SaveQueueBackup(ctx, "1", []byte(`{"a":2}`)); err != nil {
		t.Fatal(err)
	}
	if err := SaveQueueBackup(ctx, "2", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	row, ok, err := LoadQueueBackup(ctx, "1")
	if err != nil || !ok || string(row.Payload) != `{"a":2}` || row.UpdatedAt.IsZero() {
		t.Fatalf("LoadQueueBackup = %+v, %v, %v", row, ok, err)
	}
	rows, err := ListQueueBackups(ctx)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListQueueBackups = %d rows, %v", len(rows), err)
	}

	if err := DeleteQueueBackup(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := LoadQueueBackup(ctx, "1"); ok {
		t.Fatal("deleted backup still present")
	}
}

func TestFavorites(t *testing.T) {
	ctx := openTestDB(t)
	a := FavoriteRow{URL: "u1", Title: "One", Duration: 90 * time.Second, Streaming: true}
	b := FavoriteRow{URL: "u2", Title: "Two"}
	for _, f := range []FavoriteRow{a, b} {
		if err := AddFavorite(ctx, "user", f); err != nil {
			t.Fatal(err)
		}
	}
	if err := AddFavorite(ctx, "user", a); !errors.Is(err, ErrFavoriteExists) {
		t.Fatalf("duplicate err = %v", err)
	}

	favs, err := ListFavorites(ctx, "user")
	if err != nil || len(favs) != 2 {
		t.Fatalf("ListFavorites = %+v, %v", favs, err)
	}
	if favs[0].URL != "u1" || favs[0].Duration != 90*time.Second || !favs[0].Streaming || favs[0].AddedAt.IsZero() {
		t.Fatalf("first favorite = %+v", favs[0])
	}

	if _, err := RemoveFavorite(ctx, "user", 0); err == nil {
		t.Fatal("position 0 accepted")
	}
	removed, err := RemoveFavorite(ctx, "user", 2)
	if err != nil || removed.URL != "u2" {
		t.Fatalf("RemoveFavorite = %+v, %v", removed, err)
	}

	users, err := FavoriteUsers(ctx)
	if err != nil || len(users) != 1 || users[0] != "user" {
		t.Fatalf("FavoriteUsers = %v, %v", users, err)
	}
	if n, err := ClearFavorites(ctx, "user"); err != nil || n != 1 {
		t.Fatalf("ClearFavorites = %d, %v", n, err)
	}
}
