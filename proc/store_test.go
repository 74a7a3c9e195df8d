package proc

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

func openTestDB(t *testing.T) {
	t.Helper()
	if err := sys.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	t.Cleanup(sys.CloseDatabase)
}

func TestStoreQueueRoundTrip(t *testing.T) {
	openTestDB(t)
	s := NewStore()
	guild := snowflake.ID(42)

	cur := Entry{URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa", Title: "Now", Duration: time.Minute, Resolved: true}
	b := Backup{
		Queue:     []Entry{cur, {URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb", Title: "Next"}},
		Repeat:    true,
		Volume:    70,
		Current:   &cur,
		Channel:   snowflake.ID(7),
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveQueue(guild, b); err != nil {
		t.Fatal(err)
	}

	all, err := s.LoadQueues(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got, ok := all[guild]
	if !ok {
		t.Fatalf("backup for %s missing: %v", guild, all)
	}
	if len(got.Queue) != 2 || got.Queue[1].Title != "Next" || !got.Repeat || got.Volume != 70 || got.Channel != 7 {
		t.Fatalf("loaded %+v", got)
	}
	if got.Current == nil || got.Current.Duration != time.Minute {
		t.Fatalf("current = %+v", got.Current)
	}

	if err := s.SaveQueue(guild, Backup{}); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := sys.LoadQueueBackup(context.Background(), guild.String()); found {
		t.Fatal("empty backup left a row behind")
	}
}

func TestStoreDropsCorruptBackups(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	if err := sys.SaveQueueBackup(ctx, "99", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if err := sys.SaveQueueBackup(ctx, "not-a-snowflake", []byte("{}")); err != nil {
		t.Fatal(err)
	}

	all, err := NewStore().LoadQueues(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("loaded %v", all)
	}
	if _, found, _ := sys.LoadQueueBackup(ctx, "99"); found {
		t.Fatal("corrupt row kept")
	}
}

func TestDecodeBackup(t *testing.T) {
	b, err := DecodeBackup([]byte(`{"queue":[{"url":"u","title":"t","duration":60000000000}],"originalPlaylist":[],"repeat":false,"loop":true,"volume":30,"timestamp":"2026-01-02T03:04:05Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Queue) != 1 || b.Queue[0].Duration != time.Minute || !b.Loop || b.Volume != 30 || b.Empty() {
		t.Fatalf("decoded %+v", b)
	}
	if _, err := DecodeBackup([]byte("[]")); err == nil {
		t.Fatal("array accepted as backup")
	}
}

func TestStoreFavorites(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	s := NewStore()
	user := snowflake.ID(5)

	first := Entry{URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa", Title: "One", Duration: 3 * time.Minute}
	second := Entry{URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb", Title: "Two", Streaming: true}
	for _, e := range []Entry{first, second} {
		if err := s.AddFavorite(ctx, user, e); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AddFavorite(ctx, user, first); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate err = %v", err)
	}
	if err := s.AddFavorite(ctx, snowflake.ID(6), first); err != nil {
		t.Fatalf("other user blocked: %v", err)
	}

	favs, err := s.Favorites(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(favs) != 2 || favs[0].Title != "One" || !favs[0].Resolved || favs[1].Resolved || !favs[1].Streaming {
		t.Fatalf("favorites = %+v", favs)
	}

	if _, err := s.RemoveFavorite(ctx, user, 3); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("out of range err = %v", err)
	}
	removed, err := s.RemoveFavorite(ctx, user, 1)
	if err != nil || removed.Title != "One" {
		t.Fatalf("RemoveFavorite = %+v, %v", removed, err)
	}

	n, err := s.ClearFavorites(ctx, user)
	if err != nil || n != 1 {
		t.Fatalf("ClearFavorites = %d, %v", n, err)
	}
	users, err := sys.FavoriteUsers(ctx)
	if err != nil || len(users) != 1 || users[0] != "6" {
		t.Fatalf("FavoriteUsers = %v, %v", users, err)
	}
}
