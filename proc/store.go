package proc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
)

// Backup is the persisted form of one guild's queue.
type Backup struct {
	Queue            []Entry      `json:"queue"`
	OriginalPlaylist []Entry      `json:"originalPlaylist"`
	Repeat           bool         `json:"repeat"`
	Loop             bool         `json:"loop"`
	Volume           int          `json:"volume"`
	Current          *Entry       `json:"current,omitempty"`
	Channel          snowflake.ID `json:"channel,omitempty"`
	Timestamp        time.Time    `json:"timestamp"`
}

// Empty reports whether there is nothing worth restoring.
func (b Backup) Empty() bool {
	return len(b.Queue) == 0 && b.Current == nil && len(b.OriginalPlaylist) == 0
}

// Store persists queues and favorites through the sqlite layer in sys.
type Store struct {
	Timeout time.Duration
}

func NewStore() *Store { return &Store{Timeout: 5 * time.Second} }

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

// SaveQueue writes b, or drops the row when b is empty.
func (s *Store) SaveQueue(guildID snowflake.ID, b Backup) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if b.Empty() {
		return sys.DeleteQueueBackup(ctx, guildID.String())
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return sys.SaveQueueBackup(ctx, guildID.String(), payload)
}

// LoadQueues returns every decodable backup keyed by guild. Corrupt rows are
// logged and removed.
func (s *Store) LoadQueues(ctx context.Context) (map[snowflake.ID]Backup, error) {
	rows, err := sys.ListQueueBackups(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]Backup, len(rows))
	for _, r := range rows {
		id, err := snowflake.Parse(r.GuildID)
		if err != nil {
			continue
		}
		b, err := DecodeBackup(r.Payload)
		if err != nil {
			sys.LogWarn(sys.MsgDatabaseCorruptBackup, r.GuildID, err)
			_ = sys.DeleteQueueBackup(ctx, r.GuildID)
			continue
		}
		out[id] = b
	}
	return out, nil
}

// DecodeBackup parses a stored payload.
func DecodeBackup(payload []byte) (Backup, error) {
	var b Backup
	if err := json.Unmarshal(payload, &b); err != nil {
		return Backup{}, err
	}
	return b, nil
}

// AddFavorite saves e for userID. A second save of the same URL is ErrDuplicate.
func (s *Store) AddFavorite(ctx context.Context, userID snowflake.ID, e Entry) error {
	err := sys.AddFavorite(ctx, userID.String(), sys.FavoriteRow{
		URL:       e.URL,
		Title:     e.Title,
		Duration:  e.Duration,
		Streaming: e.Streaming,
	})
	if err == sys.ErrFavoriteExists {
		return ErrDuplicate
	}
	return err
}

// Favorites lists userID's saved songs as queue entries, oldest first.
func (s *Store) Favorites(ctx context.Context, userID snowflake.ID) ([]Entry, error) {
	rows, err := sys.ListFavorites(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(f sys.FavoriteRow, _ int) Entry {
		return Entry{
			URL:       f.URL,
			Title:     f.Title,
			Duration:  f.Duration,
			Streaming: f.Streaming,
			Resolved:  f.Duration > 0,
			AddedAt:   f.AddedAt,
		}
	}), nil
}

// RemoveFavorite deletes the 1-indexed pos of userID's list.
func (s *Store) RemoveFavorite(ctx context.Context, userID snowflake.ID, pos int) (Entry, error) {
	favs, err := sys.ListFavorites(ctx, userID.String())
	if err != nil {
		return Entry{}, err
	}
	if pos < 1 || pos > len(favs) {
		return Entry{}, ErrOutOfRange
	}
	f, err := sys.RemoveFavorite(ctx, userID.String(), pos)
	if err != nil {
		return Entry{}, err
	}
	return Entry{URL: f.URL, Title: f.Title, Duration: f.Duration}, nil
}

func (s *Store) ClearFavorites(ctx context.Context, userID snowflake.ID) (int64, error) {
	return sys.ClearFavorites(ctx, userID.String())
}
