package listing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Item is one displayable entry fetched from the content backend: a blog
// post, news item, event, gallery entry and so on. Fields that a given type
// doesn't use are left empty. Items are read-only once cached; a resync
// replaces them wholesale.
type Item struct {
	ID            string     `db:"id" json:"id"`
	Type          string     `db:"type" json:"type"`
	Title         string     `db:"title" json:"title"`
	Author        string     `db:"author" json:"author,omitempty"`
	Excerpt       string     `db:"excerpt" json:"excerpt,omitempty"`
	Body          string     `db:"body" json:"-"`
	Category      string     `db:"category" json:"category,omitempty"`
	Location      string     `db:"location" json:"location,omitempty"`
	Tags          StringList `db:"tags" json:"tags,omitempty"`
	PublishedAt   string     `db:"published_at" json:"published_at"`
	Image         string     `db:"image" json:"image,omitempty"`
	MediaURL      string     `db:"media_url" json:"media_url,omitempty"`
	AccentColours StringList `db:"accent_colours" json:"accent_colours,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StringList stores a slice of strings as a JSON blob in sqlite.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = StringList{}
		return nil
	}
	switch v := value.(type) {
	case string:
		return json.Unmarshal([]byte(v), s)
	case []byte:
		return json.Unmarshal(v, s)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
}

// GenerateContentID builds a deterministic id for a cached item. It's
// deterministic so resyncing the same record any number of times yields
// the same row.
func GenerateContentID(item *Item) string {
	hashString := fmt.Sprintf("%s-%s-%s-%s",
		item.Type,
		item.Title,
		item.Author,
		item.PublishedAt,
	)
	return fmt.Sprintf("content:%s:%d", item.Type, xxhash.Sum64String(hashString))
}
