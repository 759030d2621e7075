package db

import (
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/seedlight/beacon/forms"
	"github.com/seedlight/beacon/listing"
	"github.com/seedlight/beacon/playback"

	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	DB *sqlx.DB
}

func NewSqliteStore(dsn string) (*SqliteStore, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &SqliteStore{
		DB: db,
	}, nil
}

func (s *SqliteStore) ApplyMigrations(migrations embed.FS) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	if err := goose.Up(s.DB.DB, "."); err != nil {
		return err
	}

	return nil
}

// ReplaceContent swaps the cached records of one content type wholesale,
// which is how a resync lands: the fetched collection is the new truth.
func (s *SqliteStore) ReplaceContent(contentType string, items []listing.Item) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return err
	}

	var committed bool
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.Exec("DELETE FROM content_items WHERE type = ?", contentType); err != nil {
		return fmt.Errorf("failed to clear cached %s items: %w", contentType, err)
	}

	for _, item := range items {
		if _, err := tx.NamedExec(`
		  INSERT INTO content_items
		  (id, type, title, author, excerpt, body, category, location, tags, published_at, image, media_url, accent_colours, updated_at)
		  VALUES (:id, :type, :title, :author, :excerpt, :body, :category, :location, :tags, :published_at, :image, :media_url, :accent_colours, :updated_at)`,
			item); err != nil {
			return fmt.Errorf("failed to insert %s item: %w", contentType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *SqliteStore) UpsertContentItem(item listing.Item) error {
	_, err := s.DB.NamedExec(`
	  INSERT INTO content_items
	  (id, type, title, author, excerpt, body, category, location, tags, published_at, image, media_url, accent_colours, updated_at)
	  VALUES (:id, :type, :title, :author, :excerpt, :body, :category, :location, :tags, :published_at, :image, :media_url, :accent_colours, :updated_at)
	  ON CONFLICT (id) DO UPDATE SET
	  title = excluded.title,
	  author = excluded.author,
	  excerpt = excluded.excerpt,
	  body = excluded.body,
	  category = excluded.category,
	  location = excluded.location,
	  tags = excluded.tags,
	  published_at = excluded.published_at,
	  image = excluded.image,
	  media_url = excluded.media_url,
	  accent_colours = excluded.accent_colours,
	  updated_at = excluded.updated_at`,
		item)
	return err
}

func (s *SqliteStore) ListContentByType(contentType string) ([]listing.Item, error) {
	items := []listing.Item{}
	err := s.DB.Select(&items, `
	  SELECT id, type, title, author, excerpt, body, category, location, tags, published_at, image, media_url, accent_colours, updated_at
	  FROM content_items
	  WHERE type = ?
	  ORDER BY published_at DESC, id ASC`, contentType)
	return items, err
}

func (s *SqliteStore) ListAllContent() ([]listing.Item, error) {
	items := []listing.Item{}
	err := s.DB.Select(&items, `
	  SELECT id, type, title, author, excerpt, body, category, location, tags, published_at, image, media_url, accent_colours, updated_at
	  FROM content_items
	  ORDER BY published_at DESC, id ASC`)
	return items, err
}

func (s *SqliteStore) GetContentByID(id string) (listing.Item, error) {
	item := listing.Item{}
	err := s.DB.Get(&item, `
	  SELECT id, type, title, author, excerpt, body, category, location, tags, published_at, image, media_url, accent_colours, updated_at
	  FROM content_items
	  WHERE id = ?`, id)
	return item, err
}

func (s *SqliteStore) InsertSubmission(sub forms.Submission) error {
	_, err := s.DB.Exec(
		"INSERT INTO submissions (id, form, email, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		sub.ID,
		sub.Form,
		sub.Email,
		sub.Payload,
		sub.CreatedAt,
	)
	return err
}

func (s *SqliteStore) ListSubmissions(form string, limit int) ([]forms.Submission, error) {
	subs := []forms.Submission{}
	if limit <= 0 {
		return subs, fmt.Errorf("must request at least one submission")
	}
	err := s.DB.Select(&subs, `
	  SELECT id, form, email, payload, created_at
	  FROM submissions
	  WHERE form = ?
	  ORDER BY created_at DESC
	  LIMIT ?`, form, limit)
	return subs, err
}

func (s *SqliteStore) RecordPlay(entry playback.HistoryEntry) error {
	_, err := s.DB.Exec(`
	  INSERT INTO play_history (item_id, title, source, started_at, ended_at, elapsed_ms, completed)
	  VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ItemID,
		entry.Title,
		entry.Source,
		entry.StartedAt,
		entry.EndedAt,
		entry.ElapsedMs,
		entry.Completed,
	)
	return err
}

func (s *SqliteStore) GetPlayHistory(limit int) ([]playback.HistoryEntry, error) {
	entries := []playback.HistoryEntry{}
	if limit <= 0 {
		return entries, fmt.Errorf("must request at least one historical item")
	}
	err := s.DB.Select(&entries, `
	  SELECT id, item_id, title, source, started_at, ended_at, elapsed_ms, completed
	  FROM play_history
	  ORDER BY ended_at DESC
	  LIMIT ?`, limit)
	return entries, err
}
