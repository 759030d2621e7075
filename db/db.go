package db

import (
	"embed"

	"github.com/seedlight/beacon/forms"
	"github.com/seedlight/beacon/listing"
	"github.com/seedlight/beacon/playback"
)

type Store interface {
	ApplyMigrations(migrations embed.FS) error
	ReplaceContent(contentType string, items []listing.Item) error
	UpsertContentItem(item listing.Item) error
	ListContentByType(contentType string) ([]listing.Item, error)
	ListAllContent() ([]listing.Item, error)
	GetContentByID(id string) (listing.Item, error)
	InsertSubmission(sub forms.Submission) error
	ListSubmissions(form string, limit int) ([]forms.Submission, error)
	RecordPlay(entry playback.HistoryEntry) error
	GetPlayHistory(limit int) ([]playback.HistoryEntry, error)
}
