package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/r3labs/sse/v2"

	"github.com/seedlight/beacon/db"
	"github.com/seedlight/beacon/events"
	"github.com/seedlight/beacon/listing"
	"github.com/seedlight/beacon/shared"
	"github.com/seedlight/beacon/utils"
)

const excerptLength = 280

// Collections maps backend collection names onto listing types.
var Collections = map[string]string{
	"blog_posts": shared.TYPE_BLOG,
	"news_items": shared.TYPE_NEWS,
	"events":     shared.TYPE_EVENT,
	"gallery":    shared.TYPE_GALLERY,
	"books":      shared.TYPE_BOOK,
	"journals":   shared.TYPE_JOURNAL,
	"articles":   shared.TYPE_ARTICLE,
	"media_hits": shared.TYPE_MEDIAHIT,
	"podcasts":   shared.TYPE_PODCAST,
}

// SyncAll refreshes every cached collection. Runs on the scheduler; each
// collection failure is logged and skipped so one flaky fetch doesn't stall
// the rest.
func SyncAll(store db.Store, client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	changed := false
	for collection := range Collections {
		if err := SyncCollection(ctx, store, client, collection); err != nil {
			slog.Error("Failed to sync collection",
				slog.String("collection", collection),
				slog.String("stack", err.Error()),
			)
			continue
		}
		changed = true
	}

	if changed {
		publishContentChanged()
	}
}

// SyncCollection pulls one collection from the backend and replaces the
// local cache for its type.
func SyncCollection(ctx context.Context, store db.Store, client *Client, collection string) error {
	contentType, ok := Collections[collection]
	if !ok {
		return &RemoteError{StatusCode: 400, Message: "unknown collection " + collection}
	}

	records, err := client.ListRecords(ctx, collection, nil)
	if err != nil {
		return err
	}

	items := make([]listing.Item, 0, len(records))
	for _, record := range records {
		items = append(items, mapRecord(contentType, record))
	}

	if err := store.ReplaceContent(contentType, items); err != nil {
		return err
	}

	slog.Debug("Synced collection",
		slog.String("collection", collection),
		slog.Int("items", len(items)),
	)

	return nil
}

// mapRecord flattens a backend record into the cached listing shape. The
// excerpt falls back to the flattened body so the text filter always has
// something to match against.
func mapRecord(contentType string, record Record) listing.Item {
	item := listing.Item{
		Type:          contentType,
		Title:         record.String("title"),
		Author:        record.String("author"),
		Excerpt:       record.String("excerpt"),
		Body:          record.String("body"),
		Category:      record.String("category"),
		Location:      record.String("location"),
		Tags:          listing.StringList(record.Strings("tags")),
		PublishedAt:   record.String("published_at"),
		Image:         record.String("image"),
		MediaURL:      record.String("media_url"),
		AccentColours: listing.StringList(record.Strings("accent_colours")),
		UpdatedAt:     time.Now(),
	}
	if item.Excerpt == "" && item.Body != "" {
		item.Excerpt = listing.ExcerptFromHTML(item.Body, excerptLength)
	}
	item.ID = listing.GenerateContentID(&item)
	return item
}

// ExtractGalleryColours backfills accent colours for gallery entries that
// don't have any yet. Runs on its own slower schedule since image fetches
// are comparatively expensive.
func ExtractGalleryColours(store db.Store) {
	items, err := store.ListContentByType(shared.TYPE_GALLERY)
	if err != nil {
		slog.Error("Failed to list gallery entries",
			slog.String("stack", err.Error()),
		)
		return
	}

	client := utils.NewHTTPClient()
	updated := false

	for _, item := range items {
		if len(item.AccentColours) > 0 || item.Image == "" {
			continue
		}
		_, _, colours, err := utils.FetchImageContent(client, item.Image)
		if err != nil {
			slog.Error("Failed to fetch gallery image",
				slog.String("image", item.Image),
				slog.String("stack", err.Error()),
			)
			continue
		}
		if len(colours) == 0 {
			continue
		}
		item.AccentColours = listing.StringList(colours)
		if err := store.UpsertContentItem(item); err != nil {
			slog.Error("Failed to store gallery colours",
				slog.String("id", item.ID),
				slog.String("stack", err.Error()),
			)
			continue
		}
		updated = true
	}

	if updated {
		publishContentChanged()
	}
}

func publishContentChanged() {
	if events.Server == nil {
		return
	}
	events.Server.Publish(events.StreamContent, &sse.Event{Data: []byte(`{"changed":true}`)})
}
