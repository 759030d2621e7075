package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedlight/beacon/config"
	"github.com/seedlight/beacon/content"
	"github.com/seedlight/beacon/events"
	"github.com/seedlight/beacon/forms"
	"github.com/seedlight/beacon/listing"
	"github.com/seedlight/beacon/playback"
	"github.com/seedlight/beacon/shared"
)

type memoryStore struct {
	items       map[string]listing.Item
	submissions []forms.Submission
	history     []playback.HistoryEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string]listing.Item{}}
}

func (m *memoryStore) ApplyMigrations(migrations embed.FS) error { return nil }

func (m *memoryStore) ReplaceContent(contentType string, items []listing.Item) error {
	for id, item := range m.items {
		if item.Type == contentType {
			delete(m.items, id)
		}
	}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return nil
}

func (m *memoryStore) UpsertContentItem(item listing.Item) error {
	m.items[item.ID] = item
	return nil
}

func (m *memoryStore) ListContentByType(contentType string) ([]listing.Item, error) {
	var items []listing.Item
	for _, item := range m.items {
		if item.Type == contentType {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *memoryStore) ListAllContent() ([]listing.Item, error) {
	var items []listing.Item
	for _, item := range m.items {
		items = append(items, item)
	}
	return items, nil
}

func (m *memoryStore) GetContentByID(id string) (listing.Item, error) {
	item, ok := m.items[id]
	if !ok {
		return listing.Item{}, fmt.Errorf("no item with id %s", id)
	}
	return item, nil
}

func (m *memoryStore) InsertSubmission(sub forms.Submission) error {
	m.submissions = append(m.submissions, sub)
	return nil
}

func (m *memoryStore) ListSubmissions(form string, limit int) ([]forms.Submission, error) {
	var subs []forms.Submission
	for _, sub := range m.submissions {
		if sub.Form == form {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (m *memoryStore) RecordPlay(entry playback.HistoryEntry) error {
	m.history = append(m.history, entry)
	return nil
}

func (m *memoryStore) GetPlayHistory(limit int) ([]playback.HistoryEntry, error) {
	return m.history, nil
}

type stubSource struct {
	events chan playback.SourceEvent
}

func (s *stubSource) Load(locator string) error           { return nil }
func (s *stubSource) Play()                               {}
func (s *stubSource) Pause()                              {}
func (s *stubSource) SetPosition(position time.Duration)  {}
func (s *stubSource) Position() time.Duration             { return 0 }
func (s *stubSource) Duration() time.Duration             { return 0 }
func (s *stubSource) Events() <-chan playback.SourceEvent { return s.events }
func (s *stubSource) Close() error                        { return nil }

type stubInserter struct{}

func (s *stubInserter) InsertRecord(ctx context.Context, collection string, payload interface{}) error {
	return nil
}

func testServer(t *testing.T, store *memoryStore) *httptest.Server {
	t.Helper()
	events.Init()

	cfg := config.Config{}
	cfg.Beacon.AdminToken = "hunter2"
	cfg.Beacon.WebhookSecret = "webhook-secret"
	cfg.Content.Bucket = "media"
	cfg.Payments.USDCheckoutURL = "https://pay.example.org/usd"
	cfg.Payments.NGNCheckoutURL = "https://pay.example.org/ngn"
	cfg.Payments.RedirectDelayMs = 3000

	controller := playback.NewController(&stubSource{events: make(chan playback.SourceEvent)}, store)
	client := content.NewClient(config.ContentConfig{BaseURL: "https://backend.example.org", APIKey: "key"})
	processor := forms.NewProcessor(store, &stubInserter{}, nil, cfg.Payments)

	mux := http.NewServeMux()
	handler := RegisterRoutes(mux, cfg, controller, store, client, processor)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func seedPodcasts(store *memoryStore) {
	store.items["p1"] = listing.Item{ID: "p1", Type: shared.TYPE_PODCAST, Title: "Freedom Talk", Category: "Economic", PublishedAt: "2024-03-01", MediaURL: "https://backend.example.org/ep1.wav"}
	store.items["p2"] = listing.Item{ID: "p2", Type: shared.TYPE_PODCAST, Title: "Youth Summit", Category: "Leadership", PublishedAt: "2024-02-01", MediaURL: "https://backend.example.org/ep2.wav"}
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}

func postJSON(t *testing.T, url string, payload interface{}, out interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}

func TestListingsEndpoint_RejectsUnknownType(t *testing.T) {
	server := testServer(t, newMemoryStore())

	res := getJSON(t, server.URL+"/api/v1/listings?type=mixtape", nil)

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestListingsEndpoint_FiltersAndSorts(t *testing.T) {
	store := newMemoryStore()
	seedPodcasts(store)
	server := testServer(t, store)

	var payload struct {
		Items []listing.Item `json:"items"`
		Total int            `json:"total"`
	}
	res := getJSON(t, server.URL+"/api/v1/listings?type=podcast&category=Economic", &payload)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 1, payload.Total)
	assert.Equal(t, "Freedom Talk", payload.Items[0].Title)
}

func TestListingsEndpoint_MultiSelectCategories(t *testing.T) {
	store := newMemoryStore()
	seedPodcasts(store)
	server := testServer(t, store)

	var payload struct {
		Total int `json:"total"`
	}
	getJSON(t, server.URL+"/api/v1/listings?type=podcast&categories=Economic,Leadership", &payload)

	assert.Equal(t, 2, payload.Total)
}

func TestListingItemEndpoint_NotFound(t *testing.T) {
	server := testServer(t, newMemoryStore())

	res := getJSON(t, server.URL+"/api/v1/listings/item?id=ghost", nil)

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestPlayerPlay_UnknownItem(t *testing.T) {
	server := testServer(t, newMemoryStore())

	res := postJSON(t, server.URL+"/api/v1/player/play", map[string]string{"id": "ghost"}, nil)

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestPlayerPlay_StartsPlayback(t *testing.T) {
	store := newMemoryStore()
	seedPodcasts(store)
	server := testServer(t, store)

	var snap playback.Snapshot
	res := postJSON(t, server.URL+"/api/v1/player/play", map[string]string{"id": "p1"}, &snap)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.NotNil(t, snap.Item)
	assert.Equal(t, "p1", snap.Item.ID)
	assert.True(t, snap.Playing)
}

func TestPlayerHistory_EmptyIsAnEmptyList(t *testing.T) {
	server := testServer(t, newMemoryStore())

	res, err := http.Get(server.URL + "/api/v1/player/history")
	require.NoError(t, err)
	defer res.Body.Close()

	var body bytes.Buffer
	_, err = body.ReadFrom(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(body.String()))
}

func TestFormsEndpoint_ValidationFailure(t *testing.T) {
	server := testServer(t, newMemoryStore())

	var result forms.Result
	res := postJSON(t, server.URL+"/api/v1/forms/contact", map[string]string{}, &result)

	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Errors)
}

func TestFormsEndpoint_DonationRedirect(t *testing.T) {
	store := newMemoryStore()
	server := testServer(t, store)

	var usd forms.Result
	res := postJSON(t, server.URL+"/api/v1/forms/donate", map[string]string{
		"name":     "Ada Obi",
		"email":    "ada@example.org",
		"currency": "usd",
	}, &usd)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "https://pay.example.org/usd", usd.RedirectURL)

	var ngn forms.Result
	postJSON(t, server.URL+"/api/v1/forms/donate", map[string]string{
		"name":     "Ada Obi",
		"email":    "ada@example.org",
		"currency": "ngn",
	}, &ngn)
	assert.Equal(t, "https://pay.example.org/ngn", ngn.RedirectURL)

	assert.Len(t, store.submissions, 2)
}

func TestFormsEndpoint_UnknownForm(t *testing.T) {
	server := testServer(t, newMemoryStore())

	res := postJSON(t, server.URL+"/api/v1/forms/newsletter", map[string]string{}, nil)

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSubmissionsEndpoint_RequiresToken(t *testing.T) {
	server := testServer(t, newMemoryStore())

	var payload map[string]string
	getJSON(t, server.URL+"/api/v1/submissions?form=contact", &payload)
	assert.Equal(t, "Your request was not authorized", payload["message"])

	getJSON(t, server.URL+"/api/v1/submissions?form=contact&token=wrong", &payload)
	assert.Equal(t, "Your request was not authorized", payload["message"])
}

func TestSubmissionsEndpoint_ListsWithValidToken(t *testing.T) {
	store := newMemoryStore()
	store.submissions = append(store.submissions, forms.Submission{ID: "sub-1", Form: "contact", Email: "ada@example.org"})
	server := testServer(t, store)

	var subs []forms.Submission
	getJSON(t, server.URL+"/api/v1/submissions?form=contact&token=hunter2", &subs)

	require.Len(t, subs, 1)
	assert.Equal(t, "ada@example.org", subs[0].Email)
}

func TestWebhook_RejectsMissingSignature(t *testing.T) {
	server := testServer(t, newMemoryStore())

	res := postJSON(t, server.URL+"/api/v1/webhooks/content", map[string]string{"collection": "blog_posts"}, nil)

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	server := testServer(t, newMemoryStore())

	body := []byte(`{"collection":"blog_posts"}`)
	req, err := http.NewRequest("POST", server.URL+"/api/v1/webhooks/content", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Content-Signature", "deadbeef")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestWebhook_ResyncsCollectionWithValidSignature(t *testing.T) {
	defer gock.Off()
	// The request to the test server itself has to pass through untouched
	gock.EnableNetworking()
	defer gock.DisableNetworking()

	gock.New("https://backend.example.org").
		Get("/rest/v1/blog_posts").
		Reply(200).
		JSON([]map[string]interface{}{
			{"title": "Fresh Post", "published_at": "2024-04-01"},
		})

	store := newMemoryStore()
	server := testServer(t, store)

	body := []byte(`{"collection":"blog_posts"}`)
	mac := hmac.New(sha256.New, []byte("webhook-secret"))
	mac.Write(body)

	req, err := http.NewRequest("POST", server.URL+"/api/v1/webhooks/content", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Content-Signature", hex.EncodeToString(mac.Sum(nil)))

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	items, err := store.ListContentByType(shared.TYPE_BLOG)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Fresh Post", items[0].Title)
}

func TestStaticProxy_RejectsTraversal(t *testing.T) {
	server := testServer(t, newMemoryStore())

	res, err := http.Get(server.URL + "/static/covers/..secret")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
