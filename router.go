package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	hmacext "github.com/alexellis/hmac/v2"
	"github.com/rs/cors"

	"github.com/seedlight/beacon/config"
	"github.com/seedlight/beacon/content"
	"github.com/seedlight/beacon/db"
	"github.com/seedlight/beacon/events"
	"github.com/seedlight/beacon/forms"
	"github.com/seedlight/beacon/listing"
	"github.com/seedlight/beacon/playback"
	"github.com/seedlight/beacon/shared"
)

func renderJSONMessage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	res := map[string]string{"message": message}
	json.NewEncoder(w).Encode(res)
}

func renderJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseListingQuery maps the request's query string onto an engine query.
// Comma-separated values in categories/locations become multi-select facets.
func parseListingQuery(r *http.Request) listing.Query {
	qVal := r.URL.Query()

	q := listing.DefaultQuery()
	q.Text = qVal.Get("query")

	if sort := qVal.Get("sort"); sort != "" {
		q.Sort = listing.SortOrder(sort)
	}

	if category := qVal.Get("category"); category != "" {
		q.Facets = map[string]string{"category": category}
	}

	multi := map[string][]string{}
	if categories := qVal.Get("categories"); categories != "" {
		multi["category"] = strings.Split(categories, ",")
	}
	if locations := qVal.Get("locations"); locations != "" {
		multi["location"] = strings.Split(locations, ",")
	}
	if len(multi) > 0 {
		q.FacetsAny = multi
	}

	return q
}

func RegisterRoutes(mux *http.ServeMux, cfg config.Config, controller *playback.Controller, store db.Store, client *content.Client, processor *forms.Processor) http.Handler {

	events.Server.CreateStream(events.StreamPlayback)
	events.Server.CreateStream(events.StreamContent)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "Welcome to Beacon, the API behind the Seedlight Initiative website.\nYou can find the source code on <a href=\"https://github.com/seedlight/beacon\">Github</a>\n")
	})

	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, "This is the base of Beacon's various APIs")
	})

	mux.HandleFunc("/api/v1", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, "This is the v1 endpoint of the API")
	})

	mux.HandleFunc("/api/v1/listings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		contentType := r.URL.Query().Get("type")
		valid := false
		for _, t := range shared.ContentTypes {
			if t == contentType {
				valid = true
				break
			}
		}
		if !valid {
			renderJSONError(w, http.StatusBadRequest, "a valid listing type must be provided")
			return
		}

		items, err := store.ListContentByType(contentType)
		if err != nil {
			renderJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}

		filtered := listing.Apply(items, parseListingQuery(r))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": filtered,
			"total": len(filtered),
		})
	})

	mux.HandleFunc("/api/v1/listings/item", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		id := r.URL.Query().Get("id")
		if id == "" {
			renderJSONError(w, http.StatusBadRequest, "an id must be provided")
			return
		}
		item, err := store.GetContentByID(id)
		if err != nil {
			renderJSONError(w, http.StatusNotFound, "no item exists with that id")
			return
		}
		json.NewEncoder(w).Encode(item)
	})

	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		items, err := store.ListAllContent()
		if err != nil {
			renderJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ranked := listing.Rank(r.URL.Query().Get("query"), items)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": ranked,
			"total": len(ranked),
		})
	})

	mux.HandleFunc("/api/v1/playing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(controller.Snapshot())
	})

	mux.HandleFunc("/api/v1/player/play", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ID == "" {
			renderJSONError(w, http.StatusBadRequest, "an item id must be provided")
			return
		}
		item, err := store.GetContentByID(payload.ID)
		if err != nil || item.MediaURL == "" {
			renderJSONError(w, http.StatusNotFound, "no playable item exists with that id")
			return
		}
		controller.Play(playback.Item{
			ID:     item.ID,
			Title:  item.Title,
			Source: item.MediaURL,
		})
		json.NewEncoder(w).Encode(controller.Snapshot())
	})

	mux.HandleFunc("/api/v1/player/pause", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		controller.Pause()
		json.NewEncoder(w).Encode(controller.Snapshot())
	})

	mux.HandleFunc("/api/v1/player/seek", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		var payload struct {
			PositionMs int64 `json:"position_ms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			renderJSONError(w, http.StatusBadRequest, "a position must be provided")
			return
		}
		controller.Seek(time.Duration(payload.PositionMs) * time.Millisecond)
		json.NewEncoder(w).Encode(controller.Snapshot())
	})

	mux.HandleFunc("/api/v1/player/skip/forward", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		controller.SkipForward()
		json.NewEncoder(w).Encode(controller.Snapshot())
	})

	mux.HandleFunc("/api/v1/player/skip/backward", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		controller.SkipBackward()
		json.NewEncoder(w).Encode(controller.Snapshot())
	})

	mux.HandleFunc("/api/v1/player/next", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		controller.PlayNext()
		json.NewEncoder(w).Encode(controller.Snapshot())
	})

	mux.HandleFunc("/api/v1/player/previous", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		controller.PlayPrevious()
		json.NewEncoder(w).Encode(controller.Snapshot())
	})

	mux.HandleFunc("/api/v1/player/playlist", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		var payload struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			renderJSONError(w, http.StatusBadRequest, "a list of item ids must be provided")
			return
		}
		items := make([]playback.Item, 0, len(payload.IDs))
		for _, id := range payload.IDs {
			item, err := store.GetContentByID(id)
			if err != nil || item.MediaURL == "" {
				continue
			}
			items = append(items, playback.Item{
				ID:     item.ID,
				Title:  item.Title,
				Source: item.MediaURL,
			})
		}
		controller.SetPlaylist(items)
		json.NewEncoder(w).Encode(controller.Snapshot())
	})

	mux.HandleFunc("/api/v1/player/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		results, err := store.GetPlayHistory(7)
		if err != nil {
			renderJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(results) == 0 {
			json.NewEncoder(w).Encode([]string{})
			return
		}
		json.NewEncoder(w).Encode(results)
	})

	mux.HandleFunc("/api/v1/forms/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodPost {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}

		formName := strings.TrimPrefix(r.URL.Path, "/api/v1/forms/")

		var values map[string]string
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			renderJSONError(w, http.StatusBadRequest, "failed to parse request body")
			return
		}

		result, err := processor.Submit(r.Context(), formName, values)
		if err != nil {
			renderJSONError(w, http.StatusNotFound, err.Error())
			return
		}

		if !result.OK {
			if len(result.Errors) > 0 {
				w.WriteHeader(http.StatusUnprocessableEntity)
			} else {
				w.WriteHeader(http.StatusBadGateway)
			}
		}
		json.NewEncoder(w).Encode(result)
	})

	mux.HandleFunc("/api/v1/submissions", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Beacon.AdminToken == "" {
			renderJSONMessage(w, "This endpoint is misconfigured and can not be used currently")
			return
		}
		qVal := r.URL.Query()
		if !qVal.Has("token") {
			renderJSONMessage(w, "Your request was not authorized")
			return
		}
		if qVal.Get("token") != cfg.Beacon.AdminToken {
			renderJSONMessage(w, "Your request was not authorized")
			return
		}
		if r.Method != http.MethodGet {
			renderJSONMessage(w, "That method is invalid for this endpoint")
			return
		}
		form := qVal.Get("form")
		if form == "" {
			renderJSONMessage(w, "A form name did not appear to be provided")
			return
		}
		subs, err := store.ListSubmissions(form, 50)
		if err != nil {
			renderJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		json.NewEncoder(w).Encode(subs)
	})

	mux.HandleFunc("/api/v1/webhooks/content", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if cfg.Beacon.WebhookSecret == "" {
			renderJSONError(w, http.StatusServiceUnavailable, "this endpoint is not properly configured")
			return
		}

		signature := r.Header.Get("X-Content-Signature")
		if signature == "" {
			renderJSONError(w, http.StatusUnauthorized, "no signature was provided")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			renderJSONError(w, http.StatusBadRequest, "failed to read request body as part of signature validation")
			return
		}

		if err := hmacext.Validate(body, fmt.Sprintf("sha256=%s", signature), cfg.Beacon.WebhookSecret); err != nil {
			slog.Error("Failed signature validation", slog.Any("error", err))
			renderJSONError(w, http.StatusUnauthorized, "signature failed validation")
			return
		}

		var payload struct {
			Collection string `json:"collection"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			renderJSONError(w, http.StatusBadRequest, "failed to unmarshal request body")
			return
		}

		if err := content.SyncCollection(r.Context(), store, client, payload.Collection); err != nil {
			renderJSONError(w, http.StatusBadGateway, err.Error())
			return
		}

		renderJSONMessage(w, "Collection was successfully resynced")
	})

	mux.HandleFunc("/static/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/static/")
		if path == "" || strings.Contains(path, "..") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		object, contentType, err := client.DownloadObject(r.Context(), cfg.Content.Bucket, path)
		if err != nil {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31622400")
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Write(object)
	})

	mux.HandleFunc("/events", events.Server.ServeHTTP)

	allowedOrigins := []string{"http://localhost:3000", "http://localhost:8080"}
	if cfg.Beacon.AllowedOrigins != "" {
		allowedOrigins = strings.Split(cfg.Beacon.AllowedOrigins, ",")
	}

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Origin, Content-Type, Accept"},
	})

	handler := c.Handler(mux)

	return handler
}
