package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/seedlight/beacon/config"
	"github.com/seedlight/beacon/utils"
)

// Client talks to the hosted content backend. Records live in named
// collections behind a REST surface; binary assets live in storage buckets.
// The backend's own consistency and retry behaviour is its problem, not
// ours: every failure surfaces to the caller as an error.
type Client struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

func NewClient(cfg config.ContentConfig) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		APIKey:  cfg.APIKey,
		client:  utils.NewHTTPClient(),
	}
}

// Record is one row as the backend returns it. Collections differ in shape
// so access goes through the typed getters.
type Record map[string]interface{}

func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func (r Record) Strings(key string) []string {
	raw, ok := r[key].([]interface{})
	if !ok {
		return nil
	}
	var values []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			values = append(values, s)
		}
	}
	return values
}

// RemoteError is a failure the backend itself reported, as opposed to a
// transport failure. The message is safe to show to users.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("content backend returned %d: %s", e.StatusCode, e.Message)
}

// Reason returns the human-readable message the backend provided.
func (e *RemoteError) Reason() string {
	return e.Message
}

// Object describes one entry in a storage bucket listing.
type Object struct {
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
	Size      int64  `json:"size"`
}

func (c *Client) ListRecords(ctx context.Context, collection string, filters map[string]string) ([]Record, error) {
	query := url.Values{}
	query.Set("select", "*")
	for field, value := range filters {
		query.Set(field, fmt.Sprintf("eq.%s", value))
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.BaseURL, collection, query.Encode())
	body, err := c.do(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s records: %w", collection, err)
	}
	return records, nil
}

func (c *Client) GetRecord(ctx context.Context, collection, id string) (Record, error) {
	records, err := c.ListRecords(ctx, collection, map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &RemoteError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("no %s record with id %s", collection, id)}
	}
	return records[0], nil
}

func (c *Client) InsertRecord(ctx context.Context, collection string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.BaseURL, collection)
	_, err = c.do(ctx, "POST", endpoint, data)
	return err
}

func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	payload, err := json.Marshal(map[string]string{"prefix": prefix})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/list/%s", c.BaseURL, bucket)
	body, err := c.do(ctx, "POST", endpoint, payload)
	if err != nil {
		return nil, err
	}

	var objects []Object
	if err := json.Unmarshal(body, &objects); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s object listing: %w", bucket, err)
	}
	return objects, nil
}

// DownloadObject fetches a binary asset and returns its bytes alongside the
// reported content type.
func (c *Client) DownloadObject(ctx context.Context, bucket, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.PublicURL(bucket, path), nil)
	if err != nil {
		return nil, "", err
	}
	c.authorise(req)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, "", &RemoteError{StatusCode: res.StatusCode, Message: fmt.Sprintf("object %s/%s is unavailable", bucket, path)}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", err
	}
	return body, res.Header.Get("Content-Type"), nil
}

// PublicURL resolves the stable public address of a bucket object.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.BaseURL, bucket, path)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	c.authorise(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=minimal")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &RemoteError{StatusCode: res.StatusCode, Message: remoteMessage(body)}
	}

	return body, nil
}

func (c *Client) authorise(req *http.Request) {
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
}

// remoteMessage digs the backend's human-readable reason out of an error
// body, falling back to a generic message.
func remoteMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return "the request could not be completed"
}
