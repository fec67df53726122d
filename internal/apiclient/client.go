// Package apiclient is the HTTP client a tracker app uses against the
// /api/v1 surface. Client implements tracker.Backend and tracker.PlayedMarker.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/tracker"
)

// APIError is a non-2xx response
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Code       string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %s", e.Message)
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Session is the signed-in account
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Group is the pairing result
type Group struct {
	GroupID     string       `json:"group_id"`
	DisplayName string       `json:"display_name"`
	Sharing     bool         `json:"sharing"`
	User        *models.User `json:"user"`
}

// Client talks to the tracker API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client with a saved session token
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for baseURL, e.g. https://tracker.example.com
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// SignUp creates an account and keeps its token
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password, "display_name": displayName}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/signup", body, &s); err != nil {
		return nil, err
	}
	c.setToken(s.Token)
	return &s, nil
}

// SignIn starts a session and keeps its token
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/signin", body, &s); err != nil {
		return nil, err
	}
	c.setToken(s.Token)
	return &s, nil
}

// SignOut revokes the token. The local token is dropped either way.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/signout", nil, nil)
	c.setToken("")
	return err
}

// Me returns the signed-in profile
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RegisterPushToken stores the device token used for notifications
func (c *Client) RegisterPushToken(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/v1/me/push-token", map[string]string{"push_token": token}, nil)
}

// CreateGroup creates a new pairing code
func (c *Client) CreateGroup(ctx context.Context, name string) (*Group, error) {
	var g Group
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/groups", map[string]string{"name": name}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// JoinGroup joins an existing code
func (c *Client) JoinGroup(ctx context.Context, name, code string) (*Group, error) {
	var g Group
	body := map[string]string{"name": name, "code": code}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/groups/join", body, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// PublishLocation writes one fix. findMe also alerts the group.
func (c *Client) PublishLocation(ctx context.Context, w tracker.LocationWrite, findMe bool) error {
	path := "/api/v1/locations"
	if findMe {
		path = "/api/v1/locations/find-me"
	}
	return c.doJSON(ctx, http.MethodPost, path, w, nil)
}

// ActiveLocations returns the group's newest active rows
func (c *Client) ActiveLocations(ctx context.Context) ([]*models.LocationUpdate, error) {
	var rows []*models.LocationUpdate
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/locations/active", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// LatestLocation returns the caller's newest row, or nil when they never shared
func (c *Client) LatestLocation(ctx context.Context) (*models.LocationUpdate, error) {
	var loc *models.LocationUpdate
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/locations/latest", nil, &loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// LocationHistory returns the group's rows of the last hours
func (c *Client) LocationHistory(ctx context.Context, hours int) ([]*models.LocationUpdate, error) {
	var rows []*models.LocationUpdate
	path := "/api/v1/locations/history?hours=" + strconv.Itoa(hours)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SendVoice uploads a finished recording
func (c *Client) SendVoice(ctx context.Context, clip *tracker.Clip) (*models.VoiceMessage, error) {
	body, contentType, err := multipartBody(func(mw *multipart.Writer) error {
		if err := writeFile(mw, "audio", "voice.webm", clip.ContentType, clip.Data); err != nil {
			return err
		}
		return mw.WriteField("duration", strconv.Itoa(clip.Duration))
	})
	if err != nil {
		return nil, err
	}

	var msg models.VoiceMessage
	if err := c.do(ctx, http.MethodPost, "/api/v1/voice-messages", body, contentType, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// VoiceMessages returns the group's voice feed, newest first
func (c *Client) VoiceMessages(ctx context.Context, limit int) ([]*models.VoiceMessage, error) {
	var msgs []*models.VoiceMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/voice-messages"+limitQuery(limit), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkVoicePlayed flips the played flag of someone else's message
func (c *Client) MarkVoicePlayed(ctx context.Context, messageID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/voice-messages/"+url.PathEscape(messageID)+"/played", nil, nil)
}

// PhotoUpload is a captured image with its optional fields
type PhotoUpload struct {
	Data        []byte
	ContentType string
	Caption     string
	Latitude    *float64
	Longitude   *float64
}

// SendPhoto uploads a photo. The server normalizes it to JPEG.
func (c *Client) SendPhoto(ctx context.Context, p PhotoUpload) (*models.FestivalPhoto, error) {
	body, contentType, err := multipartBody(func(mw *multipart.Writer) error {
		if err := writeFile(mw, "image", "photo", p.ContentType, p.Data); err != nil {
			return err
		}
		if p.Caption != "" {
			if err := mw.WriteField("caption", p.Caption); err != nil {
				return err
			}
		}
		if p.Latitude != nil && p.Longitude != nil {
			if err := mw.WriteField("latitude", strconv.FormatFloat(*p.Latitude, 'f', -1, 64)); err != nil {
				return err
			}
			return mw.WriteField("longitude", strconv.FormatFloat(*p.Longitude, 'f', -1, 64))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var photo models.FestivalPhoto
	if err := c.do(ctx, http.MethodPost, "/api/v1/photos", body, contentType, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// Photos returns the group's photo feed, newest first
func (c *Client) Photos(ctx context.Context, limit int) ([]*models.FestivalPhoto, error) {
	var photos []*models.FestivalPhoto
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/photos"+limitQuery(limit), nil, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

func limitQuery(limit int) string {
	if limit <= 0 {
		return ""
	}
	return "?limit=" + strconv.Itoa(limit)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func multipartBody(write func(*multipart.Writer) error) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := write(mw); err != nil {
		return nil, "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to build upload: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func writeFile(mw *multipart.Writer, field, filename, contentType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

var (
	_ tracker.Backend      = (*Client)(nil)
	_ tracker.PlayedMarker = (*Client)(nil)
)
