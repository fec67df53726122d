package console

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"festival-tracker-backend/internal/apiclient"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves the handful of endpoints the console calls
type fakeAPI struct {
	mu        sync.Mutex
	user      models.User
	locations []*models.LocationUpdate
	voices    []*models.VoiceMessage
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, apiclient.Session{Token: "tok-1", User: &f.user})
	})
	mux.HandleFunc("GET /api/v1/me", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.user)
	}))
	mux.HandleFunc("POST /api/v1/groups", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		code := "ABC123"
		f.user.GroupID = &code
		f.user.DisplayName = "Alex"
		writeJSON(w, http.StatusCreated, apiclient.Group{GroupID: code, DisplayName: "Alex", Sharing: true})
	}))
	mux.HandleFunc("POST /api/v1/locations", authed(func(w http.ResponseWriter, r *http.Request) {
		var lw tracker.LocationWrite
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&lw)) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		loc := &models.LocationUpdate{
			Latitude: lw.Latitude, Longitude: lw.Longitude, Accuracy: lw.Accuracy,
			IsActive: lw.IsActive, CreatedByEmail: f.user.Email, CreatedAt: time.Now(),
		}
		f.locations = append([]*models.LocationUpdate{loc}, f.locations...)
		writeJSON(w, http.StatusCreated, loc)
	}))
	mux.HandleFunc("GET /api/v1/locations/active", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.locations)
	}))
	mux.HandleFunc("GET /api/v1/locations/history", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.locations)
	}))
	mux.HandleFunc("GET /api/v1/locations/latest", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.locations) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, f.locations[0])
	}))
	mux.HandleFunc("POST /api/v1/voice-messages", authed(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("audio")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "audio/ogg", header.Header.Get("Content-Type"))

		f.mu.Lock()
		defer f.mu.Unlock()
		msg := &models.VoiceMessage{ID: "v1", AudioURL: "https://media.example.com/ABC123/voice-1.ogg", CreatedByEmail: f.user.Email}
		f.voices = append(f.voices, msg)
		writeJSON(w, http.StatusCreated, msg)
	}))
	return mux
}

func newTestApp(t *testing.T, url, dir string) *App {
	t.Helper()
	app, err := New(Config{APIURL: url, StateDir: dir, Tracker: tracker.Options{
		WriteInterval:       time.Hour,
		ActivePollInterval:  time.Hour,
		HistoryPollInterval: time.Hour,
	}}, &bytes.Buffer{})
	require.NoError(t, err)
	return app
}

// output returns what the app printed so far
func output(app *App) string {
	lw := app.out.(*lockedWriter)
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.(*bytes.Buffer).String()
}

func TestApp_SignInPairShareAndResume(t *testing.T) {
	api := &fakeAPI{user: models.User{ID: "u1", Email: "alex@example.com"}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	dir := t.TempDir()
	ctx := context.Background()

	app := newTestApp(t, srv.URL, dir)
	require.NoError(t, app.Start(ctx))
	assert.ErrorIs(t, app.Exec(ctx, "status"), errSignedOut)

	require.NoError(t, app.Exec(ctx, "signin alex@example.com festival-pass"))
	require.NoError(t, app.Exec(ctx, "create Alex"))
	assert.Equal(t, tracker.StateSharing, app.session.View().State)

	require.NoError(t, app.Exec(ctx, "fix 18.7883 98.9853 8"))
	require.Eventually(t, func() bool { return app.session.View().Writes == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, app.Exec(ctx, "battery 64"))
	require.NoError(t, app.Exec(ctx, "status"))
	assert.Contains(t, output(app), "state: sharing")
	assert.Contains(t, output(app), "code: ABC123")
	assert.Contains(t, output(app), "battery: 64%")
	assert.Contains(t, output(app), "writes: 1")
	require.NoError(t, app.Close())

	resumed := newTestApp(t, srv.URL, dir)
	defer resumed.Close()
	require.NoError(t, resumed.Start(ctx))
	assert.Contains(t, output(resumed), "last shared 18.78830, 98.98530")
	assert.Contains(t, output(resumed), "signed in as alex@example.com")

	v := resumed.session.View()
	assert.Equal(t, tracker.StatePaired, v.State)
	assert.Equal(t, "ABC123", v.GroupID)

	require.NoError(t, resumed.Exec(ctx, "share on"))
	assert.Equal(t, tracker.StateSharing, resumed.session.View().State)
}

func TestApp_RecordAndSendVoice(t *testing.T) {
	api := &fakeAPI{user: models.User{ID: "u1", Email: "alex@example.com"}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	ctx := context.Background()

	clip := filepath.Join(t.TempDir(), "hello.ogg")
	require.NoError(t, os.WriteFile(clip, []byte("OggS"), 0o600))

	app := newTestApp(t, srv.URL, "")
	defer app.Close()
	require.NoError(t, app.Start(ctx))
	require.NoError(t, app.Exec(ctx, "signin alex@example.com festival-pass"))

	assert.ErrorIs(t, app.Exec(ctx, "send"), tracker.ErrNotRecording)
	assert.Error(t, app.Exec(ctx, "record "+filepath.Join(t.TempDir(), "missing.ogg")))

	require.NoError(t, app.Exec(ctx, "record "+clip))
	require.NoError(t, app.Exec(ctx, "send"))
	assert.Contains(t, output(app), "sent voice message v1")
	require.Len(t, api.voices, 1)
}

func TestApp_RejectsBadInput(t *testing.T) {
	api := &fakeAPI{user: models.User{ID: "u1", Email: "alex@example.com"}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	ctx := context.Background()

	app := newTestApp(t, srv.URL, "")
	defer app.Close()
	require.NoError(t, app.Start(ctx))
	require.NoError(t, app.Exec(ctx, "signin alex@example.com festival-pass"))

	assert.Error(t, app.Exec(ctx, "fix 95 0"))
	assert.Error(t, app.Exec(ctx, "battery 120"))
	assert.Error(t, app.Exec(ctx, "history 5"))
	assert.Error(t, app.Exec(ctx, "share maybe"))
	assert.Error(t, app.Exec(ctx, "play nope"))
	assert.Error(t, app.Exec(ctx, "dance"))
	assert.NoError(t, app.Exec(ctx, "   "))
}

func TestApp_RunStopsOnQuit(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:0", "")
	defer app.Close()

	in := strings.NewReader("help\nquit\nstatus\n")
	require.NoError(t, app.Run(context.Background(), in))
	assert.Contains(t, output(app), "not signed in")
	assert.Contains(t, output(app), "commands:")
	assert.NotContains(t, output(app), "sign in first")
}

func TestCommandLoader_RequiresPlayer(t *testing.T) {
	_, err := NewCommandLoader(nil, "", nil).Load("https://media.example.com/a.webm")
	assert.ErrorIs(t, err, ErrNoAudioPlayer)
}

func TestContentTypeOf(t *testing.T) {
	assert.Equal(t, "audio/webm", contentTypeOf("a.webm"))
	assert.Equal(t, "audio/mp4", contentTypeOf("a.m4a"))
	assert.Equal(t, "image/jpeg", contentTypeOf("a.jpg"))
}
