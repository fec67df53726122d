package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/notify"
	"festival-tracker-backend/internal/repository"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, repository.ErrAlreadyExists)
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, userID, displayName, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.DisplayName = displayName
	u.GroupID = &groupID
	return nil
}

func (r *fakeUserRepo) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.PushToken = pushToken
	}
	return nil
}

func (r *fakeUserRepo) GroupExists(_ context.Context, groupID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Group() == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) ListByGroup(_ context.Context, groupID string) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.users {
		if u.Group() == groupID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeLocationRepo struct {
	mu    sync.Mutex
	rows  []*models.LocationUpdate
	lists int
}

func (r *fakeLocationRepo) Create(_ context.Context, loc *models.LocationUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *loc
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeLocationRepo) newestFirst(keep func(*models.LocationUpdate) bool) []*models.LocationUpdate {
	var out []*models.LocationUpdate
	for _, row := range r.rows {
		if keep(row) {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeLocationRepo) ListActive(_ context.Context, groupID string, limit int) ([]*models.LocationUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	out := r.newestFirst(func(l *models.LocationUpdate) bool { return l.GroupID == groupID && l.IsActive })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeLocationRepo) ListSince(_ context.Context, groupID string, since time.Time) ([]*models.LocationUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newestFirst(func(l *models.LocationUpdate) bool {
		return l.GroupID == groupID && l.CreatedAt.After(since)
	}), nil
}

func (r *fakeLocationRepo) LatestByAuthor(_ context.Context, groupID, email string) (*models.LocationUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.newestFirst(func(l *models.LocationUpdate) bool {
		return l.GroupID == groupID && l.CreatedByEmail == email
	})
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return out[0], nil
}

type fakeVoiceRepo struct {
	mu   sync.Mutex
	msgs map[string]*models.VoiceMessage
}

func newFakeVoiceRepo() *fakeVoiceRepo {
	return &fakeVoiceRepo{msgs: map[string]*models.VoiceMessage{}}
}

func (r *fakeVoiceRepo) Create(_ context.Context, msg *models.VoiceMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.msgs[msg.ID] = &cp
	return nil
}

func (r *fakeVoiceRepo) GetByID(_ context.Context, id string) (*models.VoiceMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeVoiceRepo) ListByGroup(_ context.Context, groupID string, limit int) ([]*models.VoiceMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.VoiceMessage
	for _, m := range r.msgs {
		if m.GroupID == groupID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeVoiceRepo) MarkPlayed(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok || m.IsPlayed {
		return false, nil
	}
	m.IsPlayed = true
	return true, nil
}

type fakePhotoRepo struct {
	mu     sync.Mutex
	photos []*models.FestivalPhoto
}

func (r *fakePhotoRepo) Create(_ context.Context, photo *models.FestivalPhoto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *photo
	r.photos = append(r.photos, &cp)
	return nil
}

func (r *fakePhotoRepo) ListByGroup(_ context.Context, groupID string, limit int) ([]*models.FestivalPhoto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FestivalPhoto
	for i := len(r.photos) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.photos[i].GroupID == groupID {
			cp := *r.photos[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	s.types[key] = contentType
	return nil
}

func (s *fakeStore) PublicURL(key string) string {
	return "https://media.example.com/" + key
}

func (s *fakeStore) PresignPut(_ context.Context, key, _ string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://upload.example.com/%s?expires=%d", key, int(expires.Seconds())), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.GroupEvent
}

func (n *fakeNotifier) Notify(_ context.Context, ev notify.GroupEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *fakeNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Kind
	}
	return out
}

type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
	fail   error
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	for i, w := range c.writes {
		out[i] = string(w)
	}
	return out
}

func strPtr(s string) *string { return &s }

func groupUser(id, email, name, group string) *models.User {
	u := &models.User{ID: id, Email: email, DisplayName: name, CreatedAt: time.Now()}
	if group != "" {
		u.GroupID = strPtr(group)
	}
	return u
}

var (
	_ repository.UserRepositoryInterface         = (*fakeUserRepo)(nil)
	_ repository.LocationRepositoryInterface     = (*fakeLocationRepo)(nil)
	_ repository.VoiceMessageRepositoryInterface = (*fakeVoiceRepo)(nil)
	_ repository.PhotoRepositoryInterface        = (*fakePhotoRepo)(nil)
)
