package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/notify"
	"festival-tracker-backend/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (r *memUsers) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrAlreadyExists
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) UpdateProfile(_ context.Context, userID, displayName, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.DisplayName, u.GroupID = displayName, &groupID
	r.users[userID] = u
	return nil
}

func (r *memUsers) UpdatePushToken(_ context.Context, userID string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	u.PushToken = token
	r.users[userID] = u
	return nil
}

func (r *memUsers) GroupExists(ctx context.Context, groupID string) (bool, error) {
	members, _ := r.ListByGroup(ctx, groupID)
	return len(members) > 0, nil
}

func (r *memUsers) ListByGroup(_ context.Context, groupID string) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.users {
		if u.Group() == groupID {
			u := u
			out = append(out, &u)
		}
	}
	return out, nil
}

type memLocations struct {
	mu   sync.Mutex
	rows []models.LocationUpdate
}

func (r *memLocations) Create(_ context.Context, loc *models.LocationUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *loc)
	return nil
}

func (r *memLocations) query(keep func(models.LocationUpdate) bool) []*models.LocationUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.LocationUpdate{}
	for _, row := range r.rows {
		if keep(row) {
			row := row
			out = append(out, &row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memLocations) ListActive(_ context.Context, groupID string, limit int) ([]*models.LocationUpdate, error) {
	out := r.query(func(l models.LocationUpdate) bool { return l.GroupID == groupID && l.IsActive })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memLocations) ListSince(_ context.Context, groupID string, since time.Time) ([]*models.LocationUpdate, error) {
	return r.query(func(l models.LocationUpdate) bool { return l.GroupID == groupID && l.CreatedAt.After(since) }), nil
}

func (r *memLocations) LatestByAuthor(_ context.Context, groupID, email string) (*models.LocationUpdate, error) {
	out := r.query(func(l models.LocationUpdate) bool { return l.GroupID == groupID && l.CreatedByEmail == email })
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return out[0], nil
}

type memVoice struct {
	mu   sync.Mutex
	msgs []*models.VoiceMessage
}

func (r *memVoice) Create(_ context.Context, msg *models.VoiceMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.msgs = append(r.msgs, &cp)
	return nil
}

func (r *memVoice) GetByID(_ context.Context, id string) (*models.VoiceMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memVoice) ListByGroup(_ context.Context, groupID string, limit int) ([]*models.VoiceMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.VoiceMessage{}
	for i := len(r.msgs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.msgs[i].GroupID == groupID {
			cp := *r.msgs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memVoice) MarkPlayed(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m.ID == id && !m.IsPlayed {
			m.IsPlayed = true
			return true, nil
		}
	}
	return false, nil
}

type memPhotos struct {
	mu     sync.Mutex
	photos []*models.FestivalPhoto
}

func (r *memPhotos) Create(_ context.Context, p *models.FestivalPhoto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.photos = append(r.photos, &cp)
	return nil
}

func (r *memPhotos) ListByGroup(_ context.Context, groupID string, limit int) ([]*models.FestivalPhoto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.FestivalPhoto{}
	for i := len(r.photos) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.photos[i].GroupID == groupID {
			cp := *r.photos[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) Put(_ context.Context, key string, body []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	return nil
}

func (s *memStore) PublicURL(key string) string { return "https://media.example.com/" + key }

func (s *memStore) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://upload.example.com/" + key, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, notify.GroupEvent) error { return nil }

var (
	_ repository.UserRepositoryInterface         = (*memUsers)(nil)
	_ repository.LocationRepositoryInterface     = (*memLocations)(nil)
	_ repository.VoiceMessageRepositoryInterface = (*memVoice)(nil)
	_ repository.PhotoRepositoryInterface        = (*memPhotos)(nil)
)
