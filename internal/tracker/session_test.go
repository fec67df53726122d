package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"festival-tracker-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedFix struct {
	write  LocationWrite
	findMe bool
}

type fakeBackend struct {
	mu         sync.Mutex
	writes     []publishedFix
	active     []*models.LocationUpdate
	history    []*models.LocationUpdate
	historyFor []int
	activeHits int
	writeErr   error
}

func (b *fakeBackend) PublishLocation(_ context.Context, w LocationWrite, findMe bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return b.writeErr
	}
	b.writes = append(b.writes, publishedFix{write: w, findMe: findMe})
	return nil
}

func (b *fakeBackend) ActiveLocations(context.Context) ([]*models.LocationUpdate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeHits++
	return b.active, nil
}

func (b *fakeBackend) LocationHistory(_ context.Context, hours int) ([]*models.LocationUpdate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.historyFor = append(b.historyFor, hours)
	return b.history, nil
}

func (b *fakeBackend) published() []publishedFix {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedFix(nil), b.writes...)
}

func (b *fakeBackend) historyCalls() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.historyFor...)
}

type fakeGPS struct {
	mu       sync.Mutex
	fixes    chan Reading
	errs     chan error
	watchCtx context.Context
	watches  int
	startErr error
}

func newFakeGPS() *fakeGPS {
	return &fakeGPS{fixes: make(chan Reading, 8), errs: make(chan error, 8)}
}

func (g *fakeGPS) Watch(ctx context.Context) (<-chan Reading, <-chan error, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.startErr != nil {
		return nil, nil, g.startErr
	}
	g.watches++
	g.watchCtx = ctx
	return g.fixes, g.errs, nil
}

func (g *fakeGPS) lastWatch() context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.watchCtx
}

func slowOptions() Options {
	return Options{
		Email:               "me@example.com",
		WriteInterval:       time.Hour,
		ActivePollInterval:  time.Hour,
		HistoryPollInterval: time.Hour,
	}
}

func newTestSession(t *testing.T, backend Backend, gps LocationSource, opts Options) *Session {
	t.Helper()
	s := NewSession(context.Background(), backend, gps, opts)
	t.Cleanup(s.Close)
	return s
}

// newSharingSession pairs a fresh session, which turns sharing on
func newSharingSession(t *testing.T, backend Backend, gps LocationSource, opts Options) *Session {
	t.Helper()
	s := newTestSession(t, backend, gps, opts)
	require.NoError(t, s.Paired("ABC123"))
	return s
}

func TestSession_StartsIdleUntilPaired(t *testing.T) {
	backend := &fakeBackend{}
	gps := newFakeGPS()
	s := newTestSession(t, backend, gps, slowOptions())

	v := s.View()
	assert.Equal(t, StateIdle, v.State)
	assert.Equal(t, "?", v.Battery)
	assert.True(t, v.Distance.Waiting)
	assert.Equal(t, DefaultCenter, v.Center)

	require.NoError(t, s.Paired("ABC123"))
	v = s.View()
	assert.Equal(t, StateSharing, v.State)
	assert.Equal(t, "ABC123", v.GroupID)
	assert.NotNil(t, gps.lastWatch())
	assert.Empty(t, backend.published(), "nothing to write before the first fix")

	gps.fixes <- Reading{Latitude: 18.79, Longitude: 98.99, Accuracy: 7}
	require.Eventually(t, func() bool { return len(backend.published()) == 1 }, time.Second, 5*time.Millisecond)

	w := backend.published()[0]
	assert.False(t, w.findMe)
	assert.True(t, w.write.IsActive)
	assert.Equal(t, 18.79, w.write.Latitude)
	assert.Equal(t, 7.0, w.write.Accuracy)
}

func TestSession_RewritesUnchangedFixEveryInterval(t *testing.T) {
	backend := &fakeBackend{}
	gps := newFakeGPS()
	opts := slowOptions()
	opts.WriteInterval = 20 * time.Millisecond
	s := newSharingSession(t, backend, gps, opts)

	gps.fixes <- Reading{Latitude: 1, Longitude: 2, Accuracy: 3}
	require.Eventually(t, func() bool { return len(backend.published()) >= 3 }, 2*time.Second, 5*time.Millisecond)

	for _, p := range backend.published() {
		assert.Equal(t, 1.0, p.write.Latitude)
		assert.Equal(t, 2.0, p.write.Longitude)
	}
	assert.Equal(t, StateSharing, s.View().State)
}

func TestSession_ToggleSharingStopsWatchAndWrites(t *testing.T) {
	backend := &fakeBackend{}
	gps := newFakeGPS()
	opts := slowOptions()
	opts.WriteInterval = 20 * time.Millisecond
	s := newSharingSession(t, backend, gps, opts)

	gps.fixes <- Reading{Latitude: 1, Longitude: 2}
	require.Eventually(t, func() bool { return len(backend.published()) >= 1 }, time.Second, 5*time.Millisecond)
	firstWatch := gps.lastWatch()

	require.NoError(t, s.ToggleSharing())
	assert.Equal(t, StatePaired, s.View().State)
	assert.ErrorIs(t, firstWatch.Err(), context.Canceled)

	stopped := len(backend.published())
	time.Sleep(80 * time.Millisecond)
	assert.Len(t, backend.published(), stopped)
	assert.Equal(t, "ABC123", s.View().GroupID, "pairing survives")

	require.NoError(t, s.SetSharing(true))
	assert.Equal(t, StateSharing, s.View().State)
	assert.Len(t, backend.published(), stopped+1, "last known fix is written on re-entry")
}

func TestSession_FindMeBypassesThrottle(t *testing.T) {
	backend := &fakeBackend{}
	gps := newFakeGPS()
	var (
		mu     sync.Mutex
		pulses [][]time.Duration
	)
	opts := slowOptions()
	opts.Haptics = func(p []time.Duration) {
		mu.Lock()
		pulses = append(pulses, p)
		mu.Unlock()
	}
	s := newSharingSession(t, backend, gps, opts)

	require.NoError(t, s.FindMe())
	assert.Empty(t, backend.published(), "no fix yet")

	gps.fixes <- Reading{Latitude: 5, Longitude: 6}
	require.Eventually(t, func() bool { return len(backend.published()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.FindMe())
	writes := backend.published()
	require.Len(t, writes, 2)
	assert.True(t, writes[1].findMe)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, pulses, 2)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}, pulses[0])
}

func TestSession_GPSErrorsAreWarnings(t *testing.T) {
	backend := &fakeBackend{}
	gps := newFakeGPS()
	warnings := make(chan error, 4)
	opts := slowOptions()
	opts.OnWarning = func(err error) { warnings <- err }
	s := newSharingSession(t, backend, gps, opts)

	gps.fixes <- Reading{Latitude: 5, Longitude: 6}
	require.Eventually(t, func() bool { return s.View().Current != nil }, time.Second, 5*time.Millisecond)

	gps.errs <- errors.New("timeout")
	select {
	case err := <-warnings:
		assert.Contains(t, err.Error(), "timeout")
	case <-time.After(time.Second):
		t.Fatal("no warning")
	}

	require.Eventually(t, func() bool { return s.View().Warning != "" }, time.Second, 5*time.Millisecond)
	v := s.View()
	assert.Equal(t, StateSharing, v.State)
	require.NotNil(t, v.Current)
	assert.Equal(t, 5.0, v.Current.Latitude)
}

func TestSession_WatchStartFailureKeepsSharing(t *testing.T) {
	gps := newFakeGPS()
	gps.startErr = errors.New("permission denied")
	opts := slowOptions()
	s := newSharingSession(t, &fakeBackend{}, gps, opts)

	require.NoError(t, s.UpdateBattery(50))
	v := s.View()
	assert.Equal(t, StateSharing, v.State)
	assert.Contains(t, v.Warning, "permission denied")
}

func TestSession_WriteFailureIsNotRetried(t *testing.T) {
	backend := &fakeBackend{writeErr: errors.New("offline")}
	gps := newFakeGPS()
	opts := slowOptions()
	s := newSharingSession(t, backend, gps, opts)

	gps.fixes <- Reading{Latitude: 5, Longitude: 6}
	require.Eventually(t, func() bool { return s.View().Warning != "" }, time.Second, 5*time.Millisecond)
	assert.Contains(t, s.View().Warning, "offline")
	assert.Zero(t, s.View().Writes)
}

func TestSession_HistoryPollingFollowsVisibility(t *testing.T) {
	backend := &fakeBackend{history: []*models.LocationUpdate{
		row("me@example.com", 2, 2, 2),
		row("you@example.com", 1, 9, 9),
		row("me@example.com", 1, 1, 1),
	}}
	opts := slowOptions()
	opts.GroupID = "ABC123"
	opts.HideHistory = true
	s := newTestSession(t, backend, newFakeGPS(), opts)

	require.NoError(t, s.UpdateBattery(80))
	assert.Empty(t, backend.historyCalls())
	assert.Empty(t, s.View().MyPath)

	require.NoError(t, s.SetShowHistory(true))
	assert.Equal(t, []int{24}, backend.historyCalls())
	v := s.View()
	assert.Len(t, v.MyPath, 2)
	assert.Equal(t, 1.0, v.MyPath[0].Latitude)
	assert.Len(t, v.PartnerPath, 1)

	require.NoError(t, s.SetHistoryPeriod(3))
	assert.Equal(t, []int{24, 3}, backend.historyCalls())
	assert.Error(t, s.SetHistoryPeriod(5))

	require.NoError(t, s.SetShowHistory(false))
	assert.Empty(t, s.View().MyPath)
}

func TestSession_ViewDerivesPartnerAndDistance(t *testing.T) {
	backend := &fakeBackend{active: []*models.LocationUpdate{
		row("me@example.com", 2, 18.7883, 98.9853),
		row("you@example.com", 1, 18.7883, 98.9853),
		row("me@example.com", 1, 0, 0),
	}}
	opts := slowOptions()
	opts.GroupID = "ABC123"
	s := newTestSession(t, backend, newFakeGPS(), opts)

	require.NoError(t, s.UpdateBattery(42))
	v := s.View()
	require.NotNil(t, v.Me)
	require.NotNil(t, v.Partner)
	assert.Equal(t, "you@example.com", v.Partner.CreatedByEmail)
	assert.Equal(t, 18.7883, v.Me.Latitude)
	assert.Equal(t, "You're right next to each other!", v.Distance.Message)
	assert.Equal(t, "42%", v.Battery)
	assert.True(t, v.HasBounds)
}

func TestSession_ActivePolling(t *testing.T) {
	backend := &fakeBackend{}
	opts := slowOptions()
	opts.GroupID = "ABC123"
	opts.ActivePollInterval = 10 * time.Millisecond
	newTestSession(t, backend, newFakeGPS(), opts)

	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.activeHits >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestSession_CloseTearsDown(t *testing.T) {
	gps := newFakeGPS()
	opts := slowOptions()
	opts.GroupID = "ABC123"
	s := NewSession(context.Background(), &fakeBackend{}, gps, opts)
	require.NoError(t, s.SetSharing(true))

	s.Close()
	assert.ErrorIs(t, gps.lastWatch().Err(), context.Canceled)
	assert.ErrorIs(t, s.FindMe(), ErrClosed)
}

func TestSession_ResumesPairedWithoutSharing(t *testing.T) {
	backend := &fakeBackend{}
	gps := newFakeGPS()
	opts := slowOptions()
	opts.GroupID = "ABC123"
	opts.WriteInterval = 10 * time.Millisecond
	s := newTestSession(t, backend, gps, opts)

	v := s.View()
	assert.Equal(t, StatePaired, v.State)
	assert.Equal(t, "ABC123", v.GroupID)
	assert.True(t, v.ShowHistory)

	require.NoError(t, s.UpdateBattery(60))
	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, gps.lastWatch())
	assert.Empty(t, backend.published())
	assert.Equal(t, []int{24}, backend.historyCalls())
	assert.Equal(t, StatePaired, s.View().State)

	require.NoError(t, s.SetSharing(true))
	assert.Equal(t, StateSharing, s.View().State)
	assert.NotNil(t, gps.lastWatch())
}
