package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"festival-tracker-backend/internal/geo"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/validation"

	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by commands sent to a closed Session
var ErrClosed = errors.New("tracker session closed")

// State is where a Session is in the pairing and sharing lifecycle
type State int

const (
	StateIdle State = iota
	StatePaired
	StateSharing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePaired:
		return "paired"
	case StateSharing:
		return "sharing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Reading is one GPS fix
type Reading struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// LocationSource streams GPS readings until ctx is cancelled. Errors are
// reported on the error channel and do not end the watch.
type LocationSource interface {
	Watch(ctx context.Context) (<-chan Reading, <-chan error, error)
}

// LocationWrite is one published fix with its denormalized snapshot
type LocationWrite struct {
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Accuracy     float64   `json:"accuracy"`
	BatteryLevel *int      `json:"battery_level"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Backend is the server surface a Session reads and writes
type Backend interface {
	PublishLocation(ctx context.Context, w LocationWrite, findMe bool) error
	ActiveLocations(ctx context.Context) ([]*models.LocationUpdate, error)
	LocationHistory(ctx context.Context, hours int) ([]*models.LocationUpdate, error)
}

// GPSTimeout bounds how long a LocationSource waits for a fresh fix. Cached
// fixes are never reused.
const GPSTimeout = 5 * time.Second

// FindMePattern is the vibrate, pause, vibrate pulse played on find-me-now
var FindMePattern = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}

// Options configures a Session
type Options struct {
	Email   string
	GroupID string // a saved group resumes paired but not sharing

	WriteInterval       time.Duration
	ActivePollInterval  time.Duration
	HistoryPollInterval time.Duration

	HistoryHours int
	HideHistory  bool

	Haptics   func(pattern []time.Duration)
	OnWarning func(err error)
	Now       func() time.Time
}

func (o *Options) applyDefaults() {
	if o.WriteInterval <= 0 {
		o.WriteInterval = 30 * time.Second
	}
	if o.ActivePollInterval <= 0 {
		o.ActivePollInterval = 3 * time.Second
	}
	if o.HistoryPollInterval <= 0 {
		o.HistoryPollInterval = 30 * time.Second
	}
	if !validation.ValidHistoryPeriod(o.HistoryHours) {
		o.HistoryHours = validation.DefaultHistoryPeriod
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// View is a snapshot of everything the map screen renders
type View struct {
	State        State
	GroupID      string
	Current      *Reading
	Me           *models.LocationUpdate
	Partner      *models.LocationUpdate
	Distance     geo.Report
	Center       geo.Point
	MyPath       []geo.Point
	PartnerPath  []geo.Point
	Bounds       Box
	HasBounds    bool
	Battery      string
	HistoryHours int
	ShowHistory  bool
	Writes       int
	Warning      string
}

// Session runs the client location pipeline. All state below the mutex is
// owned by the event loop goroutine; commands reach it through cmds.
type Session struct {
	backend Backend
	source  LocationSource
	opts    Options

	cmds   chan func()
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.RWMutex
	view View

	ctx          context.Context
	state        State
	groupID      string
	current      *Reading
	battery      *int
	active       []*models.LocationUpdate
	history      []*models.LocationUpdate
	historyHours int
	showHistory  bool
	writes       int
	warning      string

	fixes     <-chan Reading
	gpsErrs   <-chan error
	stopWatch context.CancelFunc

	writeTicker   *time.Ticker
	activeTicker  *time.Ticker
	historyTicker *time.Ticker
}

// NewSession starts the event loop. It stops when ctx is cancelled or Close
// is called.
func NewSession(ctx context.Context, backend Backend, source LocationSource, opts Options) *Session {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		backend:      backend,
		source:       source,
		opts:         opts,
		cmds:         make(chan func()),
		cancel:       cancel,
		done:         make(chan struct{}),
		ctx:          ctx,
		historyHours: opts.HistoryHours,
		showHistory:  !opts.HideHistory,
	}
	if opts.GroupID != "" {
		s.groupID = opts.GroupID
		s.state = StatePaired
	}
	s.publishView()

	go s.run()
	return s
}

// Close stops the loop and waits for it to tear down the GPS watch and timers
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

// View returns the latest snapshot
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Paired records a completed create or join. Pairing turns sharing on.
func (s *Session) Paired(groupID string) error {
	return s.exec(func() {
		s.groupID = groupID
		s.state = StatePaired
		s.startPolling()
		s.enterSharing()
	})
}

// SetSharing starts or stops GPS observation without touching the pairing
func (s *Session) SetSharing(on bool) error {
	return s.exec(func() {
		switch {
		case on && s.state == StatePaired:
			s.enterSharing()
		case !on && s.state == StateSharing:
			s.leaveSharing()
		}
	})
}

// ToggleSharing flips the sharing flag
func (s *Session) ToggleSharing() error {
	return s.exec(func() {
		switch s.state {
		case StatePaired:
			s.enterSharing()
		case StateSharing:
			s.leaveSharing()
		}
	})
}

// FindMe pulses the haptics and writes the current fix immediately,
// bypassing the throttle.
func (s *Session) FindMe() error {
	return s.exec(func() {
		if s.opts.Haptics != nil {
			s.opts.Haptics(FindMePattern)
		}
		s.write(true)
	})
}

// UpdateBattery records a battery level change, in percent
func (s *Session) UpdateBattery(level int) error {
	return s.exec(func() {
		s.battery = &level
	})
}

// SetHistoryPeriod changes the history window, one of validation.HistoryPeriods
func (s *Session) SetHistoryPeriod(hours int) error {
	if !validation.ValidHistoryPeriod(hours) {
		return fmt.Errorf("invalid history period %d", hours)
	}
	return s.exec(func() {
		s.historyHours = hours
		if s.showHistory && s.groupID != "" {
			s.refreshHistory()
		}
	})
}

// SetShowHistory turns history paths and their polling on or off
func (s *Session) SetShowHistory(show bool) error {
	return s.exec(func() {
		if show == s.showHistory {
			return
		}
		s.showHistory = show
		if !show {
			stopTicker(&s.historyTicker)
			s.history = nil
			return
		}
		if s.groupID != "" {
			s.historyTicker = time.NewTicker(s.opts.HistoryPollInterval)
			s.refreshHistory()
		}
	})
}

func (s *Session) exec(fn func()) error {
	processed := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); s.publishView(); close(processed) }:
	case <-s.done:
		return ErrClosed
	}
	select {
	case <-processed:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) run() {
	defer close(s.done)
	defer s.teardown()

	if s.groupID != "" {
		s.startPolling()
		s.publishView()
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.cmds:
			fn()
		case r, ok := <-s.fixes:
			if !ok {
				s.fixes = nil
				break
			}
			s.current = &r
			s.write(false)
			s.writeTicker.Reset(s.opts.WriteInterval)
		case err, ok := <-s.gpsErrs:
			if !ok {
				s.gpsErrs = nil
				break
			}
			s.warn(fmt.Errorf("could not get location: %w", err))
		case <-tickC(s.writeTicker):
			s.write(false)
		case <-tickC(s.activeTicker):
			s.refreshActive()
		case <-tickC(s.historyTicker):
			s.refreshHistory()
		}
		s.publishView()
	}
}

func (s *Session) startPolling() {
	if s.activeTicker == nil {
		s.activeTicker = time.NewTicker(s.opts.ActivePollInterval)
	}
	if s.showHistory && s.historyTicker == nil {
		s.historyTicker = time.NewTicker(s.opts.HistoryPollInterval)
	}
	s.refreshActive()
	if s.showHistory {
		s.refreshHistory()
	}
}

func (s *Session) enterSharing() {
	s.stopGPS()
	stopTicker(&s.writeTicker)
	s.state = StateSharing

	watchCtx, cancel := context.WithCancel(s.ctx)
	fixes, errs, err := s.source.Watch(watchCtx)
	if err != nil {
		cancel()
		s.warn(fmt.Errorf("could not start location watch: %w", err))
	} else {
		s.fixes, s.gpsErrs, s.stopWatch = fixes, errs, cancel
	}

	s.writeTicker = time.NewTicker(s.opts.WriteInterval)
	s.write(false)
}

func (s *Session) leaveSharing() {
	s.state = StatePaired
	s.stopGPS()
	stopTicker(&s.writeTicker)
}

func (s *Session) stopGPS() {
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	s.fixes, s.gpsErrs = nil, nil
}

func (s *Session) teardown() {
	s.stopGPS()
	stopTicker(&s.writeTicker)
	stopTicker(&s.activeTicker)
	stopTicker(&s.historyTicker)
}

// write publishes the current fix. Throttled writes only happen while
// sharing; find-me writes whatever is known.
func (s *Session) write(findMe bool) {
	if s.current == nil || s.groupID == "" {
		return
	}
	if !findMe && s.state != StateSharing {
		return
	}

	w := LocationWrite{
		Latitude:     s.current.Latitude,
		Longitude:    s.current.Longitude,
		Accuracy:     s.current.Accuracy,
		BatteryLevel: s.battery,
		IsActive:     s.state == StateSharing,
		CreatedAt:    s.opts.Now(),
	}
	if err := s.backend.PublishLocation(s.ctx, w, findMe); err != nil {
		s.warn(fmt.Errorf("could not share location: %w", err))
		return
	}
	s.writes++

	s.refreshActive()
	if s.showHistory {
		s.refreshHistory()
	}
}

func (s *Session) refreshActive() {
	rows, err := s.backend.ActiveLocations(s.ctx)
	if err != nil {
		s.warn(fmt.Errorf("could not load locations: %w", err))
		return
	}
	s.active = rows
}

func (s *Session) refreshHistory() {
	rows, err := s.backend.LocationHistory(s.ctx, s.historyHours)
	if err != nil {
		s.warn(fmt.Errorf("could not load location history: %w", err))
		return
	}
	s.history = rows
}

func (s *Session) warn(err error) {
	if s.ctx.Err() != nil {
		return
	}
	log.Warn().Err(err).Str("group_id", s.groupID).Msg("Tracker warning")
	s.warning = err.Error()
	if s.opts.OnWarning != nil {
		s.opts.OnWarning(err)
	}
}

func (s *Session) publishView() {
	me := LatestByAuthor(s.active, s.opts.Email)
	partner := PartnerLocation(s.active, s.opts.Email)

	v := View{
		State:        s.state,
		GroupID:      s.groupID,
		Current:      s.current,
		Me:           me,
		Partner:      partner,
		Distance:     geo.Measure(FixOf(me), FixOf(partner)),
		Center:       Center(me),
		Battery:      FormatBattery(s.battery),
		HistoryHours: s.historyHours,
		ShowHistory:  s.showHistory,
		Writes:       s.writes,
		Warning:      s.warning,
	}
	if s.showHistory {
		mine, others := SplitHistory(s.history, s.opts.Email)
		v.MyPath, v.PartnerPath = Path(mine), Path(others)
	}
	v.Bounds, v.HasBounds = Bounds(me, partner, s.showHistory, v.MyPath, v.PartnerPath)

	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

// FormatBattery renders a battery percentage, or "?" when the device does
// not report one.
func FormatBattery(level *int) string {
	if level == nil {
		return "?"
	}
	return fmt.Sprintf("%d%%", *level)
}

func tickC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func stopTicker(t **time.Ticker) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
