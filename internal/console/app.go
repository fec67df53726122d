// Package console is a line-oriented tracker client. It signs in against the
// API, keeps the session on disk and drives a tracker Session from typed
// commands and GPS fixes.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"festival-tracker-backend/internal/apiclient"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/tracker"

	"github.com/rs/zerolog/log"
)

// Config holds the client settings
type Config struct {
	APIURL      string
	StateDir    string
	AudioPlayer []string
	Tracker     tracker.Options
}

// ConfigFromEnv reads TRACKER_* variables
func ConfigFromEnv() Config {
	cfg := Config{
		APIURL:   os.Getenv("TRACKER_API_URL"),
		StateDir: os.Getenv("TRACKER_STATE_DIR"),
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:8080"
	}
	if player := strings.TrimSpace(os.Getenv("TRACKER_AUDIO_PLAYER")); player != "" {
		cfg.AudioPlayer = strings.Fields(player)
	}
	return cfg
}

var errSignedOut = errors.New("sign in first")

// lockedWriter serializes output from commands and tracker warnings
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// App is one signed-in device
type App struct {
	cfg    Config
	client *apiclient.Client
	store  *apiclient.SessionStore
	feed   *tracker.Feed
	out    io.Writer

	ctx      context.Context
	saved    *apiclient.SavedSession
	session  *tracker.Session
	player   *tracker.Player
	recorder *tracker.Recorder

	mu    sync.Mutex
	clips map[string]*models.VoiceMessage // by id, from the last listing
	urls  map[string]string               // audio url to message id
}

// New opens the session store and builds the API client
func New(cfg Config, out io.Writer) (*App, error) {
	store, err := apiclient.OpenSessionStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		client: apiclient.New(cfg.APIURL),
		store:  store,
		feed:   tracker.NewFeed(),
		out:    &lockedWriter{w: out},
		clips:  make(map[string]*models.VoiceMessage),
		urls:   make(map[string]string),
	}, nil
}

// Start resumes a saved session, if any. ctx bounds the tracker session.
func (a *App) Start(ctx context.Context) error {
	a.ctx = ctx
	saved, err := a.store.Load()
	if errors.Is(err, apiclient.ErrNoSession) {
		fmt.Fprintln(a.out, "not signed in")
		return nil
	}
	if err != nil {
		return err
	}

	a.client = apiclient.New(a.cfg.APIURL, apiclient.WithToken(saved.Token))
	me, err := a.client.Me(ctx)
	if apiclient.IsStatus(err, http.StatusUnauthorized) {
		fmt.Fprintln(a.out, "saved session expired, sign in again")
		return a.store.Clear()
	}
	if err != nil {
		return fmt.Errorf("failed to resume session: %w", err)
	}
	saved.GroupID = me.Group()
	saved.DisplayName = me.DisplayName
	a.begin(saved)

	if saved.GroupID != "" {
		if loc, err := a.client.LatestLocation(ctx); err == nil && loc != nil {
			fmt.Fprintf(a.out, "last shared %.5f, %.5f at %s\n", loc.Latitude, loc.Longitude, loc.CreatedAt.Format("15:04"))
		}
	}
	fmt.Fprintf(a.out, "signed in as %s\n", saved.Email)
	return nil
}

// Run executes commands read from in until it ends, ctx is cancelled or
// quit is typed.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "quit" {
				return nil
			}
			if err := a.Exec(ctx, line); err != nil {
				fmt.Fprintf(a.out, "error: %v\n", err)
			}
		}
	}
}

// Close stops the tracker and releases the store
func (a *App) Close() error {
	a.end()
	return a.store.Close()
}

func (a *App) begin(saved *apiclient.SavedSession) {
	a.end()
	a.saved = saved

	if a.ctx == nil {
		a.ctx = context.Background()
	}
	opts := a.cfg.Tracker
	opts.Email = saved.Email
	opts.GroupID = saved.GroupID
	opts.OnWarning = func(err error) { fmt.Fprintf(a.out, "warning: %v\n", err) }
	a.session = tracker.NewSession(a.ctx, a.client, a.feed, opts)

	loader := NewCommandLoader(a.cfg.AudioPlayer, a.cfg.StateDir, a.clipEnded)
	a.player = tracker.NewPlayer(saved.Email, loader, a.client)
	a.recorder = nil
}

func (a *App) end() {
	if a.player != nil {
		a.player.Stop()
	}
	if a.session != nil {
		a.session.Close()
	}
	a.session, a.player, a.saved = nil, nil, nil
}

func (a *App) clipEnded(url string) {
	a.mu.Lock()
	id := a.urls[url]
	a.mu.Unlock()
	if a.player != nil && id != "" {
		a.player.Ended(id)
	}
}

func (a *App) signedIn(session *apiclient.Session) error {
	saved := &apiclient.SavedSession{
		Token:       session.Token,
		Email:       session.User.Email,
		DisplayName: session.User.DisplayName,
		GroupID:     session.User.Group(),
	}
	if err := a.store.Save(*saved); err != nil {
		return err
	}
	a.begin(saved)
	fmt.Fprintf(a.out, "signed in as %s\n", saved.Email)
	return nil
}

func (a *App) paired(g *apiclient.Group) error {
	a.saved.GroupID = g.GroupID
	a.saved.DisplayName = g.DisplayName
	if err := a.store.Save(*a.saved); err != nil {
		return err
	}
	if err := a.session.Paired(g.GroupID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "paired with code %s, sharing on\n", g.GroupID)
	return nil
}

// Exec runs one command line
func (a *App) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(a.out, usage)
		return nil
	case "signup":
		if len(args) < 3 {
			return errors.New("usage: signup EMAIL PASSWORD NAME")
		}
		session, err := a.client.SignUp(ctx, args[0], args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		return a.signedIn(session)
	case "signin":
		if len(args) != 2 {
			return errors.New("usage: signin EMAIL PASSWORD")
		}
		session, err := a.client.SignIn(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return a.signedIn(session)
	}

	if a.saved == nil {
		return errSignedOut
	}

	switch cmd {
	case "signout":
		if err := a.client.SignOut(ctx); err != nil {
			log.Warn().Err(err).Msg("Sign out request failed")
		}
		a.end()
		fmt.Fprintln(a.out, "signed out")
		return a.store.Clear()
	case "create":
		g, err := a.client.CreateGroup(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return a.paired(g)
	case "join":
		if len(args) < 2 {
			return errors.New("usage: join CODE NAME")
		}
		g, err := a.client.JoinGroup(ctx, strings.Join(args[1:], " "), args[0])
		if err != nil {
			return err
		}
		return a.paired(g)
	case "fix":
		r, err := tracker.ParseReading(strings.Join(args, " "))
		if err != nil {
			return err
		}
		a.feed.Push(r)
		return nil
	case "share":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return errors.New("usage: share on|off")
		}
		return a.session.SetSharing(args[0] == "on")
	case "find":
		return a.session.FindMe()
	case "battery":
		level, err := intArg(args)
		if err != nil || level < 0 || level > 100 {
			return errors.New("usage: battery 0-100")
		}
		return a.session.UpdateBattery(level)
	case "history":
		return a.history(args)
	case "status":
		a.printStatus()
		return nil
	case "voices":
		return a.listVoices(ctx)
	case "play":
		return a.play(ctx, args)
	case "stop":
		a.player.Stop()
		return nil
	case "record":
		return a.record(ctx, args)
	case "send":
		return a.sendRecording(ctx)
	case "photo":
		return a.sendPhoto(ctx, args)
	case "photos":
		return a.listPhotos(ctx)
	}
	return fmt.Errorf("unknown command %q, try help", cmd)
}

const usage = `commands:
  signup EMAIL PASSWORD NAME | signin EMAIL PASSWORD | signout
  create NAME | join CODE NAME
  fix LAT LON [ACCURACY] | share on|off | find | battery N
  history on|off|1|3|6|12|24 | status
  voices | play ID | stop | record FILE | send
  photo FILE [CAPTION] | photos | quit`

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("one number expected")
	}
	return strconv.Atoi(args[0])
}

func (a *App) history(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: history on|off|HOURS")
	}
	switch args[0] {
	case "on":
		return a.session.SetShowHistory(true)
	case "off":
		return a.session.SetShowHistory(false)
	}
	hours, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.New("usage: history on|off|HOURS")
	}
	return a.session.SetHistoryPeriod(hours)
}

func (a *App) printStatus() {
	v := a.session.View()
	fmt.Fprintf(a.out, "state: %s\n", v.State)
	if v.GroupID != "" {
		fmt.Fprintf(a.out, "code: %s\n", v.GroupID)
	}
	fmt.Fprintf(a.out, "battery: %s\n", v.Battery)
	if v.Partner != nil {
		fmt.Fprintf(a.out, "partner: %s (%s)\n", v.Partner.PartnerName, tracker.FormatBattery(v.Partner.BatteryLevel))
	}
	if v.Distance.Waiting {
		fmt.Fprintln(a.out, v.Distance.Message)
	} else {
		fmt.Fprintf(a.out, "distance: %s, %s\n", v.Distance.Formatted, v.Distance.Message)
		fmt.Fprintf(a.out, "accuracy: you %s, partner %s\n", v.Distance.MyAccuracy, v.Distance.PartnerAccuracy)
	}
	if v.ShowHistory {
		fmt.Fprintf(a.out, "history: last %dh, %d/%d points\n", v.HistoryHours, len(v.MyPath), len(v.PartnerPath))
	}
	fmt.Fprintf(a.out, "writes: %d\n", v.Writes)
	if v.Warning != "" {
		fmt.Fprintf(a.out, "last warning: %s\n", v.Warning)
	}
}

func (a *App) listVoices(ctx context.Context) error {
	msgs, err := a.client.VoiceMessages(ctx, 0)
	if err != nil {
		return err
	}
	a.mu.Lock()
	for _, m := range msgs {
		a.clips[m.ID] = m
		a.urls[m.AudioURL] = m.ID
	}
	a.mu.Unlock()

	for _, m := range msgs {
		state := ""
		if m.CreatedByEmail != a.saved.Email && !m.IsPlayed {
			state = " new"
		}
		fmt.Fprintf(a.out, "%s %s %ds%s\n", m.ID, m.PartnerName, m.Duration, state)
	}
	return nil
}

func (a *App) play(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: play ID")
	}
	a.mu.Lock()
	msg := a.clips[args[0]]
	a.mu.Unlock()
	if msg == nil {
		return fmt.Errorf("unknown voice message %q, run voices first", args[0])
	}
	return a.player.Toggle(ctx, msg)
}

func (a *App) record(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: record FILE")
	}
	a.recorder = tracker.NewRecorder(NewFileMicrophone(args[0]))
	if err := a.recorder.Start(ctx); err != nil {
		a.recorder = nil
		return err
	}
	fmt.Fprintln(a.out, "recording, type send to finish")
	return nil
}

func (a *App) sendRecording(ctx context.Context) error {
	if a.recorder == nil {
		return tracker.ErrNotRecording
	}
	clip, err := a.recorder.Stop()
	a.recorder = nil
	if err != nil {
		return err
	}
	msg, err := a.client.SendVoice(ctx, clip)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "sent voice message %s (%ds)\n", msg.ID, msg.Duration)
	return nil
}

func (a *App) sendPhoto(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: photo FILE [CAPTION]")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	upload := apiclient.PhotoUpload{
		Data:        data,
		ContentType: contentTypeOf(args[0]),
		Caption:     strings.Join(args[1:], " "),
	}
	if cur := a.session.View().Current; cur != nil {
		upload.Latitude, upload.Longitude = &cur.Latitude, &cur.Longitude
	}
	photo, err := a.client.SendPhoto(ctx, upload)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "sent photo %s\n", photo.ImageURL)
	return nil
}

func (a *App) listPhotos(ctx context.Context) error {
	photos, err := a.client.Photos(ctx, 0)
	if err != nil {
		return err
	}
	for _, p := range photos {
		caption := ""
		if p.Caption != nil {
			caption = " " + *p.Caption
		}
		fmt.Fprintf(a.out, "%s %s%s\n", p.PartnerName, p.ImageURL, caption)
	}
	return nil
}
