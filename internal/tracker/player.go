package tracker

import (
	"context"
	"fmt"
	"sync"

	"festival-tracker-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Playback is one loaded audio clip
type Playback interface {
	Play() error
	Pause()
}

// AudioLoader opens a playback handle for a clip URL
type AudioLoader interface {
	Load(url string) (Playback, error)
}

// PlayedMarker flips the played flag of a voice message
type PlayedMarker interface {
	MarkVoicePlayed(ctx context.Context, messageID string) error
}

// Player owns the playback handles of the voice feed, keyed by message id.
// At most one handle plays at a time.
type Player struct {
	email  string
	loader AudioLoader
	marker PlayedMarker

	mu      sync.Mutex
	handles map[string]Playback
	playing string
	marked  map[string]bool
}

// NewPlayer creates a player for the signed-in user
func NewPlayer(email string, loader AudioLoader, marker PlayedMarker) *Player {
	return &Player{
		email:   email,
		loader:  loader,
		marker:  marker,
		handles: make(map[string]Playback),
		marked:  make(map[string]bool),
	}
}

// Toggle pauses msg if it is playing. Otherwise it pauses whatever plays and
// starts msg. The first play of someone else's unplayed message marks it played.
func (p *Player) Toggle(ctx context.Context, msg *models.VoiceMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing == msg.ID {
		p.handles[msg.ID].Pause()
		p.playing = ""
		return nil
	}
	if p.playing != "" {
		p.handles[p.playing].Pause()
		p.playing = ""
	}

	h, ok := p.handles[msg.ID]
	if !ok {
		var err error
		if h, err = p.loader.Load(msg.AudioURL); err != nil {
			return fmt.Errorf("failed to load voice message: %w", err)
		}
		p.handles[msg.ID] = h
	}
	if err := h.Play(); err != nil {
		return fmt.Errorf("failed to play voice message: %w", err)
	}
	p.playing = msg.ID

	if !msg.IsPlayed && msg.CreatedByEmail != p.email && !p.marked[msg.ID] {
		if err := p.marker.MarkVoicePlayed(ctx, msg.ID); err != nil {
			log.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to mark voice message played")
			return nil
		}
		p.marked[msg.ID] = true
	}
	return nil
}

// Ended is called when a clip finishes on its own
func (p *Player) Ended(messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing == messageID {
		p.playing = ""
	}
}

// Playing returns the id of the playing message, or ""
func (p *Player) Playing() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Stop pauses the playing clip, if any
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing != "" {
		p.handles[p.playing].Pause()
		p.playing = ""
	}
}
