package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrRecording    = errors.New("already recording")
	ErrNotRecording = errors.New("not recording")
)

// Recording is an in-progress microphone capture
type Recording interface {
	Stop() (data []byte, contentType string, err error)
}

// Microphone starts captures. A failure to open the device aborts Start.
type Microphone interface {
	Start(ctx context.Context) (Recording, error)
}

// Clip is a finished voice recording
type Clip struct {
	Data        []byte
	ContentType string
	Duration    int // whole seconds
}

// Recorder captures one clip at a time and counts its duration in whole
// seconds while it runs.
type Recorder struct {
	mic  Microphone
	tick time.Duration

	mu      sync.Mutex
	rec     Recording
	seconds int
	stop    chan struct{}
	stopped chan struct{}
}

// NewRecorder creates a recorder over mic
func NewRecorder(mic Microphone) *Recorder {
	return &Recorder{mic: mic, tick: time.Second}
}

// Start opens the microphone and starts the duration counter
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec != nil {
		return ErrRecording
	}

	rec, err := r.mic.Start(ctx)
	if err != nil {
		return fmt.Errorf("could not access microphone: %w", err)
	}
	r.rec = rec
	r.seconds = 0
	r.stop = make(chan struct{})
	r.stopped = make(chan struct{})

	go r.count(r.stop, r.stopped)
	return nil
}

func (r *Recorder) count(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.seconds++
			r.mu.Unlock()
		}
	}
}

// Elapsed returns the running duration in whole seconds
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seconds
}

// Active reports whether a capture is running
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec != nil
}

// Stop ends the capture and returns the clip
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	rec, stop, stopped := r.rec, r.stop, r.stopped
	if rec == nil {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.rec = nil
	r.mu.Unlock()

	close(stop)
	<-stopped

	data, contentType, err := rec.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to finish recording: %w", err)
	}
	if contentType == "" {
		contentType = "audio/webm"
	}
	return &Clip{Data: data, ContentType: contentType, Duration: r.Elapsed()}, nil
}
