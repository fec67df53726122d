package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"festival-tracker-backend/internal/tracker"

	"github.com/rs/zerolog/log"
)

// FileMicrophone "records" by reading an audio file when the capture stops
type FileMicrophone struct {
	path string
}

// NewFileMicrophone captures the file at path
func NewFileMicrophone(path string) *FileMicrophone {
	return &FileMicrophone{path: path}
}

// Start checks the file can be opened
func (m *FileMicrophone) Start(context.Context) (tracker.Recording, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, err
	}
	_ = f.Close()
	return fileRecording{path: m.path}, nil
}

type fileRecording struct {
	path string
}

func (r fileRecording) Stop() ([]byte, string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, "", err
	}
	return data, contentTypeOf(r.path), nil
}

func contentTypeOf(path string) string {
	switch filepath.Ext(path) {
	case ".webm":
		return "audio/webm"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return ""
}

// ErrNoAudioPlayer is returned when playback is asked for but no player
// command is configured
var ErrNoAudioPlayer = errors.New("no audio player configured, set TRACKER_AUDIO_PLAYER")

// CommandLoader plays clips by downloading them and running an external
// player command with the file as its last argument.
type CommandLoader struct {
	command []string
	http    *http.Client
	dir     string
	onEnd   func(url string)
}

// NewCommandLoader creates a loader. onEnd runs when a clip finishes on its own.
func NewCommandLoader(command []string, dir string, onEnd func(url string)) *CommandLoader {
	return &CommandLoader{command: command, http: http.DefaultClient, dir: dir, onEnd: onEnd}
}

// Load downloads url into the loader's directory
func (l *CommandLoader) Load(url string) (tracker.Playback, error) {
	if len(l.command) == 0 {
		return nil, ErrNoAudioPlayer
	}
	resp, err := l.http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	f, err := os.CreateTemp(l.dir, "voice-*"+filepath.Ext(url))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return &commandPlayback{loader: l, url: url, file: f.Name()}, nil
}

type commandPlayback struct {
	loader *CommandLoader
	url    string
	file   string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// Play starts the player process. Playback restarts from the beginning.
func (p *commandPlayback) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return nil
	}

	args := append(append([]string(nil), p.loader.command[1:]...), p.file)
	cmd := exec.Command(p.loader.command[0], args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	p.cmd = cmd

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		ended := p.cmd == cmd
		if ended {
			p.cmd = nil
		}
		p.mu.Unlock()
		if ended {
			if err != nil {
				log.Debug().Err(err).Str("url", p.url).Msg("Audio player exited")
			}
			if p.loader.onEnd != nil {
				p.loader.onEnd(p.url)
			}
		}
	}()
	return nil
}

// Pause stops the player process
func (p *commandPlayback) Pause() {
	p.mu.Lock()
	cmd := p.cmd
	p.cmd = nil
	p.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
