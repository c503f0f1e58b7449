// Package sound plays short WAV cues on the default audio device without
// blocking the caller.
package sound

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"
)

// playbackSlack is added to the cue's length before a playback is reported
// as stuck.
const playbackSlack = 2 * time.Second

// Output sends decoded audio to a device.
type Output interface {
	// Init prepares the device for format. It is called before every
	// playback and must be cheap after the first call.
	Init(format beep.Format) error
	// Play starts s and returns without waiting for it.
	Play(s beep.Streamer)
}

// speakerOutput plays through beep's speaker, which owns a single device
// for the whole process.
type speakerOutput struct {
	once sync.Once
	err  error
}

func (o *speakerOutput) Init(format beep.Format) error {
	o.once.Do(func() {
		o.err = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	return o.err
}

func (o *speakerOutput) Play(s beep.Streamer) {
	speaker.Play(s)
}

// Player dispatches playback of one sound file. The file is decoded once
// and replayed from memory.
type Player struct {
	path string
	out  Output
	log  *zap.Logger
	wg   sync.WaitGroup

	mu      sync.Mutex
	buffer  *beep.Buffer
	timeout time.Duration
}

// NewPlayer returns a Player for the WAV file at path. A file that is
// missing or cannot be decoded is retried on the next Play.
func NewPlayer(path string, log *zap.Logger) *Player {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Player{path: path, out: &speakerOutput{}, log: log}
	if err := p.load(); err != nil {
		log.Debug("sound not loaded yet", zap.String("path", path), zap.Error(err))
	}
	return p
}

// load decodes the file into memory unless that already happened.
func (p *Player) load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.buffer != nil {
		return nil
	}

	f, err := os.Open(p.path)
	if err != nil {
		return err
	}
	defer f.Close()

	stream, format, err := wav.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", p.path, err)
	}
	defer stream.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(stream)

	p.buffer = buffer
	p.timeout = format.SampleRate.D(buffer.Len()) + playbackSlack
	return nil
}

// Play starts playback in the background and returns immediately. It
// returns false, after logging a warning, when the file is missing or is
// not a readable WAV. Playback errors are logged and never reach the
// caller.
func (p *Player) Play() bool {
	if _, err := os.Stat(p.path); err != nil {
		p.log.Warn("sound file not available", zap.String("path", p.path), zap.Error(err))
		return false
	}
	if err := p.load(); err != nil {
		p.log.Warn("sound file not playable", zap.String("path", p.path), zap.Error(err))
		return false
	}

	p.mu.Lock()
	buffer, timeout := p.buffer, p.timeout
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.run(buffer, timeout); err != nil {
			p.log.Warn("sound playback failed", zap.String("path", p.path), zap.Error(err))
		}
	}()
	return true
}

// Wait blocks until every playback started so far has finished.
func (p *Player) Wait() {
	p.wg.Wait()
}

func (p *Player) run(buffer *beep.Buffer, timeout time.Duration) error {
	if err := p.out.Init(buffer.Format()); err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}

	done := make(chan struct{})
	p.out.Play(beep.Seq(buffer.Streamer(0, buffer.Len()), beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("playback did not finish within %s", timeout)
	}
}
