package audio

import (
	"sync"
	"time"
)

// pacedSource runs a frame producer on its own goroutine and hands frames to
// the consumer through an unbuffered channel. With realtime set, frames are
// released no faster than one per frame duration.
type pacedSource struct {
	next     func() *AudioBuffer // returns nil when exhausted
	frameDur time.Duration
	realtime bool

	mu          sync.Mutex
	isCapturing bool
	frames      chan *AudioBuffer
	done        chan struct{}
	wg          sync.WaitGroup
}

func newPacedSource(next func() *AudioBuffer, frameDur time.Duration, realtime bool) *pacedSource {
	return &pacedSource{
		next:     next,
		frameDur: frameDur,
		realtime: realtime,
	}
}

func frameDuration(bufferSize, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(bufferSize) * time.Second / time.Duration(sampleRate)
}

// Start begins producing frames
func (s *pacedSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isCapturing {
		return ErrAlreadyCapturing
	}

	s.frames = make(chan *AudioBuffer)
	s.done = make(chan struct{})
	s.isCapturing = true

	s.wg.Add(1)
	go s.run(s.frames, s.done)
	return nil
}

func (s *pacedSource) run(frames chan<- *AudioBuffer, done <-chan struct{}) {
	defer s.wg.Done()
	defer close(frames)

	var tick <-chan time.Time
	if s.realtime && s.frameDur > 0 {
		ticker := time.NewTicker(s.frameDur)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		buf := s.next()
		if buf == nil {
			return
		}
		if tick != nil {
			select {
			case <-tick:
			case <-done:
				return
			}
		}
		select {
		case frames <- buf:
		case <-done:
			return
		}
	}
}

// Stop ends production and waits for the producer to exit
func (s *pacedSource) Stop() error {
	s.mu.Lock()
	if !s.isCapturing {
		s.mu.Unlock()
		return ErrNotCapturing
	}
	s.isCapturing = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Frames returns the frame channel
func (s *pacedSource) Frames() <-chan *AudioBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// IsCapturing returns true between Start and Stop
func (s *pacedSource) IsCapturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isCapturing
}
