package buffer

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/somaray-cli/somaray/constant"
	"github.com/somaray-cli/somaray/log"
)

// streamClient has no overall timeout: a live stream read is open-ended.
// Dial and header timeouts still bound connection setup.
var streamClient = &http.Client{
	Transport: &http.Transport{
		ResponseHeaderTimeout: 15 * time.Second,
		IdleConnTimeout:       90 * time.Second,
	},
}

const sampleChunkSize = 16 * 1024

// Sampler taps the live stream and feeds a Buffer so the UI can show how much
// smoothing headroom is available. It is advisory only: the audio backend
// pulls its own copy of the stream and never reads from here.
type Sampler struct {
	buf    *Buffer
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSampler(buf *Buffer) *Sampler {
	return &Sampler{buf: buf}
}

// Watch starts sampling the given stream URL, replacing any previous stream.
func (s *Sampler) Watch(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.buf.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.run(ctx, url)
}

// Stop ends sampling and empties the buffer.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.buf.Flush()
}

func (s *Sampler) run(ctx context.Context, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warnf("buffer sampler: %v", err)
		return
	}
	req.Header.Set("User-Agent", constant.UserAgent)

	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			log.Warnf("buffer sampler: connect %s: %v", url, err)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("buffer sampler: %s returned %s", url, resp.Status)
		return
	}

	chunk := make([]byte, sampleChunkSize)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			s.buf.Append(chunk[:n])
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Debugf("buffer sampler: stream closed: %v", err)
			}
			return
		}
	}
}
