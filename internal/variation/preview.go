package variation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxImageBytes bounds how much of an image source is read for a preview.
const DefaultMaxImageBytes = 5 << 20

var (
	ErrNotImage      = errors.New("not an image")
	ErrImageTooLarge = errors.New("image too large")
)

// Preview is an in-memory, displayable rendition of a selected image.
type Preview struct {
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	DataURL     string `json:"dataUrl"`
}

// ImageSource opens the bytes of a selected image.
type ImageSource func() (io.ReadCloser, error)

// DeliverFunc receives a finished read. err is non-nil when the source could not be
// turned into a preview. It is never called for cancelled reads, but a newer Load or a
// Cancel can still race with a delivery in progress: consumers that serialize on their own
// lock should drop the result unless Current(token, id) holds under that lock.
type DeliverFunc func(token string, id uint64, p Preview, err error)

// PreviewLoader reads image sources off the caller's goroutine. Pending reads are
// keyed by variation token, never by position.
type PreviewLoader struct {
	maxBytes int64
	deliver  DeliverFunc

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	pending map[string]pendingRead
	seq     uint64
	wg      sync.WaitGroup
}

type pendingRead struct {
	id     uint64
	cancel context.CancelFunc
}

func NewPreviewLoader(maxBytes int64, deliver DeliverFunc) *PreviewLoader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PreviewLoader{
		maxBytes: maxBytes,
		deliver:  deliver,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]pendingRead),
	}
}

// Load starts reading src for the variation identified by token. A newer Load for the
// same token supersedes an older one still in flight.
func (l *PreviewLoader) Load(token string, src ImageSource) {
	l.mu.Lock()
	if l.ctx.Err() != nil {
		l.mu.Unlock()
		return
	}
	if prev, ok := l.pending[token]; ok {
		prev.cancel()
	}
	l.seq++
	id := l.seq
	ctx, cancel := context.WithCancel(l.ctx)
	l.pending[token] = pendingRead{id: id, cancel: cancel}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer cancel()
		defer l.settle(token, id)

		p, err := readPreview(ctx, src, l.maxBytes)
		if ctx.Err() != nil || !l.Current(token, id) {
			return
		}
		l.deliver(token, id, p, err)
	}()
}

// Current reports whether id is still the live read for token.
func (l *PreviewLoader) Current(token string, id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.pending[token]
	return ok && current.id == id
}

func (l *PreviewLoader) settle(token string, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current, ok := l.pending[token]; ok && current.id == id {
		delete(l.pending, token)
	}
}

// Cancel discards any in-flight read for token.
func (l *PreviewLoader) Cancel(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.pending[token]; ok {
		p.cancel()
		delete(l.pending, token)
	}
}

// Pending reports how many reads are in flight.
func (l *PreviewLoader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Close cancels every pending read. Reads finishing afterwards are dropped.
func (l *PreviewLoader) Close() {
	l.mu.Lock()
	l.cancel()
	l.pending = make(map[string]pendingRead)
	l.mu.Unlock()
}

// Wait blocks until every started read has returned.
func (l *PreviewLoader) Wait() {
	l.wg.Wait()
}

func readPreview(ctx context.Context, src ImageSource, maxBytes int64) (Preview, error) {
	rc, err := src()
	if err != nil {
		return Preview{}, fmt.Errorf("open image: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return Preview{}, fmt.Errorf("read image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}
	if int64(len(data)) > maxBytes {
		return Preview{}, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, maxBytes)
	}
	return BuildPreview(data)
}

// BuildPreview sniffs the content type of data and encodes it as a data URL.
func BuildPreview(data []byte) (Preview, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Preview{}, fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}
	ct := mt.String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return Preview{
		ContentType: ct,
		Size:        len(data),
		DataURL:     "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}
