package session

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/01moynul/bookshelf-admin/internal/models"
	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("session closed")

// Session is one open book form. All access to the form goes through the session lock,
// which keeps the single-threaded model of the form intact across concurrent requests.
type Session struct {
	ID     string
	UserID int64

	mu            sync.Mutex
	form          *variation.ProductForm
	loader        *variation.PreviewLoader
	previewErrors map[string]string
	closed        bool
	lastUsed      time.Time
	now           func() time.Time
}

func newSession(id string, userID int64, form *variation.ProductForm, maxImageBytes int64, now func() time.Time) *Session {
	s := &Session{
		ID:            id,
		UserID:        userID,
		form:          form,
		previewErrors: make(map[string]string),
		lastUsed:      now(),
		now:           now,
	}
	s.loader = variation.NewPreviewLoader(maxImageBytes, s.deliverPreview)
	return s
}

// Do runs fn with exclusive access to the form.
func (s *Session) Do(fn func(f *variation.ProductForm) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.lastUsed = s.now()
	return fn(s.form)
}

// RemoveVariation removes the entry at index and discards its pending image read.
func (s *Session) RemoveVariation(index int) error {
	return s.Do(func(f *variation.ProductForm) error {
		removed, err := f.Variations().Remove(index)
		if err != nil {
			return err
		}
		s.loader.Cancel(removed.Token)
		delete(s.previewErrors, removed.Token)
		return nil
	})
}

// ClearImage drops the image of the entry at index together with its preview and any
// read still in flight for it.
func (s *Session) ClearImage(index int) error {
	return s.Do(func(f *variation.ProductForm) error {
		if err := f.Variations().UpdateField(index, variation.FieldImage, nil); err != nil {
			return err
		}
		v, err := f.Variations().At(index)
		if err != nil {
			return err
		}
		s.loader.Cancel(v.Token)
		delete(s.previewErrors, v.Token)
		return nil
	})
}

// SetType switches the product type, discarding pending reads of variations it drops.
func (s *Session) SetType(t variation.ProductType) error {
	return s.Do(func(f *variation.ProductForm) error {
		before := f.Variations().Variations()
		if err := f.SetType(t); err != nil {
			return err
		}
		for _, v := range before {
			if f.Variations().IndexOf(v.Token) < 0 {
				s.loader.Cancel(v.Token)
				delete(s.previewErrors, v.Token)
			}
		}
		return nil
	})
}

// AttachImage sets the image of the entry at index and starts building its preview in the
// background. The preview lands on that variation even if its position changes meanwhile.
func (s *Session) AttachImage(index int, asset *variation.ImageAsset) error {
	return s.Do(func(f *variation.ProductForm) error {
		if err := f.Variations().UpdateField(index, variation.FieldImage, asset); err != nil {
			return err
		}
		v, err := f.Variations().At(index)
		if err != nil {
			return err
		}
		delete(s.previewErrors, v.Token)
		data := asset.Data
		s.loader.Load(v.Token, func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		})
		return nil
	})
}

func (s *Session) deliverPreview(token string, id uint64, p variation.Preview, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.loader.Current(token, id) {
		return
	}
	if err != nil {
		if s.form.Variations().IndexOf(token) >= 0 {
			s.previewErrors[token] = err.Error()
		}
		zap.S().Warnw("image preview failed", "session", s.ID, "token", token, "error", err)
		return
	}
	if !s.form.Variations().SetPreview(token, p) {
		zap.S().Debugw("dropping preview for removed variation", "session", s.ID, "token", token)
	}
}

// WaitPreviews blocks until every started image read has finished.
func (s *Session) WaitPreviews() {
	s.loader.Wait()
}

// PendingPreviews reports how many image reads are in flight.
func (s *Session) PendingPreviews() int {
	return s.loader.Pending()
}

// Close tears the session down. Pending image reads are discarded and reads completing
// later have no effect.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.loader.Close()
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Snapshot returns the draft state of the form. Image bytes are left out.
func (s *Session) Snapshot() (models.DraftState, error) {
	var st models.DraftState
	err := s.Do(func(f *variation.ProductForm) error {
		st = snapshot(f)
		return nil
	})
	return st, err
}

func snapshot(f *variation.ProductForm) models.DraftState {
	vs := f.Variations().Variations()
	for i := range vs {
		vs[i].Image = nil
	}
	st := models.DraftState{
		BookID:      f.BookID,
		Title:       f.Title,
		ParentSKU:   f.ParentSKU(),
		ProductType: f.Type(),
		Attributes:  f.Attributes().Drafts(),
		Variations:  vs,
	}
	if f.Price != nil {
		p := *f.Price
		st.Price = &p
	}
	if f.StockQuantity != nil {
		q := *f.StockQuantity
		st.StockQuantity = &q
	}
	return st
}

func restore(f *variation.ProductForm, st models.DraftState) error {
	f.BookID = st.BookID
	f.Title = st.Title
	f.SetParentSKU(st.ParentSKU)
	f.Price = st.Price
	f.StockQuantity = st.StockQuantity
	pt := st.ProductType
	if pt == "" {
		pt = variation.Simple
	}
	return f.Restore(pt, st.Attributes, st.Variations)
}

// View is the JSON rendering of a session for the UI.
type View struct {
	ID            string                     `json:"id"`
	BookID        *int64                     `json:"bookId,omitempty"`
	Title         string                     `json:"title"`
	ParentSKU     string                     `json:"parentSku"`
	ProductType   variation.ProductType      `json:"productType"`
	Price         *decimal.Decimal           `json:"price,omitempty"`
	StockQuantity *int                       `json:"stockQuantity,omitempty"`
	Attributes    []variation.AttributeDraft `json:"attributes"`
	Validation    variation.ValidationResult `json:"validation"`
	Variations    []VariationView            `json:"variations"`
	Pending       int                        `json:"pendingPreviews"`
}

type VariationView struct {
	variation.Variation
	Preview      *variation.Preview `json:"preview,omitempty"`
	PreviewError string             `json:"previewError,omitempty"`
}

// View renders the current state of the form.
func (s *Session) View() (View, error) {
	var out View
	err := s.Do(func(f *variation.ProductForm) error {
		st := snapshot(f)
		out = View{
			ID:            s.ID,
			BookID:        st.BookID,
			Title:         st.Title,
			ParentSKU:     st.ParentSKU,
			ProductType:   st.ProductType,
			Price:         st.Price,
			StockQuantity: st.StockQuantity,
			Attributes:    st.Attributes,
			Validation:    f.Attributes().Result(),
			Variations:    make([]VariationView, 0, f.Variations().Len()),
		}
		previews := f.Variations().Previews()
		for i, v := range f.Variations().Variations() {
			vv := VariationView{Variation: v, PreviewError: s.previewErrors[v.Token]}
			if p, ok := previews[i]; ok {
				p := p
				vv.Preview = &p
			}
			out.Variations = append(out.Variations, vv)
		}
		return nil
	})
	out.Pending = s.loader.Pending()
	return out, err
}
