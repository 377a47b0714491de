// Package session owns the in-memory editing sessions. Each session holds one
// document, its mounted preview and its export pipeline. Nothing is persisted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tally/internal/apperr"
	"github.com/starford/tally/internal/calc"
	"github.com/starford/tally/internal/document"
	"github.com/starford/tally/internal/export"
	"github.com/starford/tally/internal/models"
	"github.com/starford/tally/internal/preview"
)

// Event kinds passed to the EventCallback.
const (
	EventCreated      = "created"
	EventUpdated      = "updated"
	EventDeleted      = "deleted"
	EventExported     = "exported"
	EventExportFailed = "export_failed"
)

// EventCallback is called after a session changes. data is the new preview
// layout for created/updated, the export result for exported, and the error
// text for export_failed.
type EventCallback func(kind, id string, data any)

// DocumentDetail is the full representation of a session's document.
type DocumentDetail struct {
	ID         string               `json:"id"`
	Kind       models.Kind          `json:"kind"`
	Fields     []models.HeaderField `json:"fields"`
	Header     models.Header        `json:"header"`
	Items      []ItemDetail         `json:"items"`
	GrandTotal string               `json:"grand_total"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// ItemDetail is one item with its formatted line total. Invalid lists numeric
// fields that currently count as zero.
type ItemDetail struct {
	models.Item
	Total   string             `json:"total"`
	Invalid []models.ItemField `json:"invalid,omitempty"`
}

// Summary is a lightweight item in a session listing.
type Summary struct {
	ID        string      `json:"id"`
	Kind      models.Kind `json:"kind"`
	Items     int         `json:"items"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type session struct {
	id        string
	mu        sync.Mutex
	doc       *document.Document
	surface   *preview.Surface
	pipeline  *export.Pipeline
	updatedAt time.Time
}

// Service coordinates sessions, previews and exports.
type Service struct {
	capturer export.Capturer
	saver    export.Saver
	opts     []export.Option
	notify   EventCallback

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService creates a session service. Every session gets its own pipeline
// built from capturer, saver and opts.
func NewService(capturer export.Capturer, saver export.Saver, opts ...export.Option) (*Service, error) {
	// Build one pipeline up front so bad options fail at startup.
	if _, err := export.NewPipeline(capturer, saver, opts...); err != nil {
		return nil, err
	}
	return &Service{
		capturer: capturer,
		saver:    saver,
		opts:     opts,
		sessions: make(map[string]*session),
	}, nil
}

// OnEvent registers the change callback. It must be called before the
// service is used concurrently.
func (s *Service) OnEvent(cb EventCallback) {
	s.notify = cb
}

// Create opens a session with a fresh document of the given kind.
func (s *Service) Create(_ context.Context, kind models.Kind) (*DocumentDetail, error) {
	doc, err := document.New(kind)
	if err != nil {
		return nil, err
	}
	return s.adopt(doc)
}

// Adopt opens a session around an already built document.
func (s *Service) Adopt(_ context.Context, doc *document.Document) (*DocumentDetail, error) {
	return s.adopt(doc.Clone())
}

func (s *Service) adopt(doc *document.Document) (*DocumentDetail, error) {
	p, err := export.NewPipeline(s.capturer, s.saver, s.opts...)
	if err != nil {
		return nil, err
	}
	sess := &session{
		id:        uuid.NewString(),
		doc:       doc,
		surface:   preview.NewSurface(),
		pipeline:  p,
		updatedAt: time.Now(),
	}
	l := preview.Render(doc)
	sess.surface.Show(l)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	sess.mu.Lock()
	detail := sess.detail()
	sess.mu.Unlock()

	s.emit(EventCreated, sess.id, l)
	return detail, nil
}

// Get returns the current document of a session.
func (s *Service) Get(_ context.Context, id string) (*DocumentDetail, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.detail(), nil
}

// Item returns one item of a session's document with its line total.
func (s *Service) Item(_ context.Context, id string, index int) (*ItemDetail, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	it, err := sess.doc.Item(index)
	if err != nil {
		return nil, err
	}
	detail := itemDetail(it)
	return &detail, nil
}

// Snapshot returns a copy of a session's document that later edits do not
// reach.
func (s *Service) Snapshot(_ context.Context, id string) (*document.Document, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.doc.Clone(), nil
}

// List returns all open sessions ordered by id.
func (s *Service) List(_ context.Context) []Summary {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	out := make([]Summary, 0, len(all))
	for _, sess := range all {
		sess.mu.Lock()
		out = append(out, Summary{
			ID:        sess.id,
			Kind:      sess.doc.Kind(),
			Items:     sess.doc.Len(),
			UpdatedAt: sess.updatedAt,
		})
		sess.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete discards a session and unmounts its preview.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	sess.surface.Unmount()
	s.emit(EventDeleted, id, nil)
	return nil
}

// SetHeaderField overwrites one header field.
func (s *Service) SetHeaderField(_ context.Context, id string, field models.HeaderField, value string) (*DocumentDetail, error) {
	return s.mutate(id, func(d *document.Document) error {
		return d.SetHeaderField(field, value)
	})
}

// FocusCompanyAddress applies the focus half of the placeholder swap.
func (s *Service) FocusCompanyAddress(_ context.Context, id string) (*DocumentDetail, error) {
	return s.mutate(id, (*document.Document).FocusCompanyAddress)
}

// BlurCompanyAddress applies the blur half of the placeholder swap.
func (s *Service) BlurCompanyAddress(_ context.Context, id string) (*DocumentDetail, error) {
	return s.mutate(id, (*document.Document).BlurCompanyAddress)
}

// AddItem appends a blank item.
func (s *Service) AddItem(_ context.Context, id string) (*DocumentDetail, error) {
	return s.mutate(id, func(d *document.Document) error {
		d.AddItem()
		return nil
	})
}

// SetItemField overwrites one field of one item.
func (s *Service) SetItemField(_ context.Context, id string, index int, field models.ItemField, value string) (*DocumentDetail, error) {
	return s.mutate(id, func(d *document.Document) error {
		return d.SetItemField(index, field, value)
	})
}

// RemoveItem deletes one item, keeping at least one.
func (s *Service) RemoveItem(_ context.Context, id string, index int) (*DocumentDetail, error) {
	return s.mutate(id, func(d *document.Document) error {
		return d.RemoveItem(index)
	})
}

// Preview returns the layout currently shown for a session.
func (s *Service) Preview(_ context.Context, id string) (preview.Layout, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return preview.Layout{}, err
	}
	l, _ := sess.surface.Snapshot()
	return l, nil
}

// Export runs the session's pipeline on the mounted preview. Edits made while
// the export runs are not blocked and do not reach the file. Only a failed
// capture, embed or save emits export_failed; a rejected trigger does not.
func (s *Service) Export(ctx context.Context, id string) (*export.Result, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	res, err := sess.pipeline.Export(ctx, sess.surface)
	if err != nil {
		var stageErr *export.Error
		if errors.As(err, &stageErr) {
			s.emit(EventExportFailed, id, err.Error())
		}
		return nil, err
	}
	if res != nil {
		s.emit(EventExported, id, res)
	}
	return res, nil
}

func (s *Service) mutate(id string, fn func(*document.Document) error) (*DocumentDetail, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if err := fn(sess.doc); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	l := preview.Render(sess.doc)
	sess.surface.Show(l)
	sess.updatedAt = time.Now()
	detail := sess.detail()
	sess.mu.Unlock()

	s.emit(EventUpdated, id, l)
	return detail, nil
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return sess, nil
}

func (s *Service) emit(kind, id string, data any) {
	if s.notify != nil {
		s.notify(kind, id, data)
	}
}

// detail must be called with sess.mu held.
func (sess *session) detail() *DocumentDetail {
	items := sess.doc.Items()
	out := make([]ItemDetail, len(items))
	for i, it := range items {
		out[i] = itemDetail(it)
	}
	return &DocumentDetail{
		ID:         sess.id,
		Kind:       sess.doc.Kind(),
		Fields:     sess.doc.Fields(),
		Header:     sess.doc.Header(),
		Items:      out,
		GrandTotal: calc.FormatMoney(sess.doc.GrandTotal()),
		UpdatedAt:  sess.updatedAt,
	}
}

func itemDetail(it models.Item) ItemDetail {
	return ItemDetail{
		Item:    it,
		Total:   calc.FormatMoney(document.LineTotal(it)),
		Invalid: document.InvalidFields(it),
	}
}
