// Package remote is a reference host: an in-memory object space that
// implements the host capabilities, and a client and server that carry
// them over the message bus.
package remote

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/widget"
)

// Export names an exported object of a widget.
type Export struct {
	Ref  string `json:"ref"`
	Type string `json:"type"`
}

// Space holds tables and widgets by ref.
type Space struct {
	mu       sync.RWMutex
	tables   map[string]*table
	widgets  map[string]*widgetRecord
	subs     map[string]map[int]func()
	nextSub  int
	writeFns []func(ref string, key int, value any)
	msgFns   []func(ref, message string)
}

type table struct {
	typ  string
	rows map[int]any
}

type widgetRecord struct {
	typ      string
	payload  string
	exports  []Export
	messages []string
}

// NewSpace returns an empty object space.
func NewSpace() *Space {
	return &Space{
		tables:  make(map[string]*table),
		widgets: make(map[string]*widgetRecord),
		subs:    make(map[string]map[int]func()),
	}
}

// CreateTable registers an empty table. typ is its declared type,
// "Table" when empty.
func (s *Space) CreateTable(ref, typ string) {
	if typ == "" {
		typ = "Table"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[ref] = &table{typ: typ, rows: make(map[int]any)}
}

// PutWidget registers or replaces a widget and notifies its subscribers.
func (s *Space) PutWidget(ref, typ, payload string, exports []Export) {
	s.mu.Lock()
	rec, ok := s.widgets[ref]
	if !ok {
		rec = &widgetRecord{}
		s.widgets[ref] = rec
	}
	rec.typ = typ
	rec.payload = payload
	rec.exports = append([]Export(nil), exports...)
	s.mu.Unlock()

	s.notify(ref)
}

// Row returns the row stored under key.
func (s *Space) Row(ref string, key int) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[ref]
	if !ok {
		return nil, false
	}
	v, ok := t.rows[key]
	return v, ok
}

// Messages returns the messages a widget has received.
func (s *Space) Messages(ref string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.widgets[ref]
	if !ok {
		return nil
	}
	return append([]string(nil), rec.messages...)
}

// OnWrite registers fn to run after every row write.
func (s *Space) OnWrite(fn func(ref string, key int, value any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeFns = append(s.writeFns, fn)
}

// OnMessage registers fn to run after every widget message.
func (s *Space) OnMessage(fn func(ref, message string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgFns = append(s.msgFns, fn)
}

// Refs lists every object ref, sorted.
func (s *Space) Refs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]string, 0, len(s.tables)+len(s.widgets))
	for ref := range s.tables {
		refs = append(refs, ref)
	}
	for ref := range s.widgets {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Subscribers is the number of live subscriptions on ref.
func (s *Space) Subscribers(ref string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[ref])
}

// Lookup returns the declared type of ref.
func (s *Space) Lookup(ref string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[ref]; ok {
		return t.typ, nil
	}
	if w, ok := s.widgets[ref]; ok {
		return w.typ, nil
	}
	return "", errors.Newf(errors.ErrCodeNotFound, "no object %q", ref)
}

// Describe returns a widget's type, payload and exports.
func (s *Space) Describe(ref string) (string, string, []Export, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.widgets[ref]
	if !ok {
		return "", "", nil, errors.Newf(errors.ErrCodeNotFound, "no widget %q", ref)
	}
	return w.typ, w.payload, append([]Export(nil), w.exports...), nil
}

// Write replaces row key of table ref and notifies its subscribers.
func (s *Space) Write(ref string, key int, value any) error {
	s.mu.Lock()
	t, ok := s.tables[ref]
	if !ok {
		s.mu.Unlock()
		return errors.Newf(errors.ErrCodeNotFound, "no table %q", ref)
	}
	t.rows[key] = value
	fns := slices.Clone(s.writeFns)
	s.mu.Unlock()

	s.notify(ref)
	for _, fn := range fns {
		fn(ref, key, value)
	}
	return nil
}

// Send delivers message to widget ref.
func (s *Space) Send(ref, message string) error {
	s.mu.Lock()
	w, ok := s.widgets[ref]
	if !ok {
		s.mu.Unlock()
		return errors.Newf(errors.ErrCodeNotFound, "no widget %q", ref)
	}
	w.messages = append(w.messages, message)
	fns := slices.Clone(s.msgFns)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ref, message)
	}
	return nil
}

// Watch calls fn after every change to ref and returns an idempotent
// cancel function.
func (s *Space) Watch(ref string, fn func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, isTable := s.tables[ref]
	_, isWidget := s.widgets[ref]
	if !isTable && !isWidget {
		return nil, errors.Newf(errors.ErrCodeNotFound, "no object %q", ref)
	}
	id := s.nextSub
	s.nextSub++
	if s.subs[ref] == nil {
		s.subs[ref] = make(map[int]func())
	}
	s.subs[ref][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[ref], id)
			if len(s.subs[ref]) == 0 {
				delete(s.subs, ref)
			}
		})
	}, nil
}

func (s *Space) notify(ref string) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.subs[ref]))
	for id := range s.subs[ref] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[ref][id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Widget returns a fetcher for widget ref.
func (s *Space) Widget(ref string) host.WidgetFetcher {
	return host.WidgetFetchFunc(func(ctx context.Context) (widget.Widget, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		typ, payload, exports, err := s.Describe(ref)
		if err != nil {
			return nil, err
		}
		return newWidget(ref, typ, payload, exports, s.fetch), nil
	})
}

func (s *Space) fetch(ctx context.Context, ref string) (widget.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	typ, err := s.Lookup(ref)
	if err != nil {
		return nil, err
	}
	return Handle{ID: ref, ObjectKind: widget.ParseObjectKind(typ)}, nil
}

// Subscribe implements host.ChangeSubscriber.
func (s *Space) Subscribe(ctx context.Context, h widget.Handle, callback func()) (func(), error) {
	return s.Watch(h.Ref(), callback)
}

// MutableTable implements host.TableOpener.
func (s *Space) MutableTable(ctx context.Context, h widget.Handle) (host.MutableTable, error) {
	if _, err := s.Lookup(h.Ref()); err != nil {
		return nil, err
	}
	return spaceTable{space: s, ref: h.Ref()}, nil
}

// SendMessage implements host.MessageSender.
func (s *Space) SendMessage(ctx context.Context, w widget.Widget, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Send(w.Ref(), message)
}

type spaceTable struct {
	space *Space
	ref   string
}

func (t spaceTable) WriteRow(ctx context.Context, key int, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.space.Write(t.ref, key, value)
}
