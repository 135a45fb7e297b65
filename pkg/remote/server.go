package remote

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/odvcencio/panelsync/pkg/bus"
	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/logging"
)

// Server answers object requests for a Space on a message bus and
// publishes a change notice whenever a watched object changes.
type Server struct {
	space  *Space
	mb     bus.MessageBus
	logger *slog.Logger

	mu       sync.Mutex
	subs     []bus.Subscription
	watching map[string]func()
	ctx      context.Context
}

// NewServer creates a server for space on mb.
func NewServer(space *Space, mb bus.MessageBus, logger *slog.Logger) *Server {
	return &Server{
		space:    space,
		mb:       mb,
		logger:   logging.OrDiscard(logger),
		watching: make(map[string]func()),
	}
}

// Start subscribes the request handlers.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	handlers := map[string]bus.MessageHandler{
		SubjectDescribe: s.handleDescribe,
		SubjectFetch:    s.handleFetch,
		SubjectWrite:    s.handleWrite,
		SubjectMessage:  s.handleMessage,
	}
	for subject, h := range handlers {
		sub, err := s.mb.Subscribe(ctx, subject, h)
		if err != nil {
			s.Stop()
			return errors.Wrap(err, errors.ErrCodeInternal, "subscribe "+subject)
		}
		s.mu.Lock()
		s.subs = append(s.subs, sub)
		s.mu.Unlock()
	}
	return nil
}

// Stop unsubscribes every handler and change watch.
func (s *Server) Stop() {
	s.mu.Lock()
	subs := s.subs
	watching := s.watching
	s.subs = nil
	s.watching = make(map[string]func())
	s.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	for _, cancel := range watching {
		cancel()
	}
}

// watch starts forwarding changes of ref once.
func (s *Server) watch(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watching[ref]; ok {
		return
	}
	ctx := s.ctx
	cancel, err := s.space.Watch(ref, func() {
		if err := s.mb.Publish(ctx, changedSubject(ref), nil); err != nil {
			s.logger.Debug("publish change", "ref", ref, "error", err)
		}
	})
	if err != nil {
		return
	}
	s.watching[ref] = cancel
}

func (s *Server) handleDescribe(msg *bus.Message) []byte {
	var req refRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return errReply(errors.Wrap(err, errors.ErrCodeInvalidInput, "decode describe request"))
	}
	typ, payload, exports, err := s.space.Describe(req.Ref)
	if err != nil {
		return errReply(err)
	}
	return okReply(describeResponse{Ref: req.Ref, Type: typ, Payload: payload, Exports: exports})
}

func (s *Server) handleFetch(msg *bus.Message) []byte {
	var req refRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return errReply(errors.Wrap(err, errors.ErrCodeInvalidInput, "decode fetch request"))
	}
	typ, err := s.space.Lookup(req.Ref)
	if err != nil {
		return errReply(err)
	}
	s.watch(req.Ref)
	return okReply(fetchResponse{Ref: req.Ref, Type: typ})
}

func (s *Server) handleWrite(msg *bus.Message) []byte {
	var req writeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return errReply(errors.Wrap(err, errors.ErrCodeInvalidInput, "decode write request"))
	}
	if err := s.space.Write(req.Ref, req.Key, req.Value); err != nil {
		return errReply(err)
	}
	return okReply(struct{}{})
}

func (s *Server) handleMessage(msg *bus.Message) []byte {
	var req messageRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return errReply(errors.Wrap(err, errors.ErrCodeInvalidInput, "decode message request"))
	}
	if err := s.space.Send(req.Ref, req.Message); err != nil {
		return errReply(err)
	}
	return okReply(struct{}{})
}
