package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
)

// fakeSender records messages and fails for listed recipients. Sends wait
// on release, and sends to a held recipient wait on that recipient's channel.
type fakeSender struct {
	mu      sync.Mutex
	sent    []domain.Message
	fail    map[string]error
	release chan struct{}
	hold    map[string]chan struct{}
}

func (s *fakeSender) Name() string { return "fake" }

func (s *fakeSender) Send(ctx context.Context, msg domain.Message) (string, error) {
	if held, ok := s.hold[msg.To]; ok {
		select {
		case <-held:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[msg.To]; ok {
		return "", err
	}
	s.sent = append(s.sent, msg)
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

func (s *fakeSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.To)
	}
	sort.Strings(out)
	return out
}

// fakeLedger keeps delivery results in memory.
type fakeLedger struct {
	mu      sync.Mutex
	results []domain.DeliveryResult
}

func (l *fakeLedger) Record(_ context.Context, r domain.DeliveryResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, r)
	return nil
}

func (l *fakeLedger) ListByBatch(_ context.Context, batchID string) ([]domain.DeliveryResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.DeliveryResult
	for _, r := range l.results {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	return out, nil
}

// memorySink collects archive entries in memory. Paths are reserved on
// Create and released on Abort, like the zip sink.
type memorySink struct {
	mu        sync.Mutex
	writers   []*memoryWriter
	taken     map[string]bool
	createErr error
}

func (s *memorySink) Create(_ context.Context, path string) (driven.ArchiveWriter, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken[path] {
		return nil, fmt.Errorf("archive %s: %w", path, domain.ErrAlreadyExists)
	}
	if s.taken == nil {
		s.taken = make(map[string]bool)
	}
	s.taken[path] = true
	w := &memoryWriter{sink: s, path: path, files: make(map[string][]byte)}
	s.writers = append(s.writers, w)
	return w, nil
}

func (s *memorySink) release(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.taken, path)
}

func (s *memorySink) last() *memoryWriter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.writers) == 0 {
		return nil
	}
	return s.writers[len(s.writers)-1]
}

type memoryWriter struct {
	sink      *memorySink
	path      string
	files     map[string][]byte
	order     []string
	committed bool
	aborted   bool
}

func (w *memoryWriter) Add(name string, r io.Reader) error {
	if _, ok := w.files[name]; ok {
		return domain.ErrAlreadyExists
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	w.files[name] = buf.Bytes()
	w.order = append(w.order, name)
	return nil
}

func (w *memoryWriter) Commit() error {
	if w.aborted {
		return errors.New("aborted")
	}
	w.committed = true
	return nil
}

func (w *memoryWriter) Abort() error {
	if !w.committed && !w.aborted {
		w.sink.release(w.path)
	}
	w.aborted = true
	return nil
}

func (w *memoryWriter) Entries() []string { return append([]string(nil), w.order...) }

func (w *memoryWriter) Path() string { return w.path }

// fakePublisher returns a fixed link or error.
type fakePublisher struct {
	url       string
	err       error
	published []string
}

func (p *fakePublisher) Publish(_ context.Context, path string) (string, error) {
	p.published = append(p.published, path)
	return p.url, p.err
}
