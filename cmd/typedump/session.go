package main

import (
	"context"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	typedmem "github.com/wippyai/typedmem"
	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/heap/wazmem"
	"github.com/wippyai/typedmem/instance"
	"github.com/wippyai/typedmem/schema"
	"github.com/wippyai/typedmem/value"
)

// statHeap is a heap that can report its leak counters.
type statHeap interface {
	typedmem.Heap
	Stats() heap.Stats
}

// session is one schema bound to one heap.
type session struct {
	schema *schema.Schema
	heap   statHeap
	engine *instance.Engine
	codec  *value.Codec
	close  func() error
}

// vector is a top-level buffer of count instances built from a document.
type vector struct {
	name  string
	tid   catalog.TypeID
	buf   uint32
	count uint32
}

func (a *app) openSession(ctx context.Context, schemaPath string, out io.Writer) (*session, error) {
	var opts []schema.Option
	if a.cfg.Model != "" {
		m, err := catalog.ParseDataModel(a.cfg.Model)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schema.WithModel(m))
	}
	s, err := schema.Open(schemaPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("open schema %s: %w", schemaPath, err)
	}
	for name, why := range s.Skipped {
		a.log.Sugar().Infof("skipped type %s: %v", name, why)
	}

	sess := &session{schema: s, close: func() error { return nil }}
	switch a.cfg.Backend {
	case backendWazero:
		rt := wazero.NewRuntime(ctx)
		h, err := wazmem.Instantiate(ctx, rt)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		sess.heap = h
		sess.close = func() error { return rt.Close(ctx) }
	default:
		var hopts []heap.Option
		if a.cfg.ArenaMaxBytes > 0 {
			hopts = append(hopts, heap.WithMaxSize(a.cfg.ArenaMaxBytes))
		}
		sess.heap = heap.NewArena(hopts...)
	}

	sess.engine = instance.New(s.Registry, sess.heap,
		instance.WithLogger(a.log),
		instance.WithResolver(s.Resolver),
		instance.WithDiagnostics(out))
	sess.codec = value.New(sess.engine)
	return sess, nil
}

// build materializes the document's values. typeName overrides the
// document's own type when set.
func (s *session) build(doc *schema.Document, typeName string) (*vector, error) {
	if typeName == "" {
		typeName = doc.Type
	}
	tid, err := s.schema.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	buf, err := s.codec.NewVector(s.schema.Container, tid, doc.Values)
	if err != nil {
		return nil, fmt.Errorf("build %s values: %w", typeName, err)
	}
	return &vector{name: typeName, tid: tid, buf: buf, count: uint32(len(doc.Values))}, nil
}

func (s *session) dump(v *vector) (string, error) {
	return s.engine.Dump(s.schema.Container, v.tid, v.buf, v.count)
}

func (s *session) print(v *vector) error {
	return s.engine.Print(s.schema.Container, v.tid, v.buf, v.count)
}

func (s *session) release(v *vector) error {
	return s.engine.ReclaimAll(s.schema.Container, v.tid, v.buf, v.count)
}

// leaks reports the allocations still live in the heap.
func (s *session) leaks() (int, uint64) {
	st := s.heap.Stats()
	return st.Live, st.LiveBytes
}

// closeSession shuts the heap backend down. A failure cannot change the
// command's outcome any more, so it is only logged.
func (a *app) closeSession(s *session) {
	if err := s.close(); err != nil {
		a.log.Warn("close heap backend", zap.Error(err))
	}
}

// show prints v. When printing fails v is reclaimed before the error is
// returned.
func (a *app) show(s *session, v *vector) error {
	if err := s.print(v); err != nil {
		a.discard(s, v)
		return err
	}
	return nil
}

// discard reclaims v on an error path, logging a failed reclaim.
func (a *app) discard(s *session, v *vector) {
	if err := s.release(v); err != nil {
		a.log.Warn("reclaim after failure",
			zap.String("type", v.name),
			zap.Error(err))
	}
}
