package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/digiglu/api-api/internal/domain/filter"
	"github.com/digiglu/api-api/internal/domain/filter/filtertest"
	"github.com/digiglu/api-api/internal/domain/model"
	"github.com/digiglu/api-api/internal/repository"
	"github.com/digiglu/api-api/internal/schemadiff"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock repository ---

// memRepo — in-memory DocumentRepository, предикаты вычисляются через Matches.
type memRepo struct {
	mu        sync.Mutex
	docs      map[string][]model.Document
	nextID    int64
	findErr   error
	insertErr error
	findCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{docs: map[string][]model.Document{}}
}

func (m *memRepo) seed(collection string, docs ...model.Document) {
	for _, d := range docs {
		if _, err := m.Insert(context.Background(), collection, d); err != nil {
			panic(err)
		}
	}
}

func (m *memRepo) Find(_ context.Context, collection string, p filter.Predicate, proj repository.Projection) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []model.Document{}
	for _, d := range m.docs[collection] {
		if !filtertest.Matches(p, d) {
			continue
		}
		c := d.Clone()
		if proj != nil {
			for k := range c {
				if k != model.FieldInternalID && !slices.Contains(proj, k) {
					delete(c, k)
				}
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memRepo) FindOne(_ context.Context, collection string, p filter.Predicate) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, d := range m.docs[collection] {
		if filtertest.Matches(p, d) {
			return d.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) Insert(_ context.Context, collection string, doc model.Document) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	for _, d := range m.docs[collection] {
		if d.ID() == doc.ID() {
			return nil, repository.ErrConflict
		}
	}
	m.nextID++
	stored := doc.Clone()
	stored[model.FieldInternalID] = m.nextID
	m.docs[collection] = append(m.docs[collection], stored)
	return stored.Clone(), nil
}

// --- Mock identity ---

type mockTeams struct {
	teamsFn func(ctx context.Context, callerID, authorization string) ([]string, error)
	calls   int
}

func (m *mockTeams) Teams(ctx context.Context, callerID, authorization string) ([]string, error) {
	m.calls++
	if m.teamsFn != nil {
		return m.teamsFn(ctx, callerID, authorization)
	}
	return nil, nil
}

// --- Mock registry ---

type mockRegistry struct {
	mu       sync.Mutex
	base     string
	bodies   map[string]json.RawMessage
	getErr   map[string]error
	createFn func(ctx context.Context, id, version string, body json.RawMessage) (string, json.RawMessage, error)
	gets     []string
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		base:   "https://registry.test/api/schemas",
		bodies: map[string]json.RawMessage{},
		getErr: map[string]error{},
	}
}

func (m *mockRegistry) SchemaURL(id, version string) string {
	return m.base + "/digiglu/" + id + "/jsonschema/" + version
}

func (m *mockRegistry) Owns(uri string) bool {
	return len(uri) > len(m.base) && uri[:len(m.base)+1] == m.base+"/"
}

func (m *mockRegistry) Create(ctx context.Context, id, version string, body json.RawMessage) (string, json.RawMessage, error) {
	if m.createFn != nil {
		return m.createFn(ctx, id, version, body)
	}
	url := m.SchemaURL(id, version)
	m.mu.Lock()
	m.bodies[url] = body
	m.mu.Unlock()
	return url, body, nil
}

func (m *mockRegistry) Get(_ context.Context, url string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets = append(m.gets, url)
	if err, ok := m.getErr[url]; ok {
		return nil, err
	}
	body, ok := m.bodies[url]
	if !ok {
		return json.RawMessage(`{}`), nil
	}
	return body, nil
}

func (m *mockRegistry) getCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.gets)
}

// --- Mock differ ---

type mockDiffer struct {
	diffFn func(ctx context.Context, src, dst []byte) (*schemadiff.Result, error)
}

func (m *mockDiffer) Diff(ctx context.Context, src, dst []byte) (*schemadiff.Result, error) {
	return m.diffFn(ctx, src, dst)
}
