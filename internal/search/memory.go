package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Operation names used by Memory for call counting and fault injection.
const (
	OpPing          = "ping"
	OpExists        = "exists"
	OpCreateIndex   = "create_index"
	OpListIndices   = "list_indices"
	OpIndexDocument = "index_document"
	OpSearch        = "search"
	OpPutSettings   = "put_settings"
	OpPutMapping    = "put_mapping"
)

type memIndex struct {
	settings map[string]any
	mapping  map[string]any
	docs     []memDoc
}

type memDoc struct {
	id     string
	source map[string]any
}

type fault struct {
	err   error
	apply bool
	skip  int // calls that still succeed before err kicks in
}

// Memory is an in-process Engine. It counts calls per operation and can be
// told to fail an operation, optionally after applying it, which is how a
// write that timed out but still landed is simulated.
type Memory struct {
	mu      sync.Mutex
	indices map[string]*memIndex
	calls   map[string]int
	faults  map[string]fault
	seq     int
}

var _ Engine = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		indices: make(map[string]*memIndex),
		calls:   make(map[string]int),
		faults:  make(map[string]fault),
	}
}

// Fail makes every later call of op return err without touching state.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = fault{err: err}
}

// FailAfterApply makes later calls of op apply their effect, then return err.
func (m *Memory) FailAfterApply(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = fault{err: err, apply: true}
}

// FailAfterCalls lets the next n calls of op through, then fails every later
// one with err.
func (m *Memory) FailAfterCalls(op string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = fault{err: err, skip: m.calls[op] + n}
}

// Heal clears all injected faults.
func (m *Memory) Heal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = make(map[string]fault)
}

// Calls returns how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// Settings returns a copy of the stored settings of name, nil when absent.
func (m *Memory) Settings(name string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indices[name]
	if !ok {
		return nil
	}
	return copyMap(idx.settings)
}

// Mapping returns a copy of the stored mapping of name, nil when absent.
func (m *Memory) Mapping(name string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indices[name]
	if !ok {
		return nil
	}
	return copyMap(idx.mapping)
}

// enter records the call and reports the fault to honour. Caller holds mu.
func (m *Memory) enter(op string) (fault, bool) {
	m.calls[op]++
	f, ok := m.faults[op]
	if ok && m.calls[op] <= f.skip {
		return fault{}, false
	}
	return f, ok
}

func notFound(name string) error {
	return &BackendError{Status: http.StatusNotFound, Type: "index_not_found_exception", Reason: fmt.Sprintf("no such index [%s]", name)}
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.enter(OpPing); ok {
		return f.err
	}
	return nil
}

func (m *Memory) IndexExists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.enter(OpExists); ok {
		return false, f.err
	}
	_, ok := m.indices[name]
	return ok, nil
}

func (m *Memory) CreateIndex(ctx context.Context, name string, settings, mappings map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, faulty := m.enter(OpCreateIndex)
	if faulty && !f.apply {
		return f.err
	}
	if _, ok := m.indices[name]; ok {
		if faulty {
			return f.err
		}
		return &BackendError{Status: http.StatusBadRequest, Type: "resource_already_exists_exception", Reason: fmt.Sprintf("index [%s] already exists", name)}
	}
	m.indices[name] = &memIndex{settings: copyMap(settings), mapping: copyMap(mappings)}
	if faulty {
		return f.err
	}
	return nil
}

func (m *Memory) ListIndices(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.enter(OpListIndices); ok {
		return nil, f.err
	}
	out := make([]string, 0, len(m.indices))
	for name := range m.indices {
		out = append(out, name)
	}
	return out, nil
}

func (m *Memory) IndexDocument(ctx context.Context, name string, doc map[string]any) (IndexResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, faulty := m.enter(OpIndexDocument)
	if faulty && !f.apply {
		return IndexResult{}, f.err
	}
	idx, ok := m.indices[name]
	if !ok {
		// Elasticsearch auto-creates the index on first write.
		idx = &memIndex{}
		m.indices[name] = idx
	}
	m.seq++
	id := fmt.Sprintf("mem-%d", m.seq)
	idx.docs = append(idx.docs, memDoc{id: id, source: copyMap(doc)})
	if faulty {
		return IndexResult{}, f.err
	}
	return IndexResult{ID: id, Result: "created"}, nil
}

// Search understands "*", "field:value" and bare terms matched against every
// string field, all case-insensitive substring matches.
func (m *Memory) Search(ctx context.Context, name, q string) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.enter(OpSearch); ok {
		return nil, f.err
	}
	idx, ok := m.indices[name]
	if !ok {
		return nil, notFound(name)
	}
	hits := []map[string]any{}
	for _, d := range idx.docs {
		if matches(d.source, q) {
			hits = append(hits, copyMap(d.source))
		}
	}
	return hits, nil
}

func (m *Memory) PutSettings(ctx context.Context, name string, settings map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.enter(OpPutSettings); ok {
		return f.err
	}
	idx, ok := m.indices[name]
	if !ok {
		return notFound(name)
	}
	if idx.settings == nil {
		idx.settings = map[string]any{}
	}
	for k, v := range settings {
		idx.settings[k] = v
	}
	return nil
}

func (m *Memory) PutMapping(ctx context.Context, name string, mapping map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.enter(OpPutMapping); ok {
		return f.err
	}
	idx, ok := m.indices[name]
	if !ok {
		return notFound(name)
	}
	if idx.mapping == nil {
		idx.mapping = map[string]any{}
	}
	props, _ := idx.mapping["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	if incoming, ok := mapping["properties"].(map[string]any); ok {
		for k, v := range incoming {
			props[k] = v
		}
	}
	idx.mapping["properties"] = props
	return nil
}

func matches(doc map[string]any, q string) bool {
	q = strings.TrimSpace(q)
	if q == "" || q == "*" {
		return true
	}
	if field, value, ok := strings.Cut(q, ":"); ok {
		v, present := doc[field]
		return present && containsFold(fmt.Sprint(v), value)
	}
	for _, v := range doc {
		if s, ok := v.(string); ok && containsFold(s, q) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
