package namespace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// MockBackend is an in-memory Backend for testing. Each namespace is a map
// of table name to row count. Backup writes that map as JSON and Mount
// reads it back, so round trips work without a database.
type MockBackend struct {
	mu sync.RWMutex

	// Namespaces tracks the state of mock namespaces
	Namespaces map[string]map[string]int64

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall

	// Version is returned by EngineVersion
	Version string

	// AfterMount runs after a successful mount and may alter the mounted
	// tables, e.g. to simulate a restore that silently loses rows.
	AfterMount func(namespace string, tables map[string]int64)
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

type mockSnapshot struct {
	Namespace string           `json:"namespace"`
	Tables    map[string]int64 `json:"tables"`
}

// NewMockBackend creates a new mock backend
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Namespaces: make(map[string]map[string]int64),
		Errors:     make(map[string]error),
		CallLog:    make([]MockCall, 0),
		Version:    "mock 1.0",
	}
}

func (m *MockBackend) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockBackend) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.Errors, operation)
		return
	}
	m.Errors[operation] = err
}

// AddNamespace adds a namespace with the given tables to the mock
func (m *MockBackend) AddNamespace(name string, tables map[string]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]int64, len(tables))
	for k, v := range tables {
		copied[k] = v
	}
	m.Namespaces[name] = copied
}

// HasNamespace reports whether the mock holds name.
func (m *MockBackend) HasNamespace(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.Namespaces[name]
	return ok
}

// GetCalls returns all recorded calls
func (m *MockBackend) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockBackend) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Reset clears all state
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Namespaces = make(map[string]map[string]int64)
	m.Errors = make(map[string]error)
	m.CallLog = make([]MockCall, 0)
	m.AfterMount = nil
}

// Name returns the backend identifier
func (m *MockBackend) Name() string {
	return "mock"
}

// Exists reports whether a namespace is present
func (m *MockBackend) Exists(ctx context.Context, namespace string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Exists", namespace)

	if err, ok := m.Errors["Exists"]; ok {
		return false, err
	}
	_, ok := m.Namespaces[namespace]
	return ok, nil
}

// Create adds an empty namespace
func (m *MockBackend) Create(ctx context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Create", namespace)

	if err, ok := m.Errors["Create"]; ok {
		return err
	}
	if _, ok := m.Namespaces[namespace]; ok {
		return fmt.Errorf("namespace %s already exists", namespace)
	}
	m.Namespaces[namespace] = make(map[string]int64)
	return nil
}

// Backup writes the namespace's tables as a JSON snapshot
func (m *MockBackend) Backup(ctx context.Context, namespace, snapshotPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Backup", namespace, snapshotPath)

	if err, ok := m.Errors["Backup"]; ok {
		return err
	}
	tables, ok := m.Namespaces[namespace]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, namespace)
	}

	data, err := json.Marshal(mockSnapshot{Namespace: namespace, Tables: tables})
	if err != nil {
		return err
	}
	return os.WriteFile(snapshotPath, data, 0644)
}

// Tables returns the namespace's table names in sorted order
func (m *MockBackend) Tables(ctx context.Context, namespace string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Tables", namespace)

	if err, ok := m.Errors["Tables"]; ok {
		return nil, err
	}
	tables, ok := m.Namespaces[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, namespace)
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CountRows returns the stored row count for a table
func (m *MockBackend) CountRows(ctx context.Context, namespace, table string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CountRows", namespace, table)

	if err, ok := m.Errors["CountRows"]; ok {
		return 0, err
	}
	tables, ok := m.Namespaces[namespace]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, namespace)
	}
	n, ok := tables[table]
	if !ok {
		return 0, fmt.Errorf("table %s not found in %s", table, namespace)
	}
	return n, nil
}

// EngineVersion returns Version
func (m *MockBackend) EngineVersion(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("EngineVersion")

	if err, ok := m.Errors["EngineVersion"]; ok {
		return "", err
	}
	return m.Version, nil
}

// Mount restores a JSON snapshot written by Backup into namespace
func (m *MockBackend) Mount(ctx context.Context, namespace, snapshotPath string) error {
	m.mu.Lock()
	m.record("Mount", namespace, snapshotPath)

	if err, ok := m.Errors["Mount"]; ok {
		m.mu.Unlock()
		return err
	}
	if _, ok := m.Namespaces[namespace]; ok {
		m.mu.Unlock()
		return fmt.Errorf("namespace %s already exists", namespace)
	}

	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	var snap mockSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid mock snapshot: %w", err)
	}
	if snap.Tables == nil {
		snap.Tables = make(map[string]int64)
	}
	m.Namespaces[namespace] = snap.Tables
	hook := m.AfterMount
	m.mu.Unlock()

	if hook != nil {
		m.mu.Lock()
		hook(namespace, m.Namespaces[namespace])
		m.mu.Unlock()
	}
	return nil
}

// Unmount removes all tables but keeps the namespace
func (m *MockBackend) Unmount(ctx context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Unmount", namespace)

	if err, ok := m.Errors["Unmount"]; ok {
		return err
	}
	if _, ok := m.Namespaces[namespace]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, namespace)
	}
	m.Namespaces[namespace] = make(map[string]int64)
	return nil
}

// Drop removes the namespace
func (m *MockBackend) Drop(ctx context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Drop", namespace)

	if err, ok := m.Errors["Drop"]; ok {
		return err
	}
	if _, ok := m.Namespaces[namespace]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, namespace)
	}
	delete(m.Namespaces, namespace)
	return nil
}

var _ Backend = (*MockBackend)(nil)
