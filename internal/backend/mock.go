package backend

import (
	"context"
	"sync"
)

// MockCall records one Backend method invocation.
type MockCall struct {
	Method string
	Args   []string
}

// Mock is a stateful fake Backend for tests.
type Mock struct {
	mu sync.Mutex

	// Workspaces tracks environment state by id. Values are the
	// status strings the real backend reports.
	Workspaces map[string]*Workspace

	// Commands records every command passed to SSH or RunCommand,
	// keyed by environment id.
	Commands map[string][]string

	// RunOutput is returned from RunCommand.
	RunOutput []byte

	// Errors injects failures per method name.
	Errors map[string]error

	CallLog []MockCall
}

// NewMock returns an empty mock backend.
func NewMock() *Mock {
	return &Mock{
		Workspaces: make(map[string]*Workspace),
		Commands:   make(map[string][]string),
		Errors:     make(map[string]error),
	}
}

func (m *Mock) record(method string, args ...string) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// CallsFor returns all recorded calls for a method.
func (m *Mock) CallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []MockCall
	for _, c := range m.CallLog {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// SetError injects an error for a method name.
func (m *Mock) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[method] = err
}

func (m *Mock) Up(ctx context.Context, opts UpOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Up", opts.ID, opts.Source)
	if err := m.Errors["Up"]; err != nil {
		return err
	}
	m.Workspaces[opts.ID] = &Workspace{ID: opts.ID, Source: opts.Source, Status: "Running"}
	return nil
}

func (m *Mock) Start(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Start", id)
	if err := m.Errors["Start"]; err != nil {
		return err
	}
	if ws, ok := m.Workspaces[id]; ok {
		ws.Status = "Running"
	}
	return nil
}

func (m *Mock) Stop(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Stop", id)
	if err := m.Errors["Stop"]; err != nil {
		return err
	}
	if ws, ok := m.Workspaces[id]; ok {
		ws.Status = "Stopped"
	}
	return nil
}

func (m *Mock) Delete(ctx context.Context, id string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Delete", id)
	if err := m.Errors["Delete"]; err != nil {
		return err
	}
	delete(m.Workspaces, id)
	return nil
}

func (m *Mock) List(ctx context.Context) ([]Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("List")
	if err := m.Errors["List"]; err != nil {
		return nil, err
	}
	var out []Workspace
	for _, ws := range m.Workspaces {
		out = append(out, *ws)
	}
	return out, nil
}

func (m *Mock) SSH(ctx context.Context, id, command string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SSH", id, command)
	if err := m.Errors["SSH"]; err != nil {
		return err
	}
	m.Commands[id] = append(m.Commands[id], command)
	return nil
}

func (m *Mock) RunCommand(ctx context.Context, id, command string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RunCommand", id, command)
	if err := m.Errors["RunCommand"]; err != nil {
		return nil, err
	}
	m.Commands[id] = append(m.Commands[id], command)
	return m.RunOutput, nil
}

var _ Backend = (*Mock)(nil)
