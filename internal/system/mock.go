package system

import (
	"context"
	"strings"
	"sync"
)

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed commands for verification.
	Commands []MockCommand

	// Responses maps command patterns to responses. Lookup tries the full
	// command line, then "command arg1", then the bare command name.
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse

	// Handler, when set, runs for every command before Responses are
	// consulted. Returning handled=false falls through to Responses.
	Handler func(name string, args []string) (MockResponse, bool)
}

// MockCommand records an executed command.
type MockCommand struct {
	Name  string
	Args  []string
	Stdin string
}

// Line returns the command as a single space-joined string.
func (c MockCommand) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// MockResponse defines the response for a command.
type MockResponse struct {
	Output []byte
	Err    error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:  make([]MockCommand, 0),
		Responses: make(map[string]MockResponse),
	}
}

// AddResponse adds a response for a specific command pattern.
func (m *MockExecutor) AddResponse(pattern string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = MockResponse{Output: output, Err: err}
}

func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	return m.run(MockCommand{Name: name, Args: args})
}

func (m *MockExecutor) ExecuteWithStdin(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	return m.run(MockCommand{Name: name, Args: args, Stdin: stdin})
}

func (m *MockExecutor) run(cmd MockCommand) ([]byte, error) {
	m.mu.Lock()
	m.Commands = append(m.Commands, cmd)
	handler := m.Handler
	m.mu.Unlock()

	if handler != nil {
		if resp, handled := handler(cmd.Name, cmd.Args); handled {
			return resp.Output, resp.Err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keys := []string{cmd.Line()}
	if len(cmd.Args) > 0 {
		keys = append(keys, cmd.Name+" "+cmd.Args[0])
	}
	keys = append(keys, cmd.Name)

	for _, key := range keys {
		if resp, ok := m.Responses[key]; ok {
			return resp.Output, resp.Err
		}
	}
	return m.DefaultResponse.Output, m.DefaultResponse.Err
}

// LastCommand returns the most recently executed command.
func (m *MockExecutor) LastCommand() (MockCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return MockCommand{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// CommandsFor returns the recorded invocations of name.
func (m *MockExecutor) CommandsFor(name string) []MockCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockCommand
	for _, c := range m.Commands {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears recorded commands and responses.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make([]MockCommand, 0)
	m.Responses = make(map[string]MockResponse)
	m.DefaultResponse = MockResponse{}
	m.Handler = nil
}
