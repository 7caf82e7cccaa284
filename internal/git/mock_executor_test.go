package git

import (
	"os/exec"
	"strings"
)

// MockExecutor records commands and answers them from a lookup table keyed
// by the git arguments after "-C <dir>".
type MockExecutor struct {
	Calls     [][]string
	Responses map[string]Output
	Errors    map[string]error
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Responses: make(map[string]Output),
		Errors:    make(map[string]error),
	}
}

func (m *MockExecutor) Execute(cmd *exec.Cmd) (Output, error) {
	op, args := splitArgs(cmd.Args)
	full := append([]string{op}, args...)
	m.Calls = append(m.Calls, full)

	key := strings.Join(full, " ")
	return m.Responses[key], m.Errors[key]
}

func (m *MockExecutor) LastCall() string {
	if len(m.Calls) == 0 {
		return ""
	}
	return strings.Join(m.Calls[len(m.Calls)-1], " ")
}
