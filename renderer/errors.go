package renderer

import (
	"errors"
	"sort"
)

// Error codes recorded by a Renderer.
const (
	CodeDependencyMissing = "dependency_missing"
	CodeRenderError       = "render_error"
)

// Error is a failure raised while initializing or rendering a document.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsDependencyMissing reports whether err is a dependency_missing Error.
func IsDependencyMissing(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == CodeDependencyMissing
}

// ErrorCollector accumulates messages keyed by error code.
type ErrorCollector struct {
	messages map[string][]string
}

// Add records message under code.
func (c *ErrorCollector) Add(code, message string) {
	if c.messages == nil {
		c.messages = make(map[string][]string)
	}
	c.messages[code] = append(c.messages[code], message)
}

// HasErrors reports whether any message was recorded.
func (c ErrorCollector) HasErrors() bool { return len(c.messages) > 0 }

// Codes returns the recorded codes in sorted order.
func (c ErrorCollector) Codes() []string {
	codes := make([]string, 0, len(c.messages))
	for code := range c.messages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Message returns the first message recorded under code.
func (c ErrorCollector) Message(code string) string {
	if msgs := c.messages[code]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Messages returns a copy of every message recorded under code.
func (c ErrorCollector) Messages(code string) []string {
	return append([]string(nil), c.messages[code]...)
}
