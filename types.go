package credstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Logger is the minimal logging surface used by the store.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identifier selects an account either by numeric id or by username.
// Build one with ByID or ByName.
type Identifier struct {
	id     int64
	name   string
	byName bool
}

// ByID identifies an account by its primary key
func ByID(id int64) Identifier {
	return Identifier{id: id}
}

// ByName identifies an account by its username
func ByName(username string) Identifier {
	return Identifier{name: username, byName: true}
}

// ParseIdentifier treats all-digit input as an id and anything else as a username.
func ParseIdentifier(s string) Identifier {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ByID(id)
	}
	return ByName(s)
}

// IsName reports whether the identifier refers to a username
func (i Identifier) IsName() bool { return i.byName }

// ID returns the numeric id, zero when the identifier is a username
func (i Identifier) ID() int64 { return i.id }

// Name returns the username, empty when the identifier is an id
func (i Identifier) Name() string { return i.name }

func (i Identifier) String() string {
	if i.byName {
		return i.name
	}
	return strconv.FormatInt(i.id, 10)
}

func (i Identifier) column() (string, any) {
	if i.byName {
		return "username", i.name
	}
	return "id", i.id
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CREDSTORE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CREDSTORE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CREDSTORE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CREDSTORE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
