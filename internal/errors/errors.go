// Package errors holds the engine's error taxonomy.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an engine error.
type Kind string

const (
	KindCompilation    Kind = "compilation"
	KindArityMismatch  Kind = "arity_mismatch"
	KindKeyCollision   Kind = "key_collision"
	KindDetachedAnchor Kind = "detached_anchor"
	KindConfig         Kind = "config"
	KindUnknownNode    Kind = "unknown_node"
)

// Sentinels for errors.Is.
var (
	ErrCompilation    = &Error{Kind: KindCompilation}
	ErrArityMismatch  = &Error{Kind: KindArityMismatch}
	ErrKeyCollision   = &Error{Kind: KindKeyCollision}
	ErrDetachedAnchor = &Error{Kind: KindDetachedAnchor}
	ErrInvalidConfig  = &Error{Kind: KindConfig}
	ErrUnknownNode    = &Error{Kind: KindUnknownNode}
)

// Error is a structured engine error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, "livepart")
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	parts = append(parts, msg)

	result := strings.Join(parts, ": ")
	if e.Cause != nil {
		result += ": " + e.Cause.Error()
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Compilation reports markup that cannot be compiled into a template.
func Compilation(op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: KindCompilation, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ArityMismatch reports a value array whose length differs from the part count.
func ArityMismatch(op string, want, got int) *Error {
	return &Error{Kind: KindArityMismatch, Op: op, Message: fmt.Sprintf("expected %d values, got %d", want, got)}
}

// KeyCollision reports two list items resolving to the same key.
func KeyCollision(op string, key any, first, second int) *Error {
	return &Error{Kind: KindKeyCollision, Op: op, Message: fmt.Sprintf("key %v used by items %d and %d", key, first, second)}
}

// DetachedAnchor reports a part whose anchor has left the tree.
func DetachedAnchor(op string) *Error {
	return &Error{Kind: KindDetachedAnchor, Op: op, Message: "anchor is not attached to a parent"}
}

// InvalidConfig reports a configuration that failed validation.
func InvalidConfig(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Op: "config", Message: fmt.Sprintf(format, args...), Cause: cause}
}

// UnknownNode reports a node that was not produced by the engine's Render.
func UnknownNode(op string) *Error {
	return &Error{Kind: KindUnknownNode, Op: op, Message: "node has no recorded template values"}
}
