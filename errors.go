package livepart

import (
	lperrors "github.com/livefir/livepart/internal/errors"
)

// Error is the structured error returned by the engine.
type Error = lperrors.Error

// Sentinel errors, matched with errors.Is.
var (
	// ErrCompilation is returned by Render when markup cannot be compiled.
	ErrCompilation = lperrors.ErrCompilation
	// ErrArityMismatch is logged when an update has the wrong number of values.
	ErrArityMismatch = lperrors.ErrArityMismatch
	// ErrKeyCollision is logged when two list items share a key.
	ErrKeyCollision = lperrors.ErrKeyCollision
	// ErrDetachedAnchor is logged when a part's anchor left the tree.
	ErrDetachedAnchor = lperrors.ErrDetachedAnchor
	// ErrInvalidConfig is returned by New and LoadConfig.
	ErrInvalidConfig = lperrors.ErrInvalidConfig
	// ErrUnknownNode is returned for nodes Render did not produce.
	ErrUnknownNode = lperrors.ErrUnknownNode
)
