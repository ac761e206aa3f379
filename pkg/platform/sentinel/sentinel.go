package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The dataset cache returns
// these (optionally wrapped) so the screening service can translate
// them into domain errors.
//
// These represent factual states about resources, not validation
// failures. For validation errors (bad input, missing fields), use
// pkg/domain-errors directly.
var (
	// ErrNoSnapshot means no dataset snapshot has ever been produced,
	// so there is nothing to serve, not even stale data.
	ErrNoSnapshot = errors.New("no snapshot")
)
