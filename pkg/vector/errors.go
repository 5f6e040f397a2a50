package vector

import (
	"errors"

	"github.com/helixdb/helix-go/pkg/herrors"
)

// errShort is a codec-local detail (truncated record), not part of the
// spec's error taxonomy; callers see it wrapped under herrors.ErrIo.
var errShort = errors.New("vector: truncated record")

// Re-exported for callers that only import pkg/vector.
var (
	ErrVectorNotFound     = herrors.ErrVectorNotFound
	ErrInvalidVecDimension = herrors.ErrInvalidVecDimension
	ErrMissingMetadata    = herrors.ErrMissingMetadata
	ErrUnmatchingDistance = herrors.ErrUnmatchingDistance
	ErrNeedBuild          = herrors.ErrNeedBuild
	ErrEntryPointNotFound = herrors.ErrEntryPointNotFound
	ErrVectorAlreadyDeleted = herrors.ErrVectorAlreadyDeleted
)
