package helixid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAndNonNil(t *testing.T) {
	a := New()
	b := New()
	assert.NotEqual(t, a, b)
	// Either ordering is acceptable depending on clock resolution, but
	// both must be well-formed (non-nil).
	assert.False(t, a.IsNil())
	assert.False(t, b.IsNil())
}

func TestFromBytesRoundTrip(t *testing.T) {
	a := New()
	id, err := FromBytes(a.Bytes())
	require.NoError(t, err)
	assert.Equal(t, a, id)
}

func TestFromBytesRejectsWrongLength(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestStringRoundTrip(t *testing.T) {
	a := New()
	parsed, err := ParseString(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestLabelHashStable(t *testing.T) {
	assert.Equal(t, LabelHash("User"), LabelHash("User"))
	assert.NotEqual(t, LabelHash("User"), LabelHash("Follows"))
}
