package erpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef_Absent(t *testing.T) {
	ref, err := ParseRef(false)
	require.NoError(t, err)
	assert.False(t, ref.Present())

	ref, err = ParseRef(nil)
	require.NoError(t, err)
	assert.False(t, ref.Present())
}

func TestParseRef_BareID(t *testing.T) {
	ref, err := ParseRef(float64(42))
	require.NoError(t, err)
	require.True(t, ref.Present())
	assert.Equal(t, 42, ref.ID())
	assert.Equal(t, "", ref.Name())
}

func TestParseRef_IDName(t *testing.T) {
	ref, err := ParseRef([]interface{}{float64(7), "Acme Corp"})
	require.NoError(t, err)
	require.True(t, ref.Present())
	assert.Equal(t, 7, ref.ID())
	assert.Equal(t, "Acme Corp", ref.Name())
}

func TestParseRef_UnexpectedTrueErrors(t *testing.T) {
	_, err := ParseRef(true)
	assert.Error(t, err)
}

func TestParseRef_UnrecognizedShapeErrors(t *testing.T) {
	_, err := ParseRef(struct{}{})
	assert.Error(t, err)
}
