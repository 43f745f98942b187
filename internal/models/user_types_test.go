package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordSetAndMatch(t *testing.T) {
	var p Password
	require.NoError(t, p.Set("correct horse battery"))
	require.NotEmpty(t, p.Hash)
	assert.NotEqual(t, "correct horse battery", p.Hash)

	match, err := p.Matches("correct horse battery")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = p.Matches("wrong password")
	require.NoError(t, err)
	assert.False(t, match)
}

func TestPasswordMatchesAgainstStoredHash(t *testing.T) {
	var p Password
	require.NoError(t, p.Set("secret-password"))

	// Simulate loading the hash from the database into a fresh struct.
	loaded := Password{Hash: p.Hash}
	match, err := loaded.Matches("secret-password")
	require.NoError(t, err)
	assert.True(t, match)
}
