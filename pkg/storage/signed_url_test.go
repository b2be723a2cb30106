package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("backup-1", "2026/backup-1.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	backupID, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "backup-1", backupID)
	assert.Equal(t, "2026/backup-1.csv", relPath)
}

func TestSignedURLTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("backup-1", "file.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "ff")
	assert.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Nanosecond)
	token, _, err := signer.Generate("backup-1", "file.csv")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, _, _, err = signer.Parse(token)
	assert.Error(t, err)
}
