package credentials

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *Record {
	return &Record{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(2 * time.Hour).Unix(),
		UserID:       "12345",
		Username:     "testuser",
		DisplayName:  "Test User",
	}
}

func TestFileStore_SaveLoadRoundtrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.md"))
	want := sampleRecord()

	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.md"))

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFileStore_LoadIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.md")
	content := "---\nclient_id: \"abc\"\n---\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewFileStore(path).Load()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFileStore_LoadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.md")
	require.NoError(t, os.WriteFile(path, []byte("not frontmatter"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
}

func TestFileStore_OwnerOnlyPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), "credentials.md")
	store := NewFileStore(path)
	require.NoError(t, store.Save(sampleRecord()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.md"))
	first := sampleRecord()
	require.NoError(t, store.Save(first))

	second := sampleRecord()
	second.AccessToken = "rotated-access"
	second.RefreshToken = "rotated-refresh"
	require.NoError(t, store.Save(second))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", got.AccessToken)
	assert.Equal(t, "rotated-refresh", got.RefreshToken)
}

func TestRecord_Fresh(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"comfortably in the future", time.Now().Add(time.Hour).Unix(), true},
		{"inside the margin", time.Now().Add(time.Minute).Unix(), false},
		{"already expired", time.Now().Add(-10 * time.Minute).Unix(), false},
		{"never issued", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, r.Fresh(DefaultRefreshMargin))
		})
	}
}

func TestRecord_ApplyTokens(t *testing.T) {
	r := sampleRecord()
	newExpiry := time.Now().Add(3 * time.Hour)

	r.ApplyTokens("new-access", "new-refresh", newExpiry)
	assert.Equal(t, "new-access", r.AccessToken)
	assert.Equal(t, "new-refresh", r.RefreshToken)
	assert.Equal(t, newExpiry.Unix(), r.ExpiresAt)
}

func TestRecord_ApplyTokens_KeepsRefreshWhenNotRotated(t *testing.T) {
	r := sampleRecord()
	r.ApplyTokens("new-access", "", time.Now().Add(3*time.Hour))
	assert.Equal(t, "refresh-token", r.RefreshToken)
}

func TestRecord_ApplyTokens_ExpiryNeverDecreases(t *testing.T) {
	r := sampleRecord()
	r.ExpiresAt = time.Now().Add(24 * time.Hour).Unix()
	before := r.ExpiresAt

	r.ApplyTokens("new-access", "new-refresh", time.Now().Add(time.Minute))
	assert.Equal(t, before, r.ExpiresAt)
}
