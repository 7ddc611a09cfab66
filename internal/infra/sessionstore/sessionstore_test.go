package sessionstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/artfy-client-go/internal/infra/sessionstore"
	"github.com/boddenberg/artfy-client-go/internal/port"
)

const userInfo = `{"id":5,"name":"Ana","email":"ana@example.com"}`

// exercise runs the persister contract shared by every backend.
func exercise(t *testing.T, p port.SessionPersister) {
	t.Helper()
	ctx := context.Background()

	token, info, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, info)

	require.NoError(t, p.Save(ctx, "tok-1", []byte(userInfo)))
	token, info, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.JSONEq(t, userInfo, string(info))

	require.NoError(t, p.Save(ctx, "tok-2", []byte(`{"id":6}`)))
	token, info, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.JSONEq(t, `{"id":6}`, string(info))

	require.NoError(t, p.Delete(ctx))
	require.NoError(t, p.Delete(ctx))
	token, info, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, info)
}

func TestMemory(t *testing.T) {
	exercise(t, sessionstore.NewMemory())
}

func TestFile_Plaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exercise(t, sessionstore.NewFile(path, ""))
}

func TestFile_Encrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	exercise(t, sessionstore.NewFile(path, "s3cret"))
}

func TestFile_EncryptedAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	f := sessionstore.NewFile(path, "s3cret")
	require.NoError(t, f.Save(context.Background(), "tok-secret", []byte(userInfo)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tok-secret")
	assert.NotContains(t, string(raw), "ana@example.com")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFile_WrongSecretIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, sessionstore.NewFile(path, "right").Save(context.Background(), "tok", []byte(userInfo)))

	_, _, err := sessionstore.NewFile(path, "wrong").Load(context.Background())
	assert.True(t, errors.Is(err, port.ErrSessionCorrupt))
}

func TestFile_GarbageIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := sessionstore.NewFile(path, "").Load(context.Background())
	assert.True(t, errors.Is(err, port.ErrSessionCorrupt))
}

func TestFile_HalfWrittenDocumentLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"userToken":"tok"}`), 0o600))

	token, info, err := sessionstore.NewFile(path, "").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Empty(t, info)
}

func TestFile_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	f := sessionstore.NewFile(filepath.Join(dir, "session.json"), "")
	for i := 0; i < 3; i++ {
		require.NoError(t, f.Save(context.Background(), "tok", []byte(userInfo)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.json", entries[0].Name())
}

func TestRedis(t *testing.T) {
	url := os.Getenv("ARTFY_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ARTFY_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := sessionstore.NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := sessionstore.NewRedis(client, "artfy-test:"+uuid.NewString()+":")
	require.NoError(t, store.Health(ctx))
	exercise(t, store)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := sessionstore.NewRedisClient(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
}
