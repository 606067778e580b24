package vault

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifesignal/lifesignal/internal/common"
	"github.com/lifesignal/lifesignal/internal/logging"
	sc "github.com/lifesignal/lifesignal/internal/server/config"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	svc, err := NewService(NewInMemoryRepository(), cfg, testLogger())
	require.NoError(t, err)
	return svc
}

func TestNewServiceRejectsBadKey(t *testing.T) {
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.EncryptionKeyHex = "not-hex"
	_, err := NewService(NewInMemoryRepository(), cfg, testLogger())
	assert.Error(t, err)

	cfg.EncryptionKeyHex = "aabbcc"
	_, err = NewService(NewInMemoryRepository(), cfg, testLogger())
	assert.Error(t, err)
}

func TestAddAndReveal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, "owner1", KindText, "the safe code is 4711", "", []string{"t1", "t2"})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.NotEqual(t, []byte("the safe code is 4711"), entry.Ciphertext)

	got, plaintext, err := svc.Reveal(ctx, "owner1", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "the safe code is 4711", plaintext)
	assert.Equal(t, []string{"t1", "t2"}, got.RecipientIDs)
}

func TestAddRejectsUnknownKind(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Add(context.Background(), "owner1", ContentKind("pdf"), "x", "", nil)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestRevealScopedToOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, "owner1", KindText, "secret", "", nil)
	require.NoError(t, err)

	_, _, err = svc.Reveal(ctx, "owner2", entry.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListPreviews(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "owner1", KindText, "short", "", nil)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "owner1", KindText, "a considerably longer farewell letter", "", nil)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "owner1", KindVideo, "vault/2026/1/1/abc", "vault/2026/1/1/abc", nil)
	require.NoError(t, err)

	views, err := svc.List(ctx, "owner1")
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "short", views[0].Preview)
	assert.Equal(t, "a considerab..", views[1].Preview)
	assert.Equal(t, "[VIDEO]", views[2].Preview)
}

func TestListUndecryptableEntryStillListed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, "owner1", KindText, "secret", "", nil)
	require.NoError(t, err)

	// Corrupt the stored ciphertext behind the service's back.
	raw, err := svc.repo.Get(ctx, entry.ID, "owner1")
	require.NoError(t, err)
	raw.Ciphertext[0] ^= 0xff
	memRepo := svc.repo.(*InMemoryRepository)
	memRepo.mu.Lock()
	memRepo.entries[entry.ID] = raw
	memRepo.mu.Unlock()

	views, err := svc.List(ctx, "owner1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "[undecryptable]", views[0].Preview)

	_, _, err = svc.Reveal(ctx, "owner1", entry.ID)
	assert.ErrorIs(t, err, common.ErrorUndecryptable)
}

func TestUpdateRecipientsAndDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, "owner1", KindText, "secret", "", []string{"t1"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateRecipients(ctx, "owner1", entry.ID, []string{"t2", "t3"}))

	got, _, err := svc.Reveal(ctx, "owner1", entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3"}, got.RecipientIDs)

	assert.ErrorIs(t, svc.Delete(ctx, "owner2", entry.ID), common.ErrorNotFound)
	require.NoError(t, svc.Delete(ctx, "owner1", entry.ID))
	_, err = svc.repo.Get(ctx, entry.ID, "owner1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetRandomStorageKey(t *testing.T) {
	k1 := GetRandomStorageKey()
	k2 := GetRandomStorageKey()
	assert.NotEqual(t, k1, k2)
	assert.Contains(t, k1, "vault/")
}
