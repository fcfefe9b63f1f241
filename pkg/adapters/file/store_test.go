package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/servicedesk/pkg/adapters/file"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
	contract "github.com/aretw0/servicedesk/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.SessionStore = (*file.Store)(nil)
	_ ports.RecordStore  = (*file.Records)(nil)
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileRecords_Contract(t *testing.T) {
	contract.RecordStoreContractTest(t, file.NewRecords(t.TempDir()))
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		assert.Error(t, store.Save(ctx, id, domain.NewSession(id)), "id %q", id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "b", domain.NewSession("b")))
	require.NoError(t, store.Save(ctx, "a", domain.NewSession("a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".c-123.tmp"), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestFileStore_ListKeepsTmpPrefixedIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tmp-user", domain.NewSession("tmp-user")))

	_, err := store.Load(ctx, "tmp-user")
	require.NoError(t, err)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tmp-user"}, ids)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileRecords_SurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	rec := domain.LinkRecord{IncidentNumber: "INC1", Email: "a@b.com", SessionID: "s1"}.Record()
	require.NoError(t, file.NewRecords(dir).Insert(ctx, domain.KindUsers, rec))

	got, found, err := file.NewRecords(dir).Find(ctx, domain.KindUsers, domain.Record{domain.FieldSessionID: "s1"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a@b.com", got[domain.FieldEmail])
}
