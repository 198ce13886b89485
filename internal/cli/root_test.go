package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balcaopos/balcao/internal/store"
	"github.com/balcaopos/balcao/pkg/syncer"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["purge"])
}

func TestPurgeCommandRemovesKinds(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "balcao.db")
	cfgPath := filepath.Join(dir, "balcao.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db_path: "+dbPath+"\n"), 0o644))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Insert(context.Background(), "default", syncer.Record{
		Kind: syncer.KindSale, Identity: syncer.NewIdentity(),
		Fields: map[string]any{"total": 9.0}, LastModified: time.Now().UTC(),
	}))
	require.NoError(t, st.Close())

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"purge", "--config", cfgPath, "--kind", "sale"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "removed 1 records")
}

func TestPurgeCommandRequiresKind(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"purge"})
	require.Error(t, root.Execute())
}
