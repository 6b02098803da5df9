package ingest

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coboxhq/abra/pkg/store"
)

func newTestImporter(t *testing.T) *Importer {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "abra_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewImporter(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
