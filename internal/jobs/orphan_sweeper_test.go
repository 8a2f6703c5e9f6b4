package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"io.winapps.confessionboard/internal/storage"
)

type fakeRefs struct {
	referenced map[string]bool
	err        error
	asked      []string
}

func (f *fakeRefs) ReferencedAudio(_ context.Context, keys []string) (map[string]bool, error) {
	f.asked = append(f.asked, keys...)
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]bool{}
	for _, k := range keys {
		if f.referenced[k] {
			out[k] = true
		}
	}
	return out, nil
}

func writeAged(t *testing.T, root, name string, age time.Duration) {
	t.Helper()
	p := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(p, []byte("audio"), 0644))
	ts := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(p, ts, ts))
}

func remaining(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRunOnce_DeletesOnlyOldUnreferencedFiles(t *testing.T) {
	root := t.TempDir()
	files, err := storage.NewLocalStore(root)
	require.NoError(t, err)

	writeAged(t, root, "1-kept.mp3", time.Hour)
	writeAged(t, root, "2-orphan.mp3", time.Hour)
	writeAged(t, root, "3-fresh.mp3", time.Minute)
	writeAged(t, root, ".upload-123", time.Hour)
	writeAged(t, root, "README.md", time.Hour)
	writeAged(t, root, "go.mod", time.Hour)

	refs := &fakeRefs{referenced: map[string]bool{"1-kept.mp3": true}}
	s := NewOrphanSweeper(files, refs, nil, 10*time.Minute)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SweepResult{Scanned: 2, Deleted: 1}, res)
	assert.ElementsMatch(t, []string{"1-kept.mp3", "2-orphan.mp3"}, refs.asked)
	assert.Equal(t, []string{".upload-123", "1-kept.mp3", "3-fresh.mp3", "README.md", "go.mod"}, remaining(t, root))
}

func TestRunOnce_NothingToScan(t *testing.T) {
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	refs := &fakeRefs{}

	res, err := NewOrphanSweeper(files, refs, nil, time.Minute).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
	assert.Empty(t, refs.asked)
}

func TestRunOnce_ReferenceLookupFailureKeepsFiles(t *testing.T) {
	root := t.TempDir()
	files, err := storage.NewLocalStore(root)
	require.NoError(t, err)
	writeAged(t, root, "1-a.mp3", time.Hour)

	refs := &fakeRefs{err: errors.New("db down")}
	_, err = NewOrphanSweeper(files, refs, nil, time.Minute).RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Equal(t, []string{"1-a.mp3"}, remaining(t, root))
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	s := NewOrphanSweeper(files, &fakeRefs{}, nil, time.Minute)

	assert.Error(t, s.Start("not a schedule"))

	require.NoError(t, s.Start("@every 1h"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
