package journal

import (
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestJournal(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "state", "journal.sqlite")
	j, err := Open(logs.NewTestingLog(t), dbFile)
	require.NoError(t, err)

	done, err := j.IsComplete("anno/000342.json", 0.3)
	require.NoError(t, err)
	require.False(t, done)

	require.NoError(t, j.MarkComplete(Video{
		Annotation:    "anno/000342.json",
		Output:        "out/000342.json",
		NumFrames:     100,
		NumCandidates: 250,
		Threshold:     0.3,
	}))

	done, err = j.IsComplete("anno/000342.json", 0.3)
	require.NoError(t, err)
	require.True(t, done)

	// A different threshold doesn't count
	done, err = j.IsComplete("anno/000342.json", 0.4)
	require.NoError(t, err)
	require.False(t, done)

	// Re-marking replaces the old record
	require.NoError(t, j.MarkComplete(Video{
		Annotation: "anno/000342.json",
		Output:     "out/000342.json",
		NumFrames:  100,
		Threshold:  0.4,
	}))
	require.NoError(t, j.MarkComplete(Video{
		Annotation: "anno/000001.json",
		Output:     "out/000001.json",
		NumFrames:  7,
		Threshold:  0.4,
	}))

	videos, err := j.List()
	require.NoError(t, err)
	require.Len(t, videos, 2)
	require.Equal(t, "anno/000001.json", videos[0].Annotation)
	require.Equal(t, 0.4, videos[1].Threshold)
	require.False(t, videos[1].CompletedAt.IsZero())

	require.NoError(t, j.Close())

	// State survives a reopen
	j, err = Open(logs.NewTestingLog(t), dbFile)
	require.NoError(t, err)
	defer j.Close()
	v, err := j.Get("anno/000001.json")
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, 7, v.NumFrames)

	v, err = j.Get("anno/nope.json")
	require.NoError(t, err)
	require.Nil(t, v)
}
