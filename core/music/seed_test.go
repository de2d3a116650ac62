package music

import (
	"context"
	"testing"

	"auralis/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedLinksSongsToAlbums(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	report, err := Seed(ctx, f.store, false)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, len(sampleSongs), report.Songs)
	assert.Equal(t, len(sampleAlbums), report.Albums)
	require.Len(t, f.songs.items, report.Songs)

	for _, song := range f.songs.items {
		require.NotNil(t, song.AlbumID, song.Title)
		album := f.albums.find(*song.AlbumID)
		require.NotNil(t, album)
		assert.Contains(t, album.Songs, song.ID)
		assert.True(t, model.IsSongGenre(song.Genre), song.Title)
	}

	// 修复扫描在种子数据上不应有任何改动
	rep, err := NewReconciler(f.store).Run(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, rep.StaleRefs)
	assert.Zero(t, rep.MissingRefs)
	assert.Zero(t, rep.OrphanSongs)
}

func TestSeedSkipsUnlessForced(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addSong("existing", "A", 0, true, nil)

	report, err := Seed(ctx, f.store, false)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Len(t, f.songs.items, 1)

	report, err = Seed(ctx, f.store, true)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Len(t, f.songs.items, len(sampleSongs))
}
