package music

import (
	"context"
	"fmt"

	"auralis/logger"
	"auralis/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReconcileReport 一次修复的统计
type ReconcileReport struct {
	AlbumsScanned int  `json:"albumsScanned"`
	AlbumsFixed   int  `json:"albumsFixed"`
	StaleRefs     int  `json:"staleRefs"`   // 专辑中指向不存在或其他专辑歌曲的 id
	MissingRefs   int  `json:"missingRefs"` // 歌曲指向专辑但专辑列表中没有
	OrphanSongs   int  `json:"orphanSongs"` // 歌曲指向已删除的专辑
	DryRun        bool `json:"dryRun"`
}

// Reconciler 修复专辑与歌曲之间的双向引用
type Reconciler struct {
	songs  repository.SongRepository
	albums repository.AlbumRepository
}

// NewReconciler 创建修复器
func NewReconciler(store *repository.Store) *Reconciler {
	return &Reconciler{songs: store.Songs, albums: store.Albums}
}

// Run 扫描并修复；dryRun 时只统计不写入
func (r *Reconciler) Run(ctx context.Context, dryRun bool) (*ReconcileReport, error) {
	albums, err := r.albums.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	refs, err := r.songs.ListAlbumRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list song album refs: %w", err)
	}

	report := &ReconcileReport{AlbumsScanned: len(albums), DryRun: dryRun}

	owner := make(map[primitive.ObjectID]primitive.ObjectID, len(refs))
	members := make(map[primitive.ObjectID][]primitive.ObjectID)
	for _, ref := range refs {
		owner[ref.SongID] = ref.AlbumID
		members[ref.AlbumID] = append(members[ref.AlbumID], ref.SongID)
	}

	exists := make(map[primitive.ObjectID]bool, len(albums))
	for _, album := range albums {
		exists[album.ID] = true

		listed := make(map[primitive.ObjectID]bool, len(album.Songs))
		songs := make([]primitive.ObjectID, 0, len(album.Songs))
		changed := false
		for _, id := range album.Songs {
			if owner[id] != album.ID || listed[id] {
				report.StaleRefs++
				changed = true
				continue
			}
			listed[id] = true
			songs = append(songs, id)
		}
		for _, id := range members[album.ID] {
			if !listed[id] {
				listed[id] = true
				songs = append(songs, id)
				report.MissingRefs++
				changed = true
			}
		}

		if !changed {
			continue
		}
		report.AlbumsFixed++
		if dryRun {
			continue
		}
		if err := r.albums.SetSongs(ctx, album.ID, songs); err != nil {
			return report, fmt.Errorf("fix album %s: %w", album.ID.Hex(), err)
		}
	}

	for _, ref := range refs {
		if exists[ref.AlbumID] {
			continue
		}
		report.OrphanSongs++
		if dryRun {
			continue
		}
		if err := r.songs.ClearAlbum(ctx, ref.SongID); err != nil {
			return report, fmt.Errorf("clear album of song %s: %w", ref.SongID.Hex(), err)
		}
	}

	logger.Info("Reconcile finished",
		logger.Int("albumsScanned", report.AlbumsScanned),
		logger.Int("albumsFixed", report.AlbumsFixed),
		logger.Int("staleRefs", report.StaleRefs),
		logger.Int("missingRefs", report.MissingRefs),
		logger.Int("orphanSongs", report.OrphanSongs),
		logger.Bool("dryRun", dryRun))
	return report, nil
}
