package music

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"auralis/model"
	"auralis/repository"
	"auralis/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errBoom = errors.New("boom")

func contains(s, sub string) bool {
	sub = strings.TrimSpace(sub)
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

type fakeSongs struct {
	mu        sync.Mutex
	items     []*model.Song
	err       error
	createErr error
	deleteErr error
	findCalls int
	lastLimit int64
}

func (f *fakeSongs) match(s *model.Song, fl repository.SongFilter) bool {
	if fl.ActiveOnly && !s.IsActive {
		return false
	}
	if fl.Search != "" && !contains(s.Title, fl.Search) && !contains(s.Artist, fl.Search) {
		return false
	}
	if !contains(s.Title, fl.Title) || !contains(s.Artist, fl.Artist) {
		return false
	}
	if fl.Genre != "" && fl.Genre != model.GenreAll && string(s.Genre) != fl.Genre {
		return false
	}
	if fl.AlbumID != nil && (s.AlbumID == nil || *s.AlbumID != *fl.AlbumID) {
		return false
	}
	return true
}

func (f *fakeSongs) Create(_ context.Context, song *model.Song) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if song.ID.IsZero() {
		song.ID = primitive.NewObjectID()
	}
	if song.CreatedAt.IsZero() {
		song.CreatedAt = time.Now().Add(time.Duration(len(f.items)) * time.Millisecond)
	}
	cp := *song
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeSongs) GetByID(_ context.Context, id primitive.ObjectID) (*model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.items {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSongs) Find(_ context.Context, fl repository.SongFilter, order repository.SongSort, skip, limit int64) ([]*model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*model.Song, 0)
	for _, s := range f.items {
		if f.match(s, fl) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == repository.SortPopular && out[i].PlayCount != out[j].PlayCount {
			return out[i].PlayCount > out[j].PlayCount
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return window(out, skip, limit), nil
}

func window[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return items[:0]
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

func (f *fakeSongs) Count(_ context.Context, fl repository.SongFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for _, s := range f.items {
		if f.match(s, fl) {
			n++
		}
	}
	return n, nil
}

func (f *fakeSongs) Sample(ctx context.Context, size int) ([]*model.Song, error) {
	return f.Find(ctx, repository.SongFilter{ActiveOnly: true}, repository.SortNewest, 0, int64(size))
}

func (f *fakeSongs) IncrementPlayCount(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.items {
		if s.ID == id && s.IsActive {
			s.PlayCount++
			return s.PlayCount, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (f *fakeSongs) GroupByArtist(_ context.Context, fl repository.SongFilter, skip, limit int64) ([]model.ArtistSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	index := map[string]int{}
	out := []model.ArtistSummary{}
	for _, s := range f.items {
		if !f.match(s, fl) {
			continue
		}
		i, ok := index[s.Artist]
		if !ok {
			i = len(out)
			index[s.Artist] = i
			out = append(out, model.ArtistSummary{Name: s.Artist, ImageURL: s.ImageURL})
		}
		out[i].SongCount++
		out[i].TotalPlays += s.PlayCount
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalPlays > out[j].TotalPlays })
	return window(out, skip, limit), nil
}

func (f *fakeSongs) ListByAlbum(ctx context.Context, albumID primitive.ObjectID) ([]*model.Song, error) {
	return f.Find(ctx, repository.SongFilter{AlbumID: &albumID}, repository.SortNewest, 0, 0)
}

func (f *fakeSongs) ListAlbumRefs(_ context.Context) ([]repository.SongAlbumRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []repository.SongAlbumRef
	for _, s := range f.items {
		if s.AlbumID != nil {
			refs = append(refs, repository.SongAlbumRef{SongID: s.ID, AlbumID: *s.AlbumID})
		}
	}
	return refs, nil
}

func (f *fakeSongs) ClearAlbum(_ context.Context, songID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.items {
		if s.ID == songID {
			s.AlbumID = nil
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeSongs) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, s := range f.items {
		if s.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeSongs) DeleteByAlbum(_ context.Context, albumID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	var n int64
	for _, s := range f.items {
		if s.AlbumID != nil && *s.AlbumID == albumID {
			n++
			continue
		}
		kept = append(kept, s)
	}
	f.items = kept
	return n, nil
}

func (f *fakeSongs) DistinctArtists(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, s := range f.items {
		if !seen[s.Artist] {
			seen[s.Artist] = true
			out = append(out, s.Artist)
		}
	}
	return out, nil
}

func (f *fakeSongs) DeleteAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	return nil
}

type fakeAlbums struct {
	mu    sync.Mutex
	items []*model.Album
	err   error
}

func (f *fakeAlbums) find(id primitive.ObjectID) *model.Album {
	for _, a := range f.items {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (f *fakeAlbums) Create(_ context.Context, album *model.Album) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.items {
		if a.ImageURL == album.ImageURL {
			return repository.ErrDuplicate
		}
	}
	if album.ID.IsZero() {
		album.ID = primitive.NewObjectID()
	}
	cp := *album
	cp.Songs = append([]primitive.ObjectID{}, album.Songs...)
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeAlbums) GetByID(_ context.Context, id primitive.ObjectID) (*model.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a := f.find(id)
	if a == nil {
		return nil, repository.ErrNotFound
	}
	cp := *a
	cp.Songs = append([]primitive.ObjectID{}, a.Songs...)
	return &cp, nil
}

func (f *fakeAlbums) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*model.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Album
	for _, id := range ids {
		if a := f.find(id); a != nil {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAlbums) matching(fl repository.AlbumFilter) []*model.Album {
	out := make([]*model.Album, 0)
	for _, a := range f.items {
		if fl.ActiveOnly && !a.IsActive {
			continue
		}
		if fl.Search != "" && !contains(a.Title, fl.Search) && !contains(a.Artist, fl.Search) {
			continue
		}
		if !contains(a.Artist, fl.Artist) {
			continue
		}
		if fl.Genre != "" && fl.Genre != model.GenreAll && string(a.Genre) != fl.Genre {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out
}

func (f *fakeAlbums) Find(_ context.Context, fl repository.AlbumFilter, skip, limit int64) ([]*model.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return window(f.matching(fl), skip, limit), nil
}

func (f *fakeAlbums) Count(_ context.Context, fl repository.AlbumFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.matching(fl))), nil
}

func (f *fakeAlbums) AddSong(_ context.Context, albumID, songID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(albumID)
	if a == nil {
		return repository.ErrNotFound
	}
	if !a.HasSong(songID) {
		a.Songs = append(a.Songs, songID)
	}
	return nil
}

func (f *fakeAlbums) RemoveSong(_ context.Context, albumID, songID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(albumID)
	if a == nil {
		return repository.ErrNotFound
	}
	kept := make([]primitive.ObjectID, 0, len(a.Songs))
	for _, id := range a.Songs {
		if id != songID {
			kept = append(kept, id)
		}
	}
	a.Songs = kept
	return nil
}

func (f *fakeAlbums) SetSongs(_ context.Context, albumID primitive.ObjectID, songs []primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(albumID)
	if a == nil {
		return repository.ErrNotFound
	}
	a.Songs = append([]primitive.ObjectID{}, songs...)
	return nil
}

func (f *fakeAlbums) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.items {
		if a.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeAlbums) DistinctArtists(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, a := range f.items {
		out = append(out, a.Artist)
	}
	return out, nil
}

func (f *fakeAlbums) ListAll(_ context.Context) ([]*model.Album, error) {
	return f.Find(context.Background(), repository.AlbumFilter{}, 0, 0)
}

func (f *fakeAlbums) DeleteAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	return nil
}

type fakeUsers struct {
	count int64
}

func (f *fakeUsers) FindByClerkID(context.Context, string) (*model.User, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeUsers) Create(context.Context, *model.User) error { return nil }
func (f *fakeUsers) ListExcept(context.Context, string) ([]*model.User, error) {
	return []*model.User{}, nil
}
func (f *fakeUsers) Count(context.Context) (int64, error) { return f.count, nil }

type fakeMedia struct {
	mu      sync.Mutex
	failOn  map[storage.MediaKind]bool
	uploads []string
	deleted []string
}

func (f *fakeMedia) Upload(_ context.Context, kind storage.MediaKind, localPath, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[kind] {
		return "", errBoom
	}
	url := "http://media.test/" + kind.Prefix() + primitive.NewObjectID().Hex()
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeMedia) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeProber struct {
	seconds float64
	err     error
}

func (p fakeProber) Duration(context.Context, string) (float64, error) {
	return p.seconds, p.err
}

type fixture struct {
	songs  *fakeSongs
	albums *fakeAlbums
	users  *fakeUsers
	store  *repository.Store
}

func newFixture() *fixture {
	f := &fixture{songs: &fakeSongs{}, albums: &fakeAlbums{}, users: &fakeUsers{}}
	f.store = &repository.Store{Driver: "fake", Songs: f.songs, Albums: f.albums, Users: f.users}
	return f
}

func (f *fixture) addSong(title, artist string, plays int64, active bool, album *model.Album) *model.Song {
	song := &model.Song{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Artist:    artist,
		ImageURL:  "http://img/" + title,
		AudioURL:  "http://audio/" + title,
		Duration:  200,
		Genre:     model.GenrePop,
		PlayCount: plays,
		IsActive:  active,
	}
	if album != nil {
		id := album.ID
		song.AlbumID = &id
		_ = f.albums.AddSong(context.Background(), album.ID, song.ID)
	}
	_ = f.songs.Create(context.Background(), song)
	return song
}

func (f *fixture) addAlbum(title, artist string, active bool) *model.Album {
	album := &model.Album{
		ID:       primitive.NewObjectID(),
		Title:    title,
		Artist:   artist,
		ImageURL: "http://img/album/" + title,
		Genre:    model.GenrePop,
		IsActive: active,
		Songs:    []primitive.ObjectID{},
	}
	_ = f.albums.Create(context.Background(), album)
	return album
}

var songFilterAll = repository.SongFilter{}

func toAny[T any](items []T) []interface{} {
	out := make([]interface{}, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}
