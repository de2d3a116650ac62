package music

import (
	"context"
	"errors"
	"sort"
	"strings"

	"auralis/core/apperr"
	"auralis/logger"
	"auralis/model"
	"auralis/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	featuredSize   = 6
	madeForYouSize = 4
	trendingSize   = 6

	defaultSearchLimit = 20
	defaultQuickLimit  = 5
	minQuickQueryLen   = 2
)

// 搜索类型
const (
	SearchAll     = "all"
	SearchSongs   = "songs"
	SearchAlbums  = "albums"
	SearchArtists = "artists"
)

// QueryService 面向公开接口的只读查询，不返回下架数据
type QueryService struct {
	songs  repository.SongRepository
	albums repository.AlbumRepository
	users  repository.UserRepository
}

// NewQueryService 创建查询服务
func NewQueryService(store *repository.Store) *QueryService {
	return &QueryService{songs: store.Songs, albums: store.Albums, users: store.Users}
}

// ListSongsParams 歌曲列表参数
type ListSongsParams struct {
	Page   Page
	Search string
	Genre  string
	Artist string
}

// ListSongs 分页列出上架歌曲，按创建时间倒序
func (s *QueryService) ListSongs(ctx context.Context, p ListSongsParams) ([]model.SongView, Pagination, error) {
	filter := repository.SongFilter{
		ActiveOnly: true,
		Search:     p.Search,
		Genre:      p.Genre,
		Artist:     p.Artist,
	}

	songs, err := s.songs.Find(ctx, filter, repository.SortNewest, p.Page.Skip(), int64(p.Page.Limit))
	if err != nil {
		return nil, Pagination{}, err
	}
	total, err := s.songs.Count(ctx, filter)
	if err != nil {
		return nil, Pagination{}, err
	}

	views, err := s.withAlbums(ctx, songs)
	if err != nil {
		return nil, Pagination{}, err
	}
	return views, p.Page.Paginate(total), nil
}

// SearchParams 综合搜索参数
type SearchParams struct {
	Query  string
	Type   string
	Genre  string
	Artist string
	Limit  int
	Offset int
}

// SearchResult 综合搜索结果，Total 只是本页各类结果数量之和
type SearchResult struct {
	Songs   []model.SongView      `json:"songs"`
	Albums  []*model.Album        `json:"albums"`
	Artists []model.ArtistSummary `json:"artists"`
	Total   int                   `json:"total"`
}

// SearchMusic 按类型搜索歌曲、专辑和艺人，任一子查询失败则整体失败
func (s *QueryService) SearchMusic(ctx context.Context, p SearchParams) (*SearchResult, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, apperr.Invalid("Search query is required")
	}
	if p.Type == "" {
		p.Type = SearchAll
	}
	switch p.Type {
	case SearchAll, SearchSongs, SearchAlbums, SearchArtists:
	default:
		return nil, apperr.Invalid("Invalid search type")
	}
	if p.Limit < 1 {
		p.Limit = defaultSearchLimit
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	skip, limit := int64(p.Offset), int64(p.Limit)

	result := &SearchResult{
		Songs:   []model.SongView{},
		Albums:  []*model.Album{},
		Artists: []model.ArtistSummary{},
	}
	fail := func(err error) (*SearchResult, error) {
		logger.Error("Search failed", logger.String("query", query), logger.ErrorField(err))
		return nil, apperr.Wrap(apperr.SearchFailed, "Search failed", err)
	}

	if p.Type == SearchAll || p.Type == SearchSongs {
		songs, err := s.songs.Find(ctx, repository.SongFilter{
			ActiveOnly: true,
			Search:     query,
			Genre:      p.Genre,
			Artist:     p.Artist,
		}, repository.SortPopular, skip, limit)
		if err != nil {
			return fail(err)
		}
		if result.Songs, err = s.withAlbums(ctx, songs); err != nil {
			return fail(err)
		}
	}

	if p.Type == SearchAll || p.Type == SearchAlbums {
		albums, err := s.albums.Find(ctx, repository.AlbumFilter{
			ActiveOnly: true,
			Search:     query,
			Genre:      p.Genre,
		}, skip, limit)
		if err != nil {
			return fail(err)
		}
		result.Albums = albums
	}

	if p.Type == SearchAll || p.Type == SearchArtists {
		artists, err := s.songs.GroupByArtist(ctx, repository.SongFilter{ActiveOnly: true, Artist: query}, skip, limit)
		if err != nil {
			return fail(err)
		}
		if artists != nil {
			result.Artists = artists
		}
	}

	result.Total = len(result.Songs) + len(result.Albums) + len(result.Artists)
	return result, nil
}

// Suggestion 快速搜索的一条候选
type Suggestion struct {
	Type     string `json:"type"` // song 或 artist
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	ImageURL string `json:"imageUrl"`
}

// QuickSearch 自动补全，查询词不足两个字符时直接返回空列表
func (s *QueryService) QuickSearch(ctx context.Context, q string, limit int) ([]Suggestion, error) {
	suggestions := []Suggestion{}
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minQuickQueryLen {
		return suggestions, nil
	}
	if limit < 1 {
		limit = defaultQuickLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	songs, err := s.songs.Find(ctx, repository.SongFilter{ActiveOnly: true, Title: q}, repository.SortPopular, 0, int64(limit))
	if err != nil {
		return nil, apperr.Wrap(apperr.SearchFailed, "Quick search failed", err)
	}
	artists, err := s.songs.GroupByArtist(ctx, repository.SongFilter{ActiveOnly: true, Artist: q}, 0, int64(limit))
	if err != nil {
		return nil, apperr.Wrap(apperr.SearchFailed, "Quick search failed", err)
	}

	for _, song := range songs {
		suggestions = append(suggestions, Suggestion{
			Type:     "song",
			ID:       song.ID.Hex(),
			Title:    song.Title,
			Artist:   song.Artist,
			ImageURL: song.ImageURL,
		})
	}
	for _, a := range artists {
		suggestions = append(suggestions, Suggestion{
			Type:     "artist",
			ID:       a.Name,
			Title:    a.Name,
			Artist:   a.Name,
			ImageURL: a.ImageURL,
		})
	}
	return suggestions, nil
}

// Featured 随机推荐，附带专辑摘要
func (s *QueryService) Featured(ctx context.Context) ([]model.SongCard, error) {
	songs, err := s.songs.Sample(ctx, featuredSize)
	if err != nil {
		return nil, err
	}
	albums, err := s.albumIndex(ctx, songs)
	if err != nil {
		return nil, err
	}

	cards := make([]model.SongCard, 0, len(songs))
	for _, song := range songs {
		card := song.Card()
		if song.AlbumID != nil {
			if a, ok := albums[*song.AlbumID]; ok {
				card.Album = a.Summary()
			}
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// MadeForYou 目前同样是随机抽样，没有个性化
func (s *QueryService) MadeForYou(ctx context.Context) ([]model.SongCard, error) {
	songs, err := s.songs.Sample(ctx, madeForYouSize)
	if err != nil {
		return nil, err
	}
	cards := make([]model.SongCard, 0, len(songs))
	for _, song := range songs {
		cards = append(cards, song.Card())
	}
	return cards, nil
}

// Trending 播放次数最多的歌曲
func (s *QueryService) Trending(ctx context.Context) ([]model.SongCard, error) {
	songs, err := s.songs.Find(ctx, repository.SongFilter{ActiveOnly: true}, repository.SortPopular, 0, trendingSize)
	if err != nil {
		return nil, err
	}
	cards := make([]model.SongCard, 0, len(songs))
	for _, song := range songs {
		card := song.Card()
		plays := song.PlayCount
		card.PlayCount = &plays
		cards = append(cards, card)
	}
	return cards, nil
}

// GetSongByID 获取单首上架歌曲
func (s *QueryService) GetSongByID(ctx context.Context, rawID string) (*model.SongView, error) {
	id, ok := model.ParseID(rawID)
	if !ok {
		return nil, apperr.Invalid("Invalid song ID format")
	}
	song, err := s.songs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !song.IsActive) {
		return nil, apperr.New(apperr.NotFound, "Song not found")
	}
	if err != nil {
		return nil, err
	}

	view := &model.SongView{Song: song}
	if song.AlbumID != nil {
		album, err := s.albums.GetByID(ctx, *song.AlbumID)
		switch {
		case err == nil:
			view.Album = album.Summary()
		case errors.Is(err, repository.ErrNotFound):
			logger.Warn("Song references missing album",
				logger.String("songId", song.ID.Hex()),
				logger.String("albumId", song.AlbumID.Hex()))
		default:
			return nil, err
		}
	}
	return view, nil
}

// IncrementPlayCount 播放次数加一，返回新值
func (s *QueryService) IncrementPlayCount(ctx context.Context, rawID string) (int64, error) {
	id, ok := model.ParseID(rawID)
	if !ok {
		return 0, apperr.Invalid("Invalid song ID format")
	}
	count, err := s.songs.IncrementPlayCount(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, apperr.New(apperr.NotFound, "Song not found")
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListAlbums 所有上架专辑，按创建时间倒序
func (s *QueryService) ListAlbums(ctx context.Context) ([]*model.Album, error) {
	return s.albums.Find(ctx, repository.AlbumFilter{ActiveOnly: true}, 0, 0)
}

// GetAlbum 专辑详情，歌曲按专辑中的顺序排列
func (s *QueryService) GetAlbum(ctx context.Context, rawID string) (*model.AlbumWithSongs, error) {
	id, ok := model.ParseID(rawID)
	if !ok {
		return nil, apperr.Invalid("Invalid album ID format")
	}
	album, err := s.albums.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !album.IsActive) {
		return nil, apperr.New(apperr.NotFound, "Album not found")
	}
	if err != nil {
		return nil, err
	}

	songs, err := s.songs.ListByAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.AlbumWithSongs{Album: album, Songs: orderByAlbum(album, songs)}, nil
}

// orderByAlbum 只保留上架歌曲；不在专辑列表中的排在末尾
func orderByAlbum(album *model.Album, songs []*model.Song) []*model.Song {
	pos := make(map[primitive.ObjectID]int, len(album.Songs))
	for i, id := range album.Songs {
		pos[id] = i
	}
	rank := func(s *model.Song) int {
		if i, ok := pos[s.ID]; ok {
			return i
		}
		return len(album.Songs)
	}

	out := make([]*model.Song, 0, len(songs))
	for _, song := range songs {
		if song.IsActive {
			out = append(out, song)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

// Stats 后台统计，艺人按歌曲和专辑去重
func (s *QueryService) Stats(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	var err error

	if stats.TotalSongs, err = s.songs.Count(ctx, repository.SongFilter{}); err != nil {
		return nil, err
	}
	if stats.TotalAlbums, err = s.albums.Count(ctx, repository.AlbumFilter{}); err != nil {
		return nil, err
	}
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}

	songArtists, err := s.songs.DistinctArtists(ctx)
	if err != nil {
		return nil, err
	}
	albumArtists, err := s.albums.DistinctArtists(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(songArtists)+len(albumArtists))
	for _, a := range append(songArtists, albumArtists...) {
		seen[a] = struct{}{}
	}
	stats.TotalArtists = int64(len(seen))
	return &stats, nil
}

func (s *QueryService) albumIndex(ctx context.Context, songs []*model.Song) (map[primitive.ObjectID]*model.Album, error) {
	ids := make([]primitive.ObjectID, 0, len(songs))
	seen := make(map[primitive.ObjectID]bool)
	for _, song := range songs {
		if song.AlbumID != nil && !seen[*song.AlbumID] {
			seen[*song.AlbumID] = true
			ids = append(ids, *song.AlbumID)
		}
	}
	index := make(map[primitive.ObjectID]*model.Album, len(ids))
	if len(ids) == 0 {
		return index, nil
	}

	albums, err := s.albums.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range albums {
		index[a.ID] = a
	}
	return index, nil
}

// withAlbums 批量查询专辑并附加摘要
func (s *QueryService) withAlbums(ctx context.Context, songs []*model.Song) ([]model.SongView, error) {
	albums, err := s.albumIndex(ctx, songs)
	if err != nil {
		return nil, err
	}
	views := make([]model.SongView, 0, len(songs))
	for _, song := range songs {
		view := model.SongView{Song: song}
		if song.AlbumID != nil {
			if a, ok := albums[*song.AlbumID]; ok {
				view.Album = a.Summary()
			}
		}
		views = append(views, view)
	}
	return views, nil
}
