package model

// Stats 管理后台统计
type Stats struct {
	TotalSongs   int64 `json:"totalSongs"`
	TotalAlbums  int64 `json:"totalAlbums"`
	TotalUsers   int64 `json:"totalUsers"`
	TotalArtists int64 `json:"totalArtists"`
}
