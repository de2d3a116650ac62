package model

// Genre 曲风
type Genre string

const (
	GenrePop        Genre = "pop"
	GenreRock       Genre = "rock"
	GenreHipHop     Genre = "hip-hop"
	GenreJazz       Genre = "jazz"
	GenreClassical  Genre = "classical"
	GenreElectronic Genre = "electronic"
	GenreCountry    Genre = "country"
	GenreRnB        Genre = "r&b"
	GenreIndie      Genre = "indie"
	GenreFolk       Genre = "folk"
	GenreOther      Genre = "other"
)

// GenreAll 列表查询中表示"不过滤曲风"
const GenreAll = "all"

var songGenres = map[Genre]bool{
	GenrePop: true, GenreRock: true, GenreHipHop: true, GenreJazz: true,
	GenreClassical: true, GenreElectronic: true, GenreCountry: true,
	GenreRnB: true, GenreIndie: true, GenreFolk: true, GenreOther: true,
}

// IsSongGenre 歌曲允许的曲风
func IsSongGenre(g Genre) bool {
	return songGenres[g]
}

// IsAlbumGenre 专辑允许的曲风，不含 folk
func IsAlbumGenre(g Genre) bool {
	return g != GenreFolk && songGenres[g]
}
