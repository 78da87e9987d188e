package catalog

// Anime is an internal catalog record as returned by the API. Optional
// fields are pointers because the API omits or nulls them freely.
type Anime struct {
	ID          string  `json:"id"`
	TitleEn     *string `json:"titleEn"`
	TitleJp     *string `json:"titleJp"`
	TitleRomaji *string `json:"titleRomaji"`
	TitleKanji  *string `json:"titleKanji"`
	StartDate   *string `json:"startDate"`
	ImageURL    *string `json:"imageUrl"`
}

// TranslationTuple is a localized title of a TheTVDB series.
type TranslationTuple struct {
	Key   *string `json:"key"`
	Value *string `json:"value"`
}

// TheTVDBAnime is a TheTVDB search hit.
type TheTVDBAnime struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Year         *string             `json:"year"`
	Image        *string             `json:"image"`
	Translations []*TranslationTuple `json:"translations"`
}

// TheTVDBEpisode is one episode of a TheTVDB series.
type TheTVDBEpisode struct {
	Title         string  `json:"title"`
	SeasonNumber  int     `json:"seasonNumber"`
	EpisodeNumber int     `json:"episodeNumber"`
	AirDate       *string `json:"airDate"`
}

// SaveLinkInput is the payload of the saveLink mutation.
type SaveLinkInput struct {
	AnimeID   string `json:"animeID"`
	TheTVDBID string `json:"thetvdbID"`
	Season    int    `json:"season"`
	Name      string `json:"name"`
}

// SavedLink is a persisted anime → TheTVDB link.
type SavedLink struct {
	ID        string  `json:"id"`
	AnimeID   string  `json:"animeID"`
	TheTVDBID string  `json:"thetvdbID"`
	Name      *string `json:"name"`
	Season    int     `json:"season"`
}
