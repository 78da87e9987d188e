package catalog

const animeQuery = `query Anime($animeId: ID!) {
  anime(id: $animeId) {
    id
    titleEn
    titleJp
    titleRomaji
    titleKanji
    startDate
    imageUrl
  }
}`

const animeBySeasonsQuery = `query AnimeBySeasons($season: String!) {
  animeBySeasons(season: $season) {
    id
    titleEn
    titleJp
    titleRomaji
    titleKanji
    startDate
    imageUrl
  }
}`

const searchTheTVDBQuery = `query searchTheTVDB($input: TheTVDBSearchInput!) {
  searchTheTVDB(input: $input) {
    id
    title
    year
    image
    translations {
      key
      value
    }
  }
}`

const episodesQuery = `query getEpisodesFromTheTVDB($thetvdbID: String!) {
  getEpisodesFromTheTVDB(thetvdbID: $thetvdbID) {
    title
    seasonNumber
    episodeNumber
    airDate
  }
}`

const saveLinkMutation = `mutation saveLink($input: SaveLinkInput!) {
  saveLink(input: $input) {
    id
    animeID
    thetvdbID
    season
  }
}`

const savedLinksQuery = `query getSavedLinks {
  getSavedLinks {
    id
    animeID
    thetvdbID
    name
    season
  }
}`

const syncLinkQuery = `query syncLink($linkId: String!) {
  syncLink(linkID: $linkId)
}`
