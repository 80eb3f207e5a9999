package client

// QueryEventSets lists an event's sets, most recent first
const QueryEventSets = `
query EventSets($eventId: ID!, $page: Int!, $perPage: Int!) {
  event(id: $eventId) {
    id
    name
    sets(page: $page, perPage: $perPage, sortType: RECENT) {
      pageInfo {
        total
      }
      nodes {
        id
        completedAt
        winnerId
        state
        event { id }
        slots {
          id
          standing {
            entrant {
              id
              name
              participants {
                player {
                  id
                  prefix
                  gamerTag
                }
              }
            }
            stats {
              score {
                value
              }
            }
          }
        }
      }
    }
  }
}
`

// tournamentFields is the selection shared by both tournament searches
const tournamentFields = `
    pageInfo {
      total
    }
    nodes {
      id
      name
      city
      slug
      addrState
      endAt
      events {
        id
        name
        slug
        videogame {
          id
        }
        sets(page: 1, perPage: 1) {
          pageInfo {
            total
          }
        }
      }
    }
`

// QueryTournamentsByLocation searches tournaments near a point, filtered by game and name
const QueryTournamentsByLocation = `
query TournamentsSearch($perPage: Int, $page: Int, $coordinates: String!, $radius: String!, $game: ID!, $name: String!) {
  tournaments(
    query: {perPage: $perPage, filter: {location: {distanceFrom: $coordinates, distance: $radius}, videogameIds: [$game], name: $name}, page: $page}
  ) {` + tournamentFields + `  }
}
`

// QueryTournamentsByOwner searches tournaments organised by one owner, filtered by game
const QueryTournamentsByOwner = `
query TournamentsByOwner($perPage: Int, $page: Int, $game: ID!, $ownerId: ID!) {
  tournaments(
    query: {perPage: $perPage, filter: {videogameIds: [$game], ownerId: $ownerId}, page: $page}
  ) {` + tournamentFields + `  }
}
`

// QueryEventBySlug resolves an event slug to its id
const QueryEventBySlug = `
query EventBySlug($slug: String) {
  event(slug: $slug) {
    id
    name
  }
}
`
