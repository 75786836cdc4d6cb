// Package state keeps the per-user conversation step and the fields
// collected by multi-step flows.
package state

import (
	"strconv"
	"time"
)

// State is a step of a multi-step conversation flow.
type State string

const (
	// StateIdle means the user has no pending step.
	StateIdle State = "idle"

	StateAnimeName     State = "anime-name"
	StateAnimeEpisodes State = "anime-episodes"
	StateAnimeCountry  State = "anime-country"
	StateAnimeLanguage State = "anime-language"
	StateAnimeYear     State = "anime-year"
	StateAnimeGenre    State = "anime-genre"
	StateAnimeDub      State = "anime-dub"
	StateAnimeMedia    State = "anime-media"

	StateEpisodeWaitID    State = "episode-wait-id"
	StateEpisodeWaitMedia State = "episode-wait-media"

	StateBroadcastContent State = "broadcast-wait-content"

	StateManageTarget  State = "manage-wait-target"
	StateManageBalance State = "manage-wait-balance"

	StateSearchQuery State = "search-wait-query"
)

// Keys of values collected across the steps of a flow.
const (
	FieldName     = "name"
	FieldEpisodes = "episodes"
	FieldCountry  = "country"
	FieldLanguage = "language"
	FieldYear     = "year"
	FieldGenre    = "genre"
	FieldDub      = "dub"
	FieldTitleID  = "title_id"
	FieldTargetID = "target_id"
)

// UserState is the pending step of a user together with the values collected so far.
type UserState struct {
	UserID       int64             `json:"user_id"`
	CurrentState State             `json:"current_state"`
	Fields       map[string]string `json:"fields,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Field returns the collected value for key, or an empty string.
func (s *UserState) Field(key string) string {
	if s == nil || s.Fields == nil {
		return ""
	}
	return s.Fields[key]
}

// Int64Field parses the collected value for key.
func (s *UserState) Int64Field(key string) (int64, error) {
	return strconv.ParseInt(s.Field(key), 10, 64)
}

// IntField parses the collected value for key.
func (s *UserState) IntField(key string) (int, error) {
	return strconv.Atoi(s.Field(key))
}

func mergeFields(base, partial map[string]string) map[string]string {
	if len(base) == 0 && len(partial) == 0 {
		return nil
	}

	merged := make(map[string]string, len(base)+len(partial))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}
