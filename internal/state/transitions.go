package state

// Flow names a fixed multi-step conversation.
type Flow string

const (
	FlowAddTitle   Flow = "add-title"
	FlowAddEpisode Flow = "add-episode"
	FlowBroadcast  Flow = "broadcast"
	FlowManageUser Flow = "manage-user"
	FlowSetBalance Flow = "set-balance"
	FlowSearch     Flow = "search"
)

// Flows lists the ordered steps of every flow. The last step is terminal.
var Flows = map[Flow][]State{
	FlowAddTitle: {
		StateAnimeName,
		StateAnimeEpisodes,
		StateAnimeCountry,
		StateAnimeLanguage,
		StateAnimeYear,
		StateAnimeGenre,
		StateAnimeDub,
		StateAnimeMedia,
	},
	FlowAddEpisode: {StateEpisodeWaitID, StateEpisodeWaitMedia},
	FlowBroadcast:  {StateBroadcastContent},
	FlowManageUser: {StateManageTarget},
	FlowSetBalance: {StateManageBalance},
	FlowSearch:     {StateSearchQuery},
}

// validTransitions is derived from Flows: each step may advance to the next step of its flow.
var validTransitions = buildTransitions()

func buildTransitions() map[State][]State {
	transitions := make(map[State][]State)
	for _, steps := range Flows {
		transitions[StateIdle] = append(transitions[StateIdle], steps[0])
		for i := 0; i+1 < len(steps); i++ {
			transitions[steps[i]] = append(transitions[steps[i]], steps[i+1])
		}
	}
	return transitions
}

// FirstStep returns the entry step of flow.
func FirstStep(flow Flow) State {
	steps := Flows[flow]
	if len(steps) == 0 {
		return StateIdle
	}
	return steps[0]
}

// NextStep returns the step following current within its flow, and false when current is terminal.
func NextStep(current State) (State, bool) {
	for _, steps := range Flows {
		for i, step := range steps {
			if step != current {
				continue
			}
			if i+1 < len(steps) {
				return steps[i+1], true
			}
			return StateIdle, false
		}
	}
	return StateIdle, false
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
// Returning to idle is always allowed, that is how cancel works.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle {
		return true
	}

	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}

	return false
}
