// Package rank computes standings from a session's captured results.
package rank

import (
	"sort"

	"github.com/skyminlab/running-game/internal/model"
)

// Entry is one row of a ranking. Rank is 1-based with strict sequential
// numbering; ties are not shared.
type Entry struct {
	ParticipantID string       `json:"participantId" bson:"participantId"`
	Name          string       `json:"name" bson:"name"`
	Result        model.Result `json:"result" bson:"result"`
	Rank          int          `json:"rank" bson:"rank"`
}

// Rank orders participants holding a terminal result for the given game type.
// The sprint game sorts ascending by time, the endurance game descending by
// distance. The sort is stable: equal keys keep roster insertion order, which
// is the tie-break rule.
func Rank(sess *model.Session, game model.GameType) []Entry {
	if sess == nil {
		return nil
	}

	var entries []Entry
	for _, p := range sess.Students {
		res, ok := p.Results[game]
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			ParticipantID: p.ID,
			Name:          p.Name,
			Result:        res,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if game == model.GameSprint {
			return entries[i].Result.Time < entries[j].Result.Time
		}
		return entries[i].Result.Distance > entries[j].Result.Distance
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
