package directory

import (
	"slices"
	"strings"

	"github.com/dukerupert/welfare/internal/model"
)

// Filter returns the members whose EPF number, welfare number or name contains
// q, ignoring case, in their original order. An empty q returns members as is.
// The input slice is never modified.
func Filter(members []model.Member, q string) []model.Member {
	if q == "" {
		return members
	}
	needle := strings.ToLower(q)
	out := make([]model.Member, 0, len(members))
	for _, m := range members {
		if matches(m, needle) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m model.Member, needle string) bool {
	return strings.Contains(strings.ToLower(m.EPF.String()), needle) ||
		strings.Contains(strings.ToLower(m.WelfareNo.String()), needle) ||
		strings.Contains(strings.ToLower(m.Name), needle)
}

// SortByWelfareNo returns a copy of members ordered ascending by numeric
// welfare number. Members without a numeric welfare number sort after all
// numeric ones. Equal keys keep the order the backend sent.
func SortByWelfareNo(members []model.Member) []model.Member {
	out := slices.Clone(members)
	slices.SortStableFunc(out, func(a, b model.Member) int {
		an, aok := a.WelfareNo.Number()
		bn, bok := b.WelfareNo.Number()
		switch {
		case aok && bok:
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
			return 0
		case aok:
			return -1
		case bok:
			return 1
		}
		return 0
	})
	return out
}
