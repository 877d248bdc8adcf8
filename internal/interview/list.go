package interview

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jonathan/interview-assistant/internal/types"
)

// SortKey orders the dashboard candidate list.
type SortKey string

const (
	// SortByScore lists the highest final score first; unscored candidates go last
	SortByScore SortKey = "score"
	// SortByName lists alphabetically, case-insensitive
	SortByName SortKey = "name"
	// SortByDate lists the newest candidate first
	SortByDate SortKey = "date"
)

// ParseSortKey validates a sort key. Empty means SortByDate.
func ParseSortKey(v string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(v))); k {
	case "":
		return SortByDate, nil
	case SortByScore, SortByName, SortByDate:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want score, name or date)", v)
	}
}

// Candidates lists candidates in the requested order.
func (s *Service) Candidates(ctx context.Context, key SortKey) []*types.Candidate {
	list := s.store.List(ctx)
	SortCandidates(list, key)
	return list
}

// SortCandidates sorts list in place. Ties keep insertion order.
func SortCandidates(list []*types.Candidate, key SortKey) {
	switch key {
	case SortByScore:
		slices.SortStableFunc(list, func(a, b *types.Candidate) int {
			switch {
			case a.FinalScore == nil && b.FinalScore == nil:
				return 0
			case a.FinalScore == nil:
				return 1
			case b.FinalScore == nil:
				return -1
			}
			return cmp.Compare(*b.FinalScore, *a.FinalScore)
		})
	case SortByName:
		slices.SortStableFunc(list, func(a, b *types.Candidate) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	default:
		slices.SortStableFunc(list, func(a, b *types.Candidate) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}
