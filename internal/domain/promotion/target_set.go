package promotion

import (
	"github.com/google/uuid"
)

type targetKey struct {
	targetType TargetType
	targetID   uuid.UUID
}

// TargetSet is an in-memory membership predicate over a promotion's
// target rows, built once per request. An empty set means sitewide.
type TargetSet struct {
	members map[targetKey]struct{}
}

// NewTargetSet builds a TargetSet from target rows
func NewTargetSet(targets []PromotionTarget) TargetSet {
	if len(targets) == 0 {
		return TargetSet{}
	}
	members := make(map[targetKey]struct{}, len(targets))
	for _, t := range targets {
		members[targetKey{targetType: t.TargetType, targetID: t.TargetID}] = struct{}{}
	}
	return TargetSet{members: members}
}

// IsEmpty returns true when the set has no targets (sitewide)
func (s TargetSet) IsEmpty() bool {
	return len(s.members) == 0
}

// Contains reports whether the set includes the given (type, id) pair
func (s TargetSet) Contains(targetType TargetType, id uuid.UUID) bool {
	_, ok := s.members[targetKey{targetType: targetType, targetID: id}]
	return ok
}

// MatchesLine returns true if the line's product or category is a
// member of the set. Target rows are OR-ed: matching either dimension
// is sufficient, sitewide sets match every line.
func (s TargetSet) MatchesLine(line CartLine) bool {
	if s.IsEmpty() {
		return true
	}
	return s.Contains(TargetTypeProduct, line.ProductID) ||
		s.Contains(TargetTypeCategory, line.CategoryID)
}
