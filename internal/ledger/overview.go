package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Overview is what a user sees for a set of groups: who owes whom, and
// where the user stands overall and per group.
type Overview struct {
	Splits  []LogicalSplit `json:"splits"`
	Balance Balance        `json:"balance"`
	Groups  []GroupBalance `json:"groups"`
}

// Overview reads the records of groupIDs once and derives the splits of
// GroupForUser and the balances from the same set.
func (g *GroupingEngine) Overview(ctx context.Context, store Store, userID uuid.UUID, groupIDs []uuid.UUID) (*Overview, error) {
	records, err := g.load(ctx, store, groupIDs)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Splits:  g.groupFor(userID, records),
		Balance: Calculate(userID, records),
		Groups:  CalculateByGroup(userID, records),
	}, nil
}
