package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Balance is a user's net position: owed to them minus what they owe
type Balance struct {
	UserID uuid.UUID       `json:"user_id"`
	Owed   decimal.Decimal `json:"owed"`
	Owing  decimal.Decimal `json:"owing"`
	Net    decimal.Decimal `json:"net"`
}

// Rounded returns the balance at currency precision
func (b Balance) Rounded() Balance {
	return Balance{
		UserID: b.UserID,
		Owed:   shared.RoundCurrency(b.Owed),
		Owing:  shared.RoundCurrency(b.Owing),
		Net:    shared.RoundCurrency(b.Net),
	}
}

// GroupBalance is a Balance restricted to one group
type GroupBalance struct {
	GroupID uuid.UUID `json:"group_id"`
	Balance
}

// Calculate sums what records say userID is owed and owes
func Calculate(userID uuid.UUID, records []*debt.DebtRecord) Balance {
	b := Balance{UserID: userID, Owed: decimal.Zero, Owing: decimal.Zero}
	for _, r := range records {
		if r.CreditorID == userID {
			b.Owed = b.Owed.Add(r.Amount)
		}
		if r.DebtorID == userID {
			b.Owing = b.Owing.Add(r.Amount)
		}
	}
	b.Net = b.Owed.Sub(b.Owing)
	return b
}

// CalculateByGroup breaks the balance of userID down per group, ordered by
// group id. Groups the user takes no part in are left out.
func CalculateByGroup(userID uuid.UUID, records []*debt.DebtRecord) []GroupBalance {
	byGroup := make(map[uuid.UUID][]*debt.DebtRecord)
	for _, r := range records {
		if r.Involves(userID) {
			byGroup[r.GroupID] = append(byGroup[r.GroupID], r)
		}
	}

	groups := make([]GroupBalance, 0, len(byGroup))
	for groupID, rs := range byGroup {
		groups = append(groups, GroupBalance{GroupID: groupID, Balance: Calculate(userID, rs)})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].GroupID.String() < groups[j].GroupID.String()
	})
	return groups
}
