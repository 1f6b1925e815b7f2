package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shopspring/decimal"
)

// DefaultClusterWindow is how far apart records of one legacy split may be
const DefaultClusterWindow = time.Second

// GroupingEngine rebuilds logical splits from debt records. The expense
// reference is authoritative; records without one are clustered by creditor,
// group and timestamp proximity.
type GroupingEngine struct {
	logger *slog.Logger
	window time.Duration
}

func NewGroupingEngine(logger *slog.Logger, window time.Duration) *GroupingEngine {
	if window <= 0 {
		window = DefaultClusterWindow
	}
	return &GroupingEngine{logger: logger, window: window}
}

// GroupForUser loads every record of groupIDs and groups them. The splits
// are not narrowed to those userID takes part in; group members see the whole
// group.
func (g *GroupingEngine) GroupForUser(ctx context.Context, store Store, userID uuid.UUID, groupIDs []uuid.UUID) ([]LogicalSplit, error) {
	records, err := g.load(ctx, store, groupIDs)
	if err != nil {
		return nil, err
	}
	return g.groupFor(userID, records), nil
}

func (g *GroupingEngine) load(ctx context.Context, store Store, groupIDs []uuid.UUID) ([]*debt.DebtRecord, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	records, err := store.Debts().Find(ctx, debt.Filter{GroupIDs: groupIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to load debt records: %w", err)
	}
	return records, nil
}

func (g *GroupingEngine) groupFor(userID uuid.UUID, records []*debt.DebtRecord) []LogicalSplit {
	splits := g.Group(records)
	g.logger.Debug("Grouped debt records", "user_id", userID.String(), "records", len(records), "splits", len(splits))
	return splits
}

// Group clusters records, which must be ordered newest first. Splits come
// out in the order of their seed record.
func (g *GroupingEngine) Group(records []*debt.DebtRecord) []LogicalSplit {
	processed := make([]bool, len(records))
	var splits []LogicalSplit

	for i, seed := range records {
		if processed[i] {
			continue
		}

		var (
			members []int
			source  SplitSource
		)
		if seed.ExpenseID != nil {
			source = SourceExpenseReference
			for j := i; j < len(records); j++ {
				if !processed[j] && records[j].ExpenseID != nil && *records[j].ExpenseID == *seed.ExpenseID {
					members = append(members, j)
				}
			}
		} else {
			source = SourceTimeWindow
			for j := i; j < len(records); j++ {
				r := records[j]
				if !processed[j] && r.ExpenseID == nil && sameParty(seed, r) && g.within(seed, r) {
					members = append(members, j)
				}
			}
		}

		for _, j := range members {
			processed[j] = true
		}

		split := g.build(records, members, source)
		split.Flags = g.flags(records, members)
		if len(split.Flags) > 0 {
			g.logger.Warn("Debt records disagree with split heuristic",
				"creditor_id", split.CreditorID.String(),
				"group_id", split.GroupID.String(),
				"expense_id", expenseIDString(split.ExpenseID),
				"record_ids", split.RecordIDs,
				"flags", split.Flags,
			)
		}
		splits = append(splits, split)
	}

	return splits
}

func (g *GroupingEngine) build(records []*debt.DebtRecord, members []int, source SplitSource) LogicalSplit {
	seed := records[members[0]]
	cluster := make([]*debt.DebtRecord, 0, len(members))
	for _, j := range members {
		cluster = append(cluster, records[j])
	}

	debtors := debt.DistinctDebtors(cluster)
	perPerson := seed.Amount
	split := LogicalSplit{
		CreditorID: seed.CreditorID,
		GroupID:    seed.GroupID,
		DebtorIDs:  debtors,
		PerPerson:  perPerson,
		Total:      perPerson.Mul(decimal.NewFromInt(int64(len(debtors) + 1))),
		Timestamp:  seed.CreatedAt,
		RecordIDs:  debt.IDs(cluster),
		Source:     source,
	}
	if seed.ExpenseID != nil {
		expenseID := *seed.ExpenseID
		split.ExpenseID = &expenseID
	}
	for _, r := range cluster {
		if r.Note != "" {
			split.Note = r.Note
			break
		}
	}
	return split
}

func (g *GroupingEngine) flags(records []*debt.DebtRecord, members []int) []QualityFlag {
	seed := records[members[0]]
	var flags []QualityFlag

	for _, j := range members[1:] {
		if !records[j].Amount.Equal(seed.Amount) {
			flags = append(flags, FlagMixedAmounts)
			break
		}
	}

	if seed.ExpenseID == nil {
		return flags
	}

	for _, j := range members[1:] {
		if !g.within(seed, records[j]) {
			flags = append(flags, FlagSpreadBeyondWindow)
			break
		}
	}

	member := make(map[int]struct{}, len(members))
	for _, j := range members {
		member[j] = struct{}{}
	}
	for j, r := range records {
		if _, ok := member[j]; ok {
			continue
		}
		if sameParty(seed, r) && g.within(seed, r) {
			flags = append(flags, FlagWindowOverlap)
			break
		}
	}

	return flags
}

func (g *GroupingEngine) within(a, b *debt.DebtRecord) bool {
	d := a.CreatedAt.Sub(b.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d <= g.window
}

func sameParty(a, b *debt.DebtRecord) bool {
	return a.GroupID == b.GroupID && a.CreditorID == b.CreditorID
}

func expenseIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
