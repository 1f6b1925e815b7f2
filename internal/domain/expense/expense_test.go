package expense

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExpense(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		userID := uuid.New()
		amount := decimal.RequireFromString("42.50")

		beforeCreation := time.Now()
		exp, err := NewExpense(userID, amount, false, CategoryFood, "lunch", map[string]any{"place": "cafe"})
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, exp)
		assert.NotEqual(t, uuid.Nil, exp.ID)
		assert.Equal(t, userID, exp.UserID)
		assert.True(t, amount.Equal(exp.Amount))
		assert.Equal(t, 1, exp.Version, "Initial version should be 1")
		assert.Nil(t, exp.GroupID)
		assert.WithinDuration(t, beforeCreation, exp.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)
	})

	t.Run("Rejects", func(t *testing.T) {
		cases := []struct {
			name     string
			userID   uuid.UUID
			amount   decimal.Decimal
			category Category
		}{
			{"missing owner", uuid.Nil, decimal.NewFromInt(1), CategoryFood},
			{"zero amount", uuid.New(), decimal.Zero, CategoryFood},
			{"negative amount", uuid.New(), decimal.NewFromInt(-5), CategoryFood},
			{"unknown category", uuid.New(), decimal.NewFromInt(1), Category("Gadgets")},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				exp, err := NewExpense(tc.userID, tc.amount, false, tc.category, "", nil)
				assert.Nil(t, exp)
				assert.True(t, shared.IsValidation(err))
			})
		}
	})
}

func TestExpense_SignedAmount(t *testing.T) {
	exp := &Expense{Amount: decimal.NewFromInt(30)}
	assert.True(t, exp.SignedAmount().Equal(decimal.NewFromInt(-30)))

	exp.Credit = true
	assert.True(t, exp.SignedAmount().Equal(decimal.NewFromInt(30)))
}

func TestChanges_Validate(t *testing.T) {
	amount := decimal.NewFromInt(10)
	negative := decimal.NewFromInt(-1)
	settlement := CategorySettlement
	groupID := uuid.New()

	assert.Error(t, Changes{}.Validate(), "empty changes are rejected")
	assert.NoError(t, Changes{Amount: &amount}.Validate())
	assert.Error(t, Changes{Amount: &negative}.Validate())
	assert.Error(t, Changes{Category: &settlement}.Validate())
	assert.Error(t, Changes{GroupID: &groupID}.Validate(), "group without participants")
	assert.NoError(t, Changes{GroupID: &groupID, ParticipantIDs: []uuid.UUID{uuid.New()}}.Validate())
}

func TestExpense_Apply(t *testing.T) {
	t.Run("AmountAndNote", func(t *testing.T) {
		exp := &Expense{Amount: decimal.NewFromInt(10), Note: "old", Version: 3}
		amount := decimal.NewFromInt(20)
		note := "new"
		changes := Changes{Amount: &amount, Note: &note}

		assert.True(t, changes.AmountChanged(exp.Amount))
		assert.True(t, changes.NoteChanged(exp.Note))

		exp.Apply(changes)

		assert.True(t, amount.Equal(exp.Amount))
		assert.Equal(t, "new", exp.Note)
		assert.Equal(t, 4, exp.Version)
	})

	t.Run("EmptyParticipantsClearGroup", func(t *testing.T) {
		groupID := uuid.New()
		exp := &Expense{GroupID: &groupID}
		exp.Apply(Changes{ParticipantIDs: []uuid.UUID{}})
		assert.Nil(t, exp.GroupID)
	})

	t.Run("NewGroupWithParticipants", func(t *testing.T) {
		oldGroup, newGroup := uuid.New(), uuid.New()
		exp := &Expense{GroupID: &oldGroup}
		exp.Apply(Changes{ParticipantIDs: []uuid.UUID{uuid.New()}, GroupID: &newGroup})
		require.NotNil(t, exp.GroupID)
		assert.Equal(t, newGroup, *exp.GroupID)
	})

	t.Run("UnchangedValues", func(t *testing.T) {
		amount := decimal.RequireFromString("10.00")
		note := "same"
		changes := Changes{Amount: &amount, Note: &note}
		assert.False(t, changes.AmountChanged(decimal.NewFromInt(10)))
		assert.False(t, changes.NoteChanged("same"))
	})
}

func TestErrExpenseNotFound(t *testing.T) {
	err := ErrExpenseNotFound{ExpenseID: uuid.New()}
	assert.True(t, shared.IsNotFound(err))
	assert.Contains(t, err.Error(), "expense not found")
}
