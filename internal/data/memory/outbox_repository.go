package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/outbox"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

type outboxRepository struct {
	store *Store
}

func (r *outboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	return r.store.do(func(st *state, f Faults) error {
		if f.CreateOutbox != nil {
			if err := f.CreateOutbox(message); err != nil {
				return err
			}
		}
		st.nextOutboxID++
		message.ID = st.nextOutboxID
		m := *message
		st.outbox = append(st.outbox, &m)
		return nil
	})
}

func (r *outboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	var out []*outbox.Message
	err := r.store.do(func(st *state, _ Faults) error {
		for _, m := range st.outbox {
			if m.Status != shared.OutboxStatusPending {
				continue
			}
			if limit > 0 && len(out) == limit {
				break
			}
			cm := *m
			out = append(out, &cm)
		}
		return nil
	})
	return out, err
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.modify(id, func(m *outbox.Message) {
		m.Status = status
	})
}

func (r *outboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.modify(id, func(m *outbox.Message) {
		m.Attempts++
	})
}

func (r *outboxRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	var found *outbox.Message
	err := r.store.do(func(st *state, _ Faults) error {
		for _, m := range st.outbox {
			if m.EventID == eventID {
				cm := *m
				found = &cm
				return nil
			}
		}
		return outbox.ErrMessageNotFound{EventID: eventID}
	})
	return found, err
}

func (r *outboxRepository) modify(id int64, apply func(m *outbox.Message)) error {
	return r.store.do(func(st *state, _ Faults) error {
		for _, m := range st.outbox {
			if m.ID == id {
				apply(m)
				now := time.Now()
				m.LastAttemptAt = &now
				return nil
			}
		}
		return outbox.ErrMessageNotFound{ID: id}
	})
}
