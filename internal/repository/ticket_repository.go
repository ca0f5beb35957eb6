package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Create and Update apply
// the ticket write and the workload deltas as one atomic unit.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, deltas []WorkloadDelta) error
	Update(ctx context.Context, ticket *domain.Ticket, expectedVersion int, deltas []WorkloadDelta) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	ListByStatus(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error)
	ListTicketIDs(ctx context.Context) ([]string, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_id, title, description, category, priority, status, created_by,
               COALESCE(assigned_to, ''), created_at, updated_at, resolved_at, closed_at, completed_at,
               COALESCE(resolved_by, ''), sla_deadline, version, timeline, transfer_history, reopen_count,
               COALESCE(idempotency_key, ''), contact, github, feedback, rating, feedback_submitted_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, deltas []WorkloadDelta) error {
	const query = `
        INSERT INTO tickets (id, ticket_id, title, description, category, priority, status, created_by,
            assigned_to, created_at, updated_at, sla_deadline, version, timeline, transfer_history,
            reopen_count, idempotency_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,$12,$13,$14,$15,$16,NULLIF($17,''))`

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, query,
		ticket.ID,
		ticket.TicketID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.SLADeadline,
		ticket.Version,
		timelineValue(ticket.Timeline),
		transfersValue(ticket.TransferHistory),
		ticket.ReopenCount,
		ticket.IdempotencyKey,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if err := applyWorkload(ctx, tx, deltas); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, expectedVersion int, deltas []WorkloadDelta) error {
	const query = `
        UPDATE tickets SET status=$1, assigned_to=NULLIF($2,''), updated_at=$3, resolved_at=$4, closed_at=$5,
            completed_at=$6, resolved_by=NULLIF($7,''), version=$8, timeline=$9, transfer_history=$10,
            reopen_count=$11, contact=$12, github=$13, feedback=$14, rating=$15, feedback_submitted_at=$16
        WHERE id=$17 AND version=$18`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, query,
		ticket.Status,
		ticket.AssignedTo,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.CompletedAt,
		ticket.ResolvedBy,
		ticket.Version,
		timelineValue(ticket.Timeline),
		transfersValue(ticket.TransferHistory),
		ticket.ReopenCount,
		ticket.Contact,
		ticket.Github,
		ticket.Feedback,
		ticket.Rating,
		ticket.FeedbackSubmittedAt,
		ticket.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	if err := applyWorkload(ctx, tx, deltas); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func applyWorkload(ctx context.Context, tx pgx.Tx, deltas []WorkloadDelta) error {
	const query = `
        UPDATE users SET active_tickets=GREATEST(active_tickets + $1, 0), total_resolved=GREATEST(total_resolved + $2, 0),
            updated_at=NOW()
        WHERE id=$3`
	for _, d := range MergeDeltas(deltas) {
		if _, err := tx.Exec(ctx, query, d.Active, d.Resolved, d.UserID); err != nil {
			return fmt.Errorf("apply workload for %s: %w", d.UserID, err)
		}
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE idempotency_key=$1`, key)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(`(LOWER(title) LIKE %s OR LOWER(description) LIKE %s
            OR EXISTS (SELECT 1 FROM jsonb_array_elements(timeline) e WHERE LOWER(e->>'comment') LIKE %s))`, p, p, p))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) ListByStatus(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status = ANY($1) ORDER BY sla_deadline ASC`
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListTicketIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT ticket_id FROM tickets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CompletedAt,
		&ticket.ResolvedBy,
		&ticket.SLADeadline,
		&ticket.Version,
		&ticket.Timeline,
		&ticket.TransferHistory,
		&ticket.ReopenCount,
		&ticket.IdempotencyKey,
		&ticket.Contact,
		&ticket.Github,
		&ticket.Feedback,
		&ticket.Rating,
		&ticket.FeedbackSubmittedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// JSONB columns are NOT NULL; never hand pgx a nil slice.
func timelineValue(t domain.Timeline) domain.Timeline {
	if t == nil {
		return domain.Timeline{}
	}
	return t
}

func transfersValue(t []domain.TransferRecord) []domain.TransferRecord {
	if t == nil {
		return []domain.TransferRecord{}
	}
	return t
}
