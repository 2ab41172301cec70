package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

const requestColumns = `id, first_name, last_name, email, phone, service_type, description, amount, address, date_of_birth, status, notes, created_at, updated_at`

type requestRepository struct {
	db *sqlx.DB
}

func NewRequestRepository(db *sqlx.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, request *domain.ConsultingRequest) error {
	query := `
		INSERT INTO consulting_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.FirstName,
		request.LastName,
		request.Email,
		request.Phone,
		request.ServiceType,
		request.Description,
		request.Amount,
		request.Address,
		request.DateOfBirth,
		request.Status,
		request.Notes,
		request.CreatedAt,
		request.UpdatedAt,
	)

	return err
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ConsultingRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consulting_requests
		WHERE id = $1
	`

	var request domain.ConsultingRequest
	err := r.db.GetContext(ctx, &request, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapRequestNotFound(id.String())
	}
	if err != nil {
		return nil, err
	}

	return &request, nil
}

func (r *requestRepository) GetAll(ctx context.Context) ([]*domain.ConsultingRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consulting_requests
		ORDER BY created_at DESC
	`

	var requests []*domain.ConsultingRequest
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *requestRepository) GetByStatus(ctx context.Context, status string) ([]*domain.ConsultingRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consulting_requests
		WHERE status = $1
		ORDER BY created_at DESC
	`

	var requests []*domain.ConsultingRequest
	if err := r.db.SelectContext(ctx, &requests, query, status); err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *requestRepository) Update(ctx context.Context, id uuid.UUID, patch domain.UpdateRequestPatch) error {
	sets := []string{"updated_at = $2"}
	args := []interface{}{id, time.Now()}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}

	query := `
		UPDATE consulting_requests
		SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return customError.WrapRequestNotFound(id.String())
	}
	return nil
}

func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE request_id = $1`, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM consulting_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return customError.WrapRequestNotFound(id.String())
	}

	return tx.Commit()
}

func (r *requestRepository) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status string) error {
	query := `
		UPDATE consulting_requests
		SET status = $2, updated_at = $3
		WHERE id = ANY($1)
	`

	_, err := r.db.ExecContext(ctx, query, pq.Array(ids), status, time.Now())
	return err
}

func (r *requestRepository) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE request_id = ANY($1)`, pq.Array(ids)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM consulting_requests WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *requestRepository) FlagStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE consulting_requests
		SET status = $1, updated_at = $2
		WHERE status = $3 AND created_at < $4
		RETURNING id
	`

	rows, err := r.db.QueryxContext(ctx, query, domain.RequestStatusStale, time.Now(), domain.RequestStatusNew, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
