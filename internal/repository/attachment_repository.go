package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/swissconsulthub/intake-engine/internal/domain"
)

type attachmentRepository struct {
	db *sqlx.DB
}

func NewAttachmentRepository(db *sqlx.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	query := `
		INSERT INTO attachments (id, request_id, name, mime_type, size, url, path, document_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		attachment.ID,
		attachment.RequestID,
		attachment.Name,
		attachment.MimeType,
		attachment.Size,
		attachment.URL,
		attachment.Path,
		attachment.DocumentType,
		attachment.UploadedAt,
	)

	return err
}

func (r *attachmentRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) ([]*domain.Attachment, error) {
	query := `
		SELECT id, request_id, name, mime_type, size, url, path, document_type, uploaded_at
		FROM attachments
		WHERE request_id = $1
		ORDER BY uploaded_at
	`

	var attachments []*domain.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, requestID); err != nil {
		return nil, err
	}

	return attachments, nil
}

func (r *attachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM attachments WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
