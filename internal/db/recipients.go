package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"webhook-digest-service/internal/models"
)

// ErrDuplicateEmail reports an insert or update that would reuse an
// existing recipient email. Comparison is case-insensitive.
var ErrDuplicateEmail = errors.New("recipient email already exists")

func (d *DB) GetRecipients(ctx context.Context) ([]models.Recipient, error) {
	return d.queryRecipients(ctx,
		`SELECT id, email, name, active FROM recipients ORDER BY id`)
}

func (d *DB) GetActiveRecipients(ctx context.Context) ([]models.Recipient, error) {
	return d.queryRecipients(ctx,
		`SELECT id, email, name, active FROM recipients WHERE active = true ORDER BY id`)
}

func (d *DB) queryRecipients(ctx context.Context, query string) ([]models.Recipient, error) {
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipients: %w", err)
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.ID, &r.Email, &r.Name, &r.Active); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recipients: %w", err)
	}
	return recipients, nil
}

func (d *DB) AddRecipient(ctx context.Context, email, name string) (int64, error) {
	var id int64
	err := d.Pool.QueryRow(ctx,
		`INSERT INTO recipients (email, name) VALUES ($1, $2) RETURNING id`,
		email, name).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to add recipient: %w", err)
	}
	return id, nil
}

func (d *DB) UpdateRecipient(ctx context.Context, id int64, email, name string, active bool) error {
	result, err := d.Pool.Exec(ctx,
		`UPDATE recipients SET email = $1, name = $2, active = $3 WHERE id = $4`,
		email, name, active, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update recipient: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no recipient with id %d", id)
	}
	return nil
}

// DeleteRecipient removes a recipient; project access rows cascade.
func (d *DB) DeleteRecipient(ctx context.Context, id int64) error {
	if _, err := d.Pool.Exec(ctx, `DELETE FROM recipients WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete recipient: %w", err)
	}
	return nil
}

func (d *DB) GetRecipientProjects(ctx context.Context, recipientID int64) ([]models.RecipientProject, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT recipient_id, project_id, project_name
		 FROM recipient_projects WHERE recipient_id = $1 ORDER BY project_name`,
		recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient projects: %w", err)
	}
	defer rows.Close()

	var projects []models.RecipientProject
	for rows.Next() {
		var p models.RecipientProject
		if err := rows.Scan(&p.RecipientID, &p.ProjectID, &p.ProjectName); err != nil {
			return nil, fmt.Errorf("failed to scan recipient project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recipient projects: %w", err)
	}
	return projects, nil
}

func (d *DB) AddRecipientProject(ctx context.Context, recipientID int64, projectID, projectName string) error {
	_, err := d.Pool.Exec(ctx,
		`INSERT INTO recipient_projects (recipient_id, project_id, project_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (recipient_id, project_id) DO NOTHING`,
		recipientID, projectID, projectName)
	if err != nil {
		return fmt.Errorf("failed to add recipient project: %w", err)
	}
	return nil
}

func (d *DB) RemoveRecipientProject(ctx context.Context, recipientID int64, projectID string) error {
	_, err := d.Pool.Exec(ctx,
		`DELETE FROM recipient_projects WHERE recipient_id = $1 AND project_id = $2`,
		recipientID, projectID)
	if err != nil {
		return fmt.Errorf("failed to remove recipient project: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
