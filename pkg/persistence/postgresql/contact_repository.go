package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/google/uuid"
)

// ContactRepository handles contact list and contact database operations.
type ContactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewContactRepository creates a new contact repository.
func NewContactRepository(db *sql.DB, logger *slog.Logger) *ContactRepository {
	return &ContactRepository{db: db, logger: logger}
}

// SaveList upserts a contact list.
func (r *ContactRepository) SaveList(ctx context.Context, list *models.ContactList) error {
	if list.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate contact list ID: %w", err)
		}

		list.ID = id.String()
	}

	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO contact_lists (id, owner_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`

	_, err := r.db.ExecContext(ctx, query, list.ID, list.OwnerID, list.Name, list.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save contact list: %w", err)
	}

	return nil
}

// GetList returns a contact list by its ID.
func (r *ContactRepository) GetList(ctx context.Context, id string) (*models.ContactList, error) {
	query := `
		SELECT
			id
		  , owner_id
		  , name
		  , created_at
		FROM contact_lists
		WHERE id = $1
	`

	list := &models.ContactList{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(&list.ID, &list.OwnerID, &list.Name, &list.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrContactListNotFound
		}

		return nil, fmt.Errorf("failed to scan contact list: %w", err)
	}

	return list, nil
}

// SaveContact upserts a contact.
func (r *ContactRepository) SaveContact(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate contact ID: %w", err)
		}

		contact.ID = id.String()
	}

	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now().UTC()
	}

	customDataJSON, err := json.Marshal(contact.CustomData)
	if err != nil {
		return fmt.Errorf("failed to marshal custom data: %w", err)
	}

	query := `
		INSERT INTO contacts (id, contact_list_id, phone, first_name, full_name, custom_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			phone = EXCLUDED.phone,
			first_name = EXCLUDED.first_name,
			full_name = EXCLUDED.full_name,
			custom_data = EXCLUDED.custom_data
	`

	_, err = r.db.ExecContext(ctx, query,
		contact.ID, contact.ContactListID, contact.Phone,
		nullableString(contact.FirstName), nullableString(contact.FullName),
		customDataJSON, contact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	return nil
}

// ListByContactList returns every contact of a list, insertion order.
func (r *ContactRepository) ListByContactList(ctx context.Context, contactListID string) ([]*models.Contact, error) {
	query := `
		SELECT
			id
		  , contact_list_id
		  , phone
		  , first_name
		  , full_name
		  , custom_data
		  , created_at
		FROM contacts
		WHERE contact_list_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, contactListID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}

	defer func() {
		closeErr := rows.Close()
		if closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	contacts := make([]*models.Contact, 0)

	for rows.Next() {
		contact := &models.Contact{}

		var firstName, fullName sql.NullString

		var customDataJSON []byte

		err = rows.Scan(
			&contact.ID, &contact.ContactListID, &contact.Phone,
			&firstName, &fullName, &customDataJSON, &contact.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}

		contact.FirstName = firstName.String
		contact.FullName = fullName.String

		if len(customDataJSON) > 0 {
			err = json.Unmarshal(customDataJSON, &contact.CustomData)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal custom data: %w", err)
			}
		}

		contacts = append(contacts, contact)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}

	return contacts, nil
}
