package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agencydesk/internal/directory/models"
	dom "agencydesk/pkg/domain"
)

// PostgresStore serves the directory from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetContact(ctx context.Context, id dom.ContactID) (*models.Contact, error) {
	query := `
		SELECT c.id, c.first_name, c.last_name, c.title, c.email, c.phone,
		       c.agency_id, a.name, c.created_at
		FROM contacts c
		JOIN agencies a ON a.id = c.agency_id
		WHERE c.id = $1
	`
	c, err := scanContact(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, q models.ContactQuery) ([]*models.Contact, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (c.first_name ILIKE $%d OR c.last_name ILIKE $%d OR c.email ILIKE $%d)`, n, n, n)
	}
	if q.AgencyID != (dom.AgencyID{}) {
		args = append(args, q.AgencyID.String())
		where += fmt.Sprintf(` AND c.agency_id = $%d`, len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM contacts c` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	listQuery := `
		SELECT c.id, c.first_name, c.last_name, c.title, c.email, c.phone,
		       c.agency_id, a.name, c.created_at
		FROM contacts c
		JOIN agencies a ON a.id = c.agency_id` + where +
		fmt.Sprintf(` ORDER BY c.created_at DESC, c.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, total, rows.Err()
}

func (s *PostgresStore) ListAgencies(ctx context.Context, page, pageSize int) ([]*models.AgencyWithCount, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agencies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count agencies: %w", err)
	}

	query := `
		SELECT a.id, a.name, a.state, a.type, a.website, a.created_at,
		       COUNT(c.id) AS contact_count
		FROM agencies a
		LEFT JOIN contacts c ON c.agency_id = a.id
		GROUP BY a.id
		ORDER BY a.created_at DESC, a.id
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list agencies: %w", err)
	}
	defer rows.Close()

	var agencies []*models.AgencyWithCount
	for rows.Next() {
		var a models.AgencyWithCount
		var idStr string
		var state, typ, website sql.NullString
		if err := rows.Scan(&idStr, &a.Name, &state, &typ, &website, &a.CreatedAt, &a.ContactCount); err != nil {
			return nil, 0, fmt.Errorf("scan agency: %w", err)
		}
		id, err := dom.ParseAgencyID(idStr)
		if err != nil {
			return nil, 0, fmt.Errorf("parse agency id: %w", err)
		}
		a.ID = id
		a.State = state.String
		a.Type = typ.String
		a.Website = website.String
		agencies = append(agencies, &a)
	}
	return agencies, total, rows.Err()
}

func (s *PostgresStore) AllAgencies(ctx context.Context) ([]*models.AgencyRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM agencies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list agency refs: %w", err)
	}
	defer rows.Close()

	var refs []*models.AgencyRef
	for rows.Next() {
		var idStr, name string
		if err := rows.Scan(&idStr, &name); err != nil {
			return nil, fmt.Errorf("scan agency ref: %w", err)
		}
		id, err := dom.ParseAgencyID(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse agency id: %w", err)
		}
		refs = append(refs, &models.AgencyRef{ID: id, Name: name})
	}
	return refs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	var contactIDStr, agencyIDStr string
	var title, email, phone sql.NullString

	if err := row.Scan(&contactIDStr, &c.FirstName, &c.LastName, &title, &email, &phone,
		&agencyIDStr, &c.AgencyName, &c.CreatedAt); err != nil {
		return nil, err
	}

	contactID, err := dom.ParseContactID(contactIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse contact id: %w", err)
	}
	agencyID, err := dom.ParseAgencyID(agencyIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse agency id: %w", err)
	}

	c.ID = contactID
	c.AgencyID = agencyID
	c.Title = title.String
	if email.Valid {
		c.Email = &email.String
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	return &c, nil
}
