package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/propledger/internal/property"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(s scanner) (*property.Property, error) {
	var p property.Property
	if err := s.Scan(&p.ID, &p.Name, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	return &p, nil
}

const selectPropertyColumns = `p.id, p.name, p.address, p.created_at, p.updated_at`

func (s *Store) CreateProperty(ctx context.Context, p *property.Property, ownerID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO properties (name, address, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`, p.Name, p.Address).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating property: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO property_members (property_id, user_id, role, created_at)
		VALUES ($1, $2, $3, NOW())
	`, p.ID, ownerID, property.RoleOwner)
	if err != nil {
		return fmt.Errorf("creating owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing property: %w", err)
	}

	return nil
}

func (s *Store) GetProperty(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	query := `SELECT ` + selectPropertyColumns + ` FROM properties p WHERE p.id = $1`

	p, err := scanProperty(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, property.ErrNotFound
		}

		return nil, fmt.Errorf("getting property: %w", err)
	}

	return p, nil
}

func (s *Store) ListProperties(ctx context.Context, filter property.ListFilter) ([]*property.Property, error) {
	query := `SELECT ` + selectPropertyColumns + ` FROM properties p`

	var args []any

	if filter.MemberID != nil {
		query += ` JOIN property_members m ON m.property_id = p.id WHERE m.user_id = $1`

		args = append(args, *filter.MemberID)
	}

	query += ` ORDER BY p.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer rows.Close()

	var props []*property.Property

	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}

		props = append(props, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}

	return props, nil
}

func (s *Store) UpdateProperty(ctx context.Context, p *property.Property) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE properties SET name = $1, address = $2, updated_at = NOW()
		WHERE id = $3
	`, p.Name, p.Address, p.ID)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}

	return requireAffected(res)
}

// DeleteProperty removes the property; memberships and transactions go with it via ON DELETE CASCADE.
func (s *Store) DeleteProperty(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}

	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return property.ErrNotFound
	}

	return nil
}

func (s *Store) GetMemberRole(ctx context.Context, propertyID, userID uuid.UUID) (property.Role, error) {
	var role string

	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM property_members
		WHERE property_id = $1 AND user_id = $2
	`, propertyID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", property.ErrNotMember
		}

		return "", fmt.Errorf("getting member role: %w", err)
	}

	return property.Role(role), nil
}

func (s *Store) ListMembers(ctx context.Context, propertyID uuid.UUID) ([]*property.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT property_id, user_id, role, created_at
		FROM property_members
		WHERE property_id = $1
		ORDER BY created_at
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []*property.Member

	for rows.Next() {
		var (
			m    property.Member
			role string
		)

		if err := rows.Scan(&m.PropertyID, &m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}

		m.Role = property.Role(role)
		members = append(members, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}

	return members, nil
}

func (s *Store) UpsertMember(ctx context.Context, m *property.Member) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO property_members (property_id, user_id, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (property_id, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING created_at
	`, m.PropertyID, m.UserID, m.Role).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting member: %w", err)
	}

	return nil
}
