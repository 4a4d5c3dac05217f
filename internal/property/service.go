package property

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=property
type Repository interface {
	// CreateProperty stores p and the owner's membership atomically.
	CreateProperty(ctx context.Context, p *Property, ownerID uuid.UUID) error
	GetProperty(ctx context.Context, id uuid.UUID) (*Property, error)
	ListProperties(ctx context.Context, filter ListFilter) ([]*Property, error)
	UpdateProperty(ctx context.Context, p *Property) error
	DeleteProperty(ctx context.Context, id uuid.UUID) error

	GetMemberRole(ctx context.Context, propertyID, userID uuid.UUID) (Role, error)
	ListMembers(ctx context.Context, propertyID uuid.UUID) ([]*Member, error)
	UpsertMember(ctx context.Context, m *Member) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Name    string
	Address *string
}

type UpdateParams struct {
	Name    string
	Address *string
}

type ListFilter struct {
	// MemberID limits results to properties the user belongs to.
	MemberID *uuid.UUID
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, params CreateParams) (*Property, error) {
	name, address, err := cleanFields(params.Name, params.Address)
	if err != nil {
		return nil, err
	}

	p := &Property{Name: name, Address: address}
	if err := s.repo.CreateProperty(ctx, p, ownerID); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Property, error) {
	return s.repo.GetProperty(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Property, error) {
	return s.repo.ListProperties(ctx, filter)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Property, error) {
	name, address, err := cleanFields(params.Name, params.Address)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = name
	p.Address = address

	if err := s.repo.UpdateProperty(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteProperty(ctx, id)
}

// Role returns the user's role on the property, or ErrNotMember.
func (s *Service) Role(ctx context.Context, propertyID, userID uuid.UUID) (Role, error) {
	return s.repo.GetMemberRole(ctx, propertyID, userID)
}

// Authorize checks that the user holds at least min on the property and returns the role they hold.
func (s *Service) Authorize(ctx context.Context, propertyID, userID uuid.UUID, min Role) (Role, error) {
	role, err := s.repo.GetMemberRole(ctx, propertyID, userID)
	if err != nil {
		return "", err
	}

	if !role.AtLeast(min) {
		return role, fmt.Errorf("%w: %s required, have %s", ErrForbidden, min, role)
	}

	return role, nil
}

func (s *Service) Members(ctx context.Context, propertyID uuid.UUID) ([]*Member, error) {
	return s.repo.ListMembers(ctx, propertyID)
}

// SetMember grants or changes a user's role on the property.
func (s *Service) SetMember(ctx context.Context, propertyID, userID uuid.UUID, role Role) (*Member, error) {
	if role.rank() == 0 {
		return nil, ErrInvalidRole
	}

	m := &Member{PropertyID: propertyID, UserID: userID, Role: role}
	if err := s.repo.UpsertMember(ctx, m); err != nil {
		return nil, fmt.Errorf("saving member: %w", err)
	}

	return m, nil
}

// IsAccessError reports whether err is a membership or role failure.
func IsAccessError(err error) bool {
	return errors.Is(err, ErrNotMember) || errors.Is(err, ErrForbidden)
}

func cleanFields(name string, address *string) (string, *string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, ErrNameRequired
	}

	if address != nil {
		a := strings.TrimSpace(*address)
		if a == "" {
			address = nil
		} else {
			address = &a
		}
	}

	return name, address, nil
}
