package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/opentender/sealed-tender-backend/internal/domain/tender"
)

// TenderRepository mock
type TenderRepository struct {
	mock.Mock
}

func (m *TenderRepository) Create(ctx context.Context, t *tender.Tender) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *TenderRepository) GetByID(ctx context.Context, id uuid.UUID) (*tender.Tender, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tender.Tender), args.Error(1)
}

func (m *TenderRepository) List(ctx context.Context) ([]*tender.Tender, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tender.Tender), args.Error(1)
}

func (m *TenderRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(*tender.Tender) error) (*tender.Tender, error) {
	args := m.Called(ctx, id, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tender.Tender), args.Error(1)
}
