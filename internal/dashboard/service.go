package dashboard

import (
	"context"
	"fmt"

	"github.com/okabe-lab/assetdesk-backend/internal/loans"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
)

const recentLoanLimit = 10

// Summary is the aggregate snapshot rendered on the landing screen.
type Summary struct {
	Users        int64           `json:"users"`
	Items        int64           `json:"items"`
	Loans        int64           `json:"loans"`
	Locations    int64           `json:"locations"`
	PendingLoans []loans.LoanDTO `json:"pending_loans"`
}

// Service produces the dashboard summary.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}

type counter interface {
	Count(ctx context.Context) (int64, error)
}

type pendingLoanLister interface {
	Count(ctx context.Context) (int64, error)
	ListRecentRequested(ctx context.Context, limit int) ([]loans.LoanDTO, error)
}

type service struct {
	users     counter
	items     counter
	loans     pendingLoanLister
	locations counter
}

// ServiceParams bundles the repositories the dashboard reads from.
type ServiceParams struct {
	Users     counter
	Items     counter
	Loans     pendingLoanLister
	Locations counter
}

// NewService constructs the dashboard service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil || params.Items == nil || params.Loans == nil || params.Locations == nil {
		return nil, fmt.Errorf("all dashboard repositories are required")
	}
	return &service{
		users:     params.Users,
		items:     params.Items,
		loans:     params.Loans,
		locations: params.Locations,
	}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	counts := []struct {
		name string
		repo counter
		dest *int64
	}{
		{"users", s.users, &summary.Users},
		{"items", s.items, &summary.Items},
		{"loans", s.loans, &summary.Loans},
		{"locations", s.locations, &summary.Locations},
	}
	for _, c := range counts {
		n, err := c.repo.Count(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count "+c.name)
		}
		*c.dest = n
	}

	pending, err := s.loans.ListRecentRequested(ctx, recentLoanLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending loans")
	}
	summary.PendingLoans = pending
	return summary, nil
}
