package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

type reportService struct {
	snapshots ports.SnapshotRepository
}

func NewReportService(snapshots ports.SnapshotRepository) ports.ReportService {
	return &reportService{
		snapshots: snapshots,
	}
}

func (s *reportService) Report(ctx context.Context, ballotID uuid.UUID) (domain.Report, error) {
	snapshot, err := s.snapshots.Load(ctx, ballotID)
	if err != nil {
		return domain.Report{}, fmt.Errorf("failed to load ballot %s: %w", ballotID, err)
	}

	b, err := domain.Restore(*snapshot)
	if err != nil {
		return domain.Report{}, fmt.Errorf("failed to restore ballot %s: %w", ballotID, err)
	}
	return domain.BuildReport(b), nil
}

// ReportAll reports every stored ballot, in the order the repository lists
// them.
func (s *reportService) ReportAll(ctx context.Context) ([]domain.Report, error) {
	ids, err := s.snapshots.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all ballots: %w", err)
	}

	reports := make([]domain.Report, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			r, err := s.Report(ctx, id)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
