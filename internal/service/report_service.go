package service

import (
	"context"
	"sort"

	"gopkg.in/guregu/null.v4"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

// ReportService projects reservation history into per-lot and per-user
// statistics. Admins see every entity; other callers only their own bookings.
type ReportService struct {
	reports repository.ReportRepository
}

func NewReportService(reports repository.ReportRepository) *ReportService {
	return &ReportService{reports: reports}
}

func scopeFor(p domain.Principal) domain.ReportFilter {
	if p.IsAdmin {
		return domain.ReportFilter{}
	}
	return domain.ReportFilter{UserID: null.IntFrom(int64(p.UserID))}
}

// monthSlot maps a 1-12 month to its array index; anything else is skipped.
func monthSlot(month null.Int) (int, bool) {
	if !month.Valid || month.Int64 < 1 || month.Int64 > 12 {
		return 0, false
	}
	return int(month.Int64 - 1), true
}

type projection struct {
	id        int
	name      string
	active    int
	completed int
	monthly   [12]float64
}

func project(counts []domain.BookingCountRow, amounts []domain.MonthlyAmountRow) []*projection {
	byID := make(map[int]*projection)
	get := func(id int, name string) *projection {
		if pr, ok := byID[id]; ok {
			return pr
		}
		pr := &projection{id: id, name: name}
		byID[id] = pr
		return pr
	}
	for _, row := range counts {
		pr := get(row.EntityID, row.Name)
		pr.active += row.Active
		pr.completed += row.Completed
	}
	for _, row := range amounts {
		slot, ok := monthSlot(row.Month)
		if !ok {
			continue
		}
		get(row.EntityID, row.Name).monthly[slot] += row.Amount
	}

	out := make([]*projection, 0, len(byID))
	for _, pr := range byID {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].id < out[j].id
	})
	return out
}

func (s *ReportService) LotStats(ctx context.Context, p domain.Principal) ([]domain.LotStats, error) {
	f := scopeFor(p)
	counts, err := s.reports.LotBookingCounts(ctx, f)
	if err != nil {
		return nil, storeError("ReportService.LotStats", err)
	}
	revenue, err := s.reports.LotMonthlyRevenue(ctx, f)
	if err != nil {
		return nil, storeError("ReportService.LotStats", err)
	}

	projected := project(counts, revenue)
	stats := make([]domain.LotStats, 0, len(projected))
	for _, pr := range projected {
		stats = append(stats, domain.LotStats{
			LotID:          pr.id,
			LotName:        pr.name,
			Active:         pr.active,
			Completed:      pr.completed,
			MonthlyRevenue: pr.monthly,
		})
	}
	return stats, nil
}

func (s *ReportService) UserStats(ctx context.Context, p domain.Principal) ([]domain.UserStats, error) {
	f := scopeFor(p)
	counts, err := s.reports.UserBookingCounts(ctx, f)
	if err != nil {
		return nil, storeError("ReportService.UserStats", err)
	}
	spend, err := s.reports.UserMonthlySpend(ctx, f)
	if err != nil {
		return nil, storeError("ReportService.UserStats", err)
	}

	projected := project(counts, spend)
	stats := make([]domain.UserStats, 0, len(projected))
	for _, pr := range projected {
		stats = append(stats, domain.UserStats{
			UserID:       pr.id,
			Username:     pr.name,
			Active:       pr.active,
			Completed:    pr.completed,
			MonthlySpend: pr.monthly,
		})
	}
	return stats, nil
}
