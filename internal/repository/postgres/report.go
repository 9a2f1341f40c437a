package postgres

import (
	"context"
	"fmt"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/repository"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
)

var dialect = goqu.Dialect("postgres")

type reportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) repository.ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) AssetStatusCounts(ctx context.Context) ([]domain.StatusCount, error) {
	return r.statusCounts(ctx, "assets")
}

func (r *reportRepository) RequestStatusCounts(ctx context.Context) ([]domain.StatusCount, error) {
	return r.statusCounts(ctx, "rental_requests")
}

func (r *reportRepository) statusCounts(ctx context.Context, table string) ([]domain.StatusCount, error) {
	query, args, err := dialect.From(table).
		Select(goqu.C("status"), goqu.COUNT("*").As("count")).
		GroupBy(goqu.C("status")).
		Order(goqu.C("status").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s status query: %w", table, err)
	}

	var counts []domain.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("%s status counts: %w", table, err)
	}
	return counts, nil
}

// Revenue aggregates contracts starting within [from, to].
func (r *reportRepository) Revenue(ctx context.Context, from, to time.Time) (*domain.RevenueSummary, error) {
	query, args, err := dialect.From("rental_transactions").
		Select(
			goqu.COUNT("*").As("transactions"),
			goqu.L("COALESCE(SUM(total_months * monthly_price), 0)").As("contracted_amount"),
			goqu.COALESCE(goqu.SUM("paid_amount"), 0).As("paid_amount"),
			goqu.COALESCE(goqu.SUM("remaining_amount"), 0).As("remaining_amount"),
		).
		Where(
			goqu.C("start_date").Gte(domain.DateOf(from).Format(domain.DateLayout)),
			goqu.C("start_date").Lte(domain.DateOf(to).Format(domain.DateLayout)),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build revenue query: %w", err)
	}

	summary := &domain.RevenueSummary{}
	if err := r.db.GetContext(ctx, summary, query, args...); err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}
	summary.From = domain.DateOf(from)
	summary.To = domain.DateOf(to)
	return summary, nil
}

// MonthlyRevenue sums paid amounts per start month of the given year. Months
// without contracts are omitted.
func (r *reportRepository) MonthlyRevenue(ctx context.Context, year int) ([]domain.MonthlyRevenue, error) {
	month := goqu.L("CAST(EXTRACT(MONTH FROM start_date) AS INTEGER)")
	query, args, err := dialect.From("rental_transactions").
		Select(month.As("month"), goqu.COALESCE(goqu.SUM("paid_amount"), 0).As("paid_amount")).
		Where(goqu.L("EXTRACT(YEAR FROM start_date)").Eq(year)).
		GroupBy(month).
		Order(month.Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build monthly revenue query: %w", err)
	}

	var out []domain.MonthlyRevenue
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	return out, nil
}
