package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DashboardStats holds aggregate counts from the panel database.
type DashboardStats struct {
	Accounts          int           `json:"accounts"`
	AccountsActive    int           `json:"accounts_active"`
	AccountsSuspended int           `json:"accounts_suspended"`
	Certificates      int           `json:"certificates"`
	CertsIssued       int           `json:"certs_issued"`
	CertsFailed       int           `json:"certs_failed"`
	CertsExpiringSoon int           `json:"certs_expiring_soon"`
	CertsByStatus     []StatusCount `json:"certs_by_status"`
	CertsByProvider   []StatusCount `json:"certs_by_provider"`
}

// StatusCount holds a count grouped by one label value.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DashboardService queries aggregate stats from the panel DB.
type DashboardService struct {
	db DB
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(db DB) *DashboardService {
	return &DashboardService{db: db}
}

// Stats returns aggregate counts. The scalar counts come from one CTE
// query; the group-by breakdowns run concurrently alongside it.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		const countsQuery = `
			WITH account_count AS (
				SELECT count(*) AS c FROM hosting_accounts WHERE status != 'deleted'
			), account_active AS (
				SELECT count(*) AS c FROM hosting_accounts WHERE status = 'active'
			), account_suspended AS (
				SELECT count(*) AS c FROM hosting_accounts WHERE status = 'suspended'
			), cert_count AS (
				SELECT count(*) AS c FROM certificates
			), cert_issued AS (
				SELECT count(*) AS c FROM certificates WHERE status = 'issued'
			), cert_failed AS (
				SELECT count(*) AS c FROM certificates WHERE status = 'failed'
			), cert_expiring AS (
				SELECT count(*) AS c FROM certificates
				WHERE status = 'issued' AND expires_at < now() + interval '30 days'
			)
			SELECT account_count.c, account_active.c, account_suspended.c,
			       cert_count.c, cert_issued.c, cert_failed.c, cert_expiring.c
			FROM account_count, account_active, account_suspended,
			     cert_count, cert_issued, cert_failed, cert_expiring`

		err := s.db.QueryRow(ctx, countsQuery).Scan(
			&stats.Accounts, &stats.AccountsActive, &stats.AccountsSuspended,
			&stats.Certificates, &stats.CertsIssued, &stats.CertsFailed, &stats.CertsExpiringSoon,
		)
		if err != nil {
			return fmt.Errorf("dashboard counts: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		stats.CertsByStatus, err = s.groupCount(ctx, "status")
		return err
	})

	g.Go(func() error {
		var err error
		stats.CertsByProvider, err = s.groupCount(ctx, "provider")
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// groupCount counts certificates grouped by one column. The column name is
// fixed by the callers, never user input.
func (s *DashboardService) groupCount(ctx context.Context, column string) ([]StatusCount, error) {
	query := fmt.Sprintf(
		`SELECT %s, count(*) FROM certificates GROUP BY %s ORDER BY %s`, column, column, column)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dashboard group by %s: %w", column, err)
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("scan group count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group counts: %w", err)
	}
	return counts, nil
}
