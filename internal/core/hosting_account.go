package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/torvik/resellerpanel/internal/model"
	"github.com/torvik/resellerpanel/internal/platform"
)

type HostingAccountService struct {
	db DB
}

func NewHostingAccountService(db DB) *HostingAccountService {
	return &HostingAccountService{db: db}
}

const accountColumns = `id, user_id, username, domain, status, created_at, updated_at`

func scanHostingAccount(row interface{ Scan(dest ...any) error }) (model.HostingAccount, error) {
	var a model.HostingAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Username, &a.Domain, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *HostingAccountService) Create(ctx context.Context, account *model.HostingAccount) error {
	if account.ID == "" {
		account.ID = platform.NewID()
	}
	account.Domain = strings.ToLower(strings.TrimSpace(account.Domain))
	if account.Status == "" {
		account.Status = model.AccountStatusActive
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO hosting_accounts (id, user_id, username, domain, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())`,
		account.ID, account.UserID, account.Username, account.Domain, account.Status,
	)
	if err != nil {
		return fmt.Errorf("insert hosting account: %w", err)
	}
	return nil
}

func (s *HostingAccountService) GetByID(ctx context.Context, id string) (*model.HostingAccount, error) {
	a, err := scanHostingAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM hosting_accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("hosting account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get hosting account %s: %w", id, err)
	}
	return &a, nil
}

func (s *HostingAccountService) List(ctx context.Context, limit int, cursor string) ([]model.HostingAccount, bool, error) {
	query := `SELECT ` + accountColumns + ` FROM hosting_accounts WHERE status != $1`
	args := []any{model.AccountStatusDeleted}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list hosting accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.HostingAccount
	for rows.Next() {
		a, err := scanHostingAccount(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan hosting account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate hosting accounts: %w", err)
	}

	hasMore := len(accounts) > limit
	if hasMore {
		accounts = accounts[:limit]
	}
	return accounts, hasMore, nil
}

// SetStatus moves an account between active and suspended.
func (s *HostingAccountService) SetStatus(ctx context.Context, id, status string) error {
	if status != model.AccountStatusActive && status != model.AccountStatusSuspended {
		return fmt.Errorf("invalid account status %q: %w", status, ErrInvalidState)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE hosting_accounts SET status = $1, updated_at = now() WHERE id = $2 AND status != $3`,
		status, id, model.AccountStatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("set hosting account %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hosting account %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete soft-deletes an account. Its certificates stay for audit.
func (s *HostingAccountService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE hosting_accounts SET status = $1, updated_at = now() WHERE id = $2 AND status != $1`,
		model.AccountStatusDeleted, id,
	)
	if err != nil {
		return fmt.Errorf("delete hosting account %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hosting account %s: %w", id, ErrNotFound)
	}
	return nil
}
