package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tmorvan/bankdesk/internal/database"
	"github.com/tmorvan/bankdesk/internal/models"
)

// SystemConfigRepository persists the singleton security-policy record. The
// table carries a constant primary key (id = 1) with a CHECK constraint, so
// concurrent first access cannot create duplicate rows: the insert is an
// ON CONFLICT no-op and every caller reads the same record back.
type SystemConfigRepository struct {
	pool *pgxpool.Pool
}

func NewSystemConfigRepository(db *database.DB) *SystemConfigRepository {
	return &SystemConfigRepository{pool: db.Pool}
}

const configColumns = `max_failed_login_attempts, lockout_duration_hours,
	session_timeout_minutes, password_min_length, enable_account_lockout,
	updated_by, created_at, updated_at`

func scanConfigRow(scanner rowScanner) (*models.SystemConfig, error) {
	var cfg models.SystemConfig
	err := scanner.Scan(
		&cfg.MaxFailedLoginAttempts, &cfg.LockoutDurationHours,
		&cfg.SessionTimeoutMinutes, &cfg.PasswordMinLength, &cfg.EnableAccountLockout,
		&cfg.UpdatedBy, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &cfg, nil
}

// GetOrCreateDefault returns the configuration record, lazily inserting the
// defaults on first access.
func (r *SystemConfigRepository) GetOrCreateDefault(ctx context.Context) (*models.SystemConfig, error) {
	defaults := models.DefaultSystemConfig()
	now := time.Now()

	insert := `
		INSERT INTO system_config (id, max_failed_login_attempts, lockout_duration_hours,
			session_timeout_minutes, password_min_length, enable_account_lockout, created_at, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, insert,
		defaults.MaxFailedLoginAttempts, defaults.LockoutDurationHours,
		defaults.SessionTimeoutMinutes, defaults.PasswordMinLength,
		defaults.EnableAccountLockout, now,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	query := `
		SELECT c.max_failed_login_attempts, c.lockout_duration_hours,
			c.session_timeout_minutes, c.password_min_length, c.enable_account_lockout,
			c.updated_by, c.created_at, c.updated_at, COALESCE(u.name, '')
		FROM system_config c
		LEFT JOIN users u ON u.id = c.updated_by
		WHERE c.id = 1
	`

	var cfg models.SystemConfig
	err = r.pool.QueryRow(ctx, query).Scan(
		&cfg.MaxFailedLoginAttempts, &cfg.LockoutDurationHours,
		&cfg.SessionTimeoutMinutes, &cfg.PasswordMinLength, &cfg.EnableAccountLockout,
		&cfg.UpdatedBy, &cfg.CreatedAt, &cfg.UpdatedAt, &cfg.UpdatedByName,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &cfg, nil
}

// Update persists a validated configuration and returns the stored record.
func (r *SystemConfigRepository) Update(ctx context.Context, cfg *models.SystemConfig, updatedBy string) (*models.SystemConfig, error) {
	query := `
		UPDATE system_config
		SET max_failed_login_attempts = $1, lockout_duration_hours = $2,
			session_timeout_minutes = $3, password_min_length = $4,
			enable_account_lockout = $5, updated_by = $6, updated_at = $7
		WHERE id = 1
		RETURNING ` + configColumns

	updated, err := scanConfigRow(r.pool.QueryRow(ctx, query,
		cfg.MaxFailedLoginAttempts, cfg.LockoutDurationHours,
		cfg.SessionTimeoutMinutes, cfg.PasswordMinLength,
		cfg.EnableAccountLockout, updatedBy, time.Now(),
	))
	if err != nil {
		return nil, err
	}

	return updated, nil
}
