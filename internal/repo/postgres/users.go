package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfonseca/accounthub/internal/domain/user"
	"github.com/mfonseca/accounthub/internal/observability"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
)

const joinedUserColumns = `
	u.id, u.username, u.email, u.password_hash, u.role, u.created_at, u.updated_at,
	COALESCE(p.first_name, ''), COALESCE(p.last_name, ''),
	COALESCE(p.phone, ''), COALESCE(p.address, '')`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *UsersRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJoinedUser(row rowScanner) (user.User, error) {
	var u user.User
	var roleCode string

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&roleCode,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.Address,
	)

	if err != nil {
		return user.User{}, err
	}

	u.Role, err = user.ParseRole(roleCode)

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// Create inserts a new account row. A unique violation on the email index
// surfaces as ErrEmailTaken.
func (repo *UsersRepo) Create(ctx context.Context, username, email, passwordHash string, role user.Role) (id int64, err error) {
	err = repo.observe("users.create", func() error {
		return repo.pool.QueryRow(ctx, `
			INSERT INTO users (username, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, username, email, passwordHash, role.Code()).Scan(&id)
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrEmailTaken
		}
		return 0, err
	}

	return id, nil
}

func (repo *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = repo.observe("users.get_by_email", func() error {
		row := repo.pool.QueryRow(ctx, `
			SELECT`+joinedUserColumns+`
			FROM users u
			LEFT JOIN user_profiles p ON p.user_id = u.id
			WHERE u.email = $1
		`, email)

		u, err = scanJoinedUser(row)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, ErrUserNotFound
	}

	return u, err
}

func (repo *UsersRepo) GetByID(ctx context.Context, id int64) (u user.User, err error) {
	err = repo.observe("users.get_by_id", func() error {
		row := repo.pool.QueryRow(ctx, `
			SELECT`+joinedUserColumns+`
			FROM users u
			LEFT JOIN user_profiles p ON p.user_id = u.id
			WHERE u.id = $1
		`, id)

		u, err = scanJoinedUser(row)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, ErrUserNotFound
	}

	return u, err
}

// GetRole resolves the current role straight from the store. Admin checks
// call this on every request rather than trusting token claims, so a
// demotion takes effect on the next call.
func (repo *UsersRepo) GetRole(ctx context.Context, id int64) (user.Role, error) {
	var roleCode string

	err := repo.observe("users.get_role", func() error {
		return repo.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&roleCode)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.RoleUnknown, ErrUserNotFound
		}
		return user.RoleUnknown, err
	}

	return user.ParseRole(roleCode)
}

func (repo *UsersRepo) Exists(ctx context.Context, id int64) (exists bool, err error) {
	err = repo.observe("users.exists", func() error {
		return repo.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	})

	return exists, err
}

// EmailTakenByOther reports whether the email belongs to a different user
// than selfID. The caller's own row never counts as a conflict.
func (repo *UsersRepo) EmailTakenByOther(ctx context.Context, email string, selfID int64) (taken bool, err error) {
	err = repo.observe("users.email_taken_by_other", func() error {
		return repo.pool.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)
		`, email, selfID).Scan(&taken)
	})

	return taken, err
}

// List returns one page of users, newest first, plus the total row count.
func (repo *UsersRepo) List(ctx context.Context, limit, offset int) (items []user.Summary, total int, err error) {
	err = repo.observe("users.count", func() error {
		return repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	})

	if err != nil {
		return nil, 0, err
	}

	err = repo.observe("users.list", func() error {
		rows, e := repo.pool.Query(ctx, `
			SELECT id, username, email, role, created_at
			FROM users
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2
		`, limit, offset)

		if e != nil {
			return e
		}
		defer rows.Close()

		for rows.Next() {
			var s user.Summary
			var roleCode string

			if e := rows.Scan(&s.ID, &s.Username, &s.Email, &roleCode, &s.CreatedAt); e != nil {
				return e
			}

			if s.Role, e = user.ParseRole(roleCode); e != nil {
				return e
			}

			items = append(items, s)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	if items == nil {
		items = []user.Summary{}
	}

	return items, total, nil
}

func (repo *UsersRepo) UpdateRole(ctx context.Context, id int64, role user.Role) error {
	var tag pgconn.CommandTag

	err := repo.observe("users.update_role", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `
			UPDATE users SET role = $2, updated_at = now() WHERE id = $1
		`, id, role.Code())
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (repo *UsersRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	var tag pgconn.CommandTag

	err := repo.observe("users.update_password", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `
			UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
		`, id, passwordHash)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateProfile applies the account fields and upserts the profile row in a
// single transaction, then re-reads the joined row as the canonical new
// state. Any failure rolls the whole update back.
func (repo *UsersRepo) UpdateProfile(ctx context.Context, id int64, req user.UpdateProfileRequest) (u user.User, err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var tag pgconn.CommandTag

	err = repo.observe("users.update_profile.users", func() error {
		var e error
		tag, e = tx.Exec(ctx, `
			UPDATE users SET username = $2, email = $3, updated_at = now() WHERE id = $1
		`, id, req.Username, req.Email)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = ErrEmailTaken
		}
		return
	}

	if tag.RowsAffected() == 0 {
		err = ErrUserNotFound
		return
	}

	err = repo.observe("users.update_profile.upsert", func() error {
		_, e := tx.Exec(ctx, `
			INSERT INTO user_profiles (user_id, first_name, last_name, phone, address)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name  = EXCLUDED.last_name,
				phone      = EXCLUDED.phone,
				address    = EXCLUDED.address,
				updated_at = now()
		`, id, req.FirstName, req.LastName, req.Phone, req.Address)
		return e
	})

	if err != nil {
		return
	}

	err = repo.observe("users.update_profile.reread", func() error {
		row := tx.QueryRow(ctx, `
			SELECT`+joinedUserColumns+`
			FROM users u
			LEFT JOIN user_profiles p ON p.user_id = u.id
			WHERE u.id = $1
		`, id)

		var e error
		u, e = scanJoinedUser(row)
		return e
	})

	if err != nil {
		return
	}

	err = tx.Commit(ctx)

	return
}
