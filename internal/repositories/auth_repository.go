package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"catalog_backend/internal/models"
)

// AuthRepository defines the interface for authentication-related database operations.
type AuthRepository interface {
	FindUserByEmail(email string) (*models.User, error) // PasswordHash populated
	FindUserByID(userID int64) (*models.User, error)
}

// authRepository implements the AuthRepository interface.
type authRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

// FindUserByEmail retrieves a user by email with the password hash populated,
// for credential checks.
func (r *authRepository) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, organization_id, email, password_hash, full_name, role, is_active, created_at, updated_at
	          FROM users
	          WHERE email = $1 AND is_active = TRUE`
	err := r.db.QueryRow(query, email).Scan(
		&user.ID, &user.OrganizationID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by email %s: %v", ErrDatabaseError, email, err)
	}
	return user, nil
}

// FindUserByID retrieves a user by id. The password hash is cleared; this
// method serves profile reads, not credential checks.
func (r *authRepository) FindUserByID(userID int64) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, organization_id, email, password_hash, full_name, role, is_active, created_at, updated_at
	          FROM users
	          WHERE id = $1`
	err := r.db.QueryRow(query, userID).Scan(
		&user.ID, &user.OrganizationID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by ID %d: %v", ErrDatabaseError, userID, err)
	}
	user.PasswordHash = ""
	return user, nil
}
