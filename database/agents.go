package database

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/egor/supportchat/models"
)

// GetAgentByEmail возвращает оператора по email.
func (s *Postgres) GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		agent models.Agent
		role  string
	)
	const q = `
        SELECT id, name, email, password_hash, role, active
        FROM agents
        WHERE email = $1`
	if err := s.db.QueryRowContext(ctx, q, email).Scan(
		&agent.ID, &agent.Name, &agent.Email, &agent.PasswordHash, &role, &agent.Active,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("оператор %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("GetAgentByEmail: %w", err)
	}
	agent.Role = models.ParseRole(role)
	return &agent, nil
}

// VerifyPassword сверяет пароль с bcrypt-хешем из базы.
func VerifyPassword(pw, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}
