package database

import (
	"database/sql"

	"github.com/google/uuid"
)

// nullUUIDToPointer превращает sql.NullString → *uuid.UUID.
func nullUUIDToPointer(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	u, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// uuidPointerToNullString — обратное преобразование для записи в БД.
func uuidPointerToNullString(u *uuid.UUID) sql.NullString {
	if u == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: u.String(), Valid: true}
}
