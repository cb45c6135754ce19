package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// Properties is a key-value settings store on the properties table.
// Values are kept as text; typed getters parse them on read.
type Properties struct {
	db *sql.DB
}

// Property is a stored key and its raw value.
type Property struct {
	Key       string   `json:"key"`
	Value     string   `json:"value"`
	UpdatedAt NullTime `json:"updated_at"`
}

// NewProperties returns a store backed by database.
func NewProperties(database *DB) *Properties {
	return &Properties{db: database.DB()}
}

// GetBool returns the boolean stored at key, or def if absent or unparseable.
func (p *Properties) GetBool(ctx context.Context, key string, def bool) bool {
	raw, ok := p.lookup(ctx, key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("malformed property, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

// GetInt returns the integer stored at key, or def if absent or unparseable.
func (p *Properties) GetInt(ctx context.Context, key string, def int) int {
	raw, ok := p.lookup(ctx, key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("malformed property, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

// SetBool stores value at key.
func (p *Properties) SetBool(ctx context.Context, key string, value bool) error {
	return p.set(ctx, key, strconv.FormatBool(value))
}

// SetInt stores value at key, or removes key when value equals sentinel.
func (p *Properties) SetInt(ctx context.Context, key string, value, sentinel int) error {
	if value == sentinel {
		return p.Unset(ctx, key)
	}
	return p.set(ctx, key, strconv.Itoa(value))
}

// Unset removes key. Removing a missing key is not an error.
func (p *Properties) Unset(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM properties WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete property %s: %w", key, err)
	}
	return nil
}

// List returns all properties whose key starts with prefix, ordered by key.
func (p *Properties) List(ctx context.Context, prefix string) ([]Property, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT key, value, updated_at FROM properties
		WHERE substr(key, 1, length(?)) = ?
		ORDER BY key
	`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var props []Property
	for rows.Next() {
		var prop Property
		if err := rows.Scan(&prop.Key, &prop.Value, &prop.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		props = append(props, prop)
	}
	return props, rows.Err()
}

func (p *Properties) set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO properties (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("set property %s: %w", key, err)
	}
	return nil
}

// lookup reads the raw value. Read errors degrade to "absent".
func (p *Properties) lookup(ctx context.Context, key string) (string, bool) {
	var raw string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM properties WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		slog.Warn("read property failed, using default", "key", key, "error", err)
		return "", false
	}
	return raw, true
}
