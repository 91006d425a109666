package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"toptours-server/internal/infra"
	"toptours-server/internal/sqlinline"
)

const (
	NameCatalogAPIKey = "catalog_api_key"
)

// Store reads and writes operator-managed secrets kept in the database,
// used as a fallback when a key is not provided via the environment.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) CatalogAPIKey(ctx context.Context) (string, error) {
	return s.Secret(ctx, NameCatalogAPIKey)
}

func (s *Store) Secret(ctx context.Context, name string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectAppCredential, name)
	var secret string
	if err := row.Scan(&secret); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(secret), nil
}

func (s *Store) SetCatalogAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("catalog api key is required")
	}
	return s.upsert(ctx, NameCatalogAPIKey, key, nil)
}

func (s *Store) upsert(ctx context.Context, name, secret string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertAppCredential, name, secret, raw)
	return err
}
