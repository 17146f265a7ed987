package services

import (
	"context"
	"log"

	"backend/querystore"
)

// Query type markers accepted by Execute.
const (
	QueryTypeNatural = "natural"
	QueryTypeSQL     = "sql"
)

type UserRecord struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type QueryResult struct {
	Rows       []map[string]any
	FinalQuery string
}

// SQLQueryService is the single execution path for the query endpoint:
// verify -> (resolve | authorize) -> execute. Nothing reaches the store
// without passing the authorizer.
type SQLQueryService struct {
	store      *querystore.Store
	authorizer *QueryAuthorizer
	resolver   *IntentResolver
}

func NewSQLQueryService(store *querystore.Store) *SQLQueryService {
	return &SQLQueryService{
		store:      store,
		authorizer: NewQueryAuthorizer(),
		resolver:   NewIntentResolver(),
	}
}

// Verify confirms the identity exists in the query store. A missing user is a
// normal outcome (IDENTITY_NOT_FOUND), not a store failure.
func (s *SQLQueryService) Verify(ctx context.Context, identity string) (*UserRecord, error) {
	if identity == "" {
		return nil, newQueryError(ErrAuthenticationRequired, "user identity required")
	}
	rows, err := s.store.Query(ctx, "SELECT email, full_name FROM users WHERE email = ?", identity)
	if err != nil {
		return nil, newQueryError(ErrStore, "%v", err)
	}
	if len(rows) == 0 {
		return nil, newQueryError(ErrIdentityNotFound, "user %s not found in the query store; run a sync first", identity)
	}
	rec := &UserRecord{}
	if v, ok := rows[0]["email"].(string); ok {
		rec.Email = v
	}
	if v, ok := rows[0]["full_name"].(string); ok {
		rec.FullName = v
	}
	return rec, nil
}

// Execute runs one request end to end and returns the rows together with the
// statement that was actually executed, for auditability.
func (s *SQLQueryService) Execute(ctx context.Context, identity, query, queryType string) (*QueryResult, error) {
	if _, err := s.Verify(ctx, identity); err != nil {
		return nil, err
	}

	raw := query
	switch queryType {
	case QueryTypeNatural:
		raw = s.resolver.Resolve(query, identity)
	case QueryTypeSQL:
	default:
		return nil, newQueryError(ErrUnrecognizedQueryType,
			"query type must be %q or %q", QueryTypeNatural, QueryTypeSQL)
	}

	final, err := s.authorizer.Authorize(raw, identity)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Query(ctx, final)
	if err != nil {
		return nil, newQueryError(ErrStore, "%v", err)
	}
	log.Printf("sql-query: user=%s type=%s rows=%d", identity, queryType, len(rows))
	return &QueryResult{Rows: rows, FinalQuery: final}, nil
}

// Schema exposes the query table catalog for the schema endpoint.
func (s *SQLQueryService) Schema() []querystore.TableInfo { return s.store.Schema() }
