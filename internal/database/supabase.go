// Package database wraps the Supabase client behind the store interfaces
// the guard consumes. One configuration read and one audit append per
// request; no updates, no transactions.
package database

import (
	"context"
	"fmt"
	"os"

	supabase "github.com/supabase-community/supabase-go"

	"github.com/clowiza/backend/internal/gate"
)

// Table names in the Supabase project. The dashboard owns the schema; the
// guard only reads clowiza_links and appends to clowiza_logs.
const (
	linksTable = "clowiza_links"
	logsTable  = "clowiza_logs"
)

// SupabaseClient wraps the Supabase Go client with the guard's operations.
type SupabaseClient struct {
	client *supabase.Client
}

// NewSupabaseClient creates a new Supabase client from the environment.
func NewSupabaseClient() (*SupabaseClient, error) {
	url := os.Getenv("SUPABASE_URL")
	key := os.Getenv("SUPABASE_SERVICE_KEY")

	if url == "" || key == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set")
	}

	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	return &SupabaseClient{client: client}, nil
}

// GetGateConfig retrieves one gate configuration by id.
// Returns nil (not an error) when no row exists.
func (sc *SupabaseClient) GetGateConfig(ctx context.Context, id string) (*gate.Config, error) {
	var links []gate.Config
	_, err := sc.client.From(linksTable).
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&links)

	if err != nil {
		return nil, fmt.Errorf("failed to get gate config: %w", err)
	}
	if len(links) == 0 {
		return nil, nil
	}
	return &links[0], nil
}

// AppendLog inserts one decision record. The created_at timestamp is
// assigned server-side by the table default.
func (sc *SupabaseClient) AppendLog(ctx context.Context, entry gate.LogEntry) error {
	_, _, err := sc.client.From(logsTable).
		Insert(entry, false, "", "", "").
		Execute()
	return err
}

// Ping verifies the links table is reachable with the configured
// credentials. Used by the health endpoint.
func (sc *SupabaseClient) Ping(ctx context.Context) error {
	var rows []gate.Config
	_, err := sc.client.From(linksTable).
		Select("id", "", false).
		Limit(1, "").
		ExecuteTo(&rows)
	return err
}

// PingLogs verifies the logs table is readable.
func (sc *SupabaseClient) PingLogs(ctx context.Context) error {
	var rows []gate.LogEntry
	_, err := sc.client.From(logsTable).
		Select("link_id", "", false).
		Limit(1, "").
		ExecuteTo(&rows)
	return err
}
