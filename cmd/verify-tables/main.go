// Command verify-tables checks that the Supabase tables the guard depends on
// are reachable with the configured credentials. Run it after pointing the
// service at a fresh project.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/clowiza/backend/internal/database"
)

// VerificationResult stores test results
type VerificationResult struct {
	Table   string
	Status  string
	Details string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	fmt.Println("Clowiza guard - Supabase table verification")
	fmt.Println()

	client, err := database.NewSupabaseClient()
	if err != nil {
		log.Fatalf("❌ Failed to create Supabase client: %v", err)
	}

	ctx := context.Background()
	results := []VerificationResult{
		testLinks(ctx, client),
		testLogs(ctx, client),
	}

	failed := 0
	for _, r := range results {
		icon := "✅"
		if r.Status != "PASS" {
			icon = "❌"
			failed++
		}
		fmt.Printf("%s %-14s %s  %s\n", icon, r.Table, r.Status, r.Details)
	}

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%d of %d checks failed\n", failed, len(results))
		os.Exit(1)
	}
	fmt.Println("All tables reachable")
}

func testLinks(ctx context.Context, client *database.SupabaseClient) VerificationResult {
	if err := client.Ping(ctx); err != nil {
		return VerificationResult{"clowiza_links", "FAIL", err.Error()}
	}
	return VerificationResult{"clowiza_links", "PASS", "readable"}
}

func testLogs(ctx context.Context, client *database.SupabaseClient) VerificationResult {
	if err := client.PingLogs(ctx); err != nil {
		return VerificationResult{"clowiza_logs", "FAIL", err.Error()}
	}
	return VerificationResult{"clowiza_logs", "PASS", "readable"}
}
