package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	// Global flags
	apiURL  string
	userID  string
	timeout time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pipectl",
	Short:   "Trigger digest pipeline stages by hand",
	Version: version,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run content ingestion",
	Long: `Run content ingestion for one user or for every user with
active sources.

Examples:
  # Ingest every user's sources
  pipectl ingest

  # Ingest a single user
  pipectl ingest --user 6a1f0c2e-...`,
	RunE: runIngest,
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Run trend detection",
	RunE:  runTrends,
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Generate a digest draft for a user",
	RunE:  runDraft,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one dispatch sweep now",
	RunE:  runSweep,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show delivery stats for a user",
	RunE:  runStats,
}

var (
	// Draft command flags
	periodDate string
	force      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("DIGEST_API_URL", "http://localhost:9020"), "base URL of the orchestrator API")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user ID (UUID)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")

	draftCmd.Flags().StringVar(&periodDate, "date", "", "period date (YYYY-MM-DD), defaults to today")
	draftCmd.Flags().BoolVar(&force, "force", false, "supersede the current draft and regenerate")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(statsCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runIngest(cmd *cobra.Command, args []string) error {
	payload := map[string]any{}
	if userID != "" {
		payload["user_id"] = userID
	}
	return postJSON("/v1/ingest/run", payload)
}

func runTrends(cmd *cobra.Command, args []string) error {
	payload := map[string]any{}
	if userID != "" {
		payload["user_id"] = userID
	}
	return postJSON("/v1/trends/detect", payload)
}

func runDraft(cmd *cobra.Command, args []string) error {
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	date := periodDate
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	payload := map[string]any{
		"user_id":          userID,
		"period_date":      date,
		"force_regenerate": force,
	}
	return postJSON("/v1/drafts/generate", payload)
}

func runSweep(cmd *cobra.Command, args []string) error {
	return postJSON("/v1/dispatch/sweep", map[string]any{})
}

func runStats(cmd *cobra.Command, args []string) error {
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	return getJSON("/v1/deliveries/stats?user_id=" + userID)
}

func postJSON(path string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(apiURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func getJSON(path string) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(apiURL + path)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		pretty.Write(body)
	}
	fmt.Println(pretty.String())

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}
