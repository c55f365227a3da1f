package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "trackhound",
		Short: "TrackHound CLI - Batch track search and download orchestrator",
		Long:  `A command-line interface for searching tracks on the Soulseek network and managing the download queue.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Run a search batch from a track list file",
	Long: `Runs a search batch from a text file with one track per line in
"Artist - Title" form. Lines starting with # are skipped.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		enqueue, _ := cmd.Flags().GetBool("enqueue")
		label, _ := cmd.Flags().GetString("label")

		requests, err := readTrackList(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(requests) == 0 {
			fmt.Fprintln(os.Stderr, "Error: no tracks found in file")
			os.Exit(1)
		}
		if label == "" {
			label = args[0]
		}

		payload := map[string]interface{}{
			"source_label": label,
			"enqueue":      enqueue,
			"requests":     requests,
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/batches", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result struct {
			Batch struct {
				ID      string `json:"id"`
				Results []struct {
					State   string `json:"state"`
					Request struct {
						Artist string `json:"artist"`
						Title  string `json:"title"`
					} `json:"request"`
					Match *struct {
						OwnerID     string `json:"owner_id"`
						FilePath    string `json:"file_path"`
						BitrateKbps int    `json:"bitrate_kbps"`
					} `json:"match"`
				} `json:"results"`
			} `json:"batch"`
			JobID string `json:"job_id"`
		}
		json.Unmarshal(body, &result)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TRACK\tSTATE\tMATCH")
		matched := 0
		for _, r := range result.Batch.Results {
			match := "-"
			if r.Match != nil {
				match = fmt.Sprintf("%s (%d kbps, %s)", r.Match.OwnerID, r.Match.BitrateKbps, r.Match.FilePath)
				matched++
			}
			fmt.Fprintf(w, "%s - %s\t%s\t%s\n", r.Request.Artist, r.Request.Title, r.State, truncate(match, 60))
		}
		w.Flush()

		fmt.Printf("\nMatched %d of %d tracks\n", matched, len(result.Batch.Results))
		if result.JobID != "" {
			fmt.Printf("Job ID: %s (run 'trackhound start' to begin downloading)\n", result.JobID)
		}
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked items",
	Run: func(cmd *cobra.Command, args []string) {
		state, _ := cmd.Flags().GetString("state")

		url := serverURL + "/api/v1/items"
		if state != "" {
			url += "?state=" + state
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var items []map[string]interface{}
		json.Unmarshal(body, &items)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tARTIST\tTITLE\tSTATE\tATTEMPTS")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
				truncate(str(it["id"]), 8),
				truncate(str(it["artist"]), 24),
				truncate(str(it["title"]), 32),
				it["state"],
				it["attempt_count"])
		}
		w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get item details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/items/" + args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var item map[string]interface{}
		json.Unmarshal(body, &item)

		fmt.Printf("Item Details:\n")
		fmt.Printf("  ID:       %s\n", item["id"])
		fmt.Printf("  Artist:   %s\n", item["artist"])
		fmt.Printf("  Title:    %s\n", item["title"])
		fmt.Printf("  State:    %s\n", item["state"])
		fmt.Printf("  Attempts: %v\n", item["attempt_count"])
		fmt.Printf("  Created:  %s\n", item["created_at"])
		if item["error_message"] != nil && item["error_message"] != "" {
			fmt.Printf("  Error:    %s\n", item["error_message"])
		}
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/jobs")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var jobs []map[string]interface{}
		json.Unmarshal(body, &jobs)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE\tKIND\tCREATED")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				truncate(str(j["id"]), 8),
				truncate(str(j["source_label"]), 40),
				j["source_kind"],
				j["created_at"])
		}
		w.Flush()
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress [job-id]",
	Short: "Show job progress",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/jobs/" + args[0] + "/progress")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Job Progress:")
		fmt.Printf("  Total:      %v\n", stats["total"])
		fmt.Printf("  Successful: %v\n", stats["successful"])
		fmt.Printf("  Failed:     %v\n", stats["failed"])
		fmt.Printf("  Todo:       %v\n", stats["todo"])
		fmt.Printf("  Percent:    %.1f%%\n", num(stats["percent"]))
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive statistics",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/history/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Archive Statistics:")
		fmt.Printf("  Total:     %v\n", stats["total"])
		fmt.Printf("  Completed: %v\n", stats["completed"])
		fmt.Printf("  Failed:    %v\n", stats["failed"])
		fmt.Printf("  Cancelled: %v\n", stats["cancelled"])
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel an item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		postAction(args[0], "cancel", "Item cancelled")
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [id]",
	Short: "Retry a failed item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		postAction(args[0], "retry", "Item queued for retry")
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause [id]",
	Short: "Pause an item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		postAction(args[0], "pause", "Item paused")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [id]",
	Short: "Resume a paused item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		postAction(args[0], "resume", "Item resumed")
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the download queue",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Post(serverURL+"/api/v1/queue/start", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusAccepted {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}
		fmt.Println("Queue started")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Cancel the download queue",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Post(serverURL+"/api/v1/queue/cancel", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		fmt.Println("Queue cancelled")
	},
}

func postAction(id, action, okMsg string) {
	resp, err := http.Post(serverURL+"/api/v1/items/"+id+"/"+action, "application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
		os.Exit(1)
	}
	fmt.Println(okMsg)
}

// readTrackList parses "Artist - Title" lines into batch request entries.
func readTrackList(path string) ([]map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var requests []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		artist, title := "", line
		if idx := strings.Index(line, " - "); idx >= 0 {
			artist = strings.TrimSpace(line[:idx])
			title = strings.TrimSpace(line[idx+3:])
		}
		requests = append(requests, map[string]interface{}{
			"artist": artist,
			"title":  title,
		})
	}
	return requests, scanner.Err()
}

func init() {
	batchCmd.Flags().BoolP("enqueue", "e", false, "Enqueue matched tracks for download")
	batchCmd.Flags().StringP("label", "l", "", "Source label for the batch (defaults to file name)")
	listCmd.Flags().StringP("state", "s", "", "Filter by state")
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func num(v interface{}) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
