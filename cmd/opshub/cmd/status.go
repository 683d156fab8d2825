package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/handlers"
	"github.com/dounie/opshub/internal/monitor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running hub",
	Long: `Queries the /health endpoint of a running hub and lists its most recent
system notifications. With --local, takes one host sample instead, using the
same sampler the hub's health monitor uses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if local, _ := cmd.Flags().GetBool("local"); local {
			diskPath, _ := cmd.Flags().GetString("disk-path")
			return printLocalSample(cmd.Context(), cmd.OutOrStdout(), monitor.NewHostSampler(diskPath))
		}
		url, _ := cmd.Flags().GetString("url")
		limit, _ := cmd.Flags().GetInt("notifications")
		client := &http.Client{Timeout: 5 * time.Second}
		return printStatus(cmd.OutOrStdout(), client, strings.TrimRight(url, "/"), limit)
	},
}

func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func printStatus(out io.Writer, client *http.Client, baseURL string, limit int) error {
	var health handlers.HealthResponse
	if err := getJSON(client, baseURL+"/health", &health); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Status:\t%s\n", health.Status)
	fmt.Fprintf(w, "Connected users:\t%s\n", humanize.Comma(int64(health.ConnectedUsers)))
	fmt.Fprintf(w, "Messages retained:\t%s\n", humanize.Comma(int64(health.Messages)))
	fmt.Fprintf(w, "Monitor:\t%s\n", health.Monitor)
	fmt.Fprintf(w, "Uptime:\t%s\n", health.Uptime)
	if err := w.Flush(); err != nil {
		return err
	}

	if limit <= 0 {
		return nil
	}
	var notes handlers.ListResponse[domain.SystemNotification]
	if err := getJSON(client, fmt.Sprintf("%s/api/notifications?limit=%d", baseURL, limit), &notes); err != nil {
		return err
	}

	fmt.Fprintln(out)
	if notes.Count == 0 {
		fmt.Fprintln(out, "No notifications.")
		return nil
	}
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTYPE\tRESOLVED\tMESSAGE")
	for _, n := range notes.Items {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", humanize.Time(n.Timestamp), n.Type, n.Resolved, n.Message)
	}
	return w.Flush()
}

func printLocalSample(ctx context.Context, out io.Writer, sampler monitor.Sampler) error {
	sample, err := sampler.Sample(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Memory usage:\t%s%%\n", humanize.FtoaWithDigits(sample.MemoryPercent, 1))
	fmt.Fprintf(w, "Disk usage:\t%s%%\n", humanize.FtoaWithDigits(sample.DiskPercent, 1))
	fmt.Fprintf(w, "Load average (1m):\t%s\n", humanize.FtoaWithDigits(sample.LoadAverage, 2))
	return w.Flush()
}

func init() {
	statusCmd.Flags().Bool("local", false, "sample this host instead of querying a hub")
	statusCmd.Flags().String("disk-path", "/", "filesystem path whose disk usage --local reports")
	statusCmd.Flags().String("url", "http://localhost:8080", "base URL of the hub")
	statusCmd.Flags().Int("notifications", 10, "number of recent notifications to show (0 to skip)")
	rootCmd.AddCommand(statusCmd)
}
