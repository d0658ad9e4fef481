package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/internal/realtime"
	"go-recruitment-intake/internal/repository/memory"
	"go-recruitment-intake/pkg/logger"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print new resume notifications as they arrive",
	Long:  "Join the realtime admin room and print every new resume notification. Duplicates pushed by the server are printed once.",
	RunE:  runWatch,
}

var (
	watchURL        string
	watchToken      string
	watchCount      int
	watchJSON       bool
	watchMaxBackoff time.Duration
)

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "Realtime server URL (overrides REALTIME_URL)")
	watchCmd.Flags().StringVar(&watchToken, "token", "", "Realtime handshake token (overrides REALTIME_TOKEN)")
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "Exit after this many notifications (0 = until interrupted)")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print one JSON object per line")
	watchCmd.Flags().DurationVar(&watchMaxBackoff, "max-backoff", 0, "Longest wait between reconnect attempts")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	url := firstNonEmpty(watchURL, cfg.RealtimeURL)
	if url == "" {
		return fmt.Errorf("realtime URL is required (set REALTIME_URL or use --url)")
	}
	if watchCount < 0 {
		return fmt.Errorf("--count must not be negative")
	}
	maxBackoff := watchMaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = cfg.RealtimeReconnectMax
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store := memory.NewNotificationStore()
	out := cmd.OutOrStdout()

	var mu sync.Mutex
	printed := 0
	var printErr error
	unsubscribe := store.Subscribe(func(e domain.StoreEvent) {
		if e.Kind != domain.StoreEventInserted || e.Notification == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if printErr != nil || (watchCount > 0 && printed >= watchCount) {
			return
		}
		if err := printNotification(out, *e.Notification, watchJSON); err != nil {
			printErr = err
			cancel()
			return
		}
		printed++
		if watchCount > 0 && printed >= watchCount {
			cancel()
		}
	})
	defer unsubscribe()

	channel := realtime.NewChannel(realtime.Config{
		URL:        url,
		Token:      firstNonEmpty(watchToken, cfg.RealtimeToken),
		MaxBackoff: maxBackoff,
	}, store, logger.Log)
	channel.Connect(ctx)
	defer channel.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for new resumes (Ctrl+C to stop)\n", url)
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return printErr
}

func printNotification(w io.Writer, n domain.Notification, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(n)
	}

	line := fmt.Sprintf("%s  %s <%s>  %s", n.Timestamp, n.CVData.Name, n.CVData.Email, n.CVData.Role)
	if n.CVData.ResumeLink != "" {
		line += "  " + n.CVData.ResumeLink
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
