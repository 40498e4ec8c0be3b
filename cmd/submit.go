package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evidence-registry/internal/evidence"
)

var badges = map[evidence.Status]func(a ...interface{}) string{
	evidence.StatusPending:    color.New(color.FgYellow).SprintFunc(),
	evidence.StatusProcessing: color.New(color.FgBlue).SprintFunc(),
	evidence.StatusVerified:   color.New(color.FgGreen, color.Bold).SprintFunc(),
	evidence.StatusError:      color.New(color.FgRed, color.Bold).SprintFunc(),
}

func badge(s evidence.Status) string {
	return badges[s](fmt.Sprintf("[%-10s]", s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func newSubmitCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "submit FILE...",
		Short: "Ingest files and follow them to a terminal status",
		Example: `  evidence-registry submit report.pdf photo.jpg
  LIFECYCLE_MODE=remote evidence-registry submit order.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]evidence.SourceFile, 0, len(args))
			for _, p := range args {
				content, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				files = append(files, evidence.SourceFile{
					Name:    filepath.Base(p),
					Size:    int64(len(content)),
					Content: content,
				})
			}

			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			// Ctrl-C cancels every record still in flight.
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			progress := a.pipeline.Ingest(ctx, files)

			var mu sync.Mutex
			var wg sync.WaitGroup
			for _, p := range progress {
				wg.Add(1)
				go func(p *evidence.Progress) {
					defer wg.Done()
					for ev := range p.Events() {
						rec, err := a.registry.Get(ev.RecordID)
						if err != nil {
							a.logger.Error("progress event for unknown record", zap.String("record_id", ev.RecordID))
							continue
						}
						mu.Lock()
						printEvent(rec, ev)
						mu.Unlock()
					}
				}(p)
			}
			wg.Wait()

			st := a.registry.Stats()
			fmt.Printf("\n%d records: %d verified, %d error (success rate %.1f%%)\n",
				st.Records, st.Verified, st.Errored, st.SuccessRate)
			if st.Errored > 0 {
				return fmt.Errorf("%d file(s) failed", st.Errored)
			}
			return nil
		},
	}
}

func printEvent(rec evidence.Record, ev evidence.ProgressEvent) {
	fmt.Printf("%s %-24s %s", badge(ev.To), truncate(rec.FileName, 24), truncate(rec.Fingerprint, 10))
	switch ev.To {
	case evidence.StatusPending:
		fmt.Printf("  sig=%s", truncate(rec.Signature, 14))
	case evidence.StatusVerified:
		fmt.Printf("  tx=%s  cid=%s", ev.LedgerRef, ev.StorageRef)
	case evidence.StatusError:
		fmt.Printf("  (%s)", ev.Failure)
	}
	fmt.Println()
}
