package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MNasiifu/automobile-association-sub000/httpapi"
	"github.com/MNasiifu/automobile-association-sub000/observability"
	"github.com/MNasiifu/automobile-association-sub000/permit"
	"github.com/MNasiifu/automobile-association-sub000/pipeline"
	"github.com/MNasiifu/automobile-association-sub000/records"
)

func newSaveCmd(c *cli) *cobra.Command {
	var (
		recordPath string
		listPath   string
		outDir     string
		at         string
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Render certificates to PDF files",
		Example: `  certgen save --record permit.json
  certgen save --records permits.json --out ./certificates --at 2024-06-01`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (recordPath == "") == (listPath == "") {
				return errors.New("exactly one of --record or --records is required")
			}
			now, err := parseAt(at)
			if err != nil {
				return err
			}
			var recs []permit.VerificationRecord
			if recordPath != "" {
				rec, err := records.ReadFile(recordPath)
				if err != nil {
					return err
				}
				recs = append(recs, rec)
			} else if recs, err = records.ReadListFile(listPath); err != nil {
				return err
			}

			if outDir == "" {
				outDir = c.cfg.Output.Dir
			}
			saver := pipeline.FileSaver{Dir: outDir}
			svc, err := c.newService(observability.NopMetrics{},
				pipeline.WithSaver(saver),
				pipeline.WithClock(func() time.Time { return now }),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var failed int
			for _, rec := range recs {
				status := permit.Classify(rec, now)
				art, err := svc.GenerateAndSave(cmd.Context(), rec, status, now.Format(httpapi.RenderedAtLayout))
				if err != nil {
					failed++
					printError(out, fmt.Sprintf("%s: %v", rec.ID, err))
					continue
				}
				printSuccess(out, "Saved "+styleTitle.Render(saver.Path(art.SuggestedFilename)))
				printField(out, "status", string(status.State))
				printField(out, "size", fmt.Sprintf("%d bytes", len(art.Bytes)))
				printField(out, "pages", fmt.Sprint(art.Pages))
				printField(out, "digest", styleMuted.Render(art.Digest))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d certificates failed", failed, len(recs))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&recordPath, "record", "r", "", "verification record JSON file")
	cmd.Flags().StringVar(&listPath, "records", "", "JSON file with an array of records")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default output.dir)")
	cmd.Flags().StringVar(&at, "at", "", "classification time, YYYY-MM-DD or RFC 3339 (default now)")
	return cmd
}
