package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"scholarops/internal/app"
	"scholarops/internal/endorsement/models"
	id "scholarops/pkg/domain"
)

func newEndorseCmd() *cobra.Command {
	var mode, notes string

	cmd := &cobra.Command{
		Use:   "endorse <application-id>...",
		Short: "Endorse completed interviews to the selection committee",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := models.ParseFilterMode(mode)
			if err != nil {
				return err
			}
			ids := make([]id.ApplicationID, 0, len(args))
			for _, arg := range args {
				appID, err := id.ParseApplicationID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, appID)
			}

			ctx := cmd.Context()
			a, err := app.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			result, err := a.Processor.BulkEndorse(ctx, ids, filter, notes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Application", "Outcome", "Status", "Code", "Message"})
			for _, item := range result.Items {
				table.Append([]string{
					item.ApplicationID.String(),
					string(item.Outcome),
					item.Status,
					item.Code,
					item.Message,
				})
			}
			table.Render()
			fmt.Fprintf(out, "%d processed: %d endorsed, %d skipped, %d failed\n",
				result.TotalProcessed, result.EndorsedCount, result.SkippedCount, result.FailedCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(models.FilterReady), "Filter mode (ready, consideration, all)")
	cmd.Flags().StringVar(&notes, "notes", "", "Endorsement notes")
	return cmd
}
