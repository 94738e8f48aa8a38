package cli

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"scholarops/internal/app"
	"scholarops/internal/interview/models"
	id "scholarops/pkg/domain"
)

func newAgendaCmd() *cobra.Command {
	var interviewer, date string

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show an interviewer's booked slots for one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			interviewerID, err := id.ParseInterviewerID(interviewer)
			if err != nil {
				return err
			}
			day, err := models.ParseDate(date)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := app.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			slots, err := a.Scheduler.Agenda(ctx, interviewerID, day)
			if err != nil {
				return fmt.Errorf("load agenda: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(slots) == 0 {
				fmt.Fprintf(out, "No interviews on %s.\n", day.Format(models.DateLayout))
				return nil
			}
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Start", "End", "Minutes", "Applicant", "Application", "Status"})
			for _, slot := range slots {
				table.Append([]string{
					slot.Start.String(),
					slot.End().String(),
					strconv.Itoa(slot.DurationMinutes),
					slot.ApplicantRef,
					slot.ApplicationID.String(),
					string(slot.Status),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&interviewer, "interviewer", "", "Interviewer id")
	cmd.Flags().StringVar(&date, "date", "", "Day to show (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("interviewer")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
