package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brogergvhs/aktudl/internal/config"
	"github.com/brogergvhs/aktudl/internal/portal"
	"github.com/brogergvhs/aktudl/internal/subjects"
	"github.com/brogergvhs/aktudl/internal/ui"

	"github.com/spf13/cobra"
)

var (
	subjectsRoll     string
	subjectsPassword string
	subjectsCourse   string
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List the subjects available for download, without downloading anything",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := config.LoadMerged(config.Options{
			IgnoreConfig: flagIgnoreConfig,
			Debug:        flagDebug,
			RollNo:       subjectsRoll,
			Course:       subjectsCourse,
		})
		if err != nil {
			return err
		}

		logSvc := ui.NewLogger(cfg.Debug)

		creds, err := askCredentials(cfg.RollNo, subjectsPassword)
		if err != nil {
			return err
		}

		client, err := portal.NewClient(portal.Options{
			BaseURL:     cfg.BaseURL,
			PathPrefix:  cfg.PathPrefix,
			UserAgent:   cfg.UserAgent,
			Timeout:     30 * time.Second,
			DebugLogger: logSvc,
		})
		if err != nil {
			return err
		}

		ctx := context.Background()

		if err := client.Login(ctx, creds); err != nil {
			return err
		}

		sel := subjects.NewSelector(client)

		course, err := pickCourse(ctx, sel, cfg.Course)
		if err != nil {
			if errors.Is(err, portal.ErrNotAuthenticated) {
				return fmt.Errorf("%w (check roll number and password)", err)
			}
			return err
		}

		listing, err := sel.SelectCourse(ctx, course)
		if err != nil {
			return err
		}

		all, err := sel.Subjects(listing)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
		_, _ = fmt.Fprintln(w, "CODE\tNAME")
		for _, s := range all {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", s.Code, s.Name)
		}
		return w.Flush()
	},
}

func init() {
	subjectsCmd.Flags().StringVar(&subjectsRoll, "roll", "", "student roll number (prompted when omitted)")
	subjectsCmd.Flags().StringVar(&subjectsPassword, "password", "", "portal password (prompted when omitted)")
	subjectsCmd.Flags().StringVar(&subjectsCourse, "course", "", "course name as shown in the exam dropdown")

	rootCmd.AddCommand(subjectsCmd)
}
