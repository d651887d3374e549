package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizbot/internal/question"
)

func newBanksCmd(envFile *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "banks",
		Short: "Validate every question bank and report playable question counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				loadEnv(*envFile)
				dir = os.Getenv("QUIZ_BANK_DIR")
			}
			if dir == "" {
				dir = "quizzes"
			}
			return reportBanks(cmd, dir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "bank directory (defaults to QUIZ_BANK_DIR)")
	return cmd
}

func reportBanks(cmd *cobra.Command, dir string, out io.Writer) error {
	ctx := cmd.Context()
	source := question.NewDirSource(dir)
	loader := question.NewLoader(source, zerolog.Nop(), question.LoaderOptions{})

	banks, err := question.Catalog(ctx, source)
	if err != nil {
		return fmt.Errorf("list banks in %s: %w", dir, err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tTOPIC\tROWS\tQUESTIONS")

	var failed int
	for _, id := range banks {
		records, err := source.Records(ctx, id)
		if err != nil {
			return fmt.Errorf("read bank %s: %w", id, err)
		}
		subject := id.Subject
		if subject == "" {
			subject = "-"
		}

		questions, err := loader.Load(ctx, id)
		switch {
		case errors.Is(err, question.ErrEmpty):
			failed++
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", subject, id.Topic, len(records), "EMPTY")
		case err != nil:
			return err
		default:
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", subject, id.Topic, len(records), len(questions))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d bank(s) have no playable questions", failed)
	}
	return nil
}
