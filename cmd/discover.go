package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/pipeline"
	"github.com/sells-group/lead-radar/internal/terms"
)

var (
	discoverProduct     string
	discoverCommunities []string
	discoverUser        string
	discoverSave        bool
	discoverJSON        bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run lead discovery for a product on demand",
}

var discoverRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once for a product and print the accepted leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("discover"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		product, err := st.GetProduct(ctx, discoverProduct)
		if err != nil {
			return err
		}

		orch, err := newOrchestrator(st, "")
		if err != nil {
			return err
		}

		res, err := orch.Run(ctx, pipeline.Request{
			Profile:     *product,
			Communities: discoverCommunities,
			UserID:      discoverUser,
		})
		if err != nil {
			return err
		}

		userID := discoverUser
		if userID == "" {
			userID = product.UserID
		}
		if discoverSave {
			rep := pipeline.Persist(ctx, st, userID, product.ID, res.Accepted, cfg.Pipeline.BodyExcerptChars)
			rec := res.Record(userID, product.ID)
			rec.Inserted = rep.Inserted
			if err := st.SaveRun(ctx, &rec); err != nil {
				zap.L().Warn("discover: save run failed", zap.Error(err))
			}
			zap.L().Info("discover: leads saved",
				zap.Int("inserted", rep.Inserted),
				zap.Int("duplicates", rep.Duplicates),
				zap.Int("failed", len(rep.Failures)),
			)
		}

		if discoverJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

var discoverTermsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Print the search terms generated for a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		product, err := st.GetProduct(ctx, discoverProduct)
		if err != nil {
			return err
		}

		set, source := terms.NewGenerator(newCompleter()).Generate(ctx, *product)
		return writeJSON(cmd.OutOrStdout(), struct {
			Source terms.Source        `json:"source"`
			Terms  model.SearchTermSet `json:"terms"`
		}{source, set})
	},
}

func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "terms: %s  credentials: %s  posts: %d  accepted: %d  elapsed: %s\n",
		res.TermSource, res.CredentialTier, len(res.Posts), len(res.Accepted), res.Elapsed.Round(time.Millisecond))
	if res.BudgetExceeded {
		fmt.Fprintf(w, "budget exceeded, skipped groups: %v\n", res.Skipped)
	}
	if res.Degraded {
		fmt.Fprintln(w, "AI filtering unavailable, scores are not AI-qualified")
	}
	if len(res.Accepted) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tSOURCE\tCOMMUNITY\tTITLE\tPERMALINK")
	for _, sc := range res.Accepted {
		fmt.Fprintf(tw, "%d\t%s\tr/%s\t%s\t%s\n",
			sc.RelevanceScore, sc.ScoringSource, sc.Community, clip(sc.Title, 60), sc.Permalink)
	}
	_ = tw.Flush()
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func init() {
	for _, c := range []*cobra.Command{discoverRunCmd, discoverTermsCmd} {
		c.Flags().StringVar(&discoverProduct, "product", "", "product profile id")
		_ = c.MarkFlagRequired("product")
	}
	discoverRunCmd.Flags().StringSliceVar(&discoverCommunities, "communities", nil, "communities to search (default from product)")
	discoverRunCmd.Flags().StringVar(&discoverUser, "user", "", "user whose credentials are used (default product owner)")
	discoverRunCmd.Flags().BoolVar(&discoverSave, "save", false, "persist accepted leads and the run record")
	discoverRunCmd.Flags().BoolVar(&discoverJSON, "json", false, "print the full result as JSON")

	discoverCmd.AddCommand(discoverRunCmd, discoverTermsCmd)
	rootCmd.AddCommand(discoverCmd)
}
