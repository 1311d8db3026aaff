package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-radar/internal/export"
	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/pkg/notion"
	sfpkg "github.com/sells-group/lead-radar/pkg/salesforce"
)

var (
	leadsUser    string
	leadsProduct string
	leadsStatus  string
	leadsSince   time.Duration
	leadsLimit   int
	exportSink   string
	exportOut    string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and export stored leads",
}

func leadFilter() model.LeadFilter {
	f := model.LeadFilter{
		UserID:    leadsUser,
		ProductID: leadsProduct,
		Status:    model.LeadStatus(leadsStatus),
		Limit:     leadsLimit,
	}
	if leadsSince > 0 {
		f.CreatedAfter = time.Now().Add(-leadsSince)
	}
	return f
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, leadFilter())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SCORE\tSOURCE\tSTATUS\tCOMMUNITY\tTITLE\tPERMALINK")
		for _, l := range leads {
			fmt.Fprintf(tw, "%d\t%s\t%s\tr/%s\t%s\t%s\n",
				l.RelevanceScore, l.ScoringSource, l.Status, l.Community, clip(l.Title, 60), l.Permalink)
		}
		return tw.Flush()
	},
}

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored leads to a spreadsheet, Notion or Salesforce",
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, err := newSink(exportSink, exportOut)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, leadFilter())
		if err != nil {
			return err
		}

		rep, err := export.Run(ctx, sink, leads)
		if rep != nil {
			if werr := writeJSON(cmd.OutOrStdout(), rep); werr != nil && err == nil {
				err = werr
			}
		}
		return err
	},
}

// newSink builds the named export sink from config.
func newSink(name, out string) (export.Sink, error) {
	switch name {
	case "xlsx":
		if out == "" {
			out = fmt.Sprintf("leads-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
		}
		return &export.XLSXSink{Path: out}, nil
	case "notion":
		if err := cfg.Validate("export.notion"); err != nil {
			return nil, err
		}
		return &export.NotionSink{
			Client:     notion.NewClient(cfg.Export.Notion.Token),
			DatabaseID: cfg.Export.Notion.LeadDB,
		}, nil
	case "salesforce":
		if err := cfg.Validate("export.salesforce"); err != nil {
			return nil, err
		}
		client, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		return &export.SalesforceSink{Client: client}, nil
	default:
		return nil, eris.Errorf("unknown export sink %q (xlsx, notion, salesforce)", name)
	}
}

func initSalesforce() (sfpkg.Client, error) {
	pemData, err := os.ReadFile(cfg.Export.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Export.Salesforce.LoginURL,
		Username:       cfg.Export.Salesforce.Username,
		ConsumerKey:    cfg.Export.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(5)), nil
}

func init() {
	for _, c := range []*cobra.Command{leadsListCmd, leadsExportCmd} {
		c.Flags().StringVar(&leadsUser, "user", "", "filter by user id")
		c.Flags().StringVar(&leadsProduct, "product", "", "filter by product id")
		c.Flags().StringVar(&leadsStatus, "status", "", "filter by status (new, engaged, deleted)")
		c.Flags().DurationVar(&leadsSince, "since", 0, "only leads created within this window (e.g. 168h)")
		c.Flags().IntVar(&leadsLimit, "limit", 500, "maximum leads")
	}
	leadsExportCmd.Flags().StringVar(&exportSink, "sink", "xlsx", "destination: xlsx, notion or salesforce")
	leadsExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "spreadsheet path for the xlsx sink")

	leadsCmd.AddCommand(leadsListCmd, leadsExportCmd)
	rootCmd.AddCommand(leadsCmd)
}
