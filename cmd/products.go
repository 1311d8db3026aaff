package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-radar/internal/model"
)

var (
	productFile string
	productUser string
)

// productSpec is the YAML layout accepted by `products add`.
type productSpec struct {
	UserID            string   `yaml:"user_id"`
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description"`
	Features          []string `yaml:"features"`
	Benefits          []string `yaml:"benefits"`
	PainPoints        []string `yaml:"pain_points"`
	IdealCustomer     string   `yaml:"ideal_customer"`
	TargetCommunities []string `yaml:"target_communities"`
}

func loadProductSpec(path string) (*model.ProductProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read product file %s", path)
	}
	var def productSpec
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, eris.Wrapf(err, "parse product file %s", path)
	}
	if strings.TrimSpace(def.Name) == "" {
		return nil, eris.New("product name is required")
	}
	if len(def.TargetCommunities) == 0 {
		return nil, eris.New("at least one target community is required")
	}
	communities := make([]string, 0, len(def.TargetCommunities))
	for _, c := range def.TargetCommunities {
		c = strings.TrimPrefix(strings.TrimSpace(c), "r/")
		if c != "" {
			communities = append(communities, c)
		}
	}
	return &model.ProductProfile{
		UserID:            def.UserID,
		Name:              def.Name,
		Description:       def.Description,
		Features:          def.Features,
		Benefits:          def.Benefits,
		PainPoints:        def.PainPoints,
		IdealCustomer:     def.IdealCustomer,
		TargetCommunities: communities,
		Active:            true,
	}, nil
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage product profiles",
}

var productsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a product profile from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProductSpec(productFile)
		if err != nil {
			return err
		}
		if productUser != "" {
			p.UserID = productUser
		}
		if p.UserID == "" {
			return eris.New("user id is required (user_id in file or --user)")
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.CreateProduct(ctx, p); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		return nil
	},
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List product profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		products, err := st.ListProducts(ctx, productUser)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tACTIVE\tCOMMUNITIES")
		for _, p := range products {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.ID, p.Name, p.Active, strings.Join(p.TargetCommunities, ","))
		}
		return tw.Flush()
	},
}

func init() {
	productsAddCmd.Flags().StringVarP(&productFile, "file", "f", "", "product profile YAML")
	_ = productsAddCmd.MarkFlagRequired("file")
	productsAddCmd.Flags().StringVar(&productUser, "user", "", "owning user id (overrides file)")
	productsListCmd.Flags().StringVar(&productUser, "user", "", "owning user id (default all users)")

	productsCmd.AddCommand(productsAddCmd, productsListCmd)
	rootCmd.AddCommand(productsCmd)
}
