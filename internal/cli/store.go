package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reviewboard/rbdiff/internal/config"
	"github.com/reviewboard/rbdiff/internal/diffstore"
	"github.com/reviewboard/rbdiff/internal/gitctx"
	"github.com/reviewboard/rbdiff/internal/review"
)

var flagStoreJSON bool

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage stored diff sets",
}

// withStore loads the config, opens the store and runs fn against it.
func withStore(fn func(cfg config.Config, s *diffstore.Store) error) error {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		fail(err)
		return nil
	}
	defer s.Close()
	if err := fn(cfg, s); err != nil {
		fail(err)
	}
	return nil
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored diff sets, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(_ config.Config, s *diffstore.Store) error {
			sets, err := s.ListDiffSets(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flagStoreJSON {
				if sets == nil {
					sets = []diffstore.DiffSet{}
				}
				data, err := json.MarshalIndent(sets, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			if len(sets) == 0 {
				fmt.Fprintln(out, "No diff sets stored.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tFILES\tCHANGES\tNAME")
			for _, ds := range sets {
				fmt.Fprintf(tw, "%s\t%s\t%d\t+%d -%d\t%s\n",
					ds.ID, ds.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					ds.FileCount, ds.InsertTotal, ds.DeleteTotal, ds.Name)
			}
			return tw.Flush()
		})
	},
}

var storeShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Render a stored diff set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(cfg config.Config, s *diffstore.Store) error {
			res, err := s.Result(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p := &parsed{
				result: res,
				inputs: review.InputInfo{Mode: "store", DiffSetID: args[0]},
			}
			return renderReport(p, gitctx.RepoMeta{}, cfg)
		})
	},
}

var storeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored diff set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(_ config.Config, s *diffstore.Store) error {
			if err := s.DeleteDiffSet(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted diff set %s\n", args[0])
			return nil
		})
	},
}

func init() {
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeDeleteCmd)

	storeListCmd.Flags().BoolVar(&flagStoreJSON, "json", false, "Print the listing as JSON")
	storeShowCmd.Flags().StringVar(&flagFormat, "format", "", "Output format")
	storeShowCmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	storeShowCmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
}
