package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/orderflow/application"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

type statusesOptions struct {
	asJSON bool
}

func (a *App) newStatusesCmd() *cobra.Command {
	opts := &statusesOptions{}

	cmd := &cobra.Command{
		Use:   "statuses [status...]",
		Short: "Describe lifecycle statuses",
		Long: `Describe lifecycle statuses with their label, tone and category.

Without arguments every registered status is listed. Legacy spellings such
as "canceled" or "in_review" resolve to their registry status.

Examples:
  orderflow statuses
  orderflow statuses approved canceled --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := order.AllStatuses()
			if len(args) > 0 {
				statuses = make([]order.Status, len(args))
				for i, arg := range args {
					statuses[i] = order.Status(arg)
				}
			}

			infos := make([]order.StatusInfo, len(statuses))
			for i, s := range statuses {
				infos[i] = order.Describe(s)
			}
			if opts.asJSON {
				return a.writeJSON(infos)
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tLABEL\tTONE\tCATEGORY\tTERMINAL")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", info.Status, info.Label, info.Tone, info.Category, info.Terminal)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output as JSON")
	return cmd
}

type targetsOptions struct {
	product string
	status  string
	role    string
	amount  string
	asJSON  bool
}

func (a *App) newTargetsCmd() *cobra.Command {
	opts := &targetsOptions{}

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List the statuses a role may request from a status",
		Long: `List the statuses a role may request for a product from a given status.

Owners are evaluated against a record they own. Compliance gates are not
evaluated since they depend on live customer data.

Examples:
  orderflow targets --product forex_card --status draft --role owner
  orderflow targets --product education_loan --status under_review --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listTargets(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.product, "product", "p", "", "Product line")
	cmd.Flags().StringVarP(&opts.status, "status", "s", "", "Current status")
	cmd.Flags().StringVarP(&opts.role, "role", "r", string(order.RoleAdmin), "Actor role (admin or owner)")
	cmd.Flags().StringVar(&opts.amount, "amount", "0", "Order amount in USD")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("status")

	return cmd
}

func (a *App) listTargets(opts *targetsOptions) error {
	product := order.Product(opts.product)
	if !product.Valid() {
		return fmt.Errorf("%w: %s", order.ErrUnknownProduct, opts.product)
	}
	amount, err := decimal.NewFromString(opts.amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", opts.amount, err)
	}

	const ownerID = "cli-owner"
	var actor order.Actor
	switch order.Role(opts.role) {
	case order.RoleAdmin:
		actor = order.Admin("cli-admin")
	case order.RoleOwner:
		actor = order.Owner(ownerID)
	default:
		return fmt.Errorf("%w: role %q", order.ErrInvalidActor, opts.role)
	}

	engine, err := application.NewEngine()
	if err != nil {
		return err
	}
	rec := order.NewRecord("preview", ownerID, product, amount)
	rec.Status = order.Normalize(opts.status)

	targets := engine.ListAllowedTargets(rec, actor)
	if opts.asJSON {
		if targets == nil {
			targets = []order.Status{}
		}
		return a.writeJSON(targets)
	}
	if len(targets) == 0 {
		fmt.Fprintf(a.stdout, "No transitions from %s for %s\n", rec.Status, actor.Role)
		return nil
	}
	for _, t := range targets {
		fmt.Fprintf(a.stdout, "%s\t%s\n", t, order.Describe(t).Label)
	}
	return nil
}

type chartOptions struct {
	product string
}

func (a *App) newChartCmd() *cobra.Command {
	opts := &chartOptions{}

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Print a product's lifecycle as a Mermaid state diagram",
		Long: `Print the transition table of a product as a Mermaid state diagram.

The product statechart is built first so the printed diagram is the one the
engine enforces.

Examples:
  orderflow chart --product currency_exchange > lifecycle.mmd`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printChart(order.Product(opts.product))
		},
	}

	cmd.Flags().StringVarP(&opts.product, "product", "p", "", "Product line")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func (a *App) printChart(product order.Product) error {
	engine, err := application.NewEngine()
	if err != nil {
		return err
	}
	if _, err := engine.Chart(product); err != nil {
		return fmt.Errorf("build %s chart: %w", product, err)
	}

	table := order.TransitionTable(product)
	fmt.Fprintln(a.stdout, "stateDiagram-v2")
	fmt.Fprintf(a.stdout, "    [*] --> %s\n", product.InitialStatus())
	for _, from := range table.Statuses() {
		for _, to := range table[from] {
			fmt.Fprintf(a.stdout, "    %s --> %s\n", from, to)
		}
		if from.IsTerminal() {
			fmt.Fprintf(a.stdout, "    %s --> [*]\n", from)
		}
	}
	return nil
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
