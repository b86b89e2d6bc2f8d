package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/orderflow/domain/order"
	api "github.com/felixgeelhaar/orderflow/interfaces/api"
)

type exportSchemaOptions struct {
	kind       string
	format     string
	product    string
	outputPath string
}

func (a *App) newExportSchemaCmd() *cobra.Command {
	opts := &exportSchemaOptions{}

	cmd := &cobra.Command{
		Use:   "export-schema",
		Short: "Export the configuration schema or the lifecycle catalog",
		Long: `Export a machine-readable document for tooling.

Kinds:
  config     JSON Schema (draft 2020-12) for orderflow configuration files
  lifecycle  per product: initial status, transition table and status labels

Examples:
  # Configuration schema for editor validation
  orderflow export-schema -o schema.json

  # Lifecycle catalog for a front end, as YAML
  orderflow export-schema --kind lifecycle --format yaml

  # One product only
  orderflow export-schema --kind lifecycle --product forex_card`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exportSchema(opts)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", "config", "Document to export (config, lifecycle)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format (json, yaml)")
	cmd.Flags().StringVarP(&opts.product, "product", "p", "", "Limit the lifecycle catalog to one product")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output file path (default: stdout)")

	return cmd
}

// productLifecycle is one product's entry in the lifecycle catalog.
type productLifecycle struct {
	Product     order.Product                   `json:"product" yaml:"product"`
	Initial     order.Status                    `json:"initial_status" yaml:"initial_status"`
	Transitions map[order.Status][]order.Status `json:"transitions" yaml:"transitions"`
	Statuses    []order.StatusInfo              `json:"statuses" yaml:"statuses"`
}

func lifecycleCatalog(only string) ([]productLifecycle, error) {
	products := order.AllProducts()
	if only != "" {
		p := order.Product(only)
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %s", order.ErrUnknownProduct, only)
		}
		products = []order.Product{p}
	}

	catalog := make([]productLifecycle, 0, len(products))
	for _, p := range products {
		table := order.TransitionTable(p)
		entry := productLifecycle{
			Product:     p,
			Initial:     p.InitialStatus(),
			Transitions: table,
		}
		for _, s := range table.Statuses() {
			entry.Statuses = append(entry.Statuses, order.Describe(s))
		}
		catalog = append(catalog, entry)
	}
	return catalog, nil
}

func (a *App) exportSchema(opts *exportSchemaOptions) error {
	var doc any
	switch opts.kind {
	case "config":
		if opts.product != "" {
			return fmt.Errorf("--product applies to the lifecycle kind only")
		}
		raw, err := api.ConfigSchemaJSON()
		if err != nil {
			return fmt.Errorf("failed to generate schema: %w", err)
		}
		if opts.format == "json" {
			return a.writeExport(opts.outputPath, []byte(raw+"\n"))
		}
		var generic map[string]any
		if err := json.Unmarshal([]byte(raw), &generic); err != nil {
			return fmt.Errorf("failed to decode schema: %w", err)
		}
		doc = generic
	case "lifecycle":
		catalog, err := lifecycleCatalog(opts.product)
		if err != nil {
			return err
		}
		doc = catalog
	default:
		return fmt.Errorf("unknown export kind %q (want config or lifecycle)", opts.kind)
	}

	var (
		data []byte
		err  error
	)
	switch opts.format {
	case "json":
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(doc)
	default:
		return fmt.Errorf("unknown export format %q (want json or yaml)", opts.format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s export: %w", opts.kind, err)
	}
	return a.writeExport(opts.outputPath, data)
}

func (a *App) writeExport(path string, data []byte) error {
	if path == "" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	_, _ = fmt.Fprintf(a.stdout, "Schema exported to %s\n", path)
	return nil
}
