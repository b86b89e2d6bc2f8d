package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := New().WithOutput(&stdout, &stderr).ExecuteWithArgs(ctx, args)
	return stdout.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "orderflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestApp_Version(t *testing.T) {
	output, err := run(t, context.Background(), "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(output, "orderflow version") {
		t.Errorf("version output missing 'orderflow version', got: %s", output)
	}
}

func TestApp_Help(t *testing.T) {
	output, err := run(t, context.Background(), "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"lifecycle", "statuses", "targets", "chart", "validate", "serve"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q, got: %s", want, output)
		}
	}
}

func TestApp_Statuses(t *testing.T) {
	output, err := run(t, context.Background(), "statuses")
	if err != nil {
		t.Fatalf("statuses failed: %v", err)
	}
	if !strings.Contains(output, "STATUS") || !strings.Contains(output, "awaiting_payment") {
		t.Errorf("statuses output = %s", output)
	}
}

func TestApp_StatusesJSON(t *testing.T) {
	output, err := run(t, context.Background(), "statuses", "canceled", "approved", "--json")
	if err != nil {
		t.Fatalf("statuses --json failed: %v", err)
	}

	var infos []order.StatusInfo
	if err := json.Unmarshal([]byte(output), &infos); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("infos = %d, want 2", len(infos))
	}
	if infos[0].Status != order.StatusCancelled || !infos[0].Terminal {
		t.Errorf("legacy spelling = %+v, want terminal cancelled", infos[0])
	}
}

func TestApp_Targets(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "owner from draft",
			args: []string{"targets", "-p", "currency_exchange", "-s", "draft", "-r", "owner"},
			want: []string{"pending_documents"},
		},
		{
			name: "admin from under review",
			args: []string{"targets", "-p", "education_loan", "-s", "under_review"},
			want: []string{"approved", "rejected"},
		},
		{
			name: "terminal",
			args: []string{"targets", "-p", "forex_card", "-s", "completed"},
			want: []string{"No transitions"},
		},
		{name: "unknown product", args: []string{"targets", "-p", "gold", "-s", "draft"}, wantErr: true},
		{name: "unknown role", args: []string{"targets", "-p", "forex_card", "-s", "draft", "-r", "auditor"}, wantErr: true},
		{name: "bad amount", args: []string{"targets", "-p", "forex_card", "-s", "draft", "--amount", "lots"}, wantErr: true},
		{name: "missing flags", args: []string{"targets"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, context.Background(), tt.args...)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("targets failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q, got: %s", want, output)
				}
			}
		})
	}
}

func TestApp_Chart(t *testing.T) {
	output, err := run(t, context.Background(), "chart", "--product", "currency_exchange")
	if err != nil {
		t.Fatalf("chart failed: %v", err)
	}
	for _, want := range []string{"stateDiagram-v2", "[*] --> draft", "draft --> pending_documents", "cancelled --> [*]"} {
		if !strings.Contains(output, want) {
			t.Errorf("chart output missing %q, got: %s", want, output)
		}
	}

	if _, err := run(t, context.Background(), "chart", "--product", "gold"); !errors.Is(err, order.ErrUnknownProduct) {
		t.Errorf("unknown product error = %v, want ErrUnknownProduct", err)
	}
}

func TestApp_Validate(t *testing.T) {
	path := writeConfig(t, `
compliance:
  cash_limit_usd: "2500"
storage:
  backend: memory
notification:
  enabled: true
  channel: log
  dedupe: memory
`)

	output, err := run(t, context.Background(), "validate", "-c", path, "--build")
	if err != nil {
		t.Fatalf("validate command failed: %v", err)
	}
	for _, want := range []string{"valid", "Cash limit (USD): 2500", "Storage: memory", "Notifications: log"} {
		if !strings.Contains(output, want) {
			t.Errorf("validate output missing %q, got: %s", want, output)
		}
	}
}

func TestApp_ValidateInvalid(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: cassandra
`)

	if _, err := run(t, context.Background(), "validate", "-c", path); err == nil {
		t.Error("validate should fail for an unknown storage backend")
	}
	if _, err := run(t, context.Background(), "validate"); err == nil {
		t.Error("validate should require a config path")
	}
}

func TestApp_ValidateShowSchema(t *testing.T) {
	output, err := run(t, context.Background(), "validate", "--schema")
	if err != nil {
		t.Fatalf("validate --schema failed: %v", err)
	}
	if !strings.Contains(output, "$schema") || !strings.Contains(output, "Orderflow Configuration") {
		t.Errorf("schema output = %s", output)
	}
}

func TestApp_ExportSchemaToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")

	output, err := run(t, context.Background(), "export-schema", "-o", path)
	if err != nil {
		t.Fatalf("export-schema failed: %v", err)
	}
	if !strings.Contains(output, "Schema exported") {
		t.Errorf("output = %s", output)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if !json.Valid(data) {
		t.Error("exported schema is not valid JSON")
	}
}

func TestApp_ExportLifecycle(t *testing.T) {
	output, err := run(t, context.Background(), "export-schema", "--kind", "lifecycle", "--product", "forex_card")
	if err != nil {
		t.Fatalf("export-schema --kind lifecycle failed: %v", err)
	}

	var catalog []struct {
		Product     order.Product                   `json:"product"`
		Initial     order.Status                    `json:"initial_status"`
		Transitions map[order.Status][]order.Status `json:"transitions"`
		Statuses    []order.StatusInfo              `json:"statuses"`
	}
	if err := json.Unmarshal([]byte(output), &catalog); err != nil {
		t.Fatalf("lifecycle export is not JSON: %v\n%s", err, output)
	}
	if len(catalog) != 1 || catalog[0].Product != order.ProductForexCard {
		t.Fatalf("catalog = %+v, want forex_card only", catalog)
	}
	entry := catalog[0]
	if entry.Initial != order.ProductForexCard.InitialStatus() {
		t.Errorf("initial_status = %s, want %s", entry.Initial, order.ProductForexCard.InitialStatus())
	}
	for from, targets := range entry.Transitions {
		for _, to := range targets {
			if !order.CanTransition(order.ProductForexCard, from, to) {
				t.Errorf("exported %s -> %s is not in the forex_card table", from, to)
			}
		}
	}
	if len(entry.Statuses) != len(order.TransitionTable(order.ProductForexCard).Statuses()) {
		t.Errorf("exported %d statuses", len(entry.Statuses))
	}
}

func TestApp_ExportSchemaFormats(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"config yaml", []string{"--format", "yaml"}, "Orderflow Configuration", false},
		{"lifecycle yaml", []string{"--kind", "lifecycle", "-f", "yaml"}, "initial_status:", false},
		{"unknown kind", []string{"--kind", "statuses"}, "", true},
		{"unknown format", []string{"--kind", "lifecycle", "--format", "toml"}, "", true},
		{"unknown product", []string{"--kind", "lifecycle", "--product", "gold_bar"}, "", true},
		{"product on config", []string{"--product", "forex_card"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, context.Background(), append([]string{"export-schema"}, tt.args...)...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("export-schema %v error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if !strings.Contains(output, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, output)
			}
		})
	}
}

func TestApp_ServeRequiresSecret(t *testing.T) {
	if _, err := run(t, context.Background(), "serve"); !errors.Is(err, ErrJWTSecretRequired) {
		t.Errorf("serve error = %v, want ErrJWTSecretRequired", err)
	}
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	path := writeConfig(t, `
http:
  address: "127.0.0.1:0"
  jwt_secret: test-secret
logging:
  level: error
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := run(t, ctx, "serve", "-c", path); err != nil {
		t.Errorf("serve after cancel error = %v, want nil", err)
	}
}
