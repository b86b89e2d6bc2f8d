package notification

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

// message is the default wording for a notable status.
type message struct {
	subject string
	body    string
}

// Statuses worth telling the owner about. Everything else is internal
// progress and is skipped.
var defaultMessages = map[order.Status]message{
	order.StatusDocumentsVerified: {
		"Your documents have been verified",
		"Hi {{.name}}, the documents for your {{.product}} request {{.record_id}} have been verified.",
	},
	order.StatusDocumentsRejected: {
		"Your documents need another look",
		"Hi {{.name}}, we could not accept the documents for {{.record_id}}. {{.rejection_reason}}",
	},
	order.StatusActionRequired: {
		"Action required on your application",
		"Hi {{.name}}, your application {{.record_id}} needs your attention: {{.action_required_message}}",
	},
	order.StatusApproved: {
		"Your request has been approved",
		"Hi {{.name}}, your {{.product}} request {{.record_id}} has been approved.",
	},
	order.StatusRejected: {
		"Your application was not approved",
		"Hi {{.name}}, your application {{.record_id}} was not approved. {{.rejection_reason}}",
	},
	order.StatusAdvancePaid: {
		"Advance payment received",
		"Hi {{.name}}, we received the advance for {{.record_id}}.",
	},
	order.StatusBalancePaid: {
		"Payment received",
		"Hi {{.name}}, payment for {{.record_id}} is complete.",
	},
	order.StatusDispatched: {
		"Your order is on its way",
		"Hi {{.name}}, {{.record_id}} has been dispatched.",
	},
	order.StatusOutForDelivery: {
		"Out for delivery",
		"Hi {{.name}}, {{.record_id}} is out for delivery today.",
	},
	order.StatusDelivered: {
		"Delivered",
		"Hi {{.name}}, {{.record_id}} has been delivered.",
	},
	order.StatusCompleted: {
		"Completed",
		"Hi {{.name}}, your {{.product}} request {{.record_id}} is complete.",
	},
	order.StatusCancelled: {
		"Your request was cancelled",
		"Hi {{.name}}, {{.record_id}} has been cancelled.",
	},
	order.StatusRefunded: {
		"Refund issued",
		"Hi {{.name}}, the refund for {{.record_id}} has been issued.",
	},
}

// DefaultTemplates returns the built-in templates: one per notable status
// reachable in each product's table.
func DefaultTemplates() []notification.Template {
	var out []notification.Template
	for _, p := range order.AllProducts() {
		for _, s := range order.TransitionTable(p).Statuses() {
			m, ok := defaultMessages[s]
			if !ok {
				continue
			}
			out = append(out, notification.Template{Product: p, Status: s, Subject: m.subject, Body: m.body})
		}
	}
	return out
}

// catalogFile is the YAML layout of a template file.
type catalogFile struct {
	// IncludeDefaults keeps the built-in templates under the file's.
	IncludeDefaults bool                    `yaml:"include_defaults"`
	Templates       []notification.Template `yaml:"templates"`
}

// TemplateCatalog is a thread-safe notification.Catalog.
type TemplateCatalog struct {
	templates map[string]notification.Template
	mu        sync.RWMutex
}

// NewTemplateCatalog creates a catalog holding the given templates.
func NewTemplateCatalog(templates ...notification.Template) (*TemplateCatalog, error) {
	c := &TemplateCatalog{}
	if err := c.Replace(templates); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDefaultCatalog creates a catalog holding DefaultTemplates.
func NewDefaultCatalog() *TemplateCatalog {
	c, err := NewTemplateCatalog(DefaultTemplates()...)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in templates: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*TemplateCatalog, error) {
	c := &TemplateCatalog{}
	if err := c.Load(path); err != nil {
		return nil, err
	}
	return c, nil
}

// Load replaces the catalog with the templates in a YAML file. On error
// the current templates are kept.
func (c *TemplateCatalog) Load(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("failed to read template file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse template file: %w", err)
	}
	templates := file.Templates
	if file.IncludeDefaults {
		templates = append(DefaultTemplates(), templates...)
	}
	return c.Replace(templates)
}

// Replace swaps the catalog contents. Later templates win on duplicate
// keys. Nothing changes if any template is invalid.
func (c *TemplateCatalog) Replace(templates []notification.Template) error {
	next := make(map[string]notification.Template, len(templates))
	for _, t := range templates {
		if err := validateTemplate(t); err != nil {
			return err
		}
		next[t.Key()] = t
	}

	c.mu.Lock()
	c.templates = next
	c.mu.Unlock()
	return nil
}

// Lookup returns the template for (product, status).
func (c *TemplateCatalog) Lookup(product order.Product, status order.Status) (notification.Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[notification.TemplateKey(product, status)]
	return t, ok
}

// Keys returns the sorted template keys.
func (c *TemplateCatalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.templates))
	for k := range c.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validateTemplate(t notification.Template) error {
	if !t.Product.Valid() || !t.Status.IsKnown() {
		return fmt.Errorf("%w: unknown pair %s", notification.ErrInvalidTemplate, t.Key())
	}
	if t.Body == "" {
		return fmt.Errorf("%w: %s has no body", notification.ErrInvalidTemplate, t.Key())
	}
	if _, err := template.New(t.Key()).Parse(t.Subject); err != nil {
		return fmt.Errorf("%w: %s subject: %v", notification.ErrInvalidTemplate, t.Key(), err)
	}
	if _, err := template.New(t.Key()).Parse(t.Body); err != nil {
		return fmt.Errorf("%w: %s body: %v", notification.ErrInvalidTemplate, t.Key(), err)
	}
	return nil
}

var _ notification.Catalog = (*TemplateCatalog)(nil)
