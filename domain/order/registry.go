package order

// Category groups statuses by lifecycle phase.
type Category string

// Status categories.
const (
	CategoryInitial     Category = "initial"
	CategoryCompliance  Category = "compliance"
	CategoryPayment     Category = "payment"
	CategoryFulfillment Category = "fulfillment"
	CategoryTerminal    Category = "terminal"

	// CategoryPending is the fallback for values outside the registry.
	CategoryPending Category = "pending"
)

// Tone is the visual treatment a client should use when rendering a status.
type Tone string

// Status tones.
const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	ToneWarning Tone = "warning"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
)

// StatusInfo describes a status for display.
type StatusInfo struct {
	Status   Status   `json:"status" yaml:"status"`
	Label    string   `json:"label" yaml:"label"`
	Tone     Tone     `json:"tone" yaml:"tone"`
	Category Category `json:"category" yaml:"category"`
	Terminal bool     `json:"is_terminal" yaml:"is_terminal"`
}

var registry = map[Status]StatusInfo{
	StatusDraft:               {Label: "Draft", Tone: ToneNeutral, Category: CategoryInitial},
	StatusPendingDocuments:    {Label: "Pending Documents", Tone: ToneWarning, Category: CategoryInitial},
	StatusApplied:             {Label: "Applied", Tone: ToneInfo, Category: CategoryInitial},
	StatusDocumentsSubmitted:  {Label: "Documents Submitted", Tone: ToneInfo, Category: CategoryCompliance},
	StatusDocumentsVerified:   {Label: "Documents Verified", Tone: ToneSuccess, Category: CategoryCompliance},
	StatusDocumentsRejected:   {Label: "Documents Rejected", Tone: ToneDanger, Category: CategoryCompliance},
	StatusUnderReview:         {Label: "Under Review", Tone: ToneInfo, Category: CategoryCompliance},
	StatusActionRequired:      {Label: "Action Required", Tone: ToneWarning, Category: CategoryCompliance},
	StatusApproved:            {Label: "Approved", Tone: ToneSuccess, Category: CategoryCompliance},
	StatusAwaitingPayment:     {Label: "Awaiting Payment", Tone: ToneWarning, Category: CategoryPayment},
	StatusAdvancePaid:         {Label: "Advance Paid", Tone: ToneInfo, Category: CategoryPayment},
	StatusBalancePaid:         {Label: "Paid in Full", Tone: ToneSuccess, Category: CategoryPayment},
	StatusRefundPending:       {Label: "Refund Pending", Tone: ToneWarning, Category: CategoryPayment},
	StatusProcessing:          {Label: "Processing", Tone: ToneInfo, Category: CategoryFulfillment},
	StatusScheduled:           {Label: "Delivery Scheduled", Tone: ToneInfo, Category: CategoryFulfillment},
	StatusDispatched:          {Label: "Dispatched", Tone: ToneInfo, Category: CategoryFulfillment},
	StatusOutForDelivery:      {Label: "Out for Delivery", Tone: ToneInfo, Category: CategoryFulfillment},
	StatusCancellationPending: {Label: "Cancellation Requested", Tone: ToneWarning, Category: CategoryFulfillment},
	StatusDelivered:           {Label: "Delivered", Tone: ToneSuccess, Category: CategoryTerminal, Terminal: true},
	StatusCompleted:           {Label: "Completed", Tone: ToneSuccess, Category: CategoryTerminal, Terminal: true},
	StatusRejected:            {Label: "Rejected", Tone: ToneDanger, Category: CategoryTerminal, Terminal: true},
	StatusCancelled:           {Label: "Cancelled", Tone: ToneNeutral, Category: CategoryTerminal, Terminal: true},
	StatusRefunded:            {Label: "Refunded", Tone: ToneNeutral, Category: CategoryTerminal, Terminal: true},
}

// legacyAliases maps historical spellings onto registry statuses.
var legacyAliases = map[string]Status{
	"pending_review":   StatusUnderReview,
	"in_review":        StatusUnderReview,
	"canceled":         StatusCancelled,
	"cancel_requested": StatusCancellationPending,
	"paid":             StatusBalancePaid,
	"fully_paid":       StatusBalancePaid,
	"shipped":          StatusDispatched,
}

// Normalize maps a raw status value onto the registry, resolving legacy
// spellings. Unknown values are returned unchanged.
func Normalize(raw string) Status {
	if alias, ok := legacyAliases[raw]; ok {
		return alias
	}
	return Status(raw)
}

// Describe returns display information for a status. Values outside the
// registry resolve to the pending category instead of failing, since
// historical records may carry looser values.
func Describe(s Status) StatusInfo {
	s = Normalize(string(s))
	info, ok := registry[s]
	if !ok {
		return StatusInfo{
			Status:   s,
			Label:    humanize(string(s)),
			Tone:     ToneNeutral,
			Category: CategoryPending,
		}
	}
	info.Status = s
	return info
}

func humanize(raw string) string {
	if raw == "" {
		return "Unknown"
	}
	out := make([]byte, 0, len(raw))
	upper := true
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '_' || c == '-' {
			out = append(out, ' ')
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}
