package workflow

import (
	"context"
	"net/http"
	"time"
)

// Builtin node type tags. These are the strings the editor writes into
// Node.Type; the registry is keyed on them.
const (
	TypeStart           = "Start"
	TypeWebhook         = "Webhook"
	TypeManualTrigger   = "Manual Trigger"
	TypeScheduleTrigger = "Schedule Trigger"
	TypeHTTPRequest     = "HTTP Request"
	TypeIf              = "IF"
	TypeSwitch          = "Switch"
	TypeMerge           = "Merge"
	TypeSplitInBatches  = "Split In Batches"
	TypeSlack           = "Slack"
	TypeDiscord         = "Discord"
	TypeTelegram        = "Telegram"
	TypeGmail           = "Gmail"
	TypeDateTime        = "Date & Time"
	TypeSet             = "Set"
	TypeJSON            = "JSON"
	TypeCrypto          = "Crypto"
)

// NodeExecutor implements one node type's behavior. Executors convert their
// own failures (bad config, unreachable hosts) into error-shaped output data
// and return a nil error; a non-nil error is reserved for conditions the
// engine should record as a failed node.
type NodeExecutor interface {
	Execute(ctx context.Context, node Node, input any) (map[string]any, error)
}

// Registry maps node type strings to their executor implementation.
type Registry map[string]NodeExecutor

// Lookup returns the executor for a node type, falling back to the generic
// passthrough executor for unregistered types. Unknown types are never a
// hard failure.
func (r Registry) Lookup(nodeType string) NodeExecutor {
	if e, ok := r[nodeType]; ok {
		return e
	}
	return defaultExec
}

var defaultExec NodeExecutor = &DefaultExecutor{}

// DefaultExecutor handles node types with no registered executor. It echoes
// the node back as a successful execution so unknown types degrade gracefully
// instead of breaking the run.
type DefaultExecutor struct{}

func (e *DefaultExecutor) Execute(_ context.Context, node Node, input any) (map[string]any, error) {
	return map[string]any{
		"executed":     true,
		"node_type":    node.Type,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"input_data":   input,
		"output_value": "Processed by " + node.Type,
	}, nil
}

// Deps carries the external capabilities executors need. Everything is
// injected so tests can substitute fakes.
type Deps struct {
	HTTPClient *http.Client // used by the HTTP Request executor
	Slack      Notifier
	Discord    Notifier
	Telegram   Notifier
	Mailer     Notifier
}

// integrationCategories maps stubbed vendor node types to their category
// label. Each runs through the shared echo executor so demo graphs execute
// without real credentials.
var integrationCategories = map[string]string{
	"HubSpot":      "crm",
	"Salesforce":   "crm",
	"Pipedrive":    "crm",
	"Shopify":      "ecommerce",
	"Stripe":       "ecommerce",
	"GitHub":       "devops",
	"GitLab":       "devops",
	"Jenkins":      "devops",
	"AWS":          "cloud",
	"Google Cloud": "cloud",
	"Azure":        "cloud",
	"Mailchimp":    "marketing",
	"SendGrid":     "marketing",
	"Twitter":      "social",
	"LinkedIn":     "social",
}

// NewRegistry creates a registry populated with all builtin executor types.
func NewRegistry(deps Deps) Registry {
	if deps.HTTPClient == nil {
		deps.HTTPClient = NewHTTPNodeClient()
	}
	trigger := &TriggerExecutor{}
	r := Registry{
		TypeStart:           trigger,
		TypeWebhook:         trigger,
		TypeManualTrigger:   trigger,
		TypeScheduleTrigger: trigger,
		TypeHTTPRequest:     &HTTPRequestExecutor{client: deps.HTTPClient},
		TypeIf:              &IfExecutor{},
		TypeSwitch:          &SwitchExecutor{},
		TypeMerge:           &MergeExecutor{},
		TypeSplitInBatches:  &SplitInBatchesExecutor{},
		TypeSlack:           &NotifyExecutor{notifier: deps.Slack, provider: "slack"},
		TypeDiscord:         &NotifyExecutor{notifier: deps.Discord, provider: "discord"},
		TypeTelegram:        &TelegramExecutor{notifier: deps.Telegram},
		TypeGmail:           &GmailExecutor{mailer: deps.Mailer},
		TypeDateTime:        &DateTimeExecutor{},
		TypeSet:             &SetExecutor{},
		TypeJSON:            &JSONExecutor{},
		TypeCrypto:          &CryptoExecutor{},
	}
	for nodeType, category := range integrationCategories {
		r[nodeType] = &IntegrationStubExecutor{category: category}
	}
	return r
}

// Run metadata travels to executors through the context; triggers embed the
// workflow id in their output.
type ctxKey int

const ctxKeyWorkflowID ctxKey = iota

// WithWorkflowID attaches the owning workflow's id to the context.
func WithWorkflowID(ctx context.Context, workflowID string) context.Context {
	return context.WithValue(ctx, ctxKeyWorkflowID, workflowID)
}

func workflowIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyWorkflowID).(string)
	return id
}
