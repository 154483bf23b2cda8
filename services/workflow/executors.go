package workflow

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// TriggerExecutor handles the trigger node types (Start, Webhook, Manual
// Trigger, Schedule Trigger). Triggers ignore their input and mark the run's
// entry point.
type TriggerExecutor struct{}

func (e *TriggerExecutor) Execute(ctx context.Context, node Node, _ any) (map[string]any, error) {
	return map[string]any{
		"triggered":   true,
		"type":        node.Type,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"workflow_id": workflowIDFrom(ctx),
	}, nil
}

// HTTPRequestExecutor handles the "HTTP Request" node type. Network failure
// is captured as data with statusCode 0 so the run keeps going.
type HTTPRequestExecutor struct {
	client *http.Client
}

func (e *HTTPRequestExecutor) Execute(ctx context.Context, node Node, input any) (map[string]any, error) {
	url := paramString(node, "url", "endpoint", "requestUrl")
	if url == "" {
		return map[string]any{"error": "no url configured", "statusCode": 0, "body": nil, "url": ""}, nil
	}
	method := strings.ToUpper(paramString(node, "method", "requestMethod", "httpMethod"))
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if body := paramAny(node, "body", "jsonBody", "requestBody"); body != nil && method != http.MethodGet {
		raw, err := json.Marshal(body)
		if err != nil {
			return map[string]any{"error": fmt.Sprintf("marshal request body: %s", err), "statusCode": 0, "body": nil, "url": url}, nil
		}
		bodyReader = strings.NewReader(string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return map[string]any{"error": err.Error(), "statusCode": 0, "body": nil, "url": url}, nil
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return map[string]any{"error": err.Error(), "statusCode": 0, "body": nil, "url": url}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return map[string]any{"error": err.Error(), "statusCode": 0, "body": nil, "url": url}, nil
	}

	// Prefer parsed JSON, fall back to the raw text.
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		body = string(raw)
	}

	headers := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return map[string]any{
		"statusCode": resp.StatusCode,
		"body":       body,
		"headers":    headers,
		"durationMs": time.Since(start).Milliseconds(),
	}, nil
}

// NewHTTPNodeClient builds the client used by the HTTP Request executor:
// 10s dial, 30s total, redirect-following, permissive TLS. Workflow authors
// point nodes at arbitrary endpoints, self-signed ones included.
func NewHTTPNodeClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig.InsecureSkipVerify = true
	transport.TLSHandshakeTimeout = 10 * time.Second
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// IfExecutor handles the "IF" node type. It evaluates value1 OP value2 from
// the node parameters and signals the active branch through output_index:
// 0 for the true branch, 1 for the false branch.
type IfExecutor struct{}

func (e *IfExecutor) Execute(_ context.Context, node Node, input any) (map[string]any, error) {
	op := paramString(node, "operation", "operator")

	var result bool
	if op != "" {
		result = evaluateCondition(paramAny(node, "value1"), op, paramAny(node, "value2"))
	} else if v1 := paramAny(node, "value1"); v1 != nil {
		result = truthy(v1)
	} else {
		result = inputTruthiness(input)
	}

	idx := 1
	if result {
		idx = 0
	}
	return map[string]any{
		"result":        result,
		"condition_met": result,
		"output_index":  idx,
		"input_data":    input,
	}, nil
}

// inputTruthiness derives a condition from untyped input when the node has no
// configured comparison: input.condition, then input.value > 0, then "input
// is non-empty".
func inputTruthiness(input any) bool {
	if m, ok := input.(map[string]any); ok {
		if c, ok := m["condition"]; ok {
			return truthy(c)
		}
		if v, ok := m["value"]; ok {
			f, numeric := toFloat64(v)
			return numeric && f > 0
		}
		return len(m) > 0
	}
	return truthy(input)
}

// SwitchExecutor handles the "Switch" node type: an ordered rule list where
// the first matching rule selects the route. No match falls through to
// route 0.
type SwitchExecutor struct{}

func (e *SwitchExecutor) Execute(_ context.Context, node Node, input any) (map[string]any, error) {
	value := paramAny(node, "value1", "value")
	if value == nil {
		value = input
	}

	route := 0
	rules, _ := paramAny(node, "rules").([]any)
	for i, r := range rules {
		rule, ok := r.(map[string]any)
		if !ok {
			continue
		}
		op, _ := rule["operation"].(string)
		if op == "" {
			op = "equal"
		}
		if evaluateCondition(value, op, rule["value"]) {
			route = i
			break
		}
	}

	return map[string]any{
		"matched_route": route,
		"value":         value,
		"input_data":    input,
	}, nil
}

// MergeExecutor handles the "Merge" node type. The router already combined
// multi-predecessor data into merged_inputs upstream, so this is a tagged
// passthrough.
type MergeExecutor struct{}

func (e *MergeExecutor) Execute(_ context.Context, _ Node, input any) (map[string]any, error) {
	return map[string]any{
		"merged": true,
		"data":   input,
		"mode":   "merge",
	}, nil
}

// SplitInBatchesExecutor handles the "Split In Batches" node type. Non-list
// input is treated as a single-item list.
type SplitInBatchesExecutor struct{}

func (e *SplitInBatchesExecutor) Execute(_ context.Context, node Node, input any) (map[string]any, error) {
	size := 10
	if f, ok := toFloat64(paramAny(node, "batchSize", "batch_size")); ok && f >= 1 {
		size = int(f)
	}

	var items []any
	switch v := input.(type) {
	case nil:
		items = []any{}
	case []any:
		items = v
	default:
		items = []any{v}
	}

	var batches [][]any
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		batches = append(batches, items[i:end])
	}

	return map[string]any{
		"total_items":   len(items),
		"batch_size":    size,
		"total_batches": len(batches),
		"batches":       batches,
	}, nil
}

// NotifyExecutor handles webhook-style notification node types (Slack,
// Discord). Delivery failure is data, not an error.
type NotifyExecutor struct {
	notifier Notifier
	provider string
}

func (e *NotifyExecutor) Execute(ctx context.Context, node Node, input any) (map[string]any, error) {
	target := paramString(node, "webhookUrl", "webhook_url", "url")
	message := paramString(node, "message", "text")
	if message == "" {
		message = stringify(input)
	}

	if err := e.notifier.Send(ctx, target, message); err != nil {
		return map[string]any{"error": err.Error(), "success": false, "provider": e.provider}, nil
	}
	return map[string]any{
		"success":   true,
		"provider":  e.provider,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// TelegramExecutor handles the "Telegram" node type. The bot API endpoint is
// composed from the configured token and chat id.
type TelegramExecutor struct {
	notifier Notifier
}

func (e *TelegramExecutor) Execute(ctx context.Context, node Node, input any) (map[string]any, error) {
	token := paramString(node, "botToken", "bot_token", "token")
	chatID := paramString(node, "chatId", "chat_id")
	message := paramString(node, "message", "text")
	if message == "" {
		message = stringify(input)
	}

	target := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage?chat_id=%s", token, chatID)
	if err := e.notifier.Send(ctx, target, message); err != nil {
		return map[string]any{"error": err.Error(), "success": false, "provider": "telegram"}, nil
	}
	return map[string]any{
		"success":   true,
		"provider":  "telegram",
		"chat_id":   chatID,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// GmailExecutor handles the "Gmail" node type via an SMTP-style mailer.
type GmailExecutor struct {
	mailer Notifier
}

func (e *GmailExecutor) Execute(ctx context.Context, node Node, input any) (map[string]any, error) {
	to := paramString(node, "to", "recipient", "sendTo")
	subject := paramString(node, "subject")
	body := paramString(node, "body", "message", "text")
	if body == "" {
		body = stringify(input)
	}

	if err := e.mailer.Send(ctx, to, "Subject: "+subject+"\r\n\r\n"+body); err != nil {
		return map[string]any{"error": err.Error(), "success": false, "provider": "gmail"}, nil
	}
	return map[string]any{
		"success":   true,
		"provider":  "gmail",
		"to":        to,
		"subject":   subject,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// IntegrationStubExecutor backs the vendor integration node types (CRM,
// e-commerce, devops, cloud, marketing, social). It returns a deterministic
// simulated-success payload so demo graphs run without credentials.
type IntegrationStubExecutor struct {
	category string
}

func (e *IntegrationStubExecutor) Execute(_ context.Context, node Node, input any) (map[string]any, error) {
	operation := paramString(node, "operation", "action")
	if operation == "" {
		operation = "execute"
	}
	return map[string]any{
		"success":   true,
		"simulated": true,
		"node_type": node.Type,
		"category":  e.category,
		"operation": operation,
		"input":     input,
	}, nil
}

// DateTimeExecutor handles the "Date & Time" node type.
type DateTimeExecutor struct{}

func (e *DateTimeExecutor) Execute(_ context.Context, node Node, _ any) (map[string]any, error) {
	now := time.Now().UTC()
	format := paramString(node, "format")
	layout := time.RFC3339
	switch format {
	case "", "rfc3339":
	case "unix":
		return map[string]any{"datetime": now.Unix(), "timestamp": now.Unix(), "format": "unix"}, nil
	case "date":
		layout = "2006-01-02"
	case "time":
		layout = "15:04:05"
	default:
		layout = format
	}
	return map[string]any{
		"datetime":  now.Format(layout),
		"timestamp": now.Unix(),
		"format":    format,
	}, nil
}

// SetExecutor handles the "Set" node type: it overlays configured values on
// top of the (map-shaped) input.
type SetExecutor struct{}

func (e *SetExecutor) Execute(_ context.Context, node Node, input any) (map[string]any, error) {
	out := make(map[string]any)
	if m, ok := input.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	values, _ := paramAny(node, "values", "fields").(map[string]any)
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

// JSONExecutor handles the "JSON" node type: parse a string input or
// stringify a structured one.
type JSONExecutor struct{}

func (e *JSONExecutor) Execute(_ context.Context, node Node, input any) (map[string]any, error) {
	op := paramString(node, "operation")
	switch op {
	case "stringify":
		raw, err := json.Marshal(input)
		if err != nil {
			return map[string]any{"error": err.Error(), "success": false}, nil
		}
		return map[string]any{"result": string(raw), "operation": op}, nil
	default: // parse
		s, ok := input.(string)
		if !ok {
			s = paramString(node, "value")
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return map[string]any{"error": err.Error(), "success": false}, nil
		}
		return map[string]any{"result": parsed, "operation": "parse"}, nil
	}
}

// CryptoExecutor handles the "Crypto" node type: hash a configured value or
// the stringified input.
type CryptoExecutor struct{}

func (e *CryptoExecutor) Execute(_ context.Context, node Node, input any) (map[string]any, error) {
	value := paramString(node, "value")
	if value == "" {
		value = stringify(input)
	}
	algorithm := paramString(node, "algorithm")

	var sum []byte
	switch algorithm {
	case "md5":
		h := md5.Sum([]byte(value))
		sum = h[:]
	case "sha1":
		h := sha1.Sum([]byte(value))
		sum = h[:]
	default:
		algorithm = "sha256"
		h := sha256.Sum256([]byte(value))
		sum = h[:]
	}

	return map[string]any{
		"hash":      hex.EncodeToString(sum),
		"algorithm": algorithm,
	}, nil
}

// evaluateCondition compares two untyped values with an IF/Switch operator.
// Numeric comparisons go through float64; everything else compares as
// strings.
func evaluateCondition(value1 any, operation string, value2 any) bool {
	switch operation {
	case "isEmpty":
		return isEmpty(value1)
	case "isNotEmpty":
		return !isEmpty(value1)
	}

	f1, ok1 := toFloat64(value1)
	f2, ok2 := toFloat64(value2)
	numeric := ok1 && ok2

	s1 := stringify(value1)
	s2 := stringify(value2)

	switch operation {
	case "equal":
		if numeric {
			return f1 == f2
		}
		return s1 == s2
	case "notEqual":
		if numeric {
			return f1 != f2
		}
		return s1 != s2
	case "larger":
		return numeric && f1 > f2
	case "largerEqual":
		return numeric && f1 >= f2
	case "smaller":
		return numeric && f1 < f2
	case "smallerEqual":
		return numeric && f1 <= f2
	case "contains":
		return strings.Contains(s1, s2)
	case "notContains":
		return !strings.Contains(s1, s2)
	default:
		return false
	}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

// truthy interprets an untyped value as a boolean.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s != "" && s != "false" && s != "0"
	default:
		if f, ok := toFloat64(v); ok {
			return f != 0
		}
		return !isEmpty(v)
	}
}

// paramAny returns the first present parameter among keys, checking the
// node's parameters first and its metadata as a legacy fallback.
func paramAny(node Node, keys ...string) any {
	for _, k := range keys {
		if v, ok := node.Data.Parameters[k]; ok && v != nil {
			return v
		}
	}
	for _, k := range keys {
		if v, ok := node.Data.Metadata[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// paramString is paramAny for string-valued configuration; non-string values
// are stringified.
func paramString(node Node, keys ...string) string {
	v := paramAny(node, keys...)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

// stringify renders a value the way a template would: strings as-is, whole
// numbers without the decimal point.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// toFloat64 converts an any value to float64, handling json numbers and the
// common integer types.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
