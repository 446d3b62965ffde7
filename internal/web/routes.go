package web

import "fmt"

const (
	Home    = "/"
	Query   = "/rag/query"
	Reload  = "/rag/reload"
	Records = "/rag/records"
	Health  = "/health"
	Ready   = "/ready"
	Events  = "/events"
	Metrics = "/metrics"
	Swagger = "/swagger/"
)

// WebhookRoute generates the path for a webhook source
func WebhookRoute(source string) string {
	return fmt.Sprintf("/webhooks/%s", source)
}
