package botapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerWebhookRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /webhook", handler.WebhookPing)
	mux.HandleFunc("POST /webhook", handler.Webhook)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/poll-cycle", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunPollCycleJob)))
}
