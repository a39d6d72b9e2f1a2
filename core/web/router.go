// Package web exposes the HTTP ingress: the WhatsApp inbound message webhook
// and the payment gateway result webhook.
package web

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mufaro-dev/wabank/core/logger"
	"github.com/mufaro-dev/wabank/core/notify"
	"github.com/mufaro-dev/wabank/core/session"
	"github.com/mufaro-dev/wabank/core/settlement"
)

// Options carries the collaborators the router dispatches into.
type Options struct {
	Coordinator *session.Coordinator
	Notifier    notify.Notifier
	Settlement  *settlement.Protocol
	// SenderID is the WhatsApp number the bot answers as; it doubles as the
	// provider half of the conversation key.
	SenderID string
	// FakePaid rewrites every gateway callback status to paid. Sandbox
	// integrations never deliver a real paid status.
	FakePaid bool
}

// NewRouter builds the HTTP handler tree.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", handleHealth)

	r.Route("/api/webhooks", func(api chi.Router) {
		api.Post("/whatsapp", handleWhatsApp(opts))
		api.Post("/paynow", handlePaynow(opts))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

// handleWhatsApp receives one inbound message, runs a conversation turn, and
// sends the reply out of band. The webhook itself always answers 200 with an
// empty body so the transport does not echo anything on its own.
func handleWhatsApp(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed form body", http.StatusBadRequest)
			return
		}

		consumerID := strings.TrimSpace(r.PostFormValue("WaId"))
		if consumerID == "" {
			http.Error(w, "missing WaId", http.StatusBadRequest)
			return
		}

		payload := session.Payload{
			Message:     strings.TrimSpace(r.PostFormValue("Body")),
			ProfileName: strings.TrimSpace(r.PostFormValue("ProfileName")),
		}

		ctx := logger.WithConversation(r.Context(), opts.SenderID, consumerID)
		reply, err := opts.Coordinator.HandleMessage(ctx, opts.SenderID, consumerID, payload)
		if err != nil {
			logger.Error(ctx, "web", "whatsapp.turn.fail",
				slog.String("consumer_id", consumerID),
				slog.String("err", err.Error()),
			)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if reply != "" {
			if err := opts.Notifier.Send(ctx, consumerID, reply); err != nil {
				logger.Warn(ctx, "web", "whatsapp.reply.fail",
					slog.String("consumer_id", consumerID),
					slog.String("err", err.Error()),
				)
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}

// handlePaynow receives the gateway result callback. The raw body is kept
// because hash verification depends on the original field order.
func handlePaynow(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
		if err != nil {
			http.Error(w, "unreadable body", http.StatusBadRequest)
			return
		}

		values, err := url.ParseQuery(string(raw))
		if err != nil {
			http.Error(w, "malformed form body", http.StatusBadRequest)
			return
		}

		cb := settlement.Callback{
			Status:    values.Get("status"),
			Hash:      values.Get("hash"),
			Reference: values.Get("reference"),
			Raw:       string(raw),
		}
		if opts.FakePaid {
			cb.Status = "Paid"
		}

		outcome, err := opts.Settlement.HandleCallback(r.Context(), cb)
		switch outcome {
		case settlement.OutcomeAccepted, settlement.OutcomeIgnored:
			w.WriteHeader(http.StatusOK)
		case settlement.OutcomeRejected:
			http.Error(w, "rejected", http.StatusBadRequest)
		default:
			logger.Error(r.Context(), "web", "paynow.settle.fail",
				slog.String("reference", cb.Reference),
				slog.String("err", err.Error()),
			)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// requestLogger emits one structured record per request and threads the chi
// request id into the context as the correlation id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithRID(r.Context(), middleware.GetReqID(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info(ctx, "web", "http.request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_code", ww.Status()),
			slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
		)
	})
}
