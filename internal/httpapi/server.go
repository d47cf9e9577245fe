package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	apimw "github.com/hamed0406/sitewatch/internal/httpapi/middleware"
	"github.com/hamed0406/sitewatch/internal/probe"
	"github.com/hamed0406/sitewatch/internal/scheduler"
)

// Engine is the part of the scheduler the API drives.
type Engine interface {
	AddTarget(url string, intervalSeconds int, notifyOnChange bool) (domain.Target, error)
	RemoveTarget(id domain.TargetID) bool
	Target(id domain.TargetID) (domain.Target, error)
	Targets() []domain.Target
	CheckNow(ctx context.Context, id domain.TargetID) (domain.CheckResult, error)
	CheckURL(ctx context.Context, url string) (domain.CheckResult, error)
	Logs() []domain.CheckResult
	Resume() int
}

type Server struct {
	Logger *zap.Logger
	Engine Engine
	// Diagnose explains why an ad-hoc check came back down.
	Diagnose func(ctx context.Context, rawURL string) probe.DNSStatus
}

type RouterOptions struct {
	AllowedOrigins []string
	RateLimitRPM   int
	RateLimitBurst int
}

func NewServer(l *zap.Logger, e Engine) *Server {
	return &Server{Logger: l, Engine: e, Diagnose: probe.CheckDNS}
}

func (s *Server) Router(opts RouterOptions) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(apimw.RequestLog(s.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(opts.RateLimitRPM, opts.RateLimitBurst))
		r.Use(chimw.RequestSize(1 << 20))

		r.Get("/targets", s.handleListTargets)
		r.Post("/targets", s.handleAddTarget)
		r.Get("/targets/{id}", s.handleGetTarget)
		r.Delete("/targets/{id}", s.handleDeleteTarget)
		r.Post("/targets/{id}/check", s.handleCheckTarget)
		r.Get("/check", s.handleCheckURL)
		r.Get("/logs", s.handleListLogs)
		r.Post("/resume", s.handleResume)
	})

	return r
}

type addPayload struct {
	URL             string `json:"url"`
	IntervalSeconds int    `json:"interval_seconds"`
	NotifyOnChange  *bool  `json:"notify_on_change"`
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	notify := true
	if p.NotifyOnChange != nil {
		notify = *p.NotifyOnChange
	}

	t, err := s.Engine.AddTarget(prepareURL(p.URL), p.IntervalSeconds, notify)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"target": t})
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"targets": s.Engine.Targets()})
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	t, err := s.Engine.Target(domain.TargetID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target": t})
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	s.Engine.RemoveTarget(domain.TargetID(chi.URLParam(r, "id")))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCheckTarget(w http.ResponseWriter, r *http.Request) {
	res, err := s.Engine.CheckNow(r.Context(), domain.TargetID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res})
}

type checkResponse struct {
	Status    domain.Status    `json:"status"`
	Code      int              `json:"code"`
	LatencyMS float64          `json:"latency_ms"`
	Reason    string           `json:"reason,omitempty"`
	DNS       *probe.DNSStatus `json:"dns,omitempty"`
}

func (s *Server) handleCheckURL(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	target := prepareURL(raw)

	res, err := s.Engine.CheckURL(r.Context(), target)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := checkResponse{Status: res.Status, Code: res.HTTPCode, LatencyMS: res.LatencyMS, Reason: res.Reason}

	// If HTTP check fails, run DNS check
	if res.Status == domain.StatusDown && s.Diagnose != nil {
		dns := s.Diagnose(r.Context(), target)
		out.DNS = &dns
		s.Logger.Info("dns_check",
			zap.String("domain", dns.Domain),
			zap.String("class", dns.Class),
			zap.Strings("nameservers", dns.Nameservers),
			zap.String("cname", dns.CNAME),
			zap.String("resolver_error", dns.ResolverError),
		)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"logs": s.Engine.Logs()})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	n := s.Engine.Resume()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "triggered": n})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.Logger.Error("request_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// prepareURL adds https:// to bare hosts and normalizes valid URLs. Anything
// still invalid is passed through for the registry to reject.
func prepareURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u != "" && !strings.Contains(u, "://") {
		u = "https://" + u
	}
	if !isValidHTTPURL(u) {
		return u
	}
	return normalizeHTTPURL(u)
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return (s == "http" || s == "https") && u.Hostname() != ""
}

// normalizeHTTPURL lowercases scheme and host, drops default ports and a bare
// trailing "/".
func normalizeHTTPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	u.Host = host
	if u.Path == "/" {
		u.Path = ""
	}
	u.Fragment = ""
	return u.String()
}
