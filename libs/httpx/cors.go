package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy is either allow-all ("*" in AllowedOrigins) or an explicit
// origin list. Credentials are never allowed; the API authenticates with
// bearer tokens, not cookies.
type CORSPolicy struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

var (
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	defaultCORSHeaders = []string{"Authorization", "Content-Type"}
)

type corsRules struct {
	anyOrigin bool
	origins   map[string]struct{}
	methods   string
	headers   string
	maxAge    string
}

func newCORSRules(p CORSPolicy) corsRules {
	rules := corsRules{origins: map[string]struct{}{}}
	for _, o := range p.AllowedOrigins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch o {
		case "":
		case "*":
			rules.anyOrigin = true
		default:
			rules.origins[strings.TrimSuffix(o, "/")] = struct{}{}
		}
	}
	methods, headers := p.AllowedMethods, p.AllowedHeaders
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	rules.methods = strings.ToUpper(strings.Join(methods, ", "))
	rules.headers = strings.Join(headers, ", ")
	if p.MaxAge > 0 {
		rules.maxAge = strconv.Itoa(int(p.MaxAge.Seconds()))
	}
	return rules
}

func (c corsRules) allowOrigin(origin string) (string, bool) {
	if c.anyOrigin {
		return "*", true
	}
	_, ok := c.origins[strings.ToLower(origin)]
	return origin, ok
}

// WithCORS answers preflights and stamps CORS headers on requests from
// allowed origins. Without any configured origin it is a no-op.
func WithCORS(p CORSPolicy) Middleware {
	rules := newCORSRules(p)
	if !rules.anyOrigin && len(rules.origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			if !rules.anyOrigin {
				h.Add("Vary", "Origin")
			}
			allowed, ok := rules.allowOrigin(origin)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Origin", allowed)

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", rules.methods)
			h.Set("Access-Control-Allow-Headers", rules.headers)
			if rules.maxAge != "" {
				h.Set("Access-Control-Max-Age", rules.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
