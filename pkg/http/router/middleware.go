package router

import (
	"encoding/json"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	REQUEST_ID_HEADER = "X-Request-Id"

	RATE_LIMIT_PER_SECOND = 20
	RATE_LIMIT_BURST      = 40
	RATE_LIMIT_CLIENTS    = 1 << 14
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	resp.Error.Code = code
	resp.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// EnforceJSONHandler. rejects request bodies that are not application/json.
func EnforceJSONHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				writeError(w, http.StatusBadRequest, "bad_request", "Content-Type header is required")
				return
			}
			mt, _, err := mime.ParseMediaType(contentType)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", "malformed Content-Type header")
				return
			}
			if mt != "application/json" {
				writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type header must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (api *API) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				api.log.Error("panic while serving request", zap.String("path", r.URL.Path), zap.Any("panic", err))
				writeError(w, http.StatusInternalServerError, "internal_server_error",
					"the server encountered a problem and could not process your request")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RealIP. sets r.RemoteAddr from X-Forwarded-For or X-Real-Ip.
func RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := realIP(r); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip.String()
		}
	}
	return ""
}

// Heartbeat. answers GET/HEAD /<endpoint> with 200 before the router.
func Heartbeat(endpoint string) func(http.Handler) http.Handler {
	endpoint = "/" + strings.TrimPrefix(endpoint, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (r.Method == http.MethodGet || r.Method == http.MethodHead) && strings.EqualFold(r.URL.Path, endpoint) {
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Logger. one zap line per request.
func Logger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.String("remoteAddr", r.RemoteAddr),
				zap.String("requestID", w.Header().Get(REQUEST_ID_HEADER)),
				zap.Duration("took", time.Since(start)))
		})
	}
}

// Labels. tags every request and response with a request id.
func Labels(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(REQUEST_ID_HEADER)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(REQUEST_ID_HEADER, id)
		}
		w.Header().Set(REQUEST_ID_HEADER, id)
		next.ServeHTTP(w, r)
	})
}

// ClientLimiter. token bucket per client ip, least recently seen clients are evicted.
type ClientLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	limiters, _ := lru.New[string, *rate.Limiter](RATE_LIMIT_CLIENTS)
	return &ClientLimiter{
		limiters: limiters,
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (cl *ClientLimiter) Allow(client string) bool {
	limiter, ok := cl.limiters.Get(client)
	if !ok {
		limiter = rate.NewLimiter(cl.rps, cl.burst)
		if prev, found, _ := cl.limiters.PeekOrAdd(client, limiter); found {
			limiter = prev
		}
	}
	return limiter.Allow()
}

func (cl *ClientLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			client = r.RemoteAddr
		}
		if !cl.Allow(client) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Limit. default per client rate limit.
func Limit(next http.Handler) http.Handler {
	return NewClientLimiter(RATE_LIMIT_PER_SECOND, RATE_LIMIT_BURST).Handler(next)
}
