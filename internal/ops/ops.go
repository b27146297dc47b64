package ops

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"

	"github.com/mvidal/repobot/internal/fsx"
	"github.com/mvidal/repobot/internal/session"
)

// Handler serves the operational endpoints: a plain health check and a stats
// snapshot for whoever runs the bot.
type Handler struct {
	cache    *session.SearchCache
	tracker  *session.Tracker
	explorer *fsx.Explorer
	log      *logrus.Logger
	started  time.Time
}

func NewHandler(cache *session.SearchCache, tracker *session.Tracker, explorer *fsx.Explorer, log *logrus.Logger) *Handler {
	return &Handler{
		cache:    cache,
		tracker:  tracker,
		explorer: explorer,
		log:      log,
		started:  time.Now(),
	}
}

// StatsResponse is the JSON body of GET /stats.
type StatsResponse struct {
	UptimeSeconds   int64   `json:"uptimeSeconds"`
	SearchSessions  int     `json:"searchSessions"`
	PendingOps      int     `json:"pendingOps"`
	DiskUsedPercent float64 `json:"diskUsedPercent"`
	DiskFreeBytes   uint64  `json:"diskFreeBytes"`
	TempFiles       int     `json:"tempFiles"`
	TempBytes       int64   `json:"tempBytes"`
	RSSBytes        uint64  `json:"rssBytes,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	res := StatsResponse{
		UptimeSeconds:  int64(time.Since(h.started).Seconds()),
		SearchSessions: h.cache.Len(),
		PendingOps:     h.tracker.Len(),
	}
	if du, err := h.explorer.DiskUsage(); err == nil {
		res.DiskUsedPercent = du.UsedPercent
		res.DiskFreeBytes = du.Free
		res.TempFiles = du.TempFiles
		res.TempBytes = du.TempSize
	} else {
		h.log.WithError(err).Warn("reading disk usage for stats")
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			res.RSSBytes = mem.RSS
		}
	}
	respondJSON(w, http.StatusOK, res)
}

// BasicAuth guards everything except /health with constant-time credential
// checks.
func BasicAuth(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			user, pass, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 || subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="repobot"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func NewRouter(h *Handler, authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	return r
}
