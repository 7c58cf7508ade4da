package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"markcal/internal/app"
	"markcal/internal/config"
	"markcal/internal/datekey"
	appLog "markcal/internal/log"
	"markcal/internal/marks"
	"markcal/internal/model"
)

// maxReasonBody caps PUT /api/reasons request bodies.
const maxReasonBody = 64 << 10

// Server exposes the calendar controller over HTTP.
type Server struct {
	cfg  *config.Config
	ctrl *app.Controller
	mux  *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, ctrl *app.Controller) *Server {
	s := &Server{
		cfg:  cfg,
		ctrl: ctrl,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="markcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, cfg *config.Config, ctrl *app.Controller) error {
	s := NewServer(cfg, ctrl)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/month", s.handleMonth)
	s.mux.HandleFunc("POST /api/month", s.handleSetMonth)
	s.mux.HandleFunc("POST /api/month/prev", s.handleNavigate(-1))
	s.mux.HandleFunc("POST /api/month/next", s.handleNavigate(1))
	s.mux.HandleFunc("POST /api/marks/toggle", s.handleToggle)
	s.mux.HandleFunc("GET /api/reasons", s.handleGetReason)
	s.mux.HandleFunc("PUT /api/reasons", s.handlePutReason)
	s.mux.HandleFunc("GET /calendar.svg", s.handleSVG)
	s.mux.HandleFunc("GET /export.png", s.handleExportPNG)
	s.mux.HandleFunc("GET /export.ics", s.handleExportICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// cellDTO is a JSON-friendly view of one grid cell.
type cellDTO struct {
	Date         model.DateKey `json:"date"`
	Day          int           `json:"day"`
	CurrentMonth bool          `json:"current_month"`
	Today        bool          `json:"today"`
	Weekend      string        `json:"weekend,omitempty"`
	Holiday      string        `json:"holiday,omitempty"`
	Mark         model.Mark    `json:"mark"`
}

// annotationDTO is one legend row.
type annotationDTO struct {
	Date   model.DateKey `json:"date"`
	Reason string        `json:"reason"`
}

// monthResponse is the JSON response shape for /api/month.
type monthResponse struct {
	Year     int             `json:"year"`
	Month    int             `json:"month"`
	Title    string          `json:"title"`
	Cells    []cellDTO       `json:"cells"`
	Cross    []annotationDTO `json:"cross"`
	Triangle []annotationDTO `json:"triangle"`
}

func weekendName(w model.WeekendKind) string {
	switch w {
	case model.WeekendSunday:
		return "sunday"
	case model.WeekendSaturday:
		return "saturday"
	default:
		return ""
	}
}

func toAnnotationDTOs(in []model.Annotation) []annotationDTO {
	out := make([]annotationDTO, 0, len(in))
	for _, a := range in {
		out = append(out, annotationDTO{Date: a.Key, Reason: a.Reason})
	}
	return out
}

func (s *Server) monthView() monthResponse {
	ref, g := s.ctrl.Month()

	cells := make([]cellDTO, 0, len(g))
	for _, c := range g {
		cells = append(cells, cellDTO{
			Date:         c.Key,
			Day:          c.Date.Day(),
			CurrentMonth: c.CurrentMonth,
			Today:        c.Today,
			Weekend:      weekendName(c.Weekend),
			Holiday:      c.Holiday,
			Mark:         c.Mark,
		})
	}

	return monthResponse{
		Year:     ref.Year(),
		Month:    int(ref.Month()),
		Title:    s.ctrl.Labels().MonthTitle(ref.Year(), ref.Month()),
		Cells:    cells,
		Cross:    toAnnotationDTOs(s.ctrl.ListByKind(model.MarkCross)),
		Triangle: toAnnotationDTOs(s.ctrl.ListByKind(model.MarkTriangle)),
	}
}

func (s *Server) handleMonth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monthView())
}

// handleSetMonth jumps to ?year=&month=.
func (s *Server) handleSetMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, errY := strconv.Atoi(q.Get("year"))
	month, errM := strconv.Atoi(q.Get("month"))
	if errY != nil || errM != nil {
		writeError(w, http.StatusBadRequest, "year and month are required")
		return
	}
	if _, err := s.ctrl.SetMonth(year, time.Month(month)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.monthView())
}

func (s *Server) handleNavigate(delta int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.ctrl.NavigateMonth(delta)
		writeJSON(w, http.StatusOK, s.monthView())
	}
}

type toggleResponse struct {
	Date model.DateKey `json:"date"`
	Mark model.Mark    `json:"mark"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	key, err := datekey.Parse(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	m := s.ctrl.ToggleMark(key)
	writeJSON(w, http.StatusOK, toggleResponse{Date: key, Mark: m})
}

type reasonBody struct {
	Text string `json:"text"`
}

// reasonTarget parses ?date=&kind= for the reason endpoints.
func reasonTarget(r *http.Request) (model.DateKey, model.Mark, error) {
	q := r.URL.Query()
	key, err := datekey.Parse(q.Get("date"))
	if err != nil {
		return "", model.MarkNone, errors.New("date must be YYYY-MM-DD")
	}
	kind, err := model.ParseMark(q.Get("kind"))
	if err != nil || !kind.Annotatable() {
		return "", model.MarkNone, errors.New("kind must be cross or triangle")
	}
	return key, kind, nil
}

func (s *Server) handleGetReason(w http.ResponseWriter, r *http.Request) {
	key, kind, err := reasonTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reasonBody{Text: s.ctrl.Reason(key, kind)})
}

func (s *Server) handlePutReason(w http.ResponseWriter, r *http.Request) {
	key, kind, err := reasonTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body reasonBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxReasonBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"text\": \"...\"}")
		return
	}
	if err := s.ctrl.SetReason(key, kind, body.Text); err != nil {
		if errors.Is(err, marks.ErrNotAnnotatable) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Error("set reason failed", err, "date", string(key))
		writeError(w, http.StatusInternalServerError, "failed to store reason")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSVG(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	s.ctrl.Document().WriteSVG(w)
}

func (s *Server) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.ctrl.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	ref := s.ctrl.Reference()
	name := "calendar-" + ref.Format("2006-01") + ".ics"
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.ctrl.ICS())
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		appLog.Error("failed to encode JSON response", err)
	}
}

// writeError writes a small JSON error payload.
func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
