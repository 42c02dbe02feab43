package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/engine"
	"mercator-hq/auditor/pkg/report/history"
)

// RunResponse is the body returned by run endpoints.
type RunResponse struct {
	Run     *checks.Run    `json:"run"`
	Summary checks.Summary `json:"summary"`
	Fixes   []FixView      `json:"fixes,omitempty"`

	// ReportError is set when the run completed but a sink failed.
	ReportError string `json:"report_error,omitempty"`
}

// FixView is the JSON form of an attempted fix.
type FixView struct {
	CheckID      string `json:"check_id"`
	Fix          string `json:"fix"`
	Status       string `json:"status"`
	RowsAffected int64  `json:"rows_affected"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Registry.List())
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, ok := s.deps.Registry.Get(id)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", engine.ErrUnknownCheck, id))
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleRunCheck(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.Runner.RunByID(r.Context(), s.deps.Registry, chi.URLParam(r, "id"))
	s.respondRun(w, r, run, err)
}

func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.Runner.RunAll(r.Context(), s.deps.Registry.List())
	s.respondRun(w, r, run, err)
}

// respondRun writes a run, applying fixes when ?fix=true is set and a
// Fixer is configured. A run returned together with an error is a
// completed run whose reporting failed.
func (s *Server) respondRun(w http.ResponseWriter, r *http.Request, run *checks.Run, err error) {
	if run == nil {
		s.respondError(w, r, err)
		return
	}

	resp := RunResponse{Run: run, Summary: run.Summary()}
	if err != nil {
		s.logger.WarnContext(r.Context(), "run reporting failed", "run_id", run.ID, "error", err)
		resp.ReportError = err.Error()
	}

	if fix, _ := strconv.ParseBool(r.URL.Query().Get("fix")); fix {
		if s.deps.Fixer == nil {
			s.respondError(w, r, fmt.Errorf("%w: remediation is not enabled", errBadRequest))
			return
		}
		results, err := s.deps.Fixer.Apply(r.Context(), run)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		for _, res := range results {
			view := FixView{
				CheckID:      res.CheckID,
				Fix:          res.Fix,
				Status:       res.Status(),
				RowsAffected: res.RowsAffected,
			}
			if res.Err != nil {
				view.Error = res.Err.Error()
			}
			resp.Fixes = append(resp.Fixes, view)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	runs, err := s.deps.History.Runs(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*history.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.History.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Run: run, Summary: run.Summary()})
}

func (s *Server) handleQueryOutcomes(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	entries, err := s.deps.History.Query(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Schedule())
}

// parseQuery reads history filters from URL parameters: run_id, check_id,
// kind, since and until (RFC 3339), limit and offset.
func parseQuery(v url.Values) (*history.Query, error) {
	q := &history.Query{
		RunID:   v.Get("run_id"),
		CheckID: v.Get("check_id"),
		Kind:    checks.Kind(v.Get("kind")),
	}

	switch q.Kind {
	case "", checks.KindMulti, checks.KindNone, checks.KindQueryError:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", errBadRequest, q.Kind)
	}

	for name, dst := range map[string]**time.Time{"since": &q.StartTime, "until": &q.EndTime} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s: %v", errBadRequest, name, err)
		}
		*dst = &t
	}

	for name, dst := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
		}
		*dst = n
	}

	return q, nil
}
