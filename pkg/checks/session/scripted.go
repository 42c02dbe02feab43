package session

import (
	"context"
	"sync"
)

// Script is the canned response of a ScriptedService for one query.
type Script struct {
	Rows int   // Row count returned when Err is nil
	Err  error // Failure returned by StartQuery
}

// ScriptedService is an in-memory Service answering from a fixed script.
// It backs dry runs and tests, and records every call so that session
// pairing can be asserted.
type ScriptedService struct {
	mu       sync.Mutex
	scripts  map[string]Script
	fallback Script
	open     bool

	starts   int
	ends     int
	overlaps int
	queries  []string
}

// NewScriptedService creates a service answering queries from scripts and
// everything else from fallback.
func NewScriptedService(scripts map[string]Script, fallback Script) *ScriptedService {
	if scripts == nil {
		scripts = make(map[string]Script)
	}
	return &ScriptedService{
		scripts:  scripts,
		fallback: fallback,
	}
}

// Set replaces the script for query.
func (s *ScriptedService) Set(query string, script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[query] = script
}

// StartQuery implements Service.
func (s *ScriptedService) StartQuery(ctx context.Context, text string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		s.overlaps++
	}
	s.open = true
	s.starts++
	s.queries = append(s.queries, text)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	script, ok := s.scripts[text]
	if !ok {
		script = s.fallback
	}
	if script.Err != nil {
		return nil, script.Err
	}
	return Count(script.Rows), nil
}

// EndQuery implements Service.
func (s *ScriptedService) EndQuery() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.ends++
	return nil
}

// Starts returns the number of StartQuery calls.
func (s *ScriptedService) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Ends returns the number of EndQuery calls.
func (s *ScriptedService) Ends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ends
}

// Overlaps returns how many times a session was started while another was open.
func (s *ScriptedService) Overlaps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlaps
}

// Queries returns the executed query texts in order.
func (s *ScriptedService) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.queries))
	copy(out, s.queries)
	return out
}
