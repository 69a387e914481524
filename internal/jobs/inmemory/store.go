package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/ledger-reconciler/internal/jobs"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// Store keeps job snapshots in a map. Jobs are lost on restart.
type Store struct {
	mu   sync.RWMutex
	byID map[string]jobs.ProcessDocumentJob
}

var _ jobs.JobStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{byID: make(map[string]jobs.ProcessDocumentJob)}
}

// SaveJob stores a snapshot of job, replacing any earlier one.
func (s *Store) SaveJob(_ context.Context, job *jobs.ProcessDocumentJob) error {
	if job.JobID == "" {
		return errors.New("SaveJob: missing job id")
	}
	s.mu.Lock()
	s.byID[job.JobID] = *job
	s.mu.Unlock()
	return nil
}

func (s *Store) GetJob(_ context.Context, jobID string) (*jobs.ProcessDocumentJob, error) {
	s.mu.RLock()
	snap, ok := s.byID[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	return &snap, nil
}

func (s *Store) ListJobs(_ context.Context, filter jobs.JobFilter) ([]*jobs.ProcessDocumentJob, error) {
	s.mu.RLock()
	out := make([]*jobs.ProcessDocumentJob, 0, len(s.byID))
	for _, snap := range s.byID {
		if filter.DocumentID != "" && snap.DocumentID != filter.DocumentID {
			continue
		}
		if filter.Status != "" && snap.Status != filter.Status {
			continue
		}
		snap := snap
		out = append(out, &snap)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*jobs.ProcessDocumentJob{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}
