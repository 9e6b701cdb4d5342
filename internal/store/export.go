package store

import (
	"context"
	"fmt"
	"time"
)

// Export is the JSON document written by the export command.
type Export struct {
	Info       ExamInfo   `json:"info"`
	ExportedAt time.Time  `json:"exportedAt"`
	Passed     int        `json:"passed"`
	Snapshots  []Snapshot `json:"snapshots"`
}

// ExportSnapshots builds an export of every submitted exam.
func (s *Store) ExportSnapshots(ctx context.Context) (Export, error) {
	info, err := s.GetExamInfo(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("read exam info: %w", err)
	}
	snaps, err := s.Snapshots(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("list snapshots: %w", err)
	}

	out := Export{Info: info, ExportedAt: time.Now().UTC(), Snapshots: snaps}
	if out.Snapshots == nil {
		out.Snapshots = []Snapshot{}
	}
	for _, snap := range snaps {
		if snap.PassVerdict {
			out.Passed++
		}
	}
	return out, nil
}
