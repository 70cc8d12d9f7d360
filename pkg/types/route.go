// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"io"
	"time"
)

// Route identifies one field-work itinerary by its code (e.g. "L0459").
// Number is the numeric part of the code and defines the processing order.
type Route struct {
	ID     string `json:"id" yaml:"id"`
	Number int    `json:"number" yaml:"number"`
}

func (r Route) String() string { return r.ID }

// Stage names one step of the document pipeline.
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageHarvest   Stage = "harvest"
	StageAssemble  Stage = "assemble"
	StagePartition Stage = "partition"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageNormalize, StageHarvest, StageAssemble, StagePartition}

// RouteStatus is the outcome of one route within one stage run.
type RouteStatus string

const (
	StatusSucceeded RouteStatus = "succeeded"
	StatusSkipped   RouteStatus = "skipped"
	StatusFailed    RouteStatus = "failed"
)

// RouteResult records what a stage did with a single route.
type RouteResult struct {
	Route  Route       `json:"route" yaml:"route"`
	Status RouteStatus `json:"status" yaml:"status"`

	// Reason explains a skip or failure.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Output is the path written for this route, if any.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Detail carries stage-specific notes (e.g. "3 sketches inserted").
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`

	// Fingerprints lists content hashes of images handled for this route.
	Fingerprints []string `json:"fingerprints,omitempty" yaml:"fingerprints,omitempty"`
}

// StageSummary holds the per-route outcomes of a stage run.
type StageSummary struct {
	Stage     Stage         `json:"stage" yaml:"stage"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Results   []RouteResult `json:"results" yaml:"results"`

	// Outputs lists stage-level artifacts that are not tied to one route
	// (volume files for the partition stage).
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

func (s *StageSummary) count(status RouteStatus) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Succeeded returns the number of routes that produced output.
func (s StageSummary) Succeeded() int { return s.count(StatusSucceeded) }

// Skipped returns the number of routes that were intentionally not processed.
func (s StageSummary) Skipped() int { return s.count(StatusSkipped) }

// Failed returns the number of routes that failed.
func (s StageSummary) Failed() int { return s.count(StatusFailed) }

// Total returns the number of routes processed.
func (s StageSummary) Total() int { return len(s.Results) }

// HasFailures reports whether any route failed.
func (s StageSummary) HasFailures() bool { return s.Failed() > 0 }

// Failures returns the failed route results in processing order.
func (s StageSummary) Failures() []RouteResult {
	var out []RouteResult
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// Succeed records a successful route and prints its status line.
func (s *StageSummary) Succeed(w io.Writer, route Route, output, detail string) {
	s.Results = append(s.Results, RouteResult{Route: route, Status: StatusSucceeded, Output: output, Detail: detail})
	if detail != "" {
		fmt.Fprintf(w, "%s: %s (%s)\n", s.Stage.pastTense(), route.ID, detail)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", s.Stage.pastTense(), route.ID)
}

// Skip records a skipped route and prints its status line.
func (s *StageSummary) Skip(w io.Writer, route Route, reason string) {
	s.Results = append(s.Results, RouteResult{Route: route, Status: StatusSkipped, Reason: reason})
	fmt.Fprintf(w, "skipped: %s (%s)\n", route.ID, reason)
}

// Fail records a failed route and prints its status line.
func (s *StageSummary) Fail(w io.Writer, route Route, err error) {
	s.Results = append(s.Results, RouteResult{Route: route, Status: StatusFailed, Reason: err.Error()})
	fmt.Fprintf(w, "failed:  %s (%v)\n", route.ID, err)
}

// Last returns the most recently recorded result, or nil.
func (s *StageSummary) Last() *RouteResult {
	if len(s.Results) == 0 {
		return nil
	}
	return &s.Results[len(s.Results)-1]
}

// PrintSummary writes the closing batch line.
func (s StageSummary) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\nBatch summary: %d %s, %d skipped, %d failed (total: %d)\n",
		s.Succeeded(), s.Stage.pastTense(), s.Skipped(), s.Failed(), s.Total())
}

func (st Stage) pastTense() string {
	switch st {
	case StageNormalize:
		return "normalized"
	case StageHarvest:
		return "harvested"
	case StageAssemble:
		return "assembled"
	case StagePartition:
		return "bound"
	default:
		return "done"
	}
}

// NewStageSummary starts an empty summary for st.
func NewStageSummary(st Stage) StageSummary {
	return StageSummary{Stage: st, StartedAt: time.Now()}
}

// Progress is emitted once per route as a stage advances. A front-end can
// use it to drive a progress display.
type Progress struct {
	Stage  Stage       `json:"stage"`
	Route  Route       `json:"route"`
	Index  int         `json:"index"`
	Total  int         `json:"total"`
	Status RouteStatus `json:"status"`
}

// ProgressFunc receives progress events. A nil ProgressFunc is ignored.
type ProgressFunc func(Progress)

// Emit calls f when it is set.
func (f ProgressFunc) Emit(p Progress) {
	if f != nil {
		f(p)
	}
}
