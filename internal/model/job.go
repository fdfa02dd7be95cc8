package model

import (
	"fmt"
	"time"
)

// JobStatus is the orchestrator-owned state of a diligence job
type JobStatus string

const (
	JobPending       JobStatus = "pending"
	JobAnalyzing     JobStatus = "analyzing"
	JobExecuting     JobStatus = "executing"
	JobCrossChecking JobStatus = "cross_checking"
	JobSynthesizing  JobStatus = "synthesizing"
	JobCompleted     JobStatus = "completed"
	JobFailed        JobStatus = "failed"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobPending:       {JobAnalyzing, JobFailed},
	JobAnalyzing:     {JobExecuting, JobFailed},
	JobExecuting:     {JobCrossChecking, JobFailed},
	JobCrossChecking: {JobSynthesizing, JobFailed},
	JobSynthesizing:  {JobCompleted, JobFailed},
}

// IsTerminal reports whether the job is completed or failed
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// DiligenceJob is one investigation run
type DiligenceJob struct {
	ID                string       `json:"id"`
	Entity            Entity       `json:"entity"`
	Tier              DDTier       `json:"tier"`
	Status            JobStatus    `json:"status"`
	ActiveBranches    []BranchKind `json:"active_branches"`
	CompletedBranches []BranchKind `json:"completed_branches"`
	FailedBranches    []BranchKind `json:"failed_branches"`
	SkippedBranches   []BranchKind `json:"skipped_branches,omitempty"`
	Error             string       `json:"error,omitempty"`
	StartedAt         time.Time    `json:"started_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	FinishedAt        *time.Time   `json:"finished_at,omitempty"`
}

// NewJob creates a pending job
func NewJob(id string, entity Entity, now time.Time) *DiligenceJob {
	return &DiligenceJob{
		ID:        id,
		Entity:    entity,
		Status:    JobPending,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the job to the next state, rejecting illegal transitions
func (j *DiligenceJob) Advance(to JobStatus, now time.Time) error {
	for _, allowed := range jobTransitions[j.Status] {
		if allowed == to {
			j.Status = to
			j.UpdatedAt = now
			if to.IsTerminal() {
				finished := now
				j.FinishedAt = &finished
			}
			return nil
		}
	}
	return fmt.Errorf("illegal job transition %s -> %s", j.Status, to)
}

// Fail marks the job failed from any non-terminal state
func (j *DiligenceJob) Fail(reason string, now time.Time) {
	if j.Status.IsTerminal() {
		return
	}
	j.Status = JobFailed
	j.Error = reason
	j.UpdatedAt = now
	finished := now
	j.FinishedAt = &finished
}

// RecordBranches sorts terminal branch results into the job's branch lists
func (j *DiligenceJob) RecordBranches(results map[BranchKind]BranchResult) {
	j.ActiveBranches = nil
	j.CompletedBranches = nil
	j.FailedBranches = nil
	j.SkippedBranches = nil
	for _, kind := range SortedKinds(results) {
		switch results[kind].Status {
		case BranchCompleted:
			j.CompletedBranches = append(j.CompletedBranches, kind)
		case BranchFailed:
			j.FailedBranches = append(j.FailedBranches, kind)
		case BranchSkipped:
			j.SkippedBranches = append(j.SkippedBranches, kind)
		default:
			j.ActiveBranches = append(j.ActiveBranches, kind)
		}
	}
}
