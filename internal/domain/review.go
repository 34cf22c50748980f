package domain

import (
	"fmt"
	"slices"
	"time"
)

type Stage string

const (
	StagePendingReview    Stage = "pending_review"
	StageReviewScheduled  Stage = "review_scheduled"
	StageFeedbackProvided Stage = "feedback_provided"
	StageUnderApproval    Stage = "under_approval"
	StageReviewApproved   Stage = "review_approved"
	StageReviewRejected   Stage = "review_rejected"
)

const (
	MinRating = 1
	MaxRating = 5
)

// stageTransitions is the only source of truth for how a review may move.
// review_rejected loops back to feedback collection; review_approved is terminal.
var stageTransitions = map[Stage][]Stage{
	StagePendingReview:    {StageReviewScheduled},
	StageReviewScheduled:  {StageFeedbackProvided},
	StageFeedbackProvided: {StageUnderApproval},
	StageUnderApproval:    {StageReviewApproved, StageReviewRejected},
	StageReviewRejected:   {StageFeedbackProvided},
	StageReviewApproved:   {},
}

func Stages() []Stage {
	return []Stage{
		StagePendingReview,
		StageReviewScheduled,
		StageFeedbackProvided,
		StageUnderApproval,
		StageReviewApproved,
		StageReviewRejected,
	}
}

func (s Stage) Valid() bool {
	_, ok := stageTransitions[s]
	return ok
}

func (s Stage) Terminal() bool {
	return s.Valid() && len(stageTransitions[s]) == 0
}

// AllowedNext returns a copy of the stages reachable in one step from s.
func (s Stage) AllowedNext() []Stage {
	return slices.Clone(stageTransitions[s])
}

func (s Stage) CanTransitionTo(next Stage) bool {
	return slices.Contains(stageTransitions[s], next)
}

type PerformanceReview struct {
	ID           int64     `json:"id"`
	EmployeeID   int64     `json:"employee"`
	EmployeeName string    `json:"employeeName"`
	DepartmentID int64     `json:"department"`
	ReviewerID   *int64    `json:"reviewer"`
	Stage        Stage     `json:"stage"`
	ReviewDate   *Date     `json:"reviewDate"`
	Rating       *int      `json:"rating"`
	Feedback     string    `json:"feedback"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Version      int32     `json:"-"`
}

// AttemptTransition moves the review to target if the stage table allows it.
// On failure the review is left untouched.
func (pr *PerformanceReview) AttemptTransition(target Stage) error {
	if !pr.Stage.CanTransitionTo(target) {
		return &InvalidTransitionError{From: pr.Stage, To: target}
	}
	pr.Stage = target
	return nil
}

func ValidateRating(rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < MinRating || *rating > MaxRating {
		return NewFieldError("rating", fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	return nil
}
