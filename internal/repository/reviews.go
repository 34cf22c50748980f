package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

const reviewSelect = `
	SELECT
		r.id,
		r.employee_id,
		e.name,
		e.department_id,
		r.reviewer_id,
		r.stage,
		r.review_date,
		r.rating,
		r.feedback,
		r.created_at,
		r.updated_at,
		r.version
	FROM performance_reviews r
	JOIN employees e ON e.id = r.employee_id
`

const reviewFrom = ` FROM performance_reviews r JOIN employees e ON e.id = r.employee_id`

var reviewOrdering = map[string]string{
	"reviewDate":   "r.review_date",
	"rating":       "r.rating",
	"stage":        "r.stage",
	"employeeName": "e.name",
	"createdAt":    "r.created_at",
}

func reviewDst(pr *domain.PerformanceReview) []any {
	return []any{
		&pr.ID,
		&pr.EmployeeID,
		&pr.EmployeeName,
		&pr.DepartmentID,
		&pr.ReviewerID,
		&pr.Stage,
		&pr.ReviewDate,
		&pr.Rating,
		&pr.Feedback,
		&pr.CreatedAt,
		&pr.UpdatedAt,
		&pr.Version,
	}
}

func (r *Repository) ListReviews(ctx context.Context, scope policy.Scope, p ListParams) (*Page[*domain.PerformanceReview], error) {
	w := &whereBuilder{}
	switch {
	case scope.None:
		w.never()
	case scope.EmployeeID != nil:
		w.add("r.employee_id = ?", *scope.EmployeeID)
	case scope.DepartmentID != nil:
		w.add("e.department_id = ?", *scope.DepartmentID)
	case scope.CompanyID != nil:
		w.add("e.company_id = ?", *scope.CompanyID)
	}
	w.addSearch(p.Search, "e.name", "r.feedback")
	w.addFilters(p,
		map[string]string{"employee": "r.employee_id", "reviewer": "r.reviewer_id", "department": "e.department_id"},
		map[string]string{"stage": "r.stage"},
	)

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	page := &Page[*domain.PerformanceReview]{Page: p.Page, PageSize: p.PageSize, Results: []*domain.PerformanceReview{}}
	if err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*)`+reviewFrom+w.sql(), w.args...).Scan(&page.Count); err != nil {
		return nil, err
	}

	limit, args := w.limitOffset(p)
	query := reviewSelect + w.sql() + orderBy(p.Ordering, reviewOrdering, "r.created_at DESC") + limit

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		pr := &domain.PerformanceReview{}
		if err := rows.Scan(reviewDst(pr)...); err != nil {
			return nil, err
		}
		page.Results = append(page.Results, pr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return page, nil
}

func (r *Repository) GetReviewByID(ctx context.Context, id int64) (*domain.PerformanceReview, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	pr := &domain.PerformanceReview{}
	if err := r.dbpool.QueryRowContext(ctx, reviewSelect+` WHERE r.id = $1`, id).Scan(reviewDst(pr)...); err != nil {
		return nil, err
	}

	return pr, nil
}

// CreateReview inserts a review. New reviews always start in pending_review.
func (r *Repository) CreateReview(ctx context.Context, pr *domain.PerformanceReview) error {
	query := `
		INSERT INTO performance_reviews (employee_id, reviewer_id, stage, review_date, rating, feedback)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	pr.Stage = domain.StagePendingReview
	args := []any{pr.EmployeeID, pr.ReviewerID, pr.Stage, pr.ReviewDate, pr.Rating, pr.Feedback}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&pr.ID, &pr.CreatedAt, &pr.UpdatedAt, &pr.Version); err != nil {
		return err
	}

	return nil
}

// UpdateReview locks the review row, hands the current state to mutate and writes the
// result back in one transaction. Whatever mutate does to Stage is checked against the
// transition table before anything is written, so no caller can skip it.
func (r *Repository) UpdateReview(ctx context.Context, id int64, mutate func(pr *domain.PerformanceReview) error) (*domain.PerformanceReview, error) {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	pr := &domain.PerformanceReview{}
	if err := tx.QueryRowContext(ctx, reviewSelect+` WHERE r.id = $1 FOR UPDATE OF r`, id).Scan(reviewDst(pr)...); err != nil {
		return nil, err
	}

	current := pr.Stage
	if err := mutate(pr); err != nil {
		return nil, err
	}
	if pr.Stage != current && !current.CanTransitionTo(pr.Stage) {
		return nil, &domain.InvalidTransitionError{From: current, To: pr.Stage}
	}
	if err := domain.ValidateRating(pr.Rating); err != nil {
		return nil, err
	}

	query := `
		UPDATE performance_reviews
		SET
			reviewer_id = $1,
			stage = $2,
			review_date = $3,
			rating = $4,
			feedback = $5,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $6
		RETURNING updated_at, version
	`
	args := []any{pr.ReviewerID, pr.Stage, pr.ReviewDate, pr.Rating, pr.Feedback, pr.ID}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&pr.UpdatedAt, &pr.Version); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return pr, nil
}

// TransitionReview moves a review to target under a row lock. check runs against the
// locked row before the stage is touched and may veto the change.
func (r *Repository) TransitionReview(ctx context.Context, id int64, target domain.Stage, check func(pr *domain.PerformanceReview) error) (*domain.PerformanceReview, error) {
	return r.UpdateReview(ctx, id, func(pr *domain.PerformanceReview) error {
		if check != nil {
			if err := check(pr); err != nil {
				return err
			}
		}
		return pr.AttemptTransition(target)
	})
}

func (r *Repository) DeleteReview(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, `DELETE FROM performance_reviews WHERE id = $1`, id); err != nil {
		return err
	}

	return nil
}
