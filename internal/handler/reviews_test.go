package handler

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

func pendingReview() *domain.PerformanceReview {
	return &domain.PerformanceReview{ID: 7, EmployeeID: 100, EmployeeName: "Alice", DepartmentID: 11, Stage: domain.StagePendingReview}
}

func TestTransitionRejectedWithAllowedStages(t *testing.T) {
	env := setupHandler(t)
	u, e := managerAccount(1, 10, 11)
	access := env.login(t, u, e)
	pr := pendingReview()

	env.mock.ExpectQuery(`FROM performance_reviews r (.+) WHERE r.id = \$1`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FOR UPDATE OF r`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))
	env.mock.ExpectRollback()

	rec, resp := env.do(t, http.MethodPost, "/performance-reviews/7/transition", access, map[string]any{"stage": "feedback_provided"})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.False(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "pending_review", data["from"])
	assert.Equal(t, "feedback_provided", data["to"])
	assert.Equal(t, []any{"review_scheduled"}, data["allowed"])
	assert.Empty(t, env.pub.msgs)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTransitionFromApprovedListsNoStages(t *testing.T) {
	env := setupHandler(t)
	u, e := managerAccount(1, 10, 11)
	access := env.login(t, u, e)
	pr := pendingReview()
	pr.Stage = domain.StageReviewApproved

	env.mock.ExpectQuery(`FROM performance_reviews r (.+) WHERE r.id = \$1`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FOR UPDATE OF r`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))
	env.mock.ExpectRollback()

	rec, resp := env.do(t, http.MethodPost, "/performance-reviews/7/transition", access, map[string]any{"stage": "under_approval"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{}, resp.Data.(map[string]any)["allowed"])
}

func TestTransitionUnknownStage(t *testing.T) {
	env := setupHandler(t)
	u, e := managerAccount(1, 10, 11)
	access := env.login(t, u, e)
	pr := pendingReview()

	env.mock.ExpectQuery(`FROM performance_reviews r (.+) WHERE r.id = \$1`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))

	rec, resp := env.do(t, http.MethodPost, "/performance-reviews/7/transition", access, map[string]any{"stage": "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Errors, "stage")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTransitionCommitsAndNotifies(t *testing.T) {
	env := setupHandler(t)
	u, e := managerAccount(1, 10, 11)
	access := env.login(t, u, e)
	pr := pendingReview()
	subject := &domain.Employee{ID: 100, UserID: 20, CompanyID: 1, DepartmentID: 11, Name: "Alice", Email: "alice@example.com"}

	env.mock.ExpectQuery(`FROM performance_reviews r (.+) WHERE r.id = \$1`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FOR UPDATE OF r`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))
	env.mock.ExpectQuery(`UPDATE performance_reviews`).
		WithArgs(nil, "review_scheduled", nil, nil, "", pr.ID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}).AddRow(time.Now(), int32(2)))
	env.mock.ExpectCommit()
	env.mock.ExpectQuery(`WHERE e.id = \$1`).WithArgs(subject.ID).WillReturnRows(employeeRows(subject))

	rec, resp := env.do(t, http.MethodPost, "/performance-reviews/7/transition", access, map[string]any{"stage": "review_scheduled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "review_scheduled", resp.Data.(map[string]any)["stage"])

	require.Len(t, env.pub.msgs, 1)
	msg := env.pub.msgs[0]
	assert.Equal(t, domain.MailReviewStageChanged, msg.Type)
	assert.Equal(t, "alice@example.com", msg.To)
	data := msg.Data.(domain.ReviewStageChangedMailData)
	assert.Equal(t, domain.StagePendingReview, data.From)
	assert.Equal(t, domain.StageReviewScheduled, data.To)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestEmployeeCannotSeeOthersReview(t *testing.T) {
	env := setupHandler(t)
	u, e := staffAccount(2, 200, 11)
	access := env.login(t, u, e)
	pr := pendingReview()

	env.mock.ExpectQuery(`FROM performance_reviews r (.+) WHERE r.id = \$1`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))

	rec, _ := env.do(t, http.MethodGet, "/performance-reviews/7", access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestEmployeeCannotTransitionOwnReview(t *testing.T) {
	env := setupHandler(t)
	u, e := staffAccount(20, 100, 11)
	access := env.login(t, u, e)
	pr := pendingReview()

	env.mock.ExpectQuery(`FROM performance_reviews r (.+) WHERE r.id = \$1`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))

	rec, _ := env.do(t, http.MethodPost, "/performance-reviews/7/transition", access, map[string]any{"stage": "review_scheduled"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestManagerOutsideDepartmentCannotWrite(t *testing.T) {
	env := setupHandler(t)
	u, e := managerAccount(1, 10, 12)
	access := env.login(t, u, e)
	pr := pendingReview()

	env.mock.ExpectQuery(`FROM performance_reviews r (.+) WHERE r.id = \$1`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))

	rec, _ := env.do(t, http.MethodPatch, "/performance-reviews/7", access, map[string]any{"feedback": "solid quarter"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestReviewNotFound(t *testing.T) {
	env := setupHandler(t)
	u, e := managerAccount(1, 10, 11)
	access := env.login(t, u, e)

	env.mock.ExpectQuery(`FROM performance_reviews r (.+) WHERE r.id = \$1`).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	rec, resp := env.do(t, http.MethodGet, "/performance-reviews/99", access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "performance review not found", resp.Message)

	access = env.login(t, u, e)
	rec, _ = env.do(t, http.MethodGet, "/performance-reviews/abc", access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchStageUsesTransitionTable(t *testing.T) {
	env := setupHandler(t)
	u, e := managerAccount(1, 10, 11)
	access := env.login(t, u, e)
	pr := pendingReview()

	env.mock.ExpectQuery(`FROM performance_reviews r (.+) WHERE r.id = \$1`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FOR UPDATE OF r`).WithArgs(pr.ID).WillReturnRows(reviewRows(pr))
	env.mock.ExpectRollback()

	rec, resp := env.do(t, http.MethodPatch, "/performance-reviews/7", access, map[string]any{
		"stage":    "review_approved",
		"feedback": "skipping ahead",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	data := resp.Data.(map[string]any)
	assert.Equal(t, "pending_review", data["from"])
	assert.Equal(t, "review_approved", data["to"])
	assert.Equal(t, []any{"review_scheduled"}, data["allowed"])
	assert.Empty(t, env.pub.msgs)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}
