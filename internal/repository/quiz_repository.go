package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"quizportal/internal/entity"
)

const (
	uniqueViolation       = "23505"
	questionPositionKey   = "questions_quiz_position_key"
	addQuestionMaxRetries = 5
)

type QuizRepository struct {
	db *sql.DB
}

func NewQuizRepository(db *sql.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]entity.Quiz, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, batch_id, created_by, created_at
		FROM quizzes
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []entity.Quiz
	for rows.Next() {
		var q entity.Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.BatchID, &q.CreatedBy, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func (r *QuizRepository) GetQuiz(ctx context.Context, id int64) (*entity.Quiz, error) {
	var q entity.Quiz
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, batch_id, created_by, created_at
		FROM quizzes
		WHERE id = $1
	`, id).Scan(&q.ID, &q.Title, &q.BatchID, &q.CreatedBy, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return &q, nil
}

func (r *QuizRepository) CreateQuiz(ctx context.Context, q entity.Quiz) (*entity.Quiz, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO quizzes (title, batch_id, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, q.Title, q.BatchID, q.CreatedBy).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return &q, nil
}

func (r *QuizRepository) ListQuestions(ctx context.Context, quizID int64) ([]entity.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, quiz_id, prompt, options, answer_index, position
		FROM questions
		WHERE quiz_id = $1
		ORDER BY position, id
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []entity.Question
	for rows.Next() {
		var q entity.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Prompt, pq.Array(&q.Options), &q.AnswerIndex, &q.Position); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// AddQuestion appends q after the quiz's last question. Positions are unique
// per quiz; an insert that loses a race for the next position is retried.
func (r *QuizRepository) AddQuestion(ctx context.Context, q entity.Question) (*entity.Question, error) {
	var err error
	for attempt := 0; attempt < addQuestionMaxRetries; attempt++ {
		err = r.db.QueryRowContext(ctx, `
			INSERT INTO questions (quiz_id, prompt, options, answer_index, position)
			VALUES ($1, $2, $3, $4, (SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE quiz_id = $1))
			RETURNING id, position
		`, q.QuizID, q.Prompt, pq.Array(q.Options), q.AnswerIndex).Scan(&q.ID, &q.Position)
		if !isUniqueViolation(err, questionPositionKey) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}
	return &q, nil
}

func (r *QuizRepository) ListSubmissions(ctx context.Context, quizID int64) ([]entity.Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, quiz_id, uid, student_name, answers, score, total, submitted_at
		FROM submissions
		WHERE quiz_id = $1
		ORDER BY submitted_at
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []entity.Submission
	for rows.Next() {
		var s entity.Submission
		if err := rows.Scan(&s.ID, &s.QuizID, &s.UID, &s.StudentName, pq.Array(&s.Answers), &s.Score, &s.Total, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *QuizRepository) FindSubmission(ctx context.Context, quizID int64, uid string) (*entity.Submission, error) {
	var s entity.Submission
	err := r.db.QueryRowContext(ctx, `
		SELECT id, quiz_id, uid, student_name, answers, score, total, submitted_at
		FROM submissions
		WHERE quiz_id = $1 AND uid = $2
	`, quizID, uid).Scan(&s.ID, &s.QuizID, &s.UID, &s.StudentName, pq.Array(&s.Answers), &s.Score, &s.Total, &s.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &s, nil
}

// SaveSubmission stores a graded submission. Each student submits a quiz once.
func (r *QuizRepository) SaveSubmission(ctx context.Context, s entity.Submission) (*entity.Submission, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO submissions (quiz_id, uid, student_name, answers, score, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, submitted_at
	`, s.QuizID, s.UID, s.StudentName, pq.Array(s.Answers), s.Score, s.Total).Scan(&s.ID, &s.SubmittedAt)

	if isUniqueViolation(err, "") {
		return nil, entity.ErrAlreadySubmitted
	}
	if err != nil {
		return nil, fmt.Errorf("save submission: %w", err)
	}
	return &s, nil
}

// isUniqueViolation reports whether err is a Postgres unique violation, on
// constraint when it is not empty.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
