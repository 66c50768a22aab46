package entity

import "time"

type Quiz struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	BatchID   *string   `json:"batch_id,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Question struct {
	ID          int64    `json:"id"`
	QuizID      int64    `json:"quiz_id"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Position    int      `json:"position"`
}

type Submission struct {
	ID          int64     `json:"id"`
	QuizID      int64     `json:"quiz_id"`
	UID         string    `json:"uid"`
	StudentName string    `json:"student_name"`
	Answers     []int64   `json:"answers"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Grade fills Score and Total from the answer key. Answers are option indexes in
// question order; missing or out-of-range answers count as wrong.
func (s *Submission) Grade(questions []Question) {
	s.Total = len(questions)
	s.Score = 0
	for i, q := range questions {
		if i >= len(s.Answers) {
			break
		}
		if int(s.Answers[i]) == q.AnswerIndex {
			s.Score++
		}
	}
}

// VisibleTo reports whether a student of the given batch may take the quiz.
// Quizzes without a batch are open to everyone.
func (q Quiz) VisibleTo(batchID *string) bool {
	if q.BatchID == nil {
		return true
	}
	return batchID != nil && *batchID == *q.BatchID
}
