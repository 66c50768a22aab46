package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"quizportal/internal/entity"
	"quizportal/internal/generator"
	"quizportal/internal/routes"
	"quizportal/internal/session"
	"quizportal/internal/toast"
)

type QuizStore interface {
	ListQuizzes(ctx context.Context) ([]entity.Quiz, error)
	GetQuiz(ctx context.Context, id int64) (*entity.Quiz, error)
	CreateQuiz(ctx context.Context, q entity.Quiz) (*entity.Quiz, error)
	ListQuestions(ctx context.Context, quizID int64) ([]entity.Question, error)
	AddQuestion(ctx context.Context, q entity.Question) (*entity.Question, error)
	ListSubmissions(ctx context.Context, quizID int64) ([]entity.Submission, error)
	FindSubmission(ctx context.Context, quizID int64, uid string) (*entity.Submission, error)
	SaveSubmission(ctx context.Context, s entity.Submission) (*entity.Submission, error)
}

type quizForm struct {
	Title   string `validate:"required,max=200"`
	BatchID string `validate:"omitempty,max=64"`
}

type questionForm struct {
	Prompt  string   `validate:"required,max=500"`
	Options []string `validate:"min=2,max=8,dive,required"`
	Answer  int      `validate:"min=1"`
}

type generateForm struct {
	Operation string `validate:"required,max=4"`
	Count     int    `validate:"min=1,max=20"`
	Min       int    `validate:"min=0"`
	Max       int    `validate:"gtfield=Min,max=1000"`
}

// QuizHandler serves the admin and student quiz pages behind the protected
// routes.
type QuizHandler struct {
	quizzes QuizStore
	table   *routes.Table
	render  *Renderer
	log     *slog.Logger
}

func NewQuizHandler(quizzes QuizStore, table *routes.Table, render *Renderer, log *slog.Logger) *QuizHandler {
	if log == nil {
		log = slog.Default()
	}
	return &QuizHandler{quizzes: quizzes, table: table, render: render, log: log}
}

func (h *QuizHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListQuizzes(r.Context())
	if err != nil {
		h.serverError(w, "list quizzes", err)
		return
	}
	h.page(w, r, routes.AdminDashboard, http.StatusOK, map[string]any{"Quizzes": quizzes}, nil, nil)
}

func (h *QuizHandler) NewQuizPage(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, routes.AdminQuizNew, http.StatusOK, nil, nil, nil)
}

func (h *QuizHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	client, st, ok := signedIn(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	form := quizForm{
		Title:   strings.TrimSpace(r.FormValue("title")),
		BatchID: strings.TrimSpace(r.FormValue("batch_id")),
	}
	values := map[string]string{"title": form.Title, "batch_id": form.BatchID}
	if err := validate.Struct(form); err != nil {
		msgs, _ := validationMessages(err)
		h.page(w, r, routes.AdminQuizNew, http.StatusUnprocessableEntity, nil, msgs, values)
		return
	}

	quiz := entity.Quiz{Title: form.Title, CreatedBy: st.Profile.UID}
	if form.BatchID != "" {
		quiz.BatchID = &form.BatchID
	}
	created, err := h.quizzes.CreateQuiz(r.Context(), quiz)
	if err != nil {
		h.serverError(w, "create quiz", err)
		return
	}

	h.log.Info("quiz created", "quiz", created.ID, "by", created.CreatedBy)
	client.Notify(fmt.Sprintf("Quiz %q created", created.Title), toast.Success)
	http.Redirect(w, r, fmt.Sprintf("/admin/quizzes/%d/questions", created.ID), http.StatusSeeOther)
}

func (h *QuizHandler) QuestionsPage(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.loadQuiz(w, r)
	if !ok {
		return
	}
	h.renderQuestions(w, r, quiz, http.StatusOK, nil, nil)
}

func (h *QuizHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.loadQuiz(w, r)
	if !ok {
		return
	}
	client, ok := requestClient(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	values := map[string]string{
		"prompt":  strings.TrimSpace(r.FormValue("prompt")),
		"options": r.FormValue("options"),
		"answer":  strings.TrimSpace(r.FormValue("answer")),
	}
	answer, _ := strconv.Atoi(values["answer"])
	form := questionForm{
		Prompt:  values["prompt"],
		Options: splitLines(values["options"]),
		Answer:  answer,
	}

	var msgs []string
	if err := validate.Struct(form); err != nil {
		msgs, _ = validationMessages(err)
	} else if form.Answer > len(form.Options) {
		msgs = []string{fmt.Sprintf("Answer must be between 1 and %d", len(form.Options))}
	}
	if len(msgs) > 0 {
		h.renderQuestions(w, r, quiz, http.StatusUnprocessableEntity, msgs, values)
		return
	}

	_, err := h.quizzes.AddQuestion(r.Context(), entity.Question{
		QuizID:      quiz.ID,
		Prompt:      form.Prompt,
		Options:     form.Options,
		AnswerIndex: form.Answer - 1,
	})
	if err != nil {
		h.serverError(w, "add question", err)
		return
	}

	client.Notify("Question added", toast.Success)
	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}

// GenerateQuestions appends arithmetic questions built by the generator.
func (h *QuizHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.loadQuiz(w, r)
	if !ok {
		return
	}
	client, ok := requestClient(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	form := generateForm{Operation: strings.Join(r.Form["ops"], "")}
	form.Count, _ = strconv.Atoi(r.FormValue("count"))
	form.Min, _ = strconv.Atoi(r.FormValue("min"))
	form.Max, _ = strconv.Atoi(r.FormValue("max"))
	if err := validate.Struct(form); err != nil {
		msgs, _ := validationMessages(err)
		h.renderQuestions(w, r, quiz, http.StatusUnprocessableEntity, msgs, nil)
		return
	}

	gen := generator.NewGenerator(rand.Uint64())
	questions, err := gen.GenerateQuestions(generator.EquationType{
		Operation: form.Operation,
		Min:       form.Min,
		Max:       form.Max,
	}, quiz.ID, form.Count)
	if err != nil {
		h.renderQuestions(w, r, quiz, http.StatusUnprocessableEntity, []string{err.Error()}, nil)
		return
	}
	for _, q := range questions {
		if _, err := h.quizzes.AddQuestion(r.Context(), q); err != nil {
			h.serverError(w, "add generated question", err)
			return
		}
	}

	client.Notify(fmt.Sprintf("%d questions generated", len(questions)), toast.Success)
	http.Redirect(w, r, fmt.Sprintf("/admin/quizzes/%d/questions", quiz.ID), http.StatusSeeOther)
}

func (h *QuizHandler) renderQuestions(w http.ResponseWriter, r *http.Request, quiz *entity.Quiz, status int, errs []string, values map[string]string) {
	questions, err := h.quizzes.ListQuestions(r.Context(), quiz.ID)
	if err != nil {
		h.serverError(w, "list questions", err)
		return
	}
	data := map[string]any{"Quiz": quiz, "Questions": questions}
	h.page(w, r, routes.AdminQuestions, status, data, errs, values)
}

func (h *QuizHandler) SubmissionsPage(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.loadQuiz(w, r)
	if !ok {
		return
	}
	subs, err := h.quizzes.ListSubmissions(r.Context(), quiz.ID)
	if err != nil {
		h.serverError(w, "list submissions", err)
		return
	}
	h.page(w, r, routes.AdminSubmissions, http.StatusOK, map[string]any{"Quiz": quiz, "Submissions": subs}, nil, nil)
}

// StudentDashboard lists the quizzes open to the visitor's batch. Admins see
// every quiz.
func (h *QuizHandler) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	_, st, ok := signedIn(w, r)
	if !ok {
		return
	}
	all, err := h.quizzes.ListQuizzes(r.Context())
	if err != nil {
		h.serverError(w, "list quizzes", err)
		return
	}

	visible := make([]entity.Quiz, 0, len(all))
	for _, q := range all {
		if st.IsAdmin() || q.VisibleTo(st.Profile.BatchID) {
			visible = append(visible, q)
		}
	}
	h.page(w, r, routes.StudentDashboard, http.StatusOK, map[string]any{"Quizzes": visible}, nil, nil)
}

func (h *QuizHandler) TakeQuizPage(w http.ResponseWriter, r *http.Request) {
	quiz, st, ok := h.loadVisibleQuiz(w, r)
	if !ok {
		return
	}

	sub, err := h.quizzes.FindSubmission(r.Context(), quiz.ID, st.Profile.UID)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		h.serverError(w, "find submission", err)
		return
	}
	questions, err := h.quizzes.ListQuestions(r.Context(), quiz.ID)
	if err != nil {
		h.serverError(w, "list questions", err)
		return
	}
	data := map[string]any{"Quiz": quiz, "Questions": questions, "Submission": sub}
	h.page(w, r, routes.StudentTakeQuiz, http.StatusOK, data, nil, nil)
}

// SubmitQuiz grades the posted answers and stores the result. Answer fields
// are named q0, q1, ... and hold option indexes.
func (h *QuizHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, st, ok := h.loadVisibleQuiz(w, r)
	if !ok {
		return
	}
	client, _ := requestClient(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	questions, err := h.quizzes.ListQuestions(r.Context(), quiz.ID)
	if err != nil {
		h.serverError(w, "list questions", err)
		return
	}

	profile := st.Profile
	sub := entity.Submission{
		QuizID:      quiz.ID,
		UID:         profile.UID,
		StudentName: profile.Name(),
		Answers:     make([]int64, len(questions)),
	}
	for i := range questions {
		v, err := strconv.ParseInt(r.FormValue(fmt.Sprintf("q%d", i)), 10, 64)
		if err != nil {
			v = -1
		}
		sub.Answers[i] = v
	}
	sub.Grade(questions)

	saved, err := h.quizzes.SaveSubmission(r.Context(), sub)
	switch {
	case errors.Is(err, entity.ErrAlreadySubmitted):
		client.Notify("You have already submitted this quiz", toast.Warning)
	case err != nil:
		h.serverError(w, "save submission", err)
		return
	default:
		h.log.Info("quiz submitted", "quiz", quiz.ID, "uid", saved.UID, "score", saved.Score, "total", saved.Total)
		client.Notify(fmt.Sprintf("You scored %d out of %d", saved.Score, saved.Total), toast.Success)
	}
	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}

func (h *QuizHandler) loadQuiz(w http.ResponseWriter, r *http.Request) (*entity.Quiz, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "quizID"), 10, 64)
	if err != nil {
		h.render.NotFound(w, r)
		return nil, false
	}
	quiz, err := h.quizzes.GetQuiz(r.Context(), id)
	if errors.Is(err, entity.ErrNotFound) {
		h.render.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		h.serverError(w, "get quiz", err)
		return nil, false
	}
	return quiz, true
}

// loadVisibleQuiz is loadQuiz for students: quizzes of another batch do not
// exist for them.
func (h *QuizHandler) loadVisibleQuiz(w http.ResponseWriter, r *http.Request) (*entity.Quiz, session.State, bool) {
	_, st, ok := signedIn(w, r)
	if !ok {
		return nil, st, false
	}
	quiz, ok := h.loadQuiz(w, r)
	if !ok {
		return nil, st, false
	}
	if !st.IsAdmin() && !quiz.VisibleTo(st.Profile.BatchID) {
		h.render.NotFound(w, r)
		return nil, st, false
	}
	return quiz, st, true
}

func (h *QuizHandler) page(w http.ResponseWriter, r *http.Request, name string, status int, data any, errs []string, values map[string]string) {
	route, ok := h.table.ByName(name)
	if !ok {
		h.serverError(w, "route lookup", fmt.Errorf("no route named %s", name))
		return
	}
	pd := h.render.Page(r, route)
	pd.Data = data
	pd.Errors = errs
	for k, v := range values {
		pd.Form[k] = v
	}
	h.render.Render(w, route, status, pd)
}

func (h *QuizHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, "error", err)
	http.Error(w, "something went wrong", http.StatusInternalServerError)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
