// Package generator produces arithmetic multiple-choice questions.
package generator

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"quizportal/internal/entity"
)

const (
	MultSymbol = "×"
	DivSymbol  = "÷"

	optionCount = 4
	maxAttempts = 1000
)

var ErrNoEquation = errors.New("no equation fits the constraints")

// EquationType bounds the equations of one kind. Operation lists the allowed
// operators, e.g. "+-" or "*/".
type EquationType struct {
	Operation string
	Min       int
	Max       int
}

func (t EquationType) validate() error {
	if t.Operation == "" || strings.Trim(t.Operation, "+-*/") != "" {
		return fmt.Errorf("operation must use only + - * / (got %q)", t.Operation)
	}
	if t.Min < 0 || t.Max <= t.Min {
		return fmt.Errorf("operand range %d..%d is empty", t.Min, t.Max)
	}
	return nil
}

type Generator struct {
	randSource *rand.Rand
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{randSource: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// GenerateQuestion builds one question for quizID. Results are never negative
// and divisions always come out even.
func (g *Generator) GenerateQuestion(t EquationType, quizID int64) (entity.Question, error) {
	if err := t.validate(); err != nil {
		return entity.Question{}, err
	}

	for range maxAttempts {
		a := g.operand(t)
		b := g.operand(t)
		op := t.Operation[g.randSource.IntN(len(t.Operation))]

		answer, symbol, ok := calculate(a, b, op)
		if !ok {
			continue
		}
		options, index := g.options(answer)
		return entity.Question{
			QuizID:      quizID,
			Prompt:      fmt.Sprintf("%d %s %d = ?", a, symbol, b),
			Options:     options,
			AnswerIndex: index,
		}, nil
	}
	return entity.Question{}, ErrNoEquation
}

func (g *Generator) GenerateQuestions(t EquationType, quizID int64, n int) ([]entity.Question, error) {
	out := make([]entity.Question, 0, n)
	for range n {
		q, err := g.GenerateQuestion(t, quizID)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (g *Generator) operand(t EquationType) int {
	return g.randSource.IntN(t.Max-t.Min+1) + t.Min
}

func calculate(a, b int, op byte) (int, string, bool) {
	switch op {
	case '+':
		return a + b, "+", true
	case '-':
		return a - b, "-", a >= b
	case '*':
		return a * b, MultSymbol, true
	case '/':
		if b == 0 || a%b != 0 {
			return 0, "", false
		}
		return a / b, DivSymbol, true
	}
	return 0, "", false
}

// options places answer among distinct non-negative distractors near it.
func (g *Generator) options(answer int) ([]string, int) {
	seen := map[int]bool{answer: true}
	values := []int{answer}
	spread := max(3, answer/5)
	for len(values) < optionCount {
		v := answer + g.randSource.IntN(2*spread+1) - spread
		if v < 0 || seen[v] {
			spread++
			continue
		}
		seen[v] = true
		values = append(values, v)
	}

	g.randSource.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
	options := make([]string, len(values))
	index := 0
	for i, v := range values {
		options[i] = strconv.Itoa(v)
		if v == answer {
			index = i
		}
	}
	return options, index
}
