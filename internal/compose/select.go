// Package compose assembles exam instances from question pools.
package compose

import (
	"math/rand/v2"

	"github.com/pavelanni/examprep/internal/question"
)

// VariantCap is how many questions of one kind the greedy walk accepts
// before it starts skipping that kind.
const VariantCap = 2

// Source is the randomness the composer draws from. *rand.Rand satisfies it.
type Source interface {
	Shuffle(n int, swap func(i, j int))
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }
func (globalSource) IntN(n int) int                     { return rand.IntN(n) }

// Unseeded draws from the process-wide math/rand/v2 generator.
var Unseeded Source = globalSource{}

// SelectDiverse picks up to n questions from pool. The pool is shuffled and
// walked once, accepting a question only while fewer than VariantCap of its
// kind were taken. If that leaves the selection short, the rest is filled
// from the unused questions in shuffled order regardless of kind. Questions
// with a repeated id are considered once.
func SelectDiverse(pool []question.Question, n int, src Source) []question.Question {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if src == nil {
		src = Unseeded
	}

	shuffled := uniqueByID(pool)
	src.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n = min(n, len(shuffled))
	picked := make([]question.Question, 0, n)
	used := make([]bool, len(shuffled))
	perKind := make(map[question.Kind]int)

	for i, q := range shuffled {
		if len(picked) == n {
			break
		}
		if perKind[q.Kind()] >= VariantCap {
			continue
		}
		perKind[q.Kind()]++
		used[i] = true
		picked = append(picked, q)
	}

	for i, q := range shuffled {
		if len(picked) == n {
			break
		}
		if !used[i] {
			picked = append(picked, q)
		}
	}
	return picked
}

// PickLesson returns one lesson chosen uniformly at random.
func PickLesson(lessons []question.Lesson, src Source) (question.Lesson, bool) {
	if len(lessons) == 0 {
		return question.Lesson{}, false
	}
	if src == nil {
		src = Unseeded
	}
	return lessons[src.IntN(len(lessons))], true
}

func uniqueByID(pool []question.Question) []question.Question {
	seen := make(map[string]bool, len(pool))
	out := make([]question.Question, 0, len(pool))
	for _, q := range pool {
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out
}
