package compose

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examprep/internal/question"
)

var sixKinds = []question.Variant{
	question.SingleChoice{Options: []string{"a", "b"}},
	question.MultiChoice{Options: []string{"a", "b"}, CorrectIndices: []int{0}},
	question.TrueFalse{},
	question.Matching{},
	question.FillGap{},
	question.GeoMap{},
}

// mixedPool builds n questions cycling through the six kinds, with ordinal
// equal to the 1-based position.
func mixedPool(prefix string, n int) []question.Question {
	pool := make([]question.Question, n)
	for i := range pool {
		pool[i] = question.Question{
			ID:       fmt.Sprintf("%s-%02d", prefix, i+1),
			Prompt:   fmt.Sprintf("question %d", i+1),
			Category: prefix,
			Ordinal:  i + 1,
			Variant:  sixKinds[i%len(sixKinds)],
		}
	}
	return pool
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func ids(qs []question.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestSelectDiverseTenFromTwenty(t *testing.T) {
	pool := mixedPool("theory", 20)
	for seed := uint64(1); seed <= 50; seed++ {
		got := SelectDiverse(pool, 10, seeded(seed))
		require.Len(t, got, 10, "seed %d", seed)
		assert.Len(t, uniqueIDs(got), 10, "seed %d", seed)

		perKind := map[question.Kind]int{}
		for _, q := range got {
			perKind[q.Kind()]++
		}
		for k, n := range perKind {
			assert.LessOrEqual(t, n, VariantCap, "seed %d kind %s", seed, k)
		}
	}
}

func TestSelectDiverseBackfillsPastCap(t *testing.T) {
	var pool []question.Question
	for i := range 5 {
		pool = append(pool, question.Question{ID: fmt.Sprintf("sc-%d", i), Variant: question.SingleChoice{}})
	}
	pool = append(pool, question.Question{ID: "geo", Variant: question.GeoMap{}})

	got := SelectDiverse(pool, 5, seeded(3))
	require.Len(t, got, 5)
	assert.Len(t, uniqueIDs(got), 5)
	assert.Contains(t, ids(got), "geo", "the only other kind is always taken before backfill")
}

func TestSelectDiverseEdges(t *testing.T) {
	pool := mixedPool("p", 4)

	t.Run("more than available", func(t *testing.T) {
		got := SelectDiverse(pool, 10, seeded(1))
		assert.ElementsMatch(t, ids(pool), ids(got))
	})
	t.Run("zero", func(t *testing.T) {
		assert.Empty(t, SelectDiverse(pool, 0, seeded(1)))
	})
	t.Run("empty pool", func(t *testing.T) {
		assert.Empty(t, SelectDiverse(nil, 3, seeded(1)))
	})
	t.Run("duplicate ids", func(t *testing.T) {
		dup := append(append([]question.Question{}, pool...), pool...)
		got := SelectDiverse(dup, 8, seeded(1))
		assert.Len(t, got, 4)
		assert.Len(t, uniqueIDs(got), 4)
	})
	t.Run("does not reorder the caller's pool", func(t *testing.T) {
		before := ids(pool)
		SelectDiverse(pool, 3, seeded(9))
		assert.Equal(t, before, ids(pool))
	})
	t.Run("nil source", func(t *testing.T) {
		assert.Len(t, SelectDiverse(pool, 2, nil), 2)
	})
}

func TestSelectDiverseIsReproducibleWithSeed(t *testing.T) {
	pool := mixedPool("theory", 20)
	first := ids(SelectDiverse(pool, 10, seeded(42)))
	second := ids(SelectDiverse(pool, 10, seeded(42)))
	assert.Equal(t, first, second)
}

func TestPickLesson(t *testing.T) {
	lessons := []question.Lesson{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}}
	seen := map[string]bool{}
	src := seeded(5)
	for range 60 {
		l, ok := PickLesson(lessons, src)
		require.True(t, ok)
		seen[l.ID] = true
	}
	assert.Len(t, seen, 3)

	_, ok := PickLesson(nil, src)
	assert.False(t, ok)
}

func TestPartition(t *testing.T) {
	pool := mixedPool("geo", 30)
	assert.Len(t, Partition(pool, 0, 0), 30)
	assert.Len(t, Partition(pool, 1, 20), 20)
	assert.Len(t, Partition(pool, 21, 0), 10)
	assert.Len(t, Partition(pool, 0, 5), 5)
	assert.Empty(t, Partition(pool, 31, 40))
}

func TestBlueprintValidate(t *testing.T) {
	tests := []struct {
		name string
		bp   Blueprint
		ok   bool
	}{
		{"valid", Blueprint{Name: "b", Parts: []Part{{Pool: "p", Count: 1}}}, true},
		{"lessons only", Blueprint{Name: "b", Lessons: []question.Section{question.SectionReading}}, true},
		{"no name", Blueprint{Parts: []Part{{Pool: "p", Count: 1}}}, false},
		{"empty", Blueprint{Name: "b"}, false},
		{"no pool", Blueprint{Name: "b", Parts: []Part{{Count: 1}}}, false},
		{"zero count", Blueprint{Name: "b", Parts: []Part{{Pool: "p"}}}, false},
		{"inverted range", Blueprint{Name: "b", Parts: []Part{{Pool: "p", Count: 1, MinOrdinal: 9, MaxOrdinal: 3}}}, false},
		{"flat lesson section", Blueprint{Name: "b", Lessons: []question.Section{question.SectionTheory}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bp.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidBlueprint)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	catalog := Catalog{
		Pools: map[string][]question.Question{
			"geography": mixedPool("geography", 30),
			"history":   mixedPool("history", 12),
		},
		Lessons: map[question.Section][]question.Lesson{
			question.SectionReading: {{
				ID:        "reading-1",
				Section:   question.SectionReading,
				Questions: []question.Question{{ID: "reading-1-1", Variant: question.SingleChoice{}}},
			}},
		},
	}
	bp := Blueprint{
		Name:    "theory-a",
		Section: question.SectionTheory,
		Parts: []Part{
			{Name: "basic", Pool: "geography", Count: 4, MinOrdinal: 1, MaxOrdinal: 20},
			{Name: "maps", Pool: "geography", Count: 2, MinOrdinal: 21},
			{Pool: "history", Count: 5},
		},
		Lessons: []question.Section{question.SectionReading},
	}

	c := New(seeded(11))
	fixed := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	exam, err := c.Compose(bp, catalog)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, exam.ID)
	assert.Equal(t, "theory-a", exam.Blueprint)
	assert.Equal(t, fixed, exam.CreatedAt)
	require.Len(t, exam.Questions, 11)
	assert.Len(t, uniqueIDs(exam.Questions), 11)

	for _, q := range exam.Questions[:4] {
		assert.LessOrEqual(t, q.Ordinal, 20, q.ID)
		assert.Equal(t, "geography", q.Category)
	}
	for _, q := range exam.Questions[4:6] {
		assert.GreaterOrEqual(t, q.Ordinal, 21, q.ID)
	}
	for _, q := range exam.Questions[6:] {
		assert.Equal(t, "history", q.Category)
	}

	require.Len(t, exam.Lessons, 1)
	assert.Equal(t, "reading-1", exam.Lessons[0].ID)

	items := exam.Items()
	require.Len(t, items, 12)
	assert.Equal(t, question.SectionTheory, items[0].Section)
	assert.Equal(t, question.SectionReading, items[11].Section)
	assert.Equal(t, "reading-1-1", items[11].Question.ID)
}

func TestComposeSkipsQuestionsTakenByEarlierParts(t *testing.T) {
	catalog := Catalog{Pools: map[string][]question.Question{"small": mixedPool("small", 4)}}
	bp := Blueprint{Name: "overlap", Parts: []Part{
		{Pool: "small", Count: 3},
		{Pool: "small", Count: 3},
	}}

	exam, err := New(seeded(2)).Compose(bp, catalog)
	require.NoError(t, err)
	assert.Len(t, exam.Questions, 4)
	assert.Len(t, uniqueIDs(exam.Questions), 4)
}

func TestComposeEmptyPools(t *testing.T) {
	catalog := Catalog{Pools: map[string][]question.Question{"geography": mixedPool("geography", 20)}}

	_, err := New(seeded(1)).Compose(Blueprint{Name: "b", Parts: []Part{{Name: "maps", Pool: "geography", Count: 2, MinOrdinal: 21}}}, catalog)
	assert.ErrorIs(t, err, ErrEmptyPool)
	assert.Contains(t, err.Error(), "maps")

	_, err = New(seeded(1)).Compose(Blueprint{Name: "b", Parts: []Part{{Pool: "missing", Count: 1}}}, catalog)
	assert.ErrorIs(t, err, ErrEmptyPool)

	_, err = New(seeded(1)).Compose(Blueprint{Name: "b", Lessons: []question.Section{question.SectionListening}}, catalog)
	assert.True(t, errors.Is(err, ErrEmptyPool))
}

func uniqueIDs(qs []question.Question) map[string]bool {
	m := make(map[string]bool, len(qs))
	for _, q := range qs {
		m[q.ID] = true
	}
	return m
}
