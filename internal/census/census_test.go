package census

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func ptr(t time.Time) *time.Time { return &t }

func series(snaps []domain.Snapshot, c domain.Category) []int {
	out := make([]int, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Counts[c])
	}
	return out
}

func TestSweep_WorkedExample(t *testing.T) {
	issues := []domain.Issue{
		{ID: "1", Category: domain.CategoryOpen, CreatedOn: day(t, "2024-01-01"), ResolvedOn: ptr(day(t, "2024-01-03"))},
		{ID: "2", Category: domain.CategoryOpen, CreatedOn: day(t, "2024-01-02")},
	}
	rng := domain.NewRange(day(t, "2024-01-01"), day(t, "2024-01-04"))

	for name, fn := range map[string]func([]domain.Issue, domain.Range) []domain.Snapshot{"sweep": Sweep, "naive": Naive} {
		t.Run(name, func(t *testing.T) {
			snaps := fn(issues, rng)
			require.Len(t, snaps, 4)
			require.Equal(t, []int{1, 2, 1, 1}, series(snaps, domain.CategoryOpen))
			require.Equal(t, []int{0, 0, 0, 0}, series(snaps, domain.CategoryDefect))
			for i, s := range snaps {
				require.Equal(t, rng.Start.AddDate(0, 0, i), s.Date)
				require.Len(t, s.Counts, len(domain.Categories))
			}
		})
	}
}

func TestSweep_CreatedOnEndDate(t *testing.T) {
	issues := []domain.Issue{{ID: "x", Category: domain.CategoryDefect, CreatedOn: day(t, "2024-03-10")}}
	snaps := Sweep(issues, domain.NewRange(day(t, "2024-03-07"), day(t, "2024-03-10")))
	require.Equal(t, []int{0, 0, 0, 1}, series(snaps, domain.CategoryDefect))
}

func TestSweep_ResolvedDayIsNotCounted(t *testing.T) {
	issues := []domain.Issue{{ID: "x", Category: domain.CategoryChangeRequest,
		CreatedOn: day(t, "2024-03-01"), ResolvedOn: ptr(day(t, "2024-03-05"))}}
	snaps := Sweep(issues, domain.NewRange(day(t, "2024-03-04"), day(t, "2024-03-06")))
	require.Equal(t, []int{1, 0, 0}, series(snaps, domain.CategoryChangeRequest))
}

func TestSweep_OutsideWindow(t *testing.T) {
	issues := []domain.Issue{
		{ID: "late", Category: domain.CategoryProblemReport, CreatedOn: day(t, "2024-05-01")},
		{ID: "gone", Category: domain.CategoryProblemReport, CreatedOn: day(t, "2024-01-01"), ResolvedOn: ptr(day(t, "2024-04-01"))},
		{ID: "backwards", Category: domain.CategoryProblemReport, CreatedOn: day(t, "2024-04-02"), ResolvedOn: ptr(day(t, "2024-03-01"))},
	}
	snaps := Sweep(issues, domain.NewRange(day(t, "2024-04-01"), day(t, "2024-04-30")))
	require.Len(t, snaps, 30)
	for _, s := range snaps {
		require.Zero(t, s.Counts[domain.CategoryProblemReport], s.Date)
	}
}

func TestSweep_SingleDayAndInvalidRange(t *testing.T) {
	d := day(t, "2024-02-29")
	issues := []domain.Issue{{ID: "1", Category: domain.CategoryPostCCBNotAnalysed, CreatedOn: d}}
	snaps := Sweep(issues, domain.NewRange(d, d))
	require.Len(t, snaps, 1)
	require.Equal(t, 1, snaps[0].Counts[domain.CategoryPostCCBNotAnalysed])

	require.Nil(t, Sweep(issues, domain.NewRange(d, d.AddDate(0, 0, -1))))
	require.Nil(t, Naive(issues, domain.NewRange(d, d.AddDate(0, 0, -1))))
}

func TestSweep_MatchesNaiveOnRandomInput(t *testing.T) {
	r := rand.New(rand.NewPCG(20240101, 7))
	base := day(t, "2023-01-01")
	for round := 0; round < 200; round++ {
		n := r.IntN(60)
		issues := make([]domain.Issue, 0, n)
		for i := 0; i < n; i++ {
			created := base.AddDate(0, 0, r.IntN(120))
			is := domain.Issue{
				ID:        "I-" + string(rune('a'+i%26)),
				Category:  domain.Categories[r.IntN(len(domain.Categories))],
				CreatedOn: created,
			}
			if r.IntN(3) > 0 {
				// allow resolutions before creation, the source is trusted as-is
				is.ResolvedOn = ptr(created.AddDate(0, 0, r.IntN(60)-10))
			}
			issues = append(issues, is)
		}
		start := base.AddDate(0, 0, r.IntN(150)-15)
		rng := domain.NewRange(start, start.AddDate(0, 0, r.IntN(90)))

		want := Naive(issues, rng)
		got := Sweep(issues, rng)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("round %d range %s: sweep mismatch (-naive +sweep):\n%s", round, rng, diff)
		}
	}
}

func BenchmarkSweep(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 1))
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	issues := make([]domain.Issue, 20000)
	for i := range issues {
		created := base.AddDate(0, 0, r.IntN(1500))
		issues[i] = domain.Issue{Category: domain.Categories[i%len(domain.Categories)], CreatedOn: created}
		if i%2 == 0 {
			issues[i].ResolvedOn = ptr(created.AddDate(0, 0, r.IntN(200)))
		}
	}
	rng := domain.NewRange(base, base.AddDate(0, 0, 1500))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Sweep(issues, rng)
	}
}
