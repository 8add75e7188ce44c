package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyunomas/fdupe/internal/comparator"
	"github.com/soyunomas/fdupe/internal/entities"
	"github.com/soyunomas/fdupe/internal/fsys"
	"github.com/soyunomas/fdupe/internal/hasher"
	"github.com/soyunomas/fdupe/internal/testutil"
)

var strategies = []Strategy{StrategyOrdered, StrategyPairwise}

// diskOf coloca todo lo que cuelga de /disk2 en el dispositivo 2.
func diskOf(path string) uint64 {
	if strings.HasPrefix(path, "/disk2/") {
		return 2
	}
	return 1
}

type fixture struct {
	src     *testutil.CountingSource
	builder *entities.Builder
}

func newFixture(t *testing.T, files map[string][]byte, limits map[string]int64) *fixture {
	t.Helper()
	var src fsys.Source = fsys.NewBillySource(testutil.MemFS(t, files), diskOf)
	if limits != nil {
		src = &testutil.FailingSource{Source: src, Limits: limits}
	}
	counting := testutil.NewCountingSource(src)
	h := hasher.New(counting, hasher.Config{})
	return &fixture{src: counting, builder: entities.NewBuilder(counting, h, comparator.New())}
}

func (f *fixture) build(t *testing.T, paths ...string) []*entities.FileEntity {
	t.Helper()
	out := make([]*entities.FileEntity, 0, len(paths))
	for _, p := range paths {
		e, err := f.builder.Build(p)
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

// summarize reduce los grupos a original -> miembros.
func summarize(sets []*entities.DuplicateSet) map[string][]string {
	out := make(map[string][]string, len(sets))
	for _, s := range sets {
		var members []string
		for _, m := range s.Members {
			members = append(members, m.Path)
		}
		out[s.Original.Path] = members
	}
	return out
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	s, err := ParseStrategy("Pairwise")
	require.NoError(t, err)
	assert.Equal(t, StrategyPairwise, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyOrdered, s)
	assert.Equal(t, "ordered", s.String())

	_, err = ParseStrategy("random")
	require.Error(t, err)
}

func TestGroupOriginalAndCopies(t *testing.T) {
	t.Parallel()

	data := testutil.Content(50_000, 1)
	files := map[string][]byte{
		"/data/a.bin": data,
		"/data/b.bin": data,
		"/data/c.bin": data,
		"/data/d.bin": data,
		"/data/e.bin": testutil.Flip(data, 49_999),
	}

	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()
			fx := newFixture(t, files, nil)
			list := fx.build(t, "/data/a.bin", "/data/b.bin", "/data/c.bin", "/data/d.bin", "/data/e.bin")

			res, err := NewGrouper(strategy, nil).Group(context.Background(), list)
			require.NoError(t, err)
			require.Len(t, res.Sets, 1)
			assert.Equal(t, "/data/a.bin", res.Sets[0].Original.Path)
			assert.Equal(t, []string{"/data/b.bin", "/data/c.bin", "/data/d.bin"}, summarize(res.Sets)["/data/a.bin"])
			assert.Equal(t, 4, res.Sets[0].Count())
			assert.Empty(t, res.Skipped)
		})
	}
}

func TestGroupDistinctSizesReadsNothing(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{
		"/data/a.bin": testutil.Content(100, 1),
		"/data/b.bin": testutil.Content(200, 1),
		"/data/c.bin": testutil.Content(300, 1),
	}

	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()
			fx := newFixture(t, files, nil)
			list := fx.build(t, "/data/a.bin", "/data/b.bin", "/data/c.bin")

			res, err := NewGrouper(strategy, nil).Group(context.Background(), list)
			require.NoError(t, err)
			assert.Empty(t, res.Sets)
			assert.Equal(t, 0, fx.src.TotalOpens())
		})
	}
}

func TestGroupDeviceIsolation(t *testing.T) {
	t.Parallel()

	data := testutil.Content(10_000, 2)
	files := map[string][]byte{
		"/data/a.bin":  data,
		"/disk2/a.bin": data,
		"/disk2/b.bin": data,
	}

	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()
			fx := newFixture(t, files, nil)
			list := fx.build(t, "/data/a.bin", "/disk2/a.bin", "/disk2/b.bin")

			res, err := NewGrouper(strategy, nil).Group(context.Background(), list)
			require.NoError(t, err)
			assert.Equal(t, map[string][]string{"/disk2/a.bin": {"/disk2/b.bin"}}, summarize(res.Sets))
		})
	}
}

func TestGroupSelfIsNeverDuplicate(t *testing.T) {
	t.Parallel()

	data := testutil.Content(10_000, 3)
	fs := testutil.MemFS(t, map[string][]byte{"/data/a.bin": data})
	require.NoError(t, fs.Symlink("/data/a.bin", "/data/alias.bin"))
	src := fsys.NewBillySource(fs, diskOf)
	b := entities.NewBuilder(src, hasher.New(src, hasher.Config{}), comparator.New())

	var list []*entities.FileEntity
	for _, p := range []string{"/data/a.bin", "/data/alias.bin", "/data/a.bin"} {
		e, err := b.Build(p)
		require.NoError(t, err)
		list = append(list, e)
	}

	for _, strategy := range strategies {
		res, err := NewGrouper(strategy, nil).Group(context.Background(), list)
		require.NoError(t, err)
		assert.Empty(t, res.Sets, strategy.String())
	}
}

func TestGroupAgainst(t *testing.T) {
	t.Parallel()

	one := testutil.Content(20_000, 1)
	two := testutil.Content(20_000, 2)
	files := map[string][]byte{
		"/orig/one.bin":   one,
		"/orig/two.bin":   two,
		"/orig/three.bin": testutil.Content(20_000, 3),
		"/check/x.bin":    one,
		"/check/y.bin":    two,
		"/check/z.bin":    one,
		"/check/w.bin":    testutil.Content(20_000, 4),
	}

	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()
			fx := newFixture(t, files, nil)
			originals := fx.build(t, "/orig/one.bin", "/orig/two.bin", "/orig/three.bin")
			checks := fx.build(t, "/check/x.bin", "/check/y.bin", "/check/z.bin", "/check/w.bin")

			res, err := NewGrouper(strategy, nil).GroupAgainst(context.Background(), originals, checks)
			require.NoError(t, err)
			assert.Equal(t, map[string][]string{
				"/orig/one.bin": {"/check/x.bin", "/check/z.bin"},
				"/orig/two.bin": {"/check/y.bin"},
			}, summarize(res.Sets))
			assert.Equal(t, "/orig/one.bin", res.Sets[0].Original.Path)
		})
	}
}

func TestGroupAgainstClaimsOnce(t *testing.T) {
	t.Parallel()

	data := testutil.Content(20_000, 5)
	files := map[string][]byte{
		"/orig/a.bin":  data,
		"/orig/b.bin":  data,
		"/check/c.bin": data,
	}

	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()
			fx := newFixture(t, files, nil)
			originals := fx.build(t, "/orig/a.bin", "/orig/b.bin")
			checks := fx.build(t, "/check/c.bin", "/check/c.bin")

			res, err := NewGrouper(strategy, nil).GroupAgainst(context.Background(), originals, checks)
			require.NoError(t, err)
			// c.bin pertenece sólo al primer original y aparece una vez.
			assert.Equal(t, map[string][]string{"/orig/a.bin": {"/check/c.bin"}}, summarize(res.Sets))
		})
	}
}

func TestGroupExcludesUnreadableFile(t *testing.T) {
	t.Parallel()

	data := testutil.Content(10_000, 6)
	files := map[string][]byte{
		"/data/a.bin": data,
		"/data/b.bin": data,
		"/data/c.bin": data,
	}

	cases := map[string]struct {
		failing string
		want    map[string][]string
	}{
		"member": {
			failing: "/data/b.bin",
			want:    map[string][]string{"/data/a.bin": {"/data/c.bin"}},
		},
		"original": {
			failing: "/data/a.bin",
			want:    map[string][]string{"/data/b.bin": {"/data/c.bin"}},
		},
	}

	for name, tc := range cases {
		for _, strategy := range strategies {
			t.Run(name+"/"+strategy.String(), func(t *testing.T) {
				t.Parallel()
				fx := newFixture(t, files, map[string]int64{tc.failing: 5_000})
				list := fx.build(t, "/data/a.bin", "/data/b.bin", "/data/c.bin")

				res, err := NewGrouper(strategy, nil).Group(context.Background(), list)
				require.NoError(t, err)
				assert.Equal(t, tc.want, summarize(res.Sets))
				require.Len(t, res.Skipped, 1)
				assert.Equal(t, tc.failing, res.Skipped[0].Path)
				assert.ErrorIs(t, res.Skipped[0].Err, fsys.ErrRead)
			})
		}
	}
}

func TestGroupCanceled(t *testing.T) {
	t.Parallel()

	data := testutil.Content(10_000, 7)
	files := map[string][]byte{
		"/data/a.bin": data,
		"/data/b.bin": data,
	}

	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()
			fx := newFixture(t, files, nil)
			list := fx.build(t, "/data/a.bin", "/data/b.bin")

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := NewGrouper(strategy, nil).Group(ctx, list)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestStrategiesAgree(t *testing.T) {
	t.Parallel()

	files := make(map[string][]byte)
	var paths []string
	add := func(name string, data []byte) {
		files[name] = data
		paths = append(paths, name)
	}
	// Tres clases del mismo tamaño que difieren en posiciones distintas,
	// más archivos sueltos y otra clase en el segundo disco.
	base := testutil.Content(70_000, 8)
	for i, variant := range [][]byte{base, testutil.Flip(base, 10), testutil.Flip(base, 65_000)} {
		for j := 0; j <= i+1; j++ {
			add("/data/class"+string(rune('a'+i))+"/"+string(rune('0'+j))+".bin", variant)
		}
	}
	add("/data/single.bin", testutil.Content(70_000, 9))
	add("/data/small.bin", testutil.Content(10, 9))
	add("/disk2/x.bin", base)
	add("/disk2/y.bin", base)

	results := make([]map[string][]string, 0, len(strategies))
	for _, strategy := range strategies {
		fx := newFixture(t, files, nil)
		list := fx.build(t, paths...)
		res, err := NewGrouper(strategy, nil).Group(context.Background(), list)
		require.NoError(t, err)
		results = append(results, summarize(res.Sets))
	}

	assert.Len(t, results[0], 4)
	assert.Equal(t, results[0], results[1])
}

func TestGroupProgress(t *testing.T) {
	t.Parallel()

	data := testutil.Content(1_000, 10)
	fx := newFixture(t, map[string][]byte{"/data/a.bin": data, "/data/b.bin": data}, nil)
	list := fx.build(t, "/data/a.bin", "/data/b.bin")

	var events []ProgressEvent
	_, err := NewGrouper(StrategyOrdered, func(e ProgressEvent) {
		events = append(events, e)
	}).Group(context.Background(), list)
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, StageMatching, last.Stage)
	assert.Equal(t, 2, last.Done)
	assert.Equal(t, 2, last.Total)
	assert.Equal(t, StageIndexing, events[0].Stage)
}

func TestGroupAgainstReadsOnlyWhatOriginalsNeed(t *testing.T) {
	t.Parallel()

	t.Run("checks without an original of their size", func(t *testing.T) {
		t.Parallel()
		files := map[string][]byte{
			"/orig/a.bin":  testutil.Content(50, 1),
			"/check/x.bin": testutil.Content(60_000, 2),
			"/check/y.bin": testutil.Content(60_000, 2),
			"/check/z.bin": testutil.Content(60_000, 2),
		}
		for _, strategy := range strategies {
			fx := newFixture(t, files, nil)
			originals := fx.build(t, "/orig/a.bin")
			checks := fx.build(t, "/check/x.bin", "/check/y.bin", "/check/z.bin")

			res, err := NewGrouper(strategy, nil).GroupAgainst(context.Background(), originals, checks)
			require.NoError(t, err)
			assert.Empty(t, res.Sets, strategy.String())
			assert.Equal(t, 0, fx.src.TotalOpens(), strategy.String())
		}
	})

	t.Run("checks equal to each other but not to the original", func(t *testing.T) {
		t.Parallel()
		data := testutil.Content(1<<20, 3)
		files := map[string][]byte{
			"/orig/a.bin":  testutil.Flip(data, 0),
			"/check/x.bin": data,
			"/check/y.bin": data,
			"/check/z.bin": data,
		}
		for _, strategy := range strategies {
			fx := newFixture(t, files, nil)
			originals := fx.build(t, "/orig/a.bin")
			checks := fx.build(t, "/check/x.bin", "/check/y.bin", "/check/z.bin")

			res, err := NewGrouper(strategy, nil).GroupAgainst(context.Background(), originals, checks)
			require.NoError(t, err)
			assert.Empty(t, res.Sets, strategy.String())
			// Cada archivo se lee sólo hasta el primer punto de control.
			for _, p := range []string{"/orig/a.bin", "/check/x.bin", "/check/y.bin", "/check/z.bin"} {
				assert.Equal(t, int64(hasher.PreHashSize), fx.src.BytesRead(p), strategy.String()+" "+p)
			}
		}
	})
}
