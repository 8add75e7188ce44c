package hasher

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyunomas/fdupe/internal/fsys"
	"github.com/soyunomas/fdupe/internal/testutil"
)

func sumOf(alg Algorithm, data []byte) []byte {
	h := alg.New()
	_, _ = h.Write(data)
	return h.Sum(nil)
}

func TestDigestExtend(t *testing.T) {
	t.Parallel()

	data := testutil.Content(10_000, 3)
	src := testutil.NewCountingSource(testutil.MemSource(t, map[string][]byte{"/f.bin": data}))
	h := New(src, Config{ChunkSize: 64, FirstCheckpoint: 100})
	d := h.NewDigest("/f.bin", int64(len(data)))
	ctx := context.Background()

	require.NoError(t, d.Extend(ctx, 500))
	covered, sum := d.Snapshot()
	assert.Equal(t, int64(500), covered)
	assert.Equal(t, sumOf(XXHash, data[:500]), sum)
	assert.Equal(t, 1, src.Opens("/f.bin"))

	// Un objetivo menor o igual no hace nada.
	require.NoError(t, d.Extend(ctx, 300))
	require.NoError(t, d.Extend(ctx, 500))
	assert.Equal(t, int64(500), d.BytesRead())
	assert.Equal(t, 1, d.Opens())

	// Pasado el final se detiene en el tamaño del archivo.
	require.NoError(t, d.Extend(ctx, 1<<40))
	assert.Equal(t, int64(len(data)), d.Covered())
	assert.Equal(t, int64(len(data)), d.BytesRead())
	assert.Equal(t, int64(len(data)), src.BytesRead("/f.bin"))

	final, ok := d.Final()
	require.True(t, ok)
	assert.Equal(t, int64(len(data)), final.Offset)
	assert.Equal(t, sumOf(XXHash, data), final.Sum)
}

func TestDigestCheckpointSchedule(t *testing.T) {
	t.Parallel()

	data := testutil.Content(10_000, 4)
	src := testutil.MemSource(t, map[string][]byte{"/f.bin": data})
	h := New(src, Config{Algorithm: SHA256, ChunkSize: 256, FirstCheckpoint: 100, MaxStep: 1000})
	d := h.NewDigest("/f.bin", int64(len(data)))
	ctx := context.Background()

	want := []int64{100, 200, 400, 800, 1600, 2600, 3600, 4600, 5600, 6600, 7600, 8600, 9600, 10_000}
	for k, off := range want {
		cp, err := d.Checkpoint(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, off, cp.Offset, "checkpoint %d", k)
		assert.Equal(t, sumOf(SHA256, data[:off]), cp.Sum, "checkpoint %d", k)
	}

	_, err := d.Checkpoint(ctx, len(want))
	assert.Error(t, err)

	// Volver a un punto de control anterior no vuelve a leer.
	read := d.BytesRead()
	cp, err := d.Checkpoint(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(400), cp.Offset)
	assert.Equal(t, read, d.BytesRead())
}

func TestDigestEmptyFile(t *testing.T) {
	t.Parallel()

	src := testutil.NewCountingSource(testutil.MemSource(t, map[string][]byte{"/empty": {}}))
	d := New(src, Config{}).NewDigest("/empty", 0)

	cp, err := d.Checkpoint(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cp.Offset)
	assert.Equal(t, sumOf(XXHash, nil), cp.Sum)
	assert.Equal(t, 0, src.TotalOpens())

	_, ok := d.Final()
	assert.True(t, ok)
}

func TestDigestReadFailureKeepsProgress(t *testing.T) {
	t.Parallel()

	data := testutil.Content(1000, 5)
	src := &testutil.FailingSource{
		Source: testutil.MemSource(t, map[string][]byte{"/f.bin": data}),
		Limits: map[string]int64{"/f.bin": 250},
	}
	h := New(src, Config{ChunkSize: 64, FirstCheckpoint: 100})
	d := h.NewDigest("/f.bin", int64(len(data)))
	ctx := context.Background()

	err := d.Extend(ctx, 1000)
	require.Error(t, err)
	assert.ErrorIs(t, err, fsys.ErrRead)
	assert.ErrorIs(t, err, testutil.ErrInjected)
	path, ok := fsys.PathOf(err)
	require.True(t, ok)
	assert.Equal(t, "/f.bin", path)

	covered, sum := d.Snapshot()
	assert.Equal(t, int64(200), covered)
	assert.Equal(t, sumOf(XXHash, data[:200]), sum)

	// Un intento posterior continúa desde lo conservado.
	delete(src.Limits, "/f.bin")
	require.NoError(t, d.Extend(ctx, 1000))
	final, ok := d.Final()
	require.True(t, ok)
	assert.Equal(t, sumOf(XXHash, data), final.Sum)
	assert.Equal(t, int64(1000), d.Covered())
}

func TestDigestMissingFile(t *testing.T) {
	t.Parallel()

	src := testutil.MemSource(t, map[string][]byte{})
	d := New(src, Config{}).NewDigest("/gone.bin", 10)

	err := d.Extend(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, fsys.ErrNotFound)
	assert.Equal(t, int64(0), d.Covered())
}

func TestDigestOpenFileLimit(t *testing.T) {
	t.Parallel()

	files := make(map[string][]byte)
	names := []string{"/a", "/b", "/c", "/d", "/e", "/f", "/g", "/h"}
	for i, name := range names {
		files[name] = testutil.Content(5000, byte(i))
	}
	h := New(testutil.MemSource(t, files), Config{MaxOpenFiles: 1, ChunkSize: 128})

	var wg sync.WaitGroup
	errs := make([]error, len(names))
	digests := make([]*Digest, len(names))
	for i, name := range names {
		digests[i] = h.NewDigest(name, 5000)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = digests[i].Extend(context.Background(), 5000)
		}(i)
	}
	wg.Wait()

	for i, name := range names {
		require.NoError(t, errs[i])
		final, ok := digests[i].Final()
		require.True(t, ok)
		assert.Equal(t, sumOf(XXHash, files[name]), final.Sum)
	}
}

func TestDigestCanceledContext(t *testing.T) {
	t.Parallel()

	src := testutil.MemSource(t, map[string][]byte{"/f.bin": testutil.Content(100, 1)})
	d := New(src, Config{MaxOpenFiles: -1}).NewDigest("/f.bin", 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Extend(ctx, 100)
	assert.ErrorIs(t, err, context.Canceled)
}
