package ixgest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/tpu/am"
	"github.com/teranos/tpu/errors"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("<record>"+name+"</record>"), 0644))
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.xml", "a.xml", "b.xml")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	items, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, items, 3)

	for i, name := range []string{"a.xml", "b.xml", "c.xml"} {
		assert.Equal(t, i+1, items[i].Seq)
		assert.Equal(t, name, items[i].Name())
		assert.Equal(t, filepath.Join(dir, name), items[i].Path)
	}
}

func TestScan_EmptyAndMissing(t *testing.T) {
	items, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = Scan(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryIOError, errors.Category(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestItems_ContinuesNumbering(t *testing.T) {
	items := Items([]string{"/in/z.xml", "/in/y.xml"}, 4)
	require.Len(t, items, 2)
	assert.Equal(t, WorkItem{Seq: 4, Path: "/in/y.xml"}, items[0])
	assert.Equal(t, WorkItem{Seq: 5, Path: "/in/z.xml"}, items[1])
}

func TestPreprocessor_Apply(t *testing.T) {
	in := t.TempDir()
	writeFiles(t, in, "a.xml")
	out := filepath.Join(t.TempDir(), "pre")

	p, err := NewPreprocessor(am.PreprocessingConfig{
		Folder:  out,
		XSLT:    "style.xsl",
		Command: "cp {input} {output}",
	}, zap.NewNop().Sugar())
	require.NoError(t, err)

	result, cleanup, err := p.Apply(context.Background(), filepath.Join(in, "a.xml"))
	require.NoError(t, err)
	assert.Equal(t, out, filepath.Dir(result))
	assert.Equal(t, ".xml", filepath.Ext(result))

	data, err := os.ReadFile(result)
	require.NoError(t, err)
	assert.Equal(t, "<record>a.xml</record>", string(data))

	cleanup()
	_, err = os.Stat(result)
	assert.True(t, os.IsNotExist(err))
	cleanup()
}

func TestPreprocessor_UniqueOutputs(t *testing.T) {
	in := t.TempDir()
	writeFiles(t, in, "a.xml")
	p, err := NewPreprocessor(am.PreprocessingConfig{Folder: t.TempDir(), Command: "cp {input} {output}"}, nil)
	require.NoError(t, err)

	first, cleanup1, err := p.Apply(context.Background(), filepath.Join(in, "a.xml"))
	require.NoError(t, err)
	defer cleanup1()
	second, cleanup2, err := p.Apply(context.Background(), filepath.Join(in, "a.xml"))
	require.NoError(t, err)
	defer cleanup2()
	assert.NotEqual(t, first, second)
}

func TestPreprocessor_Expand(t *testing.T) {
	p, err := NewPreprocessor(am.PreprocessingConfig{XSLT: "/x/style.xsl"}, nil)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"xsltproc", "-o", "/tmp/out.xml", "/x/style.xsl", "/in/a b.xml"},
		p.expand("/in/a b.xml", "/tmp/out.xml"))
}

func TestPreprocessor_Failures(t *testing.T) {
	in := t.TempDir()
	writeFiles(t, in, "a.xml")

	t.Run("command fails", func(t *testing.T) {
		p, err := NewPreprocessor(am.PreprocessingConfig{Folder: t.TempDir(), Command: "false {output}"}, nil)
		require.NoError(t, err)
		_, cleanup, err := p.Apply(context.Background(), filepath.Join(in, "a.xml"))
		require.Error(t, err)
		cleanup()
	})

	t.Run("no output written", func(t *testing.T) {
		p, err := NewPreprocessor(am.PreprocessingConfig{Folder: t.TempDir(), Command: "true {output}"}, nil)
		require.NoError(t, err)
		_, cleanup, err := p.Apply(context.Background(), filepath.Join(in, "a.xml"))
		require.Error(t, err)
		assert.Equal(t, errors.CategoryIOError, errors.Category(err))
		cleanup()
	})
}

func TestNewPreprocessor_InvalidCommand(t *testing.T) {
	for _, command := range []string{`cp "{input} {output}`, "cp {input} result.xml"} {
		_, err := NewPreprocessor(am.PreprocessingConfig{Command: command}, nil)
		require.Error(t, err, command)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), command)
	}
}

func TestWatcher_DebouncesIntoOneBatch(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 100*time.Millisecond, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) { batches <- paths })
	}()

	writeFiles(t, dir, "b.xml", "a.xml")

	select {
	case paths := <-batches:
		assert.Equal(t, []string{filepath.Join(dir, "a.xml"), filepath.Join(dir, "b.xml")}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no batch released")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	var got [][]string
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	err = w.Run(ctx, func(paths []string) { got = append(got, paths) })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, got)
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), 0, nil)
	assert.Error(t, err)
}
