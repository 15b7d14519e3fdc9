package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

// FileSaver writes certificates into Dir. A file only appears under its
// final name once fully written.
type FileSaver struct {
	Dir  string
	Perm os.FileMode
}

// Path returns where name would be saved.
func (f FileSaver) Path(name string) string {
	return filepath.Join(f.dir(), filepath.Base(name))
}

func (f FileSaver) dir() string {
	if f.Dir == "" {
		return "."
	}
	return f.Dir
}

func (f FileSaver) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir(), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir(), ".certgen-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	perm := f.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpName, f.Path(name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// WriterSaver streams the certificate to W, e.g. an HTTP response. Name
// is reported through OnName when set.
type WriterSaver struct {
	W      io.Writer
	OnName func(name string)
}

func (w WriterSaver) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.OnName != nil {
		w.OnName(name)
	}
	if _, err := w.W.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// WriterPreviewer writes the markup to W.
type WriterPreviewer struct {
	W io.Writer
}

func (w WriterPreviewer) Preview(_ context.Context, _ string, markup []byte) error {
	_, err := w.W.Write(markup)
	return err
}

// BrowserPreviewer writes the page to a file under Dir (the system temp dir
// when empty) and opens it with Viewer or the OS default application.
type BrowserPreviewer struct {
	Dir    string
	Viewer string

	mu   sync.Mutex
	last string
}

// LastPath returns the file written by the most recent Preview.
func (b *BrowserPreviewer) LastPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

func (b *BrowserPreviewer) Preview(ctx context.Context, name string, markup []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := b.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, markup, 0o644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	b.mu.Lock()
	b.last = path
	b.mu.Unlock()
	return openFile(path, b.Viewer)
}

// openFile starts the viewer detached so the caller can exit while it stays
// open.
func openFile(path, viewer string) error {
	var cmd *exec.Cmd
	switch {
	case viewer != "":
		cmd = exec.Command(viewer, path)
	case runtime.GOOS == "darwin":
		cmd = exec.Command("open", path)
	case runtime.GOOS == "windows":
		cmd = exec.Command("cmd", "/c", "start", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
