package generator

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"hookgen/internal/bytecode"
)

// File is one artifact, its path relative to the output directory in
// slash form.
type File struct {
	Path string `msgpack:"path"`
	Data []byte `msgpack:"data"`
}

const disasmDir = "disasm"

// Artifacts renders every output file of a successful run: one encoded class
// per mixin, the engine manifest, the access widener and, in dev mode, a
// disassembly listing per class.
func (r *Result) Artifacts() ([]File, error) {
	if r.Bag != nil && r.Bag.HasErrors() {
		return nil, fmt.Errorf("refusing to render artifacts: %s", diagSummary(r))
	}
	files := make([]File, 0, 2*len(r.Classes)+2)
	for _, c := range r.Classes {
		data, err := bytecode.Marshal(c.Class)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.Class.Name, err)
		}
		files = append(files, File{Path: c.Class.Name + bytecode.FileExt, Data: data})
		if r.opts.Dev {
			files = append(files, File{
				Path: path.Join(disasmDir, c.Name+".disasm"),
				Data: []byte(bytecode.DisassembleString(c.Class)),
			})
		}
	}
	manifest, err := r.Manifest.MarshalIndent()
	if err != nil {
		return nil, err
	}
	files = append(files, File{Path: ManifestName(r.opts.ModID), Data: manifest})

	var aw bytes.Buffer
	if _, err := r.Wideners.WriteTo(&aw); err != nil {
		return nil, err
	}
	files = append(files, File{Path: WidenerName(r.opts.ModID), Data: aw.Bytes()})
	return files, nil
}

// WriteOptions configures Write.
type WriteOptions struct {
	// Clear removes the output directory before writing.
	Clear bool
	// Prune removes generated files (.hkc, .disasm) not in the new set.
	Prune bool
	Jobs  int
}

// Write stores files under dir in parallel. Each file is written to a
// temporary name and renamed into place.
func Write(ctx context.Context, dir string, files []File, opts WriteOptions) error {
	if opts.Clear {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if opts.Prune && !opts.Clear {
		if err := prune(dir, files); err != nil {
			return err
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(files))))
	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return writeAtomic(filepath.Join(dir, filepath.FromSlash(f.Path)), f.Data)
		})
	}
	return g.Wait()
}

func writeAtomic(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func prune(dir string, keep []File) error {
	wanted := make(map[string]bool, len(keep))
	for _, f := range keep {
		wanted[filepath.FromSlash(f.Path)] = true
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(p); ext != bytecode.FileExt && ext != ".disasm" {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil || wanted[rel] || strings.HasPrefix(rel, "..") {
			return err
		}
		return os.Remove(p)
	})
}
