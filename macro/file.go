package macro

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/unkn0wn-root/revcache"
)

// FileExt expands to the extension of the file in context, without the dot.
// Extensions are a pure function of the path, so they are cached for good.
type FileExt struct {
	exts *revcache.Parameterized[string, string]
}

var _ Macro = (*FileExt)(nil)

// NewFileExt caches at most maxEntries paths (0 = unbounded).
func NewFileExt(f *revcache.Factory, maxEntries int) (*FileExt, error) {
	exts, err := revcache.NewParameterized[string, string](f,
		revcache.ParamProviderFunc[string, string](func(_ context.Context, path string) (revcache.Result[string], error) {
			return revcache.NewResult(extension(path), revcache.Never), nil
		}),
		true,
		revcache.WithName("macro.FileExt"),
		revcache.WithMaxEntries(maxEntries),
	)
	if err != nil {
		return nil, err
	}
	return &FileExt{exts: exts}, nil
}

func (*FileExt) Name() string        { return "FileExt" }
func (*FileExt) Description() string { return "File extension" }

func (m *FileExt) Expand(ctx context.Context, dc DataContext) (string, bool, error) {
	if dc.File == nil {
		return "", false, nil
	}
	ext, err := m.exts.Get(ctx, dc.File.Path)
	if err != nil {
		return "", false, err
	}
	return ext, ext != "", nil
}

// extension follows the usual file-name rule: the text after the last dot of
// the base name. Dot-files such as ".profile" have no extension.
func extension(path string) string {
	name := filepath.Base(path)
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i+1:]
}

// FileName expands to the base name of the file in context.
type FileName struct{}

func (FileName) Name() string        { return "FileName" }
func (FileName) Description() string { return "File name" }

func (FileName) Expand(_ context.Context, dc DataContext) (string, bool, error) {
	if dc.File == nil {
		return "", false, nil
	}
	return dc.File.Name(), true, nil
}

// FileDir expands to the directory holding the file in context.
type FileDir struct{}

func (FileDir) Name() string        { return "FileDir" }
func (FileDir) Description() string { return "File directory" }

func (FileDir) Expand(_ context.Context, dc DataContext) (string, bool, error) {
	if dc.File == nil {
		return "", false, nil
	}
	return filepath.Dir(dc.File.Path), true, nil
}
