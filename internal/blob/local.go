package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/chatsync/internal/filex"
)

// Local keeps files under Dir and serves them from PublicBase.
type Local struct {
	Dir        string
	PublicBase string
}

// NewLocal creates dir if needed. A relative dir is resolved against the
// working directory once, here.
func NewLocal(dir, publicBase string) (*Local, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: abs, PublicBase: publicBase}, nil
}

func (l *Local) Upload(ctx context.Context, data []byte, pathHint string) (string, error) {
	key, err := cleanKey(pathHint)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}
	return joinURL(l.PublicBase, key), nil
}

func (l *Local) Delete(ctx context.Context, pathHint string) error {
	key, err := cleanKey(pathHint)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.Dir, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
