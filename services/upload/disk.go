package uploadsvc

import (
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/content"
)

// PublicPrefix prefixes every stored path; the API serves the uploads root under it.
const PublicPrefix = "uploads"

var errOutsideRoot = errors.New("path outside of uploads root")

// DiskStore saves uploaded files under a root directory.
type DiskStore struct {
	root string
}

var _ content.FileStore = (*DiskStore)(nil)

func NewDiskStore(conf *core.Config) *DiskStore {
	root := conf.Uploads.Dir
	if !filepath.IsAbs(root) {
		root = filepath.Join(conf.WorkDir, root)
	}
	return &DiskStore{root: root}
}

// Root returns the directory files are stored in.
func (s *DiskStore) Root() string { return s.root }

// SaveFile writes r to <root>/<folder>/<random hex><ext> and returns "uploads/<folder>/<name>".
func (s *DiskStore) SaveFile(folder, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload folder")
	}

	id := uuid.New()
	name := hex.EncodeToString(id[:]) + strings.ToLower(filepath.Ext(filename))

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	if _, err = io.Copy(dst, r); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", errors.Wrap(err, "writing upload file")
	}
	if err = dst.Close(); err != nil {
		return "", errors.Wrap(err, "closing upload file")
	}
	return path.Join(PublicPrefix, folder, name), nil
}

// RemoveFile deletes a file previously returned by SaveFile; missing files are ignored.
func (s *DiskStore) RemoveFile(p string) error {
	fp, err := s.diskPath(p)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing upload file")
	}
	return nil
}

// diskPath maps a stored path back to its location under root.
func (s *DiskStore) diskPath(p string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+p), "/"+PublicPrefix+"/")
	if rel == "" || strings.HasPrefix(rel, "/") {
		return "", errOutsideRoot
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// storedPath is the inverse of diskPath.
func (s *DiskStore) storedPath(fp string) (string, error) {
	rel, err := filepath.Rel(s.root, fp)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errOutsideRoot
	}
	return path.Join(PublicPrefix, filepath.ToSlash(rel)), nil
}
