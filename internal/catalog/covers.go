package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/shelfkeeper/internal/fileutil"
)

// ErrMissingID is returned when a cover operation is given a blank book id.
var ErrMissingID = errors.New("missing book id")

// Covers maps book ids to image files in a covers directory. A book has a
// cover only when its id is indexed and the file exists. Covers is not safe
// for concurrent use.
type Covers struct {
	indexPath string
	dir       string
	index     map[string]string
	run       *coverRun
}

// coverRun records what a sync run changed so it can be undone.
type coverRun struct {
	index map[string]string
	// files maps a written file name to its bytes before the run; nil
	// means the file did not exist.
	files map[string][]byte
}

// LoadCovers reads the cover index at indexPath. Files live in dir. A
// missing or malformed index yields an empty one.
func LoadCovers(indexPath, dir string) *Covers {
	c := &Covers{indexPath: indexPath, dir: dir, index: make(map[string]string)}

	var index map[string]string
	if _, err := fileutil.ReadJSONFile(indexPath, &index); err != nil {
		slog.Warn("Ignoring unreadable cover index", "path", indexPath, "error", err)
		return c
	}
	for id, name := range index {
		if strings.TrimSpace(id) != "" && strings.TrimSpace(name) != "" {
			c.index[id] = name
		}
	}
	return c
}

// Dir returns the covers directory.
func (c *Covers) Dir() string { return c.dir }

// Save writes the cover index.
func (c *Covers) Save() error {
	if err := fileutil.WriteJSONFile(c.index, c.indexPath); err != nil {
		return fmt.Errorf("saving cover index: %w", err)
	}
	return nil
}

// Filename returns the indexed file name for id, which may not exist on disk.
func (c *Covers) Filename(id string) string {
	return c.index[id]
}

// Path returns the cover file of id, or "" when it has none.
func (c *Covers) Path(id string) string {
	name := c.index[id]
	if name == "" {
		return ""
	}
	p := filepath.Join(c.dir, name)
	if !fileutil.FileExists(p) {
		return ""
	}
	return p
}

// HasCover reports whether id has a resolvable cover file.
func (c *Covers) HasCover(id string) bool {
	return c.Path(id) != ""
}

// Index returns a copy of the id to file name map.
func (c *Covers) Index() map[string]string {
	return maps.Clone(c.index)
}

// Len returns the number of indexed covers.
func (c *Covers) Len() int { return len(c.index) }

// Remove drops id from the index. The file is left in place.
func (c *Covers) Remove(id string) {
	delete(c.index, id)
}

// Reset clears the index and abandons any open run.
func (c *Covers) Reset() {
	c.index = make(map[string]string)
	c.run = nil
}

// Put writes data to filename in the covers directory and indexes it for id.
func (c *Covers) Put(id, filename string, data []byte) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	filename = fileutil.SanitizeFilename(filepath.Base(filename))
	if filename == "" || filename == "." {
		return fmt.Errorf("invalid cover file name for %s", id)
	}

	dest := filepath.Join(c.dir, filename)
	if err := c.remember(filename, dest); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing cover %s: %w", filename, err)
	}
	c.index[id] = filename
	return nil
}

// SetFromFile copies the image at src into the covers directory under a
// unique name and indexes it for id. It returns the stored file name.
func (c *Covers) SetFromFile(id, src string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingID
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("reading cover %s: %w", src, err)
	}

	stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	sum := sha1.Sum([]byte(src + stamp))
	filename := "user_" + fileutil.SanitizeFilename(id) + "_" + hex.EncodeToString(sum[:])[:10] + fileutil.CoverExtension(src)

	if err := c.Put(id, filename, data); err != nil {
		return "", err
	}
	return filename, nil
}

// Begin starts recording cover changes so that Rollback can undo them.
// Calling Begin while a run is open keeps the earlier snapshot.
func (c *Covers) Begin() {
	if c.run != nil {
		return
	}
	c.run = &coverRun{
		index: maps.Clone(c.index),
		files: make(map[string][]byte),
	}
}

// InRun reports whether a run is being recorded.
func (c *Covers) InRun() bool { return c.run != nil }

// Commit keeps every change made since Begin.
func (c *Covers) Commit() {
	c.run = nil
}

// Rollback deletes files created since Begin, restores the previous bytes of
// overwritten files and restores the index snapshot. It returns the ids whose
// index entry changed.
func (c *Covers) Rollback() ([]string, error) {
	run := c.run
	if run == nil {
		return nil, nil
	}
	c.run = nil

	var errs []error
	for name, prior := range run.files {
		p := filepath.Join(c.dir, name)
		if prior == nil {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("removing cover %s: %w", name, err))
			}
			continue
		}
		if err := fileutil.WriteFileAtomic(p, prior, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("restoring cover %s: %w", name, err))
		}
	}

	var touched []string
	for id, name := range c.index {
		if run.index[id] != name {
			touched = append(touched, id)
		}
	}
	for id := range run.index {
		if _, ok := c.index[id]; !ok {
			touched = append(touched, id)
		}
	}
	c.index = run.index

	slog.Debug("Cover run rolled back", "files", len(run.files), "ids", len(touched))
	return touched, errors.Join(errs...)
}

// remember stores the pre-run state of a file about to be written.
func (c *Covers) remember(name, path string) error {
	if c.run == nil {
		return nil
	}
	if _, seen := c.run.files[name]; seen {
		return nil
	}
	prior, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.run.files[name] = nil
	case err != nil:
		return fmt.Errorf("reading existing cover %s: %w", name, err)
	default:
		if prior == nil {
			prior = []byte{}
		}
		c.run.files[name] = prior
	}
	return nil
}
