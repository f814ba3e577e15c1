// Package library loads a directory of call scripts into one image and hands out
// reference counted handles to the current image, so that a reload never pulls an
// image from under running calls.
package library

import (
	"encoding/binary"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/coocood/freecache"
	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/metrics"
	"github.com/ivrplatform/goivr/pkg/script"
	"github.com/ivrplatform/goivr/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	// ScriptExt marks call scripts, compiled into the library image.
	ScriptExt = ".scr"
	// DefsExt marks shared definitions (templates, defines), compiled into the shared image.
	DefsExt = ".def"

	digestCacheSize = 1024 * 1024
)

// Handle is a counted reference to a compiled image.
type Handle struct {
	img    *script.Image
	shared *script.Image
	digest uint64
	refs   atomic.Int32
}

func newHandle(img, shared *script.Image, digest uint64) *Handle {
	h := &Handle{img: img, shared: shared, digest: digest}
	h.refs.Store(1)
	metrics.ImageAcquired()
	return h
}

func (h *Handle) Image() *script.Image {
	return h.img
}

// Digest returns the hash of the sources the image was compiled from.
func (h *Handle) Digest() uint64 {
	return h.digest
}

// Acquire adds a reference.
func (h *Handle) Acquire() *Handle {
	h.refs.Inc()
	return h
}

// Release drops a reference. The image is released with the last one.
func (h *Handle) Release() {
	switch n := h.refs.Dec(); {
	case n == 0:
		h.img.Release()
		if h.shared != nil {
			h.shared.Release()
		}
		metrics.ImageReleased()
	case n < 0:
		zap.S().Named(logging.LibraryNamespace).Errorf("Image %d released too often", h.img.ID())
	}
}

// Library compiles the scripts found below a directory.
type Library struct {
	fs       afero.Fs
	dir      string
	compiler *script.Compiler
	logger   *zap.SugaredLogger
	// digests remembers the content hash of every source file by path.
	digests *freecache.Cache

	mu      sync.Mutex
	current *Handle
}

func New(fs afero.Fs, dir string, cfg settings.ScriptSettings) *Library {
	return &Library{
		fs:       fs,
		dir:      dir,
		compiler: script.NewCompiler(fs, cfg),
		logger:   zap.S().Named(logging.LibraryNamespace),
		digests:  freecache.NewCache(digestCacheSize),
	}
}

func (l *Library) Dir() string {
	return l.dir
}

// Acquire returns a new reference to the current image, nil before the first load.
func (l *Library) Acquire() *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil
	}
	return l.current.Acquire()
}

// Load compiles the library. Unless force is set nothing is compiled when no source
// changed since the previous load. It reports whether a new image was installed.
// Compile errors do not fail the load; they are logged and kept in the image.
func (l *Library) Load(force bool) (bool, error) {
	defs, scripts, err := l.scan()
	if err != nil {
		return false, err
	}
	if len(scripts) == 0 {
		return false, errors.Errorf("no scripts in %q", l.dir)
	}
	digest, err := l.digest(append(append([]string{}, defs...), scripts...))
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !force && l.current != nil && l.current.digest == digest {
		l.logger.Debugf("Library %q unchanged", l.dir)
		return false, nil
	}
	var shared *script.Image
	for _, path := range defs {
		shared = l.compiler.Compile(shared, path, nil)
	}
	var img *script.Image
	for _, path := range scripts {
		img = l.compiler.Compile(img, path, shared)
	}
	for _, e := range img.Errors() {
		l.logger.Warn(e.Error())
	}
	if shared != nil {
		for _, e := range shared.Errors() {
			l.logger.Warn(e.Error())
		}
	}
	prev := l.current
	l.current = newHandle(img, shared, digest)
	l.logger.Infof("Loaded %d scripts from %q into image %d with %d errors",
		len(scripts), l.dir, img.ID(), len(img.Errors()))
	if prev != nil {
		prev.Release()
	}
	return true, nil
}

// Close drops the library reference to the current image.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		l.current.Release()
		l.current = nil
	}
}

// scan lists definition and script files in lexical order.
func (l *Library) scan() ([]string, []string, error) {
	var defs, scripts []string
	err := afero.Walk(l.fs, l.dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case DefsExt:
			defs = append(defs, path)
		case ScriptExt:
			scripts = append(scripts, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to scan %q", l.dir)
	}
	sort.Strings(defs)
	sort.Strings(scripts)
	return defs, scripts, nil
}

// digest hashes the names and contents of the files, logging each file whose content changed.
func (l *Library) digest(paths []string) (uint64, error) {
	h := xxhash.New()
	var sum [8]byte
	for _, path := range paths {
		data, err := afero.ReadFile(l.fs, path)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to read %q", path)
		}
		binary.BigEndian.PutUint64(sum[:], xxhash.Sum64(data))
		if prev, err := l.digests.Get([]byte(path)); err != nil || string(prev) != string(sum[:]) {
			l.logger.Debugf("Script %q changed", path)
			if err := l.digests.Set([]byte(path), sum[:], 0); err != nil {
				return 0, errors.Wrapf(err, "failed to cache digest of %q", path)
			}
		}
		if _, err := h.WriteString(path); err != nil {
			return 0, err
		}
		if _, err := h.Write(sum[:]); err != nil {
			return 0, err
		}
	}
	return h.Sum64(), nil
}
