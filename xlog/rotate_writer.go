package xlog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/safearchive/zip"
	"github.com/google/safeopen"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xordered/lib/infra"
)

type fileSizeUnit uint64

const (
	B fileSizeUnit = 1 << (10 * iota)
	KB
	MB
	_maxSize = 1024 * MB
)

const (
	backupTimeFormat = "20060102T150405.000000000"
	archiveTmpName   = "xlog-archive.tmp"
)

var fileSizeRegexp = regexp.MustCompile(`^(\d+)(([kK]|[mM])?[bB])$`)

func parseFileSize(size string) (uint64, error) {
	res := fileSizeRegexp.FindStringSubmatch(size)
	if len(res) < 3 || res[0] != size {
		return 0, infra.NewErrorStack("[xlog] invalid file size unit: " + size)
	}
	var unit fileSizeUnit
	switch strings.ToUpper(res[2]) {
	case "B":
		unit = B
	case "KB":
		unit = KB
	case "MB":
		unit = MB
	}
	num, err := strconv.ParseUint(res[1], 10, 64)
	if err != nil {
		return 0, infra.WrapErrorStackWithMessage(err, "[xlog] unknown file size: "+size)
	}
	if num > uint64(_maxSize)/uint64(unit) {
		return uint64(_maxSize), nil
	}
	return num * uint64(unit), nil
}

type RotateWriterConfig struct {
	Dir      string
	Filename string
	// MaxSize like "512KB" or "10MB", capped at 1024MB.
	MaxSize    string
	MaxBackups int
	// ArchiveName is the zip archive the pruned backups are moved into.
	// The pruned backups are deleted if it is empty.
	ArchiveName string
}

// RotateWriter is a size based rotating log file.
type RotateWriter interface {
	zapcore.WriteSyncer
	io.Closer
}

var _ RotateWriter = (*rotateWriter)(nil)

type rotateWriter struct {
	ctx     context.Context
	cfg     RotateWriterConfig
	lock    sync.Mutex
	file    *os.File
	watcher *fsnotify.Watcher
	maxSize uint64
	wrote   uint64
	seq     uint64
	reopen  atomic.Bool
}

func (w *rotateWriter) Write(p []byte) (n int, err error) {
	select {
	case <-w.ctx.Done():
		return 0, io.EOF
	default:
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.reopen.CompareAndSwap(true, false) && w.file != nil {
		// The active file was moved or removed by someone else.
		_ = w.file.Close()
		w.file = nil
	}
	if w.file == nil {
		if err = w.openOrCreate(); err != nil {
			return 0, err
		}
	}
	if w.wrote > 0 && w.wrote+uint64(len(p)) > w.maxSize {
		if err = w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err = w.file.Write(p)
	w.wrote += uint64(n)
	return n, err
}

func (w *rotateWriter) Sync() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

func (w *rotateWriter) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	var merr error
	if w.file != nil {
		merr = multierr.Append(merr, w.file.Close())
		w.file = nil
	}
	if w.watcher != nil {
		merr = multierr.Append(merr, w.watcher.Close())
		w.watcher = nil
	}
	return merr
}

func (w *rotateWriter) openOrCreate() error {
	f, err := safeopen.OpenFileBeneath(w.cfg.Dir, w.cfg.Filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "[xlog] unable to open log file "+filepath.Join(w.cfg.Dir, w.cfg.Filename))
	}
	info, err := f.Stat()
	if err != nil {
		return multierr.Combine(infra.WrapErrorStack(err), f.Close())
	}
	w.file = f
	w.wrote = uint64(info.Size())
	return nil
}

func (w *rotateWriter) splitFilename() (prefix, ext string) {
	ext = filepath.Ext(w.cfg.Filename)
	return strings.TrimSuffix(w.cfg.Filename, ext), ext
}

func (w *rotateWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return infra.WrapErrorStackWithMessage(err, "[xlog] unable to close log file before rotation")
	}
	w.file = nil

	prefix, ext := w.splitFilename()
	w.seq++
	backup := fmt.Sprintf("%s_%s_%06d%s", prefix, time.Now().UTC().Format(backupTimeFormat), w.seq, ext)
	if err := os.Rename(
		filepath.Join(w.cfg.Dir, w.cfg.Filename),
		filepath.Join(w.cfg.Dir, backup),
	); err != nil {
		return infra.WrapErrorStackWithMessage(err, "[xlog] unable to backup log file")
	}
	if err := w.prune(); err != nil {
		handleRotateError(err)
	}
	return w.openOrCreate()
}

// backups lists the rotated files, the oldest first.
func (w *rotateWriter) backups() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	prefix, ext := w.splitFilename()
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == w.cfg.Filename {
			continue
		}
		if strings.HasPrefix(name, prefix+"_") && strings.HasSuffix(name, ext) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (w *rotateWriter) prune() error {
	names, err := w.backups()
	if err != nil {
		return err
	}
	redundant := len(names) - w.cfg.MaxBackups
	if redundant <= 0 {
		return nil
	}
	expired := names[:redundant]
	if len(w.cfg.ArchiveName) > 0 {
		return archiveBackups(w.cfg.Dir, w.cfg.ArchiveName, expired)
	}
	var merr error
	for _, name := range expired {
		merr = multierr.Append(merr, os.Remove(filepath.Join(w.cfg.Dir, name)))
	}
	return merr
}

// archiveBackups rewrites the archive with its previous entries plus the
// expired backups, then removes the expired backups.
func archiveBackups(dir, archiveName string, expired []string) error {
	tmp, err := safeopen.OpenFileBeneath(dir, archiveTmpName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return infra.WrapErrorStack(err)
	}
	zipWriter := zip.NewWriter(tmp)

	var merr error
	if prev, err := zip.OpenReader(filepath.Join(dir, archiveName)); err == nil {
		prev.SetSecurityMode(prev.GetSecurityMode() | zip.MaximumSecurityMode)
		for _, f := range prev.File {
			if f.Mode().IsDir() {
				continue
			}
			merr = multierr.Append(merr, copyZipEntry(zipWriter, f))
		}
		merr = multierr.Append(merr, prev.Close())
	}

	archived := make([]string, 0, len(expired))
	for _, name := range expired {
		if err := copyFileToZip(zipWriter, dir, name); err != nil {
			merr = multierr.Append(merr, err)
			continue
		}
		archived = append(archived, name)
	}
	merr = multierr.Append(merr, zipWriter.Close())
	merr = multierr.Append(merr, tmp.Close())
	if merr != nil {
		_ = os.Remove(filepath.Join(dir, archiveTmpName))
		return merr
	}

	if err = os.Rename(filepath.Join(dir, archiveTmpName), filepath.Join(dir, archiveName)); err != nil {
		return infra.WrapErrorStack(err)
	}
	for _, name := range archived {
		merr = multierr.Append(merr, os.Remove(filepath.Join(dir, name)))
	}
	return merr
}

func copyZipEntry(zipWriter *zip.Writer, f *zip.File) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()
	dst, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:   f.Name,
		Method: f.Method,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, r)
	return err
}

func copyFileToZip(zipWriter *zip.Writer, dir, name string) error {
	src, err := safeopen.OpenBeneath(dir, name)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()
	dst, err := zipWriter.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

// watch marks the active file to be reopened once it disappears from
// the directory under our feet.
func (w *rotateWriter) watch(watcher *fsnotify.Watcher) {
	active := filepath.Join(w.cfg.Dir, w.cfg.Filename)
	for {
		select {
		case <-w.ctx.Done():
			_ = w.Close()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == active &&
				(event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				w.reopen.Store(true)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			handleRotateError(err)
		}
	}
}

func handleRotateError(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "[xlog] rotate file occurs error: %s\n", err)
	}
}

// NewRotateWriter writes into cfg.Dir/cfg.Filename, rotating by size.
// The writer is closed when ctx is done.
func NewRotateWriter(ctx context.Context, cfg RotateWriterConfig) (RotateWriter, error) {
	if ctx == nil {
		return nil, infra.NewErrorStack("[xlog] nil context")
	}
	if len(cfg.Filename) == 0 || filepath.Base(cfg.Filename) != cfg.Filename {
		return nil, infra.NewErrorStack("[xlog] invalid log filename: " + cfg.Filename)
	}
	if len(cfg.Dir) == 0 {
		cfg.Dir = os.TempDir()
	}
	if cfg.Dir = filepath.Clean(cfg.Dir); cfg.Dir != os.TempDir() {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, infra.WrapErrorStack(err)
		}
	}
	if cfg.MaxBackups < 0 {
		cfg.MaxBackups = 0
	}
	size, err := parseFileSize(cfg.MaxSize)
	if err != nil {
		return nil, err
	}

	w := &rotateWriter{
		ctx:     ctx,
		cfg:     cfg,
		maxSize: size,
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[xlog] failed to create file watcher")
	}
	if err = watcher.Add(cfg.Dir); err != nil {
		return nil, multierr.Combine(
			infra.WrapErrorStackWithMessage(err, "[xlog] failed to watch log directory"),
			watcher.Close(),
		)
	}
	w.watcher = watcher
	go w.watch(watcher)
	return w, nil
}
