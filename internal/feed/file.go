package feed

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

const DefaultPollInterval = time.Second

// Follower reads a file line by line from the start and then keeps
// following it like `tail -f`. New data is noticed through an fsnotify
// watch on the parent directory, with a poll interval as fallback.
type Follower struct {
	path    string
	poll    time.Duration
	file    *os.File
	reader  *bufio.Reader
	partial string
	watcher *fsnotify.Watcher
}

// NewFollower prepares to follow path. The file may not exist yet.
func NewFollower(path string, poll time.Duration) *Follower {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	f := &Follower{path: path, poll: poll}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn(context.Background(), "fsnotify unavailable, falling back to polling", "path", path, "error", err)
		return f
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		logger.Warn(context.Background(), "Failed to watch directory, falling back to polling", "path", path, "error", err)
		_ = w.Close()
		return f
	}
	f.watcher = w
	return f
}

func (f *Follower) Path() string { return f.path }

// NextLine returns the next non-empty line with surrounding whitespace trimmed.
// A trailing line without a newline is held until the newline arrives.
func (f *Follower) NextLine(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if f.reader == nil {
			if err := f.open(); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return "", err
				}
				if err := f.wait(ctx); err != nil {
					return "", err
				}
				continue
			}
		}

		chunk, err := f.reader.ReadString('\n')
		if err == nil {
			line := strings.TrimSpace(f.partial + chunk)
			f.partial = ""
			if line == "" {
				continue
			}
			return line, nil
		}
		if !errors.Is(err, io.EOF) {
			return "", err
		}

		f.partial += chunk
		if err := f.wait(ctx); err != nil {
			return "", err
		}
	}
}

func (f *Follower) open() error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	f.file = file
	f.reader = bufio.NewReader(file)
	return nil
}

func (f *Follower) wait(ctx context.Context) error {
	timer := time.NewTimer(f.poll)
	defer timer.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if f.watcher != nil {
		events = f.watcher.Events
		errs = f.watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(evt.Name) != filepath.Clean(f.path) {
				continue
			}
			if evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn(ctx, "File watch error", "path", f.path, "error", err)
		}
	}
}

func (f *Follower) Close() error {
	var errs []error
	if f.watcher != nil {
		errs = append(errs, f.watcher.Close())
	}
	if f.file != nil {
		errs = append(errs, f.file.Close())
	}
	return errors.Join(errs...)
}

// FileSource delivers every line of a followed sentiments file as a message.
type FileSource struct {
	follower *Follower
}

var _ Source = (*FileSource)(nil)

func NewFileSource(path string, poll time.Duration) *FileSource {
	return &FileSource{follower: NewFollower(path, poll)}
}

func (s *FileSource) Next(ctx context.Context) (Record, error) {
	line, err := s.follower.NextLine(ctx)
	if err != nil {
		return Record{}, err
	}
	logger.Info(ctx, "Read line", "file", s.follower.Path(), "line", line)
	return Record{Kind: KindMessage, Payload: line, Format: FormatLine}, nil
}

func (s *FileSource) Close() error {
	return s.follower.Close()
}

// FileSink appends sentiment lines to a file, creating its directory.
type FileSink struct {
	path string
	file *os.File
}

var _ Sink = (*FileSink)(nil)

// OpenFileSink truncates path, as every generator run rewrites its output.
func OpenFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{path: path, file: file}, nil
}

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(ctx context.Context, event types.SentimentEvent) error {
	line := FormatSentimentLine(event)
	logger.Info(ctx, "Write line", "file", s.path, "line", line)
	_, err := s.file.WriteString(line + "\n")
	return err
}

func (s *FileSink) Close() error {
	return s.file.Close()
}
