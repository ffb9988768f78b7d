package progress

import (
	"fmt"
	"sync"
	"time"
)

// Reporter receives progress from fingerprint workers.
// Implementations must be safe for concurrent use.
type Reporter interface {
	// SetTotal sets the number of files and bytes queued for hashing
	SetTotal(totalFiles int, totalBytes int64)
	// FileDone reports one file fingerprinted
	FileDone(path string, bytes int64)
	// FileFailed reports one file that could not be fingerprinted
	FileFailed(path string, err error)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update is a snapshot of hashing progress
type Update struct {
	Type           UpdateType
	Path           string
	FilesDone      int
	FilesFailed    int
	FilesTotal     int
	BytesDone      int64
	BytesTotal     int64
	FilesPerSecond float64
	BytesPerSecond float64
	Error          error
}

// Processed returns the number of files handled, failed or not
func (u Update) Processed() int {
	return u.FilesDone + u.FilesFailed
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateDone UpdateType = iota
	UpdateError
)

// CallbackReporter implements Reporter with a callback function
type CallbackReporter struct {
	callback    Callback
	mu          sync.Mutex
	filesTotal  int
	bytesTotal  int64
	filesDone   int
	filesFailed int
	bytesDone   int64
	startTime   time.Time
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback:  callback,
		startTime: time.Now(),
	}
}

// SetTotal sets the total number of files and bytes and restarts the rate clock
func (r *CallbackReporter) SetTotal(totalFiles int, totalBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filesTotal = totalFiles
	r.bytesTotal = totalBytes
	r.startTime = time.Now()
}

// FileDone reports one file fingerprinted
func (r *CallbackReporter) FileDone(path string, bytes int64) {
	r.mu.Lock()
	r.filesDone++
	r.bytesDone += bytes
	update := r.snapshot(UpdateDone, path, nil)
	callback := r.callback
	r.mu.Unlock()

	// Call callback outside lock to prevent deadlock
	if callback != nil {
		callback(update)
	}
}

// FileFailed reports one file that could not be fingerprinted
func (r *CallbackReporter) FileFailed(path string, err error) {
	r.mu.Lock()
	r.filesFailed++
	update := r.snapshot(UpdateError, path, err)
	callback := r.callback
	r.mu.Unlock()

	if callback != nil {
		callback(update)
	}
}

// snapshot must be called with r.mu held
func (r *CallbackReporter) snapshot(typ UpdateType, path string, err error) Update {
	update := Update{
		Type:        typ,
		Path:        path,
		FilesDone:   r.filesDone,
		FilesFailed: r.filesFailed,
		FilesTotal:  r.filesTotal,
		BytesDone:   r.bytesDone,
		BytesTotal:  r.bytesTotal,
		Error:       err,
	}
	if elapsed := time.Since(r.startTime).Seconds(); elapsed > 0 {
		update.FilesPerSecond = float64(r.filesDone+r.filesFailed) / elapsed
		update.BytesPerSecond = float64(r.bytesDone) / elapsed
	}
	return update
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) SetTotal(totalFiles int, totalBytes int64) {}
func (NullReporter) FileDone(path string, bytes int64)         {}
func (NullReporter) FileFailed(path string, err error)         {}

// Every returns a Callback that forwards only every n-th processed file and
// the final one
func Every(n int, cb Callback) Callback {
	if n <= 1 {
		return cb
	}
	return func(u Update) {
		p := u.Processed()
		if p%n == 0 || (u.FilesTotal > 0 && p == u.FilesTotal) {
			cb(u)
		}
	}
}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatSpeed formats bytes per second into human-readable string
func FormatSpeed(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}

// FormatProgress returns a progress bar string
func FormatProgress(current, total int64, width int) string {
	if total == 0 {
		return ""
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}

	bar := make([]byte, width)
	for i := 0; i < width; i++ {
		if i < filled {
			bar[i] = '='
		} else if i == filled {
			bar[i] = '>'
		} else {
			bar[i] = ' '
		}
	}

	return fmt.Sprintf("[%s] %5.1f%%", string(bar), percent*100)
}
