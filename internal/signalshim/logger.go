package signalshim

import (
	"context"
	"log/slog"
	"time"

	"github.com/joshuarubin/blobstore/internal/queue"
)

// Record is one log entry queued for the logger goroutine. Level and
// Message mirror slog's model; Args are passed through as structured
// key/value pairs.
type Record struct {
	Level   slog.Level
	Message string
	Args    []any
}

// Logger is a dedicated goroutine that drains an unbounded queue of
// Records and writes them to an *slog.Logger sink, stamping each with
// wall-clock time at the moment it is dequeued (spec §4.I: "a logger is a
// thread that consumes from its queue until closed, stamping every record
// with wall-clock time"). Log records are owned by the logger after
// enqueue — callers must not mutate a Record after calling Log.
type Logger struct {
	sink  *slog.Logger
	queue *queue.Queue[Record]
	done  chan struct{}
}

// NewLogger starts the logger goroutine, writing to sink.
func NewLogger(sink *slog.Logger) *Logger {
	l := &Logger{
		sink:  sink,
		queue: queue.New[Record](queue.FIFO),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Logger) run() {
	defer close(l.done)
	for {
		rec, err := l.queue.Get()
		if err != nil {
			return
		}
		args := append([]any{"ts", time.Now()}, rec.Args...)
		l.sink.Log(context.Background(), rec.Level, rec.Message, args...)
	}
}

// Log enqueues a record. It never blocks on I/O; it only blocks if memory
// allocation for the queue node does, same as any Go channel/slice send.
func (l *Logger) Log(level slog.Level, msg string, args ...any) {
	_ = l.queue.Put(Record{Level: level, Message: msg, Args: args})
}

func (l *Logger) Info(msg string, args ...any)  { l.Log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.Log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.Log(slog.LevelError, msg, args...) }

// Close closes the logger's queue and blocks until every already-queued
// record has been written and the goroutine has exited.
func (l *Logger) Close() {
	l.queue.Close()
	<-l.done
}
