package rwlock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMultipleReadersConcurrent(t *testing.T) {
	t.Parallel()

	l := New()
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RLock()
			defer l.RUnlock()
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}

	wg.Wait()
	assert.Greater(t, atomic.LoadInt32(&maxActive), int32(1))
}

func TestWriterExcludesEveryone(t *testing.T) {
	t.Parallel()

	l := New()
	var mu sync.Mutex
	var order []string

	l.Lock()
	done := make(chan struct{})

	go func() {
		l.RLock()
		mu.Lock()
		order = append(order, "reader")
		mu.Unlock()
		l.RUnlock()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	order = append(order, "writer")
	mu.Unlock()
	l.Unlock()

	<-done
	assert.Equal(t, []string{"writer", "reader"}, order)
}

func TestWriterPreferenceOverNewReaders(t *testing.T) {
	t.Parallel()

	l := New()
	l.RLock() // hold a reader so the writer below has to wait

	var mu sync.Mutex
	var order []string
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		l.Lock()
		mu.Lock()
		order = append(order, "writer")
		mu.Unlock()
		l.Unlock()
		close(writerDone)
	}()

	time.Sleep(5 * time.Millisecond) // let the writer start waiting

	go func() {
		l.RLock()
		mu.Lock()
		order = append(order, "reader2")
		mu.Unlock()
		l.RUnlock()
		close(readerDone)
	}()

	time.Sleep(5 * time.Millisecond)
	l.RUnlock() // release the held reader; writer should go first

	<-writerDone
	<-readerDone

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"writer", "reader2"}, order)
}
