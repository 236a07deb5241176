package booking

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingSubmitter struct {
	mu       sync.Mutex
	requests []Request
	done     chan struct{}
}

func (s *recordingSubmitter) Submit(ctx context.Context, req Request) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.done != nil {
		s.done <- struct{}{}
	}
	return nil
}

func TestWorkerProcessesEnqueuedSubmission(t *testing.T) {
	queue := NewMemoryQueue(4)
	submitter := &recordingSubmitter{done: make(chan struct{}, 1)}
	worker := NewWorker(submitter, queue, nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	publisher := NewPublisher(queue, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	want := Request{
		ServiceID: "7",
		Date:      "2024-06-01",
		Time:      "09:00",
		Profile:   Profile{Name: "Alice", Surname: "Smith", Email: "a@b.com", Phone: "+100000"},
	}
	if err := publisher.EnqueueSubmit(ctx, 42, want); err != nil {
		t.Fatal(err)
	}

	select {
	case <-submitter.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the worker to process the job")
	}

	cancel()
	worker.Wait()

	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	if len(submitter.requests) != 1 {
		t.Fatalf("expected exactly 1 submission, got %d", len(submitter.requests))
	}
	if submitter.requests[0] != want {
		t.Fatalf("decoded request mismatch: %+v", submitter.requests[0])
	}
}

type blockingSubmitter struct {
	entered  chan struct{}
	release  chan struct{}
	ctxErr   error
	requests []Request
}

func (s *blockingSubmitter) Submit(ctx context.Context, req Request) error {
	close(s.entered)
	<-s.release
	s.ctxErr = ctx.Err()
	s.requests = append(s.requests, req)
	return nil
}

func TestWorkerFinishesInFlightSubmissionOnShutdown(t *testing.T) {
	queue := NewMemoryQueue(4)
	submitter := &blockingSubmitter{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	worker := NewWorker(submitter, queue, nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	publisher := NewPublisher(queue, nil)

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	req := Request{ServiceID: "7", Date: "2024-06-01", Time: "09:00"}
	if err := publisher.EnqueueSubmit(ctx, 42, req); err != nil {
		t.Fatal(err)
	}

	// Cancel the pool while the submission is mid-flight, then let it finish.
	<-submitter.entered
	cancel()
	close(submitter.release)
	worker.Wait()

	if submitter.ctxErr != nil {
		t.Fatalf("submission context canceled mid-flight: %v", submitter.ctxErr)
	}
	if len(submitter.requests) != 1 || submitter.requests[0] != req {
		t.Fatalf("submission did not run to completion: %+v", submitter.requests)
	}
}

func TestWorkerDropsUndecodableJob(t *testing.T) {
	queue := NewMemoryQueue(4)
	submitter := &recordingSubmitter{}
	worker := NewWorker(submitter, queue, nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	if err := queue.Send(ctx, "{not json"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)
	cancel()
	worker.Wait()

	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	if len(submitter.requests) != 0 {
		t.Fatalf("expected no submissions for garbage payload, got %d", len(submitter.requests))
	}
}

func TestMemoryQueueReceiveTimesOut(t *testing.T) {
	queue := NewMemoryQueue(1)

	start := time.Now()
	messages, err := queue.Receive(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if messages != nil {
		t.Fatalf("expected nil messages on timeout, got %v", messages)
	}
	if time.Since(start) < time.Second {
		t.Fatal("expected Receive to honor the wait duration")
	}
}
