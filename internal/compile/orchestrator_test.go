package compile

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// writeWorkerScript creates a throwaway shell-script worker so the
// real spawn/race/kill paths run in tests.
func writeWorkerScript(t *testing.T, name, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func respondingWorker(t *testing.T) string {
	return writeWorkerScript(t, "respond.sh", `#!/bin/sh
read line
echo '{"payload":"ok"}'
`)
}

func sleepingWorker(t *testing.T) string {
	return writeWorkerScript(t, "sleep.sh", `#!/bin/sh
sleep 10
`)
}

func TestRun_Success(t *testing.T) {
	o := &Orchestrator{WorkerBinary: respondingWorker(t)}

	payload, err := o.Run(context.Background(), Request{}, 5*time.Second)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if string(payload) != "ok" {
		t.Errorf("expected payload ok, got %q", payload)
	}
}

func TestRun_Timeout(t *testing.T) {
	o := &Orchestrator{WorkerBinary: sleepingWorker(t)}

	start := time.Now()
	_, err := o.Run(context.Background(), Request{}, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("deadline not enforced, took %v", elapsed)
	}
}

func TestRun_WorkerError(t *testing.T) {
	script := writeWorkerScript(t, "err.sh", `#!/bin/sh
read line
echo '{"error":{"message":"boom","cause":"bad model"}}'
`)
	o := &Orchestrator{WorkerBinary: script}

	_, err := o.Run(context.Background(), Request{}, 5*time.Second)

	var workerErr *WorkerError
	if !errors.As(err, &workerErr) {
		t.Fatalf("expected WorkerError, got %v", err)
	}
	if workerErr.Message != "boom" {
		t.Errorf("expected message boom, got %q", workerErr.Message)
	}
	if workerErr.Cause == nil || !strings.Contains(workerErr.Cause.Error(), "bad model") {
		t.Errorf("expected cause to be carried, got %v", workerErr.Cause)
	}
}

func TestRun_ProcessExit(t *testing.T) {
	script := writeWorkerScript(t, "fail.sh", `#!/bin/sh
read line
exit 3
`)
	o := &Orchestrator{WorkerBinary: script}

	_, err := o.Run(context.Background(), Request{}, 5*time.Second)

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("expected code 3, got %d", exitErr.Code)
	}
}

func TestRun_CleanExitWithoutResponse(t *testing.T) {
	// Exit 0 with no response is not a failure signal; the race
	// resolves by deadline.
	script := writeWorkerScript(t, "exit0.sh", `#!/bin/sh
read line
exit 0
`)
	o := &Orchestrator{WorkerBinary: script}

	_, err := o.Run(context.Background(), Request{}, 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	o := &Orchestrator{WorkerBinary: filepath.Join(t.TempDir(), "missing")}

	_, err := o.Run(context.Background(), Request{}, time.Second)
	if err == nil || !strings.Contains(err.Error(), "spawn worker") {
		t.Errorf("expected spawn error, got %v", err)
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	o := &Orchestrator{WorkerBinary: sleepingWorker(t)}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := o.Run(ctx, Request{}, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_ConcurrentCallsAreIndependent(t *testing.T) {
	slow := &Orchestrator{WorkerBinary: sleepingWorker(t)}
	fast := &Orchestrator{WorkerBinary: respondingWorker(t)}

	var wg sync.WaitGroup
	var slowErr error
	var fastPayload []byte
	var fastErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, slowErr = slow.Run(context.Background(), Request{}, 50*time.Millisecond)
	}()
	go func() {
		defer wg.Done()
		fastPayload, fastErr = fast.Run(context.Background(), Request{}, 5*time.Second)
	}()
	wg.Wait()

	if !errors.Is(slowErr, ErrTimeout) {
		t.Errorf("slow call should time out on its own deadline, got %v", slowErr)
	}
	if fastErr != nil {
		t.Errorf("fast call should succeed, got %v", fastErr)
	}
	if string(fastPayload) != "ok" {
		t.Errorf("fast call payload corrupted: %q", fastPayload)
	}
}

func TestWorkerHandle_TerminateIdempotent(t *testing.T) {
	h, err := Spawn(sleepingWorker(t))
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	h.Terminate()
	h.Terminate() // second call must be a no-op

	// The exit watcher reaps the killed process; once it has, signal 0
	// reports the process as gone.
	deadline := time.Now().Add(5 * time.Second)
	for h.cmd.Process.Signal(syscall.Signal(0)) == nil {
		if time.Now().After(deadline) {
			t.Fatal("worker was not reaped after Terminate")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A kill is cleanup, not an outcome.
	select {
	case code := <-h.Exit():
		t.Errorf("kill should not produce an exit signal, got %d", code)
	default:
	}

	h.Terminate() // still safe on a dead process
}
