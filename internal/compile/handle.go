package compile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// WorkerHandle owns one spawned worker process and its JSON message
// channel over stdin/stdout. Exactly one request may be in flight per
// handle; the handle is destroyed at the end of the call that created
// it, whatever the outcome.
type WorkerHandle struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder
	dec   *json.Decoder

	respCh chan Response
	errCh  chan error
	exitCh chan int

	readerDone chan struct{}
	killOnce   sync.Once
}

// Spawn starts a worker process with piped stdin/stdout. Its stderr is
// inherited so worker diagnostics stay visible.
func Spawn(binary string, args ...string) (*WorkerHandle, error) {
	cmd := exec.Command(binary, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, err
	}

	h := &WorkerHandle{
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		dec:    json.NewDecoder(stdout),
		respCh: make(chan Response, 1),
		// Both the reader and the exit watcher can report a transport
		// failure; capacity for both keeps them from blocking forever.
		errCh:      make(chan error, 2),
		exitCh:     make(chan int, 1),
		readerDone: make(chan struct{}),
	}

	go h.readResponse()
	go h.watchExit()

	return h, nil
}

// Send transmits the request. Call it at most once per handle.
func (h *WorkerHandle) Send(req Request) error {
	if err := h.enc.Encode(req); err != nil {
		return fmt.Errorf("send compile request: %w", err)
	}
	return nil
}

// Response delivers the worker's success or structured-error message.
func (h *WorkerHandle) Response() <-chan Response { return h.respCh }

// Err delivers transport-level failures.
func (h *WorkerHandle) Err() <-chan error { return h.errCh }

// Exit delivers the exit code when the worker terminates with a
// non-zero code before emitting a response.
func (h *WorkerHandle) Exit() <-chan int { return h.exitCh }

// Terminate kills the worker process. It is safe to call repeatedly
// and safe to call after the process has already exited.
func (h *WorkerHandle) Terminate() {
	h.killOnce.Do(func() {
		h.stdin.Close()
		if h.cmd.Process != nil {
			h.cmd.Process.Kill()
		}
	})
}

func (h *WorkerHandle) readResponse() {
	defer close(h.readerDone)

	var resp Response
	if err := h.dec.Decode(&resp); err != nil {
		// EOF means the worker closed stdout without responding; the
		// exit watcher reports what actually happened to the process.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return
		}
		h.errCh <- fmt.Errorf("read worker response: %w", err)
		return
	}
	h.respCh <- resp
}

// watchExit reaps the process. Waiting is deferred until the reader is
// done so Wait cannot close the stdout pipe underneath it.
func (h *WorkerHandle) watchExit() {
	<-h.readerDone

	err := h.cmd.Wait()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			h.errCh <- fmt.Errorf("wait for worker: %w", err)
			return
		}
		code = exitErr.ExitCode()
	}

	// Exit 0 without a response is not a failure signal: a well-behaved
	// worker closes cleanly after responding. A kill shows up as a
	// negative code and is part of cleanup, not an outcome.
	if code > 0 {
		h.exitCh <- code
	}
}
