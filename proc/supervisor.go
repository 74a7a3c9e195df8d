package proc

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leeineian/jukebox/sys"
	"github.com/shirou/gopsutil/v3/process"
)

// OutcomeKind is how a supervised process ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFailure
	OutcomeTimedOut
	OutcomeStalled
	OutcomeKilled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimedOut:
		return "timeout"
	case OutcomeStalled:
		return "stall"
	case OutcomeKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one supervised run.
type Outcome struct {
	Kind     OutcomeKind
	ExitCode int
	Stderr   string
	Err      error
	Elapsed  time.Duration
}

func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// Job describes one child process to supervise.
type Job struct {
	Name string
	Cmd  *exec.Cmd
	// Timeout is the hard wall-clock ceiling from spawn. Zero means none.
	Timeout time.Duration
	// StallTimeout kills the child when no progress line was seen for this long. Zero disables.
	StallTimeout time.Duration
	// Stdout, when set, receives the child's stdout verbatim instead of the progress scanner.
	Stdout io.Writer
}

const (
	maxDiagnosticBytes = 64 * 1024
	waitDelay          = 2 * time.Second
)

var progressPattern = regexp.MustCompile(`\[download\]\s+\d+(\.\d+)?%`)

// Supervisor spawns child processes under timeouts and keeps a registry of live ones.
type Supervisor struct {
	mu    sync.Mutex
	procs map[uint64]*Handle
	next  uint64
	now   func() time.Time
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		procs: make(map[uint64]*Handle),
		now:   time.Now,
	}
}

// Handle is a running child. Wait may be called any number of times.
type Handle struct {
	id       uint64
	sup      *Supervisor
	job      Job
	pid      int
	kill     chan struct{}
	killOnce sync.Once
	done     chan struct{}
	outcome  Outcome
}

func (h *Handle) Pid() int { return h.pid }

// Kill force-terminates the child and its descendants. Safe to call repeatedly.
func (h *Handle) Kill() {
	h.killOnce.Do(func() { close(h.kill) })
}

func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Wait() Outcome {
	<-h.done
	return h.outcome
}

// Run starts job and blocks until it ends.
func (s *Supervisor) Run(ctx context.Context, job Job) Outcome {
	return s.Start(ctx, job).Wait()
}

// Start spawns the child. A spawn error yields a handle that is already done
// with a Failure outcome.
func (s *Supervisor) Start(ctx context.Context, job Job) *Handle {
	h := &Handle{
		sup:  s,
		job:  job,
		kill: make(chan struct{}),
		done: make(chan struct{}),
	}

	diag := &diagnosticWriter{limit: maxDiagnosticBytes}
	progress := &progressWriter{now: s.now}
	progress.touch()

	cmd := job.Cmd
	if job.Stdout != nil {
		cmd.Stdout = job.Stdout
	} else {
		cmd.Stdout = progress
	}
	cmd.Stderr = io.MultiWriter(diag, progress)
	cmd.WaitDelay = waitDelay

	start := s.now()
	if err := cmd.Start(); err != nil {
		h.outcome = Outcome{Kind: OutcomeFailure, ExitCode: -1, Err: err, Stderr: err.Error()}
		close(h.done)
		return h
	}
	h.pid = cmd.Process.Pid

	s.register(h)
	go h.supervise(ctx, start, diag, progress)
	return h
}

func (h *Handle) supervise(ctx context.Context, start time.Time, diag *diagnosticWriter, progress *progressWriter) {
	s := h.sup
	defer close(h.done)
	defer s.release(h)

	waitErr := make(chan error, 1)
	go func() { waitErr <- h.job.Cmd.Wait() }()

	var timeout <-chan time.Time
	if h.job.Timeout > 0 {
		t := time.NewTimer(h.job.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	var stall <-chan time.Time
	if h.job.StallTimeout > 0 {
		interval := max(h.job.StallTimeout/4, 10*time.Millisecond)
		t := time.NewTicker(interval)
		defer t.Stop()
		stall = t.C
	}

	ctxDone := ctx.Done()
	killReq := (<-chan struct{})(h.kill)
	reason := OutcomeSuccess

	terminate := func(k OutcomeKind) {
		reason = k
		h.killTree()
		timeout, stall, ctxDone, killReq = nil, nil, nil, nil
	}

	for {
		select {
		case err := <-waitErr:
			h.outcome = h.finish(reason, err, diag.String(), s.now().Sub(start))
			return
		case <-timeout:
			terminate(OutcomeTimedOut)
		case <-stall:
			if s.now().Sub(progress.last()) > h.job.StallTimeout {
				terminate(OutcomeStalled)
			}
		case <-ctxDone:
			terminate(OutcomeKilled)
		case <-killReq:
			terminate(OutcomeKilled)
		}
	}
}

func (h *Handle) finish(reason OutcomeKind, err error, stderr string, elapsed time.Duration) Outcome {
	o := Outcome{Kind: reason, Stderr: stderr, Err: err, Elapsed: elapsed}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		o.ExitCode = 0
	case errors.As(err, &exitErr):
		o.ExitCode = exitErr.ExitCode()
	default:
		o.ExitCode = -1
	}
	if reason == OutcomeSuccess && err != nil {
		// Pipe copy errors after a clean exit still count as success.
		if errors.Is(err, exec.ErrWaitDelay) && o.ExitCode <= 0 {
			o.ExitCode = 0
		} else {
			o.Kind = OutcomeFailure
			if o.ExitCode == -1 {
				o.ExitCode = 1
			}
		}
	}
	if o.Kind != OutcomeSuccess {
		sys.LogDownloadWarn(sys.MsgDownloadFailed, h.job.Name, o.Kind, o.ExitCode)
	}
	return o
}

// killTree kills the child's descendants first, then the child.
func (h *Handle) killTree() {
	if err := killProcessTree(int32(h.pid)); err != nil {
		if h.job.Cmd.Process != nil {
			_ = h.job.Cmd.Process.Kill()
		}
		sys.LogDownloadWarn(sys.MsgDownloadKillFail, h.pid, err)
		return
	}
	sys.LogDebug(sys.MsgDownloadKilled, h.pid)
}

func killProcessTree(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	if children, err := p.Children(); err == nil {
		for _, c := range children {
			_ = killProcessTree(c.Pid)
		}
	}
	return p.Kill()
}

func (s *Supervisor) register(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h.id = s.next
	s.procs[h.id] = h
}

func (s *Supervisor) release(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.procs, h.id)
}

// Active is the number of live registered children.
func (s *Supervisor) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// KillAll force-kills every registered child and returns how many were signalled.
func (s *Supervisor) KillAll() int {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.procs))
	for _, h := range s.procs {
		handles = append(handles, h)
	}
	s.mu.Unlock()
	for _, h := range handles {
		h.Kill()
	}
	return len(handles)
}

// diagnosticWriter keeps the tail of a stream up to limit bytes.
type diagnosticWriter struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (w *diagnosticWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if over := len(w.buf) - w.limit; over > 0 {
		w.buf = w.buf[over:]
	}
	return len(p), nil
}

func (w *diagnosticWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}

// progressWriter records when the last progress line went by.
type progressWriter struct {
	mu      sync.Mutex
	partial []byte
	stamp   atomic.Int64
	now     func() time.Time
}

func (w *progressWriter) touch() { w.stamp.Store(w.now().UnixNano()) }

func (w *progressWriter) last() time.Time { return time.Unix(0, w.stamp.Load()) }

func (w *progressWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range p {
		if b == '\n' || b == '\r' {
			if progressPattern.Match(w.partial) {
				w.touch()
			}
			w.partial = w.partial[:0]
			continue
		}
		if len(w.partial) < 4096 {
			w.partial = append(w.partial, b)
		}
	}
	if progressPattern.Match(w.partial) {
		w.touch()
	}
	return len(p), nil
}
