package proc

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func shJob(name, script string) Job {
	return Job{Name: name, Cmd: exec.Command("sh", "-c", script)}
}

func TestSupervisorSuccess(t *testing.T) {
	s := NewSupervisor()
	o := s.Run(context.Background(), shJob("ok", "echo hello"))
	if !o.OK() || o.ExitCode != 0 {
		t.Fatalf("outcome = %+v", o)
	}
	if s.Active() != 0 {
		t.Fatalf("Active = %d after exit", s.Active())
	}
}

func TestSupervisorFailureKeepsStderr(t *testing.T) {
	s := NewSupervisor()
	o := s.Run(context.Background(), shJob("fail", "echo 'ERROR: Video unavailable' >&2; exit 3"))
	if o.Kind != OutcomeFailure || o.ExitCode != 3 {
		t.Fatalf("outcome = %+v", o)
	}
	if !strings.Contains(o.Stderr, "Video unavailable") {
		t.Fatalf("stderr = %q", o.Stderr)
	}
}

func TestSupervisorSpawnError(t *testing.T) {
	s := NewSupervisor()
	o := s.Run(context.Background(), Job{Name: "missing", Cmd: exec.Command("/nonexistent/binary")})
	if o.Kind != OutcomeFailure || o.ExitCode != -1 || o.Err == nil {
		t.Fatalf("outcome = %+v", o)
	}
}

func TestSupervisorTimeout(t *testing.T) {
	s := NewSupervisor()
	job := shJob("slow", "sleep 10")
	job.Timeout = 100 * time.Millisecond
	start := time.Now()
	o := s.Run(context.Background(), job)
	if o.Kind != OutcomeTimedOut {
		t.Fatalf("outcome = %+v", o)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout not enforced")
	}
}

func TestSupervisorStall(t *testing.T) {
	s := NewSupervisor()
	job := shJob("stuck", "echo '[download]  10.0% of 3MiB' >&2; sleep 10")
	job.StallTimeout = 200 * time.Millisecond
	o := s.Run(context.Background(), job)
	if o.Kind != OutcomeStalled {
		t.Fatalf("outcome = %+v", o)
	}
}

func TestSupervisorProgressPreventsStall(t *testing.T) {
	s := NewSupervisor()
	script := `for i in 1 2 3 4 5 6; do echo "[download] $i.0% of 1MiB" >&2; sleep 0.1; done`
	job := shJob("busy", script)
	job.StallTimeout = 400 * time.Millisecond
	if o := s.Run(context.Background(), job); !o.OK() {
		t.Fatalf("outcome = %+v", o)
	}
}

func TestSupervisorKill(t *testing.T) {
	s := NewSupervisor()
	h := s.Start(context.Background(), shJob("long", "sleep 10"))
	if h.Pid() == 0 {
		t.Fatal("no pid")
	}
	if s.Active() != 1 {
		t.Fatalf("Active = %d", s.Active())
	}
	h.Kill()
	h.Kill()
	if o := h.Wait(); o.Kind != OutcomeKilled {
		t.Fatalf("outcome = %+v", o)
	}
	if o := h.Wait(); o.Kind != OutcomeKilled {
		t.Fatal("second Wait differs")
	}
}

func TestSupervisorContextCancel(t *testing.T) {
	s := NewSupervisor()
	ctx, cancel := context.WithCancel(context.Background())
	h := s.Start(ctx, shJob("long", "sleep 10"))
	cancel()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("child survived context cancel")
	}
	if h.Wait().Kind != OutcomeKilled {
		t.Fatalf("outcome = %+v", h.Wait())
	}
}

func TestSupervisorKillAll(t *testing.T) {
	s := NewSupervisor()
	hs := []*Handle{
		s.Start(context.Background(), shJob("a", "sleep 10")),
		s.Start(context.Background(), shJob("b", "sleep 10")),
	}
	if n := s.KillAll(); n != 2 {
		t.Fatalf("KillAll = %d", n)
	}
	for _, h := range hs {
		if h.Wait().Kind != OutcomeKilled {
			t.Fatalf("outcome = %+v", h.Wait())
		}
	}
	if s.Active() != 0 {
		t.Fatalf("Active = %d", s.Active())
	}
}

func TestDiagnosticWriterKeepsTail(t *testing.T) {
	w := &diagnosticWriter{limit: 8}
	_, _ = w.Write([]byte("0123456789"))
	_, _ = w.Write([]byte("ab"))
	if got := w.String(); got != "456789ab" {
		t.Fatalf("tail = %q", got)
	}
}

func TestProgressWriter(t *testing.T) {
	now := time.Unix(100, 0)
	w := &progressWriter{now: func() time.Time { return now }}
	w.touch()

	now = time.Unix(200, 0)
	_, _ = w.Write([]byte("[youtube] extracting\n"))
	if !w.last().Equal(time.Unix(100, 0)) {
		t.Fatal("non-progress line counted")
	}
	_, _ = w.Write([]byte("[download]  42.5% of 3.00MiB\r"))
	if !w.last().Equal(now) {
		t.Fatal("progress line ignored")
	}
}

func TestOutcomeKindString(t *testing.T) {
	for k, want := range map[OutcomeKind]string{
		OutcomeSuccess: "success", OutcomeStalled: "stall", OutcomeKind(99): "unknown",
	} {
		if k.String() != want {
			t.Errorf("%d.String() = %q", k, k.String())
		}
	}
}
