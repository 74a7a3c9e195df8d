package proc

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// FFmpegFilter runs ffmpeg as a filtering pipe between an artifact and the
// transcoder. The child lives under the supervisor like any download.
type FFmpegFilter struct {
	Path string
	Sup  *Supervisor
}

func NewFFmpegFilter(path string, sup *Supervisor) *FFmpegFilter {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegFilter{Path: path, Sup: sup}
}

// FilterArgs is the ffmpeg argument list that applies chain to path and writes
// mp3 to stdout.
func FilterArgs(path, chain string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", path,
		"-af", chain,
		"-vn", "-f", "mp3", "-",
	}
}

type filteredStream struct {
	*io.PipeReader
	h *Handle
}

// Close stops ffmpeg and releases the pipe.
func (s *filteredStream) Close() error {
	s.h.Kill()
	return s.PipeReader.Close()
}

// Open starts ffmpeg on path. Reading the result yields filtered audio; an
// ffmpeg failure surfaces as a read error.
func (f *FFmpegFilter) Open(ctx context.Context, path, chain string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, f.Path, FilterArgs(path, chain)...)
	pr, pw := io.Pipe()
	h := f.Sup.Start(ctx, Job{Name: "ffmpeg " + chain, Cmd: cmd, Stdout: pw})
	if h.Pid() == 0 {
		out := h.Wait()
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("spawn ffmpeg: %w", out.Err)
	}

	go func() {
		out := h.Wait()
		if out.OK() {
			pw.Close()
			return
		}
		pw.CloseWithError(fmt.Errorf("ffmpeg %s: %s", out.Kind, lastLine(out.Stderr)))
	}()
	return &filteredStream{PipeReader: pr, h: h}, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
