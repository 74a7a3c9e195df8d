package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/leeineian/jukebox/sys"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	evictPoll     = 100 * time.Millisecond
	evictPatience = 5 * time.Second
)

// instanceLock is an exclusive flock on the pid file. Holding it means this
// process is the only bot running from the working directory.
type instanceLock struct {
	f *os.File
}

// lockInstance takes the pid file, evicting whichever process holds it, and
// records our pid.
func lockInstance(path string) (*instanceLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf(sys.MsgBotPIDOpenFail, err)
	}

	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			_ = f.Close()
			return nil, fmt.Errorf(sys.MsgBotPIDLockFail, err)
		}

		holder, ok := lockHolder(f)
		switch {
		case !ok:
			// the holder has not written its pid yet
			time.Sleep(evictPoll)
		case holder == int32(os.Getpid()):
			return writePID(f), nil
		default:
			evict(holder)
		}
	}
	return writePID(f), nil
}

func lockHolder(f *os.File) (int32, bool) {
	var pid int32
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, false
	}
	if _, err := fmt.Fscanf(f, "%d", &pid); err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// evict asks pid to shut down and kills it if it is still alive after
// evictPatience.
func evict(pid int32) {
	p, err := process.NewProcess(pid)
	if err != nil {
		time.Sleep(evictPoll)
		return
	}
	sys.LogInfo(sys.MsgBotKillingOld, pid)
	if err := p.Terminate(); err != nil {
		sys.LogWarn(sys.MsgBotKillFail, err)
	}

	deadline := time.Now().Add(evictPatience)
	for time.Now().Before(deadline) {
		if alive, _ := p.IsRunning(); !alive {
			sys.LogInfo(sys.MsgBotOldTerminated)
			return
		}
		time.Sleep(evictPoll)
	}
	sys.LogWarn(sys.MsgBotStubborn, pid)
	_ = p.Kill()
	time.Sleep(2 * evictPoll)
	sys.LogInfo(sys.MsgBotOldTerminated)
}

func writePID(f *os.File) *instanceLock {
	_ = f.Truncate(0)
	_, _ = f.Seek(0, io.SeekStart)
	if _, err := fmt.Fprintf(f, "%d", os.Getpid()); err != nil {
		sys.LogWarn(sys.MsgBotPIDWriteFail, err)
	}
	_ = f.Sync()
	return &instanceLock{f: f}
}

func (l *instanceLock) release() {
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
	_ = os.Remove(l.f.Name())
}
