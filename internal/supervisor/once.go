package supervisor

import (
	"context"
	"os/exec"
	"syscall"
)

// RunOnce runs a single subprocess to completion (or until ctx is
// cancelled), used by the CD source's rip and TTS jobs which are not
// persistent services and do not need restart-on-crash semantics.
func RunOnce(ctx context.Context, cmd *exec.Cmd) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		<-done
		return ctx.Err()
	}
}

// FindBinary searches PATH, then /usr/bin/<name>, returning name itself
// as a last resort so exec.Command fails with a clear "not found" error,
// matching the teacher's findBinary helper.
func FindBinary(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	if fileExists("/usr/bin/" + name) {
		return "/usr/bin/" + name
	}
	return name
}
