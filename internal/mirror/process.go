package mirror

import (
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

// process is a started child process.
type process interface {
	Pid() int
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Err is the exit error, valid after Done is closed.
	Err() error
	Terminate() error
	Kill() error
}

// starter launches name with args, sending its output to out.
type starter func(name string, args []string, out io.Writer) (process, error)

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func startExec(name string, args []string, out io.Writer) (process, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	hideConsole(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *execProcess) Done() <-chan struct{} { return p.done }
func (p *execProcess) Err() error            { return p.err }
func (p *execProcess) Kill() error           { return p.cmd.Process.Kill() }

// Terminate asks the process to exit. Windows has no SIGTERM for console-less
// processes, so it falls back to Kill there.
func (p *execProcess) Terminate() error {
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}
