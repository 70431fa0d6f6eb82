package provider

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// maxLineSize bounds a single provider output line (1 MiB).
const maxLineSize = 1 << 20

// Transport is one bidirectional line channel to a provider process.
// Implementations deliver whole lines, without the trailing newline, on
// Lines; the channel closes when the peer goes away.
type Transport interface {
	// Send writes one newline-terminated line to the provider.
	Send(line []byte) error
	// Lines returns the channel of inbound lines.
	Lines() <-chan []byte
	// Done is closed when the provider has exited.
	Done() <-chan struct{}
	// Close terminates the provider.
	Close() error
}

// processTransport runs a provider as a child process and frames lines over
// its standard input and output. Standard error is logged per line.
type processTransport struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser

	lines chan []byte
	done  chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// spawnProcess launches the described provider and wires its streams.
func spawnProcess(desc models.ServerDescriptor) (Transport, error) {
	cmd := exec.Command(desc.Command, desc.Args...)
	cmd.Env = os.Environ()
	for k, v := range desc.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", ErrSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, desc.Command, err)
	}

	t := &processTransport{
		name:  desc.Name,
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan []byte, 16),
		done:  make(chan struct{}),
	}

	go t.readLines(stdout)
	go t.logStderr(stderr)
	go func() {
		// Reap the child; the lines channel closing on EOF and this done
		// channel together signal disconnection to the gateway.
		_ = cmd.Wait()
		close(t.done)
	}()

	return t, nil
}

// Send writes one line to the provider's standard input.
func (t *processTransport) Send(line []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	select {
	case <-t.done:
		return ErrNotConnected
	default:
	}

	if _, err := t.stdin.Write(line); err != nil {
		return fmt.Errorf("write to provider %s: %w", t.name, err)
	}
	return nil
}

// Lines returns the channel of provider output lines.
func (t *processTransport) Lines() <-chan []byte {
	return t.lines
}

// Done is closed when the provider process has exited.
func (t *processTransport) Done() <-chan struct{} {
	return t.done
}

// Close terminates the provider process. Idempotent.
func (t *processTransport) Close() error {
	t.closeOnce.Do(func() {
		_ = t.stdin.Close()
		if t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
		}
	})
	return nil
}

// readLines forwards provider stdout lines until EOF.
func (t *processTransport) readLines(stdout io.Reader) {
	defer close(t.lines)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		// Copy: the scanner reuses its buffer between iterations.
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		t.lines <- line
	}
}

// logStderr logs provider stderr output line by line.
func (t *processTransport) logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		log.Printf("[provider/%s] stderr: %s", t.name, scanner.Text())
	}
}
