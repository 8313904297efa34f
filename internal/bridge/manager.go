package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
)

// Line protocol markers emitted by the bridge process.
const (
	markerReady            = "PICO_BRIDGE_READY"
	markerConnected        = "PICO_CONNECTED"
	markerConnectionFailed = "PICO_CONNECTION_FAILED"
	markerOutput           = "PICO_OUTPUT: "
	markerResult           = "PICO_RESULT: "
	markerExecuted         = "PICO_EXECUTED"
	markerError            = "PICO_ERROR: "
)

// Commands accepted by the bridge process.
const (
	cmdConnect = "CONNECT:"
	cmdExecute = "EXECUTE_CODE:"
	cmdQuit    = "QUIT"
)

// startupTimeout bounds the wait for the ready and connected markers.
const startupTimeout = 15 * time.Second

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager owns one bridge subprocess serving one catalog device id.
//
// Executions are serialized; the bridge handles one code payload at a
// time. All methods are safe for concurrent use.
type Manager struct {
	cfg    config.BridgeConfig
	logger Logger

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string

	execMu   sync.Mutex
	attached atomic.Bool
}

// NewManager creates a bridge manager. The process is not started.
func NewManager(cfg config.BridgeConfig, logger Logger) *Manager {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
	}
}

// Start launches the bridge in interactive mode, waits for its ready
// marker, and connects it to the configured serial port. When no port is
// configured the first discovered port is used.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd != nil {
		return ErrAlreadyStarted
	}

	port := m.cfg.Port
	if port == "" {
		ports, err := m.findPortsLocked(ctx)
		if err != nil {
			return fmt.Errorf("discovering ports: %w", err)
		}
		if len(ports) == 0 {
			return fmt.Errorf("%w: no serial ports found", ErrConnectionFailed)
		}
		port = ports[0].Device
		m.logger.Info("using discovered port", "port", port)
	}

	args := append(append([]string{}, m.cfg.Args...), "--interactive")
	cmd := exec.Command(m.cfg.Binary, args...)
	// Own process group so Stop can signal the bridge and any children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening bridge stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("opening bridge stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("opening bridge stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting bridge process: %w", err)
	}

	lines := make(chan string, 64)
	go pumpLines(stdout, lines)
	go m.logStderr(stderr)

	m.cmd = cmd
	m.stdin = stdin
	m.lines = lines

	m.logger.Info("bridge process started",
		"binary", m.cfg.Binary, "pid", cmd.Process.Pid, "device_id", m.cfg.DeviceID)

	if err := m.awaitMarker(ctx, markerReady, startupTimeout); err != nil {
		m.killLocked()
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	if err := m.writeCommand(cmdConnect + port); err != nil {
		m.killLocked()
		return err
	}
	if err := m.awaitConnected(ctx, startupTimeout); err != nil {
		m.killLocked()
		return err
	}

	m.attached.Store(true)
	m.logger.Info("bridge connected", "port", port, "device_id", m.cfg.DeviceID)
	return nil
}

// Attached reports whether a live bridge serves the given device id.
func (m *Manager) Attached(deviceID string) bool {
	return m.attached.Load() && deviceID == m.cfg.DeviceID
}

// Execute feeds code to the bridge and streams PICO_OUTPUT lines through
// onOutput. It returns the final result line, empty when the execution
// produced none. One execution runs at a time.
func (m *Manager) Execute(ctx context.Context, deviceID, code string, onOutput func(line string)) (string, error) {
	if deviceID != m.cfg.DeviceID {
		return "", ErrWrongDevice
	}
	if !m.attached.Load() {
		return "", ErrNotStarted
	}

	m.execMu.Lock()
	defer m.execMu.Unlock()

	m.mu.Lock()
	lines := m.lines
	// The bridge reads one command per line; embedded newlines are
	// escaped here and restored on the far side.
	encoded := strings.ReplaceAll(code, "\n", "\\n")
	err := m.writeCommand(cmdExecute + encoded)
	m.mu.Unlock()
	if err != nil {
		return "", err
	}

	return awaitCompletion(ctx, lines, m.cfg.ExecTimeout(), onOutput)
}

// awaitCompletion consumes bridge output lines until a completion or error
// marker, relaying output lines as they arrive.
func awaitCompletion(ctx context.Context, lines <-chan string, timeout time.Duration, onOutput func(string)) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", ErrExecTimeout
		case line, ok := <-lines:
			if !ok {
				return "", fmt.Errorf("%w: output stream closed", ErrNotStarted)
			}
			switch {
			case strings.HasPrefix(line, markerOutput):
				if onOutput != nil {
					onOutput(strings.TrimPrefix(line, markerOutput))
				}
			case strings.HasPrefix(line, markerResult):
				result = strings.TrimPrefix(line, markerResult)
			case line == markerExecuted:
				return result, nil
			case strings.HasPrefix(line, markerError):
				return "", fmt.Errorf("bridge: %s", strings.TrimPrefix(line, markerError))
			}
		}
	}
}

// Port is one serial port discovered by the bridge.
type Port struct {
	Device      string
	Description string
}

// FindPorts runs the bridge in discovery mode and parses the port list.
func (m *Manager) FindPorts(ctx context.Context) ([]Port, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findPortsLocked(ctx)
}

func (m *Manager) findPortsLocked(ctx context.Context) ([]Port, error) {
	args := append(append([]string{}, m.cfg.Args...), "--find-ports")
	out, err := exec.CommandContext(ctx, m.cfg.Binary, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("running port discovery: %w", err)
	}
	return parsePorts(string(out)), nil
}

// parsePorts extracts "- <device>: <description>" entries from discovery
// output, ignoring everything else.
func parsePorts(out string) []Port {
	var ports []Port
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		entry, ok := strings.CutPrefix(line, "- ")
		if !ok {
			continue
		}
		device, desc, ok := strings.Cut(entry, ": ")
		if !ok {
			continue
		}
		ports = append(ports, Port{Device: strings.TrimSpace(device), Description: strings.TrimSpace(desc)})
	}
	return ports
}

// Stop shuts the bridge down: QUIT on stdin, then SIGTERM, then SIGKILL
// on the process group after the graceful timeout. Safe to call when the
// bridge never started.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd == nil {
		return
	}
	m.attached.Store(false)

	if err := m.writeCommand(cmdQuit); err == nil {
		m.stdin.Close()
	}

	done := make(chan error, 1)
	go func() { done <- m.cmd.Wait() }()

	pid := m.cmd.Process.Pid
	select {
	case <-done:
		m.logger.Info("bridge process exited", "pid", pid)
	case <-time.After(m.cfg.GracefulTimeout()):
		m.logger.Warn("bridge did not exit, escalating", "pid", pid)
		syscall.Kill(-pid, syscall.SIGTERM)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			syscall.Kill(-pid, syscall.SIGKILL)
			<-done
		}
	}

	m.cmd = nil
	m.stdin = nil
	m.lines = nil
}

// killLocked forcibly terminates the bridge process group and clears the
// process state. Callers must hold m.mu.
func (m *Manager) killLocked() {
	if m.cmd == nil {
		return
	}
	if m.stdin != nil {
		m.stdin.Close()
	}
	syscall.Kill(-m.cmd.Process.Pid, syscall.SIGKILL)
	m.cmd.Wait()
	m.cmd = nil
	m.stdin = nil
	m.lines = nil
}

// writeCommand sends one command line to the bridge's stdin.
func (m *Manager) writeCommand(cmd string) error {
	if m.stdin == nil {
		return ErrNotStarted
	}
	if _, err := io.WriteString(m.stdin, cmd+"\n"); err != nil {
		return fmt.Errorf("writing bridge command: %w", err)
	}
	return nil
}

// awaitMarker waits for an exact marker line, discarding others.
func (m *Manager) awaitMarker(ctx context.Context, marker string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("no %s within %v", marker, timeout)
		case line, ok := <-m.lines:
			if !ok {
				return fmt.Errorf("output stream closed before %s", marker)
			}
			if line == marker {
				return nil
			}
			m.logger.Debug("bridge output during startup", "line", line)
		}
	}
}

// awaitConnected waits for the connect handshake outcome.
func (m *Manager) awaitConnected(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w: no handshake within %v", ErrConnectionFailed, timeout)
		case line, ok := <-m.lines:
			if !ok {
				return fmt.Errorf("%w: output stream closed", ErrConnectionFailed)
			}
			switch line {
			case markerConnected:
				return nil
			case markerConnectionFailed:
				return ErrConnectionFailed
			}
		}
	}
}

// pumpLines copies reader lines into ch until EOF.
func pumpLines(r io.Reader, ch chan<- string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ch <- strings.TrimRight(scanner.Text(), "\r")
	}
	close(ch)
}

// logStderr drains the bridge's stderr into the log.
func (m *Manager) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m.logger.Warn("bridge stderr", "line", scanner.Text())
	}
}
