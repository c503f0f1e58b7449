package detector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// sidecar runs a Python MediaPipe service as a subprocess. Each request is a
// 4-byte big-endian length followed by a JPEG frame on stdin; each response
// is a single JSON line on stdout. The process starts lazily on the first
// request and, when an idle timeout is set, is stopped after that long
// without requests.
type sidecar struct {
	name   string
	newCmd func() *exec.Cmd
	idle   time.Duration
	log    *zap.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

func newSidecar(name, script string, args []string, cfg Config, log *zap.Logger) *sidecar {
	python := cfg.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	return &sidecar{
		name: name,
		newCmd: func() *exec.Cmd {
			return exec.Command(python, append([]string{script}, args...)...)
		},
		idle: cfg.IdleTimeout,
		log:  log,
	}
}

// roundTrip sends one frame and returns the raw JSON response line.
func (s *sidecar) roundTrip(frame *gocv.Mat) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := s.stdin.Write(length); err != nil {
		s.fail()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := s.stdin.Write(data); err != nil {
		s.fail()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := s.stdout.ReadBytes('\n')
	if err != nil {
		s.fail()
		return nil, fmt.Errorf("read response: %w", err)
	}

	s.lastUsed = time.Now()
	s.resetIdleTimer()

	return line, nil
}

func (s *sidecar) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *sidecar) ensureStarted() error {
	if s.started {
		return nil
	}

	cmd := s.newCmd()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s service: %w", s.name, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true
	s.lastUsed = time.Now()
	s.log.Info("sidecar started", zap.String("service", s.name), zap.Int("pid", cmd.Process.Pid))

	return nil
}

// fail tears down a process whose pipes broke so the next request restarts it.
func (s *sidecar) fail() {
	if err := s.shutdown(); err != nil {
		s.log.Warn("sidecar exited", zap.String("service", s.name), zap.Error(err))
	}
}

func (s *sidecar) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

func (s *sidecar) resetIdleTimer() {
	if s.idle <= 0 {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idle, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if time.Since(s.lastUsed) < s.idle {
			return
		}
		s.log.Info("sidecar idle, stopping", zap.String("service", s.name))
		s.shutdown()
	})
}

// findScript looks for a sidecar script next to the binary, in the working
// tree and under ~/.volverse/scripts.
func findScript(name string) string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(execDir, "scripts", name),
		filepath.Join(os.Getenv("HOME"), ".volverse", "scripts", name),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".volverse/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// resolveScript returns the configured script when it exists, otherwise
// searches for the default name.
func resolveScript(configured, name string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("%s: %w", configured, err)
		}
		return configured, nil
	}
	if path := findScript(name); path != "" {
		return path, nil
	}
	return "", fmt.Errorf("%s not found", name)
}
