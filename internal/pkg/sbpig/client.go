package sbpig

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// CommandRunner executes a command and returns its combined output.
// It exists so tests can substitute a fake pig binary.
type CommandRunner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}

// ExitFailure reports a pig run that started but terminated with a
// non-zero exit code.
type ExitFailure struct {
	Code   int
	Output string
}

func (e *ExitFailure) Error() string {
	return fmt.Sprintf("pig exited with code %d: %s", e.Code, e.Output)
}

// Client runs Pig Latin scripts through the pig command line.
type Client struct {
	pigHome string
	runner  CommandRunner
}

// ClientConfig configures a Client.
type ClientConfig struct {
	PigHome string
	Runner  CommandRunner
}

// NewClient initializes a new Client. The pig installation is located
// through PIG_HOME, falling back to the "pigHome" config key.
func NewClient(config ClientConfig) *Client {
	pigHome := config.PigHome
	if pigHome == "" {
		pigHome = os.Getenv("PIG_HOME")
	}
	if pigHome == "" {
		pigHome = viper.GetString("pigHome")
	}

	runner := config.Runner
	if runner == nil {
		runner = execRunner
	}

	return &Client{
		pigHome: pigHome,
		runner:  runner,
	}
}

// BuildArgs builds the pig argument list for a script file and its
// parameters. Parameters are emitted in sorted order.
func BuildArgs(scriptFile string, params map[string]string) []string {
	args := []string{}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "-param", fmt.Sprintf("%s=%s", key, params[key]))
	}

	return append(args, "-f", scriptFile)
}

// run executes pig and classifies its outcome. A non-ExitError from
// the runner means pig never started.
func (c *Client) run(scriptFile string, params map[string]string) error {
	command := "pig"
	if c.pigHome != "" {
		command = filepath.Join(c.pigHome, "bin", "pig")
	}

	args := BuildArgs(scriptFile, params)
	log.Debugf("running %s %s", command, strings.Join(args, " "))

	output, err := c.runner(command, args...)
	if err == nil {
		return nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		return &ExitFailure{
			Code:   exitErr.ExitCode(),
			Output: lastLines(string(output), 5),
		}
	}
	return fmt.Errorf("could not start pig: %w", err)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Session is a scoped handle for executing scripts. It owns a scratch
// directory that rendered script bodies are staged into, released when
// the session ends.
type Session struct {
	client  *Client
	workDir string
}

// ExecuteScript stages the script body into the session scratch
// directory and runs it with the given parameters.
func (s *Session) ExecuteScript(body string, params map[string]string) error {
	scriptFile := filepath.Join(s.workDir, "script.pig")
	err := os.WriteFile(scriptFile, []byte(body), 0644)
	if err != nil {
		return err
	}
	return s.client.run(scriptFile, params)
}

// ExecuteFile runs an existing script file with the given parameters.
func (s *Session) ExecuteFile(scriptFile string, params map[string]string) error {
	return s.client.run(scriptFile, params)
}

// WithSession acquires a session, invokes fn with it and releases the
// session on every exit path.
func (c *Client) WithSession(fn func(*Session) error) error {
	workDir, err := os.MkdirTemp("", "sbpig")
	if err != nil {
		return fmt.Errorf("could not acquire pig session: %w", err)
	}

	session := &Session{client: c, workDir: workDir}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warnf("could not release pig session dir %s - %s", workDir, rmErr)
		}
	}()

	return fn(session)
}
