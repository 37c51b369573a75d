package sbyarn

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// JobState is the terminal state reported by the cluster for a
// submitted application.
type JobState int

const (
	StateUnknown JobState = iota
	StateSucceeded
	StateFailed
	StateKilled
)

func (s JobState) String() string {
	switch s {
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	case StateKilled:
		return "KILLED"
	}
	return "UNKNOWN"
}

// Outcome is the terminal result of a submitted application.
type Outcome struct {
	State      JobState
	Diagnostic string
}

// SubmitRequest describes a single spark-submit invocation.
type SubmitRequest struct {
	Name           string
	Master         string
	DeployMode     string
	MainClass      string
	AppResource    string
	Jars           []string
	ExecutorMemory string
	NumExecutors   int
	Conf           map[string]string
	Args           []string
}

// CommandRunner executes a command and returns its combined output.
// It exists so tests can substitute a fake spark-submit.
type CommandRunner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}

// Client submits applications to a YARN cluster through spark-submit.
type Client struct {
	sparkHome string
	runner    CommandRunner
}

// ClientConfig configures a Client.
type ClientConfig struct {
	SparkHome string
	Runner    CommandRunner
}

// NewClient initializes a new Client. The spark installation is
// located through SPARK_HOME, falling back to the "sparkHome" config
// key.
func NewClient(config ClientConfig) *Client {
	sparkHome := config.SparkHome
	if sparkHome == "" {
		sparkHome = os.Getenv("SPARK_HOME")
	}
	if sparkHome == "" {
		sparkHome = viper.GetString("sparkHome")
	}

	runner := config.Runner
	if runner == nil {
		runner = execRunner
	}

	return &Client{
		sparkHome: sparkHome,
		runner:    runner,
	}
}

type submitOptionFunc func(*SubmitRequest) ([]string, error)

func masterOption(req *SubmitRequest) ([]string, error) {
	master := req.Master
	if master == "" {
		master = "yarn"
	}
	return []string{"--master", master}, nil
}

func deployModeOption(req *SubmitRequest) ([]string, error) {
	mode := req.DeployMode
	if mode == "" {
		mode = "cluster"
	}
	return []string{"--deploy-mode", mode}, nil
}

func nameOption(req *SubmitRequest) ([]string, error) {
	if req.Name == "" {
		return nil, nil
	}
	return []string{"--name", req.Name}, nil
}

func mainClassOption(req *SubmitRequest) ([]string, error) {
	if req.MainClass == "" {
		return nil, nil
	}
	return []string{"--class", req.MainClass}, nil
}

func executorResourcesOption(req *SubmitRequest) ([]string, error) {
	args := []string{}
	if req.ExecutorMemory != "" {
		args = append(args, "--executor-memory", req.ExecutorMemory)
	}
	if req.NumExecutors > 0 {
		args = append(args, "--num-executors", strconv.Itoa(req.NumExecutors))
	}
	return args, nil
}

func jarsOption(req *SubmitRequest) ([]string, error) {
	if len(req.Jars) == 0 {
		return nil, nil
	}
	return []string{"--jars", strings.Join(req.Jars, ",")}, nil
}

func confOption(req *SubmitRequest) ([]string, error) {
	args := []string{}
	for key, value := range req.Conf {
		args = append(args, "--conf", fmt.Sprintf("%s=%s", key, value))
	}
	return args, nil
}

func appResourceOption(req *SubmitRequest) ([]string, error) {
	if req.AppResource == "" {
		return nil, fmt.Errorf("no application resource specified")
	}
	return []string{req.AppResource}, nil
}

func applicationArgsOption(req *SubmitRequest) ([]string, error) {
	return req.Args, nil
}

// BuildSubmitArgs builds the spark-submit argument list for a request.
func BuildSubmitArgs(req *SubmitRequest) ([]string, error) {
	optionFuncs := []submitOptionFunc{
		masterOption,
		deployModeOption,
		nameOption,
		mainClassOption,
		executorResourcesOption,
		jarsOption,
		confOption,
		appResourceOption,
		applicationArgsOption,
	}

	var args []string
	for _, optionFunc := range optionFuncs {
		option, err := optionFunc(req)
		if err != nil {
			return nil, err
		}
		args = append(args, option...)
	}

	return args, nil
}

var (
	finalStatusRegex = regexp.MustCompile(`final status:\s*(\w+)`)
	diagnosticsRegex = regexp.MustCompile(`diagnostics:\s*(.+)`)
)

// ParseOutcome extracts the terminal application state from
// spark-submit output. In cluster mode the YARN application report is
// echoed to the log, including a "final status" line once the
// application reaches a terminal state.
func ParseOutcome(output string) (Outcome, bool) {
	matches := finalStatusRegex.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return Outcome{State: StateUnknown}, false
	}

	// the report is repeated while the application runs, the last
	// occurrence carries the terminal state
	status := matches[len(matches)-1][1]

	outcome := Outcome{}
	switch strings.ToUpper(status) {
	case "SUCCEEDED":
		outcome.State = StateSucceeded
	case "FAILED":
		outcome.State = StateFailed
	case "KILLED":
		outcome.State = StateKilled
	default:
		return Outcome{State: StateUnknown}, false
	}

	if diag := diagnosticsRegex.FindAllStringSubmatch(output, -1); len(diag) > 0 {
		message := strings.TrimSpace(diag[len(diag)-1][1])
		if message != "N/A" {
			outcome.Diagnostic = message
		}
	}

	return outcome, true
}

// Submit runs spark-submit for the given request and blocks until the
// application reaches a terminal state. A returned error means the
// submission itself failed and the application never reached the
// cluster.
func (c *Client) Submit(req *SubmitRequest) (Outcome, error) {
	args, err := BuildSubmitArgs(req)
	if err != nil {
		return Outcome{}, err
	}

	command := "spark-submit"
	if c.sparkHome != "" {
		command = filepath.Join(c.sparkHome, "bin", "spark-submit")
	}

	log.Debugf("running %s %s", command, strings.Join(args, " "))
	output, runErr := c.runner(command, args...)

	if outcome, ok := ParseOutcome(string(output)); ok {
		log.Debugf("application %s finished with state %s", req.Name, outcome.State)
		return outcome, nil
	}

	if runErr != nil {
		return Outcome{}, fmt.Errorf("spark-submit failed: %s", submitError(runErr, output))
	}

	// The process exited cleanly without reporting an application
	// state (client deploy mode does not echo a YARN report).
	return Outcome{State: StateSucceeded}, nil
}

func submitError(err error, output []byte) string {
	if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
		return string(exitErr.Stderr)
	}
	if len(output) > 0 {
		return lastLines(string(output), 5)
	}
	return err.Error()
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
