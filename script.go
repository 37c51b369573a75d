package sparkbatch

import (
	"fmt"
	"regexp"
	"strings"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/sparkbatch/sparkbatch/internal/pkg/sbfs"
)

// ScriptLang selects the dialect a ScriptTask body is written in.
type ScriptLang int

const (
	// LangFsShell is the shell-like dialect, one command per line:
	//   rmr <path>
	//   mkdir <path>
	//   put <local> <remote>
	//   test <path>
	LangFsShell ScriptLang = iota
	// LangEmbedded is the embedded-scripting dialect of call lines:
	//   fs.rmr("${outputDir}")
	//   fs.put("data/tweets.dat", "${inputDir}/tweets.dat")
	LangEmbedded
)

// ScriptTask is a parameterized staging script run against the
// distributed filesystem before a job is submitted. Immutable once
// constructed.
type ScriptTask struct {
	Params map[string]string
	Body   string
	Lang   ScriptLang
}

type scriptOp struct {
	verb string
	args []string
}

// arity of supported script operations
var scriptVerbs = map[string]int{
	"rmr":   1,
	"mkdir": 1,
	"put":   2,
	"test":  1,
}

var placeholderRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// resolvePlaceholders substitutes ${name} references. Every reference
// must resolve, unresolved names are a configuration error.
func resolvePlaceholders(body string, params map[string]string) (string, error) {
	missing := map[string]bool{}
	resolved := placeholderRegex.ReplaceAllStringFunc(body, func(match string) string {
		name := match[2 : len(match)-1]
		if value, ok := params[name]; ok {
			return value
		}
		missing[name] = true
		return match
	})

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		return "", stepErrorf(KindConfiguration, "unresolved placeholders: %s", strings.Join(names, ", "))
	}
	return resolved, nil
}

var embeddedCallRegex = regexp.MustCompile(`^fs\.(\w+)\(\s*(.*?)\s*\)\s*;?$`)

func unquote(arg string) string {
	if len(arg) >= 2 {
		first, last := arg[0], arg[len(arg)-1]
		if first == last && (first == '"' || first == '\'') {
			return arg[1 : len(arg)-1]
		}
	}
	return arg
}

func parseLine(line string, lang ScriptLang) (scriptOp, error) {
	var op scriptOp

	switch lang {
	case LangFsShell:
		fields := strings.Fields(line)
		op = scriptOp{verb: fields[0], args: fields[1:]}
	case LangEmbedded:
		match := embeddedCallRegex.FindStringSubmatch(line)
		if match == nil {
			return scriptOp{}, stepErrorf(KindConfiguration, "malformed script line: %q", line)
		}
		op = scriptOp{verb: match[1]}
		if match[2] != "" {
			for _, arg := range strings.Split(match[2], ",") {
				op.args = append(op.args, unquote(strings.TrimSpace(arg)))
			}
		}
	}

	arity, ok := scriptVerbs[op.verb]
	if !ok {
		return scriptOp{}, stepErrorf(KindConfiguration, "unknown script operation: %q", op.verb)
	}
	if len(op.args) != arity {
		return scriptOp{}, stepErrorf(KindConfiguration, "%s takes %d argument(s), got %d", op.verb, arity, len(op.args))
	}
	return op, nil
}

// parseScript resolves and parses the whole script before anything is
// executed, so configuration errors surface before any filesystem
// mutation.
func parseScript(task ScriptTask) ([]scriptOp, error) {
	body, err := resolvePlaceholders(task.Body, task.Params)
	if err != nil {
		return nil, err
	}

	ops := make([]scriptOp, 0)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		op, err := parseLine(line, task.Lang)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// ScriptRunner executes ScriptTasks against a distributed filesystem.
type ScriptRunner struct {
	fs sbfs.FileSystem
}

// NewScriptRunner creates a ScriptRunner on the given filesystem.
func NewScriptRunner(fs sbfs.FileSystem) *ScriptRunner {
	return &ScriptRunner{fs: fs}
}

// Run executes the task. Operations are applied in script order with
// no rollback: a failure partway leaves the namespace partially
// mutated and is reported as a failed result.
func (r *ScriptRunner) Run(task ScriptTask) StepResult {
	ops, err := parseScript(task)
	if err != nil {
		return failedErr(err, KindConfiguration)
	}

	var bytesStaged int64
	for _, op := range ops {
		if err := r.apply(op, &bytesStaged); err != nil {
			return failedErr(err, KindFilesystem)
		}
	}

	if bytesStaged > 0 {
		log.Infof("Staged %s into the filesystem", humanize.Bytes(uint64(bytesStaged)))
	}
	return Completed()
}

func (r *ScriptRunner) apply(op scriptOp, bytesStaged *int64) error {
	log.Debugf("script op: %s %s", op.verb, strings.Join(op.args, " "))

	switch op.verb {
	case "rmr":
		return r.fs.Remove(op.args[0])
	case "mkdir":
		return r.fs.MkdirAll(op.args[0])
	case "put":
		n, err := r.fs.CopyFromLocal(op.args[0], op.args[1])
		*bytesStaged += n
		return err
	case "test":
		exists, err := r.fs.Exists(op.args[0])
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("path does not exist: %s", op.args[0])
		}
		return nil
	}
	return fmt.Errorf("unknown script operation: %q", op.verb)
}

// Tasklet wraps a task for use as a workflow step.
func (r *ScriptRunner) Tasklet(task ScriptTask) Tasklet {
	return TaskletFunc(func() StepResult {
		return r.Run(task)
	})
}
