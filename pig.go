package sparkbatch

import (
	"errors"

	"github.com/spf13/viper"

	"github.com/sparkbatch/sparkbatch/internal/pkg/sbpig"
)

// PigRequest describes a single Pig script submission. Exactly one of
// Script (inline body) or ScriptFile must be set.
type PigRequest struct {
	Script     string
	ScriptFile string
	Params     map[string]string
}

// PigLauncher launches Pig scripts and blocks until they terminate.
type PigLauncher struct {
	client *sbpig.Client
}

// NewPigLauncher creates a launcher backed by the pig command line.
func NewPigLauncher() *PigLauncher {
	return &PigLauncher{
		client: sbpig.NewClient(sbpig.ClientConfig{
			PigHome: viper.GetString("pigHome"),
		}),
	}
}

// Launch runs the script inside a scoped session and translates its
// outcome. A script that ran and failed is an external-runtime
// failure, a script that never started is a submission failure.
func (l *PigLauncher) Launch(req *PigRequest) StepResult {
	if (req.Script == "") == (req.ScriptFile == "") {
		return Failed(KindConfiguration, "exactly one of script body or script file must be set")
	}

	err := l.client.WithSession(func(session *sbpig.Session) error {
		if req.Script != "" {
			return session.ExecuteScript(req.Script, req.Params)
		}
		return session.ExecuteFile(req.ScriptFile, req.Params)
	})
	if err == nil {
		return Completed()
	}
	return classifyPigError(err)
}

func classifyPigError(err error) StepResult {
	var exit *sbpig.ExitFailure
	if errors.As(err, &exit) {
		return Failed(KindExternalRuntime, exit.Output)
	}
	return Failed(KindSubmission, err.Error())
}

// Tasklet wraps a request for use as a workflow step.
func (l *PigLauncher) Tasklet(req *PigRequest) Tasklet {
	return TaskletFunc(func() StepResult {
		return l.Launch(req)
	})
}
