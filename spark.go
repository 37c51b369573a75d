package sparkbatch

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/sparkbatch/sparkbatch/internal/pkg/sbyarn"
)

// yarnSubmitter is the narrow submission surface of the cluster
// resource manager, satisfied by sbyarn.Client.
type yarnSubmitter interface {
	Submit(req *sbyarn.SubmitRequest) (sbyarn.Outcome, error)
}

// SparkLauncher launches Spark applications on a YARN cluster and
// blocks until they reach a terminal state.
type SparkLauncher struct {
	submitter yarnSubmitter
}

// NewSparkLauncher creates a launcher backed by spark-submit.
func NewSparkLauncher() *SparkLauncher {
	return &SparkLauncher{
		submitter: sbyarn.NewClient(sbyarn.ClientConfig{
			SparkHome: viper.GetString("sparkHome"),
		}),
	}
}

// Launch submits the request and blocks the calling goroutine until
// the external job reaches a terminal state. A single submission
// attempt is made, retry policy belongs to the caller.
func (l *SparkLauncher) Launch(req *LaunchRequest) StepResult {
	if err := req.validate(); err != nil {
		return failedErr(err, KindConfiguration)
	}

	outcome, err := l.submitter.Submit(&sbyarn.SubmitRequest{
		Name:           req.Name,
		Master:         req.Master,
		DeployMode:     req.DeployMode,
		MainClass:      req.MainClass,
		AppResource:    req.AppResource,
		Jars:           req.ResourceFiles,
		ExecutorMemory: req.ExecutorMemory,
		NumExecutors:   req.ExecutorCount,
		Conf:           req.Conf,
		Args:           req.Args,
	})
	if err != nil {
		return failedErr(err, KindSubmission)
	}

	switch outcome.State {
	case sbyarn.StateSucceeded:
		return Completed()
	default:
		diagnostic := outcome.Diagnostic
		if diagnostic == "" {
			diagnostic = "final status: " + outcome.State.String()
		}
		log.Debugf("application %s terminated: %s", req.Name, diagnostic)
		return Failed(KindExternalRuntime, diagnostic)
	}
}

// Tasklet wraps a request for use as a workflow step.
func (l *SparkLauncher) Tasklet(req *LaunchRequest) Tasklet {
	return TaskletFunc(func() StepResult {
		return l.Launch(req)
	})
}
