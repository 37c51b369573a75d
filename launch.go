package sparkbatch

import (
	humanize "github.com/dustin/go-humanize"
)

// LaunchRequest describes a single external batch job submission.
// Immutable once constructed, built from configuration.
type LaunchRequest struct {
	// Name is the application name reported to the cluster.
	Name string
	// MainClass is the entry point inside the application artifact.
	MainClass string
	// AppResource is the URI of the application artifact. It must be
	// reachable by the execution cluster.
	AppResource string
	// ResourceFiles are additional artifact URIs shipped with the job,
	// in order.
	ResourceFiles []string
	// ExecutorMemory is a size literal, e.g. "1G".
	ExecutorMemory string
	// ExecutorCount is the number of executors, at least 1.
	ExecutorCount int
	// Master and DeployMode override the configured cluster target.
	Master     string
	DeployMode string
	// Conf holds extra engine configuration key/value pairs.
	Conf map[string]string
	// Args are passed to the application verbatim, in order.
	Args []string
}

// validate checks the request before any submission call is made.
func (req *LaunchRequest) validate() error {
	if req.MainClass == "" {
		return stepErrorf(KindConfiguration, "no application entry point specified")
	}
	if req.AppResource == "" {
		return stepErrorf(KindConfiguration, "no application artifact specified")
	}
	if req.ExecutorCount < 1 {
		return stepErrorf(KindConfiguration, "executor count must be at least 1, got %d", req.ExecutorCount)
	}
	if req.ExecutorMemory != "" {
		if _, err := humanize.ParseBytes(req.ExecutorMemory); err != nil {
			return stepErrorf(KindConfiguration, "malformed executor memory %q: %s", req.ExecutorMemory, err)
		}
	}
	return nil
}
