package sbyarn

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSubmitArgs(t *testing.T) {
	req := &SubmitRequest{
		Name:           "Hashtags",
		MainClass:      "Hashtags",
		AppResource:    "hdfs:///app/hashtags.jar",
		Jars:           []string{"hdfs:///app/lib/a.jar", "hdfs:///app/lib/b.jar"},
		ExecutorMemory: "1G",
		NumExecutors:   2,
		Args:           []string{"hdfs:///tmp/hashtags/input/tweets.dat", "hdfs:///tmp/hashtags/output"},
	}

	args, err := BuildSubmitArgs(req)
	assert.Nil(t, err)
	assert.Equal(t, []string{
		"--master", "yarn",
		"--deploy-mode", "cluster",
		"--name", "Hashtags",
		"--class", "Hashtags",
		"--executor-memory", "1G",
		"--num-executors", "2",
		"--jars", "hdfs:///app/lib/a.jar,hdfs:///app/lib/b.jar",
		"hdfs:///app/hashtags.jar",
		"hdfs:///tmp/hashtags/input/tweets.dat",
		"hdfs:///tmp/hashtags/output",
	}, args)
}

func TestBuildSubmitArgsRequiresAppResource(t *testing.T) {
	_, err := BuildSubmitArgs(&SubmitRequest{MainClass: "Hashtags"})
	assert.NotNil(t, err)
}

func TestParseOutcome(t *testing.T) {
	var parseTests = []struct {
		output     string
		state      JobState
		diagnostic string
	}{
		{"client token: N/A\n\t final status: UNDEFINED\n\t final status: SUCCEEDED\n\t diagnostics: N/A\n", StateSucceeded, ""},
		{"\t final status: FAILED\n\t diagnostics: exit code 137\n", StateFailed, "exit code 137"},
		{"\t final status: KILLED\n\t diagnostics: killed by operator\n", StateKilled, "killed by operator"},
	}

	for _, test := range parseTests {
		outcome, ok := ParseOutcome(test.output)
		assert.True(t, ok)
		assert.Equal(t, test.state, outcome.State)
		assert.Equal(t, test.diagnostic, outcome.Diagnostic)
	}

	_, ok := ParseOutcome("Error: Could not find or load main class")
	assert.False(t, ok)
}

func TestSubmitTranslatesReport(t *testing.T) {
	client := NewClient(ClientConfig{
		SparkHome: "/opt/spark",
		Runner: func(name string, args ...string) ([]byte, error) {
			assert.Equal(t, "/opt/spark/bin/spark-submit", name)
			return []byte("\t final status: SUCCEEDED\n"), nil
		},
	})

	outcome, err := client.Submit(&SubmitRequest{AppResource: "app.jar"})
	assert.Nil(t, err)
	assert.Equal(t, StateSucceeded, outcome.State)
}

func TestSubmitSurfacesSubmissionError(t *testing.T) {
	client := NewClient(ClientConfig{
		Runner: func(name string, args ...string) ([]byte, error) {
			return []byte("Exception in thread main: no such file\n"), fmt.Errorf("exit status 1")
		},
	})

	_, err := client.Submit(&SubmitRequest{AppResource: "missing.jar"})
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "no such file")
}
