package sbpig

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgs(t *testing.T) {
	args := BuildArgs("wordcount.pig", map[string]string{
		"inputDir":  "/tmp/in",
		"outputDir": "/tmp/out",
	})
	assert.Equal(t, []string{
		"-param", "inputDir=/tmp/in",
		"-param", "outputDir=/tmp/out",
		"-f", "wordcount.pig",
	}, args)
}

func TestWithSessionReleasesScratchDir(t *testing.T) {
	client := NewClient(ClientConfig{
		Runner: func(name string, args ...string) ([]byte, error) {
			return nil, nil
		},
	})

	var workDir string
	err := client.WithSession(func(s *Session) error {
		workDir = s.workDir
		return s.ExecuteScript("A = LOAD '$inputDir';", map[string]string{"inputDir": "/tmp/in"})
	})
	assert.Nil(t, err)

	_, statErr := os.Stat(workDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWithSessionReleasesOnError(t *testing.T) {
	client := NewClient(ClientConfig{
		Runner: func(name string, args ...string) ([]byte, error) {
			return nil, nil
		},
	})

	var workDir string
	err := client.WithSession(func(s *Session) error {
		workDir = s.workDir
		return fmt.Errorf("callback failed")
	})
	assert.NotNil(t, err)

	_, statErr := os.Stat(workDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunClassifiesStartFailure(t *testing.T) {
	client := NewClient(ClientConfig{
		PigHome: "/opt/pig",
		Runner: func(name string, args ...string) ([]byte, error) {
			assert.Equal(t, "/opt/pig/bin/pig", name)
			return nil, fmt.Errorf("no such file or directory")
		},
	})

	err := client.run("script.pig", nil)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "could not start pig")

	var exit *ExitFailure
	assert.False(t, errors.As(err, &exit))
}
