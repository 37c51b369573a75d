package sparkbatch

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/sparkbatch/sparkbatch/internal/pkg/sbfs"
)

const stagingScript = `
# reset staging directories, then stage the input artifact
rmr ${inputDir}
rmr ${outputDir}
put ${localFile} ${inputDir}/tweets.dat
test ${inputDir}/tweets.dat
`

var stagingParams = map[string]string{
	"inputDir":  "/tmp/hashtags/input",
	"outputDir": "/tmp/hashtags/output",
	"localFile": "data/tweets.dat",
}

func stagedRunner(t *testing.T) (*ScriptRunner, sbfs.FileSystem) {
	mem := afero.NewMemMapFs()
	err := afero.WriteFile(mem, "data/tweets.dat", []byte("#golang\n#spark\n"), 0644)
	if err != nil {
		t.Fatalf("could not seed input: %s", err)
	}

	fs := sbfs.NewLocalFileSystem(mem)
	assert.Nil(t, fs.Init())
	return NewScriptRunner(fs), fs
}

func TestScriptRunnerStagesInput(t *testing.T) {
	runner, fs := stagedRunner(t)

	result := runner.Run(ScriptTask{
		Params: stagingParams,
		Body:   stagingScript,
		Lang:   LangFsShell,
	})

	assert.Equal(t, StatusCompleted, result.Status)

	exists, err := fs.Exists("/tmp/hashtags/input/tweets.dat")
	assert.Nil(t, err)
	assert.True(t, exists)
}

func TestScriptRunnerIsIdempotentOnSuccess(t *testing.T) {
	runner, fs := stagedRunner(t)
	task := ScriptTask{Params: stagingParams, Body: stagingScript, Lang: LangFsShell}

	assert.Equal(t, StatusCompleted, runner.Run(task).Status)
	firstStat, err := fs.Stat("/tmp/hashtags/input/tweets.dat")
	assert.Nil(t, err)

	assert.Equal(t, StatusCompleted, runner.Run(task).Status)
	secondStat, err := fs.Stat("/tmp/hashtags/input/tweets.dat")
	assert.Nil(t, err)

	assert.Equal(t, firstStat, secondStat)
	files, err := fs.ListFiles("/tmp/hashtags/input")
	assert.Nil(t, err)
	assert.Len(t, files, 1)
}

func TestScriptRunnerUnresolvedPlaceholder(t *testing.T) {
	runner, fs := stagedRunner(t)

	// a resolvable mutation precedes the unresolved reference, it must
	// not be applied
	result := runner.Run(ScriptTask{
		Params: map[string]string{"localFile": "data/tweets.dat"},
		Body:   "put ${localFile} /tmp/staged.dat\nrmr ${inputDir}",
		Lang:   LangFsShell,
	})

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, KindConfiguration, result.Kind)
	assert.Contains(t, result.Diagnostic, "inputDir")

	exists, _ := fs.Exists("/tmp/staged.dat")
	assert.False(t, exists, "no mutation may happen before placeholder resolution")
}

func TestScriptRunnerEmbeddedDialect(t *testing.T) {
	runner, fs := stagedRunner(t)

	result := runner.Run(ScriptTask{
		Params: stagingParams,
		Body: `fs.rmr("${inputDir}")
fs.rmr("${outputDir}")
fs.put("${localFile}", "${inputDir}/tweets.dat")
fs.test("${inputDir}/tweets.dat");`,
		Lang: LangEmbedded,
	})

	assert.Equal(t, StatusCompleted, result.Status)
	exists, _ := fs.Exists("/tmp/hashtags/input/tweets.dat")
	assert.True(t, exists)
}

func TestScriptRunnerUnknownOperation(t *testing.T) {
	runner, _ := stagedRunner(t)

	result := runner.Run(ScriptTask{
		Body: "chmod /tmp/hashtags/input",
		Lang: LangFsShell,
	})
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, KindConfiguration, result.Kind)
}

func TestScriptRunnerMissingSource(t *testing.T) {
	runner, _ := stagedRunner(t)

	result := runner.Run(ScriptTask{
		Body: "put data/missing.dat /tmp/hashtags/input/missing.dat",
		Lang: LangFsShell,
	})
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, KindFilesystem, result.Kind)
}

func TestScriptRunnerNoRollbackOnPartialFailure(t *testing.T) {
	runner, fs := stagedRunner(t)

	err := fs.MkdirAll("/tmp/hashtags/input")
	assert.Nil(t, err)

	result := runner.Run(ScriptTask{
		Params: stagingParams,
		Body:   "rmr ${inputDir}\nput data/missing.dat ${inputDir}/tweets.dat",
		Lang:   LangFsShell,
	})
	assert.Equal(t, StatusFailed, result.Status)

	// the delete before the failing copy stays applied
	exists, _ := fs.Exists("/tmp/hashtags/input")
	assert.False(t, exists)
}

func TestParseLineArity(t *testing.T) {
	_, err := parseLine("put onlyonearg", LangFsShell)
	assert.NotNil(t, err)

	_, err = parseLine("fs.put(\"a\")", LangEmbedded)
	assert.NotNil(t, err)

	_, err = parseLine("fs.frobnicate(\"a\")", LangEmbedded)
	assert.NotNil(t, err)
}
