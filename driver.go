package sparkbatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"golang.org/x/sync/semaphore"
	pb "gopkg.in/cheggaaa/pb.v1"

	flag "github.com/spf13/pflag"
)

// Driver controls the execution of a batch workflow
type Driver struct {
	steps     []Step
	config    *config
	runtimeID string
	Start     time.Time
	Runtime   time.Duration

	lastRun *WorkflowRun
}

// config configures a Driver's execution of a workflow
type config struct {
	AppName        string
	Master         string
	DeployMode     string
	ExecutorMemory string
	ExecutorCount  int
	MaxConcurrency int
}

func newConfig() *config {
	loadConfig() // Load viper config from settings file(s) and environment

	return &config{
		AppName:        viper.GetString("appName"),
		Master:         viper.GetString("master"),
		DeployMode:     viper.GetString("deployMode"),
		ExecutorMemory: cast.ToString(viper.Get("executorMemory")),
		ExecutorCount:  cast.ToInt(viper.Get("executorCount")),
		MaxConcurrency: viper.GetInt("maxConcurrency"),
	}
}

// Option allows configuration of a Driver
type Option func(*config)

// NewDriver creates a new Driver with the provided steps and optional
// configuration
func NewDriver(options ...Option) *Driver {
	d := &Driver{
		runtimeID: uuid.NewString(),
		Start:     time.Now(),
	}

	c := newConfig()
	for _, f := range options {
		f(c)
	}

	d.config = c
	log.Debugf("Loaded config: %#v", c)

	return d
}

// WithAppName sets the application name reported to the cluster
func WithAppName(name string) Option {
	return func(c *config) {
		c.AppName = name
	}
}

// WithExecutorMemory sets the executor memory size literal, e.g. "1G"
func WithExecutorMemory(memory string) Option {
	return func(c *config) {
		c.ExecutorMemory = memory
	}
}

// WithExecutorCount sets the number of executors
func WithExecutorCount(count int) Option {
	return func(c *config) {
		c.ExecutorCount = count
	}
}

// WithMaster sets the cluster master the workflow submits to
func WithMaster(master string) Option {
	return func(c *config) {
		c.Master = master
	}
}

// WithMaxConcurrency bounds the number of concurrently executing
// independent workflow runs
func WithMaxConcurrency(n int) Option {
	return func(c *config) {
		c.MaxConcurrency = n
	}
}

// AddStep appends a named step to the workflow. Steps execute in the
// order they were added.
func (d *Driver) AddStep(name string, tasklet Tasklet) *Driver {
	d.steps = append(d.steps, Step{Name: name, Tasklet: tasklet})
	return d
}

// NewLaunchRequest builds a LaunchRequest carrying the driver's
// configured resource sizing and cluster target.
func (d *Driver) NewLaunchRequest(mainClass, appResource string, args ...string) *LaunchRequest {
	return &LaunchRequest{
		Name:           d.config.AppName,
		MainClass:      mainClass,
		AppResource:    appResource,
		ExecutorMemory: d.config.ExecutorMemory,
		ExecutorCount:  d.config.ExecutorCount,
		Master:         d.config.Master,
		DeployMode:     d.config.DeployMode,
		Args:           args,
	}
}

// LastRun returns the record of the most recent workflow run.
func (d *Driver) LastRun() *WorkflowRun {
	return d.lastRun
}

// run executes the workflow once, on the calling goroutine.
func (d *Driver) run() *WorkflowRun {
	bar := pb.New(len(d.steps)).Prefix("Steps").Start()
	run := runWorkflow(d.runtimeID, d.steps, func(name string, result StepResult) {
		bar.Increment()
	})
	bar.Finish()

	d.lastRun = run
	return run
}

// RunConcurrent executes several independent drivers concurrently,
// bounded by the first driver's maxConcurrency. Each workflow still
// runs strictly sequentially inside its own run.
func RunConcurrent(drivers []*Driver) []*WorkflowRun {
	if len(drivers) == 0 {
		return nil
	}

	maxConcurrency := drivers[0].config.MaxConcurrency
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	runs := make([]*WorkflowRun, len(drivers))
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	for i, driver := range drivers {
		sem.Acquire(context.Background(), 1)
		wg.Add(1)
		go func(i int, d *Driver) {
			defer wg.Done()
			defer sem.Release(1)
			run := runWorkflow(d.runtimeID, d.steps, nil)
			d.lastRun = run
			runs[i] = run
		}(i, driver)
	}
	wg.Wait()

	return runs
}

var verbose = flag.BoolP("verbose", "v", false, "Output verbose logs")
var propertiesFile = flag.String("properties", "", "Batch `properties` file layered over the config")

// Main runs the workflow and returns the process exit code: 0 if the
// run completed, non-zero otherwise.
func (d *Driver) Main() int {
	flag.Parse()
	viper.BindPFlags(flag.CommandLine)

	if viper.GetBool("verbose") || *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if *propertiesFile != "" {
		mergeProperties(*propertiesFile)
	}

	log.Infof("Starting workflow %s (%s)", d.config.AppName, d.runtimeID)

	start := time.Now()
	run := d.run()
	end := time.Now()
	d.Runtime = end.Sub(start)

	fmt.Printf("Workflow %s: %s (%s)\n", run.ID, run.Status, d.Runtime)
	if run.Status != StatusCompleted {
		if diagnostic := run.Diagnostic(); diagnostic != "" {
			log.Errorf("workflow failed: %s", diagnostic)
		}
		return 1
	}
	return 0
}
