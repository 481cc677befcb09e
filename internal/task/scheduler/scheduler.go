package scheduler

import (
	"context"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the sweeper on a cron schedule. A tick that is still running
// when the next one is due is skipped, so rules never overlap.
type Scheduler struct {
	sweeper *Sweeper
	spec    string
	cron    *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	// first tracks the run started by Start, which cron does not know about
	first sync.WaitGroup
}

// NewScheduler creates a scheduler; spec is a robfig/cron spec such as "@every 1m".
func NewScheduler(sweeper *Sweeper, spec string) *Scheduler {
	if spec == "" {
		spec = "@every 1m"
	}
	return &Scheduler{sweeper: sweeper, spec: spec}
}

// Start registers the sweep and begins the loop, running once immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	logger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	ctx, cancel := context.WithCancel(context.Background())
	job, err := c.AddFunc(s.spec, func() { s.tick(ctx) })
	if err != nil {
		cancel()
		return err
	}

	s.cron, s.ctx, s.cancel = c, ctx, cancel
	log.Printf("[TaskScheduler] Starting task sweeps (schedule: %s)", s.spec)
	c.Start()
	// Run immediately on start, through the chain so it cannot overlap the first tick
	s.first.Add(1)
	go func() {
		defer s.first.Done()
		c.Entry(job).WrappedJob.Run()
	}()
	return nil
}

// Stop cancels in-flight sweeps and waits for the running tick, including the
// initial run, to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.first.Wait()
	log.Println("[TaskScheduler] Scheduler stopped")
}

// RunOnce runs every rule synchronously, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) (map[string]int, error) {
	return s.sweeper.RunAll(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.sweeper.RunAll(ctx)
	if err != nil {
		log.Printf("[TaskScheduler] Sweep finished with errors: %v", err)
	}
	total := 0
	for _, n := range report {
		total += n
	}
	if total > 0 {
		log.Printf("[TaskScheduler] Sweep results: %v", report)
	}
}
