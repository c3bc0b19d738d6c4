// Command actorcoredemo runs the scenarios described across spec.md end to
// end against one live runtime: a scheduler-driven request/response actor,
// the name registry, a restarting supervision tree, and a credit-based
// stream pipeline.
package main

import (
	"fmt"
	"time"

	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/scheduler"
)

func main() {
	cfg := config.Default()
	sched := scheduler.New(cfg)
	sched.Start()
	defer sched.Stop()

	fmt.Println("=== request/response ===")
	runRequestResponse(sched)

	fmt.Println("=== name registry ===")
	runRegistry(sched)

	fmt.Println("=== supervision ===")
	runSupervision()

	fmt.Println("=== stream pipeline ===")
	runStream(cfg)

	// give the scheduler a moment to park its workers before Stop tears
	// down anything left queued.
	time.Sleep(50 * time.Millisecond)
}
