package main

import (
	"fmt"
	"time"

	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/stream"
)

func runStream(cfg config.Config) {
	p := stream.NewPipeline(cfg)

	n := 0
	if err := p.AddUpstream(func() (interface{}, bool) {
		if n >= 20 {
			return nil, false
		}
		n++
		return n, true
	}); err != nil {
		fmt.Println("add upstream failed:", err)
		return
	}

	if err := p.AddStage(func(v interface{}) (interface{}, bool) {
		value := v.(int)
		return value, value%3 == 0
	}); err != nil {
		fmt.Println("add stage failed:", err)
		return
	}

	done := make(chan struct{})
	var multiples []int
	handle := func(v interface{}) {
		multiples = append(multiples, v.(int))
	}
	finish := func(err error) {
		if err != nil {
			fmt.Println("stream aborted:", err)
		}
		close(done)
	}

	if err := p.AddDownstream(handle, finish); err != nil {
		fmt.Println("add downstream failed:", err)
		return
	}
	if err := p.Run(); err != nil {
		fmt.Println("run failed:", err)
		return
	}

	select {
	case <-done:
		fmt.Println("multiples of three up to 20:", multiples)
	case <-time.After(2 * time.Second):
		fmt.Println("stream did not complete in time")
	}
}
