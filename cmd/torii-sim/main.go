// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

// torii-sim runs a small demo design, a reloading down-counter, and drops
// into an interactive shell to inspect and drive the simulation.
//
//	torii-sim            interactive shell
//	torii-sim -run 100   run 100 time units, dump changes, exit
//
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	torii "github.com/shrine-maiden-heavy-industries/torii-hdl"
	"github.com/shrine-maiden-heavy-industries/torii-hdl/hdl"
	"github.com/shrine-maiden-heavy-industries/torii-hdl/netlist"
	"github.com/shrine-maiden-heavy-industries/torii-hdl/sim"
)

var (
	period  = flag.Uint64("period", 10, "clock period in time units")
	reload  = flag.Int64("reload", 10, "counter reload value")
	runFor  = flag.Uint64("run", 0, "run for this many time units and exit (0: interactive)")
	version = flag.Bool("version", false, "print version and exit")
)

// timer is the demo design: a down-counter that reloads itself, with a
// one-cycle tick strobe on expiry.
//
type timer struct {
	reload int64

	Timer *hdl.Signal
	Tick  *hdl.Signal
}

func newTimer(reload int64) *timer {
	return &timer{
		reload: reload,
		Timer:  hdl.NewSignal("timer", hdl.Unsigned(hdl.BitsFor(reload))),
		Tick:   hdl.NewSignal("tick", hdl.Unsigned(1)),
	}
}

func (d *timer) Elaborate(ctx *hdl.Context) *hdl.Module {
	m := hdl.NewModule()
	m.Sync("sync",
		hdl.Set(d.Timer, hdl.Sub(d.Timer, hdl.C(1))),
		hdl.When(hdl.Eq(d.Timer, hdl.C(0)),
			hdl.Set(d.Timer, hdl.C(d.reload)),
		),
	)
	m.Comb(
		hdl.Set(d.Tick, hdl.Eq(d.Timer, hdl.C(0))),
	)
	return m
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("torii-sim: ")
	flag.Parse()

	if *version {
		fmt.Println("torii-sim", torii.Version)
		return
	}

	d := newTimer(*reload)
	frag, err := hdl.Build(d, d.Timer, d.Tick)
	if err != nil {
		log.Fatal(err)
	}
	nl, err := netlist.Lower(frag)
	if err != nil {
		log.Fatal(err)
	}
	for _, w := range nl.Warnings {
		log.Print("warning: ", w.Msg)
	}

	rec := &sim.Recorder{}
	sm, err := sim.New(nl, sim.WithSink(rec))
	if err != nil {
		log.Fatal(err)
	}
	defer sm.Close()
	if err := sm.AddClock(sim.Time(*period), "sync"); err != nil {
		log.Fatal(err)
	}

	if *runFor > 0 {
		if err := sm.RunFor(sim.Time(*runFor)); err != nil {
			log.Fatal(err)
		}
		for _, c := range rec.Changes {
			fmt.Printf("%6d  %-12s %d\n", c.T, nl.Signals[c.ID].Name, c.Val)
		}
		return
	}

	if err := shell(sm, nl); err != nil {
		log.Fatal(err)
	}
}

func shell(sm *sim.Simulator, nl *netlist.Netlist) error {
	rl, err := readline.New("sim> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			fmt.Print(helpText)
		case "time", "t":
			fmt.Println(sm.Now())
		case "step", "s":
			ok, err := sm.Step()
			if err != nil {
				fmt.Println(err)
			} else if !ok {
				fmt.Println("timeline empty")
			} else {
				fmt.Println("time", sm.Now())
			}
		case "run", "r":
			d := uint64(100)
			if len(args) > 1 {
				if d, err = strconv.ParseUint(args[1], 0, 64); err != nil {
					fmt.Println(err)
					continue
				}
			}
			if err := sm.RunFor(sim.Time(d)); err != nil {
				fmt.Println(err)
			} else {
				fmt.Println("time", sm.Now())
			}
		case "peek", "p":
			if len(args) != 2 {
				fmt.Println("usage: peek <signal>")
				continue
			}
			id, ok := nl.ByName(args[1])
			if !ok {
				fmt.Println("unknown signal", args[1])
				continue
			}
			fmt.Println(sm.PeekID(id))
		case "poke":
			if len(args) != 3 {
				fmt.Println("usage: poke <signal> <value>")
				continue
			}
			id, ok := nl.ByName(args[1])
			if !ok {
				fmt.Println("unknown signal", args[1])
				continue
			}
			v, err := strconv.ParseUint(args[2], 0, 64)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := sm.Poke(nl.Signals[id].Signal, v); err != nil {
				fmt.Println(err)
			}
		case "list", "l":
			for id := range nl.Signals {
				si := &nl.Signals[id]
				dom := si.Domain
				if dom == "" {
					dom = "input"
				}
				fmt.Fprintf(os.Stdout, "%-16s %-6s %s\n", si.Name, dom, si.Shape)
			}
		default:
			fmt.Println("unknown command", args[0], "(try help)")
		}
	}
}

const helpText = `commands:
  run [n]         run n time units (default 100)
  step            advance to the next timeline event
  peek <signal>   print a signal's current value
  poke <sig> <v>  force an undriven signal to v
  list            list netlist signals
  time            print the current simulation time
  quit            leave
`
