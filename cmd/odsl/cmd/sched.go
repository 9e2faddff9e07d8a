package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/bus"
	"github.com/odsl-lang/odsl/internal/sched"
)

var dumpIndent bool

var schedCmd = &cobra.Command{
	Use:   "sched",
	Short: "Drive and introspect the cooperative scheduler",
}

// demoScripts is the two-scheduler intercore demo: core A publishes a ring
// and feeds it, core B subscribes and drains it. The explicit `yield` in A
// parks it for one tick so B's subscribe lands before A's sends (subscribers
// never replay elements published before the subscribe point).
var demoScripts = [2]string{
	"p0:pub[0;8]; yield; snd[p0;11]; snd[p0;12]; snd[p0;13]; p0",
	"s1:sub[0;1]; print[rcv s1; rcv s1; rcv s1]",
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run two schedulers coupled only by the intercore bus",
	Long: `Spawn two in-process schedulers sharing one bus router, run a
publisher script on one and a subscriber script on the other, and tick them
round-robin until both retire. Demonstrates per-publisher FIFO, the
no-replay subscribe point, and backpressure-as-yield end to end.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		router := bus.NewRouter()
		cores := [2]*sched.Scheduler{
			sched.New(ast.NewArena(), sched.WithRouter(router)),
			sched.New(ast.NewArena(), sched.WithRouter(router)),
		}

		ids := [2]int{}
		for i, core := range cores {
			ids[i] = core.Spawn(demoScripts[i], sched.Mainloop)
			if _, err := core.Exec(ids[i], demoScripts[i]); err != nil {
				return err
			}
		}

		for tick := 1; ; tick++ {
			liveA, progA, err := cores[0].Tick()
			if err != nil {
				return err
			}
			liveB, progB, err := cores[1].Tick()
			if err != nil {
				return err
			}
			if verbose {
				fmt.Fprintf(os.Stderr, "tick %d: core0 live=%d core1 live=%d\n", tick, liveA, liveB)
			}
			if liveA+liveB == 0 {
				break
			}
			if !progA && !progB {
				return sched.ErrDeadlock
			}
		}

		for i, core := range cores {
			if t, ok := core.Task(ids[i]); ok {
				fmt.Printf("core%d result: %s\n", i, t.Result().String())
			}
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the demo run's task table",
	RunE: func(_ *cobra.Command, _ []string) error {
		core := demoRun()
		for _, line := range core.List() {
			fmt.Println(line)
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the demo run's task table as JSON",
	RunE: func(_ *cobra.Command, _ []string) error {
		core := demoRun()
		out, err := core.DumpJSON(dumpIndent)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		if verbose {
			n := gjson.GetBytes(out, "tasks.#").Int()
			fmt.Fprintf(os.Stderr, "%d task(s)\n", n)
		}
		return nil
	},
}

// demoRun executes a small single-scheduler script so list/dump have a live
// table to introspect without any persistent state.
func demoRun() *sched.Scheduler {
	core := sched.New(ast.NewArena())
	src := "p0:pub[0;4]; s0:sub[0;p0]; snd[p0;7]; rcv s0"
	id := core.Spawn(src, sched.Recursive)
	core.Exec(id, src)
	return core
}

func init() {
	rootCmd.AddCommand(schedCmd)
	schedCmd.AddCommand(demoCmd)
	schedCmd.AddCommand(listCmd)
	schedCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().BoolVar(&dumpIndent, "indent", true, "pretty-print the JSON dump")
}
