package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harborlab/shipsim/internal/dispatcher"
	"github.com/harborlab/shipsim/internal/handlers"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s <command> [args]

commands:
  swarm [ships weather class speed seed terrain]   run the N-vessel simulation
  batch <runs> [workers ships weather ...]         run the swarm once per seed and aggregate
  maneuver <steps> [record]                        step a two-ship session, optionally from a saved record
  replay <runId>                                   summarise a recorded run (sqlite/postgres archive)
  risk <weather> <class> <speed>                   score accident risk
  dispatch <command> [args...]                     send a raw command, e.g. dispatch :RISK: rainy cargo 12
  version                                          print version and build date
`, AppName)
}

func (a *app) runCommand(args []string) error {
	switch strings.ToLower(args[0]) {
	case "swarm":
		return a.dispatchAndPrint(handlers.CmdSwarmRun, args[1:])
	case "batch":
		return a.dispatchAndPrint(handlers.CmdSwarmBatch, args[1:])
	case "maneuver":
		return a.maneuver(args[1:])
	case "replay":
		if len(args) != 2 {
			return fmt.Errorf("replay takes <runId>")
		}
		return a.dispatchAndPrint(handlers.CmdRunLoad, args[1:])
	case "risk":
		return a.dispatchAndPrint(handlers.CmdRisk, args[1:])
	case "dispatch":
		if len(args) < 2 {
			return fmt.Errorf("dispatch needs a command")
		}
		if !a.dispatcher.HasHandler(args[1]) {
			return fmt.Errorf("unknown command %q, available: %s", args[1], strings.Join(a.dispatcher.Commands(), " "))
		}
		return a.dispatchAndPrint(args[1], args[2:])
	case "version":
		return a.dispatchAndPrint(handlers.CmdVersion, nil)
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) dispatch(command string, args []string) (any, error) {
	return a.dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
}

func (a *app) dispatchAndPrint(command string, args []string) error {
	res, err := a.dispatch(command, args)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// maneuver opens a session, optionally loads a saved record into it, steps
// it and saves the final state under the configured record name. Each step
// is printed as one JSON line.
func (a *app) maneuver(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("maneuver takes <steps> [record]")
	}
	steps, err := strconv.Atoi(args[0])
	if err != nil || steps < 0 {
		return fmt.Errorf("invalid step count %q", args[0])
	}

	st, err := a.sessions.New(nil)
	if err != nil {
		return err
	}
	defer a.sessions.Close(st.ID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if len(args) == 2 {
		if st, err = a.sessions.Load(ctx, st.ID, args[1]); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	for i := 0; i < steps; i++ {
		st, err = a.sessions.Step(st.ID, 1)
		if err != nil {
			return err
		}
		if err := enc.Encode(st); err != nil {
			return err
		}
	}

	name, err := a.sessions.Save(ctx, st.ID, "")
	if err != nil {
		return err
	}
	a.log.Info().
		Int("steps", st.Step).
		Bool("collision", st.Collision).
		Str("record", name).
		Msg("Maneuver finished")
	return nil
}
