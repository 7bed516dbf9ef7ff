package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iov-one/ferry/app"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest/sim"
	"github.com/iov-one/ferry/store/iavl"
	"github.com/iov-one/ferry/x/origin"
)

func cmdRun(output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(fl.Output(), `
Load the genesis of both chains, schedule the migration on the origin chain
and produce blocks until both chains finished it. The post migration checks
are run at the end.
		`)
		fl.PrintDefaults()
	}
	var (
		originFl      = fl.String("origin", "", "Origin chain genesis file. Required.")
		destinationFl = fl.String("destination", "", "Destination chain genesis file. Required.")
		lagFl         = fl.Int64("lag", 1, "Number of blocks a message travels between the chains.")
		maxFl         = fl.Int("max-blocks", 10000, "Give up after producing that many blocks.")
		startFl       = fl.Int64("start", 0, "Block the migration starts at. Zero picks the first block allowed.")
		warmUpFl      = fl.Int64("warm-up", 10, "Blocks between the destination acknowledgment and the data migration.")
		coolOffFl     = fl.Int64("cool-off", 10, "Blocks between the data migration and the finish signal.")
		ignoreGuardFl = fl.Bool("ignore-guard", false, "Allow a start close to the end of the election era.")
		dataFl        = fl.String("data", "", "Directory to store both chains in. Memory is used when empty.")
		logFl         = fl.String("log-level", "info", "Log level: debug, info, error or none.")
	)
	fl.Parse(args)

	if *originFl == "" || *destinationFl == "" {
		flagDie("Both genesis files are required.")
	}

	logger, err := newLogger(*logFl)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	ocGen, err := app.LoadGenesis(*originFl)
	if err != nil {
		return errors.Wrap(err, "origin genesis")
	}
	dcGen, err := app.LoadGenesis(*destinationFl)
	if err != nil {
		return errors.Wrap(err, "destination genesis")
	}

	conf := sim.Config{
		Origin:      ocGen,
		Destination: dcGen,
		Lag:         *lagFl,
		Logger:      logger,
	}
	if *dataFl != "" {
		if err := os.MkdirAll(*dataFl, 0755); err != nil {
			return errors.Wrap(errors.ErrInput, err.Error())
		}
		conf.OriginStore = iavl.NewDiskCommitStore(*dataFl, "origin")
		conf.DestinationStore = iavl.NewDiskCommitStore(*dataFl, "destination")
	}

	s, err := sim.New(conf)
	if err != nil {
		return err
	}

	start := *startFl
	if start == 0 {
		c, err := origin.LoadConfiguration(s.OC.DeliverStore())
		if err != nil {
			return err
		}
		start = s.Height() + 2*c.EpochLength + 1
	}
	schedule := &origin.ScheduleMigrationMsg{
		Start:       start,
		WarmUp:      origin.DispatchTime{After: *warmUpFl},
		CoolOff:     origin.DispatchTime{After: *coolOffFl},
		IgnoreGuard: *ignoreGuardFl,
	}
	if _, err := s.Sudo(s.OC, schedule); err != nil {
		return errors.Wrap(err, "schedule")
	}
	fmt.Fprintf(output, "migration scheduled at block %d\n", start)

	blocks, runErr := s.Run(*maxFl)
	printStages(output, s)
	if runErr != nil {
		return runErr
	}
	if err := s.Verify(); err != nil {
		return errors.Wrap(err, "post migration checks")
	}
	fmt.Fprintf(output, "migration finished after %d blocks, %d messages relayed\n", blocks, s.Relay().Delivered())
	return nil
}

func printStages(output io.Writer, s *sim.Sim) {
	fmt.Fprintln(output, "origin stages:")
	for _, st := range s.OriginStages() {
		fmt.Fprintf(output, "\t%s\n", st)
	}
	fmt.Fprintln(output, "destination stages:")
	for _, st := range s.DestinationStages() {
		fmt.Fprintf(output, "\t%s\n", st)
	}
}

// flagDie terminates the program when a flag is not valid.
func flagDie(description string, args ...interface{}) {
	msg := fmt.Sprintf(description, args...)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
