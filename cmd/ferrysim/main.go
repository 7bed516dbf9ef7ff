package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/iov-one/ferry"
	"github.com/tendermint/tendermint/libs/log"
)

func helpMessage() {
	fmt.Fprintln(os.Stderr, "ferrysim")
	fmt.Fprintln(os.Stderr, "        Simulate the migration between an origin and a destination chain")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "help       Print this message")
	fmt.Fprintln(os.Stderr, "run        Run both chains until the migration finished")
	fmt.Fprintln(os.Stderr, "translate  Print the destination chain account of origin chain accounts")
	fmt.Fprintln(os.Stderr, "version    Print the version")
}

func main() {
	flag.CommandLine.Usage = helpMessage
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Missing command:")
		helpMessage()
		os.Exit(2)
	}

	cmd := flag.Arg(0)
	rest := flag.Args()[1:]

	var err error
	switch cmd {
	case "help":
		helpMessage()
	case "run":
		err = cmdRun(os.Stdout, rest)
	case "translate":
		err = cmdTranslate(os.Stdout, rest)
	case "version":
		fmt.Println(ferry.Version())
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) (log.Logger, error) {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout)).With("module", "ferrysim")
	opt, err := log.AllowLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewFilter(logger, opt), nil
}
