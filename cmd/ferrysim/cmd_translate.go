package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x/sovereign"
)

func cmdTranslate(output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(fl.Output(), `
Print the destination chain counterpart of every given origin chain account.
Accounts are given as ss58 strings, hex or any other address form accepted
in a genesis file.
		`)
		fl.PrintDefaults()
	}
	var (
		prefixFl = fl.Uint("ss58-prefix", 0, "Prefix used to print translated accounts in ss58.")
		headerFl = fl.Bool("header", true, "Display header")
	)
	fl.Parse(args)
	if fl.NArg() == 0 {
		flagDie("At least one account is required.")
	}

	translator := sovereign.NewTranslator()
	w := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	if *headerFl {
		fmt.Fprintln(w, "ORIGIN\tDESTINATION\tSS58")
	}
	for _, raw := range fl.Args() {
		from, err := parseAccount(raw)
		if err != nil {
			return errors.Wrapf(err, "account %q", raw)
		}
		to := translator.Translate(from)
		ss58, err := sovereign.SS58Encode(uint16(*prefixFl), to)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", from, to, ss58)
	}
	return w.Flush()
}

func parseAccount(raw string) (ferry.Address, error) {
	if !strings.Contains(raw, ":") {
		if _, addr, err := sovereign.SS58Decode(raw); err == nil {
			return addr, nil
		}
	}
	return ferry.ParseAddress(raw)
}
