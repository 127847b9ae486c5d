// Command withings-bootstrap obtains the first Withings token pair through the
// browser consent flow. Its output seeds WITHINGS_ACCESS_TOKEN,
// WITHINGS_REFRESH_TOKEN and WITHINGS_TOKEN_VALID_UNTIL, or is written to the
// token store directly with --store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// Options is the root command.
type Options struct {
	Token       TokenCmd       `command:"token" description:"Authorize the app and exchange the code for a token pair"`
	HashTrigger HashTriggerCmd `command:"hash-trigger" description:"Print a bcrypt hash for TRIGGER_TOKEN_HASH"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Println(err)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
