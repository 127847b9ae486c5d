package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"bodysync/internal/adapter/challenge"

	"golang.org/x/crypto/bcrypt"
)

// HashTriggerCmd hashes the serve-mode trigger secret.
type HashTriggerCmd struct {
	Cost int `long:"cost" default:"12" description:"bcrypt cost"`

	in  io.Reader
	out io.Writer
}

func (c *HashTriggerCmd) Execute(_ []string) error {
	in, out := c.in, c.out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	secret, err := challenge.Prompt{In: in, Out: os.Stderr}.Respond(context.Background(), "Trigger secret: ")
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), c.Cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "TRIGGER_TOKEN_HASH=%s\n", hash)
	return err
}
