// Command dedupe-hash prints the dedupe hash stored for a government ID
// number, so support staff can look up which account claimed an ID without
// the ID itself ever being stored. IDs are read from the arguments, or one
// per line from stdin when none are given.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"seqrview.backend/internal/config"
	"seqrview.backend/internal/usecases"
)

var errNoSecret = errors.New("KYC_DEDUPE_SECRET is not set")

func main() {
	_ = godotenv.Load()
	if err := run(config.Load().Verification.DedupeSecret, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(secret string, args []string, in io.Reader, out io.Writer) error {
	if strings.TrimSpace(secret) == "" {
		return errNoSecret
	}
	index := usecases.NewDedupeIndex(secret, nil)

	write := func(id string) error {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil
		}
		_, err := fmt.Fprintln(out, index.Hash(id))
		return err
	}

	if len(args) > 0 {
		for _, id := range args {
			if err := write(id); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := write(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}
