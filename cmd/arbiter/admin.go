package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "hash-key":
		return runAdminHashKey(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: arbiter admin <command> [options]

Commands:
  hash-key   Hash an API key for server.api_key_hash
  help       Show this help message

Examples:
  arbiter admin hash-key
  arbiter admin hash-key --key my-secret-key
`)
}

// runAdminHashKey prints the bcrypt hash of an API key. The hash goes
// into server.api_key_hash (or ARBITER_SERVER_API_KEY_HASH); clients
// then send the plain key in the X-API-Key header.
func runAdminHashKey(args []string) error {
	fs := flag.NewFlagSet("hash-key", flag.ContinueOnError)
	key := fs.String("key", "", "API key to hash (prompted if not provided)") //nolint:gosec // CLI flag
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	plain := *key
	if plain == "" {
		var err error
		plain, err = promptPassword("API key: ")
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		confirm, err := promptPassword("Confirm API key: ")
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		if plain != confirm {
			return fmt.Errorf("keys do not match")
		}
	}
	if plain == "" {
		return fmt.Errorf("key must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), *cost)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}

	fmt.Println(string(hash))
	return nil
}

// promptPassword reads a secret from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr) // newline after secret input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
