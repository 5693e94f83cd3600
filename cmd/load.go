package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gooze.dev/pkg/orbit/internal/domain"
)

const loadCommandName = "load"

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   loadCommandName + " <file>",
		Short: "Run a command line stored in a file",
		Long: `Read an orbit command line from <file> and run it. Every non-empty line is
one token of the command line; text after # is a comment. For example:

  # nightly.orbit
  exec
  nightly
  --parallel
  8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := readCommandFile(args[0])
			if err != nil {
				return err
			}

			root := cmd.Root()

			target, _, err := root.Find(tokens)
			if err != nil {
				return err
			}

			if target.Name() == loadCommandName {
				return fmt.Errorf("%w: %s may not run another load", domain.ErrInvalidArgs, args[0])
			}

			root.SetArgs(tokens)

			return root.ExecuteContext(cmd.Context())
		},
	}
}

// readCommandFile returns the tokens of path, one per non-empty line.
func readCommandFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open command file: %w", err)
	}
	defer f.Close()

	var tokens []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), "#")
		if token := strings.TrimSpace(line); token != "" {
			tokens = append(tokens, token)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read command file %s: %w", path, err)
	}

	if len(tokens) == 0 {
		return nil, errors.New("command file " + path + " is empty")
	}

	return tokens, nil
}
