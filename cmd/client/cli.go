// cmd/client/cli.go

package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

type command struct {
	help     string
	handler  func(c *cli, args string) error
	category string
	// needsCollection commands run against the collection chosen with "use".
	needsCollection bool
}

type cli struct {
	api               *apiClient
	rl                *readline.Instance
	rlConfig          *readline.Config
	currentCollection string
	commands          map[string]command
	multiWordCommands []string
}

func newCLI(api *apiClient) *cli {
	c := &cli{api: api}
	c.commands = c.getCommands()

	var mwCmds []string
	for cmd := range c.commands {
		if strings.Contains(cmd, " ") {
			mwCmds = append(mwCmds, cmd)
		}
	}
	// Longest first, so "index create" wins over a shorter prefix.
	sort.Slice(mwCmds, func(i, j int) bool {
		return len(mwCmds[i]) > len(mwCmds[j])
	})
	c.multiWordCommands = mwCmds
	return c
}

func (c *cli) run() error {
	c.rlConfig = &readline.Config{
		Prompt:          "> ",
		HistoryFile:     "/tmp/docquery_history.tmp",
		AutoComplete:    c.getCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	}

	var err error
	c.rl, err = readline.NewEx(c.rlConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer c.rl.Close()

	fmt.Println(colorInfo("Connected to ", c.api.baseURL, ". Type 'help' for commands."))
	return c.mainLoop()
}

func (c *cli) prompt() string {
	if c.currentCollection != "" {
		return c.currentCollection + "> "
	}
	return "> "
}

func (c *cli) mainLoop() error {
	for {
		c.rl.SetPrompt(colorPrompt(c.prompt()))

		input, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(input) == 0 {
					break
				}
				continue
			} else if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if err := c.execute(input); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Println(colorErr("Command failed: ", err))
		}
	}
	fmt.Println(colorInfo("\nExiting client. Goodbye!"))
	return nil
}

// execute runs one input line.
func (c *cli) execute(input string) error {
	cmd, args := c.getCommandAndRawArgs(input)
	handler, found := c.commands[cmd]
	if !found {
		return fmt.Errorf("unknown command %q, type 'help' for commands", cmd)
	}
	if handler.needsCollection && c.currentCollection == "" {
		return errors.New("no collection selected, use: use <collection>")
	}

	startTime := time.Now()
	err := handler.handler(c, args)
	if err == nil && cmd != "clear" && cmd != "help" && cmd != "exit" {
		fmt.Println(colorInfo("Request time: ", time.Since(startTime).Round(time.Millisecond)))
	}
	return err
}

// getCommandAndRawArgs splits input into a known command and the rest.
func (c *cli) getCommandAndRawArgs(input string) (string, string) {
	for _, mwCmd := range c.multiWordCommands {
		if strings.HasPrefix(input, mwCmd+" ") || input == mwCmd {
			return mwCmd, strings.TrimSpace(input[len(mwCmd):])
		}
	}
	cmd, args, _ := strings.Cut(input, " ")
	return cmd, strings.TrimSpace(args)
}
