// Command a2a-cli talks to an A2A agent: it prints the agent card, sends a
// message, or streams an answer to the terminal as it arrives.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"a2a-chat-agent/internal/a2a"
	"a2a-chat-agent/internal/auth"
	"a2a-chat-agent/internal/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: a2a-cli [flags] <command> [text]

Commands:
  card            print the agent card
  send <text>     send a message and print the answer
  stream <text>   stream the answer as it is produced

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	url := flag.String("url", "http://localhost:9999", "agent base URL")
	skillID := flag.String("skill", "", "skill id (empty for the agent default)")
	envPath := flag.String("env", ".env", "path to dotenv file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	if err := config.LoadEnvFile(*envPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if token := os.Getenv("A2A_TOKEN"); token != "" {
		ctx = auth.WithBearerToken(ctx, token)
	}
	ctx = auth.WithSessionID(ctx, auth.GenerateSessionID())

	client := a2a.NewClient(*url)
	text := strings.Join(flag.Args()[1:], " ")

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "card":
		err = printCard(ctx, client)
	case "send":
		err = send(ctx, client, text, *skillID)
	case "stream":
		err = stream(ctx, client, text, *skillID)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printCard(ctx context.Context, client *a2a.Client) error {
	card, err := client.FetchAgentCard(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(card)
}

func send(ctx context.Context, client *a2a.Client, text, skillID string) error {
	if text == "" {
		return errors.New("send: text is required")
	}
	task, err := client.SendMessage(ctx, text, skillID)
	if err != nil {
		return err
	}
	for _, art := range task.Artifacts {
		fmt.Println(art.Parts.Text())
	}
	fmt.Fprintf(os.Stderr, "\n[task %s %s, skill %v]\n", task.ID, task.Status.State, task.Metadata["skillId"])
	return nil
}

func stream(ctx context.Context, client *a2a.Client, text, skillID string) error {
	if text == "" {
		return errors.New("stream: text is required")
	}
	return client.StreamMessage(ctx, text, skillID, func(ev a2a.StreamEvent) error {
		switch {
		case ev.Task != nil:
			fmt.Fprintf(os.Stderr, "[task %s %s]\n", ev.Task.ID, ev.Task.Status.State)
		case ev.Status != nil:
			if msg := ev.Status.Status.Message; msg != nil {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Status.Status.State, msg.Parts.Text())
			} else {
				fmt.Fprintf(os.Stderr, "\n[%s]\n", ev.Status.Status.State)
			}
		case ev.Artifact != nil:
			fmt.Print(ev.Artifact.Artifact.Parts.Text())
		}
		return nil
	})
}
