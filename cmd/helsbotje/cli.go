package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/helsbotje/helsbotje-gpt/internal/chat"
	"github.com/helsbotje/helsbotje-gpt/internal/domain"
	"github.com/helsbotje/helsbotje-gpt/internal/gateway"
	"github.com/helsbotje/helsbotje-gpt/internal/store"
)

type cmdChat struct {
	Server    string `short:"u" env:"HELSBOTJE_URL" default:"http://localhost:8080" help:"Base URL of the HelsBotje gateway."`
	Transport string `short:"t" enum:"http,ws" default:"http" help:"Transport to the gateway (http or ws)."`
	Session   string `help:"Browser session ID to send; generated when empty."`
}

type cmdLog struct {
	DB    string `name:"db" env:"DB_PATH" default:"./data/helsbotje.db" help:"Path to the exchange log database."`
	Limit int    `short:"n" default:"20" help:"Number of exchanges to show, newest first."`
}

type cliArgs struct {
	Verbose bool    `short:"v" help:"Log transport failures to stderr."`
	Chat    cmdChat `cmd:"" help:"Chat with HelsBotje in the terminal."`
	Log     cmdLog  `cmd:"" help:"Print recent gateway exchanges."`
}

type cliConfig struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Exit   func(int)
}

// run parses args and executes the selected subcommand. It takes its
// arguments and stdio explicitly so that subcommands can be tested.
func run(args []string, config *cliConfig) (int, error) {
	var cli cliArgs
	parser, err := kong.New(&cli,
		kong.Name("helsbotje"),
		kong.Description("Terminal client for the HelsBotje GPT gateway."),
		kong.Exit(config.Exit),
		kong.Writers(config.Stdout, config.Stderr),
	)
	if err != nil {
		return 1, err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(config.Stderr, "helsbotje: error: %v\n", err)
		return 2, err
	}

	level := slog.LevelError
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(config.Stderr, &slog.HandlerOptions{Level: level}))

	switch ctx.Command() {
	case "chat":
		err = runChat(context.Background(), cli.Chat, config, logger)
	case "log":
		err = runLog(context.Background(), cli.Log, config.Stdout)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		fmt.Fprintf(config.Stderr, "helsbotje: %v\n", err)
		return 1, err
	}
	return 0, nil
}

func runChat(ctx context.Context, cmd cmdChat, config *cliConfig, logger *slog.Logger) error {
	var transport chat.Transport
	switch cmd.Transport {
	case "ws":
		ws := chat.NewWSTransport(cmd.Server, cmd.Session)
		defer func() { _ = ws.Close() }()
		transport = ws
	default:
		transport = chat.NewHTTPTransport(cmd.Server, nil, cmd.Session)
	}

	client := chat.NewClient(transport, chat.WithLogger(logger))
	defer client.Close()

	fmt.Fprintln(config.Stdout, "HelsBotje GPT. Typ je vraag, of /quit om te stoppen.")

	scanner := bufio.NewScanner(config.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), int(gateway.DefaultMaxRequestBodySize))
	for {
		fmt.Fprint(config.Stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "/quit" {
			break
		}

		client.SetInput(line)
		if !client.SubmitInput(ctx) {
			continue
		}
		msgs := client.Messages()
		if last := msgs[len(msgs)-1]; last.Sender == domain.SenderBot {
			fmt.Fprintf(config.Stdout, "HelsBotje: %s\n", last.Text)
		}
	}
	fmt.Fprintln(config.Stdout)
	return scanner.Err()
}

func runLog(ctx context.Context, cmd cmdLog, out io.Writer) error {
	if cmd.Limit <= 0 {
		return errors.New("limit must be > 0")
	}

	repo, err := store.NewSQLite(cmd.DB)
	if err != nil {
		return fmt.Errorf("open exchange log: %w", err)
	}
	defer func() { _ = repo.Close() }()

	exchanges, err := repo.RecentExchanges(ctx, cmd.Limit)
	if err != nil {
		return fmt.Errorf("read exchange log: %w", err)
	}
	if len(exchanges) == 0 {
		fmt.Fprintln(out, "no exchanges recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSESSION\tPROVIDER\tOUTCOME\tLATENCY\tMESSAGE\tERROR")
	for _, ex := range exchanges {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ex.CreatedAt.Local().Format(time.DateTime),
			ex.SessionID,
			ex.Provider,
			ex.Outcome,
			ex.Latency.Round(time.Millisecond),
			truncate(ex.UserText, 40),
			ex.ErrorDetail,
		)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
