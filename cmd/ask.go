package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olexi-ai/olexi-go/internal/config"
	"github.com/olexi-ai/olexi-go/internal/fingerprint"
	"github.com/olexi-ai/olexi-go/internal/log"
	"github.com/olexi-ai/olexi-go/internal/markdown"
	"github.com/olexi-ai/olexi-go/internal/research"
	"github.com/olexi-ai/olexi-go/internal/session"
	"github.com/olexi-ai/olexi-go/internal/stream"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a legal research question",
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := log.NewWithWriter(os.Stderr, log.Config{
		Level: log.ParseLevel(cfg.Logging.Level),
		JSON:  cfg.Logging.JSON,
	})

	svc := buildService(cfg, logger)

	// A question on the command line is a single-shot session.
	if len(args) > 0 {
		return runSession(ctx, svc, strings.Join(args, " "))
	}

	fmt.Println("Olexi legal research. Ask a question, Ctrl+D to exit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye.")
			break
		}
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}
		if err := runSession(ctx, svc, prompt); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Println()
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

func buildService(cfg *config.Config, logger log.Logger) *research.Service {
	prints := fingerprint.New(logger)
	store := session.NewFileStore(cfg.CacheDir)
	tokens := session.NewManager(session.Config{
		BaseURL:        cfg.BaseURL,
		ExtensionID:    cfg.ExtensionID,
		UserAgent:      fingerprint.UserAgent(),
		RequestTimeout: cfg.RequestTimeout(),
	}, store, prints, logger)
	client := stream.New(stream.Config{
		BaseURL:        cfg.BaseURL,
		ExtensionID:    cfg.ExtensionID,
		UserAgent:      fingerprint.UserAgent(),
		SessionTimeout: cfg.SessionTimeout(),
	}, logger)
	return research.New(tokens, client, cfg.SessionsPerHour, logger)
}

// runSession runs one prompt through a research session, printing events as
// they arrive.
func runSession(ctx context.Context, svc *research.Service, prompt string) error {
	st, err := svc.Ask(ctx, prompt)
	if err != nil {
		return describeOpenError(err)
	}
	defer st.Close()

	fmt.Println("Searching...")

	for st.Next() {
		ev := st.Event()
		switch ev.Kind {
		case stream.KindProgress:
			// Liveness only; nothing worth printing.
		case stream.KindResultsPreview:
			printMarkdown(research.PreviewMarkdown(ev.Preview.Items))
			fmt.Println("\nPreparing answer...")
		case stream.KindAnswer:
			printMarkdown(ev.Answer.Markdown)
			if ev.Answer.URL != "" {
				fmt.Printf("\nFull results: %s\n", ev.Answer.URL)
			}
		case stream.KindError:
			fmt.Fprintf(os.Stderr, "Olexi: %s\n", ev.Failure.Detail)
		}
	}

	if err := st.Err(); err != nil {
		if errors.Is(err, stream.ErrTimeout) {
			return errors.New("the session timed out before the answer arrived")
		}
		return err
	}
	return nil
}

func printMarkdown(text string) {
	fmt.Println(markdown.Render(text).Text())
}

// describeOpenError turns session open failures into messages a user can
// act on; anything unrecognised passes through as-is.
func describeOpenError(err error) error {
	var svcErr *stream.ServiceError
	switch {
	case errors.As(err, &svcErr):
		return fmt.Errorf("the research host refused the request: %s", svcErr.Detail)
	case errors.Is(err, session.ErrAuth):
		return errors.New("unable to authenticate with the Olexi server, please try again")
	case errors.Is(err, stream.ErrNetwork):
		return fmt.Errorf("cannot reach the research host: %w", err)
	default:
		return err
	}
}
