// Command intakechat runs an intake conversation in the terminal against the
// locally configured stack. Useful for checking extractor and provider setup.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wolfman30/patient-intake/internal/app/bootstrap"
	appconfig "github.com/wolfman30/patient-intake/internal/config"
	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

type conversation interface {
	Start(ctx context.Context) (intake.Outcome, error)
	ProcessMessage(ctx context.Context, sessionID, text string) (intake.Outcome, error)
	Abandon(ctx context.Context, sessionID string) (intake.Outcome, error)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	app, err := bootstrap.BuildApp(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("build app: %v", err)
	}
	defer app.Close()

	fmt.Printf("Patient intake (llm=%s). Type /quit to leave.\n", cfg.LLMProvider)
	if err := converse(context.Background(), app.Service, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("conversation: %v", err)
	}
}

// converse relays lines from in to the service until the session ends, the
// input closes or the user types /quit.
func converse(ctx context.Context, svc conversation, in io.Reader, out io.Writer) error {
	first, err := svc.Start(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	sessionID := first.SessionID
	fmt.Fprintf(out, "assistant> %s\n", first.Reply)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" {
			_, err := svc.Abandon(ctx, sessionID)
			return err
		}

		turn, err := svc.ProcessMessage(ctx, sessionID, text)
		if err != nil && turn.Reply == "" {
			return fmt.Errorf("process message: %w", err)
		}
		fmt.Fprintf(out, "assistant> %s\n", turn.Reply)
		if turn.Booking != nil {
			fmt.Fprintf(out, "booked visit %s with %s at %s\n",
				turn.Booking.VisitID, turn.Booking.ProviderName, turn.Booking.StartsAt.Format("Mon Jan 2 3:04 PM"))
		}
		if turn.State.Terminal() {
			fmt.Fprintln(out)
			return nil
		}
	}
	fmt.Fprintln(out)
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	_, err = svc.Abandon(ctx, sessionID)
	return err
}
