package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/reveal-labs/reveal/internal/ai"
	"github.com/reveal-labs/reveal/internal/rest"
	"github.com/reveal-labs/reveal/internal/setup"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrTextRequired = errors.New("TEXT argument required")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "reveal",
		Usage: "Local grooming-risk analyzer and safety training simulator",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the REST server for host collaborators",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runServe(ctx)
				},
			},
			{
				Name:      "analyze",
				Usage:     "Classify a piece of text and print the result",
				ArgsUsage: "TEXT",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() == 0 {
						return ErrTextRequired
					}

					return runAnalyze(ctx, c.Args().First())
				},
			},
			{
				Name:  "status",
				Usage: "Check availability of the local model service",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runStatus(ctx)
				},
			},
			{
				Name:  "train",
				Usage: "Run an interactive training simulation in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Session mode: learner or tutor",
						Value: "learner",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runTrain(ctx, c.String("mode"))
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func runServe(ctx context.Context) error {
	app, err := setup.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	server := rest.NewServer(app.Analyzer, app.AIClient, app.Dispatcher, app.Engine, app.Tracker, app.Logger)

	addr := fmt.Sprintf("%s:%d", app.Config.Server.Host, app.Config.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		app.Logger.Info("REST server listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		app.Logger.Info("Shutting down", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
	}

	return nil
}

func runAnalyze(ctx context.Context, text string) error {
	app, err := setup.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	result := app.Analyzer.Analyze(ctx, text)

	out, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	fmt.Println(string(out))

	return nil
}

func runTrain(ctx context.Context, mode string) error {
	app, err := setup.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	if mode == string(ai.ModeTutor) {
		app.Engine.SetMode(ai.ModeTutor)
	}

	scenario := app.Engine.Start(false)
	fmt.Printf("Scenario: %s (difficulty %s)\n", scenario.ID, scenario.Difficulty)
	fmt.Println(scenario.Intro)
	fmt.Println(`Type your replies. Commands: "/next", "/restart", "/quit".`)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit":
			return scanner.Err()
		case "/next":
			scenario = app.Engine.NextScenario()
			fmt.Printf("Scenario: %s (difficulty %s)\n", scenario.ID, scenario.Difficulty)
			fmt.Println(scenario.Intro)

			continue
		case "/restart":
			scenario = app.Engine.Restart()
			fmt.Println(scenario.Intro)

			continue
		}

		turn := app.Engine.HandleUserInput(ctx, line)

		if turn.Feedback != nil {
			fmt.Printf("[%s] %s\n", turn.Feedback.Tone, turn.Feedback.Summary)

			for _, tip := range turn.Feedback.Tips {
				fmt.Println("  -", tip)
			}
		}

		if turn.Reward != nil {
			progress := app.Tracker.Snapshot(app.Engine.Mode())
			fmt.Printf("(+%d points, total %d)\n", turn.Reward.Points, progress.Points)
		}

		fmt.Println(turn.Reply.Text)
	}

	return scanner.Err()
}

func runStatus(ctx context.Context) error {
	app, err := setup.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	status, err := app.AIClient.CheckStatus(ctx)
	if err != nil {
		fmt.Println("Model service is unavailable:", err)
		return nil
	}

	fmt.Printf("Model service is available (version %s)\n", status.Version)

	if err := app.AIClient.ProbePermissions(ctx); err != nil {
		fmt.Println("Generate requests are not permitted:", err)
		return nil
	}

	fmt.Println("Generate requests are permitted")

	return nil
}
