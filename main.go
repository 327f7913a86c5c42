package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tutorbot/app/client/runner"
	"tutorbot/app/config"
	"tutorbot/app/server"
	"tutorbot/app/service/conversation"
	"tutorbot/app/service/engine"
	"tutorbot/app/service/queue"
	"tutorbot/app/service/toolset"
	"tutorbot/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configPath string

func main() {
	mylog.Preinit()

	rootCmd := &cobra.Command{
		Use:           "tutorbot",
		Short:         "Programming tutor that runs the code it suggests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config")

	rootCmd.AddCommand(serveCmd(), askCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}

// setup loads the config and provides the services shared by every command.
func setup() (*do.Injector, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	if err = mylog.Init(cfg); err != nil {
		return nil, fmt.Errorf("logging init failed: %w", err)
	}

	di := do.New()
	do.ProvideValue(di, cfg)

	do.Provide(di, toolset.New)
	do.Provide(di, runner.NewClient)
	do.Provide(di, conversation.New)

	return di, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			di, err := setup()
			if err != nil {
				return err
			}
			defer di.Shutdown()
			defer log.Info("Waiting for services to finish...")

			do.Provide(di, queue.New)
			do.Provide(di, engine.New)
			do.Provide(di, server.New)

			engineSvc, err := do.Invoke[*engine.Service](di)
			if err != nil {
				return err
			}
			httpServer, err := do.Invoke[*server.Server](di)
			if err != nil {
				return err
			}

			slog.Info("Service started")

			group, groupCtx := errgroup.WithContext(appCtx)
			group.Go(func() error {
				return engineSvc.Run(groupCtx)
			})
			group.Go(httpServer.Listen)
			group.Go(func() error {
				<-groupCtx.Done()
				log.Info("Shutting down...")
				return httpServer.Shutdown()
			})

			return group.Wait()
		},
	}
}

func askCmd() *cobra.Command {
	var (
		req      conversation.Request
		messages []string
	)

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Run a single chat turn and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			di, err := setup()
			if err != nil {
				return err
			}
			defer di.Shutdown()

			for _, msg := range messages {
				req.Messages = append(req.Messages, conversation.Message{
					Role:    conversation.RoleUser,
					Content: msg,
				})
			}

			svc, err := do.Invoke[*conversation.Service](di)
			if err != nil {
				return err
			}

			result, err := svc.Chat(cmd.Context(), req)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")

			return encoder.Encode(result)
		},
	}

	cmd.Flags().StringVar(&req.Problem, "problem", "", "problem the student is working on")
	cmd.Flags().IntVar(&req.Level, "level", 0, fmt.Sprintf("student level in range [0, %d)", conversation.LevelCount))
	cmd.Flags().StringArrayVar(&messages, "message", nil, "user message, repeat for several turns")
	cmd.Flags().StringVar(&req.Summary, "summary", "", "summary of earlier turns")
	_ = cmd.MarkFlagRequired("problem")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
