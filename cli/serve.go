package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quizwire/quizwire/quiz"
	"github.com/quizwire/quizwire/server"
	"github.com/quizwire/quizwire/trivia"
)

func newServeCmd() *cobra.Command {
	var (
		host          string
		sportQuiz     string
		geographyQuiz string
		maxPlayers    int
		watch         bool
	)

	cmd := &cobra.Command{
		Use:   "serve <port>",
		Short: "Run the trivia server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid port %q", args[0])
			}

			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}))

			// Quiz files are fatal at startup, before any client is accepted.
			paths := map[trivia.Topic]string{
				trivia.TopicSport:     sportQuiz,
				trivia.TopicGeography: geographyQuiz,
			}
			quizzes := make(map[trivia.Topic]*quiz.Quiz, len(paths))
			for topic, path := range paths {
				q, err := quiz.Load(path)
				if err != nil {
					return err
				}
				logger.Info("quiz loaded",
					slog.String("topic", q.Topic),
					slog.Int("questions", len(q.Questions)))
				quizzes[topic] = q
			}

			registry := trivia.NewRegistry(maxPlayers)
			srv := server.New(logger, registry, quizzes)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				watcher, err := server.NewWatcher(logger, srv.Hub(), paths)
				if err != nil {
					return fmt.Errorf("watch quiz files: %w", err)
				}
				go watcher.Run(ctx)
			}

			return srv.ListenAndServe(ctx, net.JoinHostPort(host, args[0]))
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Address to bind (default: all interfaces)")
	cmd.Flags().StringVar(&sportQuiz, "sport-quiz", "res/sport_quiz.txt", "Sport quiz file")
	cmd.Flags().StringVar(&geographyQuiz, "geography-quiz", "res/geography_quiz.txt", "Geography quiz file")
	cmd.Flags().IntVar(&maxPlayers, "max-players", 256, "Maximum number of registered players")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload quiz files when they change")

	return cmd
}
