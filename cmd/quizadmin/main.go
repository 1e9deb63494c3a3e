// Command quizadmin performs administrative tasks against the quiz database:
// creating admin accounts, seeding questions and resetting attempts.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/database"
	"github.com/stemsi/quizroom-backend/internal/logger"
	"github.com/stemsi/quizroom-backend/internal/repository"
	"github.com/stemsi/quizroom-backend/internal/service"
	"github.com/stemsi/quizroom-backend/internal/validator"
)

// app holds the connections and services shared by the subcommands.
type app struct {
	cfg  *config.Config
	log  zerolog.Logger
	pool *pgxpool.Pool
	rdb  *redis.Client

	users     *service.UserService
	questions *service.QuestionService
	attempts  *service.AttemptService
}

func connect(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	authService := service.NewAuthService(cfg, rdb)
	questions := service.NewQuestionService(repository.NewQuestionRepository(pool), rdb, cfg.QuestionCacheTTL, log)
	return &app{
		cfg:       cfg,
		log:       log,
		pool:      pool,
		rdb:       rdb,
		users:     service.NewUserService(repository.NewUserRepository(pool), authService, log),
		questions: questions,
		attempts:  service.NewAttemptService(repository.NewAttemptRepository(pool), questions, rdb, log),
	}, nil
}

func (a *app) Close() {
	a.rdb.Close()
	a.pool.Close()
}

// withApp adapts a command body that needs the database.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizadmin",
		Short:         "Administrative tasks for the quiz backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCreateAdminCmd(),
		newSetPasswordCmd(),
		newSeedQuestionsCmd(),
		newResetAttemptCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
