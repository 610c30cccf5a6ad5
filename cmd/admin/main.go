package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
	"github.com/diagramstudio/diagram-api/internal/core/service"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/config"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/db/postgres"
	"github.com/diagramstudio/diagram-api/pkg/logger"
)

// readPassword is swapped out in tests.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

var (
	username string
	email    string
	isAdmin  bool
	page     int
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Diagram API administration tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an account, prompting for the password",
	RunE: func(cmd *cobra.Command, _ []string) error {
		password, err := promptPassword(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return withUsers(cmd.Context(), func(users ports.UserRepository, cfg *config.Config) error {
			acct := account{Username: username, Email: email, Admin: isAdmin}
			user, err := createUser(cmd.Context(), users, service.NewPasswordHasher(cfg.Auth.BcryptCost), acct, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s) admin=%t\n", user.Username, user.ID, user.IsAdmin)
			return nil
		})
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant admin rights to an existing account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withUsers(cmd.Context(), func(users ports.UserRepository, _ *config.Config) error {
			user, err := promote(cmd.Context(), users, email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", user.Email)
			return nil
		})
	},
}

var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withUsers(cmd.Context(), func(users ports.UserRepository, _ *config.Config) error {
			return listUsers(cmd.Context(), users, page, cmd.OutOrStdout())
		})
	},
}

func init() {
	createUserCmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	createUserCmd.Flags().StringVarP(&email, "email", "e", "", "Email (required)")
	createUserCmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant admin rights")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("email")

	promoteCmd.Flags().StringVarP(&email, "email", "e", "", "Email of the account (required)")
	_ = promoteCmd.MarkFlagRequired("email")

	listUsersCmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")

	rootCmd.AddCommand(createUserCmd, promoteCmd, listUsersCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withUsers loads configuration, opens and migrates the database and hands
// fn a user repository.
func withUsers(ctx context.Context, fn func(ports.UserRepository, *config.Config) error) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Init(logger.Options{Level: "warn", Pretty: true, Output: os.Stderr})

	db, err := postgres.Open(ctx, postgres.Config{
		URL:          cfg.Postgres.URL,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		Timeout:      cfg.Postgres.QueryTimeout,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, log); err != nil {
		return err
	}
	return fn(postgres.NewUserRepository(db, cfg.Postgres.QueryTimeout), cfg)
}

func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	first, err := readPassword()
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword()
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

type account struct {
	Username string
	Email    string
	Admin    bool
}

func createUser(ctx context.Context, users ports.UserRepository, hasher *service.PasswordHasher, acct account, password string) (*domain.User, error) {
	name := strings.TrimSpace(acct.Username)
	addr := strings.TrimSpace(acct.Email)
	if name == "" || addr == "" {
		return nil, errors.New("username and email are required")
	}
	if err := service.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Username:     name,
		Email:        addr,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      acct.Admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func promote(ctx context.Context, users ports.UserRepository, addr string) (*domain.User, error) {
	user, err := users.FindByEmail(ctx, strings.TrimSpace(addr))
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		return user, nil
	}
	granted := true
	return users.Update(ctx, user.ID, domain.UserUpdate{IsAdmin: &granted})
}

func listUsers(ctx context.Context, users ports.UserRepository, page int, w io.Writer) error {
	const limit = 50
	if page < 1 {
		page = 1
	}
	items, total, err := users.List(ctx, page, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-36s %-20s %-30s %-6s %-6s %s\n", "ID", "Username", "Email", "Active", "Admin", "Created")
	for _, u := range items {
		fmt.Fprintf(w, "%-36s %-20s %-30s %-6t %-6t %s\n",
			u.ID, u.Username, u.Email, u.IsActive, u.IsAdmin, u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "\npage %d, %d of %d users\n", page, len(items), total)
	return nil
}
