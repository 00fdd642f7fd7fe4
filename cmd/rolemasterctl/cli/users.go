package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/akumi07/RoleMaster21/internal/repositories"
	"github.com/akumi07/RoleMaster21/internal/services"
	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and seed directory records",
	}

	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersSeedAdminCmd())

	return cmd
}

// ---------- users list ----------

func newUsersListCmd() *cobra.Command {
	var (
		query      string
		page       int
		pageSize   int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List directory records one page at a time",
		Example: `  rolemasterctl users list --query ada
  rolemasterctl users list --page 2 --page-size 20 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			db, _, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			view, err := listPage(ctx, repositories.NewUserRepository(db), query, page, pageSize)
			if err != nil {
				return err
			}

			return printPage(cmd.OutOrStdout(), view, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive name or email filter")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", services.DefaultPageSize, "records per page (max 100)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

type userLister interface {
	List(ctx context.Context) ([]*models.User, error)
}

func listPage(ctx context.Context, repo userLister, query string, page, pageSize int) (models.PageView, error) {
	records, err := repo.List(ctx)
	if err != nil {
		return models.PageView{}, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]models.User, 0, len(records))
	for _, r := range records {
		users = append(users, *r)
	}

	return services.Project(users, query, page, pageSize), nil
}

func printPage(w io.Writer, view models.PageView, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	if view.TotalCount == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}

	fmt.Fprintf(w, "%-36s %-24s %-30s %-10s %-6s\n", "ID", "NAME", "EMAIL", "ROLE", "ACTIVE")
	fmt.Fprintf(w, "%-36s %-24s %-30s %-10s %-6s\n", "--", "----", "-----", "----", "------")
	for _, u := range view.Items {
		active := "yes"
		if !u.Active {
			active = "no"
		}
		fmt.Fprintf(w, "%-36s %-24s %-30s %-10s %-6s\n", u.ID, u.Name, u.Email, u.Role, active)
	}
	fmt.Fprintf(w, "\nShowing %d-%d of %d (page %d of %d)\n", view.From, view.To, view.TotalCount, view.Page, view.TotalPages)

	return nil
}

// ---------- users seed-admin ----------

func newUsersSeedAdminCmd() *cobra.Command {
	var (
		email string
		name  string
	)

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first admin when the directory has none",
		Example: `  rolemasterctl users seed-admin --email admin@example.com --name "Ops Admin"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			db, _, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			created, err := seedAdmin(ctx, repositories.NewUserRepository(db), email, name)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %q (%s)\n", created.Email, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&name, "name", "Admin", "Admin display name")
	cmd.MarkFlagRequired("email")

	return cmd
}

type adminSeeder interface {
	InsertFirstAdmin(ctx context.Context, user *models.User) (*models.User, error)
}

func seedAdmin(ctx context.Context, repo adminSeeder, email, name string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address: %q", email)
	}

	created, err := repo.InsertFirstAdmin(ctx, &models.User{
		Name:   strings.TrimSpace(name),
		Email:  email,
		Active: true,
	})
	if errors.Is(err, models.ErrConflict) {
		return nil, fmt.Errorf("directory already has an admin; add users through the OTP flow")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return created, nil
}
