package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/garnizeh/clientportal/internal/auth"
	"github.com/garnizeh/clientportal/internal/repository/sqlstore"
	"github.com/garnizeh/clientportal/pkg/models"
	"github.com/garnizeh/clientportal/pkg/repository"
)

var allowlistCmd = &cobra.Command{
	Use:   "allowlist",
	Short: "Manage authorized portal users",
	Long: `Manage the emails allowed to sign in to the portal.

Available subcommands:
  add     - Add or update a user
  enable  - Allow a user to sign in again
  disable - Block a user from signing in
  list    - Print all users as CSV
  import  - Add or update users from a CSV file`,
}

var addOpts struct {
	name, company, companyID, contactID, password string
	inactive                                      bool
}

var allowlistAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Add or update a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(cmd.Context(), func(repo *sqlstore.Repo) error {
			row := allowlistRow{
				Email:     args[0],
				Name:      addOpts.name,
				Company:   addOpts.company,
				CompanyID: addOpts.companyID,
				ContactID: addOpts.contactID,
				Password:  addOpts.password,
				Active:    strconv.FormatBool(!addOpts.inactive),
			}
			if err := upsertRow(cmd.Context(), repo, row); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", repository.NormalizeEmail(args[0]))
			return nil
		})
	},
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(repo *sqlstore.Repo) error {
				if err := repo.SetActive(cmd.Context(), args[0], active); err != nil {
					return fmt.Errorf("%s %s: %w", use, args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%sd %s\n", use, repository.NormalizeEmail(args[0]))
				return nil
			})
		},
	}
}

var allowlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all users as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(cmd.Context(), func(repo *sqlstore.Repo) error {
			users, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			return gocsv.Marshal(users, cmd.OutOrStdout())
		})
	},
}

var allowlistImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Add or update users from a CSV file",
	Long: `Add or update users from a CSV file with the header
email,name,company,company_id,contact_id,password,active

An empty password keeps the user's current password. An empty active
column means active.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return withRepo(cmd.Context(), func(repo *sqlstore.Repo) error {
			n, err := importAllowlist(cmd.Context(), repo, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d users\n", n)
			return nil
		})
	},
}

func init() {
	allowlistAddCmd.Flags().StringVar(&addOpts.name, "name", "", "display name")
	allowlistAddCmd.Flags().StringVar(&addOpts.company, "company", "", "company name")
	allowlistAddCmd.Flags().StringVar(&addOpts.companyID, "company-id", "", "pin the CRM company id")
	allowlistAddCmd.Flags().StringVar(&addOpts.contactID, "contact-id", "", "pin the CRM contact id")
	allowlistAddCmd.Flags().StringVar(&addOpts.password, "password", "", "initial password (keeps the current one when empty)")
	allowlistAddCmd.Flags().BoolVar(&addOpts.inactive, "inactive", false, "add the user disabled")

	allowlistCmd.AddCommand(allowlistAddCmd)
	allowlistCmd.AddCommand(setActiveCmd("enable", "Allow a user to sign in", true))
	allowlistCmd.AddCommand(setActiveCmd("disable", "Block a user from signing in", false))
	allowlistCmd.AddCommand(allowlistListCmd)
	allowlistCmd.AddCommand(allowlistImportCmd)
}

// allowlistRow is one line of an import file.
type allowlistRow struct {
	Email     string `csv:"email"`
	Name      string `csv:"name"`
	Company   string `csv:"company"`
	CompanyID string `csv:"company_id"`
	ContactID string `csv:"contact_id"`
	Password  string `csv:"password"`
	Active    string `csv:"active"`
}

// importAllowlist upserts every row of a CSV file. Rows are validated
// before anything is written.
func importAllowlist(ctx context.Context, repo repository.UserRepo, r io.Reader) (int, error) {
	var rows []allowlistRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	for i, row := range rows {
		if err := row.check(); err != nil {
			return 0, fmt.Errorf("line %d: %w", i+2, err)
		}
	}
	for i, row := range rows {
		if err := upsertRow(ctx, repo, row); err != nil {
			return i, fmt.Errorf("line %d: %w", i+2, err)
		}
	}
	return len(rows), nil
}

func (row allowlistRow) check() error {
	email := repository.NormalizeEmail(row.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", row.Email)
	}
	if row.Password != "" && len(row.Password) < auth.MinPasswordLength {
		return fmt.Errorf("%s: %w", email, auth.ErrWeakPassword)
	}
	if _, err := row.active(); err != nil {
		return fmt.Errorf("%s: invalid active value %q", email, row.Active)
	}
	return nil
}

func (row allowlistRow) active() (bool, error) {
	if strings.TrimSpace(row.Active) == "" {
		return true, nil
	}
	return strconv.ParseBool(strings.TrimSpace(row.Active))
}

// upsertRow merges row into the stored user, keeping the existing password
// hash when the row has no password.
func upsertRow(ctx context.Context, repo repository.UserRepo, row allowlistRow) error {
	if err := row.check(); err != nil {
		return err
	}
	email := repository.NormalizeEmail(row.Email)
	existing, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	u := models.AuthorizedUser{Email: email}
	if existing != nil {
		u = *existing
	}
	if row.Name != "" {
		u.Name = row.Name
	}
	if row.Company != "" {
		u.Company = row.Company
	}
	if row.CompanyID != "" {
		u.CompanyID = row.CompanyID
	}
	if row.ContactID != "" {
		u.ContactID = row.ContactID
	}
	if row.Password != "" {
		hash, err := auth.HashPassword(row.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	u.Active, _ = row.active()
	return repo.Upsert(ctx, &u)
}
