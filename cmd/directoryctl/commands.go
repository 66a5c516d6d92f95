package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cmlabs-hris/employee-directory/internal/config"
	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/blobstore"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/imageenc"
	"github.com/cmlabs-hris/employee-directory/internal/repository/blob"
	serviceAuth "github.com/cmlabs-hris/employee-directory/internal/service/auth"
	employeeService "github.com/cmlabs-hris/employee-directory/internal/service/employee"
	"github.com/spf13/cobra"
)

// filterFlags are shared by list and export.
type filterFlags struct {
	search    string
	sortBy    string
	sortOrder string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "case-insensitive match on name, email or designation")
	cmd.Flags().StringVar(&f.sortBy, "sort-by", "", "sort key: "+strings.Join(employee.SortKeys, ", "))
	cmd.Flags().StringVar(&f.sortOrder, "sort-order", "asc", "asc or desc")
}

func (f *filterFlags) filter() employee.EmployeeFilter {
	return employee.EmployeeFilter{
		Search:    f.search,
		SortBy:    f.sortBy,
		SortOrder: f.sortOrder,
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "directoryctl",
		Short: "Administer the employee directory record store",
		Long: `directoryctl reads and edits the employee collection directly in the
configured record store. Badger stores are locked by a running server,
so stop the API before using the badger backend.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to the .env file to load")

	rootCmd.AddCommand(
		newListCmd(&envFile),
		newDeleteCmd(&envFile),
		newExportCmd(&envFile),
		newHashPasswordCmd(),
	)
	return rootCmd
}

func newListCmd(envFile *string) *cobra.Command {
	var (
		flags filterFlags
		page  int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := openService(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer closeStore()

			filter := flags.filter()
			filter.Page = page
			filter.Limit = limit
			result, err := svc.ListEmployees(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printEmployees(cmd.OutOrStdout(), result)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number, starting at 1")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "rows per page (defaults to LIST_PAGE_SIZE)")
	return cmd
}

func newDeleteCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <employee-id>",
		Short: "Delete an employee by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("%w: %q", employee.ErrInvalidEmployeeID, args[0])
			}

			svc, closeStore, err := openService(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := svc.DeleteEmployee(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted employee %d\n", id)
			return nil
		},
	}
}

func newExportCmd(envFile *string) *cobra.Command {
	var (
		flags  filterFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered, sorted collection to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := openService(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer closeStore()

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}

			if err := svc.ExportEmployees(cmd.Context(), flags.filter(), f); err != nil {
				return errors.Join(err, f.Close(), os.Remove(output))
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported employees to %s\n", output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "employees.xlsx", "workbook path")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long:  "Print a bcrypt hash for ADMIN_PASSWORD_HASH. The password is read from stdin when not given as an argument.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := serviceAuth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// openService builds the employee service over the configured store without a
// change hub; a running server does not see CLI edits as events.
func openService(ctx context.Context, envFile string) (employee.EmployeeService, func(), error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}

	store, err := blobstore.Open(ctx, blobstore.Options{
		Type:        cfg.Storage.Type,
		Path:        cfg.Storage.Path,
		DatabaseURL: cfg.DatabaseURL(),
		Logger:      slog.Default(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Type, err)
	}

	svc := employeeService.NewEmployeeService(
		blob.NewEmployeeRepository(store),
		imageenc.New(cfg.Image.MaxDimension, cfg.Image.MaxUploadBytes),
		employeeService.NewMillisClock(),
		nil,
		cfg.List.PageSize,
		slog.Default(),
	)
	closeStore := func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
	}
	return svc, closeStore, nil
}

func printEmployees(out io.Writer, result employee.ListEmployeeResponse) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tMOBILE\tDESIGNATION\tGENDER\tCOURSES\tCREATED")
	for _, e := range result.Employees {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.EmployeeID, e.Name, e.Email, e.Mobile, e.Designation, e.Gender, strings.Join(e.Courses, ","), e.CreateDate)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "Page %d of %d (%s)\n", result.Page, max(result.TotalPages, 1), result.Showing)
	return err
}
