package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wintergreen/academia-backend/internal/app/service"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"github.com/wintergreen/academia-backend/pkg/sheet"
)

var (
	rosterEstablishment string
	assumeYes           bool
)

var importTrainingCmd = &cobra.Command{
	Use:   "import-training <file>",
	Short: "Apply a training results spreadsheet (xlsx or csv)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		actor := service.AdminActor("", s.cfg.App.DefaultActor)
		report, err := s.container.Imports.Import(context.Background(), actor, filepath.Base(args[0]), data)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var importEmployeesCmd = &cobra.Command{
	Use:   "import-employees <file>",
	Short: "Create pending employees from a roster spreadsheet",
	Long: `import-employees reads a roster with e-mail, name, city and phone columns
and creates every row as a pending employee in one transaction. Rows without
an establishment column use --establishment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		rows, err := sheet.Parse(args[0], data)
		if err != nil {
			return err
		}
		inputs, err := rosterInputs(rows, rosterEstablishment)
		if err != nil {
			return err
		}
		fmt.Printf("Employees to create: %d\n", len(inputs))

		if !assumeYes && !confirm("Do you want to proceed with the import? (yes/no): ") {
			fmt.Println("Import cancelled.")
			return nil
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		actor := service.AdminActor("", s.cfg.App.DefaultActor)
		created, err := s.container.Employees.BulkCreate(actor, inputs)
		if err != nil {
			return fmt.Errorf("bulk create failed: %w", err)
		}

		logger.Info("Roster imported", map[string]interface{}{"count": len(created)})
		for _, e := range created {
			fmt.Printf("%s\t%s\n", e.Email, e.RegistrationLink)
		}
		return nil
	},
}

func init() {
	importEmployeesCmd.Flags().StringVarP(&rosterEstablishment, "establishment", "e", "", "Default establishment ID")
	importEmployeesCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}

// rosterInputs maps spreadsheet rows to employee inputs. Blank e-mail rows fail
// the whole roster with the first offending 1-based row number.
func rosterInputs(rows []sheet.Row, defaultEstablishment string) ([]service.CreateEmployeeInput, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("roster has no data rows")
	}
	inputs := make([]service.CreateEmployeeInput, 0, len(rows))
	for i, raw := range rows {
		row := raw.Normalized()
		email, ok := row.Pick("email", "mail", "почта")
		if !ok {
			return nil, fmt.Errorf("row %d: e-mail is missing", i+1)
		}
		establishment, ok := row.Pick("establishmentid", "establishment", "заведение")
		if !ok {
			establishment = defaultEstablishment
		}
		if establishment == "" {
			return nil, fmt.Errorf("row %d: establishment is missing", i+1)
		}
		name, _ := row.Pick("fullname", "name", "фио", "имя")

		inputs = append(inputs, service.CreateEmployeeInput{
			EstablishmentID: strings.TrimSpace(establishment),
			FullName:        strings.TrimSpace(name),
			Email:           strings.TrimSpace(email),
			City:            optional(row, "city", "город"),
			Phone:           optional(row, "phone", "телефон"),
		})
	}
	return inputs, nil
}

func optional(row sheet.Row, keys ...string) *string {
	v, ok := row.Pick(keys...)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	var answer string
	_, _ = fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}
