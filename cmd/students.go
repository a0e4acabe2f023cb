package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage registered students",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered students",
	RunE:  runStudentsList,
}

var studentsDeleteCmd = &cobra.Command{
	Use:   "delete <student-id>",
	Short: "Remove a student, their photo and their embedding",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentsDelete,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsDeleteCmd)

	studentsListCmd.Flags().String("query", "", "Filter by name (diacritics-insensitive)")
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	students, err := a.roster.List(context.Background(), mustGetString(cmd, "query"))
	if err != nil {
		return err
	}

	if len(students) == 0 {
		fmt.Println("No students registered.")
		return nil
	}

	fmt.Printf("%-15s %-30s %s\n", "STUDENT ID", "NAME", "REGISTERED")
	for _, s := range students {
		fmt.Printf("%-15s %-30s %s\n", s.StudentID, s.Name, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runStudentsDelete(cmd *cobra.Command, args []string) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.roster.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
