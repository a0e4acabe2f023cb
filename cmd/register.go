package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a student from a selfie",
	Long: `Register a student for attendance tracking. The photo must contain
exactly one clearly visible face; its embedding becomes the reference
the matcher compares meeting frames against.`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Full name of the student")
	registerCmd.Flags().String("id", "", "External student identifier")
	registerCmd.Flags().String("photo", "", "Path to the registration selfie")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("id")
	registerCmd.MarkFlagRequired("photo")
}

func runRegister(cmd *cobra.Command, args []string) error {
	name := mustGetString(cmd, "name")
	studentID := mustGetString(cmd, "id")
	photoPath := mustGetString(cmd, "photo")

	photo, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}

	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	student, err := a.roster.Register(context.Background(), name, studentID, photo, photoPath)
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s (%s)\n", student.Name, student.StudentID)
	return nil
}
