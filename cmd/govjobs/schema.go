package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/govjob-alerts/internal/schemas"
	schemafiles "github.com/jonathan/govjob-alerts/schemas"
)

var (
	schemaName string
	schemaJSON string
)

// embeddedSchemas maps the names accepted by --schema to compiled-in schemas.
var embeddedSchemas = map[string][]byte{
	"push_message": schemafiles.PushMessage,
	"job_event":    schemafiles.JobEvent,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Work with the push payload and job event schemas",
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON document against a schema",
	Long: `Validate a JSON document against push_message, job_event or a schema
file path.`,
	RunE: runSchemaValidate,
}

func init() {
	schemaValidateCmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Schema name (push_message, job_event) or path to a schema file")
	schemaValidateCmd.Flags().StringVarP(&schemaJSON, "json", "j", "", "Path to the JSON document")
	if err := schemaValidateCmd.MarkFlagRequired("schema"); err != nil {
		panic(fmt.Sprintf("failed to mark schema flag as required: %v", err))
	}
	if err := schemaValidateCmd.MarkFlagRequired("json"); err != nil {
		panic(fmt.Sprintf("failed to mark json flag as required: %v", err))
	}

	schemaCmd.AddCommand(schemaValidateCmd)
	rootCmd.AddCommand(schemaCmd)
}

// validateDocument checks the document at jsonPath against a named embedded
// schema or, failing that, the schema file at schema.
func validateDocument(schema, jsonPath string) error {
	if content, ok := embeddedSchemas[schema]; ok {
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return fmt.Errorf("failed to read JSON file: %w", err)
		}
		return schemas.ValidateJSONString(string(content), string(data))
	}

	path := schema
	if resolved := schemas.ResolveSchemaPath(schema); resolved != "" {
		path = resolved
	}
	return schemas.ValidateJSON(path, jsonPath)
}

func runSchemaValidate(cmd *cobra.Command, _ []string) error {
	err := validateDocument(schemaName, schemaJSON)
	var validationErr *schemas.ValidationError
	if errors.As(err, &validationErr) {
		for _, fe := range validationErr.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", fe.Field, fe.Message)
		}
		return fmt.Errorf("%s is not valid against %s", schemaJSON, schemaName)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", schemaJSON)
	return nil
}
