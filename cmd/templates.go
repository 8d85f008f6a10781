package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage sheet templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sheet templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("learn"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		templates, err := st.ListTemplates(ctx)
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no templates")
			return nil
		}

		for _, t := range templates {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s  headers=%d  uses=%d  success=%.2f\n",
				t.ID, t.Name, len(t.ExpectedHeaders), t.UsageCount, t.SuccessRate)
		}
		return nil
	},
}

// templateFile is the YAML shape accepted by `templates add`.
type templateFile struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	ExpectedHeaders []string          `yaml:"expected_headers"`
	FieldMappings   map[string]string `yaml:"field_mappings"`
}

var templatesAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add or update a sheet template from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read template file %s", args[0])
		}

		var tf templateFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return eris.Wrap(err, "parse template file")
		}
		if len(tf.ExpectedHeaders) == 0 {
			return eris.New("template has no expected_headers")
		}
		if tf.ID == "" {
			tf.ID = uuid.NewString()
		}

		if err := cfg.Validate("learn"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		now := time.Now().UTC()
		tmpl := &model.SheetTemplate{
			ID:              tf.ID,
			Name:            tf.Name,
			ExpectedHeaders: tf.ExpectedHeaders,
			FieldMappings:   tf.FieldMappings,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := st.SaveTemplate(ctx, tmpl); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "saved template %s (%s)\n", tmpl.ID, tmpl.Name)
		return nil
	},
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesAddCmd)
	rootCmd.AddCommand(templatesCmd)
}
