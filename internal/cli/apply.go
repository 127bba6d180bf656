package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
	"github.com/klubi/claw/pkg/manifest"
)

func newApplyCmd() *cobra.Command {
	var filename string

	cmd := &cobra.Command{
		Use:   "apply -f <file>",
		Short: "Submit the tasks of a manifest file",
		Long:  "Create every Task document of a YAML manifest on the server. Each task starts right away.",
		Example: `  claw apply -f tasks.yaml
  claw get tasks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := manifest.ParseFile(filename)
			if err != nil {
				return fmt.Errorf("parsing manifest %s: %w", filename, err)
			}

			if len(tasks) == 0 {
				fmt.Println("No tasks found in manifest.")
				return nil
			}

			for _, task := range tasks {
				if err := resolveManifestRoot(filename, task); err != nil {
					return err
				}

				created, err := apiClient.CreateTask(task)
				if err != nil {
					return fmt.Errorf("creating task/%s: %w", task.Metadata.Name, err)
				}
				fmt.Printf("task/%s created\n", created.Metadata.Name)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Path to manifest file (required)")
	cmd.MarkFlagRequired("filename")

	return cmd
}

// resolveManifestRoot makes a relative spec.root absolute against the
// directory of the manifest that declared it.
func resolveManifestRoot(filename string, task *v1alpha1.Task) error {
	root := task.Spec.Root
	if root == "" || filepath.IsAbs(root) {
		return nil
	}
	abs, err := filepath.Abs(filepath.Join(filepath.Dir(filename), root))
	if err != nil {
		return fmt.Errorf("resolving root of task/%s: %w", task.Metadata.Name, err)
	}
	task.Spec.Root = abs
	return nil
}
