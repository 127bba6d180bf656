// Package manifest parses YAML task files for claw.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/klubi/claw/pkg/apis/v1alpha1"
	"gopkg.in/yaml.v3"
)

var namePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9._]*[a-z0-9])?$`)

// maxNameLength keeps names usable as URL path segments and store keys.
const maxNameLength = 63

// ParseFile reads a YAML file at the given path and parses it into Tasks.
// Multi-document YAML (separated by ---) is supported.
func ParseFile(path string) ([]*v1alpha1.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file %s: %w", path, err)
	}
	return ParseBytes(data)
}

// ParseBytes parses raw YAML bytes into Tasks, in document order.
func ParseBytes(data []byte) ([]*v1alpha1.Task, error) {
	var tasks []*v1alpha1.Task

	decoder := yaml.NewDecoder(bytes.NewReader(data))

	for i := 1; ; i++ {
		// Decode into a generic yaml.Node so we can re-decode it.
		var node yaml.Node
		if err := decoder.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decoding yaml document %d: %w", i, err)
		}

		// Skip empty documents.
		if node.Kind == 0 {
			continue
		}

		// First pass: extract TypeMeta to check the Kind.
		var meta v1alpha1.TypeMeta
		if err := node.Decode(&meta); err != nil {
			return nil, fmt.Errorf("document %d: decoding type meta: %w", i, err)
		}
		if meta.Kind == "" && meta.APIVersion == "" {
			continue
		}
		if meta.Kind != v1alpha1.KindTask {
			return nil, fmt.Errorf("document %d: unknown resource kind: %q", i, meta.Kind)
		}
		if meta.APIVersion != "" && meta.APIVersion != v1alpha1.APIVersion {
			return nil, fmt.Errorf("document %d: unsupported apiVersion %q (want %s)", i, meta.APIVersion, v1alpha1.APIVersion)
		}

		// Second pass: decode the Task itself.
		var task v1alpha1.Task
		if err := node.Decode(&task); err != nil {
			return nil, fmt.Errorf("document %d: decoding Task: %w", i, err)
		}
		if task.APIVersion == "" {
			task.APIVersion = v1alpha1.APIVersion
		}

		if err := Validate(&task); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		tasks = append(tasks, &task)
	}

	return tasks, nil
}

// Validate checks that required fields of a Task are set.
func Validate(task *v1alpha1.Task) error {
	if err := ValidateName(task.Metadata.Name); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if task.Metadata.Project != "" {
		if err := ValidateName(task.Metadata.Project); err != nil {
			return fmt.Errorf("validation failed: project %w", err)
		}
	}
	if task.Spec.Prompt == "" {
		return fmt.Errorf("validation failed: Task %s has an empty prompt", task.Metadata.Name)
	}
	if task.Spec.MaxIterations < 0 {
		return fmt.Errorf("validation failed: Task %s has a negative maxIterations", task.Metadata.Name)
	}
	return nil
}

// ValidateName checks that name is a lowercase identifier of at most 63
// characters: letters, digits, '-', '.' and '_', starting and ending with
// a letter or digit.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name %q is longer than %d characters", name, maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name %q must consist of lowercase letters, digits, '-', '.' or '_'", name)
	}
	return nil
}
