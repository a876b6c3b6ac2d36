package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/highway/types"
)

// ToJSON encodes the workflow to the canonical JSON interchange form.
func (w *Workflow) ToJSON() (string, error) {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal workflow to JSON: %w", err)
	}
	return string(data), nil
}

// ToYAML encodes the workflow to the canonical YAML interchange form.
func (w *Workflow) ToYAML() (string, error) {
	data, err := yaml.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("marshal workflow to YAML: %w", err)
	}
	return string(data), nil
}

// FromJSON decodes a workflow from its JSON interchange form and
// re-validates it.
func FromJSON(jsonStr string) (*Workflow, error) {
	var wf Workflow
	if err := json.Unmarshal([]byte(jsonStr), &wf); err != nil {
		return nil, types.NewError(types.ErrDecode, "invalid JSON document").WithCause(err)
	}
	return finishDecode(&wf)
}

// FromYAML decodes a workflow from its YAML interchange form and
// re-validates it.
func FromYAML(yamlStr string) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal([]byte(yamlStr), &wf); err != nil {
		return nil, types.NewError(types.ErrDecode, "invalid YAML document").WithCause(err)
	}
	return finishDecode(&wf)
}

// finishDecode checks operator shape (tag dispatch, required variant
// fields, map-key agreement) and then runs the full validator.
func finishDecode(wf *Workflow) (*Workflow, error) {
	if wf.Tasks == nil {
		wf.Tasks = make(map[string]*Operator)
	}
	for _, key := range wf.sortedTaskIDs() {
		op := wf.Tasks[key]
		if op == nil {
			return nil, types.NewError(types.ErrDecode, "task entry is empty").WithTask(key)
		}
		if op.TaskID == "" {
			op.TaskID = key
		}
		if op.TaskID != key {
			return nil, types.NewError(types.ErrDecode,
				"task key %q does not match task_id %q", key, op.TaskID).WithTask(key)
		}
		if err := op.decodeCheck(); err != nil {
			return nil, err
		}
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return wf, nil
}

// LoadFromJSONFile loads a workflow from a JSON file.
func LoadFromJSONFile(filename string) (*Workflow, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return FromJSON(string(data))
}

// LoadFromYAMLFile loads a workflow from a YAML file.
func LoadFromYAMLFile(filename string) (*Workflow, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return FromYAML(string(data))
}

// SaveToJSONFile writes the workflow to a JSON file.
func (w *Workflow) SaveToJSONFile(filename string) error {
	jsonStr, err := w.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(jsonStr), 0644); err != nil {
		return fmt.Errorf("write workflow file: %w", err)
	}
	return nil
}

// SaveToYAMLFile writes the workflow to a YAML file.
func (w *Workflow) SaveToYAMLFile(filename string) error {
	yamlStr, err := w.ToYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(yamlStr), 0644); err != nil {
		return fmt.Errorf("write workflow file: %w", err)
	}
	return nil
}
