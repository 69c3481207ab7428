package offmind

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ChecklistItem is one entry in a task's checklist.
type ChecklistItem struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// Task is a single dated task.
type Task struct {
	ID              string          `json:"id,omitempty"`
	Title           string          `json:"title"`
	Date            string          `json:"date,omitempty"`
	Description     string          `json:"description,omitempty"`
	Completed       bool            `json:"completed,omitempty"`
	Checklist       []ChecklistItem `json:"checklist,omitempty"`
	RecurrentTaskID string          `json:"recurrentTaskId,omitempty"`
}

// RecurrentTask is a template that generates dated tasks on a schedule.
type RecurrentTask struct {
	ID               string          `json:"id,omitempty"`
	Title            string          `json:"title"`
	RecurrenceRule   string          `json:"recurrenceRule"`
	GenerateFromDate string          `json:"generateFromDate"`
	Description      string          `json:"description,omitempty"`
	Checklist        []ChecklistItem `json:"checklist,omitempty"`
}

// taskList decodes the proxy's task collection envelope.
type taskList struct {
	Tasks taskCollection `json:"tasks"`
}

// recurrentTaskList decodes the proxy's recurrent task collection envelope.
type recurrentTaskList struct {
	RecurrentTasks recurrentTaskCollection `json:"recurrentTasks"`
}

// taskCollection accepts both backend encodings of a task collection.
type taskCollection []Task

func (c *taskCollection) UnmarshalJSON(data []byte) error {
	tasks, err := decodeCollection[Task](data, func(t *Task, id string) {
		if t.ID == "" {
			t.ID = id
		}
	})
	if err != nil {
		return err
	}
	*c = tasks
	return nil
}

// recurrentTaskCollection accepts both backend encodings of a recurrent task
// collection.
type recurrentTaskCollection []RecurrentTask

func (c *recurrentTaskCollection) UnmarshalJSON(data []byte) error {
	tasks, err := decodeCollection[RecurrentTask](data, func(t *RecurrentTask, id string) {
		if t.ID == "" {
			t.ID = id
		}
	})
	if err != nil {
		return err
	}
	*c = tasks
	return nil
}

// decodeCollection normalizes the backend's two collection encodings into an
// ordered slice. Arrays keep their order with the index as fallback ID and
// null holes skipped; objects are ordered by key so output is deterministic.
func decodeCollection[T any](data []byte, setID func(*T, string)) ([]T, error) {
	if len(data) == 0 || string(data) == "null" {
		return []T{}, nil
	}

	switch data[0] {
	case '[':
		var raw []*T
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode collection array: %w", err)
		}
		out := make([]T, 0, len(raw))
		for i, item := range raw {
			if item == nil {
				continue
			}
			setID(item, strconv.Itoa(i))
			out = append(out, *item)
		}
		return out, nil

	case '{':
		var raw map[string]*T
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode collection object: %w", err)
		}
		keys := make([]string, 0, len(raw))
		for k := range raw {
			if raw[k] != nil {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		out := make([]T, 0, len(keys))
		for _, k := range keys {
			item := raw[k]
			setID(item, k)
			out = append(out, *item)
		}
		return out, nil
	}

	return nil, fmt.Errorf("unexpected collection encoding: %s", snippet(data))
}

func snippet(data []byte) string {
	const max = 40
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
