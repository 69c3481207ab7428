package task_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/offmind/offmind-mcp/internal/offmind"
	"github.com/offmind/offmind-mcp/internal/server"
	"github.com/offmind/offmind-mcp/internal/tools/common"
)

const dateLayout = "2006-01-02"

// validDate reports whether s is a calendar date in YYYY-MM-DD form.
func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// requireString extracts a required non-empty string argument.
func requireString(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// optionalString extracts an optional string argument.
func optionalString(args map[string]interface{}, name string) string {
	v, _ := args[name].(string)
	return v
}

// parseChecklist accepts a checklist either as a JSON array of
// {title, done} objects or as a string containing that JSON.
func parseChecklist(value interface{}) ([]offmind.ChecklistItem, error) {
	if value == nil {
		return nil, nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid checklist: %v", err)
		}
	}

	var items []offmind.ChecklistItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid checklist, expected an array of {title, done} items: %v", err)
	}
	for i, item := range items {
		if item.Title == "" {
			return nil, fmt.Errorf("checklist item %d is missing a title", i)
		}
	}
	return items, nil
}

func textResult(v interface{}) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(data))
}

// RegisterTaskTools registers all task tools with the MCP server.
func RegisterTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerTaskQueryTools(s, sc)
	registerTaskMutationTools(s, sc)
	registerRecurrentTaskTools(s, sc)
	return nil
}

func registerTaskQueryTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getAllTasksTool := mcp.NewTool("get_all_tasks",
		mcp.WithDescription("Get all tasks for the signed-in user"),
	)

	s.AddTool(getAllTasksTool, common.InstrumentedToolHandler("get_all_tasks", "list_tasks", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tasks, err := sc.Client().ListTasks(ctx, offmind.TaskFilter{})
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get tasks: %v", err)), nil
			}
			return textResult(tasks), nil
		}))

	getTodayTasksTool := mcp.NewTool("get_today_tasks",
		mcp.WithDescription("Get tasks scheduled for today"),
	)

	s.AddTool(getTodayTasksTool, common.InstrumentedToolHandler("get_today_tasks", "today_tasks", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tasks, err := sc.Client().TodayTasks(ctx)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get today's tasks: %v", err)), nil
			}
			return textResult(tasks), nil
		}))

	getIncompleteTasksTool := mcp.NewTool("get_incomplete_tasks",
		mcp.WithDescription("Get all incomplete tasks"),
	)

	s.AddTool(getIncompleteTasksTool, common.InstrumentedToolHandler("get_incomplete_tasks", "list_incomplete_tasks", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tasks, err := sc.Client().ListTasks(ctx, offmind.TaskFilter{Status: offmind.StatusIncomplete})
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get incomplete tasks: %v", err)), nil
			}
			return textResult(tasks), nil
		}))

	getCompletedTasksTool := mcp.NewTool("get_completed_tasks",
		mcp.WithDescription("Get all completed tasks"),
	)

	s.AddTool(getCompletedTasksTool, common.InstrumentedToolHandler("get_completed_tasks", "list_completed_tasks", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tasks, err := sc.Client().ListTasks(ctx, offmind.TaskFilter{Status: offmind.StatusCompleted})
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get completed tasks: %v", err)), nil
			}
			return textResult(tasks), nil
		}))

	getTasksByDateTool := mcp.NewTool("get_tasks_by_date",
		mcp.WithDescription("Get tasks for a specific date"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Date in format YYYY-MM-DD (e.g., 2026-08-28)"),
		),
	)

	s.AddTool(getTasksByDateTool, common.InstrumentedToolHandler("get_tasks_by_date", "list_tasks_by_date", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			date, err := requireString(args, "date")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if !validDate(date) {
				return mcp.NewToolResultError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date)), nil
			}

			tasks, err := sc.Client().ListTasks(ctx, offmind.TaskFilter{Date: date})
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get tasks for %s: %v", date, err)), nil
			}
			return textResult(tasks), nil
		}))

	searchTasksTool := mcp.NewTool("search_tasks",
		mcp.WithDescription("Search tasks by title, description, or checklist item titles (case-insensitive)"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query to match against task fields"),
		),
	)

	s.AddTool(searchTasksTool, common.InstrumentedToolHandler("search_tasks", "search_tasks", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			query, err := requireString(args, "query")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			tasks, err := sc.Client().SearchTasks(ctx, query)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to search tasks: %v", err)), nil
			}
			return textResult(tasks), nil
		}))
}

func registerTaskMutationTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createTaskTool := mcp.NewTool("create_task",
		mcp.WithDescription("Create a new task"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Task date in format YYYY-MM-DD (e.g., 2026-08-28)"),
		),
		mcp.WithString("description",
			mcp.Description("Task description"),
		),
		mcp.WithString("checklist",
			mcp.Description("Checklist items as a JSON array of {title, done} objects"),
		),
		mcp.WithString("recurrentTaskId",
			mcp.Description("ID of the recurrent task this task is generated from"),
		),
	)

	s.AddTool(createTaskTool, common.InstrumentedToolHandler("create_task", "create_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			title, err := requireString(args, "title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			date, err := requireString(args, "date")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if !validDate(date) {
				return mcp.NewToolResultError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date)), nil
			}
			checklist, err := parseChecklist(args["checklist"])
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			task, err := sc.Client().CreateTask(ctx, offmind.CreateTaskRequest{
				Title:           title,
				Date:            date,
				Description:     optionalString(args, "description"),
				Checklist:       checklist,
				RecurrentTaskID: optionalString(args, "recurrentTaskId"),
			})
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to create task: %v", err)), nil
			}

			data, _ := json.MarshalIndent(task, "", "  ")
			return mcp.NewToolResultText(fmt.Sprintf("Task created successfully:\n%s", string(data))), nil
		}))

	toggleTaskTool := mcp.NewTool("toggle_task_completion",
		mcp.WithDescription("Toggle a task's completion status"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to toggle"),
		),
	)

	s.AddTool(toggleTaskTool, common.InstrumentedToolHandler("toggle_task_completion", "toggle_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			taskID, err := requireString(args, "taskId")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			task, err := sc.Client().ToggleTask(ctx, taskID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to toggle task: %v", err)), nil
			}
			return textResult(task), nil
		}))

	toggleChecklistItemTool := mcp.NewTool("toggle_checklist_item",
		mcp.WithDescription("Toggle a checklist item's done status"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task containing the checklist"),
		),
		mcp.WithNumber("checklistIndex",
			mcp.Required(),
			mcp.Description("Index of the checklist item to toggle (0-based)"),
		),
	)

	s.AddTool(toggleChecklistItemTool, common.InstrumentedToolHandler("toggle_checklist_item", "toggle_checklist_item", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			taskID, err := requireString(args, "taskId")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			indexVal, ok := args["checklistIndex"].(float64)
			if !ok {
				return mcp.NewToolResultError("checklistIndex is required"), nil
			}
			index := int(indexVal)
			if index < 0 {
				return mcp.NewToolResultError("checklistIndex must not be negative"), nil
			}

			task, err := sc.Client().ToggleChecklistItem(ctx, taskID, index)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to toggle checklist item: %v", err)), nil
			}
			return textResult(task), nil
		}))
}

func registerRecurrentTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getRecurrentTasksTool := mcp.NewTool("get_all_recurrent_tasks",
		mcp.WithDescription("Get all recurrent tasks for the signed-in user"),
	)

	s.AddTool(getRecurrentTasksTool, common.InstrumentedToolHandler("get_all_recurrent_tasks", "list_recurrent_tasks", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tasks, err := sc.Client().ListRecurrentTasks(ctx)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get recurrent tasks: %v", err)), nil
			}
			return textResult(tasks), nil
		}))

	createRecurrentTaskTool := mcp.NewTool("create_recurrent_task",
		mcp.WithDescription("Create a new recurrent task"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Recurrent task title"),
		),
		mcp.WithString("recurrenceRule",
			mcp.Required(),
			mcp.Description("Recurrence rule string (e.g., \"daily\", \"weekly\", \"monthly\")"),
		),
		mcp.WithString("generateFromDate",
			mcp.Required(),
			mcp.Description("Date to start generating tasks from, in format YYYY-MM-DD"),
		),
		mcp.WithString("description",
			mcp.Description("Task description"),
		),
		mcp.WithString("checklist",
			mcp.Description("Checklist items as a JSON array of {title, done} objects"),
		),
	)

	s.AddTool(createRecurrentTaskTool, common.InstrumentedToolHandler("create_recurrent_task", "create_recurrent_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			title, err := requireString(args, "title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			rule, err := requireString(args, "recurrenceRule")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			fromDate, err := requireString(args, "generateFromDate")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if !validDate(fromDate) {
				return mcp.NewToolResultError(fmt.Sprintf("invalid generateFromDate %q, expected YYYY-MM-DD", fromDate)), nil
			}
			checklist, err := parseChecklist(args["checklist"])
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			task, err := sc.Client().CreateRecurrentTask(ctx, offmind.CreateRecurrentTaskRequest{
				Title:            title,
				RecurrenceRule:   rule,
				GenerateFromDate: fromDate,
				Description:      optionalString(args, "description"),
				Checklist:        checklist,
			})
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to create recurrent task: %v", err)), nil
			}

			data, _ := json.MarshalIndent(task, "", "  ")
			return mcp.NewToolResultText(fmt.Sprintf("Recurrent task created successfully:\n%s", string(data))), nil
		}))
}
