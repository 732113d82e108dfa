package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/teambition/rrule-go"

	"isp_billing_echo/internal/config"
	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/services"
	"isp_billing_echo/internal/tasks"
)

func main() {
	// defined flags
	taskName := flag.String("task_name", "", "Name of the task (mandatory)")
	argsStr := flag.String("arguments", "{}", "JSON arguments for the task")
	dueStr := flag.String("due", "", "Due date (mandatory, format: 2006-01-02 15:04)")
	taskType := flag.String("tasktype", "onetime", "Task type: onetime or recurring")
	recurring := flag.String("recurring", "", "RRULE for recurring tasks, e.g. FREQ=MONTHLY;BYMONTHDAY=1;BYHOUR=1")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts (optional, default: 3)")

	flag.Parse()

	// Validation
	if *taskName == "" || *dueStr == "" {
		fmt.Println("Usage: schedule_task -task_name <name> -due <YYYY-MM-DD HH:MM> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry)
	if _, ok := registry.Get(*taskName); !ok {
		log.Fatalf("Unknown task %q, known tasks: %v", *taskName, registry.Names())
	}

	kind := models.ScheduledTaskType(*taskType)
	switch kind {
	case models.ScheduledTaskTypeOneTime:
	case models.ScheduledTaskTypeRecurring:
		if *recurring == "" {
			log.Fatal("-recurring is required for recurring tasks")
		}
		if _, err := rrule.StrToRRule(*recurring); err != nil {
			log.Fatalf("Invalid recurring rule: %v", err)
		}
	default:
		log.Fatalf("Invalid task type %q", *taskType)
	}

	// Parse arguments JSON
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
		log.Fatalf("Invalid JSON arguments: %v", err)
	}

	// RFC3339 first, then the short form in local time
	due, err := time.Parse(time.RFC3339, *dueStr)
	if err != nil {
		due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
		if err != nil {
			log.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
		}
	}

	var recurringPtr *string
	if kind == models.ScheduledTaskTypeRecurring {
		recurringPtr = recurring
	}

	task, err := tasks.BuildScheduledTask(*taskName, args, due, recurringPtr, kind, *maxAttempt)
	if err != nil {
		log.Fatalf("Failed to build task: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := services.InitDB(cfg.Database.URL, false)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	if err := db.Create(task).Error; err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}
