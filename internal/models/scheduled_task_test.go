package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduledTaskNextDue(t *testing.T) {
	due := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	monthly := "FREQ=MONTHLY;BYMONTHDAY=1"
	broken := "FREQ=SOMETIMES"

	tests := []struct {
		name  string
		task  ScheduledTask
		after time.Time
		want  time.Time
	}{
		{
			name:  "one time keeps due",
			task:  ScheduledTask{Due: due, TaskType: ScheduledTaskTypeOneTime},
			after: due,
			want:  due,
		},
		{
			name:  "monthly advances to next first of month",
			task:  ScheduledTask{Due: due, TaskType: ScheduledTaskTypeRecurring, RecurringInterval: &monthly},
			after: due,
			want:  time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC),
		},
		{
			name:  "monthly skips missed occurrences",
			task:  ScheduledTask{Due: due, TaskType: ScheduledTaskTypeRecurring, RecurringInterval: &monthly},
			after: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC),
		},
		{
			name:  "invalid rule keeps due",
			task:  ScheduledTask{Due: due, TaskType: ScheduledTaskTypeRecurring, RecurringInterval: &broken},
			after: due,
			want:  due,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(tt.task.NextDue(tt.after)), "got %s", tt.task.NextDue(tt.after))
		})
	}
}
