package tasks

import "time"

type Task struct {
	ID        int64
	TenantID  int64
	Title     string
	CreatedAt time.Time
}
