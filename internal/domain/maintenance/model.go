package maintenance

import "time"

type CycleStatus string

const (
	// StatusOpen — других статусов пока нет: цикл создаётся открытым
	// и остаётся редактируемым.
	StatusOpen CycleStatus = "open"
)

// Cycle — месячная корзина часов обслуживания для одного тенанта.
// Month в формате "YYYY-MM" (UTC), уникален в паре с TenantID.
type Cycle struct {
	ID           int64
	TenantID     int64
	Month        string
	BaseHours    float64
	CarriedHours float64
	UsedHours    float64
	Status       CycleStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TotalAvailable — сколько часов доступно в цикле всего.
func (c *Cycle) TotalAvailable() float64 { return c.BaseHours + c.CarriedHours }

// Remaining может быть отрицательным: перерасход здесь не запрещён,
// клэмп до нуля — задача отображающего слоя.
func (c *Cycle) Remaining() float64 { return c.TotalAvailable() - c.UsedHours }

// TimeEntry — одна запись о выполненной работе. После создания не меняется.
type TimeEntry struct {
	ID             int64
	TenantID       int64
	CycleID        int64
	TaskID         *int64
	Date           time.Time
	DurationHours  float64
	IncludedInPlan bool
	Notes          string
	CreatedAt      time.Time
}

// EntryWithContext — запись с денормализованными полями для списков.
type EntryWithContext struct {
	TimeEntry
	Month     string
	TaskTitle string
}

type Feature struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Summary — производная сводка для кабинета тенанта.
type Summary struct {
	Month          string  `json:"month"`
	BaseHours      float64 `json:"baseHours"`
	CarriedHours   float64 `json:"carriedHours"`
	UsedHours      float64 `json:"usedHours"`
	TotalAvailable float64 `json:"totalAvailable"`
	Remaining      float64 `json:"remaining"`
}
