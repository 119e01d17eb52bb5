package models

// Counter keys.
const CounterProjects = "projects"

// Counter is a named advisory integer.
type Counter struct {
	Key   string `gorm:"primaryKey;size:50" json:"key"`
	Value int64  `gorm:"not null;default:0" json:"value"`
}

func (Counter) TableName() string { return "counters" }

// CodeSequence holds the last correlative slot handed out for a day when
// codes are assigned transactionally.
type CodeSequence struct {
	Day   string `gorm:"primaryKey;size:10" json:"day"` // YYYY-MM-DD
	Value int    `gorm:"not null;default:0" json:"value"`
}

func (CodeSequence) TableName() string { return "project_code_sequences" }
