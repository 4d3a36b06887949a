package models

import "fmt"

// Birthday is a registered birthday. Rows are managed by an administrator outside the bot;
// the bot only reads them.
type Birthday struct {
	UserId   uint64 `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	FullName string `gorm:"column:fullname;not null"`
	MonthNum int    `gorm:"column:month_num;not null;index:month-day-index,priority:1"`
	DayNum   int    `gorm:"column:day_num;not null;index:month-day-index,priority:2"`
}

func (Birthday) TableName() string { return "birthdays" }

type Problem string

const (
	FieldMissing    Problem = "missing"
	FieldWrongType  Problem = "wrong type"
	FieldNotNumber  Problem = "not a number"
	FieldOutOfRange Problem = "out of range"
)

// FieldError describes a single field of external data that could not be used.
type FieldError struct {
	Field   string
	Problem Problem
	Value   string
	Err     error
}

func (e *FieldError) Error() string {
	msg := fmt.Sprintf("field %q: %s", e.Field, e.Problem)
	if e.Value != "" {
		msg += fmt.Sprintf(" (%q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FieldError) Unwrap() error { return e.Err }
