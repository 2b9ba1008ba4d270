package opentime

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FormatVersion is written to opentime_version on every document.
const FormatVersion = "0.2"

type ItemType string

const (
	TypeGoal        ItemType = "goal"
	TypeTask        ItemType = "task"
	TypeHabit       ItemType = "habit"
	TypeReminder    ItemType = "reminder"
	TypeEvent       ItemType = "event"
	TypeAppointment ItemType = "appointment"
	TypeProject     ItemType = "project"
)

// ItemTypes lists every variant in canonical order.
var ItemTypes = []ItemType{TypeGoal, TypeTask, TypeHabit, TypeReminder, TypeEvent, TypeAppointment, TypeProject}

func (t ItemType) Valid() bool {
	switch t {
	case TypeGoal, TypeTask, TypeHabit, TypeReminder, TypeEvent, TypeAppointment, TypeProject:
		return true
	default:
		return false
	}
}

// ParseItemType is case-insensitive and trims surrounding whitespace.
func ParseItemType(s string) (ItemType, bool) {
	t := ItemType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	default:
		return false
	}
}

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
)

type LinkKind string

const (
	LinkURL LinkKind = "url"
	LinkRef LinkKind = "ref"
)

type Frequency string

const (
	FreqDaily  Frequency = "daily"
	FreqWeekly Frequency = "weekly"
	FreqCustom Frequency = "custom"
)

type RepeatPer string

const (
	PerDay   RepeatPer = "Day"
	PerWeek  RepeatPer = "Week"
	PerMonth RepeatPer = "Month"
	PerYear  RepeatPer = "Year"
)

type RepeatEnd string

const (
	EndNever  RepeatEnd = "Never"
	EndAfter  RepeatEnd = "After"
	EndOnDate RepeatEnd = "On Date"
)

type Behavior string

const (
	BehaviorReplace   Behavior = "replace"
	BehaviorAlongside Behavior = "alongside"
)

// Item is one schedule entry. Shared fields live here; variant fields live in Body.
type Item struct {
	ID         string
	Title      string
	Tags       []string
	Categories []string
	Notes      string
	Steps      []Step
	Links      []Link
	XObsidian  *ObsidianExt
	XElysium   *ElysiumExt
	// Extra holds keys this package does not model, in the order they were read.
	Extra []Extension
	Body  Variant
}

// Type reports the discriminant carried by the body. A nil body has no type.
func (it Item) Type() ItemType {
	if it.Body == nil {
		return ""
	}
	return it.Body.itemType()
}

// Variant is implemented only by the seven body types in this package.
type Variant interface {
	itemType() ItemType
}

type Step struct {
	ID        string
	Title     string
	Completed bool
	Due       string
	Order     int
	Status    StepStatus
}

type Link struct {
	Kind  LinkKind
	Value string
}

// ObsidianExt records where an item was parsed from.
type ObsidianExt struct {
	SourceFile   string
	LineNumber   *int
	OriginalText string
	FolderPath   string
}

// ElysiumExt marks an item as linked to a source note in a vault.
type ElysiumExt struct {
	ObsidianEnabled bool
	VaultName       string
	FolderPath      string
	SourceFile      string
	Behavior        Behavior
}

type Extension struct {
	Key   string
	Value *yaml.Node
}

type Repeats struct {
	Enabled  bool
	Count    int
	Per      RepeatPer
	Weekdays []string
	EndType  RepeatEnd
	EndCount *int
	EndDate  string
}

type Goal struct {
	TargetDate      string
	Progress        *float64
	ProjectID       string
	EstimateMinutes *int
	Repeats         *Repeats
}

type Task struct {
	Status          TaskStatus
	Due             string
	ScheduledStart  string
	EstimateMinutes *int
	ActualMinutes   *int
	Priority        *int
	GoalID          string
	ProjectID       string
	Repeats         *Repeats
}

type HabitPattern struct {
	Freq       Frequency
	DaysOfWeek []string
}

type TimeWindow struct {
	StartTime string
	EndTime   string
}

type Streak struct {
	Current int
	Longest int
}

type Habit struct {
	Pattern         *HabitPattern
	Window          *TimeWindow
	Streak          *Streak
	GoalID          string
	ProjectID       string
	EstimateMinutes *int
	Repeats         *Repeats
}

type Reminder struct {
	Time   string
	Repeat string
	Link   string
}

type Event struct {
	Start      string
	End        string
	AllDay     *bool
	Timezone   string
	Location   string
	Recurrence string
	GoalID     string
	ProjectID  string
}

type Appointment struct {
	Start     string
	End       string
	Attendees []string
	Location  string
	Provider  string
	GoalID    string
	ProjectID string
}

type Project struct {
	Children        []string
	Progress        *float64
	TargetDate      string
	EstimateMinutes *int
}

func (*Goal) itemType() ItemType        { return TypeGoal }
func (*Task) itemType() ItemType        { return TypeTask }
func (*Habit) itemType() ItemType       { return TypeHabit }
func (*Reminder) itemType() ItemType    { return TypeReminder }
func (*Event) itemType() ItemType       { return TypeEvent }
func (*Appointment) itemType() ItemType { return TypeAppointment }
func (*Project) itemType() ItemType     { return TypeProject }

// NewBody returns an empty body for t, or nil when t is not a known type.
func NewBody(t ItemType) Variant {
	switch t {
	case TypeGoal:
		return &Goal{}
	case TypeTask:
		return &Task{Status: StatusTodo}
	case TypeHabit:
		return &Habit{}
	case TypeReminder:
		return &Reminder{}
	case TypeEvent:
		return &Event{}
	case TypeAppointment:
		return &Appointment{}
	case TypeProject:
		return &Project{}
	default:
		return nil
	}
}

// Document is a versioned container of items plus export metadata.
type Document struct {
	Version         string
	DefaultTimezone string
	GeneratedBy     string
	CreatedAt       string
	Items           []Item
	// Skipped lists items dropped by Decode. Encode ignores it.
	Skipped []SkippedItem
}

type SkippedItem struct {
	Index  int
	Reason string
}

func NewDocument(timezone, generator string, now time.Time) *Document {
	return &Document{
		Version:         FormatVersion,
		DefaultTimezone: strings.TrimSpace(timezone),
		GeneratedBy:     strings.TrimSpace(generator),
		CreatedAt:       now.UTC().Format(time.RFC3339),
	}
}

func IntPtr(v int) *int           { return &v }
func FloatPtr(v float64) *float64 { return &v }
func BoolPtr(v bool) *bool        { return &v }
