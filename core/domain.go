package core

import (
	"strconv"
	"strings"
	"time"
)

// TaskPriority is the internal priority level for a task. The provider wire
// format carries priorities as numeric codes; see PriorityCode / ParsePriorityCode.
type TaskPriority string

const (
	TaskPriorityNone   TaskPriority = "None"
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// PriorityCode returns the provider wire code for a priority. Unknown values
// collapse to the None code.
func (p TaskPriority) PriorityCode() string {
	switch p {
	case TaskPriorityLow:
		return "1"
	case TaskPriorityMedium:
		return "2"
	case TaskPriorityHigh:
		return "3"
	default:
		return "0"
	}
}

// ParsePriorityCode maps a provider numeric code back to an internal priority.
func ParsePriorityCode(code string) TaskPriority {
	switch strings.TrimSpace(code) {
	case "1":
		return TaskPriorityLow
	case "2":
		return TaskPriorityMedium
	case "3":
		return TaskPriorityHigh
	default:
		return TaskPriorityNone
	}
}

type ContactRank string

const (
	ContactRankA        ContactRank = "A"
	ContactRankB        ContactRank = "B"
	ContactRankC        ContactRank = "C"
	ContactRankD        ContactRank = "D"
	ContactRankF        ContactRank = "F"
	ContactRankUnranked ContactRank = "Unranked"
)

// Address is a structured postal address. The provider flattens street into a
// numeric token and a remainder field; the mapper owns that translation.
type Address struct {
	Street  string
	City    string
	State   string
	Zip     string
	Country string
}

func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.Zip == "" && a.Country == ""
}

// ContactInput is the caller-supplied shape for contact creation and updates.
// Empty optional fields are omitted from the outbound request entirely.
type ContactInput struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	MobilePhone string
	WorkPhone   string
	Company     string
	Address     *Address
	Source      string
	Categories  []string
	Status      string
	Rank        ContactRank
}

// Contact is the stable internal contact shape. Provider field names never
// leak past the mapper boundary.
type Contact struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	MobilePhone  string
	WorkPhone    string
	Company      string
	Address      *Address
	Source       string
	Categories   []string
	Status       string
	Rank         string
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	CustomFields map[string]string
}

type Note struct {
	ID         string
	ContactID  string
	Subject    string
	Content    string
	Categories []string
	CreatedAt  time.Time
	CreatedBy  string
}

type TaskInput struct {
	Description string
	DueDate     *time.Time
	Priority    TaskPriority
	ContactID   string
	AssignedTo  string
	Notes       string
}

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

type Task struct {
	ID          string
	Description string
	DueDate     *time.Time
	Priority    TaskPriority
	Status      TaskStatus
	ContactID   string
	AssignedTo  string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type TeamMemberKind string

const (
	TeamMemberInside  TeamMemberKind = "inside"
	TeamMemberOutside TeamMemberKind = "outside"
)

type TeamMember struct {
	ID       string
	Name     string
	Email    string
	Phone    string
	Cell     string
	JobTitle string
	Kind     TeamMemberKind
}

type MarketingProgram struct {
	ID   string
	Name string
}

type LeadSource struct {
	ID   string
	Name string
}

// SearchQuery selects contacts. Zero-value fields are not sent to the provider.
type SearchQuery struct {
	Query        string
	Email        string
	Phone        string
	Categories   []string
	Page         int
	PageSize     int
	UpdatedSince *time.Time
}

func (q SearchQuery) PageOrDefault() string {
	if q.Page > 0 {
		return strconv.Itoa(q.Page)
	}
	return "1"
}

func (q SearchQuery) PageSizeOrDefault() string {
	if q.PageSize > 0 {
		return strconv.Itoa(q.PageSize)
	}
	return "100"
}

type SearchResult struct {
	Contacts []Contact
	Total    int
}

// TokenSet is one credential record for a (user, provider) pair. Token fields
// hold plaintext only while in memory; the token store persists them through a
// SecretProvider.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

func (t TokenSet) Clone() TokenSet {
	clone := t
	clone.Scopes = append([]string(nil), t.Scopes...)
	return clone
}
