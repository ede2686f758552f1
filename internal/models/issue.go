package models

import "time"

// IssueStatus represents the lifecycle state of an issue.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusAssigned   IssueStatus = "assigned"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusResolved   IssueStatus = "resolved"

	// IssueStatusDeleted only ever appears in status history entries,
	// never as the Status field of a live issue.
	IssueStatusDeleted IssueStatus = "deleted"
)

// IssueCategory represents the facility area an issue belongs to.
type IssueCategory string

const (
	CategoryWater       IssueCategory = "water"
	CategoryElectricity IssueCategory = "electricity"
	CategoryWifi        IssueCategory = "wifi"
	CategoryMess        IssueCategory = "mess"
	CategoryMaintenance IssueCategory = "maintenance"
	CategoryOther       IssueCategory = "other"
)

// IssueUrgency represents how quickly an issue needs attention.
type IssueUrgency string

const (
	UrgencyLow    IssueUrgency = "low"
	UrgencyMedium IssueUrgency = "medium"
	UrgencyHigh   IssueUrgency = "high"
)

// StaffRole identifies the maintenance team an issue can be assigned to.
type StaffRole string

const (
	RolePlumber        StaffRole = "plumber"
	RoleElectrician    StaffRole = "electrician"
	RoleWifiTeam       StaffRole = "wifi_team"
	RoleMessSupervisor StaffRole = "mess_supervisor"
	RoleMaintenance    StaffRole = "maintenance"
)

// StaffRoles lists all valid assignment targets.
var StaffRoles = []StaffRole{
	RolePlumber, RoleElectrician, RoleWifiTeam, RoleMessSupervisor, RoleMaintenance,
}

// UserRole is the role claim of the acting user.
type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleAdmin   UserRole = "admin"
)

// StatusEntry is one append-only status history record.
// The history is the authoritative source for SLA computation.
type StatusEntry struct {
	Status IssueStatus `json:"status"`
	At     time.Time   `json:"at"`
	Note   string      `json:"note,omitempty"`
}

// Issue represents a reported campus facilities problem.
type Issue struct {
	ID          string
	Title       string
	Description string
	Category    IssueCategory
	Urgency     IssueUrgency

	// UrgencyScore is denormalized from Urgency (high=3, medium=2, low=1)
	// so the triage queue can order numerically.
	UrgencyScore int

	Location string
	Status   IssueStatus

	// AssignedTo is empty while the issue is unassigned.
	AssignedTo StaffRole
	AssignedAt *time.Time
	AssignedBy string

	// StatusHistory is append-only, oldest first. Status always equals
	// the status of the last entry.
	StatusHistory []StatusEntry

	IsDeleted bool
	DeletedAt *time.Time
	DeletedBy string

	IsAnonymous bool
	CreatedBy   string

	// AutoReason is the classifier's explanation, kept for audit.
	AutoReason string

	// Duplicate-tracking fields are advisory; nothing auto-merges.
	PossibleDuplicateOf string
	DuplicateGroupID    string
	MasterIssueID       string
	DuplicatesCount     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assigned reports whether the issue has been assigned to a staff role.
func (i *Issue) Assigned() bool {
	return i.AssignedTo != ""
}

// LastStatus returns the status of the most recent history entry,
// or the Status field if the history is empty.
func (i *Issue) LastStatus() IssueStatus {
	if len(i.StatusHistory) == 0 {
		return i.Status
	}
	return i.StatusHistory[len(i.StatusHistory)-1].Status
}

// HistoryAt returns the timestamp of the earliest history entry with the
// given status, and whether one exists.
func (i *Issue) HistoryAt(status IssueStatus) (time.Time, bool) {
	for _, e := range i.StatusHistory {
		if e.Status == status {
			return e.At, true
		}
	}
	return time.Time{}, false
}

// ValidStaffRole reports whether s names a known staff role.
func ValidStaffRole(s StaffRole) bool {
	for _, r := range StaffRoles {
		if r == s {
			return true
		}
	}
	return false
}

// ValidCategory reports whether c names a known category.
func ValidCategory(c IssueCategory) bool {
	switch c {
	case CategoryWater, CategoryElectricity, CategoryWifi, CategoryMess, CategoryMaintenance, CategoryOther:
		return true
	}
	return false
}
